package postgres

import (
	"context"

	"github.com/lib/pq"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"
)

type partnerRepository struct {
	db queryer
}

func NewPartnerRepository(db queryer) repository.PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) UpsertPartner(ctx context.Context, p *domain.PartnerConfig) error {
	query := `INSERT INTO partners (collection, fee_receiver, commission_share_bps, accepted_payments, updated_on)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (collection) DO UPDATE SET fee_receiver = EXCLUDED.fee_receiver,
	              commission_share_bps = EXCLUDED.commission_share_bps,
	              accepted_payments = EXCLUDED.accepted_payments,
	              updated_on = EXCLUDED.updated_on`
	_, err := r.db.ExecContext(ctx, query, p.Collection, p.FeeReceiver, p.CommissionShareBps, pq.Array(addressStrings(p.AcceptedPayments)), p.UpdatedOn)
	return err
}

func (r *partnerRepository) GetPartner(ctx context.Context, collection domain.Address) (*domain.PartnerConfig, error) {
	p := &domain.PartnerConfig{}
	var accepted []string
	query := `SELECT collection, fee_receiver, commission_share_bps, accepted_payments, updated_on FROM partners WHERE collection = $1`
	err := r.db.QueryRowContext(ctx, query, collection).Scan(&p.Collection, &p.FeeReceiver, &p.CommissionShareBps, pq.Array(&accepted), &p.UpdatedOn)
	if err != nil {
		return nil, notFound(err, "partner "+string(collection))
	}
	p.AcceptedPayments = addresses(accepted)
	return p, nil
}
