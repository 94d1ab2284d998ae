package postgres

import (
	"context"
	"fmt"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"
)

const lendColumns = `id, collection, token_id, lender, vault_id, payment, unit_fee, day_discount_bps, week_discount_bps, max_end_time, status, last_order_id, created_on, updated_on`

type lendRepository struct {
	db queryer
}

func NewLendRepository(db queryer) repository.LendRepository {
	return &lendRepository{db: db}
}

func (r *lendRepository) CreateLend(ctx context.Context, l *domain.LendRecord) error {
	query := `INSERT INTO lends (collection, token_id, lender, vault_id, payment, unit_fee, day_discount_bps, week_discount_bps, max_end_time, status, last_order_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		l.Collection, tokenArg(l.TokenID), l.Lender, l.VaultID, l.Payment, l.UnitFee,
		l.DayDiscountBps, l.WeekDiscountBps, l.MaxEndTime, l.Status, l.LastOrderID, l.CreatedOn, l.UpdatedOn,
	).Scan(&l.ID)
}

func (r *lendRepository) UpdateLend(ctx context.Context, l *domain.LendRecord) error {
	query := `UPDATE lends SET lender=$1, vault_id=$2, payment=$3, unit_fee=$4, day_discount_bps=$5, week_discount_bps=$6,
	          max_end_time=$7, status=$8, last_order_id=$9, updated_on=$10 WHERE id=$11`
	res, err := r.db.ExecContext(ctx, query,
		l.Lender, l.VaultID, l.Payment, l.UnitFee, l.DayDiscountBps, l.WeekDiscountBps,
		l.MaxEndTime, l.Status, l.LastOrderID, l.UpdatedOn, l.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("lend %d: %w", l.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *lendRepository) GetLend(ctx context.Context, id int64) (*domain.LendRecord, error) {
	query := `SELECT ` + lendColumns + ` FROM lends WHERE id = $1`
	l, err := scanLend(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("lend %d", id))
	}
	return l, nil
}

func (r *lendRepository) GetLendByToken(ctx context.Context, key domain.TokenKey) (*domain.LendRecord, error) {
	query := `SELECT ` + lendColumns + ` FROM lends WHERE collection = $1 AND token_id = $2`
	l, err := scanLend(r.db.QueryRowContext(ctx, query, key.Collection, tokenArg(key.TokenID)))
	if err != nil {
		return nil, notFound(err, "lend "+key.String())
	}
	return l, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLend(row rowScanner) (*domain.LendRecord, error) {
	l := &domain.LendRecord{}
	err := row.Scan(&l.ID, &l.Collection, &l.TokenID, &l.Lender, &l.VaultID, &l.Payment, &l.UnitFee,
		&l.DayDiscountBps, &l.WeekDiscountBps, &l.MaxEndTime, &l.Status, &l.LastOrderID, &l.CreatedOn, &l.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return l, nil
}
