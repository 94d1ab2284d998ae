package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/repository"
)

const orderColumns = `id, lend_id, renter, lender, collection, token_id, vault_id, payment, amount, start_time, end_time, claimed, claimed_on`

type rentOrderRepository struct {
	db queryer
}

func NewRentOrderRepository(db queryer) repository.RentOrderRepository {
	return &rentOrderRepository{db: db}
}

func (r *rentOrderRepository) CreateOrder(ctx context.Context, o *domain.RentOrder) error {
	query := `INSERT INTO rent_orders (lend_id, renter, lender, collection, token_id, vault_id, payment, amount, start_time, end_time, claimed)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		o.LendID, o.Renter, o.Lender, o.Collection, tokenArg(o.TokenID), o.VaultID, o.Payment, o.Amount, o.StartTime, o.EndTime, o.Claimed,
	).Scan(&o.ID)
}

func (r *rentOrderRepository) GetOrder(ctx context.Context, id int64) (*domain.RentOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM rent_orders WHERE id = $1`
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("rent order %d", id))
	}
	return o, nil
}

func (r *rentOrderRepository) LatestOrderForToken(ctx context.Context, key domain.TokenKey) (*domain.RentOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM rent_orders WHERE collection = $1 AND token_id = $2 ORDER BY id DESC LIMIT 1`
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, key.Collection, tokenArg(key.TokenID)))
	if err != nil {
		return nil, notFound(err, "rent order for "+key.String())
	}
	return o, nil
}

func (r *rentOrderRepository) ListUnclaimedByLender(ctx context.Context, lender domain.Address) ([]domain.RentOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM rent_orders WHERE lender = $1 AND claimed = false ORDER BY id`
	return r.list(ctx, query, lender)
}

func (r *rentOrderRepository) ListByRenter(ctx context.Context, renter, collection domain.Address) ([]domain.RentOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM rent_orders WHERE renter = $1 AND collection = $2 ORDER BY id`
	return r.list(ctx, query, renter, collection)
}

func (r *rentOrderRepository) ListLendersWithUnclaimed(ctx context.Context) ([]domain.Address, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT lender FROM rent_orders WHERE claimed = false ORDER BY lender`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lenders []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		lenders = append(lenders, a)
	}
	return lenders, rows.Err()
}

// MarkClaimed only flips orders that are still unclaimed, so a repeated
// claim cannot touch an order twice.
func (r *rentOrderRepository) MarkClaimed(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE rent_orders SET claimed = true, claimed_on = $1 WHERE id = ANY($2) AND claimed = false`
	logger.DatabaseCall("mark_claimed", query, "orders", len(ids))
	res, err := r.db.ExecContext(ctx, query, at, pq.Array(ids))
	if err != nil {
		logger.DatabaseResult("mark_claimed", 0, err)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("mark_claimed", n, nil)
	if n != int64(len(ids)) {
		return fmt.Errorf("marked %d of %d orders: %w", n, len(ids), domain.ErrAlreadyClaimed)
	}
	return nil
}

func (r *rentOrderRepository) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rent_orders`).Scan(&n)
	return n, err
}

func (r *rentOrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.RentOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.RentOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*domain.RentOrder, error) {
	o := &domain.RentOrder{}
	err := row.Scan(&o.ID, &o.LendID, &o.Renter, &o.Lender, &o.Collection, &o.TokenID, &o.VaultID, &o.Payment,
		&o.Amount, &o.StartTime, &o.EndTime, &o.Claimed, &o.ClaimedOn)
	if err != nil {
		return nil, err
	}
	return o, nil
}
