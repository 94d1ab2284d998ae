package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so every repository can
// run inside or outside a ledger transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	repository.VaultRepository
	repository.PartnerRepository
	repository.LendRepository
	repository.RentOrderRepository
}

func newRepos(q queryer) *repos {
	return &repos{
		VaultRepository:     NewVaultRepository(q),
		PartnerRepository:   NewPartnerRepository(q),
		LendRepository:      NewLendRepository(q),
		RentOrderRepository: NewRentOrderRepository(q),
	}
}

type Store struct {
	db *sql.DB
	*repos
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		repos: newRepos(db),
	}
}

// WithinTx runs fn in a SERIALIZABLE transaction so concurrent ledger
// operations on other replicas cannot interleave.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	logger.DatabaseCall("begin", "BEGIN ISOLATION LEVEL SERIALIZABLE")
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepos(tx)); err != nil {
		logger.DatabaseResult("rollback", 0, nil, "cause", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.DatabaseResult("commit", 0, err)
		return fmt.Errorf("tx commit failed: %w", err)
	}
	logger.DatabaseResult("commit", 0, nil)
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}

// token ids are uint64 and stored as NUMERIC(20,0).
func tokenArg(id domain.TokenID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func addresses(in []string) []domain.Address {
	out := make([]domain.Address, len(in))
	for i, s := range in {
		out[i] = domain.Address(s)
	}
	return out
}

func addressStrings(in []domain.Address) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = string(a)
	}
	return out
}
