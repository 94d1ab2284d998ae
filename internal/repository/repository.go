package repository

import (
	"context"
	"time"

	"rentfun-backend/internal/domain"
)

type VaultRepository interface {
	CreateVault(ctx context.Context, vault *domain.Vault) error
	GetVault(ctx context.Context, id int64) (*domain.Vault, error)
	// ListVaultsByOwner returns vaults in creation order.
	ListVaultsByOwner(ctx context.Context, owner domain.Address) ([]domain.Vault, error)
}

type PartnerRepository interface {
	// UpsertPartner replaces any previous configuration of the collection.
	UpsertPartner(ctx context.Context, partner *domain.PartnerConfig) error
	GetPartner(ctx context.Context, collection domain.Address) (*domain.PartnerConfig, error)
}

type LendRepository interface {
	CreateLend(ctx context.Context, lend *domain.LendRecord) error
	UpdateLend(ctx context.Context, lend *domain.LendRecord) error
	GetLend(ctx context.Context, id int64) (*domain.LendRecord, error)
	GetLendByToken(ctx context.Context, key domain.TokenKey) (*domain.LendRecord, error)
}

type RentOrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.RentOrder) error
	GetOrder(ctx context.Context, id int64) (*domain.RentOrder, error)
	LatestOrderForToken(ctx context.Context, key domain.TokenKey) (*domain.RentOrder, error)
	// ListUnclaimedByLender returns the lender's pending revenue in id order.
	ListUnclaimedByLender(ctx context.Context, lender domain.Address) ([]domain.RentOrder, error)
	ListByRenter(ctx context.Context, renter, collection domain.Address) ([]domain.RentOrder, error)
	ListLendersWithUnclaimed(ctx context.Context) ([]domain.Address, error)
	MarkClaimed(ctx context.Context, ids []int64, at time.Time) error
	CountOrders(ctx context.Context) (int64, error)
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories interface {
	VaultRepository
	PartnerRepository
	LendRepository
	RentOrderRepository
}

// Store is the ledger's persistence boundary. Reads through the embedded
// Repositories see committed state only; WithinTx applies fn atomically and
// discards every write if fn returns an error.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
