package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"
	"rentfun-backend/internal/utils"
)

type VaultService interface {
	CreateVault(ctx context.Context, owner domain.Address) (*domain.Vault, error)
	GetVaults(ctx context.Context, owner domain.Address) ([]domain.Vault, error)
	Deposit(ctx context.Context, caller domain.Address, vaultID int64, collection domain.Address, tokenID domain.TokenID) error
	Release(ctx context.Context, caller domain.Address, vaultID int64, collection domain.Address, tokenID domain.TokenID, to domain.Address) error
}

type PartnerService interface {
	SetPartner(ctx context.Context, caller domain.Address, partner domain.PartnerConfig) (*domain.PartnerConfig, error)
	GetPartner(ctx context.Context, collection domain.Address) (*domain.PartnerConfig, error)
	IsPaymentAccepted(ctx context.Context, collection, token domain.Address) (bool, error)
}

type MarketplaceService interface {
	Lend(ctx context.Context, caller domain.Address, requests []LendRequest) ([]domain.LendRecord, error)
	Rent(ctx context.Context, caller domain.Address, bids []RentRequest, attached decimal.Decimal) ([]domain.RentOrder, error)
	CancelLend(ctx context.Context, caller, collection domain.Address, tokenID domain.TokenID) error
	ClaimRentFee(ctx context.Context, lender domain.Address) ([]domain.ClaimReceipt, error)
	ClaimOrder(ctx context.Context, caller domain.Address, orderID int64) ([]domain.ClaimReceipt, error)
	PendingLenders(ctx context.Context) ([]domain.Address, error)

	IsRented(ctx context.Context, collection domain.Address, tokenID domain.TokenID) (bool, error)
	GetRentOrders(ctx context.Context, lender domain.Address) ([]domain.RentOrder, error)
	TokenDetails(ctx context.Context, lendID int64) (*domain.TokenDetails, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.RentOrder, error)
	TotalRentCount(ctx context.Context) (int64, error)
	GetAliveRentals(ctx context.Context, renter, collection domain.Address) ([]domain.RentOrder, error)
}

// MembershipGate reports whether an address holds the membership NFT.
type MembershipGate interface {
	IsMember(ctx context.Context, addr domain.Address) (bool, error)
}

// LendRequest lists one token. A zero VaultID selects the lender's first
// vault, creating it on demand.
type LendRequest struct {
	Collection      domain.Address  `json:"collection"`
	TokenID         domain.TokenID  `json:"token_id"`
	VaultID         int64           `json:"vault_id,omitempty"`
	Payment         domain.Address  `json:"payment"`
	UnitFee         decimal.Decimal `json:"unit_fee"`
	DayDiscountBps  int64           `json:"day_discount_bps"`
	WeekDiscountBps int64           `json:"week_discount_bps"`
	MaxEndTime      *time.Time      `json:"max_end_time,omitempty"`
}

// RentRequest bids for Quantity units of one listed token.
type RentRequest struct {
	Collection domain.Address  `json:"collection"`
	TokenID    domain.TokenID  `json:"token_id"`
	Payment    domain.Address  `json:"payment"`
	Unit       domain.TimeUnit `json:"unit"`
	Quantity   int64           `json:"quantity"`
}

// Params are the platform settings of a ledger.
type Params struct {
	// Admin is the only address allowed to configure partners.
	Admin domain.Address
	// Treasury receives the non-partner share of the commission.
	Treasury domain.Address
	// Operator is the marketplace's own address: the approved NFT operator,
	// the escrow that holds rent until it is claimed, and the manager
	// address vault addresses are derived from.
	Operator domain.Address
	// MemberTreasury, when set, replaces Treasury for lenders holding the
	// membership NFT.
	MemberTreasury      domain.Address
	CommissionBps       int64
	MemberCommissionBps int64
	BaseUnit            time.Duration
}

func (p Params) Validate() error {
	if p.Admin.IsZero() {
		return fmt.Errorf("%w: admin address is required", domain.ErrInvalidArgument)
	}
	if p.Treasury.IsZero() {
		return fmt.Errorf("%w: treasury address is required", domain.ErrInvalidArgument)
	}
	if p.Operator.IsZero() {
		return fmt.Errorf("%w: operator address is required", domain.ErrInvalidArgument)
	}
	if err := utils.ValidateBps("commission", p.CommissionBps); err != nil {
		return err
	}
	if err := utils.ValidateBps("member commission", p.MemberCommissionBps); err != nil {
		return err
	}
	if p.BaseUnit <= 0 {
		return fmt.Errorf("%w: base unit must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

// Ledger is the state shared by the vault, partner and marketplace services.
// Every state-changing operation holds mu and runs inside one store
// transaction, so operations apply one at a time and all-or-nothing.
type Ledger struct {
	mu     sync.Mutex
	store  repository.Store
	chain  chain.Registry
	gate   MembershipGate
	params Params
	now    func() time.Time
}

func NewLedger(store repository.Store, registry chain.Registry, gate MembershipGate, params Params) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		store:  store,
		chain:  registry,
		gate:   gate,
		params: params,
		now:    time.Now,
	}, nil
}

// SetClock replaces the wall clock, for simulations and tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) Params() Params { return l.params }

func (l *Ledger) clock() time.Time {
	return l.now().UTC()
}
