package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TokenID uint64

// TokenKey identifies one NFT across collections.
type TokenKey struct {
	Collection Address `json:"collection"`
	TokenID    TokenID `json:"token_id"`
}

func (k TokenKey) String() string {
	return fmt.Sprintf("%s#%d", k.Collection, k.TokenID)
}

type LendStatus string

const (
	LendStatusIdle   LendStatus = "IDLE"
	LendStatusListed LendStatus = "LISTED"
	// LendStatusRented is derived from the latest rent order and never stored.
	LendStatusRented LendStatus = "RENTED"
)

// LendRecord is a listing of one token. There is at most one record per
// TokenKey; re-lending an idle token reuses it.
type LendRecord struct {
	ID              int64           `json:"id"`
	Collection      Address         `json:"collection"`
	TokenID         TokenID         `json:"token_id"`
	Lender          Address         `json:"lender"`
	VaultID         int64           `json:"vault_id"`
	Payment         Address         `json:"payment"`
	UnitFee         decimal.Decimal `json:"unit_fee"`
	DayDiscountBps  int64           `json:"day_discount_bps"`
	WeekDiscountBps int64           `json:"week_discount_bps"`
	MaxEndTime      *time.Time      `json:"max_end_time,omitempty"`
	Status          LendStatus      `json:"status"`
	LastOrderID     int64           `json:"last_order_id"`
	CreatedOn       time.Time       `json:"created_on"`
	UpdatedOn       time.Time       `json:"updated_on"`
}

func (l *LendRecord) Key() TokenKey {
	return TokenKey{Collection: l.Collection, TokenID: l.TokenID}
}

// EffectiveStatus folds rental liveness into the stored status.
func (l *LendRecord) EffectiveStatus(latest *RentOrder, now time.Time) LendStatus {
	if latest != nil && latest.IsLive(now) {
		return LendStatusRented
	}
	return l.Status
}

// TokenDetails is the read model returned for a listing.
type TokenDetails struct {
	Lend       LendRecord `json:"lend"`
	RentStatus LendStatus `json:"rent_status"`
	Vault      Vault      `json:"vault"`
}
