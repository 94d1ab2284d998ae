package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TimeUnit string

const (
	TimeUnitBase TimeUnit = "BASE"
	TimeUnitDay  TimeUnit = "DAY"
	TimeUnitWeek TimeUnit = "WEEK"
)

func ParseTimeUnit(s string) (TimeUnit, error) {
	switch TimeUnit(s) {
	case "", TimeUnitBase, "base", "unit":
		return TimeUnitBase, nil
	case TimeUnitDay, "day":
		return TimeUnitDay, nil
	case TimeUnitWeek, "week":
		return TimeUnitWeek, nil
	}
	return "", fmt.Errorf("%w: unknown time unit %q", ErrInvalidArgument, s)
}

// RentOrder is a paid, time-boxed grant of usage rights. Once Claimed it is
// immutable and excluded from payout computation.
type RentOrder struct {
	ID         int64           `json:"id"`
	LendID     int64           `json:"lend_id"`
	Renter     Address         `json:"renter"`
	Lender     Address         `json:"lender"`
	Collection Address         `json:"collection"`
	TokenID    TokenID         `json:"token_id"`
	VaultID    int64           `json:"vault_id"`
	Payment    Address         `json:"payment"`
	Amount     decimal.Decimal `json:"amount"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Claimed    bool            `json:"claimed"`
	ClaimedOn  *time.Time      `json:"claimed_on,omitempty"`
}

// IsLive is the only liveness predicate in the system: a rental is active
// while its end time lies after now. Nothing ever flips an "expired" flag.
func (o *RentOrder) IsLive(now time.Time) bool {
	return o.EndTime.After(now)
}

func (o *RentOrder) Key() TokenKey {
	return TokenKey{Collection: o.Collection, TokenID: o.TokenID}
}

// PayoutLeg is one transfer produced by a claim.
type PayoutLeg struct {
	Role      string          `json:"role"` // "lender", "partner" or "treasury"
	Recipient Address         `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

// ClaimReceipt summarizes the payout of one (payment token, collection)
// group of orders.
type ClaimReceipt struct {
	Lender        Address         `json:"lender"`
	Payment       Address         `json:"payment"`
	Collection    Address         `json:"collection"`
	OrderIDs      []int64         `json:"order_ids"`
	Gross         decimal.Decimal `json:"gross"`
	Commission    decimal.Decimal `json:"commission"`
	CommissionBps int64           `json:"commission_bps"`
	Member        bool            `json:"member"`
	Legs          []PayoutLeg     `json:"legs"`
}
