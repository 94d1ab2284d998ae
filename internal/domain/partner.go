package domain

import "time"

// MaxBps is the basis-point denominator used for every fraction in the ledger.
const MaxBps = 10000

// PartnerConfig is the per-collection revenue configuration. An empty
// AcceptedPayments list means native currency only.
type PartnerConfig struct {
	Collection         Address   `json:"collection"`
	FeeReceiver        Address   `json:"fee_receiver"`
	CommissionShareBps int64     `json:"commission_share_bps"`
	AcceptedPayments   []Address `json:"accepted_payments"`
	UpdatedOn          time.Time `json:"updated_on"`
}

// Accepts reports whether token may be used to pay for rentals of the
// collection. A nil config behaves like an unconfigured collection.
func (p *PartnerConfig) Accepts(token Address) bool {
	if p == nil || len(p.AcceptedPayments) == 0 {
		return token.IsZero()
	}
	for _, accepted := range p.AcceptedPayments {
		if accepted == token || accepted.IsZero() && token.IsZero() {
			return true
		}
	}
	return false
}
