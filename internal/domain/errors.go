package domain

import "errors"

// Ledger error taxonomy. Collaborator messages are wrapped, never replaced,
// so callers see e.g. "caller is not token owner or approved: ERC721: ...".
var (
	ErrOwnership          = errors.New("caller is not token owner or approved")
	ErrUnsupportedPayment = errors.New("payment contract is not supported")
	ErrNotRentable        = errors.New("token is not rentable")
	ErrStillRented        = errors.New("token is rented")
	ErrPaymentMismatch    = errors.New("payment does not match rental fee")
	ErrAlreadyClaimed     = errors.New("rent order already claimed")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidArgument    = errors.New("invalid argument")
)
