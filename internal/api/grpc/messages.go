package grpc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/service"
)

// Wire messages of the JSON codec. Amounts travel as decimal strings.

type LendRequest struct {
	Items []service.LendRequest `json:"items"`
}

type LendResponse struct {
	Lends []domain.LendRecord `json:"lends"`
}

type RentRequest struct {
	Items []service.RentRequest `json:"items"`
	// Value is the native currency attached to the call.
	Value decimal.Decimal `json:"value"`
}

type OrdersResponse struct {
	Orders []domain.RentOrder `json:"orders"`
}

type TokenRequest struct {
	Collection domain.Address `json:"collection"`
	TokenID    domain.TokenID `json:"token_id"`
}

type IsRentedResponse struct {
	Rented bool `json:"rented"`
}

type ClaimResponse struct {
	Receipts []domain.ClaimReceipt `json:"receipts"`
}

type OrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type LenderRequest struct {
	Lender domain.Address `json:"lender"`
}

type TokenDetailsRequest struct {
	LendID int64 `json:"lend_id"`
}

type TokenDetailsResponse struct {
	Details *domain.TokenDetails `json:"details"`
}

type OrderResponse struct {
	Order *domain.RentOrder `json:"order"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type AliveRentalsRequest struct {
	Renter     domain.Address `json:"renter"`
	Collection domain.Address `json:"collection"`
}

type OwnerRequest struct {
	Owner domain.Address `json:"owner"`
}

type VaultsResponse struct {
	Vaults []domain.Vault `json:"vaults"`
}

type DepositRequest struct {
	VaultID    int64          `json:"vault_id"`
	Collection domain.Address `json:"collection"`
	TokenID    domain.TokenID `json:"token_id"`
}

type ReleaseRequest struct {
	VaultID    int64          `json:"vault_id"`
	Collection domain.Address `json:"collection"`
	TokenID    domain.TokenID `json:"token_id"`
	// To defaults to the vault owner.
	To domain.Address `json:"to,omitempty"`
}

type CollectionRequest struct {
	Collection domain.Address `json:"collection"`
}

type PaymentRequest struct {
	Collection domain.Address `json:"collection"`
	Token      domain.Address `json:"token"`
}

type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type AddressRequest struct {
	Address domain.Address `json:"address"`
}

type MemberResponse struct {
	Member bool `json:"member"`
}

type MintRequest struct {
	// Proof is the hex-encoded merkle path of the caller's leaf.
	Proof []string `json:"proof"`
}

type MintResponse struct {
	TokenID domain.TokenID `json:"token_id"`
}

// address canonicalizes a required address field.
func address(field string, a domain.Address) (domain.Address, error) {
	parsed, err := domain.ParseAddress(a.String())
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return parsed, nil
}

// optionalAddress is address with empty mapped to the zero address.
func optionalAddress(field string, a domain.Address) (domain.Address, error) {
	if a == "" {
		return domain.ZeroAddress, nil
	}
	return address(field, a)
}

func normalizeLend(req service.LendRequest) (service.LendRequest, error) {
	var err error
	if req.Collection, err = address("collection", req.Collection); err != nil {
		return req, err
	}
	if req.Payment, err = optionalAddress("payment", req.Payment); err != nil {
		return req, err
	}
	return req, nil
}

func normalizeRent(req service.RentRequest) (service.RentRequest, error) {
	var err error
	if req.Collection, err = address("collection", req.Collection); err != nil {
		return req, err
	}
	if req.Payment, err = optionalAddress("payment", req.Payment); err != nil {
		return req, err
	}
	if req.Unit, err = domain.ParseTimeUnit(string(req.Unit)); err != nil {
		return req, err
	}
	return req, nil
}

func normalizePartner(p domain.PartnerConfig) (domain.PartnerConfig, error) {
	var err error
	if p.Collection, err = address("collection", p.Collection); err != nil {
		return p, err
	}
	if p.FeeReceiver, err = optionalAddress("fee_receiver", p.FeeReceiver); err != nil {
		return p, err
	}
	payments := make([]domain.Address, 0, len(p.AcceptedPayments))
	for _, token := range p.AcceptedPayments {
		parsed, err := optionalAddress("accepted_payments", token)
		if err != nil {
			return p, err
		}
		payments = append(payments, parsed)
	}
	p.AcceptedPayments = payments
	return p, nil
}
