// Package chain defines the token contracts the marketplace talks to. The
// marketplace never implements a token standard itself; it only calls the
// standard ownership, approval and transfer entry points below.
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/domain"
)

// Collaborator failures. Messages mirror the standard contract reverts and
// are surfaced verbatim by the marketplace.
var (
	ErrInvalidTokenID        = errors.New("ERC721: invalid token ID")
	ErrNotOwnerOrApproved    = errors.New("ERC721: caller is not token owner or approved")
	ErrTransferFromIncorrect = errors.New("ERC721: transfer from incorrect owner")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrUnknownContract       = errors.New("unknown contract")
)

// NFT is the ERC-721 surface the marketplace relies on.
type NFT interface {
	Address() domain.Address
	OwnerOf(ctx context.Context, tokenID domain.TokenID) (domain.Address, error)
	GetApproved(ctx context.Context, tokenID domain.TokenID) (domain.Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator domain.Address) (bool, error)
	BalanceOf(ctx context.Context, owner domain.Address) (int64, error)
	Approve(ctx context.Context, caller, to domain.Address, tokenID domain.TokenID) error
	TransferFrom(ctx context.Context, operator, from, to domain.Address, tokenID domain.TokenID) error
}

// FungibleToken is the ERC-20 surface. The native currency is exposed through
// the same interface; its allowance is meaningless and Transfer is used for
// value attached to a call.
type FungibleToken interface {
	Address() domain.Address
	BalanceOf(ctx context.Context, holder domain.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, owner, spender domain.Address) (decimal.Decimal, error)
	Approve(ctx context.Context, owner, spender domain.Address, amount decimal.Decimal) error
	Transfer(ctx context.Context, from, to domain.Address, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, spender, from, to domain.Address, amount decimal.Decimal) error
}

// Registry resolves contract addresses. Token(domain.ZeroAddress) returns the
// native currency ledger.
type Registry interface {
	Collection(addr domain.Address) (NFT, error)
	Token(addr domain.Address) (FungibleToken, error)
}

// CanTransfer reports whether operator may move tokenID on behalf of its
// current owner.
func CanTransfer(ctx context.Context, nft NFT, owner, operator domain.Address, tokenID domain.TokenID) (bool, error) {
	if owner == operator {
		return true, nil
	}
	approved, err := nft.GetApproved(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if approved == operator {
		return true, nil
	}
	return nft.IsApprovedForAll(ctx, owner, operator)
}
