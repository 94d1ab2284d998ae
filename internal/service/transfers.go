package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
)

// transfers performs the external token moves of one operation. Moves run
// only after bookkeeping; if one fails, the earlier ones are put back in
// reverse order before the store transaction rolls back. Putting a move back
// also restores the approval or allowance the move consumed.
type transfers struct {
	done []func(context.Context) error
}

func (t *transfers) moveNFT(ctx context.Context, nft chain.NFT, operator, from, to domain.Address, tokenID domain.TokenID) error {
	contract := nft.Address().String()
	approved, err := nft.GetApproved(ctx, tokenID)
	if err != nil {
		return err
	}

	logger.ChainCall(contract, "TransferFrom", "from", from, "to", to, "tokenID", tokenID)
	err = nft.TransferFrom(ctx, operator, from, to, tokenID)
	logger.ChainResult(contract, "TransferFrom", err, "from", from, "to", to, "tokenID", tokenID)
	if err != nil {
		return err
	}
	t.done = append(t.done, func(ctx context.Context) error {
		if err := nft.TransferFrom(ctx, to, to, from, tokenID); err != nil {
			return err
		}
		if approved.IsZero() {
			return nil
		}
		return nft.Approve(ctx, from, approved, tokenID)
	})
	return nil
}

func (t *transfers) pay(ctx context.Context, token chain.FungibleToken, from, to domain.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	contract := token.Address().String()
	logger.ChainCall(contract, "Transfer", "from", from, "to", to, "amount", amount)
	err := token.Transfer(ctx, from, to, amount)
	logger.ChainResult(contract, "Transfer", err, "from", from, "to", to, "amount", amount)
	if err != nil {
		return err
	}
	t.done = append(t.done, func(ctx context.Context) error {
		return token.Transfer(ctx, to, from, amount)
	})
	return nil
}

func (t *transfers) pull(ctx context.Context, token chain.FungibleToken, spender, from, to domain.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	contract := token.Address().String()
	allowance, err := token.Allowance(ctx, from, spender)
	if err != nil {
		return err
	}

	logger.ChainCall(contract, "TransferFrom", "from", from, "to", to, "amount", amount)
	err = token.TransferFrom(ctx, spender, from, to, amount)
	logger.ChainResult(contract, "TransferFrom", err, "from", from, "to", to, "amount", amount)
	if err != nil {
		return err
	}
	t.done = append(t.done, func(ctx context.Context) error {
		if err := token.Transfer(ctx, to, from, amount); err != nil {
			return err
		}
		return token.Approve(ctx, from, spender, allowance)
	})
	return nil
}

// revert undoes every completed move and returns cause joined with any
// failure to undo.
func (t *transfers) revert(ctx context.Context, cause error) error {
	errs := []error{cause}
	for i := len(t.done) - 1; i >= 0; i-- {
		if err := t.done[i](ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to revert transfer", "error", err)
			errs = append(errs, err)
		}
	}
	t.done = nil
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}

// custodyError tags ownership and approval reverts as ErrOwnership. Other
// collaborator failures pass through unclassified.
func custodyError(err error) error {
	if errors.Is(err, chain.ErrNotOwnerOrApproved) ||
		errors.Is(err, chain.ErrInvalidTokenID) ||
		errors.Is(err, chain.ErrTransferFromIncorrect) {
		return fmt.Errorf("%w: %w", domain.ErrOwnership, err)
	}
	return fmt.Errorf("nft transfer failed: %w", err)
}

// paymentError tags allowance and balance reverts as ErrPaymentMismatch.
func paymentError(err error) error {
	if errors.Is(err, chain.ErrInsufficientAllowance) || errors.Is(err, chain.ErrInsufficientBalance) {
		return fmt.Errorf("%w: %w", domain.ErrPaymentMismatch, err)
	}
	return fmt.Errorf("payment transfer failed: %w", err)
}
