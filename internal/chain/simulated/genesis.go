package simulated

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/domain"
)

// Genesis is the state a fresh chain starts from.
type Genesis struct {
	NFTs     []GenesisNFT
	Balances []GenesisBalance
}

// GenesisNFT mints TokenIDs to Owner. A non-zero Operator is approved for
// all of Owner's tokens in the collection.
type GenesisNFT struct {
	Collection domain.Address
	Owner      domain.Address
	TokenIDs   []domain.TokenID
	Operator   domain.Address
}

// GenesisBalance credits Holder. A zero Token is the native currency; a
// non-zero Spender is granted Allowance.
type GenesisBalance struct {
	Token     domain.Address
	Holder    domain.Address
	Amount    decimal.Decimal
	Spender   domain.Address
	Allowance decimal.Decimal
}

// Apply mints and funds everything in g. Contracts must already be deployed.
func (c *Chain) Apply(ctx context.Context, g Genesis) error {
	for _, nft := range g.NFTs {
		col, err := c.CollectionAt(nft.Collection)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		for _, id := range nft.TokenIDs {
			if err := col.Mint(nft.Owner, id); err != nil {
				return fmt.Errorf("genesis: mint %s #%d: %w", nft.Collection, id, err)
			}
		}
		if !nft.Operator.IsZero() {
			col.SetApprovalForAll(nft.Owner, nft.Operator, true)
		}
	}

	for _, b := range g.Balances {
		token := c.native
		if !b.Token.IsZero() {
			c.mu.RLock()
			tok, ok := c.tokens[b.Token]
			c.mu.RUnlock()
			if !ok {
				return fmt.Errorf("genesis: token %s is not deployed", b.Token)
			}
			token = tok
		}
		if b.Amount.IsNegative() {
			return fmt.Errorf("genesis: negative balance for %s", b.Holder)
		}
		token.Mint(b.Holder, b.Amount)
		if !b.Spender.IsZero() {
			if err := token.Approve(ctx, b.Holder, b.Spender, b.Allowance); err != nil {
				return fmt.Errorf("genesis: %w", err)
			}
		}
	}
	return nil
}
