// Package membership implements the loyalty NFT: the claim-time gate that
// checks whether a lender holds one, and the whitelist minter that issues it.
package membership

import (
	"context"
	"fmt"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
)

// Gate answers "does address X hold at least one membership token".
type Gate struct {
	collection chain.NFT
}

// NewGate returns a gate over collection. A nil collection disables
// membership: nobody is a member.
func NewGate(collection chain.NFT) *Gate {
	return &Gate{collection: collection}
}

func (g *Gate) IsMember(ctx context.Context, addr domain.Address) (bool, error) {
	if g == nil || g.collection == nil {
		return false, nil
	}
	balance, err := g.collection.BalanceOf(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("membership balance of %s: %w", addr, err)
	}
	return balance >= 1, nil
}
