// Package simulated is an in-process chain: ERC-721 collections, ERC-20
// tokens and native balances held in memory. The dev server and the tests
// run the marketplace against it.
package simulated

import (
	"fmt"
	"sync"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
)

type Chain struct {
	mu          sync.RWMutex
	collections map[domain.Address]*Collection
	tokens      map[domain.Address]*Token
	native      *Token
}

func New() *Chain {
	return &Chain{
		collections: make(map[domain.Address]*Collection),
		tokens:      make(map[domain.Address]*Token),
		native:      newToken(domain.ZeroAddress, "ETH"),
	}
}

// DeployCollection registers an ERC-721 collection at addr.
func (c *Chain) DeployCollection(addr domain.Address, name string) (*Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.collections[addr]; exists {
		return nil, fmt.Errorf("collection already deployed at %s", addr)
	}
	col := newCollection(addr, name)
	c.collections[addr] = col
	return col, nil
}

// DeployToken registers an ERC-20 token at addr.
func (c *Chain) DeployToken(addr domain.Address, symbol string) (*Token, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("zero address is reserved for native currency")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tokens[addr]; exists {
		return nil, fmt.Errorf("token already deployed at %s", addr)
	}
	tok := newToken(addr, symbol)
	c.tokens[addr] = tok
	return tok, nil
}

func (c *Chain) Native() *Token {
	return c.native
}

func (c *Chain) Collection(addr domain.Address) (chain.NFT, error) {
	col, err := c.CollectionAt(addr)
	if err != nil {
		return nil, err
	}
	return col, nil
}

// CollectionAt returns the concrete collection so callers can mint.
func (c *Chain) CollectionAt(addr domain.Address) (*Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.collections[addr]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", chain.ErrUnknownContract, addr)
	}
	return col, nil
}

func (c *Chain) Token(addr domain.Address) (chain.FungibleToken, error) {
	if addr.IsZero() {
		return c.native, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", chain.ErrUnknownContract, addr)
	}
	return tok, nil
}
