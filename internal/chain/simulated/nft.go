package simulated

import (
	"context"
	"fmt"
	"sync"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
)

// Collection is an ERC-721 contract.
type Collection struct {
	addr domain.Address
	name string

	mu        sync.RWMutex
	owners    map[domain.TokenID]domain.Address
	approvals map[domain.TokenID]domain.Address
	operators map[domain.Address]map[domain.Address]bool
	balances  map[domain.Address]int64
}

func newCollection(addr domain.Address, name string) *Collection {
	return &Collection{
		addr:      addr,
		name:      name,
		owners:    make(map[domain.TokenID]domain.Address),
		approvals: make(map[domain.TokenID]domain.Address),
		operators: make(map[domain.Address]map[domain.Address]bool),
		balances:  make(map[domain.Address]int64),
	}
}

func (c *Collection) Address() domain.Address { return c.addr }

func (c *Collection) Name() string { return c.name }

func (c *Collection) Mint(to domain.Address, tokenID domain.TokenID) error {
	if to.IsZero() {
		return fmt.Errorf("ERC721: mint to the zero address")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.owners[tokenID]; exists {
		return fmt.Errorf("ERC721: token already minted")
	}
	c.owners[tokenID] = to
	c.balances[to]++
	return nil
}

// Approve lets to transfer tokenID. caller must own the token or be an
// approved operator of its owner.
func (c *Collection) Approve(_ context.Context, caller, to domain.Address, tokenID domain.TokenID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[tokenID]
	if !ok {
		return chain.ErrInvalidTokenID
	}
	if caller != owner && !c.operators[owner][caller] {
		return fmt.Errorf("ERC721: approve caller is not token owner or approved for all")
	}
	c.approvals[tokenID] = to
	return nil
}

func (c *Collection) SetApprovalForAll(owner, operator domain.Address, approved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.operators[owner] == nil {
		c.operators[owner] = make(map[domain.Address]bool)
	}
	c.operators[owner][operator] = approved
}

func (c *Collection) OwnerOf(_ context.Context, tokenID domain.TokenID) (domain.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.owners[tokenID]
	if !ok {
		return "", chain.ErrInvalidTokenID
	}
	return owner, nil
}

func (c *Collection) GetApproved(_ context.Context, tokenID domain.TokenID) (domain.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.owners[tokenID]; !ok {
		return "", chain.ErrInvalidTokenID
	}
	return c.approvals[tokenID], nil
}

func (c *Collection) IsApprovedForAll(_ context.Context, owner, operator domain.Address) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.operators[owner][operator], nil
}

func (c *Collection) BalanceOf(_ context.Context, owner domain.Address) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balances[owner], nil
}

func (c *Collection) TransferFrom(_ context.Context, operator, from, to domain.Address, tokenID domain.TokenID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[tokenID]
	if !ok {
		return chain.ErrInvalidTokenID
	}
	if operator != owner && c.approvals[tokenID] != operator && !c.operators[owner][operator] {
		return chain.ErrNotOwnerOrApproved
	}
	if owner != from {
		return chain.ErrTransferFromIncorrect
	}
	if to.IsZero() {
		return fmt.Errorf("ERC721: transfer to the zero address")
	}
	delete(c.approvals, tokenID)
	c.balances[from]--
	c.balances[to]++
	c.owners[tokenID] = to
	return nil
}
