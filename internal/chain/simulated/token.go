package simulated

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"rentfun-backend/internal/chain"
	"rentfun-backend/internal/domain"
)

// Token is an ERC-20 contract, or the native currency when its address is
// the zero address.
type Token struct {
	addr   domain.Address
	symbol string

	mu         sync.RWMutex
	balances   map[domain.Address]decimal.Decimal
	allowances map[domain.Address]map[domain.Address]decimal.Decimal
}

func newToken(addr domain.Address, symbol string) *Token {
	return &Token{
		addr:       addr,
		symbol:     symbol,
		balances:   make(map[domain.Address]decimal.Decimal),
		allowances: make(map[domain.Address]map[domain.Address]decimal.Decimal),
	}
}

func (t *Token) Address() domain.Address { return t.addr }

func (t *Token) Symbol() string { return t.symbol }

func (t *Token) Mint(to domain.Address, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = t.balances[to].Add(amount)
}

func (t *Token) Approve(_ context.Context, owner, spender domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative allowance", domain.ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[domain.Address]decimal.Decimal)
	}
	t.allowances[owner][spender] = amount
	return nil
}

func (t *Token) BalanceOf(_ context.Context, holder domain.Address) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[holder], nil
}

func (t *Token) Allowance(_ context.Context, owner, spender domain.Address) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[owner][spender], nil
}

func (t *Token) Transfer(_ context.Context, from, to domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative amount", domain.ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

func (t *Token) TransferFrom(_ context.Context, spender, from, to domain.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative amount", domain.ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	allowance := t.allowances[from][spender]
	if spender != from && allowance.LessThan(amount) {
		return chain.ErrInsufficientAllowance
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	if spender != from && t.allowances[from] != nil {
		t.allowances[from][spender] = allowance.Sub(amount)
	}
	return nil
}

func (t *Token) move(from, to domain.Address, amount decimal.Decimal) error {
	if t.balances[from].LessThan(amount) {
		return chain.ErrInsufficientBalance
	}
	t.balances[from] = t.balances[from].Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}
