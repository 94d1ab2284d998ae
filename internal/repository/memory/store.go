// Package memory is a process-local ledger store. Transactions work on a
// copy of the state that replaces the committed state only when the
// transaction function succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"
)

type Store struct {
	mu sync.RWMutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	if err := fn(working); err != nil {
		return err
	}
	s.st = working
	return nil
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) CreateVault(ctx context.Context, v *domain.Vault) error {
	return s.write(func(st *state) error { return st.CreateVault(ctx, v) })
}

func (s *Store) GetVault(ctx context.Context, id int64) (v *domain.Vault, err error) {
	err = s.read(func(st *state) error { v, err = st.GetVault(ctx, id); return err })
	return v, err
}

func (s *Store) ListVaultsByOwner(ctx context.Context, owner domain.Address) (vs []domain.Vault, err error) {
	err = s.read(func(st *state) error { vs, err = st.ListVaultsByOwner(ctx, owner); return err })
	return vs, err
}

func (s *Store) UpsertPartner(ctx context.Context, p *domain.PartnerConfig) error {
	return s.write(func(st *state) error { return st.UpsertPartner(ctx, p) })
}

func (s *Store) GetPartner(ctx context.Context, collection domain.Address) (p *domain.PartnerConfig, err error) {
	err = s.read(func(st *state) error { p, err = st.GetPartner(ctx, collection); return err })
	return p, err
}

func (s *Store) CreateLend(ctx context.Context, l *domain.LendRecord) error {
	return s.write(func(st *state) error { return st.CreateLend(ctx, l) })
}

func (s *Store) UpdateLend(ctx context.Context, l *domain.LendRecord) error {
	return s.write(func(st *state) error { return st.UpdateLend(ctx, l) })
}

func (s *Store) GetLend(ctx context.Context, id int64) (l *domain.LendRecord, err error) {
	err = s.read(func(st *state) error { l, err = st.GetLend(ctx, id); return err })
	return l, err
}

func (s *Store) GetLendByToken(ctx context.Context, key domain.TokenKey) (l *domain.LendRecord, err error) {
	err = s.read(func(st *state) error { l, err = st.GetLendByToken(ctx, key); return err })
	return l, err
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.RentOrder) error {
	return s.write(func(st *state) error { return st.CreateOrder(ctx, o) })
}

func (s *Store) GetOrder(ctx context.Context, id int64) (o *domain.RentOrder, err error) {
	err = s.read(func(st *state) error { o, err = st.GetOrder(ctx, id); return err })
	return o, err
}

func (s *Store) LatestOrderForToken(ctx context.Context, key domain.TokenKey) (o *domain.RentOrder, err error) {
	err = s.read(func(st *state) error { o, err = st.LatestOrderForToken(ctx, key); return err })
	return o, err
}

func (s *Store) ListUnclaimedByLender(ctx context.Context, lender domain.Address) (os []domain.RentOrder, err error) {
	err = s.read(func(st *state) error { os, err = st.ListUnclaimedByLender(ctx, lender); return err })
	return os, err
}

func (s *Store) ListByRenter(ctx context.Context, renter, collection domain.Address) (os []domain.RentOrder, err error) {
	err = s.read(func(st *state) error { os, err = st.ListByRenter(ctx, renter, collection); return err })
	return os, err
}

func (s *Store) ListLendersWithUnclaimed(ctx context.Context) (as []domain.Address, err error) {
	err = s.read(func(st *state) error { as, err = st.ListLendersWithUnclaimed(ctx); return err })
	return as, err
}

func (s *Store) MarkClaimed(ctx context.Context, ids []int64, at time.Time) error {
	return s.write(func(st *state) error { return st.MarkClaimed(ctx, ids, at) })
}

func (s *Store) CountOrders(ctx context.Context) (n int64, err error) {
	err = s.read(func(st *state) error { n, err = st.CountOrders(ctx); return err })
	return n, err
}
