package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"rentfun-backend/internal/domain"
)

// state is the whole ledger. It is never shared between goroutines without
// the owning Store's lock.
type state struct {
	vaults        map[int64]domain.Vault
	vaultsByOwner map[domain.Address][]int64
	partners      map[domain.Address]domain.PartnerConfig
	lends         map[int64]domain.LendRecord
	lendByToken   map[domain.TokenKey]int64
	orders        []domain.RentOrder // index = id-1
	latestOrder   map[domain.TokenKey]int64
	nextVaultID   int64
	nextLendID    int64
}

func newState() *state {
	return &state{
		vaults:        make(map[int64]domain.Vault),
		vaultsByOwner: make(map[domain.Address][]int64),
		partners:      make(map[domain.Address]domain.PartnerConfig),
		lends:         make(map[int64]domain.LendRecord),
		lendByToken:   make(map[domain.TokenKey]int64),
		latestOrder:   make(map[domain.TokenKey]int64),
		nextVaultID:   1,
		nextLendID:    1,
	}
}

func (s *state) clone() *state {
	c := &state{
		vaults:        maps.Clone(s.vaults),
		vaultsByOwner: make(map[domain.Address][]int64, len(s.vaultsByOwner)),
		partners:      maps.Clone(s.partners),
		lends:         maps.Clone(s.lends),
		lendByToken:   maps.Clone(s.lendByToken),
		orders:        slices.Clone(s.orders),
		latestOrder:   maps.Clone(s.latestOrder),
		nextVaultID:   s.nextVaultID,
		nextLendID:    s.nextLendID,
	}
	for owner, ids := range s.vaultsByOwner {
		c.vaultsByOwner[owner] = slices.Clone(ids)
	}
	return c
}

func (s *state) CreateVault(_ context.Context, v *domain.Vault) error {
	v.ID = s.nextVaultID
	s.nextVaultID++
	s.vaults[v.ID] = *v
	s.vaultsByOwner[v.Owner] = append(s.vaultsByOwner[v.Owner], v.ID)
	return nil
}

func (s *state) GetVault(_ context.Context, id int64) (*domain.Vault, error) {
	v, ok := s.vaults[id]
	if !ok {
		return nil, fmt.Errorf("vault %d: %w", id, domain.ErrNotFound)
	}
	return &v, nil
}

func (s *state) ListVaultsByOwner(_ context.Context, owner domain.Address) ([]domain.Vault, error) {
	ids := s.vaultsByOwner[owner]
	out := make([]domain.Vault, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.vaults[id])
	}
	return out, nil
}

func (s *state) UpsertPartner(_ context.Context, p *domain.PartnerConfig) error {
	cp := *p
	cp.AcceptedPayments = slices.Clone(p.AcceptedPayments)
	s.partners[p.Collection] = cp
	return nil
}

func (s *state) GetPartner(_ context.Context, collection domain.Address) (*domain.PartnerConfig, error) {
	p, ok := s.partners[collection]
	if !ok {
		return nil, fmt.Errorf("partner %s: %w", collection, domain.ErrNotFound)
	}
	p.AcceptedPayments = slices.Clone(p.AcceptedPayments)
	return &p, nil
}

func (s *state) CreateLend(_ context.Context, l *domain.LendRecord) error {
	key := l.Key()
	if _, exists := s.lendByToken[key]; exists {
		return fmt.Errorf("lend for %s already exists", key)
	}
	l.ID = s.nextLendID
	s.nextLendID++
	s.lends[l.ID] = *l
	s.lendByToken[key] = l.ID
	return nil
}

func (s *state) UpdateLend(_ context.Context, l *domain.LendRecord) error {
	if _, ok := s.lends[l.ID]; !ok {
		return fmt.Errorf("lend %d: %w", l.ID, domain.ErrNotFound)
	}
	s.lends[l.ID] = *l
	return nil
}

func (s *state) GetLend(_ context.Context, id int64) (*domain.LendRecord, error) {
	l, ok := s.lends[id]
	if !ok {
		return nil, fmt.Errorf("lend %d: %w", id, domain.ErrNotFound)
	}
	return &l, nil
}

func (s *state) GetLendByToken(ctx context.Context, key domain.TokenKey) (*domain.LendRecord, error) {
	id, ok := s.lendByToken[key]
	if !ok {
		return nil, fmt.Errorf("lend %s: %w", key, domain.ErrNotFound)
	}
	return s.GetLend(ctx, id)
}

func (s *state) CreateOrder(_ context.Context, o *domain.RentOrder) error {
	o.ID = int64(len(s.orders)) + 1
	s.orders = append(s.orders, *o)
	s.latestOrder[o.Key()] = o.ID
	return nil
}

func (s *state) GetOrder(_ context.Context, id int64) (*domain.RentOrder, error) {
	if id < 1 || id > int64(len(s.orders)) {
		return nil, fmt.Errorf("rent order %d: %w", id, domain.ErrNotFound)
	}
	o := s.orders[id-1]
	return &o, nil
}

func (s *state) LatestOrderForToken(ctx context.Context, key domain.TokenKey) (*domain.RentOrder, error) {
	id, ok := s.latestOrder[key]
	if !ok {
		return nil, fmt.Errorf("rent order for %s: %w", key, domain.ErrNotFound)
	}
	return s.GetOrder(ctx, id)
}

func (s *state) ListUnclaimedByLender(_ context.Context, lender domain.Address) ([]domain.RentOrder, error) {
	var out []domain.RentOrder
	for _, o := range s.orders {
		if o.Lender == lender && !o.Claimed {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *state) ListByRenter(_ context.Context, renter, collection domain.Address) ([]domain.RentOrder, error) {
	var out []domain.RentOrder
	for _, o := range s.orders {
		if o.Renter == renter && o.Collection == collection {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *state) ListLendersWithUnclaimed(_ context.Context) ([]domain.Address, error) {
	seen := make(map[domain.Address]bool)
	var out []domain.Address
	for _, o := range s.orders {
		if !o.Claimed && !seen[o.Lender] {
			seen[o.Lender] = true
			out = append(out, o.Lender)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *state) MarkClaimed(_ context.Context, ids []int64, at time.Time) error {
	for _, id := range ids {
		if id < 1 || id > int64(len(s.orders)) {
			return fmt.Errorf("rent order %d: %w", id, domain.ErrNotFound)
		}
		if s.orders[id-1].Claimed {
			return fmt.Errorf("rent order %d: %w", id, domain.ErrAlreadyClaimed)
		}
	}
	for _, id := range ids {
		claimedOn := at
		s.orders[id-1].Claimed = true
		s.orders[id-1].ClaimedOn = &claimedOn
	}
	return nil
}

func (s *state) CountOrders(context.Context) (int64, error) {
	return int64(len(s.orders)), nil
}
