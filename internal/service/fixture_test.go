package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentfun-backend/internal/chain/simulated"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository/memory"
	"rentfun-backend/internal/service"
)

var (
	admin    = domain.MustAddress("0xad00000000000000000000000000000000000001")
	treasury = domain.MustAddress("0xdef0000000000000000000000000000000000002")
	market   = domain.MustAddress("0x3a4e000000000000000000000000000000000003")
	lender   = domain.MustAddress("0x1e4d000000000000000000000000000000000004")
	renter   = domain.MustAddress("0x4e47000000000000000000000000000000000005")
	alice    = domain.MustAddress("0xa11ce00000000000000000000000000000000006")
	stranger = domain.MustAddress("0x5742a9e000000000000000000000000000000007")
	club     = domain.MustAddress("0xc1ab000000000000000000000000000000000008")

	nftAddr   = domain.MustAddress("0xc011ec7100000000000000000000000000000010")
	tokenAddr = domain.MustAddress("0x7e4e700000000000000000000000000000000011")
	birdAddr  = domain.MustAddress("0xb1bd000000000000000000000000000000000012")
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockGate is a testify mock of the membership gate.
type MockGate struct {
	mock.Mock
}

func (m *MockGate) IsMember(ctx context.Context, addr domain.Address) (bool, error) {
	args := m.Called(ctx, addr)
	return args.Bool(0), args.Error(1)
}

type fixture struct {
	ctx      context.Context
	clock    *fakeClock
	sim      *simulated.Chain
	nft      *simulated.Collection
	token    *simulated.Token
	birds    *simulated.Collection
	store    *memory.Store
	ledger   *service.Ledger
	vaults   service.VaultService
	partners service.PartnerService
	market   service.MarketplaceService
}

type fixtureOption func(*service.Params)

func withMemberTreasury(addr domain.Address) fixtureOption {
	return func(p *service.Params) { p.MemberTreasury = addr }
}

func newFixture(t *testing.T, gate service.MembershipGate, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		clock: &fakeClock{now: start},
		sim:   simulated.New(),
		store: memory.NewStore(),
	}

	var err error
	f.nft, err = f.sim.DeployCollection(nftAddr, "NFToken")
	require.NoError(t, err)
	f.token, err = f.sim.DeployToken(tokenAddr, "TKN")
	require.NoError(t, err)
	f.birds, err = f.sim.DeployCollection(birdAddr, "WonderBird")
	require.NoError(t, err)

	for id := domain.TokenID(1); id <= 3; id++ {
		require.NoError(t, f.nft.Mint(lender, id))
	}
	f.nft.SetApprovalForAll(lender, market, true)
	f.sim.Native().Mint(renter, decimal.NewFromInt(100))
	f.token.Mint(renter, decimal.NewFromInt(100))

	params := service.Params{
		Admin:               admin,
		Treasury:            treasury,
		Operator:            market,
		CommissionBps:       1000,
		MemberCommissionBps: 800,
		BaseUnit:            time.Hour,
	}
	for _, opt := range opts {
		opt(&params)
	}
	f.ledger, err = service.NewLedger(f.store, f.sim, gate, params)
	require.NoError(t, err)
	f.ledger.SetClock(f.clock.Now)

	f.vaults = service.NewVaultService(f.ledger)
	f.partners = service.NewPartnerService(f.ledger)
	f.market = service.NewMarketplaceService(f.ledger)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got.String())
}

func (f *fixture) balance(t *testing.T, token domain.Address, holder domain.Address) decimal.Decimal {
	t.Helper()
	tok, err := f.sim.Token(token)
	require.NoError(t, err)
	b, err := tok.BalanceOf(f.ctx, holder)
	require.NoError(t, err)
	return b
}

func (f *fixture) ownerOf(t *testing.T, id domain.TokenID) domain.Address {
	t.Helper()
	owner, err := f.nft.OwnerOf(f.ctx, id)
	require.NoError(t, err)
	return owner
}

func (f *fixture) lendNative(t *testing.T, id domain.TokenID, unitFee string) domain.LendRecord {
	t.Helper()
	records, err := f.market.Lend(f.ctx, lender, []service.LendRequest{{
		Collection: nftAddr,
		TokenID:    id,
		Payment:    domain.ZeroAddress,
		UnitFee:    dec(unitFee),
	}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	return records[0]
}

func (f *fixture) rentNative(t *testing.T, id domain.TokenID, units int64, attached string) domain.RentOrder {
	t.Helper()
	orders, err := f.market.Rent(f.ctx, renter, []service.RentRequest{{
		Collection: nftAddr,
		TokenID:    id,
		Payment:    domain.ZeroAddress,
		Unit:       domain.TimeUnitBase,
		Quantity:   units,
	}}, dec(attached))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	return orders[0]
}
