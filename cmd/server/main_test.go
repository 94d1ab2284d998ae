package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentfun-backend/internal/config"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/membership"
	"rentfun-backend/internal/repository/memory"
	"rentfun-backend/internal/service"
)

func loadDevConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "..", "config", "config.dev.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestDeployChain_DevGenesisSupportsRentalCycle(t *testing.T) {
	ctx := context.Background()
	cfg := loadDevConfig(t)

	sim, birds, err := deployChain(cfg)
	require.NoError(t, err)
	require.NotNil(t, birds)

	admin, treasury, operator, memberTreasury := cfg.Marketplace.Addresses()
	ledger, err := service.NewLedger(memory.NewStore(), sim, membership.NewGate(birds), service.Params{
		Admin:               admin,
		Treasury:            treasury,
		Operator:            operator,
		MemberTreasury:      memberTreasury,
		CommissionBps:       cfg.Marketplace.CommissionBps,
		MemberCommissionBps: cfg.Marketplace.MemberCommissionBps,
		BaseUnit:            cfg.Marketplace.BaseUnit(),
	})
	require.NoError(t, err)
	market := service.NewMarketplaceService(ledger)

	nftAddr := domain.MustAddress(cfg.Chain.Genesis.NFTs[0].Collection)
	lender := domain.MustAddress(cfg.Chain.Genesis.NFTs[0].Owner)
	renter := domain.MustAddress(cfg.Chain.Genesis.Balances[0].Holder)

	_, err = market.Lend(ctx, lender, []service.LendRequest{
		{Collection: nftAddr, TokenID: 1, Payment: domain.ZeroAddress, UnitFee: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)

	orders, err := market.Rent(ctx, renter, []service.RentRequest{
		{Collection: nftAddr, TokenID: 1, Payment: domain.ZeroAddress, Unit: domain.TimeUnitBase, Quantity: 3},
	}, decimal.NewFromInt(3))
	require.NoError(t, err)
	require.Len(t, orders, 1)

	receipts, err := market.ClaimRentFee(ctx, lender)
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	native, err := sim.Token(domain.ZeroAddress)
	require.NoError(t, err)
	got, err := native.BalanceOf(ctx, lender)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("2.7")), "lender got %s", got)
}

func TestGenesisFromConfig(t *testing.T) {
	cfg := loadDevConfig(t)
	_, _, operator, _ := cfg.Marketplace.Addresses()

	g, err := genesisFromConfig(cfg)
	require.NoError(t, err)

	require.Len(t, g.NFTs, 1)
	assert.Equal(t, []domain.TokenID{1, 2, 3, 4, 5}, g.NFTs[0].TokenIDs)
	assert.Equal(t, operator, g.NFTs[0].Operator)

	require.Len(t, g.Balances, 2)
	assert.Equal(t, domain.ZeroAddress, g.Balances[0].Token)
	assert.True(t, g.Balances[0].Spender.IsZero())
	assert.Equal(t, operator, g.Balances[1].Spender)
	assert.True(t, g.Balances[1].Allowance.Equal(decimal.NewFromInt(100)))
}

func TestNewMinter_DevWhitelist(t *testing.T) {
	cfg := loadDevConfig(t)
	sim, birds, err := deployChain(cfg)
	require.NoError(t, err)
	require.NotNil(t, sim)

	m, err := newMinter(cfg.Membership, birds)
	require.NoError(t, err)
	require.NotNil(t, m)

	cfg.Membership.MerkleRoot = "0x" + strings.Repeat("11", 32)
	_, err = newMinter(cfg.Membership, birds)
	assert.ErrorContains(t, err, "does not match whitelist root")
}
