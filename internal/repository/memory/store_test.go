package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner      = domain.MustAddress("0x1111111111111111111111111111111111111111")
	renter     = domain.MustAddress("0x2222222222222222222222222222222222222222")
	collection = domain.MustAddress("0x3333333333333333333333333333333333333333")
)

var _ repository.Store = (*Store)(nil)

func TestStore_Vaults(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := &domain.Vault{Owner: owner, Slot: 0}
	second := &domain.Vault{Owner: owner, Slot: 1}
	require.NoError(t, store.CreateVault(ctx, first))
	require.NoError(t, store.CreateVault(ctx, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	vaults, err := store.ListVaultsByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, 0, vaults[0].Slot)
	assert.Equal(t, 1, vaults[1].Slot)

	_, err = store.GetVault(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		store := NewStore()
		err := store.WithinTx(ctx, func(repos repository.Repositories) error {
			return repos.CreateVault(ctx, &domain.Vault{Owner: owner})
		})
		require.NoError(t, err)

		vaults, _ := store.ListVaultsByOwner(ctx, owner)
		assert.Len(t, vaults, 1)
	})

	t.Run("Rollback discards every write", func(t *testing.T) {
		store := NewStore()
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(repos repository.Repositories) error {
			require.NoError(t, repos.CreateVault(ctx, &domain.Vault{Owner: owner}))
			require.NoError(t, repos.CreateOrder(ctx, &domain.RentOrder{Lender: owner, Collection: collection, TokenID: 1}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		vaults, _ := store.ListVaultsByOwner(ctx, owner)
		assert.Empty(t, vaults)
		count, _ := store.CountOrders(ctx)
		assert.Equal(t, int64(0), count)

		// ids are not consumed by a rolled back transaction
		v := &domain.Vault{Owner: owner}
		require.NoError(t, store.CreateVault(ctx, v))
		assert.Equal(t, int64(1), v.ID)
	})
}

func TestStore_Lends(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key := domain.TokenKey{Collection: collection, TokenID: 7}

	lend := &domain.LendRecord{Collection: collection, TokenID: 7, Lender: owner, UnitFee: decimal.NewFromInt(1), Status: domain.LendStatusListed}
	require.NoError(t, store.CreateLend(ctx, lend))
	assert.Error(t, store.CreateLend(ctx, &domain.LendRecord{Collection: collection, TokenID: 7}))

	got, err := store.GetLendByToken(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, lend.ID, got.ID)

	got.Status = domain.LendStatusIdle
	stored, _ := store.GetLend(ctx, lend.ID)
	assert.Equal(t, domain.LendStatusListed, stored.Status, "returned records are copies")

	require.NoError(t, store.UpdateLend(ctx, got))
	stored, _ = store.GetLend(ctx, lend.ID)
	assert.Equal(t, domain.LendStatusIdle, stored.Status)

	assert.ErrorIs(t, store.UpdateLend(ctx, &domain.LendRecord{ID: 99}), domain.ErrNotFound)
}

func TestStore_Orders(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	other := domain.MustAddress("0x4444444444444444444444444444444444444444")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	orders := []*domain.RentOrder{
		{Lender: owner, Renter: renter, Collection: collection, TokenID: 1, StartTime: start, EndTime: start.Add(time.Hour)},
		{Lender: other, Renter: renter, Collection: collection, TokenID: 2, StartTime: start, EndTime: start.Add(time.Hour)},
		{Lender: owner, Renter: renter, Collection: collection, TokenID: 1, StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour)},
	}
	for _, o := range orders {
		require.NoError(t, store.CreateOrder(ctx, o))
	}
	assert.Equal(t, int64(3), orders[2].ID)

	latest, err := store.LatestOrderForToken(ctx, domain.TokenKey{Collection: collection, TokenID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.ID)

	_, err = store.LatestOrderForToken(ctx, domain.TokenKey{Collection: collection, TokenID: 9})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, _ := store.ListUnclaimedByLender(ctx, owner)
	assert.Len(t, pending, 2)

	lenders, _ := store.ListLendersWithUnclaimed(ctx)
	assert.Equal(t, []domain.Address{owner, other}, lenders)

	require.NoError(t, store.MarkClaimed(ctx, []int64{1, 3}, start))
	assert.ErrorIs(t, store.MarkClaimed(ctx, []int64{2, 3}, start), domain.ErrAlreadyClaimed)

	o, _ := store.GetOrder(ctx, 2)
	assert.False(t, o.Claimed, "a failed mark leaves every order untouched")
	o, _ = store.GetOrder(ctx, 3)
	assert.True(t, o.Claimed)
	require.NotNil(t, o.ClaimedOn)

	pending, _ = store.ListUnclaimedByLender(ctx, owner)
	assert.Empty(t, pending)

	rented, _ := store.ListByRenter(ctx, renter, collection)
	assert.Len(t, rented, 3)
}
