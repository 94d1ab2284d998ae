//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentfun-backend/internal/config"
	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/repository"
)

var configPath = flag.String("config", "../../../config/config.test.yaml", "path to config file")

func prepareDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg, err := config.Load(*configPath)
	require.NoError(t, err, "load %s", *configPath)

	var db *sql.DB
	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(t, err, "connect to database")

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	_, err = db.Exec("TRUNCATE rent_orders, lends, partners, vaults RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreIntegration(t *testing.T) {
	store := NewStore(prepareDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	renter := domain.MustAddress("0x4e47000000000000000000000000000000000005")

	t.Run("rollback discards writes", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(repos repository.Repositories) error {
			v := &domain.Vault{Owner: owner, Address: domain.DeriveVaultAddress(collection, owner, 0), CreatedOn: now}
			require.NoError(t, repos.CreateVault(ctx, v))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		vaults, err := store.ListVaultsByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, vaults)
	})

	t.Run("lend rent claim", func(t *testing.T) {
		var orderID int64
		err := store.WithinTx(ctx, func(repos repository.Repositories) error {
			v := &domain.Vault{Owner: owner, Address: domain.DeriveVaultAddress(collection, owner, 0), CreatedOn: now}
			if err := repos.CreateVault(ctx, v); err != nil {
				return err
			}
			lend := &domain.LendRecord{
				Collection: collection, TokenID: 1, Lender: owner, VaultID: v.ID,
				Payment: domain.ZeroAddress, UnitFee: decimal.NewFromInt(1),
				Status: domain.LendStatusListed, CreatedOn: now, UpdatedOn: now,
			}
			if err := repos.CreateLend(ctx, lend); err != nil {
				return err
			}
			order := &domain.RentOrder{
				LendID: lend.ID, Renter: renter, Lender: owner, Collection: collection, TokenID: 1,
				VaultID: v.ID, Payment: domain.ZeroAddress, Amount: decimal.NewFromInt(3),
				StartTime: now, EndTime: now.Add(3 * time.Hour),
			}
			if err := repos.CreateOrder(ctx, order); err != nil {
				return err
			}
			orderID = order.ID
			return nil
		})
		require.NoError(t, err)

		lenders, err := store.ListLendersWithUnclaimed(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Address{owner}, lenders)

		latest, err := store.LatestOrderForToken(ctx, domain.TokenKey{Collection: collection, TokenID: 1})
		require.NoError(t, err)
		assert.Equal(t, orderID, latest.ID)
		assert.True(t, latest.Amount.Equal(decimal.NewFromInt(3)))

		require.NoError(t, store.WithinTx(ctx, func(repos repository.Repositories) error {
			return repos.MarkClaimed(ctx, []int64{orderID}, now)
		}))
		err = store.WithinTx(ctx, func(repos repository.Repositories) error {
			return repos.MarkClaimed(ctx, []int64{orderID}, now)
		})
		assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

		lenders, err = store.ListLendersWithUnclaimed(ctx)
		require.NoError(t, err)
		assert.Empty(t, lenders)
	})
}
