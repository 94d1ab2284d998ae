package utils

import (
	"testing"
	"time"

	"rentfun-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateRentalFee(t *testing.T) {
	schedule := FeeSchedule{UnitFee: dec("1"), DayDiscountBps: 1000, WeekDiscountBps: 2000}

	t.Run("Fee is unit fee times quantity below thresholds", func(t *testing.T) {
		quote, err := CalculateRentalFee(schedule, domain.TimeUnitBase, 3, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(3), quote.BaseUnits)
		assert.Equal(t, 3*time.Hour, quote.Duration)
		assert.Equal(t, int64(0), quote.DiscountBps)
		assert.True(t, quote.Fee.Equal(dec("3")), quote.Fee.String())
	})

	t.Run("Day discount", func(t *testing.T) {
		quote, err := CalculateRentalFee(schedule, domain.TimeUnitDay, 2, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(48), quote.BaseUnits)
		assert.Equal(t, int64(1000), quote.DiscountBps)
		assert.True(t, quote.Gross.Equal(dec("48")))
		assert.True(t, quote.Fee.Equal(dec("43.2")), quote.Fee.String())
	})

	t.Run("Day unit is priced per base unit it spans", func(t *testing.T) {
		quote, err := CalculateRentalFee(schedule, domain.TimeUnitDay, 1, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(24), quote.BaseUnits)
		assert.True(t, quote.Gross.Equal(dec("24")), quote.Gross.String())
	})

	t.Run("Week discount wins over day discount", func(t *testing.T) {
		quote, err := CalculateRentalFee(schedule, domain.TimeUnitDay, 7, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), quote.DiscountBps)
		assert.True(t, quote.Fee.Equal(dec("134.4")), quote.Fee.String())
	})

	t.Run("Base units crossing a day get the day discount", func(t *testing.T) {
		quote, err := CalculateRentalFee(schedule, domain.TimeUnitBase, 24, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), quote.DiscountBps)
		assert.True(t, quote.Fee.Equal(dec("21.6")))
	})

	t.Run("Started base unit is charged in full", func(t *testing.T) {
		quote, err := CalculateRentalFee(schedule, domain.TimeUnitDay, 1, 7*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(4), quote.BaseUnits)
	})

	t.Run("Fractional fee stays exact", func(t *testing.T) {
		quote, err := CalculateRentalFee(FeeSchedule{UnitFee: dec("0.05")}, domain.TimeUnitBase, 3, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "0.15", quote.Fee.String())
	})

	t.Run("Invalid input", func(t *testing.T) {
		_, err := CalculateRentalFee(schedule, domain.TimeUnitBase, 0, time.Hour)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = CalculateRentalFee(FeeSchedule{UnitFee: dec("0")}, domain.TimeUnitBase, 1, time.Hour)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = CalculateRentalFee(FeeSchedule{UnitFee: dec("1"), WeekDiscountBps: 10001}, domain.TimeUnitBase, 1, time.Hour)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = CalculateRentalFee(schedule, domain.TimeUnit("MONTH"), 1, time.Hour)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestSplitRevenue(t *testing.T) {
	t.Run("Platform fixture", func(t *testing.T) {
		split, err := SplitRevenue(dec("3"), 1000, 5000)
		require.NoError(t, err)
		assert.True(t, split.Lender.Equal(dec("2.7")))
		assert.True(t, split.Partner.Equal(dec("0.15")))
		assert.True(t, split.Treasury.Equal(dec("0.15")))
	})

	t.Run("Membership fixture", func(t *testing.T) {
		split, err := SplitRevenue(dec("0.15"), 800, 5000)
		require.NoError(t, err)
		assert.True(t, split.Commission.Equal(dec("0.012")))
		assert.True(t, split.Partner.Equal(dec("0.006")))
		assert.True(t, split.Treasury.Equal(dec("0.006")))
		assert.True(t, split.Lender.Equal(dec("0.138")))
	})

	t.Run("Legs sum to gross for every share", func(t *testing.T) {
		grosses := []decimal.Decimal{dec("0"), dec("1"), dec("0.000000000000000007"), dec("123.456789012345678901"), dec("3")}
		for _, gross := range grosses {
			for share := int64(0); share <= domain.MaxBps; share += 7 {
				split, err := SplitRevenue(gross, 1000, share)
				require.NoError(t, err)
				sum := split.Partner.Add(split.Treasury).Add(split.Lender)
				require.True(t, sum.Equal(gross), "gross %s share %d sum %s", gross, share, sum)
				require.False(t, split.Partner.IsNegative())
				require.False(t, split.Treasury.IsNegative())
			}
			split, err := SplitRevenue(gross, 1000, domain.MaxBps)
			require.NoError(t, err)
			assert.True(t, split.Treasury.IsZero())
		}
	})

	t.Run("Invalid share", func(t *testing.T) {
		_, err := SplitRevenue(dec("1"), 1000, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, err = SplitRevenue(dec("1"), 10001, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
