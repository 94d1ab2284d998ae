package utils

import (
	"fmt"
	"time"

	"rentfun-backend/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day

	// amountPrecision is the number of decimal places kept by every split,
	// matching the 18 decimals of native currency.
	amountPrecision = 18
)

// FeeSchedule is the price list of one listing.
type FeeSchedule struct {
	UnitFee         decimal.Decimal
	DayDiscountBps  int64
	WeekDiscountBps int64
}

// FeeQuote is the result of pricing one rental request.
type FeeQuote struct {
	BaseUnits   int64
	Duration    time.Duration
	Gross       decimal.Decimal
	DiscountBps int64
	Fee         decimal.Decimal
}

// Split is the three-way apportionment of a lender's gross revenue.
// Partner + Treasury + Lender always equals the gross amount.
type Split struct {
	Commission decimal.Decimal
	Partner    decimal.Decimal
	Treasury   decimal.Decimal
	Lender     decimal.Decimal
}

// UnitLength returns the wall-clock length of one unit.
func UnitLength(unit domain.TimeUnit, baseUnit time.Duration) (time.Duration, error) {
	switch unit {
	case domain.TimeUnitBase:
		return baseUnit, nil
	case domain.TimeUnitDay:
		return Day, nil
	case domain.TimeUnitWeek:
		return Week, nil
	}
	return 0, fmt.Errorf("%w: unknown time unit %q", domain.ErrInvalidArgument, unit)
}

// ValidateBps checks a basis-point fraction lies in [0, 10000].
func ValidateBps(name string, bps int64) error {
	if bps < 0 || bps > domain.MaxBps {
		return fmt.Errorf("%w: %s must be between 0 and %d, got %d", domain.ErrInvalidArgument, name, domain.MaxBps, bps)
	}
	return nil
}

// CalculateRentalFee prices quantity units of the given length.
// The unit fee is charged per base unit; a started base unit is charged in
// full. The week discount applies once the rental lasts at least a week,
// otherwise the day discount once it lasts at least a day.
func CalculateRentalFee(schedule FeeSchedule, unit domain.TimeUnit, quantity int64, baseUnit time.Duration) (FeeQuote, error) {
	if baseUnit <= 0 {
		return FeeQuote{}, fmt.Errorf("%w: base unit must be positive", domain.ErrInvalidArgument)
	}
	if quantity <= 0 {
		return FeeQuote{}, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidArgument, quantity)
	}
	if !schedule.UnitFee.IsPositive() {
		return FeeQuote{}, fmt.Errorf("%w: unit fee must be positive", domain.ErrInvalidArgument)
	}
	if err := ValidateBps("day discount", schedule.DayDiscountBps); err != nil {
		return FeeQuote{}, err
	}
	if err := ValidateBps("week discount", schedule.WeekDiscountBps); err != nil {
		return FeeQuote{}, err
	}

	length, err := UnitLength(unit, baseUnit)
	if err != nil {
		return FeeQuote{}, err
	}
	if quantity > int64(1<<62)/int64(length) {
		return FeeQuote{}, fmt.Errorf("%w: rental duration overflows", domain.ErrInvalidArgument)
	}
	duration := time.Duration(quantity) * length

	baseUnits := int64(duration / baseUnit)
	if duration%baseUnit != 0 {
		baseUnits++
	}

	var discount int64
	switch {
	case duration >= Week:
		discount = schedule.WeekDiscountBps
	case duration >= Day:
		discount = schedule.DayDiscountBps
	}

	gross := schedule.UnitFee.Mul(decimal.NewFromInt(baseUnits))
	fee := gross.Mul(decimal.New(domain.MaxBps-discount, -4))

	return FeeQuote{
		BaseUnits:   baseUnits,
		Duration:    duration,
		Gross:       gross,
		DiscountBps: discount,
		Fee:         fee,
	}, nil
}

// SplitRevenue carves the platform commission out of gross and divides it
// between the partner and the treasury. Amounts are truncated at 18 decimal
// places; the remainders fall to the treasury and lender legs.
func SplitRevenue(gross decimal.Decimal, commissionBps, partnerShareBps int64) (Split, error) {
	if gross.IsNegative() {
		return Split{}, fmt.Errorf("%w: gross amount is negative", domain.ErrInvalidArgument)
	}
	if err := ValidateBps("commission", commissionBps); err != nil {
		return Split{}, err
	}
	if err := ValidateBps("partner share", partnerShareBps); err != nil {
		return Split{}, err
	}

	commission := gross.Mul(decimal.New(commissionBps, -4)).Truncate(amountPrecision)
	partner := commission.Mul(decimal.New(partnerShareBps, -4)).Truncate(amountPrecision)

	return Split{
		Commission: commission,
		Partner:    partner,
		Treasury:   commission.Sub(partner),
		Lender:     gross.Sub(commission),
	}, nil
}
