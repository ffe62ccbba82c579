package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

// ReciprocalPlaces is the precision used when deriving the inverse rate.
const ReciprocalPlaces = 5

var (
	// ErrNotFound is returned when no rate is stored for a currency pair.
	ErrNotFound = errors.New("rate not found")

	// ErrInvalidRate rejects non-positive rates, rates whose reciprocal rounds
	// to zero, and unsupported or identical currencies.
	ErrInvalidRate = errors.New("invalid rate")
)

// Matrix mirrors every stored pair as base -> counter -> rate.
type Matrix map[currency.Currency]map[currency.Currency]decimal.Decimal

// Table stores bidirectional exchange rates. Setting one direction always
// sets the other one to its rounded reciprocal.
type Table interface {
	Get(ctx context.Context, base, counter currency.Currency) (decimal.Decimal, error)
	Set(ctx context.Context, base, counter currency.Currency, rate decimal.Decimal) error
	List(ctx context.Context) (Matrix, error)
}

// Reciprocal returns 1/rate rounded to ReciprocalPlaces.
func Reciprocal(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).DivRound(rate, ReciprocalPlaces)
}

func validate(set currency.Set, base, counter currency.Currency, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive, got %s", ErrInvalidRate, rate)
	}
	if !set.Contains(base) {
		return fmt.Errorf("%w: unsupported base currency %q", ErrInvalidRate, base)
	}
	if !set.Contains(counter) {
		return fmt.Errorf("%w: unsupported counter currency %q", ErrInvalidRate, counter)
	}
	if base == counter {
		return fmt.Errorf("%w: base and counter currencies are the same", ErrInvalidRate)
	}
	if !Reciprocal(rate).IsPositive() {
		return fmt.Errorf("%w: reciprocal of %s rounds to zero at %d places", ErrInvalidRate, rate, ReciprocalPlaces)
	}
	return nil
}

func (m Matrix) put(base, counter currency.Currency, rate decimal.Decimal) {
	row, ok := m[base]
	if !ok {
		row = make(map[currency.Currency]decimal.Decimal)
		m[base] = row
	}
	row[counter] = rate
}
