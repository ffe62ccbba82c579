package rates

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvault/arvault/internal/currency"
)

func backends(t *testing.T) map[string]Table {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return map[string]Table{
		"memory": NewMemoryTable(currency.Default),
		"redis":  NewRedisTable(client, currency.Default),
	}
}

func TestTableSetWritesReciprocal(t *testing.T) {
	cases := []struct {
		rate    string
		inverse string
	}{
		{rate: "1000", inverse: "0.001"},
		{rate: "3", inverse: "0.33333"},
		{rate: "0.18", inverse: "5.55556"},
		{rate: "1", inverse: "1"},
	}

	for name, table := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, tc := range cases {
				rate := decimal.RequireFromString(tc.rate)
				require.NoError(t, table.Set(ctx, currency.USD, currency.ARS, rate))

				got, err := table.Get(ctx, currency.USD, currency.ARS)
				require.NoError(t, err)
				assert.True(t, got.Equal(rate), "direct rate: want %s got %s", rate, got)

				inverse, err := table.Get(ctx, currency.ARS, currency.USD)
				require.NoError(t, err)
				assert.True(t, inverse.Equal(decimal.RequireFromString(tc.inverse)), "inverse of %s: got %s", tc.rate, inverse)
			}
		})
	}
}

func TestTableRejectsInvalidRates(t *testing.T) {
	for name, table := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			invalid := []struct {
				base, counter currency.Currency
				rate          decimal.Decimal
			}{
				{currency.USD, currency.ARS, decimal.Zero},
				{currency.USD, currency.ARS, decimal.NewFromInt(-5)},
				{currency.USD, "JPY", decimal.NewFromInt(150)},
				{"GBP", currency.USD, decimal.NewFromInt(1)},
				{currency.USD, currency.USD, decimal.NewFromInt(1)},
				{currency.USD, currency.ARS, decimal.NewFromInt(300000)},
			}
			for _, in := range invalid {
				err := table.Set(ctx, in.base, in.counter, in.rate)
				assert.True(t, errors.Is(err, ErrInvalidRate), "%s/%s %s: %v", in.base, in.counter, in.rate, err)
			}

			matrix, err := table.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, matrix)
		})
	}
}

func TestTableGetMissingPair(t *testing.T) {
	for name, table := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := table.Get(context.Background(), currency.EUR, currency.BRL)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestTableListMirrorsStoredPairs(t *testing.T) {
	for name, table := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, table.Set(ctx, currency.USD, currency.ARS, decimal.NewFromInt(1000)))
			require.NoError(t, table.Set(ctx, currency.EUR, currency.USD, decimal.RequireFromString("1.08")))

			matrix, err := table.List(ctx)
			require.NoError(t, err)
			require.Len(t, matrix, 3)
			assert.True(t, matrix[currency.USD][currency.ARS].Equal(decimal.NewFromInt(1000)))
			assert.True(t, matrix[currency.ARS][currency.USD].Equal(decimal.RequireFromString("0.001")))
			assert.True(t, matrix[currency.EUR][currency.USD].Equal(decimal.RequireFromString("1.08")))
			assert.True(t, matrix[currency.USD][currency.EUR].Equal(decimal.RequireFromString("0.92593")))
		})
	}
}

func TestTableAcceptsLargestRateWithPositiveReciprocal(t *testing.T) {
	for name, table := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, table.Set(ctx, currency.USD, currency.ARS, decimal.NewFromInt(200000)))

			inverse, err := table.Get(ctx, currency.ARS, currency.USD)
			require.NoError(t, err)
			assert.Equal(t, "0.00001", inverse.String())
		})
	}
}
