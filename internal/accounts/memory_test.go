package accounts

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvault/arvault/internal/currency"
)

func seeded(t *testing.T) Store {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, Account{ID: 2, Currency: currency.USD, Balance: decimal.NewFromInt(1000)}))
	require.NoError(t, s.Create(ctx, Account{ID: 1, Currency: currency.ARS, Balance: decimal.NewFromInt(2_000_000)}))
	return s
}

func TestMemoryStoreLookups(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)

	usd, err := s.GetByCurrency(ctx, currency.USD)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usd.ID)

	_, err = s.GetByCurrency(ctx, currency.EUR)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Create(ctx, Account{ID: 2, Currency: currency.EUR}), ErrDuplicateAccount)
}

func TestMemoryStoreAmbiguousCurrency(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, Account{ID: 3, Currency: currency.USD}))

	_, err := s.GetByCurrency(ctx, currency.USD)
	assert.ErrorIs(t, err, ErrAmbiguousCurrency)
}

func TestMemoryStoreSetBalance(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	a, err := s.SetBalance(ctx, 2, decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.RequireFromString("12.5")))

	_, err = s.SetBalance(ctx, 2, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeBalance)

	_, err = s.SetBalance(ctx, 42, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreApplyDeltaRejectsOverdraft(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.ApplyDelta(ctx, 2, decimal.NewFromInt(-1001))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	a, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestMemoryStoreConcurrentDeltas(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.ApplyDelta(ctx, 2, decimal.NewFromInt(10))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.ApplyDelta(ctx, 1, decimal.NewFromInt(-100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	usd, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, usd.Balance.Equal(decimal.NewFromInt(1500)), "got %s", usd.Balance)

	ars, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ars.Balance.Equal(decimal.NewFromInt(1_995_000)), "got %s", ars.Balance)
}
