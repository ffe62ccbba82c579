package rates

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

type memoryTable struct {
	mu    sync.RWMutex
	set   currency.Set
	rates Matrix
}

// NewMemoryTable creates a concurrency-safe in-memory rate table.
func NewMemoryTable(set currency.Set) Table {
	return &memoryTable{set: set, rates: make(Matrix)}
}

func (t *memoryTable) Get(_ context.Context, base, counter currency.Currency) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rate, ok := t.rates[base][counter]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return rate, nil
}

func (t *memoryTable) Set(_ context.Context, base, counter currency.Currency, rate decimal.Decimal) error {
	if err := validate(t.set, base, counter, rate); err != nil {
		return err
	}
	inverse := Reciprocal(rate)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rates.put(base, counter, rate)
	t.rates.put(counter, base, inverse)
	return nil
}

func (t *memoryTable) List(_ context.Context) (Matrix, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(Matrix, len(t.rates))
	for base, row := range t.rates {
		for counter, rate := range row {
			out.put(base, counter, rate)
		}
	}
	return out, nil
}
