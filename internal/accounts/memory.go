package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

type memoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]Account
	now      func() time.Time
}

// NewMemoryStore creates a concurrency-safe in-memory account store useful for
// development and unit tests.
func NewMemoryStore() Store {
	return &memoryStore{
		accounts: make(map[int64]Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) Create(_ context.Context, account Account) error {
	if account.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return ErrDuplicateAccount
	}
	account.UpdatedAt = s.now()
	s.accounts[account.ID] = account
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, id int64) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *memoryStore) GetByCurrency(_ context.Context, cur currency.Currency) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found Account
		count int
	)
	for _, a := range s.accounts {
		if a.Currency == cur {
			found = a
			count++
		}
	}
	switch count {
	case 0:
		return Account{}, ErrNotFound
	case 1:
		return found, nil
	default:
		return Account{}, ErrAmbiguousCurrency
	}
}

func (s *memoryStore) SetBalance(_ context.Context, id int64, balance decimal.Decimal) (Account, error) {
	if balance.IsNegative() {
		return Account{}, ErrNegativeBalance
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	a.Balance = balance
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return a, nil
}

func (s *memoryStore) ApplyDelta(_ context.Context, id int64, delta decimal.Decimal) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return Account{}, ErrInsufficientFunds
	}
	a.Balance = next
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return a, nil
}
