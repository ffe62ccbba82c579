package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

var (
	// ErrNotFound occurs when no account matches the lookup.
	ErrNotFound = errors.New("account not found")

	// ErrAmbiguousCurrency indicates more than one account holds the same
	// currency, which breaks the one-house-account-per-currency assumption.
	ErrAmbiguousCurrency = errors.New("more than one account for currency")

	// ErrInsufficientFunds rejects a delta that would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNegativeBalance rejects administrative corrections below zero.
	ErrNegativeBalance = errors.New("balance must not be negative")

	// ErrDuplicateAccount is returned when creating an account whose id exists.
	ErrDuplicateAccount = errors.New("account exists")
)

// Account is an internal house account holding funds in one currency.
type Account struct {
	ID        int64             `json:"id"`
	Currency  currency.Currency `json:"currency"`
	Balance   decimal.Decimal   `json:"balance"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Store defines the contract implemented by account backends (e.g. Postgres).
type Store interface {
	Create(ctx context.Context, account Account) error
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetByCurrency(ctx context.Context, cur currency.Currency) (Account, error)
	// SetBalance overwrites the balance; reserved for administrative correction.
	SetBalance(ctx context.Context, id int64, balance decimal.Decimal) (Account, error)
	// ApplyDelta atomically adds delta to the balance.
	ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (Account, error)
}
