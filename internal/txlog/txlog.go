package txlog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

// Request is the exchange payload as submitted by the client.
type Request struct {
	BaseCurrency     currency.Currency `json:"baseCurrency"`
	CounterCurrency  currency.Currency `json:"counterCurrency"`
	BaseAccountID    int64             `json:"baseAccountId"`
	CounterAccountID int64             `json:"counterAccountId"`
	BaseAmount       decimal.Decimal   `json:"baseAmount"`
}

// Record is the immutable audit entry written once per exchange attempt.
type Record struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"ts"`
	OK            bool            `json:"ok"`
	Request       Request         `json:"request"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	CounterAmount decimal.Decimal `json:"counterAmount"`
	Observation   *string         `json:"obs"`
	// Inconsistent marks a declined attempt whose compensating transfer failed.
	Inconsistent bool `json:"inconsistent,omitempty"`
}

// Log is an append-only sink of exchange records.
type Log interface {
	Append(ctx context.Context, record Record) error
	List(ctx context.Context) ([]Record, error)
}

func (r Record) clone() Record {
	if r.Observation != nil {
		obs := *r.Observation
		r.Observation = &obs
	}
	return r
}
