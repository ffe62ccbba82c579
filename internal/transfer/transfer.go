package transfer

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMinDelay and DefaultMaxDelay bound the simulated rail latency.
	DefaultMinDelay = 200 * time.Millisecond
	DefaultMaxDelay = 400 * time.Millisecond
)

// ErrDeclined is the failure reported by a transport that refuses a leg.
var ErrDeclined = errors.New("transfer declined")

// Transferer moves funds between two account identifiers. A non-nil error
// means the leg did not happen.
type Transferer interface {
	Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal) error
}

// Func adapts a plain function to the Transferer interface.
type Func func(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal) error

// Transfer calls f.
func (f Func) Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal) error {
	return f(ctx, fromAccountID, toAccountID, amount)
}

// Simulator stands in for an external payment rail. It always succeeds after
// a delay drawn uniformly from [MinDelay, MaxDelay].
type Simulator struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewSimulator builds a Simulator, falling back to the default window when
// the bounds are unset or inverted.
func NewSimulator(minDelay, maxDelay time.Duration) Simulator {
	if minDelay <= 0 && maxDelay <= 0 {
		minDelay, maxDelay = DefaultMinDelay, DefaultMaxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return Simulator{MinDelay: minDelay, MaxDelay: maxDelay}
}

// Transfer waits for the simulated latency and approves the leg. A cancelled
// context aborts the wait and fails the leg.
func (s Simulator) Transfer(ctx context.Context, _, _ int64, _ decimal.Decimal) error {
	timer := time.NewTimer(s.delay())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s Simulator) delay() time.Duration {
	span := s.MaxDelay - s.MinDelay
	if span <= 0 {
		return s.MinDelay
	}
	return s.MinDelay + rand.N(span+1)
}
