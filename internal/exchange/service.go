package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/accounts"
	"github.com/arvault/arvault/internal/currency"
	"github.com/arvault/arvault/internal/logging"
	"github.com/arvault/arvault/internal/metrics"
	"github.com/arvault/arvault/internal/notification"
	"github.com/arvault/arvault/internal/rates"
	"github.com/arvault/arvault/internal/transfer"
	"github.com/arvault/arvault/internal/txlog"
)

// Request is the exchange payload accepted by Service.Exchange.
type Request = txlog.Request

// RateInput captures a rate update for one directed pair.
type RateInput struct {
	BaseCurrency    currency.Currency
	CounterCurrency currency.Currency
	Rate            decimal.Decimal
}

// Deps aggregates the collaborators of the exchange engine.
type Deps struct {
	Accounts  accounts.Store
	Rates     rates.Table
	Log       txlog.Log
	Transfers transfer.Transferer
	Metrics   metrics.Recorder
	Notifier  notification.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Service is the exchange engine. It owns the mutation path of account
// balances and rates and writes one log record per exchange attempt.
type Service struct {
	accounts  accounts.Store
	rates     rates.Table
	log       txlog.Log
	transfers transfer.Transferer
	metrics   metrics.Recorder
	notifier  notification.Notifier
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService validates the dependencies and fills optional ones with defaults.
func NewService(d Deps) (*Service, error) {
	if d.Accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if d.Rates == nil {
		return nil, fmt.Errorf("rate table is required")
	}
	if d.Log == nil {
		return nil, fmt.Errorf("transaction log is required")
	}
	if d.Transfers == nil {
		d.Transfers = transfer.NewSimulator(transfer.DefaultMinDelay, transfer.DefaultMaxDelay)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &Service{
		accounts:  d.Accounts,
		rates:     d.Rates,
		log:       d.Log,
		transfers: d.Transfers,
		metrics:   d.Metrics,
		notifier:  d.Notifier,
		logger:    d.Logger,
		now:       d.Now,
		newID:     d.NewID,
	}, nil
}

// Accounts returns a snapshot of all house accounts.
func (s *Service) Accounts(ctx context.Context) ([]accounts.Account, error) {
	return s.accounts.List(ctx)
}

// SetAccountBalance overwrites an account balance (administrative correction).
func (s *Service) SetAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (accounts.Account, error) {
	account, err := s.accounts.SetBalance(ctx, id, balance)
	if err != nil {
		return accounts.Account{}, err
	}
	s.logger.Info("account.balance set",
		slog.Int64("account_id", id),
		slog.String("currency", string(account.Currency)),
		slog.String("balance", balance.String()),
	)
	return account, nil
}

// Rates returns every stored pair as a nested mapping.
func (s *Service) Rates(ctx context.Context) (rates.Matrix, error) {
	return s.rates.List(ctx)
}

// SetRate stores the rate and its reciprocal.
func (s *Service) SetRate(ctx context.Context, in RateInput) error {
	if err := s.rates.Set(ctx, in.BaseCurrency, in.CounterCurrency, in.Rate); err != nil {
		return err
	}
	s.logger.Info("rate.set",
		slog.String("base", string(in.BaseCurrency)),
		slog.String("counter", string(in.CounterCurrency)),
		slog.String("rate", in.Rate.String()),
	)
	return nil
}

// Log returns the full exchange history.
func (s *Service) Log(ctx context.Context) ([]txlog.Record, error) {
	return s.log.List(ctx)
}

// Exchange runs one exchange attempt through the state machine and appends
// its record. Business rejections come back as a record with OK=false and a
// nil error; only collaborator faults produce an error.
func (s *Service) Exchange(ctx context.Context, req Request) (txlog.Record, error) {
	a := &attempt{
		req: req,
		rec: txlog.Record{
			ID:            s.newID(),
			Timestamp:     s.now(),
			Request:       req,
			ExchangeRate:  decimal.Zero,
			CounterAmount: decimal.Zero,
		},
	}

	if err := s.run(ctx, a); err != nil {
		s.logger.Error("exchange.failed",
			slog.String("id", a.rec.ID),
			slog.String("stage", a.stage.String()),
			slog.Any("error", err),
		)
		return txlog.Record{}, err
	}

	// The outcome is final at this point; a caller that went away must not
	// prevent the record from being written.
	if err := s.log.Append(context.WithoutCancel(ctx), a.rec); err != nil {
		s.logger.Error("exchange.record append failed",
			slog.String("id", a.rec.ID),
			slog.Bool("ok", a.rec.OK),
			slog.Any("error", err),
		)
		return txlog.Record{}, fmt.Errorf("%w: append record %s: %w", ErrInfrastructure, a.rec.ID, err)
	}
	s.emit(func() { s.metrics.Processed() })

	attrs := []any{
		slog.String("id", a.rec.ID),
		slog.Bool("ok", a.rec.OK),
		slog.String("base", string(req.BaseCurrency)),
		slog.String("counter", string(req.CounterCurrency)),
		slog.String("base_amount", req.BaseAmount.String()),
		slog.String("counter_amount", a.rec.CounterAmount.String()),
	}
	if a.rec.Observation != nil {
		attrs = append(attrs, slog.String("obs", *a.rec.Observation))
	}
	s.logger.Info("exchange.recorded", attrs...)
	return a.rec, nil
}

// emit forwards to the metrics recorder without letting it fail the exchange.
func (s *Service) emit(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("metrics emit panicked", slog.Any("panic", r))
		}
	}()
	fn()
}

func (s *Service) houseAccount(ctx context.Context, cur currency.Currency) (accounts.Account, error) {
	account, err := s.accounts.GetByCurrency(ctx, cur)
	if err != nil {
		// A missing or duplicated house account is a provisioning error, not a
		// business rejection.
		return accounts.Account{}, fmt.Errorf("%w: house account for %s: %w", ErrInfrastructure, cur, err)
	}
	return account, nil
}
