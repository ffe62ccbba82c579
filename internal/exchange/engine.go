package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/accounts"
	"github.com/arvault/arvault/internal/notification"
	"github.com/arvault/arvault/internal/rates"
	"github.com/arvault/arvault/internal/txlog"
)

// stage is a step of a single exchange attempt. Stages run in order and the
// first rejection jumps straight to stageRecorded.
type stage int

const (
	stageValidate stage = iota
	stageRateResolved
	stageWithdraw
	stageDeposit
	stageSettle
	stageRecorded
)

func (s stage) String() string {
	switch s {
	case stageValidate:
		return "validate"
	case stageRateResolved:
		return "rate_resolved"
	case stageWithdraw:
		return "withdraw_leg"
	case stageDeposit:
		return "deposit_leg"
	case stageSettle:
		return "settle"
	case stageRecorded:
		return "recorded"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type attempt struct {
	stage stage
	req   Request
	rec   txlog.Record

	rate          decimal.Decimal
	counterAmount decimal.Decimal
	baseHouse     accounts.Account
	counterHouse  accounts.Account
}

func (a *attempt) decline(observation string) stage {
	a.rec.OK = false
	a.rec.Observation = &observation
	return stageRecorded
}

func (s *Service) run(ctx context.Context, a *attempt) error {
	for a.stage != stageRecorded {
		var (
			next stage
			err  error
		)
		switch a.stage {
		case stageValidate:
			next, err = s.validate(ctx, a)
		case stageRateResolved:
			next, err = s.resolve(ctx, a)
		case stageWithdraw:
			next = s.withdraw(ctx, a)
		case stageDeposit:
			next = s.deposit(ctx, a)
		case stageSettle:
			next, err = s.settle(ctx, a)
		default:
			return fmt.Errorf("unknown exchange stage %s", a.stage)
		}
		if err != nil {
			return err
		}
		a.stage = next
	}
	return nil
}

func (s *Service) validate(ctx context.Context, a *attempt) (stage, error) {
	if !a.req.BaseAmount.IsPositive() {
		return a.decline(ObsInvalidAmount), nil
	}
	if a.req.BaseCurrency == a.req.CounterCurrency {
		return a.decline(ObsSameCurrency), nil
	}

	rate, err := s.rates.Get(ctx, a.req.BaseCurrency, a.req.CounterCurrency)
	if err != nil {
		if errors.Is(err, rates.ErrNotFound) {
			return a.decline(fmt.Sprintf(ObsRateNotFound, a.req.BaseCurrency, a.req.CounterCurrency)), nil
		}
		return stageValidate, fmt.Errorf("%w: rate lookup: %w", ErrInfrastructure, err)
	}
	if !rate.IsPositive() {
		// A zero rate would move the base amount and pay out nothing.
		s.logger.Warn("exchange.non-positive rate stored",
			slog.String("base", string(a.req.BaseCurrency)),
			slog.String("counter", string(a.req.CounterCurrency)),
			slog.String("rate", rate.String()),
		)
		return a.decline(fmt.Sprintf(ObsRateNotFound, a.req.BaseCurrency, a.req.CounterCurrency)), nil
	}
	a.rate = rate
	return stageRateResolved, nil
}

func (s *Service) resolve(ctx context.Context, a *attempt) (stage, error) {
	a.rec.ExchangeRate = a.rate
	a.counterAmount = a.req.BaseAmount.Mul(a.rate)

	var err error
	if a.baseHouse, err = s.houseAccount(ctx, a.req.BaseCurrency); err != nil {
		return stageRateResolved, err
	}
	if a.counterHouse, err = s.houseAccount(ctx, a.req.CounterCurrency); err != nil {
		return stageRateResolved, err
	}

	if a.counterHouse.Balance.LessThan(a.counterAmount) {
		return a.decline(ObsInsufficientFunds), nil
	}
	return stageWithdraw, nil
}

func (s *Service) withdraw(ctx context.Context, a *attempt) stage {
	err := s.transfers.Transfer(ctx, a.req.BaseAccountID, a.baseHouse.ID, a.req.BaseAmount)
	if err != nil {
		s.logger.Warn("exchange.withdraw leg failed",
			slog.String("id", a.rec.ID),
			slog.Int64("from", a.req.BaseAccountID),
			slog.Int64("to", a.baseHouse.ID),
			slog.Any("error", err),
		)
		return a.decline(ObsWithdrawFailed)
	}
	return stageDeposit
}

func (s *Service) deposit(ctx context.Context, a *attempt) stage {
	err := s.transfers.Transfer(ctx, a.counterHouse.ID, a.req.CounterAccountID, a.counterAmount)
	if err == nil {
		return stageSettle
	}

	s.logger.Warn("exchange.deposit leg failed",
		slog.String("id", a.rec.ID),
		slog.Int64("from", a.counterHouse.ID),
		slog.Int64("to", a.req.CounterAccountID),
		slog.Any("error", err),
	)
	next := a.decline(ObsDepositFailed)
	s.compensate(ctx, a, reversal{from: a.baseHouse.ID, to: a.req.BaseAccountID, amount: a.req.BaseAmount})
	return next
}

func (s *Service) settle(ctx context.Context, a *attempt) (stage, error) {
	// Both legs went through; settlement must complete even if the caller
	// has gone away.
	ctx = context.WithoutCancel(ctx)

	_, err := s.accounts.ApplyDelta(ctx, a.counterHouse.ID, a.counterAmount.Neg())
	if err != nil {
		if !errors.Is(err, accounts.ErrInsufficientFunds) {
			return stageSettle, fmt.Errorf("%w: debit counter house account %d: %w", ErrInfrastructure, a.counterHouse.ID, err)
		}
		// A concurrent exchange drained the counter house account after the
		// funds check. Undo both legs and decline.
		s.logger.Warn("exchange.settlement refused",
			slog.String("id", a.rec.ID),
			slog.Int64("account_id", a.counterHouse.ID),
			slog.String("amount", a.counterAmount.String()),
		)
		next := a.decline(ObsInsufficientFunds)
		s.compensate(ctx, a,
			reversal{from: a.req.CounterAccountID, to: a.counterHouse.ID, amount: a.counterAmount},
			reversal{from: a.baseHouse.ID, to: a.req.BaseAccountID, amount: a.req.BaseAmount},
		)
		return next, nil
	}

	if _, err := s.accounts.ApplyDelta(ctx, a.baseHouse.ID, a.req.BaseAmount); err != nil {
		if _, undoErr := s.accounts.ApplyDelta(ctx, a.counterHouse.ID, a.counterAmount); undoErr != nil {
			s.logger.Error("exchange.settlement rollback failed",
				slog.String("id", a.rec.ID),
				slog.Int64("account_id", a.counterHouse.ID),
				slog.Any("error", undoErr),
			)
		}
		return stageSettle, fmt.Errorf("%w: credit base house account %d: %w", ErrInfrastructure, a.baseHouse.ID, err)
	}

	a.rec.OK = true
	a.rec.CounterAmount = a.counterAmount

	base, counter := a.req.BaseCurrency, a.req.CounterCurrency
	s.emit(func() {
		s.metrics.Volume(base, a.req.BaseAmount)
		s.metrics.Volume(counter, a.counterAmount)
		s.metrics.Net(base, a.req.BaseAmount)
		s.metrics.Net(counter, a.counterAmount.Neg())
	})
	return stageRecorded, nil
}

type reversal struct {
	from   int64
	to     int64
	amount decimal.Decimal
}

// compensate issues best-effort reverse transfers. A failed reversal is not
// retried: the record is flagged inconsistent, logged and reported to ops.
func (s *Service) compensate(ctx context.Context, a *attempt, legs ...reversal) {
	ctx = context.WithoutCancel(ctx)
	for _, leg := range legs {
		err := s.transfers.Transfer(ctx, leg.from, leg.to, leg.amount)
		if err == nil {
			continue
		}

		if !a.rec.Inconsistent && a.rec.Observation != nil {
			obs := *a.rec.Observation + obsCompensationFailed
			a.rec.Observation = &obs
		}
		a.rec.Inconsistent = true
		s.logger.Error("exchange.compensation_failed",
			slog.String("id", a.rec.ID),
			slog.Int64("from", leg.from),
			slog.Int64("to", leg.to),
			slog.String("amount", leg.amount.String()),
			slog.Any("error", err),
		)
		if s.notifier != nil {
			sendErr := s.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindCompensationFailure,
				Destination: "ops",
				Reference:   a.rec.ID,
				Body:        fmt.Sprintf("reverse transfer of %s from %d to %d failed: %v", leg.amount, leg.from, leg.to, err),
			})
			if sendErr != nil {
				s.logger.Error("exchange.compensation_failed notification not delivered",
					slog.String("id", a.rec.ID),
					slog.Any("error", sendErr),
				)
			}
		}
	}
}
