// Package seed loads the initial house accounts and rates from a JSON file.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/accounts"
	"github.com/arvault/arvault/internal/currency"
	"github.com/arvault/arvault/internal/rates"
)

// Account is one house account entry of the seed file.
type Account struct {
	ID       int64             `json:"id"`
	Currency currency.Currency `json:"currency"`
	Balance  decimal.Decimal   `json:"balance"`
}

// State is the seed file layout:
//
//	{"accounts": [{"id": 1, "currency": "ARS", "balance": 120000000}],
//	 "rates": {"USD": {"ARS": 1000}}}
type State struct {
	Accounts []Account                                                   `json:"accounts"`
	Rates    map[currency.Currency]map[currency.Currency]decimal.Decimal `json:"rates"`
}

// Result counts what Apply changed.
type Result struct {
	AccountsCreated int
	AccountsSkipped int
	RatesSet        int
}

// Load reads and decodes a seed file.
func Load(path string) (State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read seed file: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return st, nil
}

// Apply creates missing accounts and writes every rate through the table so
// reciprocals are derived the same way as runtime updates. Existing accounts
// keep their balances. Pairs are applied in sorted order.
func Apply(ctx context.Context, st State, set currency.Set, store accounts.Store, table rates.Table, logger *slog.Logger) (Result, error) {
	var res Result
	for _, a := range st.Accounts {
		if !set.Contains(a.Currency) {
			return res, fmt.Errorf("seed account %d: %w: %s", a.ID, currency.ErrUnsupported, a.Currency)
		}
		err := store.Create(ctx, accounts.Account{ID: a.ID, Currency: a.Currency, Balance: a.Balance})
		switch {
		case err == nil:
			res.AccountsCreated++
		case errors.Is(err, accounts.ErrDuplicateAccount):
			res.AccountsSkipped++
		default:
			return res, fmt.Errorf("seed account %d: %w", a.ID, err)
		}
	}

	for _, base := range sortedKeys(st.Rates) {
		counters := st.Rates[base]
		for _, counter := range sortedKeys(counters) {
			if err := table.Set(ctx, base, counter, counters[counter]); err != nil {
				return res, fmt.Errorf("seed rate %s/%s: %w", base, counter, err)
			}
			res.RatesSet++
		}
	}

	logger.Info("seed applied",
		slog.Int("accounts_created", res.AccountsCreated),
		slog.Int("accounts_skipped", res.AccountsSkipped),
		slog.Int("rates_set", res.RatesSet),
	)
	return res, nil
}

func sortedKeys[V any](m map[currency.Currency]V) []currency.Currency {
	keys := make([]currency.Currency, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
