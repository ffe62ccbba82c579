package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

const rateKeyPrefix = "rates:v1:"

// RedisTable keeps one hash per base currency, keyed by counter currency.
type RedisTable struct {
	client *redis.Client
	set    currency.Set
}

// NewRedisTable builds a rate table backed by Redis.
func NewRedisTable(client *redis.Client, set currency.Set) *RedisTable {
	return &RedisTable{client: client, set: set}
}

func rateKey(base currency.Currency) string {
	return rateKeyPrefix + string(base)
}

// Get reads a single directed rate.
func (t *RedisTable) Get(ctx context.Context, base, counter currency.Currency) (decimal.Decimal, error) {
	raw, err := t.client.HGet(ctx, rateKey(base), string(counter)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("read rate %s/%s: %w", base, counter, err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode rate %s/%s: %w", base, counter, err)
	}
	return rate, nil
}

// Set writes both directions inside a single MULTI/EXEC block.
func (t *RedisTable) Set(ctx context.Context, base, counter currency.Currency, rate decimal.Decimal) error {
	if err := validate(t.set, base, counter, rate); err != nil {
		return err
	}
	inverse := Reciprocal(rate)

	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rateKey(base), string(counter), rate.String())
		pipe.HSet(ctx, rateKey(counter), string(base), inverse.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("store rate %s/%s: %w", base, counter, err)
	}
	return nil
}

// List returns every stored pair for the supported currencies.
func (t *RedisTable) List(ctx context.Context) (Matrix, error) {
	bases := t.set.List()
	cmds := make([]*redis.MapStringStringCmd, len(bases))
	_, err := t.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, base := range bases {
			cmds[i] = pipe.HGetAll(ctx, rateKey(base))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}

	out := make(Matrix)
	for i, base := range bases {
		for counter, raw := range cmds[i].Val() {
			rate, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("decode rate %s/%s: %w", base, counter, err)
			}
			out.put(base, currency.Currency(counter), rate)
		}
	}
	return out, nil
}
