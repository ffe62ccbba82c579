package txlog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvault/arvault/internal/currency"
)

func TestMemoryLogAppendOnly(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	obs := "insufficient counter funds"
	rec := Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Request: Request{
			BaseCurrency:     currency.USD,
			CounterCurrency:  currency.ARS,
			BaseAccountID:    10,
			CounterAccountID: 11,
			BaseAmount:       decimal.NewFromInt(10),
		},
		Observation: &obs,
	}
	require.NoError(t, log.Append(ctx, rec))
	assert.ErrorIs(t, log.Append(ctx, rec), ErrDuplicateRecord)

	// mutating the caller's copy must not reach the stored record
	obs = "changed"

	listed, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Observation)
	assert.Equal(t, "insufficient counter funds", *listed[0].Observation)

	*listed[0].Observation = "tampered"
	again, err := log.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "insufficient counter funds", *again[0].Observation)
}

func TestRecordJSONShape(t *testing.T) {
	rec := Record{
		ID:            "abc",
		Timestamp:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		OK:            true,
		ExchangeRate:  decimal.NewFromInt(1000),
		CounterAmount: decimal.NewFromInt(10_000),
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "obs")
	assert.Nil(t, decoded["obs"])
	assert.NotContains(t, decoded, "inconsistent")
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["ts"])
}
