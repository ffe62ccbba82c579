package txlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog appends exchange records to the exchange_log table.
type PostgresLog struct {
	db *pgxpool.Pool
}

// NewPostgresLog constructs a Postgres-backed transaction log.
func NewPostgresLog(db *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append inserts the record; the request payload is kept as JSONB.
func (l *PostgresLog) Append(ctx context.Context, record Record) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	payload, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	_, err = l.db.Exec(ctx, `INSERT INTO exchange_log (id, ts, ok, request, exchange_rate, counter_amount, obs, inconsistent)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, record.Timestamp.UTC(), record.OK, payload, record.ExchangeRate, record.CounterAmount, record.Observation, record.Inconsistent)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("append record %s: %w", record.ID, err)
	}
	return nil
}

// List returns the full history in append order.
func (l *PostgresLog) List(ctx context.Context) ([]Record, error) {
	rows, err := l.db.Query(ctx, `SELECT id, ts, ok, request, exchange_rate, counter_amount, obs, inconsistent
        FROM exchange_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			id      uuid.UUID
			payload []byte
		)
		if err := rows.Scan(&id, &r.Timestamp, &r.OK, &payload, &r.ExchangeRate, &r.CounterAmount, &r.Observation, &r.Inconsistent); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal(payload, &r.Request); err != nil {
			return nil, fmt.Errorf("decode request for %s: %w", id, err)
		}
		r.ID = id.String()
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}
