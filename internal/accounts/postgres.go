package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

const accountColumns = `id, currency, balance, updated_at`

// PostgresStore persists house accounts in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed account store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new account.
func (s *PostgresStore) Create(ctx context.Context, account Account) error {
	if account.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, currency, balance, updated_at)
        VALUES ($1, $2, $3, now())`, account.ID, string(account.Currency), account.Balance)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("insert account %d: %w", account.ID, err)
	}
	return nil
}

// List returns every account ordered by id.
func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// Get fetches an account by id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// GetByCurrency returns the single account holding cur.
func (s *PostgresStore) GetByCurrency(ctx context.Context, cur currency.Currency) (Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE currency = $1 ORDER BY id LIMIT 2`, string(cur))
	if err != nil {
		return Account{}, fmt.Errorf("find account for %s: %w", cur, err)
	}
	defer rows.Close()

	var found []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return Account{}, err
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return Account{}, fmt.Errorf("find account for %s: %w", cur, err)
	}

	switch len(found) {
	case 0:
		return Account{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return Account{}, ErrAmbiguousCurrency
	}
}

// SetBalance overwrites the balance of an account.
func (s *PostgresStore) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) (Account, error) {
	if balance.IsNegative() {
		return Account{}, ErrNegativeBalance
	}
	row := s.db.QueryRow(ctx, `UPDATE accounts SET balance = $2, updated_at = now()
        WHERE id = $1 RETURNING `+accountColumns, id, balance)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// ApplyDelta increments the balance in a single statement; the row lock taken
// by UPDATE serializes concurrent callers on the same account.
func (s *PostgresStore) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (Account, error) {
	row := s.db.QueryRow(ctx, `UPDATE accounts SET balance = balance + $2, updated_at = now()
        WHERE id = $1 AND balance + $2 >= 0 RETURNING `+accountColumns, id, delta)
	a, err := scanAccount(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Account{}, err
	}
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return Account{}, getErr
	}
	return Account{}, ErrInsufficientFunds
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a   Account
		cur string
	)
	if err := row.Scan(&a.ID, &cur, &a.Balance, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Currency = currency.Currency(cur)
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}
