// Package sqlite implements store.Store on SQLite.
//
// The database is opened in WAL mode and the schema is created on Open.
// Decimal amounts are stored as strings so no precision is lost; times are
// stored in UTC with a fixed-width layout so they sort lexically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                TEXT PRIMARY KEY,
	kind              TEXT NOT NULL,
	channel           TEXT NOT NULL DEFAULT '',
	amount            TEXT NOT NULL,
	direction         TEXT NOT NULL,
	counterparty_id   TEXT NOT NULL DEFAULT '',
	counterparty_name TEXT NOT NULL DEFAULT '',
	occurred_at       TEXT NOT NULL,
	post_balance      TEXT NOT NULL DEFAULT '0',
	fee_charged       TEXT NOT NULL DEFAULT '0',
	category_id       TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	access_fee        TEXT NOT NULL DEFAULT '0',
	outstanding_after TEXT,
	due_date          TEXT
);
CREATE INDEX IF NOT EXISTS idx_transactions_occurred_at ON transactions(occurred_at);
CREATE INDEX IF NOT EXISTS idx_transactions_counterparty ON transactions(counterparty_id, direction);

CREATE TABLE IF NOT EXISTS processed_messages (
	external_id  TEXT PRIMARY KEY,
	processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS category_memory (
	counterparty_id TEXT NOT NULL,
	direction       TEXT NOT NULL,
	category_id     TEXT NOT NULL,
	last_seen_at    TEXT NOT NULL,
	PRIMARY KEY (counterparty_id, direction)
);
`

const transactionColumns = `id, kind, channel, amount, direction, counterparty_id, counterparty_name,
	occurred_at, post_balance, fee_charged, category_id, description, access_fee, outstanding_after, due_date`

// Store implements store.Store on a SQLite database.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertTransaction(ctx context.Context, txn model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		string(txn.Kind),
		string(txn.Channel),
		txn.Amount.String(),
		string(txn.Direction),
		txn.CounterpartyID,
		txn.CounterpartyName,
		formatTime(txn.OccurredAt),
		txn.PostBalance.String(),
		txn.FeeCharged.String(),
		txn.CategoryID,
		txn.Description,
		txn.AccessFee.String(),
		nullDecimal(txn.OutstandingAfter),
		nullTime(txn.DueDate),
	)
	if err != nil {
		return fmt.Errorf("upserting transaction %s: %w", txn.ID, err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("getting transaction %s: %w", id, err)
	}
	return txn, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListTransactionsSince(ctx context.Context, since time.Time) ([]model.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE occurred_at >= ? ORDER BY occurred_at, id`,
		formatTime(since))
}

func (s *Store) ListUncategorized(ctx context.Context, counterpartyID string, dir model.Direction) ([]model.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE counterparty_id = ? AND direction = ? AND category_id = ''
		ORDER BY occurred_at, id`,
		counterpartyID, string(dir))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (s *Store) MarkMessageProcessed(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_messages (external_id, processed_at) VALUES (?, ?)`,
		externalID, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("marking message %s processed: %w", externalID, err)
	}
	return nil
}

func (s *Store) IsMessageProcessed(ctx context.Context, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_messages WHERE external_id = ?`, externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking message %s: %w", externalID, err)
	}
	return n > 0, nil
}

func (s *Store) GetCategoryForCounterparty(ctx context.Context, counterpartyID string, dir model.Direction) (model.CategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var categoryID, lastSeen string
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id, last_seen_at FROM category_memory WHERE counterparty_id = ? AND direction = ?`,
		counterpartyID, string(dir)).Scan(&categoryID, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CategoryMapping{}, store.ErrNotFound
	}
	if err != nil {
		return model.CategoryMapping{}, fmt.Errorf("getting category for %s: %w", counterpartyID, err)
	}

	seen, err := parseTime(lastSeen)
	if err != nil {
		return model.CategoryMapping{}, err
	}
	return model.CategoryMapping{
		CounterpartyID: counterpartyID,
		Direction:      dir,
		CategoryID:     categoryID,
		LastSeenAt:     seen,
	}, nil
}

func (s *Store) SaveCategoryForCounterparty(ctx context.Context, m model.CategoryMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO category_memory (counterparty_id, direction, category_id, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(counterparty_id, direction) DO UPDATE SET
			category_id = excluded.category_id,
			last_seen_at = excluded.last_seen_at`,
		m.CounterpartyID, string(m.Direction), m.CategoryID, formatTime(m.LastSeenAt))
	if err != nil {
		return fmt.Errorf("saving category for %s: %w", m.CounterpartyID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var (
		txn                                        model.Transaction
		kind, channel, direction                   string
		amount, postBalance, feeCharged, accessFee string
		occurredAt                                 string
		outstanding, dueDate                       sql.NullString
	)

	err := row.Scan(
		&txn.ID, &kind, &channel, &amount, &direction, &txn.CounterpartyID, &txn.CounterpartyName,
		&occurredAt, &postBalance, &feeCharged, &txn.CategoryID, &txn.Description, &accessFee,
		&outstanding, &dueDate,
	)
	if err != nil {
		return model.Transaction{}, err
	}

	txn.Kind = model.TransactionKind(kind)
	txn.Channel = model.Channel(channel)
	txn.Direction = model.Direction(direction)

	if txn.OccurredAt, err = parseTime(occurredAt); err != nil {
		return model.Transaction{}, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&txn.Amount, amount},
		{&txn.PostBalance, postBalance},
		{&txn.FeeCharged, feeCharged},
		{&txn.AccessFee, accessFee},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return model.Transaction{}, fmt.Errorf("parsing amount %q of %s: %w", f.src, txn.ID, err)
		}
	}
	if outstanding.Valid {
		d, err := decimal.NewFromString(outstanding.String)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing outstanding %q of %s: %w", outstanding.String, txn.ID, err)
		}
		txn.OutstandingAfter = &d
	}
	if dueDate.Valid {
		if txn.DueDate, err = parseTime(dueDate.String); err != nil {
			return model.Transaction{}, err
		}
	}
	return txn, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}
