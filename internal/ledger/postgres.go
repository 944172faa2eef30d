package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for unique constraint breaks.
const uniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL. The ledger_entries table
// carries a unique index on content_fingerprint and a primary key on
// sequence, so a conflicting append from any writer fails the transaction
// and leaves nothing visible.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a Postgres-backed ledger store.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Append inserts the entry in a transaction. Unique violations on the
// fingerprint map to ErrDuplicateFingerprint; any other failure rolls back
// with no partial entry visible.
func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Warn("failed to rollback ledger append", slog.String("error", err.Error()))
		}
	}()

	const insert = `
		INSERT INTO ledger_entries (sequence, captured_at, content_fingerprint, entry_digest, previous_digest)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, insert, e.Sequence, e.CapturedAt, e.ContentFingerprint, e.EntryDigest, e.PreviousDigest); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "ledger_entries_content_fingerprint_key" {
				return ErrDuplicateFingerprint
			}
			// Sequence collision: a concurrent writer won the slot.
			return fmt.Errorf("sequence %d already taken: %w", e.Sequence, err)
		}
		return fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}

	s.logger.Debug("ledger entry appended",
		slog.Int64("sequence", e.Sequence),
		slog.String("fingerprint", e.ContentFingerprint))
	return nil
}

// Latest returns the entry with the highest sequence.
func (s *PostgresStore) Latest(ctx context.Context) (Entry, error) {
	const query = `
		SELECT sequence, captured_at, content_fingerprint, entry_digest, previous_digest
		FROM ledger_entries
		ORDER BY sequence DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query))
}

// ByFingerprint returns the entry recording the given fingerprint.
func (s *PostgresStore) ByFingerprint(ctx context.Context, fingerprint string) (Entry, error) {
	const query = `
		SELECT sequence, captured_at, content_fingerprint, entry_digest, previous_digest
		FROM ledger_entries
		WHERE content_fingerprint = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, fingerprint))
}

// List returns all entries in ascending sequence order.
func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	const query = `
		SELECT sequence, captured_at, content_fingerprint, entry_digest, previous_digest
		FROM ledger_entries
		ORDER BY sequence ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Sequence, &e.CapturedAt, &e.ContentFingerprint, &e.EntryDigest, &e.PreviousDigest); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CapturedAt = e.CapturedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.Sequence, &e.CapturedAt, &e.ContentFingerprint, &e.EntryDigest, &e.PreviousDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.CapturedAt = e.CapturedAt.UTC()
	return e, nil
}
