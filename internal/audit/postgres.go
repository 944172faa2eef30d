package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a Postgres-backed decision repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record stores a submission decision.
func (r *PostgresRepository) Record(entry DecisionEntry) (*DecisionRecord, error) {
	record := &DecisionRecord{
		ID:          uuid.New().String(),
		Submitter:   entry.Submitter,
		Decision:    entry.Decision,
		Fingerprint: entry.Fingerprint,
		CreatedAt:   time.Now().UTC(),
		RequestID:   entry.RequestID,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
	}

	const insert = `
		INSERT INTO decision_log (id, submitter, decision, fingerprint, created_at, request_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(context.Background(), insert,
		record.ID, record.Submitter, record.Decision, record.Fingerprint,
		record.CreatedAt, record.RequestID, record.IPAddress, record.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("insert decision: %w", err)
	}

	recordCopy := *record
	return &recordCopy, nil
}

// QueryBySubmitter retrieves decisions for a specific submitter, sorted by time (newest first).
func (r *PostgresRepository) QueryBySubmitter(submitter string, limit int) ([]*DecisionRecord, error) {
	const query = `
		SELECT id, submitter, decision, fingerprint, created_at, request_id, ip_address, user_agent
		FROM decision_log
		WHERE submitter = $1
		ORDER BY created_at DESC
	`
	return r.queryRecords(query+limitClause(limit), submitter)
}

// QueryByDecision retrieves records with a specific decision code, sorted by time (newest first).
func (r *PostgresRepository) QueryByDecision(decision string, limit int) ([]*DecisionRecord, error) {
	const query = `
		SELECT id, submitter, decision, fingerprint, created_at, request_id, ip_address, user_agent
		FROM decision_log
		WHERE decision = $1
		ORDER BY created_at DESC
	`
	return r.queryRecords(query+limitClause(limit), decision)
}

// AnonymizeIPsBefore coarsens stored IPv4 addresses for records older than
// the cutoff by zeroing the last octet. IPv6 addresses are cleared.
func (r *PostgresRepository) AnonymizeIPsBefore(cutoff time.Time) (int64, error) {
	const update = `
		UPDATE decision_log
		SET ip_address = CASE
			WHEN ip_address LIKE '%.%.%.%' THEN regexp_replace(ip_address, '\.\d+$', '.0')
			ELSE ''
		END
		WHERE created_at < $1
		  AND ip_address <> ''
		  AND ip_address NOT LIKE '%.0'
	`
	result, err := r.db.ExecContext(context.Background(), update, cutoff)
	if err != nil {
		return 0, fmt.Errorf("anonymize decision ips: %w", err)
	}
	return result.RowsAffected()
}

func limitClause(limit int) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

func (r *PostgresRepository) queryRecords(query string, args ...any) ([]*DecisionRecord, error) {
	rows, err := r.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var results []*DecisionRecord
	for rows.Next() {
		var record DecisionRecord
		if err := rows.Scan(&record.ID, &record.Submitter, &record.Decision, &record.Fingerprint,
			&record.CreatedAt, &record.RequestID, &record.IPAddress, &record.UserAgent); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		record.CreatedAt = record.CreatedAt.UTC()
		results = append(results, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return results, nil
}
