package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/iotdemo-core/internal/inference"
)

// Summary aggregates the stored results of one board and model.
type Summary struct {
	Board           string  `json:"board"`
	Model           string  `json:"model"`
	Count           int     `json:"count"`
	LastIteration   int     `json:"last_iteration"`
	AvgMicroseconds float64 `json:"avg_microseconds"`
}

// NodeStatus is the last announced state of a node.
type NodeStatus struct {
	ClientID  string    `json:"client_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists results in the SQLite schema from the migrations package.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveResult inserts one result.
func (s *Store) SaveResult(ctx context.Context, r inference.Result, receivedAt time.Time) error {
	var ts sql.NullInt64
	if r.Timestamp > 0 {
		ts = sql.NullInt64{Int64: r.Timestamp, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (board, model, result, iteration, microseconds, timestamp_ms, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Board, r.Model, r.Result, r.Iteration, r.Microseconds, ts,
		receivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// SaveNodeStatus upserts the status of a node.
func (s *Store) SaveNodeStatus(ctx context.Context, st NodeStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_status (client_id, status, reason, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		st.ClientID, st.Status, st.Reason, st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving node status: %w", err)
	}
	return nil
}

// Summaries returns one row per board and model, ordered by board then model.
func (s *Store) Summaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT board, model, COUNT(*), MAX(iteration), AVG(microseconds)
		FROM results
		GROUP BY board, model
		ORDER BY board, model`)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Board, &sm.Model, &sm.Count, &sm.LastIteration, &sm.AvgMicroseconds); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Recent returns up to limit results for board, newest first.
func (s *Store) Recent(ctx context.Context, board string, limit int) ([]inference.Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT board, model, result, iteration, microseconds, COALESCE(timestamp_ms, 0)
		FROM results
		WHERE board = ?
		ORDER BY id DESC
		LIMIT ?`, board, limit)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []inference.Result
	for rows.Next() {
		var r inference.Result
		if err := rows.Scan(&r.Board, &r.Model, &r.Result, &r.Iteration, &r.Microseconds, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NodeStatuses returns every known node, ordered by client id.
func (s *Store) NodeStatuses(ctx context.Context) ([]NodeStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT client_id, status, COALESCE(reason, ''), updated_at FROM node_status ORDER BY client_id")
	if err != nil {
		return nil, fmt.Errorf("querying node status: %w", err)
	}
	defer rows.Close()

	var out []NodeStatus
	for rows.Next() {
		var st NodeStatus
		var at string
		if err := rows.Scan(&st.ClientID, &st.Status, &st.Reason, &at); err != nil {
			return nil, fmt.Errorf("scanning node status: %w", err)
		}
		st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, at) //nolint:errcheck // written by us
		out = append(out, st)
	}
	return out, rows.Err()
}
