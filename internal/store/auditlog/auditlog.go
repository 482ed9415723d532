// Package auditlog persists every judgment the control loop receives to
// PostgreSQL as an append-only record, independent of the in-memory
// LabeledCache the controller itself keeps. It exists so a run's full
// judgment history survives a process restart and can be replayed or
// audited after the fact.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/relevance-labs/cal-engine/pkg/postgres"
)

// Entry is a single recorded judgment.
type Entry struct {
	ID                  int64     `json:"id"`
	Key                 string    `json:"key"`
	Label               float32   `json:"label"`
	CumulativeRelevants int       `json:"cumulative_relevants"`
	RecordedAt          time.Time `json:"recorded_at"`
}

// Store appends judgment entries to the cal_judgments table.
//
// It requires a `cal_judgments` table:
//
//	CREATE TABLE cal_judgments (
//	    id                   BIGSERIAL PRIMARY KEY,
//	    key                  TEXT NOT NULL,
//	    label                REAL NOT NULL,
//	    cumulative_relevants INTEGER NOT NULL,
//	    recorded_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a judgment audit log backed by PostgreSQL.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "auditlog-store"),
	}
}

// Append records a single judgment. R is the cumulative-relevants count
// after this judgment was applied.
func (s *Store) Append(ctx context.Context, key string, label float32, r int) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO cal_judgments (key, label, cumulative_relevants, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		key, label, r, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending judgment entry: %w", err)
	}
	return nil
}

// AppendBatch records a slice of judgments in a single transaction.
func (s *Store) AppendBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cal_judgments (key, label, cumulative_relevants, recorded_at)
			 VALUES ($1, $2, $3, $4)`,
		)
		if err != nil {
			return fmt.Errorf("preparing judgment insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Key, e.Label, e.CumulativeRelevants, now); err != nil {
				return fmt.Errorf("inserting judgment for %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

// Recent returns the most recently recorded judgments, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, key, label, cumulative_relevants, recorded_at
		 FROM cal_judgments ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent judgments: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Key, &e.Label, &e.CumulativeRelevants, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning judgment row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountForKey returns how many times the given key has been judged.
// A count greater than one indicates a re-judgment, which the controller
// itself does not guard against on the RPC surface.
func (s *Store) CountForKey(ctx context.Context, key string) (int, error) {
	var count int
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cal_judgments WHERE key = $1`, key,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting judgments for %q: %w", key, err)
	}
	return count, nil
}
