// Package store persists convergence-time trial results to SQLite, so
// sweeps over population sizes can be collected across runs and analyzed
// elsewhere.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/UnHumbleBen/ppsim/internal/sim"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for trial results.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// the required pragmas and schema. Idempotent.
//
// The database is configured with WAL mode for concurrent reads, NORMAL
// synchronous mode, a 5-second busy timeout, and foreign key enforcement.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteBatch records one batch of trial samples under the given batch id
// and protocol name. The whole batch is written in a single transaction.
func (s *Store) WriteBatch(ctx context.Context, batchID, protocol string, trials []sim.Trial) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trial_batches (id, protocol) VALUES (?, ?)`,
		batchID, protocol,
	); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	for _, t := range trials {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trials (batch_id, n, time) VALUES (?, ?, ?)`,
			batchID, t.N, t.Time,
		); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

// ReadBatch returns the trial samples recorded under a batch id, in
// insertion order.
func (s *Store) ReadBatch(ctx context.Context, batchID string) ([]sim.Trial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT n, time FROM trials WHERE batch_id = ? ORDER BY rowid`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	defer rows.Close()

	var out []sim.Trial
	for rows.Next() {
		var t sim.Trial
		if err := rows.Scan(&t.N, &t.Time); err != nil {
			return nil, fmt.Errorf("read batch: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	return out, nil
}

// Batches lists recorded batch ids with their protocol names, most
// recent first.
func (s *Store) Batches(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, protocol FROM trial_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, protocol string
		if err := rows.Scan(&id, &protocol); err != nil {
			return nil, fmt.Errorf("list batches: %w", err)
		}
		out[id] = protocol
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return out, nil
}
