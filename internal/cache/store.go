// Package cache keeps the last fetched invoices of each milestone in a local
// SQLite file so reconciliation can run without network access.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"siteledger/internal/logger"
	"siteledger/pkg/models"
)

// ErrNoSnapshot is returned when a milestone was never cached.
var ErrNoSnapshot = errors.New("no cached snapshot for milestone")

// Snapshot is the cached invoice list of one milestone.
type Snapshot struct {
	MilestoneID int64
	FetchedAt   time.Time
	Invoices    []models.Invoice
}

// Store is a snapshot store backed by SQLite.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS milestone_snapshots (
		milestone_id INTEGER PRIMARY KEY,
		fetched_at   TEXT    NOT NULL,
		invoices     TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_milestone_snapshots_fetched_at
		ON milestone_snapshots (fetched_at)`,
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	const op = "cache.Open"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%s: create directory: %w", op, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// a single connection keeps :memory: databases shared across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	s := &Store{db: db, log: logger.WithComponent("cache"), now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug().Str("path", path).Msg("Snapshot cache opened")
	return s, nil
}

func (s *Store) migrate() error {
	for i, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveInvoices replaces the snapshot of a milestone.
func (s *Store) SaveInvoices(ctx context.Context, milestoneID int64, invoices []models.Invoice) error {
	const op = "cache.SaveInvoices"

	if invoices == nil {
		invoices = []models.Invoice{}
	}
	payload, err := json.Marshal(invoices)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO milestone_snapshots (milestone_id, fetched_at, invoices)
		VALUES (?, ?, ?)
		ON CONFLICT(milestone_id) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			invoices   = excluded.invoices`,
		milestoneID, s.now().UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug().
		Int64("milestone_id", milestoneID).
		Int("invoices", len(invoices)).
		Msg("Snapshot saved")
	return nil
}

// LoadInvoices returns the cached snapshot of a milestone.
func (s *Store) LoadInvoices(ctx context.Context, milestoneID int64) (*Snapshot, error) {
	const op = "cache.LoadInvoices"

	var fetchedAt, payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, invoices FROM milestone_snapshots WHERE milestone_id = ?`,
		milestoneID).Scan(&fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: milestone %d: %w", op, milestoneID, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snap := &Snapshot{MilestoneID: milestoneID}
	if snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return nil, fmt.Errorf("%s: bad timestamp %q: %w", op, fetchedAt, err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Invoices); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return snap, nil
}

// Milestones lists the cached milestone IDs, most recently fetched first.
func (s *Store) Milestones(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT milestone_id FROM milestone_snapshots ORDER BY fetched_at DESC, milestone_id`)
	if err != nil {
		return nil, fmt.Errorf("cache.Milestones: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("cache.Milestones: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
