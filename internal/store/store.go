// Package store provides the local SQLite cache backing the tandem core.
//
// The store is the single source of truth for display: remote synchronization
// flows one-directionally into it, and UI-facing callers read from it through
// the repositories. It runs in embedded mode with WAL for concurrent reads.
//
// Every committed write signals the table-scoped change notifier, which is
// how repository-level reactive queries learn to re-emit. Writes to a single
// table are serialized by SQLite itself; snapshots across different tables
// are not mutually consistent at a single instant.
//
// Storage conventions: enums as strings, timestamps as millisecond epoch
// integers, dates as ISO-8601 date strings (YYYY-MM-DD).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection together with the change notifier.
type Store struct {
	conn     *sql.DB
	path     string
	notifier *Notifier
}

// Open creates or opens the database at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		conn:     conn,
		path:     path,
		notifier: NewNotifier(),
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return s, nil
}

// Close closes the database connection, checkpointing the WAL first.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// Watch subscribes to change signals for a table. The returned channel
// receives a signal after every committed write to that table; signals
// coalesce when the reader lags. The cancel function releases the
// subscription.
func (s *Store) Watch(table Table) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(table)
}

// changed signals watchers of the table. Called after every successful write.
func (s *Store) changed(table Table) {
	s.notifier.Notify(table)
}

// InitSchema creates the database schema if it doesn't exist.
// Idempotent; safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS task (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		notes TEXT,
		owner_id TEXT NOT NULL,
		owner_type TEXT NOT NULL,
		created_by TEXT NOT NULL,
		week_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		repeat_target INTEGER,
		repeat_completed INTEGER NOT NULL DEFAULT 0,
		linked_goal_id TEXT,
		parent_task_id TEXT,
		rolled_from_week_id TEXT,
		review_note TEXT,
		scheduled_date TEXT,
		deadline TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		labels TEXT,  -- JSON array
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS week (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		overall_rating INTEGER,
		review_note TEXT,
		reviewed_at INTEGER,
		planning_completed_at INTEGER,
		PRIMARY KEY (id, user_id)
	);

	CREATE TABLE IF NOT EXISTS goal (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon TEXT,
		kind TEXT NOT NULL,
		target INTEGER NOT NULL,
		duration_weeks INTEGER,
		start_week_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		current_progress INTEGER NOT NULL DEFAULT 0,
		current_week_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Append-only history; one snapshot per goal per week.
	CREATE TABLE IF NOT EXISTS goal_progress (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		week_id TEXT NOT NULL,
		progress_value INTEGER NOT NULL,
		target_value INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (goal_id, week_id)
	);

	CREATE TABLE IF NOT EXISTS partnership (
		id TEXT PRIMARY KEY,
		user1_id TEXT NOT NULL,
		user2_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invite (
		code TEXT PRIMARY KEY,
		creator_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		accepted_by TEXT,
		accepted_at INTEGER,
		status TEXT NOT NULL DEFAULT 'PENDING'
	);

	CREATE TABLE IF NOT EXISTS partner_goal (
		id TEXT PRIMARY KEY,
		partner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		icon TEXT,
		kind TEXT NOT NULL,
		target INTEGER NOT NULL,
		current_progress INTEGER NOT NULL DEFAULT 0,
		current_week_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		updated_at INTEGER NOT NULL,
		synced_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_week ON task(week_id);
	CREATE INDEX IF NOT EXISTS idx_task_owner ON task(owner_id);
	CREATE INDEX IF NOT EXISTS idx_task_goal ON task(linked_goal_id);
	CREATE INDEX IF NOT EXISTS idx_task_parent ON task(parent_task_id);
	CREATE INDEX IF NOT EXISTS idx_task_schedule ON task(scheduled_date);
	CREATE INDEX IF NOT EXISTS idx_goal_owner_status ON goal(owner_id, status);
	CREATE INDEX IF NOT EXISTS idx_goal_progress_goal ON goal_progress(goal_id);
	CREATE INDEX IF NOT EXISTS idx_partnership_users ON partnership(user1_id, user2_id);
	CREATE INDEX IF NOT EXISTS idx_partner_goal_partner ON partner_goal(partner_id);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

const dateLayout = "2006-01-02"

func msec(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMsec(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMsec(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: msec(*t), Valid: true}
}

func msecPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMsec(n.Int64)
	return &t
}

func nullStr(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func strVal(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func dateStr(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored date %q: %w", s, err)
	}
	return t, nil
}
