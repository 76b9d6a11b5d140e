// Package sqlite provides SQLite-based persistent storage for mindpath.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// FileName is the database file created inside the data directory.
const FileName = "mindpath.db"

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the SQLite database at dir/mindpath.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db, now: time.Now}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// SetClock overrides the clock used for store-side timestamps (tests only).
func (d *DB) SetClock(now func() time.Time) { d.now = now }

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// PingContext checks database connectivity, honoring ctx.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Users and their progress aggregate (total_xp + optimistic version)
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			time_zone  TEXT NOT NULL DEFAULT 'UTC',
			total_xp   INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
			version    INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// Insertion-only activity history, one row per user-local day
		`CREATE TABLE IF NOT EXISTS activity_days (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			day     TEXT NOT NULL,
			PRIMARY KEY (user_id, day)
		)`,

		// Completion counters backing category achievement rules
		`CREATE TABLE IF NOT EXISTS completion_counts (
			user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			count    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, category)
		)`,

		// Unlocked achievements (never re-lock)
		`CREATE TABLE IF NOT EXISTS user_achievements (
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			achievement_id TEXT NOT NULL,
			unlocked_at    INTEGER NOT NULL,
			notified       BOOLEAN DEFAULT 0,
			PRIMARY KEY (user_id, achievement_id)
		)`,

		// Completion audit log
		`CREATE TABLE IF NOT EXISTS exercise_completions (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			exercise_id TEXT NOT NULL,
			category    TEXT NOT NULL,
			xp_awarded  INTEGER NOT NULL,
			occurred_at INTEGER NOT NULL,
			day         TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_user ON exercise_completions(user_id, occurred_at)`,

		// Append-only mood log
		`CREATE TABLE IF NOT EXISTS mood_entries (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			mood        TEXT NOT NULL,
			intensity   INTEGER NOT NULL,
			note        TEXT NOT NULL DEFAULT '',
			occurred_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_moods_user ON mood_entries(user_id, occurred_at)`,

		// Notification log (policy: max N/day, quiet hours)
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user_created ON notifications(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside a transaction, committing on nil error.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
