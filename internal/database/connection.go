package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/kidprogress/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the record store selected by cfg and makes sure the schema exists
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Type {
	case "postgres":
		db, err = sqlx.ConnectContext(ctx, "postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	case "sqlite", "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	if err := InitializeSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database file; ":memory:" is accepted for tests
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers; a single connection also keeps
	// an in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// schema is portable between SQLite and PostgreSQL. Dates without a time
// component are stored as ISO text so both drivers hand back the same string.
var schema = []struct {
	name string
	ddl  string
}{
	{"activities", `
		CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT ''
		)`},
	{"activity_progress", `
		CREATE TABLE IF NOT EXISTS activity_progress (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			activity_id TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0 AND score <= 100),
			completion_status TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`},
	{"idx_activity_progress_student", `
		CREATE INDEX IF NOT EXISTS idx_activity_progress_student
			ON activity_progress (student_id, recorded_at)`},
	{"badges", `
		CREATE TABLE IF NOT EXISTS badges (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			criteria TEXT NOT NULL DEFAULT '{}'
		)`},
	{"student_badges", `
		CREATE TABLE IF NOT EXISTS student_badges (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			badge_id TEXT NOT NULL,
			earned_at TIMESTAMP NOT NULL,
			badge_title TEXT NOT NULL DEFAULT '',
			badge_icon TEXT NOT NULL DEFAULT '',
			badge_description TEXT NOT NULL DEFAULT '',
			activity_title TEXT NOT NULL DEFAULT '',
			activity_category TEXT NOT NULL DEFAULT '',
			activity_difficulty TEXT NOT NULL DEFAULT '',
			activity_score INTEGER,
			UNIQUE (student_id, badge_id)
		)`},
	{"streaks", `
		CREATE TABLE IF NOT EXISTS streaks (
			student_id TEXT PRIMARY KEY,
			current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
			longest_streak INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
			last_active_date TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
	{"idx_streaks_last_active", `
		CREATE INDEX IF NOT EXISTS idx_streaks_last_active
			ON streaks (last_active_date)`},
}

// InitializeSchema creates necessary tables if they don't exist
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}
	return nil
}
