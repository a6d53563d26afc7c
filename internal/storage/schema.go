package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SchemaVersion is the current schema generation. Migrations below are
// additive and idempotent: they can legitimately run more than once across
// aborted sessions, so every statement must detect already-migrated state.
const SchemaVersion = 2

var baseStmts = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		experience_points REAL NOT NULL DEFAULT 0,
		total_level INTEGER NOT NULL DEFAULT 0,
		streak_data TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS quests (
		quest_id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'main',
		title TEXT NOT NULL,
		description TEXT,
		is_public INTEGER NOT NULL DEFAULT 0,
		is_completed INTEGER NOT NULL DEFAULT 0,
		difficulty TEXT NOT NULL,
		subtasks TEXT,
		schedule TEXT,
		gamification TEXT,
		validation_status TEXT NOT NULL DEFAULT 'queued',
		registered_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		quest_id TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		status TEXT NOT NULL DEFAULT 'active',
		session_type TEXT NOT NULL DEFAULT 'focus',
		xp_earned REAL NOT NULL DEFAULT 0,
		quality INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS task_orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		quest_id TEXT NOT NULL,
		task_order TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS sync_queue (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		collection TEXT NOT NULL,
		document_id TEXT NOT NULL,
		data TEXT,
		user_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		priority INTEGER NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		next_retry_time DATETIME,
		error TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS performance_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		metric_type TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		value REAL NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_quests_owner_completed ON quests(owner_id, is_completed);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_start ON sessions(user_id, start_time);`,
	`CREATE INDEX IF NOT EXISTS idx_task_orders_user_date ON task_orders(user_id, date);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_task_orders_user_date_quest ON task_orders(user_id, date, quest_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sync_queue_priority_ts ON sync_queue(priority, timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_user_metric_ts ON performance_snapshots(user_id, metric_type, timestamp);`,
}

// Version 2: anti-quest tracking.
var v2Stmts = []string{
	`CREATE TABLE IF NOT EXISTS anti_quests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		penalty_xp REAL NOT NULL DEFAULT 0,
		occurrence_count INTEGER NOT NULL DEFAULT 0,
		last_occurred_at DATETIME
	);`,
	`CREATE INDEX IF NOT EXISTS idx_anti_quests_user ON anti_quests(user_id);`,
}

// Additive column changes for databases created before the column existed.
// "duplicate column" errors mean the migration already ran and are ignored.
var alterStmts = []string{
	`ALTER TABLE sessions ADD COLUMN quality INTEGER NOT NULL DEFAULT 0;`,
	`ALTER TABLE quests ADD COLUMN validation_status TEXT NOT NULL DEFAULT 'queued';`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range baseStmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	for _, stmt := range v2Stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
	}
	for _, stmt := range alterStmts {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrate alter: %w", err)
		}
	}
	return setVersion(ctx, db, SchemaVersion)
}

func setVersion(ctx context.Context, db *sql.DB, v int) error {
	row := db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`)
	var cur int
	err := row.Scan(&cur)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, v); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case cur < v:
		if _, err := db.ExecContext(ctx, `UPDATE schema_version SET version = ?`, v); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}
