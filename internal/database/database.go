package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const DefaultActionLimit = 50

// Open opens (creating if needed) the sqlite database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS action_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL CHECK(action IN ('signup', 'unregister')),
		activity TEXT NOT NULL,
		email TEXT NOT NULL,
		outcome TEXT NOT NULL,
		message TEXT,
		status_code INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_action_logs_activity ON action_logs(activity);
	CREATE INDEX IF NOT EXISTS idx_action_logs_created ON action_logs(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// ActionLogs records and lists relayed actions.
type ActionLogs struct {
	db  *sql.DB
	now func() time.Time
}

func NewActionLogs(db *sql.DB) *ActionLogs {
	return &ActionLogs{db: db, now: time.Now}
}

func (l *ActionLogs) RecordAction(ctx context.Context, entry ActionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO action_logs (action, activity, email, outcome, message, status_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.Action, entry.Activity, entry.Email, entry.Outcome, entry.Message, entry.StatusCode, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}
	return nil
}

// RecentActions lists the newest actions first, optionally for one activity.
func (l *ActionLogs) RecentActions(ctx context.Context, activity string, limit int) ([]ActionLog, error) {
	if limit <= 0 || limit > DefaultActionLimit {
		limit = DefaultActionLimit
	}

	query := `
		SELECT id, action, activity, email, outcome, COALESCE(message, ''), status_code, created_at
		FROM action_logs
	`
	var args []interface{}
	if activity != "" {
		query += " WHERE activity = ?"
		args = append(args, activity)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query action logs: %w", err)
	}
	defer rows.Close()

	logs := []ActionLog{}
	for rows.Next() {
		var entry ActionLog
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Activity, &entry.Email,
			&entry.Outcome, &entry.Message, &entry.StatusCode, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action log: %w", err)
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
