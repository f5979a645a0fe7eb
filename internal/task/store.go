package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore persists task snapshots into the ledger database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened ledger database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts one task snapshot.
func (s *SQLiteStore) Save(t Task) error {
	var contextJSON any
	if len(t.Context) > 0 {
		data, err := json.Marshal(t.Context)
		if err != nil {
			return fmt.Errorf("marshal task context: %w", err)
		}
		contextJSON = string(data)
	}

	_, err := s.db.Exec(`
INSERT INTO tasks(id, session_id, description, status, priority, context, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status = excluded.status,
  updated_at = excluded.updated_at`,
		t.ID,
		t.SessionID,
		t.Description,
		string(t.Status),
		string(t.Priority),
		contextJSON,
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// List returns persisted tasks, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, description, status, priority, context, created_at, updated_at
FROM tasks
ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t           Task
			status      string
			priority    string
			contextJSON sql.NullString
			createdAt   string
			updatedAt   string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Description, &status, &priority, &contextJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = Status(status)
		t.Priority = Priority(priority)
		if contextJSON.Valid && contextJSON.String != "" {
			if err := json.Unmarshal([]byte(contextJSON.String), &t.Context); err != nil {
				return nil, fmt.Errorf("unmarshal task context: %w", err)
			}
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
