package remind

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const historyFilename = "reminders.db"

// History is a best-effort SQLite ledger of reminder lifecycle events
// (scheduled, fired, canceled). It exists for observability only; the task
// store never consults it and does not distinguish fired from canceled.
type History struct {
	db *sql.DB
}

// Event is one recorded reminder transition.
type Event struct {
	TaskID     string
	Title      string
	FireAt     time.Time
	Event      string
	RecordedAt time.Time
}

// OpenHistory opens or creates the ledger under statePath.
func OpenHistory(statePath string) (*History, error) {
	path := filepath.Join(statePath, historyFilename)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reminder history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping reminder history: %w", err)
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate reminder history: %w", err)
	}
	return h, nil
}

func (h *History) migrate() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS reminder_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			title TEXT NOT NULL,
			fire_at TEXT NOT NULL,
			event TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reminder_events_task
			ON reminder_events(task_id);
	`)
	return err
}

// Record appends one lifecycle event.
func (h *History) Record(n Notification, event string) error {
	_, err := h.db.Exec(
		`INSERT INTO reminder_events (task_id, title, fire_at, event, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.FireAt.UTC().Format(time.RFC3339),
		event, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Recent returns the newest events, most recent first.
func (h *History) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(
		`SELECT task_id, title, fire_at, event, recorded_at
		 FROM reminder_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var fireAt, recordedAt string
		if err := rows.Scan(&e.TaskID, &e.Title, &fireAt, &e.Event, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder event: %w", err)
		}
		e.FireAt, _ = time.Parse(time.RFC3339, fireAt)
		e.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
