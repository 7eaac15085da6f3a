package task

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task represents one to-do record. The ID is generated once at creation
// and persisted, so reminder cancellation by ID survives a relaunch.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// ErrEmptyTitle is returned when a title is empty after trimming.
var ErrEmptyTitle = errors.New("task title is empty")

// New constructs a task with a fresh ID. The title is trimmed and must be
// non-empty afterwards; this is the single creation path for both manual
// and ingested tasks.
func New(title string, due *time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	t := &Task{
		ID:    NewID(),
		Title: title,
	}
	if due != nil {
		d := *due
		t.DueDate = &d
	}
	return t, nil
}

// NewID generates a new opaque task identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseDueDate parses a due date using strict ISO-8601 (RFC 3339).
func ParseDueDate(s string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
