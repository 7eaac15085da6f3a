// Package store owns the authoritative in-memory task collection and its
// durable mirror: a single JSON array document on disk. The in-memory list
// is the source of truth for a running session; persistence is best-effort
// and never rolls back a completed mutation.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/task"
)

const storeFilename = "tasks.json"

// Reminders is the slice of the scheduler the store drives: register on
// add, cancel on delete. A nil Reminders disables reminder handling.
type Reminders interface {
	Schedule(t task.Task)
	Cancel(ids []string)
}

// Listener receives a sorted snapshot after every mutation.
type Listener func(tasks []task.Task)

// Store manages the task collection with a JSON file mirror.
type Store struct {
	path      string
	reminders Reminders

	mu        sync.Mutex
	tasks     []task.Task
	listeners []Listener
}

// New creates a store backed by <statePath>/tasks.json.
func New(statePath string, reminders Reminders) *Store {
	return &Store{
		path:      filepath.Join(statePath, storeFilename),
		reminders: reminders,
		tasks:     []task.Task{},
	}
}

// Load reads the task document from disk. A missing file means an empty
// collection. A malformed document (bad JSON, record without a title) is
// non-fatal: the store falls back to empty and the error is returned as a
// diagnostic for the caller to log.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = []task.Task{}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read task store: %w", err)
	}

	var loaded []task.Task
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse task store, starting empty: %w", err)
	}

	for i := range loaded {
		if strings.TrimSpace(loaded[i].Title) == "" {
			return fmt.Errorf("failed to parse task store, starting empty: record %d has no title", i)
		}
		// Documents written by the older minimal schema carry no ids.
		if loaded[i].ID == "" {
			loaded[i].ID = task.NewID()
		}
	}

	s.tasks = loaded
	return nil
}

// Add constructs a new task, appends it, registers a reminder when the due
// date is set, and persists. A returned error with a non-nil task means the
// task was added but the save failed; the in-memory state stands.
func (s *Store) Add(title string, due *time.Time) (*task.Task, error) {
	t, err := task.New(title, due)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, *t)
	s.mu.Unlock()

	if s.reminders != nil {
		s.reminders.Schedule(*t)
	}

	// The in-memory append is authoritative: listeners hear about it even
	// when persistence fails.
	var saveErr error
	if err := s.Save(); err != nil {
		saveErr = fmt.Errorf("task added but not persisted: %w", err)
	}
	s.notify()
	return t, saveErr
}

// Toggle flips the completion flag of the matching task. A missing id is a
// no-op, not an error; the bool reports whether a task was found.
func (s *Store) Toggle(id string) (bool, error) {
	s.mu.Lock()
	found := false
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].IsCompleted = !s.tasks[i].IsCompleted
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		logging.Debug("store", "toggle: no task with id %s", id)
		return false, nil
	}

	err := s.Save()
	s.notify()
	return true, err
}

// Delete removes all matching tasks in one pass, cancelling their pending
// reminders before the records drop, and persists once for the whole batch.
// Returns the number of tasks removed.
func (s *Store) Delete(ids []string) (int, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	var matched []string
	for i := range s.tasks {
		if want[s.tasks[i].ID] {
			matched = append(matched, s.tasks[i].ID)
		}
	}
	s.mu.Unlock()

	if len(matched) == 0 {
		return 0, nil
	}

	// Cancel while the records still exist: cancellation is keyed by id
	// and must complete before the tasks disappear.
	if s.reminders != nil {
		s.reminders.Cancel(matched)
	}

	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if !want[t.ID] {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()

	err := s.Save()
	s.notify()
	return len(matched), err
}

// Save recomputes the sort order, serializes the collection, and replaces
// the backing document atomically (temp file + rename) so a crash or a
// concurrent reader never observes a partial write.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sortTasks(s.tasks)

	data, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task store: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write task store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace task store: %w", err)
	}

	return nil
}

// Tasks returns a sorted snapshot of the collection.
func (s *Store) Tasks() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]task.Task, len(s.tasks))
	copy(result, s.tasks)
	sortTasks(result)
	return result
}

// Get returns a copy of the task with the given id, or nil.
func (s *Store) Get(id string) *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			t := s.tasks[i]
			return &t
		}
	}
	return nil
}

// Len returns the number of tasks in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Subscribe registers a listener invoked with a sorted snapshot after each
// mutation. Listeners run synchronously on the mutating call.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	snapshot := s.Tasks()
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// sortTasks applies the display/persist order: dated tasks ascending by due
// instant, then undated tasks by case-insensitive title.
func sortTasks(ts []task.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil:
			return true
		case b.DueDate != nil:
			return false
		default:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	})
}
