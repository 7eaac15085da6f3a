package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paul010/DailyCosmos/internal/task"
)

// fakeReminders records scheduler calls and optionally probes the store at
// cancellation time.
type fakeReminders struct {
	scheduled []task.Task
	canceled  [][]string
	onCancel  func(ids []string)
}

func (f *fakeReminders) Schedule(t task.Task) {
	f.scheduled = append(f.scheduled, t)
}

func (f *fakeReminders) Cancel(ids []string) {
	if f.onCancel != nil {
		f.onCancel(ids)
	}
	f.canceled = append(f.canceled, ids)
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := New(t.TempDir(), nil)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d tasks", s.Len())
	}
}

func TestStore_AddToggleDelete(t *testing.T) {
	s := New(t.TempDir(), nil)

	tk, err := s.Add("Buy milk", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if tk.ID == "" {
		t.Fatal("Expected task ID to be set")
	}

	ok, err := s.Toggle(tk.ID)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected toggle to find the task")
	}
	if got := s.Get(tk.ID); got == nil || !got.IsCompleted {
		t.Error("Expected task to be completed after toggle")
	}

	n, err := s.Delete([]string{tk.ID})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deletion, got %d", n)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store after delete, got %d", s.Len())
	}
}

func TestStore_AddRejectsEmptyTitle(t *testing.T) {
	s := New(t.TempDir(), nil)
	if _, err := s.Add("   ", nil); err != task.ErrEmptyTitle {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("Expected no task to be created")
	}
}

func TestStore_ToggleMissingIsNoop(t *testing.T) {
	s := New(t.TempDir(), nil)
	s.Add("Keep me", nil)

	ok, err := s.Toggle("nonexistent")
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if ok {
		t.Error("Expected toggle miss to report not found")
	}
	if s.Len() != 1 {
		t.Errorf("Expected collection unchanged, got %d tasks", s.Len())
	}
	if s.Tasks()[0].IsCompleted {
		t.Error("Expected existing task untouched")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	due := time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)
	s.Add("Dated", &due)
	s.Add("zebra", nil)
	s.Add("Apple", nil)
	completed, _ := s.Add("Done already", nil)
	s.Toggle(completed.ID)

	s2 := New(dir, nil)
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := s2.Tasks()
	want := s.Tasks()
	if len(got) != len(want) {
		t.Fatalf("Expected %d tasks after reload, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("task %d: expected id %s, got %s", i, want[i].ID, got[i].ID)
		}
		if got[i].Title != want[i].Title {
			t.Errorf("task %d: expected title %q, got %q", i, want[i].Title, got[i].Title)
		}
		if got[i].IsCompleted != want[i].IsCompleted {
			t.Errorf("task %d: completion flag mismatch", i)
		}
		if (got[i].DueDate == nil) != (want[i].DueDate == nil) {
			t.Errorf("task %d: due date presence mismatch", i)
		}
		if got[i].DueDate != nil && !got[i].DueDate.Equal(*want[i].DueDate) {
			t.Errorf("task %d: expected due %v, got %v", i, want[i].DueDate, got[i].DueDate)
		}
	}
}

func TestStore_LoadCorruptFallsBackEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, storeFilename)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(dir, nil)
	err := s.Load()
	if err == nil {
		t.Fatal("Expected diagnostic error for corrupt document")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store after corrupt load, got %d", s.Len())
	}

	// The store must stay usable.
	if _, err := s.Add("Recover", nil); err != nil {
		t.Fatalf("Add after corrupt load failed: %v", err)
	}
}

func TestStore_LoadRejectsRecordWithoutTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, storeFilename)
	doc := `[{"id":"a","title":"ok","isCompleted":false},{"id":"b","title":"  ","isCompleted":false}]`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(dir, nil)
	if err := s.Load(); err == nil {
		t.Fatal("Expected diagnostic error for record without title")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d tasks", s.Len())
	}
}

func TestStore_LoadAssignsMissingIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, storeFilename)
	doc := `[{"title":"Legacy record","isCompleted":false}]`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(dir, nil)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tasks := s.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	if tasks[0].ID == "" {
		t.Error("Expected a fresh id for the legacy record")
	}
}

func TestStore_SortOrder(t *testing.T) {
	s := New(t.TempDir(), nil)

	late := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	early := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s.Add("zebra", nil)
	s.Add("Later dated", &late)
	s.Add("Apple", nil)
	s.Add("Earlier dated", &early)

	got := s.Tasks()
	titles := []string{got[0].Title, got[1].Title, got[2].Title, got[3].Title}
	want := []string{"Earlier dated", "Later dated", "Apple", "zebra"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, titles)
		}
	}
}

func TestStore_SortIdempotent(t *testing.T) {
	s := New(t.TempDir(), nil)
	due := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	s.Add("beta", nil)
	s.Add("alpha", nil)
	s.Add("dated", &due)

	first := s.Tasks()
	second := s.Tasks()
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("Sort not idempotent at index %d", i)
		}
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	s := New(t.TempDir(), nil)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tk, err := s.Add("Task", nil)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if seen[tk.ID] {
			t.Fatalf("Duplicate id: %s", tk.ID)
		}
		seen[tk.ID] = true
	}
	// Deleting and re-adding never reuses an id.
	tasks := s.Tasks()
	s.Delete([]string{tasks[0].ID})
	tk, _ := s.Add("Task", nil)
	if seen[tk.ID] {
		t.Fatalf("Reused id after delete: %s", tk.ID)
	}
}

func TestStore_AddSchedulesReminder(t *testing.T) {
	rem := &fakeReminders{}
	s := New(t.TempDir(), rem)

	due := time.Now().Add(24 * time.Hour)
	tk, err := s.Add("Dated", &due)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if len(rem.scheduled) != 1 {
		t.Fatalf("Expected 1 schedule call, got %d", len(rem.scheduled))
	}
	if rem.scheduled[0].ID != tk.ID {
		t.Errorf("Expected schedule for %s, got %s", tk.ID, rem.scheduled[0].ID)
	}
}

func TestStore_DeleteCancelsBeforeRemoval(t *testing.T) {
	rem := &fakeReminders{}
	s := New(t.TempDir(), rem)

	due := time.Now().Add(time.Hour)
	tk, _ := s.Add("Doomed", &due)
	keep, _ := s.Add("Kept", nil)

	var presentAtCancel bool
	rem.onCancel = func(ids []string) {
		presentAtCancel = s.Get(tk.ID) != nil
	}

	n, err := s.Delete([]string{tk.ID, "missing"})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deletion, got %d", n)
	}
	if len(rem.canceled) != 1 {
		t.Fatalf("Expected 1 cancel call for the batch, got %d", len(rem.canceled))
	}
	if len(rem.canceled[0]) != 1 || rem.canceled[0][0] != tk.ID {
		t.Errorf("Expected cancel of [%s], got %v", tk.ID, rem.canceled[0])
	}
	if !presentAtCancel {
		t.Error("Expected task still present when its reminder was canceled")
	}
	if s.Get(keep.ID) == nil {
		t.Error("Expected unrelated task to survive the batch delete")
	}
}

func TestStore_DeleteNoMatchesIsNoop(t *testing.T) {
	rem := &fakeReminders{}
	s := New(t.TempDir(), rem)
	s.Add("Keep", nil)

	n, err := s.Delete([]string{"missing"})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 deletions, got %d", n)
	}
	if len(rem.canceled) != 0 {
		t.Error("Expected no cancel calls for an empty batch")
	}
}

func TestStore_SubscribeReceivesSnapshots(t *testing.T) {
	s := New(t.TempDir(), nil)

	var calls int
	var last []task.Task
	s.Subscribe(func(tasks []task.Task) {
		calls++
		last = tasks
	})

	s.Add("One", nil)
	s.Add("Two", nil)

	if calls != 2 {
		t.Errorf("Expected 2 notifications, got %d", calls)
	}
	if len(last) != 2 {
		t.Errorf("Expected snapshot of 2 tasks, got %d", len(last))
	}
}

func TestStore_AddNotifiesWhenSaveFails(t *testing.T) {
	// A plain file where the state directory should be makes every save
	// fail while the in-memory mutation still stands.
	dir := t.TempDir()
	blocked := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(blocked, nil)
	var calls int
	var last []task.Task
	s.Subscribe(func(tasks []task.Task) {
		calls++
		last = tasks
	})

	tk, err := s.Add("Survives", nil)
	if tk == nil {
		t.Fatal("Expected the task to be created despite the save failure")
	}
	if err == nil {
		t.Error("Expected a save error to be reported")
	}
	if s.Len() != 1 {
		t.Errorf("Expected task in memory, got %d tasks", s.Len())
	}
	if calls != 1 {
		t.Fatalf("Expected 1 notification despite save failure, got %d", calls)
	}
	if len(last) != 1 || last[0].ID != tk.ID {
		t.Errorf("Expected snapshot with the new task, got %v", last)
	}
}

func TestStore_SaveWritesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	s.Add("Persist me", nil)

	// No stray temp files left behind after the atomic replace.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != storeFilename {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only %s in state dir, got %v", storeFilename, names)
	}
}
