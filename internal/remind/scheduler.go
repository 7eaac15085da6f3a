// Package remind maps tasks with future due dates onto one-shot alerts.
// The Scheduler holds the policy (future-only, minute granularity,
// grant-gated); the Subsystem it drives owns the pending registrations.
package remind

import (
	"time"

	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/task"
)

// Notification describes one pending one-shot alert, keyed by task id.
type Notification struct {
	ID     string
	Title  string
	Body   string
	FireAt time.Time
}

// Subsystem registers and cancels pending alerts. Cancelling an unknown id
// is a no-op. Registering an id that is already pending replaces it.
type Subsystem interface {
	Register(n Notification) error
	Cancel(ids []string)
}

const reminderBody = "Your task is due."

// Scheduler applies the reminder policy on top of a Subsystem.
type Scheduler struct {
	sub     Subsystem
	granted bool
	now     func() time.Time
}

// NewScheduler creates a scheduler. granted reflects the one-time user
// grant for alerts: when false, Schedule is a silent no-op and tasks are
// created without reminders.
func NewScheduler(sub Subsystem, granted bool) *Scheduler {
	return &Scheduler{
		sub:     sub,
		granted: granted,
		now:     time.Now,
	}
}

// Schedule registers a one-shot alert for the task. No-op when the due
// date is absent or not strictly in the future: past-due tasks never
// produce a reminder. Registration failure is logged and never blocks the
// task lifecycle.
func (s *Scheduler) Schedule(t task.Task) {
	if !s.granted || s.sub == nil {
		return
	}
	if t.DueDate == nil {
		return
	}
	if !t.DueDate.After(s.now()) {
		logging.Debug("remind", "not scheduling past-due task %s", t.ID)
		return
	}

	// Seconds are dropped when constructing the fire trigger. A due date
	// under a minute away truncates to an instant the clock already passed;
	// the subsystem treats such a registration as due now and fires it
	// immediately.
	fire := t.DueDate.Truncate(time.Minute)

	err := s.sub.Register(Notification{
		ID:     t.ID,
		Title:  t.Title,
		Body:   reminderBody,
		FireAt: fire,
	})
	if err != nil {
		logging.Warn("remind", "failed to register reminder for %s: %v", t.ID, err)
		return
	}
	logging.Debug("remind", "scheduled %s at %s", t.ID, fire.Format(time.RFC3339))
}

// Cancel removes any pending alerts for the given ids.
func (s *Scheduler) Cancel(ids []string) {
	if s.sub == nil {
		return
	}
	s.sub.Cancel(ids)
}
