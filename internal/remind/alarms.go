package remind

import (
	"fmt"
	"sync"
	"time"

	"github.com/paul010/DailyCosmos/internal/logging"
)

// Sink delivers a fired reminder to the user.
type Sink interface {
	Deliver(n Notification) error
}

// AlarmCenter is the in-process notification subsystem: one time.Timer per
// pending registration, keyed by task id. Delivery goes through the Sink;
// delivery failure is logged and the registration is still consumed.
// Pending timers do not survive a restart, so the daemon re-registers
// future-dated tasks after loading the store.
type AlarmCenter struct {
	sink    Sink
	history *History

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

// NewAlarmCenter creates an alarm center. history may be nil to disable
// the delivery ledger.
func NewAlarmCenter(sink Sink, history *History) *AlarmCenter {
	return &AlarmCenter{
		sink:    sink,
		history: history,
		pending: make(map[string]*time.Timer),
	}
}

// Register arms a one-shot timer for the notification. An existing
// registration under the same id is replaced. A fire time at or before now
// fires immediately.
func (a *AlarmCenter) Register(n Notification) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return fmt.Errorf("alarm center is stopped")
	}
	if prev, ok := a.pending[n.ID]; ok {
		prev.Stop()
	}
	d := time.Until(n.FireAt)
	if d < 0 {
		d = 0
	}
	a.pending[n.ID] = time.AfterFunc(d, func() { a.fire(n) })
	a.mu.Unlock()

	a.record(n, "scheduled")
	return nil
}

// Cancel disarms pending registrations. Unknown ids are ignored.
func (a *AlarmCenter) Cancel(ids []string) {
	for _, id := range ids {
		a.mu.Lock()
		timer, ok := a.pending[id]
		if ok {
			timer.Stop()
			delete(a.pending, id)
		}
		a.mu.Unlock()

		if ok {
			a.record(Notification{ID: id}, "canceled")
			logging.Debug("alarms", "canceled reminder for %s", id)
		}
	}
}

// Pending returns the number of armed registrations.
func (a *AlarmCenter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Stop disarms all timers. Used at shutdown; no "canceled" events are
// recorded because the registrations were not revoked by the user.
func (a *AlarmCenter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for id, timer := range a.pending {
		timer.Stop()
		delete(a.pending, id)
	}
}

func (a *AlarmCenter) fire(n Notification) {
	a.mu.Lock()
	delete(a.pending, n.ID)
	a.mu.Unlock()

	if err := a.sink.Deliver(n); err != nil {
		logging.Warn("alarms", "failed to deliver reminder for %s: %v", n.ID, err)
	} else {
		logging.Info("alarms", "fired reminder for %s: %s", n.ID, logging.Truncate(n.Title, 50))
	}
	a.record(n, "fired")
}

func (a *AlarmCenter) record(n Notification, event string) {
	if a.history == nil {
		return
	}
	if err := a.history.Record(n, event); err != nil {
		logging.Warn("alarms", "failed to record %s event for %s: %v", event, n.ID, err)
	}
}
