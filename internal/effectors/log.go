package effectors

import (
	"time"

	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/remind"
)

// LogSink writes alerts to the daemon log. Used when no Discord channel is
// configured.
type LogSink struct{}

func (LogSink) Deliver(n remind.Notification) error {
	logging.Info("reminder", "%s: %s (due %s)", n.Title, n.Body, n.FireAt.Format(time.Kitchen))
	return nil
}
