package ingest

import (
	"fmt"
	"strings"
	"time"
)

// buildPrompt embeds the fixed instruction, the caller's timezone identifier
// and UTC offset, the current local timestamp, and the raw input. The model
// needs the local clock context to resolve relative expressions.
func buildPrompt(text string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(`You are a task capture assistant. Extract one to-do task from the user's input.

Return ONLY a JSON object of this exact shape, with no other text:

{"title": "short task title", "dueDate": "ISO-8601 timestamp with offset, or null"}

Rules:
- "title" is the task itself, without date or time words.
- "dueDate" is the absolute instant the task is due, resolved against the
  user's current local time below. Use null when the input names no time.
`)

	// The process-local zone stringifies as "Local", which tells the model
	// nothing; fall back to the abbreviation in effect at this instant.
	zone := now.Location().String()
	if zone == "Local" || zone == "" {
		zone, _ = now.Zone()
	}
	sb.WriteString(fmt.Sprintf("\nUser timezone: %s (UTC%s)\n",
		zone, now.Format("-07:00")))
	sb.WriteString(fmt.Sprintf("Current local time: %s\n", now.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("\nInput: %s\n", text))

	return sb.String()
}
