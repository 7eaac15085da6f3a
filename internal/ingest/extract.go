package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/task"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// draftSchema describes the payload the model is instructed to return.
var draftSchema = jsonschema.MustCompileString("draft.json", `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"dueDate": {"type": ["string", "null"]}
	},
	"required": ["title"]
}`)

// extractObject pulls the JSON object out of a free-form reply: everything
// from the first '{' to the last '}' inclusive. Surrounding commentary is
// discarded rather than treated as a parse failure.
func extractObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoStructuredData
	}
	return s[start : end+1], nil
}

// parseDraft validates the model reply and produces a draft. An empty title
// fails the operation; an unparseable or blank dueDate degrades to "no due
// date" instead.
func parseDraft(reply string) (*Draft, error) {
	raw, err := extractObject(reply)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed structured data: %w", err)
	}
	if err := draftSchema.Validate(payload); err != nil {
		return nil, fmt.Errorf("malformed structured data: %w", err)
	}

	var obj struct {
		Title   string  `json:"title"`
		DueDate *string `json:"dueDate"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("malformed structured data: %w", err)
	}

	title := strings.TrimSpace(obj.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	d := &Draft{Title: title}
	if obj.DueDate != nil && strings.TrimSpace(*obj.DueDate) != "" {
		due, err := task.ParseDueDate(*obj.DueDate)
		if err != nil {
			logging.Debug("ingest", "unparseable dueDate %q, treating as none", *obj.DueDate)
		} else {
			d.DueDate = due
		}
	}
	return d, nil
}
