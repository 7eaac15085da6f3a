package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/paul010/DailyCosmos/internal/ingest"
	"github.com/paul010/DailyCosmos/internal/logging"
	"github.com/paul010/DailyCosmos/internal/remind"
	"github.com/paul010/DailyCosmos/internal/store"
	"github.com/paul010/DailyCosmos/internal/task"
	"github.com/shirou/gopsutil/v3/process"
)

// toolDeps carries the wired core into the tool handlers.
type toolDeps struct {
	store     *store.Store
	alarms    *remind.AlarmCenter
	history   *remind.History
	ingester  *ingest.Client
	apiKey    string
	startedAt time.Time
}

func registerTools(s *server.MCPServer, deps *toolDeps) {
	s.AddTool(addTaskTool(), deps.handleAddTask)
	s.AddTool(listTasksTool(), deps.handleListTasks)
	s.AddTool(toggleTaskTool(), deps.handleToggleTask)
	s.AddTool(deleteTasksTool(), deps.handleDeleteTasks)
	s.AddTool(ingestTaskTool(), deps.handleIngestTask)
	s.AddTool(reminderHistoryTool(), deps.handleReminderHistory)
	s.AddTool(statusTool(), deps.handleStatus)
}

func addTaskTool() mcp.Tool {
	return mcp.NewTool("add_task",
		mcp.WithDescription("Add a to-do task. A future due date schedules a one-shot reminder."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date as an ISO-8601 timestamp with offset, e.g. 2026-01-15T09:30:00-08:00. Optional."),
		),
	)
}

func (d *toolDeps) handleAddTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	title, _ := args["title"].(string)
	dueStr, _ := args["due_date"].(string)

	var due *time.Time
	if dueStr != "" {
		parsed, err := task.ParseDueDate(dueStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid due_date: %v", err)), nil
		}
		due = parsed
	}

	t, err := d.store.Add(title, due)
	if t == nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add task: %v", err)), nil
	}
	if err != nil {
		// Task exists in memory; persistence is best-effort.
		logging.Warn("tools", "%v", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added task %s: %s", t.ID, formatTask(*t))), nil
}

func listTasksTool() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks in display order: dated tasks first (soonest due first), then undated tasks by title."),
	)
}

func (d *toolDeps) handleListTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks := d.store.Tasks()
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks."), nil
	}

	var sb strings.Builder
	for _, t := range tasks {
		mark := " "
		if t.IsCompleted {
			mark = "x"
		}
		fmt.Fprintf(&sb, "[%s] %s  %s\n", mark, t.ID, formatTask(t))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func toggleTaskTool() mcp.Tool {
	return mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip a task's completion flag. Unknown ids are a no-op."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task id"),
		),
	)
}

func (d *toolDeps) handleToggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	found, err := d.store.Toggle(id)
	if err != nil {
		logging.Warn("tools", "%v", err)
	}
	if !found {
		return mcp.NewToolResultText(fmt.Sprintf("No task with id %s; nothing changed.", id)), nil
	}

	t := d.store.Get(id)
	state := "open"
	if t != nil && t.IsCompleted {
		state = "completed"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %s is now %s.", id, state)), nil
}

func deleteTasksTool() mcp.Tool {
	return mcp.NewTool("delete_tasks",
		mcp.WithDescription("Delete tasks by id (comma-separated for a batch). Pending reminders are canceled first; the batch persists as one save."),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Task ids, comma-separated"),
		),
	)
}

func (d *toolDeps) handleDeleteTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	idsStr, _ := args["ids"].(string)

	var ids []string
	for _, id := range strings.Split(idsStr, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is required"), nil
	}

	n, err := d.store.Delete(ids)
	if err != nil {
		logging.Warn("tools", "%v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d task(s).", n)), nil
}

func ingestTaskTool() mcp.Tool {
	return mcp.NewTool("ingest_task",
		mcp.WithDescription("Create a task from natural language, e.g. 'Move trash tomorrow at 9:30'. The language model resolves relative dates against the current local time."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Free-text description of the task"),
		),
	)
}

func (d *toolDeps) handleIngestTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	text, _ := args["text"].(string)

	draft, err := d.ingester.Ingest(ctx, d.apiKey, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Same construction path as a manual add: same id generation, same
	// scheduling trigger, same persistence call.
	t, err := d.store.Add(draft.Title, draft.DueDate)
	if t == nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add task: %v", err)), nil
	}
	if err != nil {
		logging.Warn("tools", "%v", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added task %s: %s", t.ID, formatTask(*t))), nil
}

func reminderHistoryTool() mcp.Tool {
	return mcp.NewTool("reminder_history",
		mcp.WithDescription("Show recent reminder lifecycle events (scheduled, fired, canceled), newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum events to return. Default: 20"),
		),
	)
}

func (d *toolDeps) handleReminderHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if d.history == nil {
		return mcp.NewToolResultError("reminder history is disabled"), nil
	}

	args, _ := req.Params.Arguments.(map[string]any)
	limit := 20
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	events, err := d.history.Recent(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No reminder events."), nil
	}

	var sb strings.Builder
	for _, e := range events {
		fmt.Fprintf(&sb, "%s  %-9s  %s  fire_at=%s\n",
			e.RecordedAt.Format(time.RFC3339), e.Event, e.TaskID,
			e.FireAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func statusTool() mcp.Tool {
	return mcp.NewTool("status",
		mcp.WithDescription("Daemon status: uptime, task count, pending reminders, process CPU and memory."),
	)
}

func (d *toolDeps) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Uptime: %s\n", time.Since(d.startedAt).Round(time.Second))
	fmt.Fprintf(&sb, "Tasks: %d\n", d.store.Len())
	fmt.Fprintf(&sb, "Pending reminders: %d\n", d.alarms.Pending())

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			fmt.Fprintf(&sb, "CPU: %.1f%%\n", cpu)
		}
		if mem, err := proc.MemoryInfo(); err == nil {
			fmt.Fprintf(&sb, "RSS: %.1f MB\n", float64(mem.RSS)/(1024*1024))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func formatTask(t task.Task) string {
	if t.DueDate == nil {
		return t.Title
	}
	return fmt.Sprintf("%s (due %s)", t.Title, t.DueDate.Format("2006-01-02 15:04"))
}
