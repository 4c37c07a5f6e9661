package tools

import (
	"context"
	"fmt"

	"taskchat/internal/envelope"
)

// Schema describes a tool in the provider-neutral shape every adapter
// translates from: {name, description, parameters} with a JSON-schema-style
// object for parameters.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Schemas returns the fixed tool surface offered to providers. The user id
// is deliberately absent from every schema; it is injected server-side.
func Schemas() []Schema {
	return []Schema{
		{
			Name:        "add_task",
			Description: "Create a new todo task for the user",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Title of the task"},
					"description": map[string]any{"type": "string", "description": "Optional description of the task"},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "list_tasks",
			Description: "Retrieve the user's todo tasks with optional filtering",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"all", "pending", "completed"},
						"description": "Filter tasks by completion status",
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        "complete_task",
			Description: "Mark a specific task as completed",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{"type": "integer", "description": "ID of the task to complete"},
				},
				"required": []string{"task_id"},
			},
		},
		{
			Name:        "update_task",
			Description: "Modify an existing task's title or description",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id":     map[string]any{"type": "integer", "description": "ID of the task to update"},
					"title":       map[string]any{"type": "string", "description": "New title for the task (optional)"},
					"description": map[string]any{"type": "string", "description": "New description for the task (optional)"},
				},
				"required": []string{"task_id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Remove a specific task",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{"type": "integer", "description": "ID of the task to delete"},
				},
				"required": []string{"task_id"},
			},
		},
	}
}

// Execute dispatches a tool invocation by name. The user id comes from the
// authenticated request, never from the arguments; anything outside the
// fixed set reports UNKNOWN_TOOL.
func (t *Tools) Execute(ctx context.Context, userID int64, name string, args map[string]any) envelope.Result {
	switch name {
	case "add_task":
		return t.AddTask(ctx, userID, AddTaskArgs{
			Title:       stringArg(args, "title"),
			Description: stringArg(args, "description"),
			Priority:    stringArg(args, "priority"),
			Tags:        stringArg(args, "tags"),
		})
	case "list_tasks":
		return t.ListTasks(ctx, userID, stringArg(args, "status"))
	case "complete_task":
		id, ok := intArg(args, "task_id")
		if !ok {
			return missingTaskID()
		}
		return t.CompleteTask(ctx, userID, id)
	case "update_task":
		id, ok := intArg(args, "task_id")
		if !ok {
			return missingTaskID()
		}
		var upd UpdateTaskArgs
		if v, ok := args["title"]; ok {
			if s, ok := v.(string); ok {
				upd.Title = &s
			}
		}
		if v, ok := args["description"]; ok {
			if s, ok := v.(string); ok {
				upd.Description = &s
			}
		}
		return t.UpdateTask(ctx, userID, id, upd)
	case "delete_task":
		id, ok := intArg(args, "task_id")
		if !ok {
			return missingTaskID()
		}
		return t.DeleteTask(ctx, userID, id)
	default:
		return envelope.Err(envelope.CodeUnknownTool,
			fmt.Sprintf("unknown tool: %s", name),
			map[string]any{"tool_name": name})
	}
}

func missingTaskID() envelope.Result {
	return envelope.Err(envelope.CodeValidation, "task_id is required for this operation",
		map[string]any{"field": "task_id"})
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// intArg tolerates the numeric shapes JSON decoding and provider SDKs
// produce for integer parameters.
func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case string:
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			return id, true
		}
	}
	return 0, false
}
