package intent

import (
	"fmt"
	"strings"

	"taskchat/internal/envelope"
	"taskchat/internal/tools"
)

// UnavailableMessage is the fixed assistant reply when every provider is
// exhausted. Returned as a successful response, not an error.
const UnavailableMessage = "I'm temporarily unavailable right now. Please try again in a little while!"

// NotFoundMessage is the assistant reply when a name-based task reference
// matches nothing.
func NotFoundMessage(taskName string) string {
	return fmt.Sprintf("I couldn't find a task named '%s'. Try 'Show me my tasks' to see all your tasks.", taskName)
}

// Confirmation renders the deterministic templated reply for a tool result.
// The same templates serve the local-intent path and the synthesized reply
// when a provider returns tool calls but no usable text.
func Confirmation(det Intent, params map[string]any, result envelope.Result) string {
	if !result.Success {
		msg := "Unknown error"
		if result.Error != nil {
			msg = result.Error.Message
		}
		return fmt.Sprintf("Sorry, I couldn't complete that action: %s", msg)
	}

	switch det {
	case AddTask:
		title, _ := params["title"].(string)
		if summary, ok := result.Data.(tools.TaskSummary); ok && summary.Title != "" {
			title = summary.Title
		}
		if title == "" {
			title = "task"
		}
		return fmt.Sprintf("I've added '%s' to your task list!", title)

	case ListTasks:
		summaries, _ := result.Data.([]tools.TaskSummary)
		if len(summaries) == 0 {
			return "You don't have any tasks yet. Would you like to add one?"
		}

		var pending, completed int
		var b strings.Builder
		b.WriteString("Here are your tasks:\n\n")
		for i, task := range summaries {
			marker := "[ ]"
			if task.Completed {
				marker = "[x]"
				completed++
			} else {
				pending++
			}
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, marker, task.Title)
		}
		fmt.Fprintf(&b, "\n%d pending, %d completed", pending, completed)
		return b.String()

	case CompleteTask:
		title := titleFromResult(result, params)
		return fmt.Sprintf("Great job! I've marked '%s' as completed!", title)

	case UpdateTask:
		title := titleFromResult(result, params)
		return fmt.Sprintf("I've updated the task to '%s'", title)

	case DeleteTask:
		if summary, ok := result.Data.(tools.DeletionSummary); ok && summary.Title != "" {
			return fmt.Sprintf("I've deleted '%s' from your list", summary.Title)
		}
		return fmt.Sprintf("I've deleted task %v from your list", params["task_id"])
	}

	return "Task completed successfully!"
}

func titleFromResult(result envelope.Result, params map[string]any) string {
	if summary, ok := result.Data.(tools.TaskSummary); ok && summary.Title != "" {
		return summary.Title
	}
	if title, ok := params["title"].(string); ok && title != "" {
		return title
	}
	return fmt.Sprintf("task %v", params["task_id"])
}
