package intent

import (
	"testing"

	"taskchat/internal/envelope"
	"taskchat/internal/tools"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationAdd(t *testing.T) {
	result := envelope.OK(tools.TaskSummary{ID: 1, Title: "buy milk"})
	msg := Confirmation(AddTask, map[string]any{"title": "buy milk"}, result)
	assert.Equal(t, "I've added 'buy milk' to your task list!", msg)
}

func TestConfirmationList(t *testing.T) {
	result := envelope.OK([]tools.TaskSummary{
		{ID: 1, Title: "buy milk"},
		{ID: 2, Title: "walk the dog"},
		{ID: 3, Title: "file taxes", Completed: true},
	})
	msg := Confirmation(ListTasks, map[string]any{"status": "all"}, result)
	assert.Contains(t, msg, "buy milk")
	assert.Contains(t, msg, "walk the dog")
	assert.Contains(t, msg, "2 pending, 1 completed")
}

func TestConfirmationListEmpty(t *testing.T) {
	result := envelope.OK([]tools.TaskSummary{})
	msg := Confirmation(ListTasks, map[string]any{"status": "all"}, result)
	assert.Equal(t, "You don't have any tasks yet. Would you like to add one?", msg)
}

func TestConfirmationComplete(t *testing.T) {
	result := envelope.OK(tools.TaskSummary{ID: 4, Title: "buy milk", Completed: true})
	msg := Confirmation(CompleteTask, map[string]any{"task_id": int64(4)}, result)
	assert.Equal(t, "Great job! I've marked 'buy milk' as completed!", msg)
}

func TestConfirmationDelete(t *testing.T) {
	result := envelope.OK(tools.DeletionSummary{ID: 2, Title: "walk the dog", Status: "deleted"})
	msg := Confirmation(DeleteTask, map[string]any{"task_id": int64(2)}, result)
	assert.Equal(t, "I've deleted 'walk the dog' from your list", msg)
}

func TestConfirmationFailure(t *testing.T) {
	result := envelope.Err(envelope.CodeNotFound, "task with ID 99 does not exist", nil)
	msg := Confirmation(CompleteTask, map[string]any{"task_id": int64(99)}, result)
	assert.Equal(t, "Sorry, I couldn't complete that action: task with ID 99 does not exist", msg)
}
