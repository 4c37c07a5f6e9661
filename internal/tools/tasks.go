// Package tools implements the fixed set of task operations executed on
// behalf of the chat orchestrator and the REST surface. Every operation is
// scoped by the owning user and reports through the uniform envelope.
package tools

import (
	"context"
	"fmt"
	"strings"

	"taskchat/internal/db"
	"taskchat/internal/envelope"
	"taskchat/internal/models"

	"go.uber.org/zap"
)

const (
	maxTitleLength       = 500
	maxDescriptionLength = 10000
)

type Tools struct {
	db     *db.Database
	logger *zap.Logger
}

func New(database *db.Database, logger *zap.Logger) *Tools {
	return &Tools{db: database, logger: logger}
}

// TaskSummary is the task shape exposed through the envelope.
type TaskSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

// DeletionSummary reports a removed task.
type DeletionSummary struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func summarize(task *models.Task) TaskSummary {
	return TaskSummary{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Priority:    task.Priority,
		Tags:        task.Tags,
	}
}

func (t *Tools) validateUser(userID int64) *envelope.Result {
	user, err := t.db.GetUserByID(userID)
	if err != nil {
		t.logger.Error("failed to look up user", zap.Error(err), zap.Int64("user_id", userID))
		res := envelope.Err(envelope.CodeDatabase, "failed to verify user", nil)
		return &res
	}
	if user == nil {
		res := envelope.Err(envelope.CodeUserNotFound,
			fmt.Sprintf("user with ID %d does not exist", userID),
			map[string]any{"user_id": userID})
		return &res
	}
	return nil
}

type AddTaskArgs struct {
	Title       string
	Description string
	Priority    string
	Tags        string
}

func (t *Tools) AddTask(ctx context.Context, userID int64, args AddTaskArgs) envelope.Result {
	if res := t.validateUser(userID); res != nil {
		return *res
	}

	title := strings.TrimSpace(args.Title)
	if title == "" {
		return envelope.Err(envelope.CodeValidation, "task title cannot be empty", map[string]any{"field": "title"})
	}
	if len(title) > maxTitleLength {
		return envelope.Err(envelope.CodeValidation,
			fmt.Sprintf("task title cannot exceed %d characters", maxTitleLength),
			map[string]any{"field": "title"})
	}
	if len(args.Description) > maxDescriptionLength {
		return envelope.Err(envelope.CodeValidation,
			fmt.Sprintf("task description cannot exceed %d characters", maxDescriptionLength),
			map[string]any{"field": "description"})
	}

	priority := args.Priority
	if !models.ValidPriority(priority) {
		priority = models.PriorityMedium
	}

	task := &models.Task{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(args.Description),
		Priority:    priority,
		Tags:        strings.TrimSpace(args.Tags),
	}
	if err := t.db.CreateTask(task); err != nil {
		t.logger.Error("failed to create task", zap.Error(err), zap.Int64("user_id", userID))
		return envelope.Err(envelope.CodeDatabase, "failed to create task", nil)
	}

	return envelope.OK(summarize(task))
}

func (t *Tools) ListTasks(ctx context.Context, userID int64, status string) envelope.Result {
	if res := t.validateUser(userID); res != nil {
		return *res
	}

	tasks, err := t.db.ListTasks(userID, status)
	if err != nil {
		t.logger.Error("failed to list tasks", zap.Error(err), zap.Int64("user_id", userID))
		return envelope.Err(envelope.CodeDatabase, "failed to list tasks", nil)
	}

	summaries := make([]TaskSummary, 0, len(tasks))
	for i := range tasks {
		summaries = append(summaries, summarize(&tasks[i]))
	}
	return envelope.OK(summaries)
}

func (t *Tools) CompleteTask(ctx context.Context, userID, taskID int64) envelope.Result {
	if res := t.validateUser(userID); res != nil {
		return *res
	}

	task, err := t.db.GetTask(userID, taskID)
	if err != nil {
		t.logger.Error("failed to load task", zap.Error(err), zap.Int64("task_id", taskID))
		return envelope.Err(envelope.CodeDatabase, "failed to complete task", nil)
	}
	if task == nil {
		return taskNotFound(taskID)
	}

	task.Completed = true
	if err := t.db.UpdateTask(task); err != nil {
		t.logger.Error("failed to complete task", zap.Error(err), zap.Int64("task_id", taskID))
		return envelope.Err(envelope.CodeDatabase, "failed to complete task", nil)
	}

	return envelope.OK(summarize(task))
}

// UpdateTaskArgs carries the partial update; nil fields are left unchanged.
type UpdateTaskArgs struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *string
	Tags        *string
}

func (t *Tools) UpdateTask(ctx context.Context, userID, taskID int64, args UpdateTaskArgs) envelope.Result {
	if res := t.validateUser(userID); res != nil {
		return *res
	}

	task, err := t.db.GetTask(userID, taskID)
	if err != nil {
		t.logger.Error("failed to load task", zap.Error(err), zap.Int64("task_id", taskID))
		return envelope.Err(envelope.CodeDatabase, "failed to update task", nil)
	}
	if task == nil {
		return taskNotFound(taskID)
	}

	if args.Title != nil {
		title := strings.TrimSpace(*args.Title)
		if title == "" {
			return envelope.Err(envelope.CodeValidation, "task title cannot be empty", map[string]any{"field": "title"})
		}
		if len(title) > maxTitleLength {
			return envelope.Err(envelope.CodeValidation,
				fmt.Sprintf("task title cannot exceed %d characters", maxTitleLength),
				map[string]any{"field": "title"})
		}
		task.Title = title
	}
	if args.Description != nil {
		if len(*args.Description) > maxDescriptionLength {
			return envelope.Err(envelope.CodeValidation,
				fmt.Sprintf("task description cannot exceed %d characters", maxDescriptionLength),
				map[string]any{"field": "description"})
		}
		task.Description = strings.TrimSpace(*args.Description)
	}
	if args.Completed != nil {
		task.Completed = *args.Completed
	}
	if args.Priority != nil && models.ValidPriority(*args.Priority) {
		task.Priority = *args.Priority
	}
	if args.Tags != nil {
		task.Tags = strings.TrimSpace(*args.Tags)
	}

	if err := t.db.UpdateTask(task); err != nil {
		t.logger.Error("failed to update task", zap.Error(err), zap.Int64("task_id", taskID))
		return envelope.Err(envelope.CodeDatabase, "failed to update task", nil)
	}

	return envelope.OK(summarize(task))
}

func (t *Tools) DeleteTask(ctx context.Context, userID, taskID int64) envelope.Result {
	if res := t.validateUser(userID); res != nil {
		return *res
	}

	task, err := t.db.GetTask(userID, taskID)
	if err != nil {
		t.logger.Error("failed to load task", zap.Error(err), zap.Int64("task_id", taskID))
		return envelope.Err(envelope.CodeDatabase, "failed to delete task", nil)
	}
	if task == nil {
		return taskNotFound(taskID)
	}

	deleted, err := t.db.DeleteTask(userID, taskID)
	if err != nil {
		t.logger.Error("failed to delete task", zap.Error(err), zap.Int64("task_id", taskID))
		return envelope.Err(envelope.CodeDatabase, "failed to delete task", nil)
	}
	if !deleted {
		return taskNotFound(taskID)
	}

	return envelope.OK(DeletionSummary{ID: task.ID, Title: task.Title, Status: "deleted"})
}

// taskNotFound covers both an absent task and one owned by another user, so
// the response cannot be used to enumerate other users' task ids.
func taskNotFound(taskID int64) envelope.Result {
	return envelope.Err(envelope.CodeNotFound,
		fmt.Sprintf("task with ID %d does not exist", taskID),
		map[string]any{"task_id": taskID})
}
