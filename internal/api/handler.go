package api

import (
	"net/http"
	"strconv"

	"taskchat/internal/auth"
	"taskchat/internal/chat"
	"taskchat/internal/db"
	"taskchat/internal/envelope"
	"taskchat/internal/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	db     *db.Database
	auth   *auth.Service
	tools  *tools.Tools
	chat   *chat.Orchestrator
	logger *zap.Logger
}

func NewHandler(database *db.Database, authService *auth.Service, toolset *tools.Tools, orchestrator *chat.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		db:     database,
		auth:   authService,
		tools:  toolset,
		chat:   orchestrator,
		logger: logger,
	}
}

// statusFor maps envelope error codes to HTTP statuses. Success is always
// 200; the envelope carries the real outcome either way.
func statusFor(result envelope.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Error.Code {
	case envelope.CodeValidation, envelope.CodeDuplicateEmail, envelope.CodeInvalidCredentials:
		return http.StatusBadRequest
	case envelope.CodeUnauthorized:
		return http.StatusUnauthorized
	case envelope.CodeNotFound, envelope.CodeUserNotFound, envelope.CodeConversationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, result envelope.Result) {
	c.JSON(statusFor(result), result)
}

// ---- auth ----

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, envelope.Err(envelope.CodeValidation, "email and password are required", nil))
		return
	}
	respond(c, h.auth.Register(req.Email, req.Password))
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, envelope.Err(envelope.CodeValidation, "email and password are required", nil))
		return
	}
	respond(c, h.auth.Login(req.Email, req.Password))
}

// ---- tasks ----

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Tags        string `json:"tags"`
}

func (h *Handler) CreateTask(c *gin.Context) {
	userID, _ := auth.UserID(c)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, envelope.Err(envelope.CodeValidation, "title is required", map[string]any{"field": "title"}))
		return
	}

	respond(c, h.tools.AddTask(c.Request.Context(), userID, tools.AddTaskArgs{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}))
}

func (h *Handler) ListTasks(c *gin.Context) {
	userID, _ := auth.UserID(c)
	respond(c, h.tools.ListTasks(c.Request.Context(), userID, c.Query("status")))
}

func (h *Handler) GetTask(c *gin.Context) {
	userID, _ := auth.UserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.db.GetTask(userID, taskID)
	if err != nil {
		h.logger.Error("failed to load task", zap.Error(err), zap.Int64("task_id", taskID))
		respond(c, envelope.Err(envelope.CodeDatabase, "failed to load task", nil))
		return
	}
	if task == nil {
		respond(c, envelope.Err(envelope.CodeNotFound, "task not found", map[string]any{"task_id": taskID}))
		return
	}
	respond(c, envelope.OK(task))
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority"`
	Tags        *string `json:"tags"`
}

func (h *Handler) UpdateTask(c *gin.Context) {
	userID, _ := auth.UserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, envelope.Err(envelope.CodeValidation, "invalid request body", nil))
		return
	}

	respond(c, h.tools.UpdateTask(c.Request.Context(), userID, taskID, tools.UpdateTaskArgs{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}))
}

// ToggleTaskComplete flips the completion flag.
func (h *Handler) ToggleTaskComplete(c *gin.Context) {
	userID, _ := auth.UserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.db.GetTask(userID, taskID)
	if err != nil {
		h.logger.Error("failed to load task", zap.Error(err), zap.Int64("task_id", taskID))
		respond(c, envelope.Err(envelope.CodeDatabase, "failed to load task", nil))
		return
	}
	if task == nil {
		respond(c, envelope.Err(envelope.CodeNotFound, "task not found", map[string]any{"task_id": taskID}))
		return
	}

	completed := !task.Completed
	respond(c, h.tools.UpdateTask(c.Request.Context(), userID, taskID, tools.UpdateTaskArgs{
		Completed: &completed,
	}))
}

func (h *Handler) DeleteTask(c *gin.Context) {
	userID, _ := auth.UserID(c)
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	respond(c, h.tools.DeleteTask(c.Request.Context(), userID, taskID))
}

// ---- conversations ----

func (h *Handler) ListConversations(c *gin.Context) {
	userID, _ := auth.UserID(c)

	conversations, err := h.db.ListConversations(userID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err), zap.Int64("user_id", userID))
		respond(c, envelope.Err(envelope.CodeDatabase, "failed to list conversations", nil))
		return
	}
	respond(c, envelope.OK(conversations))
}

func (h *Handler) GetConversationMessages(c *gin.Context) {
	userID, _ := auth.UserID(c)
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	conv, err := h.db.GetConversation(userID, convID)
	if err != nil {
		h.logger.Error("failed to load conversation", zap.Error(err), zap.Int64("conversation_id", convID))
		respond(c, envelope.Err(envelope.CodeDatabase, "failed to load conversation", nil))
		return
	}
	if conv == nil {
		respond(c, envelope.Err(envelope.CodeConversationNotFound, "conversation not found",
			map[string]any{"conversation_id": convID}))
		return
	}

	messages, err := h.db.GetConversationMessages(convID)
	if err != nil {
		h.logger.Error("failed to load messages", zap.Error(err), zap.Int64("conversation_id", convID))
		respond(c, envelope.Err(envelope.CodeDatabase, "failed to load messages", nil))
		return
	}
	respond(c, envelope.OK(messages))
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	userID, _ := auth.UserID(c)
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.db.DeleteConversation(userID, convID)
	if err != nil {
		h.logger.Error("failed to delete conversation", zap.Error(err), zap.Int64("conversation_id", convID))
		respond(c, envelope.Err(envelope.CodeDatabase, "failed to delete conversation", nil))
		return
	}
	if !deleted {
		respond(c, envelope.Err(envelope.CodeConversationNotFound, "conversation not found",
			map[string]any{"conversation_id": convID}))
		return
	}
	respond(c, envelope.OK(map[string]any{"id": convID, "status": "deleted"}))
}

// ---- chat ----

type chatRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

func (h *Handler) Chat(c *gin.Context) {
	userID, _ := auth.UserID(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, envelope.Err(envelope.CodeValidation, "message is required", map[string]any{"field": "message"}))
		return
	}

	respond(c, h.chat.HandleMessage(c.Request.Context(), chat.Request{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
	}))
}

func pathID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		respond(c, envelope.Err(envelope.CodeValidation, "invalid id", map[string]any{"field": param}))
		return 0, false
	}
	return id, true
}
