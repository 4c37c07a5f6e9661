// Package chat sequences a chat request end to end: resolve the user and
// conversation, persist the incoming message, route it through the local
// intent parser or the provider fallback, execute tool calls, synthesize a
// reply, and persist the assistant message.
package chat

import (
	"context"
	"fmt"
	"strings"

	"taskchat/internal/config"
	"taskchat/internal/db"
	"taskchat/internal/envelope"
	"taskchat/internal/intent"
	"taskchat/internal/models"
	"taskchat/internal/provider"
	"taskchat/internal/tools"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const titleLimit = 50

type Orchestrator struct {
	db            *db.Database
	tools         *tools.Tools
	parser        *intent.Parser
	fallback      *provider.Fallback
	logger        *zap.Logger
	historyBudget int
	encoder       *tiktoken.Tiktoken
}

func New(database *db.Database, toolset *tools.Tools, fallback *provider.Fallback, cfg config.ChatConfig, logger *zap.Logger) *Orchestrator {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("token encoding unavailable, history budget will use a length estimate", zap.Error(err))
		encoder = nil
	}

	return &Orchestrator{
		db:            database,
		tools:         toolset,
		parser:        intent.NewParser(),
		fallback:      fallback,
		logger:        logger,
		historyBudget: cfg.HistoryTokenBudget,
		encoder:       encoder,
	}
}

type Request struct {
	UserID         int64
	ConversationID int64 // 0 means create a new conversation
	Message        string
}

// ToolCallRecord reports one executed tool invocation back to the caller.
type ToolCallRecord struct {
	Name      string          `json:"name"`
	Arguments map[string]any  `json:"arguments"`
	Result    envelope.Result `json:"result"`
}

type Reply struct {
	ConversationID int64            `json:"conversation_id"`
	Response       string           `json:"response"`
	ToolCalls      []ToolCallRecord `json:"tool_calls"`
}

// HandleMessage runs the whole pipeline for one chat request. It never
// returns a raw internal error: anything unexpected is caught here and
// reported as INTERNAL_ERROR with a sanitized message.
func (o *Orchestrator) HandleMessage(ctx context.Context, req Request) (result envelope.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("chat pipeline panicked", zap.Any("panic", r), zap.Int64("user_id", req.UserID))
			result = envelope.Err(envelope.CodeInternal, "failed to process chat request", nil)
		}
	}()

	if strings.TrimSpace(req.Message) == "" {
		return envelope.Err(envelope.CodeValidation, "message cannot be empty", map[string]any{"field": "message"})
	}

	user, err := o.db.GetUserByID(req.UserID)
	if err != nil {
		o.logger.Error("failed to resolve user", zap.Error(err), zap.Int64("user_id", req.UserID))
		return envelope.Err(envelope.CodeDatabase, "failed to process chat request", nil)
	}
	if user == nil {
		return envelope.Err(envelope.CodeUserNotFound,
			fmt.Sprintf("user with ID %d does not exist", req.UserID),
			map[string]any{"user_id": req.UserID})
	}

	conv, res := o.resolveConversation(req)
	if res != nil {
		return *res
	}

	// The user message is recorded before any branching so history survives
	// downstream failures.
	userMsg := &models.Message{ConvID: conv.ID, Role: models.RoleUser, Content: req.Message}
	if err := o.db.SaveMessage(userMsg); err != nil {
		o.logger.Error("failed to save user message", zap.Error(err), zap.Int64("conversation_id", conv.ID))
		return envelope.Err(envelope.CodeDatabase, "failed to save message", nil)
	}

	det, params := o.parser.Parse(req.Message)
	if det != intent.None {
		if reply, handled := o.runLocal(ctx, req.UserID, conv, det, params); handled {
			return reply
		}
		// Name resolution hit a storage error; fall through to the
		// provider branch rather than failing the request.
	}

	return o.runDelegated(ctx, req.UserID, conv)
}

func (o *Orchestrator) resolveConversation(req Request) (*models.Conversation, *envelope.Result) {
	if req.ConversationID != 0 {
		conv, err := o.db.GetConversation(req.UserID, req.ConversationID)
		if err != nil {
			o.logger.Error("failed to resolve conversation", zap.Error(err),
				zap.Int64("conversation_id", req.ConversationID))
			res := envelope.Err(envelope.CodeDatabase, "failed to process chat request", nil)
			return nil, &res
		}
		if conv == nil {
			res := envelope.Err(envelope.CodeConversationNotFound,
				fmt.Sprintf("conversation with ID %d does not exist", req.ConversationID),
				map[string]any{"conversation_id": req.ConversationID})
			return nil, &res
		}
		return conv, nil
	}

	conv, err := o.db.CreateConversation(req.UserID, truncateTitle(req.Message))
	if err != nil {
		o.logger.Error("failed to create conversation", zap.Error(err), zap.Int64("user_id", req.UserID))
		res := envelope.Err(envelope.CodeDatabase, "failed to create conversation", nil)
		return nil, &res
	}
	return conv, nil
}

// runLocal executes a recognized intent without any provider call. The
// second return value is false only when a storage failure prevented
// name-based resolution; the caller then falls back to the provider path.
func (o *Orchestrator) runLocal(ctx context.Context, userID int64, conv *models.Conversation, det intent.Intent, params map[string]any) (envelope.Result, bool) {
	if name, ok := params["task_name"].(string); ok {
		delete(params, "task_name")

		listRes := o.tools.ListTasks(ctx, userID, "all")
		if !listRes.Success {
			o.logger.Warn("task name lookup failed, delegating to provider",
				zap.String("task_name", name))
			return envelope.Result{}, false
		}

		match := matchByName(listRes.Data, name)
		if match == nil {
			content := intent.NotFoundMessage(name)
			if res := o.persistAssistant(conv.ID, content); res != nil {
				return *res, true
			}
			return envelope.OK(&Reply{ConversationID: conv.ID, Response: content, ToolCalls: []ToolCallRecord{}}), true
		}
		params["task_id"] = match.ID
	}

	toolResult := o.tools.Execute(ctx, userID, string(det), params)
	content := intent.Confirmation(det, params, toolResult)

	if res := o.persistAssistant(conv.ID, content); res != nil {
		return *res, true
	}

	o.logger.Info("local intent executed",
		zap.String("intent", string(det)),
		zap.Int64("conversation_id", conv.ID),
		zap.Bool("success", toolResult.Success))

	return envelope.OK(&Reply{
		ConversationID: conv.ID,
		Response:       content,
		ToolCalls: []ToolCallRecord{
			{Name: string(det), Arguments: params, Result: toolResult},
		},
	}), true
}

// runDelegated reconstructs the conversation history and hands the turn to
// the provider fallback, executing whatever tool calls come back.
func (o *Orchestrator) runDelegated(ctx context.Context, userID int64, conv *models.Conversation) envelope.Result {
	messages, err := o.db.GetConversationMessages(conv.ID)
	if err != nil {
		o.logger.Error("failed to load history", zap.Error(err), zap.Int64("conversation_id", conv.ID))
		return envelope.Err(envelope.CodeDatabase, "failed to process chat request", nil)
	}

	text, calls, allExhausted := o.fallback.Call(ctx, o.buildHistory(messages), tools.Schemas())
	if allExhausted {
		// Deliberate graceful degradation, not an error.
		if res := o.persistAssistant(conv.ID, intent.UnavailableMessage); res != nil {
			return *res
		}
		return envelope.OK(&Reply{
			ConversationID: conv.ID,
			Response:       intent.UnavailableMessage,
			ToolCalls:      []ToolCallRecord{},
		})
	}

	records := make([]ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		// The model is never trusted to supply or override the user id.
		delete(call.Arguments, "user_id")
		toolResult := o.tools.Execute(ctx, userID, call.Name, call.Arguments)
		records = append(records, ToolCallRecord{Name: call.Name, Arguments: call.Arguments, Result: toolResult})
	}

	if strings.TrimSpace(text) == "" && len(records) > 0 {
		text = o.synthesize(records)
	}
	if strings.TrimSpace(text) == "" {
		text = "Task completed successfully!"
	}

	if res := o.persistAssistant(conv.ID, text); res != nil {
		return *res
	}

	return envelope.OK(&Reply{ConversationID: conv.ID, Response: text, ToolCalls: records})
}

// synthesize builds a deterministic reply from tool results when the
// provider executed tools but returned no usable text.
func (o *Orchestrator) synthesize(records []ToolCallRecord) string {
	confirmations := make([]string, 0, len(records))
	for _, record := range records {
		confirmations = append(confirmations,
			intent.Confirmation(intent.Intent(record.Name), record.Arguments, record.Result))
	}
	return strings.Join(confirmations, "\n\n")
}

func (o *Orchestrator) persistAssistant(convID int64, content string) *envelope.Result {
	msg := &models.Message{ConvID: convID, Role: models.RoleAssistant, Content: content}
	if err := o.db.SaveMessage(msg); err != nil {
		o.logger.Error("failed to save assistant message", zap.Error(err), zap.Int64("conversation_id", convID))
		res := envelope.Err(envelope.CodeDatabase, "failed to save assistant message", nil)
		return &res
	}
	return nil
}

func matchByName(data any, name string) *tools.TaskSummary {
	summaries, ok := data.([]tools.TaskSummary)
	if !ok {
		return nil
	}
	needle := strings.ToLower(name)
	for i := range summaries {
		if strings.Contains(strings.ToLower(summaries[i].Title), needle) {
			return &summaries[i]
		}
	}
	return nil
}

func truncateTitle(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}
