// Package provider normalizes heterogeneous language-model APIs into one
// call shape and drives the fixed-order fallback between them.
package provider

import (
	"context"
	"encoding/json"
	"strings"

	"taskchat/internal/models"
	"taskchat/internal/tools"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Message is one turn of conversation history, in the uniform role set
// (system, user, assistant) regardless of provider.
type Message struct {
	Role    string
	Content string
}

// ToolCall is a structured tool-invocation request in the uniform shape,
// whichever provider produced it.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Provider is one external language-model endpoint. Call returns the
// response text and any tool invocations. exhausted is true when the
// provider signalled quota/rate-limit exhaustion; that is a recoverable
// condition for the caller, not an error. All other failures come back as
// err.
type Provider interface {
	Name() string
	Call(ctx context.Context, history []Message, schemas []tools.Schema) (text string, calls []ToolCall, exhausted bool, err error)
}

// rateLimited classifies provider errors that should drive fallback rather
// than propagate: HTTP 429, quota wording, or a resource-exhausted status.
func rateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"429", "quota", "rate limit", "rate_limit", "resource_exhausted"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

func toMessageContent(history []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		var role llms.ChatMessageType
		switch msg.Role {
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

// extractToolCalls converts the native tool-call representation into the
// uniform shape, dropping calls whose arguments fail to decode.
func extractToolCalls(native []llms.ToolCall, logger *zap.Logger) []ToolCall {
	var calls []ToolCall
	for _, tc := range native {
		if tc.FunctionCall == nil {
			continue
		}
		args := map[string]any{}
		if tc.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
				logger.Warn("dropping tool call with undecodable arguments",
					zap.String("tool", tc.FunctionCall.Name), zap.Error(err))
				continue
			}
		}
		calls = append(calls, ToolCall{Name: tc.FunctionCall.Name, Arguments: args})
	}
	return calls
}
