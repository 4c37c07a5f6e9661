package provider

import (
	"context"
	"time"

	"taskchat/internal/tools"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// GoogleAI is the Gemini-style adapter. It retries rate-limit-classified
// failures with capped exponential backoff before reporting exhaustion;
// any other failure propagates immediately.
type GoogleAI struct {
	llm         *googleai.GoogleAI
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

func NewGoogleAI(ctx context.Context, apiKey, model string, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) (*GoogleAI, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &GoogleAI{llm: llm, maxAttempts: maxAttempts, baseDelay: baseDelay, logger: logger}, nil
}

func (p *GoogleAI) Name() string { return "googleai" }

func (p *GoogleAI) Call(ctx context.Context, history []Message, schemas []tools.Schema) (string, []ToolCall, bool, error) {
	opts := []llms.CallOption{}
	if ts, ok := translateGeminiTools(schemas); ok && len(ts) > 0 {
		opts = append(opts, llms.WithTools(ts))
	} else if !ok {
		p.logger.Warn("failed to translate tool schemas, proceeding without tools")
	}

	messages := toMessageContent(history)

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		resp, err := p.llm.GenerateContent(ctx, messages, opts...)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", nil, false, nil
			}
			choice := resp.Choices[0]
			return choice.Content, extractToolCalls(choice.ToolCalls, p.logger), false, nil
		}

		if !rateLimited(err) {
			return "", nil, false, err
		}

		if attempt < p.maxAttempts-1 {
			delay := p.baseDelay << attempt
			p.logger.Warn("googleai rate limited, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return "", nil, false, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		p.logger.Warn("googleai quota exceeded after retries",
			zap.Int("attempts", p.maxAttempts), zap.Error(err))
	}

	return "", nil, true, nil
}

// translateGeminiTools rebuilds each parameter object keeping only the
// property types the Gemini schema can express. An untranslatable schema
// fails the whole set; the caller then proceeds without tools instead of
// failing the call.
func translateGeminiTools(schemas []tools.Schema) ([]llms.Tool, bool) {
	out := make([]llms.Tool, 0, len(schemas))
	for _, s := range schemas {
		params, ok := translateGeminiParameters(s.Parameters)
		if !ok {
			return nil, false
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  params,
			},
		})
	}
	return out, true
}

func translateGeminiParameters(params map[string]any) (map[string]any, bool) {
	properties, _ := params["properties"].(map[string]any)
	translated := make(map[string]any, len(properties))
	for name, def := range properties {
		prop, ok := def.(map[string]any)
		if !ok {
			return nil, false
		}
		typ, _ := prop["type"].(string)
		switch typ {
		case "string", "integer", "number", "boolean":
		default:
			return nil, false
		}
		p := map[string]any{"type": typ}
		if desc, ok := prop["description"].(string); ok {
			p["description"] = desc
		}
		if enum, ok := prop["enum"]; ok {
			p["enum"] = enum
		}
		translated[name] = p
	}

	result := map[string]any{
		"type":       "object",
		"properties": translated,
	}
	if required, ok := params["required"]; ok {
		result["required"] = required
	}
	return result, true
}
