package provider

import (
	"context"

	"taskchat/internal/tools"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAI is the OpenAI-style adapter. A custom base URL makes it work
// against any OpenAI-compatible endpoint, including local runtimes.
type OpenAI struct {
	llm    *openai.LLM
	logger *zap.Logger
}

func NewOpenAI(token, baseURL, model string, logger *zap.Logger) (*OpenAI, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &OpenAI{llm: llm, logger: logger}, nil
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Call(ctx context.Context, history []Message, schemas []tools.Schema) (string, []ToolCall, bool, error) {
	opts := []llms.CallOption{}
	if ts := translateOpenAITools(schemas); len(ts) > 0 {
		opts = append(opts, llms.WithTools(ts))
	}

	resp, err := p.llm.GenerateContent(ctx, toMessageContent(history), opts...)
	if err != nil {
		if rateLimited(err) {
			p.logger.Warn("openai quota exceeded", zap.Error(err))
			return "", nil, true, nil
		}
		return "", nil, false, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, false, nil
	}

	choice := resp.Choices[0]
	return choice.Content, extractToolCalls(choice.ToolCalls, p.logger), false, nil
}

// translateOpenAITools passes the parameter object through unchanged; the
// neutral schema shape is already what an OpenAI-style endpoint expects.
func translateOpenAITools(schemas []tools.Schema) []llms.Tool {
	out := make([]llms.Tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}
