package provider

import (
	"context"
	"time"

	"taskchat/internal/tools"

	"go.uber.org/zap"
)

// Fallback tries providers in a fixed priority order. Exhaustion moves to
// the next provider; so does an unexpected error, logged and swallowed.
// It holds no per-call state, so one instance serves concurrent requests.
type Fallback struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

func NewFallback(providers []Provider, timeout time.Duration, logger *zap.Logger) *Fallback {
	return &Fallback{providers: providers, timeout: timeout, logger: logger}
}

// Call runs a single pass over the configured providers. allExhausted is
// true only when every provider either signalled exhaustion or failed.
func (f *Fallback) Call(ctx context.Context, history []Message, schemas []tools.Schema) (text string, calls []ToolCall, allExhausted bool) {
	for _, p := range f.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
		text, calls, exhausted, err := p.Call(attemptCtx, history, schemas)
		cancel()

		if err != nil {
			f.logger.Error("provider failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if exhausted {
			f.logger.Warn("provider exhausted, trying next", zap.String("provider", p.Name()))
			continue
		}

		f.logger.Debug("provider succeeded", zap.String("provider", p.Name()))
		return text, calls, false
	}

	f.logger.Error("all providers exhausted or failed", zap.Int("providers", len(f.providers)))
	return "", nil, true
}
