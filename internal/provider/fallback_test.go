package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskchat/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider returns canned results and counts how often it was called.
type fakeProvider struct {
	name      string
	text      string
	calls     []ToolCall
	exhausted bool
	err       error
	invoked   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Call(ctx context.Context, history []Message, schemas []tools.Schema) (string, []ToolCall, bool, error) {
	f.invoked++
	return f.text, f.calls, f.exhausted, f.err
}

func newTestFallback(providers ...Provider) *Fallback {
	return NewFallback(providers, time.Second, zap.NewNop())
}

func TestFallbackFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "first", text: "hello"}
	second := &fakeProvider{name: "second", text: "unused"}

	text, calls, allExhausted := newTestFallback(first, second).Call(context.Background(), nil, nil)

	assert.Equal(t, "hello", text)
	assert.Empty(t, calls)
	assert.False(t, allExhausted)
	assert.Equal(t, 1, first.invoked)
	assert.Zero(t, second.invoked)
}

func TestFallbackSkipsExhaustedProvider(t *testing.T) {
	first := &fakeProvider{name: "first", exhausted: true}
	second := &fakeProvider{name: "second", text: "from second"}

	text, _, allExhausted := newTestFallback(first, second).Call(context.Background(), nil, nil)

	assert.Equal(t, "from second", text)
	assert.False(t, allExhausted)
	assert.Equal(t, 1, first.invoked)
	assert.Equal(t, 1, second.invoked)
}

func TestFallbackSkipsFailedProvider(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("connection refused")}
	second := &fakeProvider{name: "second", text: "from second"}

	text, _, allExhausted := newTestFallback(first, second).Call(context.Background(), nil, nil)

	assert.Equal(t, "from second", text)
	assert.False(t, allExhausted)
}

func TestFallbackAllExhausted(t *testing.T) {
	first := &fakeProvider{name: "first", exhausted: true}
	second := &fakeProvider{name: "second", err: errors.New("boom")}

	text, calls, allExhausted := newTestFallback(first, second).Call(context.Background(), nil, nil)

	assert.Empty(t, text)
	assert.Nil(t, calls)
	assert.True(t, allExhausted)
	assert.Equal(t, 1, first.invoked)
	assert.Equal(t, 1, second.invoked)
}

func TestFallbackNoProviders(t *testing.T) {
	_, _, allExhausted := newTestFallback().Call(context.Background(), nil, nil)
	assert.True(t, allExhausted)
}

func TestFallbackPassesToolCallsThrough(t *testing.T) {
	wanted := []ToolCall{{Name: "add_task", Arguments: map[string]any{"title": "buy milk"}}}
	first := &fakeProvider{name: "first", calls: wanted}

	text, calls, allExhausted := newTestFallback(first).Call(context.Background(), nil, nil)

	assert.Empty(t, text)
	require.Len(t, calls, 1)
	assert.Equal(t, "add_task", calls[0].Name)
	assert.False(t, allExhausted)
}

func TestRateLimitedDetection(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("googleapi: Error 429: Resource has been exhausted"), true},
		{errors.New("insufficient quota for this request"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("RESOURCE_EXHAUSTED: quota metric reached"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rateLimited(tc.err), "err=%v", tc.err)
	}
}
