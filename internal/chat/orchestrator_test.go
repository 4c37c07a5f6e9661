package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskchat/internal/config"
	"taskchat/internal/db"
	"taskchat/internal/envelope"
	"taskchat/internal/intent"
	"taskchat/internal/provider"
	"taskchat/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider is a canned provider for pipeline tests; it records how often
// it was called and what it was called with.
type stubProvider struct {
	text      string
	calls     []provider.ToolCall
	exhausted bool
	invoked   int
	history   []provider.Message
	schemas   []tools.Schema
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Call(ctx context.Context, history []provider.Message, schemas []tools.Schema) (string, []provider.ToolCall, bool, error) {
	s.invoked++
	s.history = history
	s.schemas = schemas
	return s.text, s.calls, s.exhausted, nil
}

type fixture struct {
	orchestrator *Orchestrator
	database     *db.Database
	tools        *tools.Tools
	userID       int64
}

func newFixture(t *testing.T, providers ...provider.Provider) *fixture {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	user, err := database.CreateUser("alice@example.com", "hash")
	require.NoError(t, err)

	logger := zap.NewNop()
	toolset := tools.New(database, logger)
	fallback := provider.NewFallback(providers, time.Second, logger)
	orchestrator := New(database, toolset, fallback, config.ChatConfig{HistoryTokenBudget: 2000}, logger)

	return &fixture{orchestrator: orchestrator, database: database, tools: toolset, userID: user.ID}
}

func replyFrom(t *testing.T, res envelope.Result) *Reply {
	t.Helper()
	require.True(t, res.Success, "expected success, got %+v", res.Error)
	reply, ok := res.Data.(*Reply)
	require.True(t, ok)
	return reply
}

func TestLocalAddTaskSkipsProviders(t *testing.T) {
	stub := &stubProvider{text: "should never be used"}
	f := newFixture(t, stub)

	res := f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: "Add a task to buy milk"})

	reply := replyFrom(t, res)
	assert.Contains(t, reply.Response, "buy milk")
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "add_task", reply.ToolCalls[0].Name)
	assert.Zero(t, stub.invoked, "recognized commands must not reach a provider")

	tasks, err := f.database.ListTasks(f.userID, "all")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Title)
}

func TestLocalListSummarizesCounts(t *testing.T) {
	f := newFixture(t, &stubProvider{})
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		require.True(t, f.tools.AddTask(ctx, f.userID, tools.AddTaskArgs{Title: title}).Success)
	}
	res := f.tools.ListTasks(ctx, f.userID, "all")
	require.True(t, res.Success)
	firstID := res.Data.([]tools.TaskSummary)[0].ID
	require.True(t, f.tools.CompleteTask(ctx, f.userID, firstID).Success)

	reply := replyFrom(t, f.orchestrator.HandleMessage(ctx,
		Request{UserID: f.userID, Message: "Show me my tasks"}))

	assert.Contains(t, reply.Response, "2 pending, 1 completed")
	assert.Contains(t, reply.Response, "[x] first")
}

func TestLocalCompleteByName(t *testing.T) {
	stub := &stubProvider{}
	f := newFixture(t, stub)
	ctx := context.Background()

	require.True(t, f.tools.AddTask(ctx, f.userID, tools.AddTaskArgs{Title: "Buy Milk"}).Success)

	reply := replyFrom(t, f.orchestrator.HandleMessage(ctx,
		Request{UserID: f.userID, Message: `finish task "buy milk"`}))

	assert.Equal(t, "Great job! I've marked 'Buy Milk' as completed!", reply.Response)
	assert.Zero(t, stub.invoked)

	completed, err := f.database.ListTasks(f.userID, "completed")
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestLocalCompleteByNameNotFound(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	reply := replyFrom(t, f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: `finish task "pay rent"`}))

	assert.Equal(t, intent.NotFoundMessage("pay rent"), reply.Response)
	assert.Empty(t, reply.ToolCalls)
}

func TestDelegatedAllExhausted(t *testing.T) {
	stub := &stubProvider{exhausted: true}
	f := newFixture(t, stub)

	reply := replyFrom(t, f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: "tell me a joke"}))

	assert.Equal(t, intent.UnavailableMessage, reply.Response)
	assert.Equal(t, 1, stub.invoked)

	// Both the user turn and the degraded reply are on record.
	messages, err := f.database.GetConversationMessages(reply.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, intent.UnavailableMessage, messages[1].Content)
}

func TestDelegatedToolCallStripsUserID(t *testing.T) {
	stub := &stubProvider{
		calls: []provider.ToolCall{{
			Name:      "add_task",
			Arguments: map[string]any{"title": "from model", "user_id": float64(9999)},
		}},
	}
	f := newFixture(t, stub)

	reply := replyFrom(t, f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: "can you note something down for me"}))

	require.Len(t, reply.ToolCalls, 1)
	assert.True(t, reply.ToolCalls[0].Result.Success)
	assert.Equal(t, "I've added 'from model' to your task list!", reply.Response)

	// The task lands under the authenticated user, not the injected id.
	tasks, err := f.database.ListTasks(f.userID, "all")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "from model", tasks[0].Title)
}

func TestDelegatedReceivesHistoryAndSchemas(t *testing.T) {
	stub := &stubProvider{text: "hello there"}
	f := newFixture(t, stub)

	reply := replyFrom(t, f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: "hello assistant"}))

	assert.Equal(t, "hello there", reply.Response)
	require.Len(t, stub.schemas, 5)
	require.NotEmpty(t, stub.history)
	assert.Equal(t, "system", stub.history[0].Role)
	assert.Equal(t, "hello assistant", stub.history[len(stub.history)-1].Content)
}

func TestConversationReuse(t *testing.T) {
	f := newFixture(t, &stubProvider{text: "ok"})
	ctx := context.Background()

	first := replyFrom(t, f.orchestrator.HandleMessage(ctx,
		Request{UserID: f.userID, Message: "hello"}))
	second := replyFrom(t, f.orchestrator.HandleMessage(ctx,
		Request{UserID: f.userID, ConversationID: first.ConversationID, Message: "hello again"}))

	assert.Equal(t, first.ConversationID, second.ConversationID)

	messages, err := f.database.GetConversationMessages(first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestConversationTitleTruncated(t *testing.T) {
	f := newFixture(t, &stubProvider{text: "ok"})

	long := strings.Repeat("a", 80)
	reply := replyFrom(t, f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: long}))

	conv, err := f.database.GetConversation(f.userID, reply.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, strings.Repeat("a", 50)+"...", conv.Title)
}

func TestConversationNotFound(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	res := f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, ConversationID: 999, Message: "hello"})

	require.False(t, res.Success)
	assert.Equal(t, envelope.CodeConversationNotFound, res.Error.Code)
}

func TestEmptyMessageRejected(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	res := f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: f.userID, Message: "   "})

	require.False(t, res.Success)
	assert.Equal(t, envelope.CodeValidation, res.Error.Code)
}

func TestUnknownUserRejected(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	res := f.orchestrator.HandleMessage(context.Background(),
		Request{UserID: 9999, Message: "hello"})

	require.False(t, res.Success)
	assert.Equal(t, envelope.CodeUserNotFound, res.Error.Code)
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "short", truncateTitle("  short  "))
	assert.Equal(t, strings.Repeat("x", 50)+"...", truncateTitle(strings.Repeat("x", 51)))
	// Rune-safe, not byte-safe.
	wide := strings.Repeat("日", 60)
	assert.Equal(t, strings.Repeat("日", 50)+"...", truncateTitle(wide))
}
