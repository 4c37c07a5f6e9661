package chat

import (
	"strings"
	"testing"

	"taskchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func historyOrchestrator(budget int) *Orchestrator {
	// Directly constructed so the token count is the deterministic
	// rune-length estimate rather than a real encoding.
	return &Orchestrator{logger: zap.NewNop(), historyBudget: budget}
}

func TestBuildHistoryKeepsAllWithinBudget(t *testing.T) {
	o := historyOrchestrator(1000)
	messages := []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
		{Role: models.RoleUser, Content: "add a task"},
	}

	history := o.buildHistory(messages)

	require.Len(t, history, 4)
	assert.Equal(t, models.RoleSystem, history[0].Role)
	assert.Equal(t, "hello", history[1].Content)
	assert.Equal(t, "add a task", history[3].Content)
}

func TestBuildHistoryTrimsOldestFirst(t *testing.T) {
	o := historyOrchestrator(10)
	long := strings.Repeat("x", 20) // costs ~6 with the rune estimate
	messages := []models.Message{
		{Role: models.RoleUser, Content: "oldest " + long},
		{Role: models.RoleAssistant, Content: "middle " + long},
		{Role: models.RoleUser, Content: "newest " + long},
	}

	history := o.buildHistory(messages)

	require.Len(t, history, 2)
	assert.Equal(t, models.RoleSystem, history[0].Role)
	assert.Contains(t, history[1].Content, "newest")
}

func TestBuildHistoryAlwaysKeepsNewest(t *testing.T) {
	o := historyOrchestrator(1)
	messages := []models.Message{
		{Role: models.RoleUser, Content: strings.Repeat("x", 500)},
	}

	history := o.buildHistory(messages)

	require.Len(t, history, 2)
	assert.Equal(t, models.RoleSystem, history[0].Role)
	assert.Equal(t, models.RoleUser, history[1].Role)
}
