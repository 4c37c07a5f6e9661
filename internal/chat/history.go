package chat

import (
	"taskchat/internal/models"
	"taskchat/internal/provider"
)

const systemPrompt = `You are a helpful assistant specialized in managing the user's todo tasks.

You have access to tools for adding, listing, completing, updating and deleting tasks.

When the user asks to:
- Add, create or remember a task: use the add_task tool
- See, view or list tasks: use the list_tasks tool, filtering by status if asked
- Complete, finish or mark a task as done: use the complete_task tool
- Change, edit or update a task: use the update_task tool
- Remove or delete a task: use the delete_task tool

Only perform actions the user explicitly requests. Always confirm what you did,
mentioning the task title. If the request is ambiguous, ask for clarification.
For anything that is not a task operation, answer conversationally and keep
responses concise and friendly.`

// buildHistory assembles the provider-facing history: the system prompt
// followed by the conversation's turns oldest-first, trimmed so the newest
// turns fit the token budget. The system prompt is never trimmed, and the
// newest message always survives.
func (o *Orchestrator) buildHistory(messages []models.Message) []provider.Message {
	budget := o.historyBudget
	if budget <= 0 {
		budget = 4000
	}

	// Walk newest to oldest, keeping turns while they fit.
	kept := 0
	used := 0
	for i := len(messages) - 1; i >= 0; i-- {
		cost := o.countTokens(messages[i].Content)
		if kept > 0 && used+cost > budget {
			break
		}
		used += cost
		kept++
	}

	history := make([]provider.Message, 0, kept+1)
	history = append(history, provider.Message{Role: models.RoleSystem, Content: systemPrompt})
	for _, msg := range messages[len(messages)-kept:] {
		history = append(history, provider.Message{Role: msg.Role, Content: msg.Content})
	}
	return history
}

func (o *Orchestrator) countTokens(text string) int {
	if o.encoder != nil {
		return len(o.encoder.Encode(text, nil, nil))
	}
	// Rough estimate when the encoding data is unavailable offline.
	return len([]rune(text))/4 + 1
}
