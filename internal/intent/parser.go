// Package intent recognizes task-management commands in free text so the
// common cases never reach an external model.
package intent

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

type Intent string

const (
	AddTask      Intent = "add_task"
	ListTasks    Intent = "list_tasks"
	CompleteTask Intent = "complete_task"
	UpdateTask   Intent = "update_task"
	DeleteTask   Intent = "delete_task"
)

// None means the message did not match any pattern group and the caller
// should fall back to provider-based interpretation.
const None Intent = ""

type completePattern struct {
	re     *regexp2.Regexp
	byName bool
}

type Parser struct {
	add      []*regexp2.Regexp
	list     []*regexp2.Regexp
	complete []completePattern
	update   []*regexp2.Regexp
	delete   []*regexp2.Regexp
}

func compile(patterns ...string) []*regexp2.Regexp {
	res := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp2.MustCompile(p, regexp2.IgnoreCase))
	}
	return res
}

func NewParser() *Parser {
	return &Parser{
		add: compile(
			`(?:add|create|new|make)\s+(?:a\s+)?task\s+(?:to\s+)?(.+)`,
			`(?:remind me to|i need to|todo)\s+(.+)`,
			`(?:add|create)\s+(.+)\s+to\s+(?:my\s+)?(?:task\s+)?list`,
		),
		complete: []completePattern{
			{regexp2.MustCompile(`(?:mark|set|make)\s+task\s+(\d+)\s+(?:as\s+)?(?:done|complete|completed|finished)`, regexp2.IgnoreCase), false},
			{regexp2.MustCompile(`(?:complete|finish|done\s+with)\s+task\s+(\d+)`, regexp2.IgnoreCase), false},
			{regexp2.MustCompile(`task\s+(\d+)\s+(?:is\s+)?(?:done|complete|completed|finished)`, regexp2.IgnoreCase), false},
			{regexp2.MustCompile(`(?:mark|set|make)\s+task\s+(?:as\s+)?(?:done|complete|completed|finished)\s+['"](.+?)['"]`, regexp2.IgnoreCase), true},
			{regexp2.MustCompile(`(?:mark|set|make)\s+['"](.+?)['"](?:\s+as\s+)?(?:done|complete|completed|finished)`, regexp2.IgnoreCase), true},
			{regexp2.MustCompile(`(?:complete|finish)\s+(?:task\s+)?['"](.+?)['"]`, regexp2.IgnoreCase), true},
			{regexp2.MustCompile(`(?:mark|complete|finish)\s+(?:task\s+)?(?:as\s+)?(?:done|complete|completed|finished)\s+(.+)`, regexp2.IgnoreCase), true},
		},
		update: compile(
			`(?:update|change|edit|modify)\s+task\s+(\d+)\s+to\s+(.+)`,
			`(?:rename|change)\s+task\s+(\d+)\s+(.+)`,
		),
		delete: compile(
			`(?:delete|remove|erase)\s+task\s+(\d+)`,
			`(?:get\s+rid\s+of|cancel)\s+task\s+(\d+)`,
		),
		list: compile(
			`(?:show|list|display|get|view)\s+(?:me\s+)?(?:my\s+)?(?:all\s+)?tasks?`,
			`what\s+(?:are\s+)?(?:my\s+)?tasks?`,
			`(?:do\s+)?i\s+have\s+(?:any\s+)?tasks?`,
			`tasks?\s+list`,
			`show\s+(?:me\s+)?(?:my\s+)?(?:pending|completed)\s+tasks?`,
		),
	}
}

// Parse maps a raw message to a recognized intent and its extracted
// parameters, or (None, nil) when nothing matches. Pattern groups are
// checked in a fixed priority: add, complete, update, delete, list. The
// groups are not mutually exclusive, so the order is load-bearing; adding a
// pattern means re-checking all of it.
func (p *Parser) Parse(message string) (Intent, map[string]any) {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return None, nil
	}

	for _, re := range p.add {
		if g := firstGroup(re, text); g != "" {
			return AddTask, map[string]any{"title": strings.TrimSpace(g)}
		}
	}

	for _, cp := range p.complete {
		g := firstGroup(cp.re, text)
		if g == "" {
			continue
		}
		if cp.byName {
			name := strings.Trim(strings.TrimSpace(g), `"'`)
			return CompleteTask, map[string]any{"task_name": name}
		}
		id, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			continue
		}
		return CompleteTask, map[string]any{"task_id": id}
	}

	for _, re := range p.update {
		m, err := re.FindStringMatch(text)
		if err != nil || m == nil {
			continue
		}
		id, err := strconv.ParseInt(m.GroupByNumber(1).String(), 10, 64)
		if err != nil {
			continue
		}
		title := strings.TrimSpace(m.GroupByNumber(2).String())
		if title == "" {
			continue
		}
		return UpdateTask, map[string]any{"task_id": id, "title": title}
	}

	for _, re := range p.delete {
		if g := firstGroup(re, text); g != "" {
			id, err := strconv.ParseInt(g, 10, 64)
			if err != nil {
				continue
			}
			return DeleteTask, map[string]any{"task_id": id}
		}
	}

	for _, re := range p.list {
		m, err := re.FindStringMatch(text)
		if err != nil || m == nil {
			continue
		}
		status := "all"
		if strings.Contains(text, "pending") {
			status = "pending"
		} else if strings.Contains(text, "completed") || strings.Contains(text, "done") {
			status = "completed"
		}
		return ListTasks, map[string]any{"status": status}
	}

	return None, nil
}

func firstGroup(re *regexp2.Regexp, text string) string {
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(1).String()
}
