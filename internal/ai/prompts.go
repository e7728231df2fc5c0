package ai

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/nhle/taskpilot/internal/model"
)

// maxRecentTasks caps the task context sent with an assistant query.
const maxRecentTasks = 5

const (
	analysisSystemPrompt = "You are a productivity coach. You study a person's task list " +
		"and explain their work patterns in one or two short paragraphs of plain text."

	decompositionSystemPrompt = "You split a task into actionable steps. Respond with only " +
		"a JSON array of 4 to 7 short strings, in the order they should be done."

	assistantSystemPrompt = "You are a helpful task management assistant. Keep answers " +
		"short and practical, and refer to tasks by their title."
)

// TaskSummary is the compact view of a task sent to the endpoint.
type TaskSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TimeSpent   int        `json:"time_spent_minutes"`
}

// Summarize builds the summaries for tasks, in order.
func Summarize(tasks []model.Task) []TaskSummary {
	out := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		s := TaskSummary{
			ID:          t.ID,
			Title:       t.Title,
			Status:      string(t.Status),
			Priority:    string(t.Priority),
			Deadline:    t.Deadline,
			CreatedAt:   t.CreatedAt,
			CompletedAt: t.CompletedAt,
		}
		if t.TimeTracking != nil {
			s.TimeSpent = t.TimeTracking.TotalMinutes
		}
		out = append(out, s)
	}
	return out
}

var (
	codeFenceRe  = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	headingRe    = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	emphasisRe   = regexp.MustCompile(`\*\*|__|\*|` + "`")
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanResponse strips markdown artifacts (fences, headings, emphasis,
// inline code) from a model answer meant for plain-text display.
func CleanResponse(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = headingRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ParseSubtasks decodes a model answer holding a JSON array of strings,
// optionally wrapped in code fences. It reports false when the answer is
// anything else or the array has no non-empty entries.
func ParseSubtasks(text string) ([]string, bool) {
	text = strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))
	if !strings.HasPrefix(text, "[") {
		return nil, false
	}

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}

	subtasks := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			subtasks = append(subtasks, s)
		}
	}
	if len(subtasks) == 0 {
		return nil, false
	}
	return subtasks, true
}
