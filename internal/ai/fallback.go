package ai

import (
	"encoding/json"
	"strings"
)

// Canned responses used whenever the remote endpoint cannot be used.
const (
	FallbackAnalysis = "Based on your task history, you get the most done in the morning " +
		"and tend to postpone low-priority items. Try tackling high-priority work during " +
		"your peak hours, batching similar tasks together, and setting intermediate " +
		"milestones for larger tasks so they do not slip past their deadlines."

	FallbackSchedule = "Here is a suggested schedule for today:\n" +
		"9:00 AM - Focus on your most important high-priority task\n" +
		"11:00 AM - Handle email and quick follow-ups\n" +
		"1:00 PM - Lunch break\n" +
		"2:00 PM - Meetings and collaborative work\n" +
		"4:00 PM - Review progress and plan tomorrow"

	FallbackGeneric = "I'm here to help you manage your tasks. Ask me to analyze your " +
		"productivity, suggest a schedule, or break a task down into smaller steps."
)

// DefaultSubtasks is returned whenever a decomposition cannot be parsed.
var DefaultSubtasks = []string{
	"Research and gather requirements",
	"Create a plan and outline",
	"Complete the first draft",
	"Review and refine",
	"Finalize and deliver",
}

// defaultSubtasks returns a fresh copy of DefaultSubtasks.
func defaultSubtasks() []string {
	out := make([]string, len(DefaultSubtasks))
	copy(out, DefaultSubtasks)
	return out
}

// fallbackFor selects a canned response from the last user message.
func fallbackFor(messages []Message) string {
	var query string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			query = strings.ToLower(messages[i].Content)
			break
		}
	}

	switch {
	case strings.Contains(query, "analyze"):
		return FallbackAnalysis
	case strings.Contains(query, "schedule"):
		return FallbackSchedule
	case strings.Contains(query, "break down"), strings.Contains(query, "decompose"):
		b, _ := json.Marshal(DefaultSubtasks)
		return string(b)
	default:
		return FallbackGeneric
	}
}
