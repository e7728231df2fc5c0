package ai

import "sync"

// Role identifies the sender of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged prompt message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// defaultHistorySize bounds the assistant conversation kept between calls.
const defaultHistorySize = 20

// History maintains an ordered conversation, trimming the oldest entries
// when the limit is reached.
type History struct {
	mu          sync.Mutex
	messages    []Message
	maxMessages int
}

// NewHistory creates a history holding at most maxMessages messages
// (20 when not positive).
func NewHistory(maxMessages int) *History {
	if maxMessages <= 0 {
		maxMessages = defaultHistorySize
	}
	return &History{
		messages:    make([]Message, 0, maxMessages),
		maxMessages: maxMessages,
	}
}

// Add appends a message, dropping the oldest ones beyond the limit.
func (h *History) Add(role Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, Message{Role: role, Content: content})
	if excess := len(h.messages) - h.maxMessages; excess > 0 {
		trimmed := make([]Message, 0, h.maxMessages)
		trimmed = append(trimmed, h.messages[excess:]...)
		h.messages = trimmed
	}
}

// Messages returns a copy of the conversation.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// Len returns the number of messages held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.messages)
}
