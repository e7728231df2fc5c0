package store

import "time"

// Reminder kinds.
const (
	ReminderKindLead     = "lead"
	ReminderKindDeadline = "deadline"
)

// Reminder is a persisted, time-based notification for a task deadline.
type Reminder struct {
	ID        string     `db:"id"`
	TaskID    string     `db:"task_id"`
	TaskTitle string     `db:"task_title"`
	Kind      string     `db:"kind"`
	FireAt    time.Time  `db:"fire_at"`
	DueAt     *time.Time `db:"due_at"`
	Fired     bool       `db:"fired"`
	CreatedAt time.Time  `db:"created_at"`
}
