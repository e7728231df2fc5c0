package model

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is the importance level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities so that higher values are more important.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Placeholder identity used until real authentication exists.
const (
	LocalUserID   = "local-user"
	LocalUserName = "You"
)

// Task is the central unit of work tracked by the system.
type Task struct {
	// ID is assigned at creation and never changes.
	ID string `json:"id"`

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`

	// Deadline drives the calendar event and the reminders.
	Deadline *time.Time `json:"deadline,omitempty"`

	// StartTime and Duration (minutes) are set together or not at all.
	StartTime *time.Time `json:"start_time,omitempty"`
	Duration  *int       `json:"duration,omitempty"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedBy string    `json:"created_by"`
	Assignees []string  `json:"assignees,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`

	Recurrence   *Recurrence   `json:"recurrence,omitempty"`
	TimeTracking *TimeTracking `json:"time_tracking,omitempty"`

	// CalendarEventID references the external event mirroring Deadline.
	CalendarEventID string `json:"calendar_event_id,omitempty"`

	// ReminderIDs references the reminders scheduled for Deadline.
	ReminderIDs []string `json:"reminder_ids,omitempty"`
}

// Comment is an immutable note attached to a task.
type Comment struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recurrence frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Recurrence describes how a task repeats.
type Recurrence struct {
	Frequency string     `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// HasDeadline reports whether the task carries a deadline.
func (t Task) HasDeadline() bool {
	return t.Deadline != nil
}

// IsOverdue reports whether the task is unfinished and past its deadline.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.Deadline != nil && t.Deadline.Before(now)
}

// ScheduleValid reports whether StartTime and Duration are both set or both unset.
func (t Task) ScheduleValid() bool {
	return (t.StartTime == nil) == (t.Duration == nil)
}

// SameDeadline reports whether a and b hold the same deadline instant (or both none).
func SameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	c.Deadline = cloneTime(t.Deadline)
	c.StartTime = cloneTime(t.StartTime)
	c.CompletedAt = cloneTime(t.CompletedAt)
	if t.Duration != nil {
		d := *t.Duration
		c.Duration = &d
	}
	c.Tags = slices.Clone(t.Tags)
	c.Assignees = slices.Clone(t.Assignees)
	c.Comments = slices.Clone(t.Comments)
	c.ReminderIDs = slices.Clone(t.ReminderIDs)
	if t.Recurrence != nil {
		r := *t.Recurrence
		r.EndDate = cloneTime(t.Recurrence.EndDate)
		c.Recurrence = &r
	}
	if t.TimeTracking != nil {
		tt := t.TimeTracking.clone()
		c.TimeTracking = &tt
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
