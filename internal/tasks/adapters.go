package tasks

import (
	"context"

	"github.com/nhle/taskpilot/internal/model"
)

// Persister is the durable storage the service snapshots its collection to.
type Persister interface {
	ReadAll(ctx context.Context) ([]model.Task, error)
	WriteAll(ctx context.Context, tasks []model.Task) error
}

// CalendarSync mirrors task deadlines as external calendar events.
// CreateEvent returns an empty reference when no event was created.
type CalendarSync interface {
	CreateEvent(ctx context.Context, task model.Task) (string, error)
	UpdateEvent(ctx context.Context, ref string, task model.Task) error
	DeleteEvent(ctx context.Context, ref string) error
}

// ReminderScheduler schedules and cancels deadline reminders.
type ReminderScheduler interface {
	ScheduleReminders(
		ctx context.Context,
		task model.Task,
		settings model.NotificationSettings,
	) ([]string, error)
	CancelReminders(ctx context.Context, ids []string) error
}

// ChangeFunc observes the collection after each successful mutation.
// It receives a copy; changes to it do not affect the service.
type ChangeFunc func(ctx context.Context, tasks []model.Task)
