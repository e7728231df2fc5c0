// Package reminder schedules deadline reminders as persisted rows and
// dispatches them when they come due.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/store"
)

// DefaultLeadTime is used when the settings carry no positive lead time.
const DefaultLeadTime = 30 * time.Minute

// Store is the subset of the durable store reminders need.
type Store interface {
	CreateReminder(ctx context.Context, r store.Reminder) error
	DeleteReminders(ctx context.Context, ids []string) error
	DueReminders(ctx context.Context, now time.Time) ([]store.Reminder, error)
	MarkReminderFired(ctx context.Context, id string) error
}

type options struct {
	now func() time.Time
}

// Option configures a Scheduler or Dispatcher.
type Option func(*options)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Scheduler creates and cancels reminder rows for task deadlines.
type Scheduler struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a Scheduler backed by s.
func NewScheduler(s Store, logger *zap.Logger, opts ...Option) *Scheduler {
	o := buildOptions(opts)
	return &Scheduler{
		store:  s,
		now:    o.now,
		logger: logging.OrNop(logger).Named("reminder"),
	}
}

// ScheduleReminders creates a lead reminder before the deadline and one at
// the deadline, skipping any that would already be in the past. It returns
// the ids of the reminders it created (zero, one or two).
func (s *Scheduler) ScheduleReminders(
	ctx context.Context,
	task model.Task,
	settings model.NotificationSettings,
) ([]string, error) {
	if !settings.Enabled || task.Deadline == nil {
		return nil, nil
	}

	lead := settings.LeadTime
	if lead <= 0 {
		lead = DefaultLeadTime
	}

	now := s.now()
	deadline := task.Deadline.UTC()
	candidates := []struct {
		kind string
		at   time.Time
	}{
		{store.ReminderKindLead, deadline.Add(-lead)},
		{store.ReminderKindDeadline, deadline},
	}

	var ids []string
	for _, c := range candidates {
		if !c.at.After(now) {
			continue
		}

		r := store.Reminder{
			ID:        uuid.New().String(),
			TaskID:    task.ID,
			TaskTitle: task.Title,
			Kind:      c.kind,
			FireAt:    c.at,
			DueAt:     &deadline,
			CreatedAt: now,
		}
		if err := s.store.CreateReminder(ctx, r); err != nil {
			// Roll back the ones already created so the caller sees all or nothing.
			if len(ids) > 0 {
				_ = s.store.DeleteReminders(ctx, ids)
			}
			return nil, fmt.Errorf("scheduling %s reminder for task %s: %w", c.kind, task.ID, err)
		}
		ids = append(ids, r.ID)
	}

	s.logger.Debug("reminders scheduled",
		zap.String("task_id", task.ID),
		zap.Int("count", len(ids)))
	return ids, nil
}

// CancelReminders removes the given reminders. Unknown ids are ignored.
func (s *Scheduler) CancelReminders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.DeleteReminders(ctx, ids); err != nil {
		return fmt.Errorf("cancelling reminders: %w", err)
	}
	return nil
}
