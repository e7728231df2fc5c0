// Package tasks owns the canonical task collection. It keeps the
// collection, its durable snapshot, the calendar events and the scheduled
// reminders consistent across every mutation.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/model"
)

// Service is the single source of truth for tasks.
type Service struct {
	persist   Persister
	calendar  CalendarSync
	reminders ReminderScheduler
	settings  model.NotificationSettings
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	tasks     []model.Task
	observers []ChangeFunc
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a task service. The collection starts empty; call Load
// to restore the persisted snapshot.
func NewService(
	persist Persister,
	calendar CalendarSync,
	reminders ReminderScheduler,
	settings model.NotificationSettings,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		persist:   persist,
		calendar:  calendar,
		reminders: reminders,
		settings:  settings,
		logger:    logging.OrNop(logger).Named("tasks"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every successful mutation.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Load restores the persisted collection. A missing snapshot yields an
// empty collection; a read failure is logged and also yields an empty
// collection.
func (s *Service) Load(ctx context.Context) {
	loaded, err := s.persist.ReadAll(ctx)
	if err != nil {
		s.logger.Error("loading tasks, starting empty", zap.Error(err))
		loaded = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make([]model.Task, 0, len(loaded))
	s.tasks = append(s.tasks, loaded...)
	s.logger.Debug("tasks loaded", zap.Int("count", len(s.tasks)))
}

// AddTask validates task, attaches calendar and reminder references when it
// has a deadline, then inserts and persists it. An empty ID is filled in.
func (s *Service) AddTask(ctx context.Context, task model.Task) (model.Task, error) {
	t := task.Clone()
	t.Title = strings.TrimSpace(t.Title)
	if t.Status == "" {
		t.Status = model.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if err := validate(t); err != nil {
		return model.Task{}, fmt.Errorf("adding task: %w", err)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	} else if _, exists := s.GetTask(t.ID); exists {
		return model.Task{}, fmt.Errorf("adding task %s: %w", t.ID, ErrDuplicateID)
	}

	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.CreatedBy == "" {
		t.CreatedBy = model.LocalUserID
	}
	if t.Status == model.StatusCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	}

	t.CalendarEventID = ""
	t.ReminderIDs = nil
	if t.HasDeadline() {
		t.CalendarEventID = s.createEvent(ctx, t)
		t.ReminderIDs = s.scheduleReminders(ctx, t)
	}

	err := s.commit(ctx, func(current []model.Task) ([]model.Task, error) {
		if indexOf(current, t.ID) >= 0 {
			return nil, fmt.Errorf("adding task %s: %w", t.ID, ErrDuplicateID)
		}
		return append(current, t), nil
	})
	if err != nil {
		s.releaseSideEffects(ctx, t)
		return model.Task{}, err
	}

	s.logger.Info("task added", zap.String("task_id", t.ID))
	return t.Clone(), nil
}

// UpdateTask replaces the stored task with the same ID. Calendar and
// reminder work happens only when the deadline changed; otherwise the
// stored references are carried over.
func (s *Service) UpdateTask(ctx context.Context, task model.Task) error {
	prev, ok := s.GetTask(task.ID)
	if !ok {
		return fmt.Errorf("updating task %s: %w", task.ID, ErrTaskNotFound)
	}

	next := task.Clone()
	next.Title = strings.TrimSpace(next.Title)
	if err := validate(next); err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}

	next.CreatedAt = prev.CreatedAt
	if next.CreatedBy == "" {
		next.CreatedBy = prev.CreatedBy
	}

	now := s.now()
	if now.Before(prev.UpdatedAt) {
		now = prev.UpdatedAt
	}
	next.UpdatedAt = now

	// Auto-manage completed_at based on status.
	switch {
	case next.Status == model.StatusCompleted && prev.Status != model.StatusCompleted:
		next.CompletedAt = &now
	case next.Status == model.StatusCompleted:
		if next.CompletedAt == nil {
			next.CompletedAt = prev.CompletedAt
		}
	default:
		next.CompletedAt = nil
	}

	var change deadlineChange
	if model.SameDeadline(prev.Deadline, next.Deadline) {
		next.CalendarEventID = prev.CalendarEventID
		next.ReminderIDs = prev.ReminderIDs
	} else {
		change = s.prepareDeadline(ctx, prev, &next)
	}

	err := s.commit(ctx, func(current []model.Task) ([]model.Task, error) {
		i := indexOf(current, next.ID)
		if i < 0 {
			return nil, fmt.Errorf("updating task %s: %w", next.ID, ErrTaskNotFound)
		}
		current[i] = next
		return current, nil
	})
	if err != nil {
		s.abortDeadline(ctx, prev, change)
		return err
	}
	s.finishDeadline(ctx, prev.ID, change)

	s.logger.Debug("task updated", zap.String("task_id", next.ID))
	return nil
}

// DeleteTask removes the task, then releases its calendar event and
// reminders. Deleting an unknown id is a no-op. When the removal cannot be
// persisted the task keeps its event and reminders.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	prev, ok := s.GetTask(id)
	if !ok {
		return nil
	}

	err := s.commit(ctx, func(current []model.Task) ([]model.Task, error) {
		i := indexOf(current, id)
		if i < 0 {
			return current, nil
		}
		return append(current[:i], current[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	s.releaseSideEffects(ctx, prev)

	s.logger.Info("task deleted", zap.String("task_id", id))
	return nil
}

// AddComment appends a comment authored by the local user.
func (s *Service) AddComment(ctx context.Context, id, text string) (model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Comment{}, fmt.Errorf("commenting on task %s: %w", id, ErrEmptyComment)
	}

	task, ok := s.GetTask(id)
	if !ok {
		return model.Comment{}, fmt.Errorf("commenting on task %s: %w", id, ErrTaskNotFound)
	}

	c := model.Comment{
		ID:         uuid.New().String(),
		Text:       text,
		AuthorID:   model.LocalUserID,
		AuthorName: model.LocalUserName,
		CreatedAt:  s.now(),
	}
	task.Comments = append(task.Comments, c)

	if err := s.UpdateTask(ctx, task); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

// deadlineChange records the adapter work done for a deadline edit. New
// references exist as soon as it is prepared; stale ones are released only
// after the edit is persisted.
type deadlineChange struct {
	newReminders   []string
	newEvent       string
	patchedEvent   string
	staleReminders []string
	staleEvent     string
}

// prepareDeadline schedules next's reminders and creates or patches its
// calendar event after the deadline moved from prev.Deadline to
// next.Deadline.
func (s *Service) prepareDeadline(ctx context.Context, prev model.Task, next *model.Task) deadlineChange {
	c := deadlineChange{staleReminders: prev.ReminderIDs}

	next.ReminderIDs = nil
	if next.HasDeadline() {
		next.ReminderIDs = s.scheduleReminders(ctx, *next)
		c.newReminders = next.ReminderIDs
	}

	switch {
	case prev.CalendarEventID != "" && next.HasDeadline():
		s.updateEvent(ctx, prev.CalendarEventID, *next)
		c.patchedEvent = prev.CalendarEventID
		next.CalendarEventID = prev.CalendarEventID
	case prev.CalendarEventID != "":
		c.staleEvent = prev.CalendarEventID
		next.CalendarEventID = ""
	case next.HasDeadline():
		next.CalendarEventID = s.createEvent(ctx, *next)
		c.newEvent = next.CalendarEventID
	default:
		next.CalendarEventID = ""
	}
	return c
}

// finishDeadline releases the references the persisted edit replaced.
func (s *Service) finishDeadline(ctx context.Context, taskID string, c deadlineChange) {
	if len(c.staleReminders) > 0 {
		s.cancelReminders(ctx, taskID, c.staleReminders)
	}
	if c.staleEvent != "" {
		s.deleteEvent(ctx, taskID, c.staleEvent)
	}
}

// abortDeadline undoes prepareDeadline so the adapters match prev again.
func (s *Service) abortDeadline(ctx context.Context, prev model.Task, c deadlineChange) {
	if len(c.newReminders) > 0 {
		s.cancelReminders(ctx, prev.ID, c.newReminders)
	}
	if c.newEvent != "" {
		s.deleteEvent(ctx, prev.ID, c.newEvent)
	}
	if c.patchedEvent != "" {
		s.updateEvent(ctx, c.patchedEvent, prev)
	}
}

// releaseSideEffects cancels t's reminders and deletes its calendar event.
func (s *Service) releaseSideEffects(ctx context.Context, t model.Task) {
	if len(t.ReminderIDs) > 0 {
		s.cancelReminders(ctx, t.ID, t.ReminderIDs)
	}
	if t.CalendarEventID != "" {
		s.deleteEvent(ctx, t.ID, t.CalendarEventID)
	}
}

func (s *Service) createEvent(ctx context.Context, t model.Task) string {
	ref, err := s.calendar.CreateEvent(ctx, t)
	if err != nil {
		s.logger.Warn("creating calendar event", zap.String("task_id", t.ID), zap.Error(err))
		return ""
	}
	return ref
}

func (s *Service) updateEvent(ctx context.Context, ref string, t model.Task) {
	if err := s.calendar.UpdateEvent(ctx, ref, t); err != nil {
		s.logger.Warn("updating calendar event",
			zap.String("task_id", t.ID),
			zap.String("event_id", ref),
			zap.Error(err))
	}
}

func (s *Service) deleteEvent(ctx context.Context, taskID, ref string) {
	if err := s.calendar.DeleteEvent(ctx, ref); err != nil {
		s.logger.Warn("deleting calendar event",
			zap.String("task_id", taskID),
			zap.String("event_id", ref),
			zap.Error(err))
	}
}

func (s *Service) scheduleReminders(ctx context.Context, t model.Task) []string {
	ids, err := s.reminders.ScheduleReminders(ctx, t, s.settings)
	if err != nil {
		s.logger.Warn("scheduling reminders", zap.String("task_id", t.ID), zap.Error(err))
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func (s *Service) cancelReminders(ctx context.Context, taskID string, ids []string) {
	if err := s.reminders.CancelReminders(ctx, ids); err != nil {
		s.logger.Warn("cancelling reminders",
			zap.String("task_id", taskID),
			zap.Strings("reminder_ids", ids),
			zap.Error(err))
	}
}

// commit applies mutate to a copy of the collection, persists the result
// and only then swaps it in. On any error the collection is left untouched.
func (s *Service) commit(
	ctx context.Context,
	mutate func(current []model.Task) ([]model.Task, error),
) error {
	s.mu.Lock()

	prev := s.tasks
	working := make([]model.Task, len(prev))
	copy(working, prev)

	next, err := mutate(working)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if len(prev) > 0 || len(next) > 0 {
		if err := s.persist.WriteAll(ctx, next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persisting tasks: %w", err)
		}
	}

	s.tasks = next
	observers := make([]ChangeFunc, len(s.observers))
	copy(observers, s.observers)
	snapshot := cloneAll(next)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(ctx, snapshot)
	}
	return nil
}

func validate(t model.Task) error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if !t.ScheduleValid() {
		return ErrInvalidSchedule
	}
	return nil
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
