// Package calendar mirrors task deadlines as Google Calendar events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/model"
)

const (
	// EventDuration is how long the mirrored event lasts after the deadline.
	EventDuration = time.Hour

	// ReminderMinutes is the popup reminder attached to every created event.
	ReminderMinutes = 30

	// TaskIDProperty is the private extended property linking an event to its task.
	TaskIDProperty = "taskpilot_id"
)

// GoogleCalendar is a Google Calendar API client scoped to one calendar.
type GoogleCalendar struct {
	srv        *calendar.Service
	calendarID string
	logger     *zap.Logger
}

// NewGoogleCalendar creates a client for calendarID ("primary" when empty).
func NewGoogleCalendar(srv *calendar.Service, calendarID string, logger *zap.Logger) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{
		srv:        srv,
		calendarID: calendarID,
		logger:     logging.OrNop(logger).Named("calendar"),
	}
}

// CreateEvent inserts an event spanning the task's deadline and returns its id.
// A task without a deadline produces no event.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, task model.Task) (string, error) {
	if task.Deadline == nil {
		return "", nil
	}

	event := eventFromTask(task)
	event.Reminders = &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{
			{Method: "popup", Minutes: ReminderMinutes},
		},
		ForceSendFields: []string{"UseDefault"},
	}
	event.ExtendedProperties = &calendar.EventExtendedProperties{
		Private: map[string]string{TaskIDProperty: task.ID},
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating event for task %s: %w", task.ID, err)
	}

	c.logger.Debug("event created",
		zap.String("task_id", task.ID),
		zap.String("event_id", created.Id))
	return created.Id, nil
}

// UpdateEvent patches the event's summary, description and time span.
func (c *GoogleCalendar) UpdateEvent(ctx context.Context, ref string, task model.Task) error {
	if task.Deadline == nil {
		return fmt.Errorf("updating event %s: task %s has no deadline", ref, task.ID)
	}

	_, err := c.srv.Events.Patch(c.calendarID, ref, eventFromTask(task)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating event %s: %w", ref, err)
	}
	return nil
}

// DeleteEvent removes the event. An event that is already gone counts as deleted.
func (c *GoogleCalendar) DeleteEvent(ctx context.Context, ref string) error {
	err := c.srv.Events.Delete(c.calendarID, ref).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("deleting event %s: %w", ref, err)
	}
	return nil
}

// eventFromTask builds the mutable part of an event from a task with a deadline.
func eventFromTask(task model.Task) *calendar.Event {
	start := task.Deadline.UTC()
	end := start.Add(EventDuration)
	return &calendar.Event{
		Summary:     task.Title,
		Description: task.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}
}

// Disabled is used when calendar sync is turned off. It never creates events.
type Disabled struct{}

func (Disabled) CreateEvent(context.Context, model.Task) (string, error) { return "", nil }

func (Disabled) UpdateEvent(context.Context, string, model.Task) error { return nil }

func (Disabled) DeleteEvent(context.Context, string) error { return nil }
