package tasks

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/model"
)

// StartTimer opens a work session on the task. It is a no-op for an
// unknown id and when the task already has an open session, so a task
// never carries two open sessions.
func (s *Service) StartTimer(ctx context.Context, id string) error {
	task, ok := s.GetTask(id)
	if !ok {
		return nil
	}
	if task.TimeTracking.OpenSession() != nil {
		s.logger.Debug("timer already running", zap.String("task_id", id))
		return nil
	}

	if task.TimeTracking == nil {
		task.TimeTracking = &model.TimeTracking{}
	}
	task.TimeTracking.Sessions = append(task.TimeTracking.Sessions, model.Session{
		StartTime: s.now(),
	})

	return s.UpdateTask(ctx, task)
}

// StopTimer closes the task's open session and adds its whole minutes
// (rounded) to the running total. It is a no-op when there is nothing to stop.
func (s *Service) StopTimer(ctx context.Context, id string) error {
	task, ok := s.GetTask(id)
	if !ok {
		return nil
	}
	open := task.TimeTracking.OpenSession()
	if open == nil {
		return nil
	}

	end := s.now()
	minutes := int(math.Round(end.Sub(open.StartTime).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	open.EndTime = &end
	open.Duration = &minutes
	task.TimeTracking.TotalMinutes += minutes

	return s.UpdateTask(ctx, task)
}

// ActiveTimers returns the ids of tasks with an open session.
func (s *Service) ActiveTimers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for i := range s.tasks {
		if s.tasks[i].TimeTracking.OpenSession() != nil {
			ids = append(ids, s.tasks[i].ID)
		}
	}
	return ids
}
