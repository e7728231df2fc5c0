package tasks

import (
	"strings"
	"time"

	"github.com/nhle/taskpilot/internal/model"
)

// GetTask returns a copy of the task with the given id.
func (s *Service) GetTask(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.tasks, id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Tasks returns a copy of the whole collection in insertion order.
func (s *Service) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.tasks)
}

// ByStatus returns tasks with the given status.
func (s *Service) ByStatus(status model.Status) []model.Task {
	return s.filter(func(t model.Task) bool { return t.Status == status })
}

// ByPriority returns tasks with the given priority.
func (s *Service) ByPriority(priority model.Priority) []model.Task {
	return s.filter(func(t model.Task) bool { return t.Priority == priority })
}

// ByDeadlineRange returns tasks whose deadline falls within [from, to].
func (s *Service) ByDeadlineRange(from, to time.Time) []model.Task {
	return s.filter(func(t model.Task) bool {
		if t.Deadline == nil {
			return false
		}
		return !t.Deadline.Before(from) && !t.Deadline.After(to)
	})
}

// Search returns tasks whose title or description contains query,
// case-insensitively.
func (s *Service) Search(query string) []model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return s.filter(func(t model.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
	})
}

func (s *Service) filter(keep func(model.Task) bool) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
