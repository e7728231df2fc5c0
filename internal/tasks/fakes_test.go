package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/taskpilot/internal/model"
)

var errAdapter = errors.New("adapter unavailable")

type fakePersister struct {
	mu      sync.Mutex
	data    []model.Task
	absent  bool
	readErr error
	failErr error
	writes  int
}

func (p *fakePersister) ReadAll(context.Context) ([]model.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return nil, p.readErr
	}
	if p.absent {
		return nil, nil
	}
	return cloneAll(p.data), nil
}

func (p *fakePersister) WriteAll(_ context.Context, tasks []model.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.writes++
	p.data = cloneAll(tasks)
	p.absent = false
	return nil
}

type fakeCalendar struct {
	mu      sync.Mutex
	next    int
	events  map[string]model.Task
	updated []string
	deleted []string
	fail    bool
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]model.Task)}
}

func (c *fakeCalendar) CreateEvent(_ context.Context, t model.Task) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", errAdapter
	}
	c.next++
	ref := fmt.Sprintf("evt-%d", c.next)
	c.events[ref] = t
	return ref, nil
}

func (c *fakeCalendar) UpdateEvent(_ context.Context, ref string, t model.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errAdapter
	}
	c.updated = append(c.updated, ref)
	c.events[ref] = t
	return nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errAdapter
	}
	c.deleted = append(c.deleted, ref)
	delete(c.events, ref)
	return nil
}

type fakeReminders struct {
	mu        sync.Mutex
	now       func() time.Time
	next      int
	scheduled map[string]time.Time
	cancelled []string
	settings  []model.NotificationSettings
	fail      bool
}

func newFakeReminders(now func() time.Time) *fakeReminders {
	return &fakeReminders{now: now, scheduled: make(map[string]time.Time)}
}

// ScheduleReminders mirrors the real scheduler: a lead reminder and a
// deadline reminder, each only if still in the future.
func (r *fakeReminders) ScheduleReminders(
	_ context.Context,
	t model.Task,
	settings model.NotificationSettings,
) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = append(r.settings, settings)
	if r.fail {
		return nil, errAdapter
	}
	if !settings.Enabled || t.Deadline == nil {
		return nil, nil
	}

	var ids []string
	for _, at := range []time.Time{t.Deadline.Add(-settings.LeadTime), *t.Deadline} {
		if !at.After(r.now()) {
			continue
		}
		r.next++
		id := fmt.Sprintf("rem-%d", r.next)
		r.scheduled[id] = at
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeReminders) CancelReminders(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errAdapter
	}
	for _, id := range ids {
		r.cancelled = append(r.cancelled, id)
		delete(r.scheduled, id)
	}
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
