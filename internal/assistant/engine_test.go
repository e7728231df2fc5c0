package assistant

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/tasks"
)

// Monday.
var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu           sync.Mutex
	insights     string
	err          error
	analyzeCalls int
	subtasks     []string
	gotTitle     string
}

func (g *fakeGateway) AnalyzeTaskPatterns(_ context.Context, _ []model.Task) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.analyzeCalls++
	return g.insights, g.err
}

func (g *fakeGateway) DecomposeTask(_ context.Context, title, _ string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gotTitle = title
	return g.subtasks
}

type fakeSource struct {
	mu        sync.Mutex
	tasks     []model.Task
	updated   []model.Task
	updateErr error
}

func (s *fakeSource) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *fakeSource) GetTask(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (s *fakeSource) UpdateTask(_ context.Context, task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			s.updated = append(s.updated, task)
			return nil
		}
	}
	return tasks.ErrTaskNotFound
}

func newTestEngine(gw Gateway, src TaskSource, opts ...Option) *Engine {
	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(1))),
	}, opts...)
	return NewEngine(gw, src, opts...)
}

func task(id, title string, p model.Priority) model.Task {
	return model.Task{ID: id, Title: title, Status: model.StatusTodo, Priority: p, CreatedAt: testNow}
}

func byCategory(recs []model.Recommendation, c model.Category) []model.Recommendation {
	var out []model.Recommendation
	for _, r := range recs {
		if r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

func TestRefresh_EmptyIsNoop(t *testing.T) {
	gw := &fakeGateway{insights: "x"}
	e := newTestEngine(gw, &fakeSource{})

	e.Refresh(context.Background(), nil)

	assert.Empty(t, e.Recommendations())
	assert.Empty(t, e.TimeSlots())
	assert.Zero(t, gw.analyzeCalls)
}

func TestRefresh_OverdueHighPriority(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	overdue := task("late", "Ship release", model.PriorityHigh)
	overdue.Deadline = &yesterday

	// Overdue but not high priority, and high priority but completed.
	medium := task("medium", "Water plants", model.PriorityMedium)
	medium.Deadline = &yesterday
	done := task("done", "File taxes", model.PriorityHigh)
	done.Deadline = &yesterday
	done.Status = model.StatusCompleted

	gw := &fakeGateway{insights: "You work best in the morning."}
	e := newTestEngine(gw, &fakeSource{})

	e.Refresh(context.Background(), []model.Task{overdue, medium, done})

	prio := byCategory(e.Recommendations(), model.CategoryPrioritization)
	require.Len(t, prio, 1)
	assert.Equal(t, []string{"late"}, prio[0].TaskIDs)
	assert.Contains(t, prio[0].Message, "1 overdue high-priority task")
	assert.False(t, prio[0].Applied)
	assert.NotEmpty(t, prio[0].ID)
	assert.Equal(t, testNow, prio[0].CreatedAt)
}

func TestRefresh_Insights(t *testing.T) {
	all := []model.Task{
		task("a", "One", model.PriorityLow),
		task("b", "Two", model.PriorityLow),
		task("c", "Three", model.PriorityLow),
	}

	t.Run("stored with a pattern recommendation", func(t *testing.T) {
		gw := &fakeGateway{insights: "You batch small tasks well."}
		e := newTestEngine(gw, &fakeSource{})

		e.Refresh(context.Background(), all)

		assert.Equal(t, "You batch small tasks well.", e.Insights())
		pattern := byCategory(e.Recommendations(), model.CategoryPattern)
		require.Len(t, pattern, 1)
		assert.Equal(t, []string{"a", "b", "c"}, pattern[0].TaskIDs)
	})

	t.Run("skipped on error", func(t *testing.T) {
		gw := &fakeGateway{err: context.Canceled}
		e := newTestEngine(gw, &fakeSource{})

		e.Refresh(context.Background(), all)

		assert.Empty(t, e.Insights())
		assert.Empty(t, byCategory(e.Recommendations(), model.CategoryPattern))
		assert.Len(t, byCategory(e.Recommendations(), model.CategoryScheduling), 1)
	})

	t.Run("not requested below three tasks", func(t *testing.T) {
		gw := &fakeGateway{insights: "x"}
		e := newTestEngine(gw, &fakeSource{})

		e.Refresh(context.Background(), all[:2])

		assert.Zero(t, gw.analyzeCalls)
		assert.Empty(t, e.Insights())
	})
}

func TestRefresh_DeduplicatesAcrossPasses(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	overdue := task("late", "Ship release", model.PriorityHigh)
	overdue.Deadline = &yesterday
	all := []model.Task{overdue, task("b", "Two", model.PriorityLow), task("c", "Three", model.PriorityLow)}

	e := newTestEngine(&fakeGateway{insights: "x"}, &fakeSource{})

	e.Refresh(context.Background(), all)
	first := e.Recommendations()
	e.Refresh(context.Background(), all)
	second := e.Recommendations()

	assert.Len(t, first, 3, "pattern, prioritization and scheduling")
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	// A new condition is still appended after the existing ones.
	other := task("later", "Call bank", model.PriorityHigh)
	other.Deadline = &yesterday
	e.Refresh(context.Background(), append(all, other))

	prio := byCategory(e.Recommendations(), model.CategoryPrioritization)
	require.Len(t, prio, 2)
	assert.Equal(t, []string{"late"}, prio[0].TaskIDs)
	assert.Equal(t, []string{"late", "later"}, prio[1].TaskIDs)
	assert.Contains(t, prio[1].Message, "2 overdue high-priority tasks")
}

func TestRefresh_ClusterBatching(t *testing.T) {
	gw := &fakeGateway{err: errors.New("offline")}
	all := []model.Task{
		task("a", "Weekly report", model.PriorityLow),
		task("b", "Report review", model.PriorityLow),
		task("c", "Email Bob", model.PriorityLow),
	}

	e := newTestEngine(gw, &fakeSource{})
	e.Refresh(context.Background(), all)
	assert.Empty(t, byCategory(e.Recommendations(), model.CategoryPattern), "a cluster of two is not batched")

	all = append(all, task("d", "Design email template", model.PriorityLow))
	e.Refresh(context.Background(), all)

	pattern := byCategory(e.Recommendations(), model.CategoryPattern)
	require.Len(t, pattern, 1)
	assert.Equal(t, []string{"a", "b", "c", "d"}, pattern[0].TaskIDs)
	assert.Contains(t, pattern[0].Message, "batched")
}

func TestRefresh_InsightsAndBatchingShareCategory(t *testing.T) {
	gw := &fakeGateway{insights: "Reports pile up on Mondays."}
	all := []model.Task{
		task("a", "Weekly report", model.PriorityLow),
		task("b", "Report for finance", model.PriorityLow),
		task("c", "Quarterly report", model.PriorityLow),
	}

	e := newTestEngine(gw, &fakeSource{})
	e.Refresh(context.Background(), all)
	e.Refresh(context.Background(), all)

	pattern := byCategory(e.Recommendations(), model.CategoryPattern)
	require.Len(t, pattern, 2)
	assert.Equal(t, RuleInsights, pattern[0].Rule)
	assert.Equal(t, RuleBatch, pattern[1].Rule)
	assert.Equal(t, []string{"a", "b", "c"}, pattern[0].TaskIDs)
	assert.Equal(t, []string{"a", "b", "c"}, pattern[1].TaskIDs)
	assert.Contains(t, pattern[1].Message, "3 similar tasks could be batched")
	assert.NotEqual(t, pattern[0].Key(), pattern[1].Key())
}

type fixedClusters []string

func (f fixedClusters) Cluster([]model.Task) []string { return f }

func TestRefresh_CustomClusterStrategy(t *testing.T) {
	gw := &fakeGateway{err: errors.New("offline")}
	e := newTestEngine(gw, &fakeSource{}, WithClusterStrategy(fixedClusters{"x", "y", "z"}))

	e.Refresh(context.Background(), []model.Task{task("a", "Anything", model.PriorityLow)})

	pattern := byCategory(e.Recommendations(), model.CategoryPattern)
	require.Len(t, pattern, 1)
	assert.Equal(t, []string{"x", "y", "z"}, pattern[0].TaskIDs)
}

func TestRefresh_Scheduling(t *testing.T) {
	gw := &fakeGateway{err: errors.New("offline")}
	scheduled := task("s", "Already planned", model.PriorityHigh)
	start := testNow.Add(time.Hour)
	minutes := 30
	scheduled.StartTime, scheduled.Duration = &start, &minutes
	done := task("done", "Finished", model.PriorityHigh)
	done.Status = model.StatusCompleted

	soon := testNow.Add(2 * time.Hour)
	mediumSoon := task("m1", "Medium soon", model.PriorityMedium)
	mediumSoon.Deadline = &soon

	all := []model.Task{
		task("low", "Low", model.PriorityLow),
		task("m2", "Medium no deadline", model.PriorityMedium),
		mediumSoon,
		scheduled,
		done,
		task("high", "High", model.PriorityHigh),
	}

	e := newTestEngine(gw, &fakeSource{})
	e.Refresh(context.Background(), all)

	slots := e.TimeSlots()
	require.Len(t, slots, len(slotHours))
	for i, s := range slots {
		assert.Equal(t, slotHours[i], s.Start.Hour())
		assert.Equal(t, testNow.YearDay(), s.Start.YearDay())
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
	}

	sched := byCategory(e.Recommendations(), model.CategoryScheduling)
	require.Len(t, sched, 1)
	assert.Equal(t, []string{"high", "m1", "m2", "low"}, sched[0].TaskIDs)
	assert.NotNil(t, sched[0].Action)
}

func TestApply(t *testing.T) {
	src := &fakeSource{tasks: []model.Task{
		task("low", "Low", model.PriorityLow),
		task("high", "High", model.PriorityHigh),
	}}
	e := newTestEngine(&fakeGateway{}, src)
	e.Refresh(context.Background(), src.Tasks())

	sched := byCategory(e.Recommendations(), model.CategoryScheduling)
	require.Len(t, sched, 1)

	require.NoError(t, e.Apply(context.Background(), sched[0].ID))

	best := bestSlots(e.TimeSlots())
	require.Len(t, src.updated, 2)
	assert.Equal(t, "high", src.updated[0].ID)
	assert.Equal(t, best[0].Start, *src.updated[0].StartTime)
	assert.Equal(t, best[1].Start, *src.updated[1].StartTime)
	assert.Equal(t, 60, *src.updated[0].Duration)

	recs := e.Recommendations()
	require.Len(t, byCategory(recs, model.CategoryScheduling), 1, "applied recommendations stay listed")
	assert.True(t, byCategory(recs, model.CategoryScheduling)[0].Applied)
}

func TestApply_WithoutAction(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	late := task("late", "Late", model.PriorityHigh)
	late.Deadline = &yesterday
	e := newTestEngine(&fakeGateway{}, &fakeSource{})
	e.Refresh(context.Background(), []model.Task{late})

	prio := byCategory(e.Recommendations(), model.CategoryPrioritization)
	require.Len(t, prio, 1)
	require.NoError(t, e.Apply(context.Background(), prio[0].ID))
	assert.True(t, byCategory(e.Recommendations(), model.CategoryPrioritization)[0].Applied)
}

func TestApply_ActionErrorLeavesUnapplied(t *testing.T) {
	src := &fakeSource{
		tasks:     []model.Task{task("a", "A", model.PriorityHigh)},
		updateErr: errors.New("disk full"),
	}
	e := newTestEngine(&fakeGateway{}, src)
	e.Refresh(context.Background(), src.Tasks())
	sched := byCategory(e.Recommendations(), model.CategoryScheduling)
	require.Len(t, sched, 1)

	err := e.Apply(context.Background(), sched[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, byCategory(e.Recommendations(), model.CategoryScheduling)[0].Applied)
}

func TestApply_UnknownIsNoop(t *testing.T) {
	e := newTestEngine(&fakeGateway{}, &fakeSource{})
	assert.NoError(t, e.Apply(context.Background(), "missing"))
}

func TestDismiss(t *testing.T) {
	src := &fakeSource{tasks: []model.Task{task("a", "A", model.PriorityHigh)}}
	e := newTestEngine(&fakeGateway{}, src)
	e.Refresh(context.Background(), src.Tasks())
	recs := e.Recommendations()
	require.NotEmpty(t, recs)

	e.Dismiss("missing")
	assert.Len(t, e.Recommendations(), len(recs))

	e.Dismiss(recs[0].ID)
	assert.Len(t, e.Recommendations(), len(recs)-1)
}

func TestDecomposeTask(t *testing.T) {
	gw := &fakeGateway{subtasks: []string{"Outline", "Draft"}}
	src := &fakeSource{tasks: []model.Task{task("a", "Blog post", model.PriorityLow)}}
	e := newTestEngine(gw, src)

	got, err := e.DecomposeTask(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Outline", "Draft"}, got)
	assert.Equal(t, "Blog post", gw.gotTitle)

	_, err = e.DecomposeTask(context.Background(), "missing")
	assert.ErrorIs(t, err, tasks.ErrTaskNotFound)
}

func TestSimilarTaskHistory(t *testing.T) {
	src := &fakeSource{tasks: []model.Task{
		task("target", "Report", model.PriorityLow),
		task("email", "Email", model.PriorityLow),
		task("r1", "Weekly report", model.PriorityLow),
		{ID: "r2", Title: "Draft", Description: "first REPORT draft"},
		task("r3", "Report v2", model.PriorityLow),
		task("r4", "Final report", model.PriorityLow),
	}}
	e := newTestEngine(&fakeGateway{}, src)

	got := e.SimilarTaskHistory("target")
	var ids []string
	for _, t := range got {
		ids = append(ids, t.ID)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)

	assert.Nil(t, e.SimilarTaskHistory("missing"))
}

func TestKeywordClusters(t *testing.T) {
	k := NewKeywordClusters(DefaultKeywords...)

	t.Run("union in keyword order", func(t *testing.T) {
		got := k.Cluster([]model.Task{
			task("a", "Weekly report", model.PriorityLow),
			task("b", "Report review", model.PriorityLow),
			task("c", "Email Bob", model.PriorityLow),
			task("d", "Design email template", model.PriorityLow),
		})
		assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	})

	t.Run("duplicates kept", func(t *testing.T) {
		got := k.Cluster([]model.Task{
			task("a", "Weekly report", model.PriorityLow),
			task("e", "Email the report", model.PriorityLow),
			task("c", "email Bob", model.PriorityLow),
		})
		assert.Equal(t, []string{"a", "e", "e", "c"}, got)
	})

	t.Run("single matches do not qualify", func(t *testing.T) {
		got := k.Cluster([]model.Task{
			task("a", "Weekly report", model.PriorityLow),
			{ID: "m", Title: "Sync", Description: "team MEETING notes"},
		})
		assert.Empty(t, got)
	})

	t.Run("custom predicate", func(t *testing.T) {
		urgent := Predicate{Label: "urgent", Match: func(t model.Task) bool {
			return strings.HasPrefix(t.Title, "!")
		}}
		custom := &KeywordClusters{Predicates: []Predicate{urgent}, MinGroupSize: 3}
		all := []model.Task{task("1", "!a", model.PriorityLow), task("2", "!b", model.PriorityLow)}
		assert.Empty(t, custom.Cluster(all))
		all = append(all, task("3", "!c", model.PriorityLow))
		assert.Equal(t, []string{"1", "2", "3"}, custom.Cluster(all))
	})
}
