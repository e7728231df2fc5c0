package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskpilot/internal/calendar"
	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/reminder"
	"github.com/nhle/taskpilot/internal/tasks"
	"github.com/nhle/taskpilot/tests/testutil"
)

func TestProductivityScore(t *testing.T) {
	tests := []struct {
		name   string
		day    time.Weekday
		hour   int
		jitter float64
		want   float64
	}{
		{"weekday morning bonus", time.Monday, 9, 0, 8},
		{"weekday afternoon bonus", time.Wednesday, 15, 0.5, 7.5},
		{"weekday night", time.Friday, 22, -0.25, 5.8},
		{"weekend baseline", time.Saturday, 3, 0, 4},
		{"clamped high", time.Monday, 10, 5, 10},
		{"clamped low", time.Sunday, 0, -5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, productivityScore(tt.day, tt.hour, tt.jitter), 1e-9)
		})
	}
}

func TestSuggestionFor(t *testing.T) {
	assert.Contains(t, suggestionFor(8.5), "complex")
	assert.Contains(t, suggestionFor(8), "moderate")
	assert.Contains(t, suggestionFor(5.1), "moderate")
	assert.Contains(t, suggestionFor(5), "simple")
}

func TestAnalyzeProductivity(t *testing.T) {
	e := newTestEngine(&fakeGateway{}, &fakeSource{})

	patterns := e.AnalyzeProductivity()
	require.Len(t, patterns, 7*24)

	for _, p := range patterns {
		assert.GreaterOrEqual(t, p.Score, 1.0)
		assert.LessOrEqual(t, p.Score, 10.0)
	}

	monday10 := patterns[int(time.Monday)*24+10]
	assert.Equal(t, time.Monday, monday10.Day)
	assert.Equal(t, 10, monday10.Hour)
	assert.InDelta(t, 8, monday10.Score, 1)

	sunday3 := patterns[3]
	assert.Equal(t, time.Sunday, sunday3.Day)
	assert.InDelta(t, 4, sunday3.Score, 1)
}

func TestOptimizedSchedule(t *testing.T) {
	e := newTestEngine(&fakeGateway{}, &fakeSource{})

	slots := e.OptimizedSchedule(testNow)
	require.Len(t, slots, 4)
	for i, s := range slots {
		assert.Equal(t, slotHours[i], s.Start.Hour())
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
		assert.Equal(t, suggestionFor(s.Score), s.Suggestion)
	}

	assert.Equal(t, slots, e.OptimizedSchedule(testNow), "the table is reused until regenerated")

	best := bestSlots(slots)
	for i := 1; i < len(best); i++ {
		assert.GreaterOrEqual(t, best[i-1].Score, best[i].Score)
	}
}

// TestApply_ThroughTaskService wires the engine to a real task service so
// applying a recommendation re-enters Refresh through the change observer.
func TestApply_ThroughTaskService(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	now := func() time.Time { return testNow }
	svc := tasks.NewService(
		st,
		calendar.Disabled{},
		reminder.NewScheduler(st, nil, reminder.WithClock(now)),
		model.NotificationSettings{Enabled: true, LeadTime: 30 * time.Minute},
		nil,
		tasks.WithClock(now),
	)
	e := newTestEngine(&fakeGateway{}, svc)
	svc.OnChange(e.Refresh)

	plan, err := svc.AddTask(ctx, model.Task{Title: "Plan sprint", Priority: model.PriorityHigh})
	require.NoError(t, err)
	water, err := svc.AddTask(ctx, model.Task{Title: "Water plants", Priority: model.PriorityLow})
	require.NoError(t, err)

	var target model.Recommendation
	for _, r := range byCategory(e.Recommendations(), model.CategoryScheduling) {
		if len(r.TaskIDs) == 2 {
			target = r
		}
	}
	require.NotEmpty(t, target.ID)
	assert.Equal(t, []string{plan.ID, water.ID}, target.TaskIDs)

	require.NoError(t, e.Apply(ctx, target.ID))

	best := bestSlots(e.TimeSlots())
	gotPlan, _ := svc.GetTask(plan.ID)
	gotWater, _ := svc.GetTask(water.ID)
	require.NotNil(t, gotPlan.StartTime)
	require.NotNil(t, gotWater.StartTime)
	assert.True(t, best[0].Start.Equal(*gotPlan.StartTime))
	assert.True(t, best[1].Start.Equal(*gotWater.StartTime))
	assert.Equal(t, 60, *gotPlan.Duration)

	for _, r := range e.Recommendations() {
		if r.ID == target.ID {
			assert.True(t, r.Applied)
		}
	}

	persisted, err := st.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.NotNil(t, persisted[0].StartTime)
}
