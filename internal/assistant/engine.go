// Package assistant derives actionable recommendations, insights and
// focus-time suggestions from the task collection.
package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/tasks"
)

// similarHistoryLimit caps SimilarTaskHistory results.
const similarHistoryLimit = 3

// insightsMinTasks is the collection size from which the AI analysis runs.
const insightsMinTasks = 3

// Rules that produce recommendations.
const (
	RuleInsights  = "insights"
	RuleOverdue   = "overdue"
	RuleBatch     = "batch"
	RuleFocusTime = "focus-time"
)

// Gateway is the AI functionality the engine relies on.
type Gateway interface {
	AnalyzeTaskPatterns(ctx context.Context, tasks []model.Task) (string, error)
	DecomposeTask(ctx context.Context, title, description string) []string
}

// TaskSource gives the engine read access to tasks and a way to apply
// recommendations through the normal update path.
type TaskSource interface {
	Tasks() []model.Task
	GetTask(id string) (model.Task, bool)
	UpdateTask(ctx context.Context, task model.Task) error
}

// Engine holds the accumulated recommendations and derived statistics.
type Engine struct {
	gateway  Gateway
	source   TaskSource
	clusters ClusterStrategy
	rng      *rand.Rand
	now      func() time.Time
	logger   *zap.Logger

	mu              sync.Mutex
	recommendations []model.Recommendation
	insights        string
	slots           []model.TimeSlot
	patterns        []model.ProductivityPattern
}

// Option configures an Engine.
type Option func(*Engine)

// WithClusterStrategy replaces the keyword cluster detection.
func WithClusterStrategy(s ClusterStrategy) Option {
	return func(e *Engine) { e.clusters = s }
}

// WithRand sets the random source behind the synthetic productivity scores.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over source, enriched through gateway.
func NewEngine(gateway Gateway, source TaskSource, opts ...Option) *Engine {
	e := &Engine{
		gateway:  gateway,
		source:   source,
		clusters: NewKeywordClusters(DefaultKeywords...),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger).Named("assistant")
	return e
}

// Refresh evaluates the collection and appends any new recommendations.
// A recommendation whose category, rule and task set match an existing one
// is not added again. Its signature matches tasks.ChangeFunc.
func (e *Engine) Refresh(ctx context.Context, all []model.Task) {
	if len(all) == 0 {
		return
	}
	now := e.now()

	var fresh []model.Recommendation
	var insights string

	if len(all) >= insightsMinTasks {
		text, err := e.gateway.AnalyzeTaskPatterns(ctx, all)
		if err != nil {
			e.logger.Debug("skipping pattern analysis", zap.Error(err))
		} else {
			insights = text
			fresh = append(fresh, e.newRecommendation(now, model.CategoryPattern, RuleInsights,
				"New insights about your work patterns are available.",
				"View insights", taskIDs(all), nil))
		}
	}

	if overdue := overdueHighPriority(all, now); len(overdue) > 0 {
		fresh = append(fresh, e.newRecommendation(now, model.CategoryPrioritization, RuleOverdue,
			fmt.Sprintf("You have %s. Tackle %s first.",
				plural(len(overdue), "overdue high-priority task"), them(len(overdue))),
			"Show overdue", overdue, nil))
	}

	if cluster := e.clusters.Cluster(all); len(cluster) > 2 {
		fresh = append(fresh, e.newRecommendation(now, model.CategoryPattern, RuleBatch,
			fmt.Sprintf("%d similar tasks could be batched into one focused session.", len(cluster)),
			"Batch similar tasks", cluster, nil))
	}

	slots := e.OptimizedSchedule(now)
	if len(slots) > 0 {
		targets := schedulingCandidates(all, len(slots))
		best := bestSlots(slots)[0]
		fresh = append(fresh, e.newRecommendation(now, model.CategoryScheduling, RuleFocusTime,
			fmt.Sprintf("Your most productive window today starts at %s. %s.",
				best.Start.Format("15:04"), best.Suggestion),
			"Schedule focus time", targets, e.scheduleAction(slots, targets)))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if insights != "" {
		e.insights = insights
	}
	if len(slots) > 0 {
		e.slots = slots
	}
	for _, rec := range fresh {
		if e.hasKeyLocked(rec.Key()) {
			continue
		}
		e.recommendations = append(e.recommendations, rec)
	}
}

func (e *Engine) hasKeyLocked(key string) bool {
	for _, r := range e.recommendations {
		if r.Key() == key {
			return true
		}
	}
	return false
}

func (e *Engine) newRecommendation(
	now time.Time,
	category model.Category,
	rule, message, label string,
	ids []string,
	action func(ctx context.Context) error,
) model.Recommendation {
	return model.Recommendation{
		ID:          uuid.New().String(),
		Category:    category,
		Rule:        rule,
		Message:     message,
		ActionLabel: label,
		Action:      action,
		TaskIDs:     ids,
		CreatedAt:   now,
	}
}

// Apply runs the recommendation's action, if any, and marks it applied.
// The recommendation stays in the list. Unknown ids are ignored.
func (e *Engine) Apply(ctx context.Context, id string) error {
	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return nil
	}
	action := e.recommendations[i].Action
	e.mu.Unlock()

	// The action may update tasks, which re-enters Refresh.
	if action != nil {
		if err := action(ctx); err != nil {
			return fmt.Errorf("applying recommendation %s: %w", id, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(id); i >= 0 {
		e.recommendations[i].Applied = true
	}
	return nil
}

// Dismiss removes the recommendation. Unknown ids are ignored.
func (e *Engine) Dismiss(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexLocked(id); i >= 0 {
		e.recommendations = append(e.recommendations[:i], e.recommendations[i+1:]...)
	}
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.recommendations {
		if e.recommendations[i].ID == id {
			return i
		}
	}
	return -1
}

// Recommendations returns a copy of the current list, oldest first.
func (e *Engine) Recommendations() []model.Recommendation {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Recommendation, len(e.recommendations))
	copy(out, e.recommendations)
	return out
}

// Insights returns the latest AI pattern analysis, if any.
func (e *Engine) Insights() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insights
}

// TimeSlots returns the slots computed by the latest refresh.
func (e *Engine) TimeSlots() []model.TimeSlot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.TimeSlot, len(e.slots))
	copy(out, e.slots)
	return out
}

// DecomposeTask splits the task into ordered subtask labels.
func (e *Engine) DecomposeTask(ctx context.Context, taskID string) ([]string, error) {
	t, ok := e.source.GetTask(taskID)
	if !ok {
		return nil, fmt.Errorf("decomposing task %s: %w", taskID, tasks.ErrTaskNotFound)
	}
	return e.gateway.DecomposeTask(ctx, t.Title, t.Description), nil
}

// SimilarTaskHistory returns up to three other tasks whose title or
// description contains the target's title or description.
func (e *Engine) SimilarTaskHistory(taskID string) []model.Task {
	target, ok := e.source.GetTask(taskID)
	if !ok {
		return nil
	}

	var needles []string
	for _, s := range []string{target.Title, target.Description} {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			needles = append(needles, s)
		}
	}

	var out []model.Task
	for _, t := range e.source.Tasks() {
		if t.ID == target.ID {
			continue
		}
		hay := strings.ToLower(t.Title) + "\n" + strings.ToLower(t.Description)
		for _, n := range needles {
			if strings.Contains(hay, n) {
				out = append(out, t)
				break
			}
		}
		if len(out) == similarHistoryLimit {
			break
		}
	}
	return out
}

// scheduleAction assigns the best slots to the target tasks, highest
// priority first. Tasks that were completed or scheduled in the meantime
// are skipped.
func (e *Engine) scheduleAction(slots []model.TimeSlot, targets []string) func(ctx context.Context) error {
	if len(targets) == 0 {
		return nil
	}
	ordered := bestSlots(slots)

	return func(ctx context.Context) error {
		next := 0
		for _, id := range targets {
			if next >= len(ordered) {
				break
			}
			t, ok := e.source.GetTask(id)
			if !ok || t.Status == model.StatusCompleted || t.StartTime != nil {
				continue
			}

			start := ordered[next].Start
			minutes := int(ordered[next].End.Sub(start).Minutes())
			t.StartTime = &start
			t.Duration = &minutes
			if err := e.source.UpdateTask(ctx, t); err != nil {
				return fmt.Errorf("scheduling task %s: %w", id, err)
			}
			next++
		}
		return nil
	}
}

// schedulingCandidates picks up to n open, unscheduled tasks ordered by
// priority, then earliest deadline.
func schedulingCandidates(all []model.Task, n int) []string {
	var open []model.Task
	for _, t := range all {
		if t.Status != model.StatusCompleted && t.StartTime == nil {
			open = append(open, t)
		}
	}

	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i], open[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		switch {
		case a.Deadline == nil:
			return false
		case b.Deadline == nil:
			return true
		default:
			return a.Deadline.Before(*b.Deadline)
		}
	})

	if len(open) > n {
		open = open[:n]
	}
	return taskIDs(open)
}

func overdueHighPriority(all []model.Task, now time.Time) []string {
	var ids []string
	for _, t := range all {
		if t.Priority == model.PriorityHigh && t.IsOverdue(now) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func taskIDs(ts []model.Task) []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func them(n int) string {
	if n == 1 {
		return "it"
	}
	return "them"
}
