package model

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Category groups recommendations by the kind of advice they give.
type Category string

const (
	CategoryPrioritization Category = "prioritization"
	CategoryScheduling     Category = "scheduling"
	CategoryDelegation     Category = "delegation"
	CategoryDecomposition  Category = "decomposition"
	CategoryPattern        Category = "pattern"
)

// Recommendation is a transient, user-actionable suggestion. It is never persisted.
type Recommendation struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Rule        string   `json:"rule"` // check that produced it; rules may share a category
	Message     string   `json:"message"`
	ActionLabel string   `json:"action_label"`

	// Action runs when the recommendation is applied. May be nil.
	Action func(ctx context.Context) error `json:"-"`

	Applied   bool      `json:"applied"`
	TaskIDs   []string  `json:"task_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// Key identifies the underlying condition of a recommendation: its
// category and rule plus the sorted set of referenced tasks.
func (r Recommendation) Key() string {
	ids := slices.Clone(r.TaskIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return string(r.Category) + "|" + r.Rule + "|" + strings.Join(ids, ",")
}

// TimeSlot is a suggested window for focused work.
type TimeSlot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Score      float64   `json:"score"`
	Suggestion string    `json:"suggestion"`
}

// ProductivityPattern is the synthetic productivity score for one
// day-of-week and hour-of-day cell.
type ProductivityPattern struct {
	Day   time.Weekday `json:"day"`
	Hour  int          `json:"hour"`
	Score float64      `json:"score"`
}

// NotificationSettings controls reminder scheduling. It is passed
// explicitly to the reminder scheduler on every call.
type NotificationSettings struct {
	Enabled  bool
	LeadTime time.Duration
}
