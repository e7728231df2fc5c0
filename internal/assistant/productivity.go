package assistant

import (
	"math"
	"sort"
	"time"

	"github.com/nhle/taskpilot/internal/model"
)

// Hours of the day offered as focus slots.
var slotHours = []int{9, 11, 14, 16}

// productivityScore is the synthetic score for one day/hour cell: a weekday
// or weekend baseline, a mid-morning and early-afternoon bonus, and a
// jitter in [-1, 1], clamped to [1, 10].
func productivityScore(day time.Weekday, hour int, jitter float64) float64 {
	score := 6.0
	if day == time.Saturday || day == time.Sunday {
		score = 4.0
	}
	switch {
	case hour >= 9 && hour <= 11:
		score += 2
	case hour >= 14 && hour <= 16:
		score++
	}
	score += jitter
	score = math.Max(1, math.Min(10, score))
	return math.Round(score*10) / 10
}

// suggestionFor maps a slot score to the kind of work it suits.
func suggestionFor(score float64) string {
	switch {
	case score > 8:
		return "Peak focus: tackle your most complex tasks"
	case score > 5:
		return "Good energy: work on moderate tasks"
	default:
		return "Lower energy: handle simple tasks and admin"
	}
}

// AnalyzeProductivity regenerates the 7 x 24 productivity table and returns it.
func (e *Engine) AnalyzeProductivity() []model.ProductivityPattern {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.regeneratePatternsLocked()
	out := make([]model.ProductivityPattern, len(e.patterns))
	copy(out, e.patterns)
	return out
}

func (e *Engine) regeneratePatternsLocked() {
	patterns := make([]model.ProductivityPattern, 0, 7*24)
	for d := time.Sunday; d <= time.Saturday; d++ {
		for h := 0; h < 24; h++ {
			jitter := e.rng.Float64()*2 - 1
			patterns = append(patterns, model.ProductivityPattern{
				Day:   d,
				Hour:  h,
				Score: productivityScore(d, h, jitter),
			})
		}
	}
	e.patterns = patterns
}

// OptimizedSchedule returns one-hour focus slots for day, scored from the
// productivity table, in chronological order.
func (e *Engine) OptimizedSchedule(day time.Time) []model.TimeSlot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.patterns) == 0 {
		e.regeneratePatternsLocked()
	}

	slots := make([]model.TimeSlot, 0, len(slotHours))
	for _, h := range slotHours {
		start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
		score := e.patterns[int(day.Weekday())*24+h].Score
		slots = append(slots, model.TimeSlot{
			Start:      start,
			End:        start.Add(time.Hour),
			Score:      score,
			Suggestion: suggestionFor(score),
		})
	}
	return slots
}

// bestSlots returns slots ordered by descending score, earliest first on ties.
func bestSlots(slots []model.TimeSlot) []model.TimeSlot {
	out := make([]model.TimeSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
