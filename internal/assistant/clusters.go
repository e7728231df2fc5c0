package assistant

import (
	"strings"

	"github.com/nhle/taskpilot/internal/model"
)

// DefaultKeywords is the topical vocabulary used to spot batchable tasks.
var DefaultKeywords = []string{"report", "email", "meeting", "design"}

// ClusterStrategy finds tasks similar enough to be batched together.
// It returns the ids of all clustered tasks; an id may appear more than
// once when a task belongs to several groups.
type ClusterStrategy interface {
	Cluster(tasks []model.Task) []string
}

// Predicate is one named grouping rule.
type Predicate struct {
	Label string
	Match func(model.Task) bool
}

// KeywordClusters groups tasks by an ordered list of predicates. A group
// counts when it has at least MinGroupSize members.
type KeywordClusters struct {
	Predicates   []Predicate
	MinGroupSize int
}

// NewKeywordClusters builds a strategy with one case-insensitive
// title-or-description predicate per keyword.
func NewKeywordClusters(keywords ...string) *KeywordClusters {
	preds := make([]Predicate, 0, len(keywords))
	for _, kw := range keywords {
		preds = append(preds, KeywordPredicate(kw))
	}
	return &KeywordClusters{Predicates: preds, MinGroupSize: 2}
}

// KeywordPredicate matches tasks whose title or description contains keyword.
func KeywordPredicate(keyword string) Predicate {
	kw := strings.ToLower(keyword)
	return Predicate{
		Label: keyword,
		Match: func(t model.Task) bool {
			return strings.Contains(strings.ToLower(t.Title), kw) ||
				strings.Contains(strings.ToLower(t.Description), kw)
		},
	}
}

// Cluster returns the union of every qualifying group, in predicate order.
func (k *KeywordClusters) Cluster(tasks []model.Task) []string {
	minSize := k.MinGroupSize
	if minSize <= 0 {
		minSize = 2
	}

	var ids []string
	for _, p := range k.Predicates {
		var group []string
		for _, t := range tasks {
			if p.Match(t) {
				group = append(group, t.ID)
			}
		}
		if len(group) >= minSize {
			ids = append(ids, group...)
		}
	}
	return ids
}
