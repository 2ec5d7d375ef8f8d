// Package segment assigns each scored entity exactly one label from its kind's
// enumeration using an ordered decision list.
package segment

import (
	"fmt"
	"time"

	"propdesk/internal/domain"
)

type Condition func(e domain.Entity, score int, now time.Time) bool

type Rule struct {
	Label domain.Segment
	When  Condition
}

// DecisionList is evaluated top to bottom; the first matching rule decides the
// label and Default catches everything else.
type DecisionList struct {
	Kind    domain.Kind
	Labels  []domain.Segment
	Rules   []Rule
	Default domain.Segment
}

func (d DecisionList) Segment(e domain.Entity, score int, now time.Time) domain.Segment {
	for _, r := range d.Rules {
		if r.When != nil && r.When(e, score, now) {
			return r.Label
		}
	}
	return d.Default
}

// Validate checks that every label the list can produce is in Labels.
func (d DecisionList) Validate() error {
	known := make(map[domain.Segment]bool, len(d.Labels))
	for _, l := range d.Labels {
		known[l] = true
	}
	if d.Default == "" || !known[d.Default] {
		return fmt.Errorf("%w: %s default segment %q is not a declared label", domain.ErrValidation, d.Kind, d.Default)
	}
	for _, r := range d.Rules {
		if !known[r.Label] {
			return fmt.Errorf("%w: %s segment %q is not a declared label", domain.ErrValidation, d.Kind, r.Label)
		}
	}
	return nil
}

// SegmentAll labels every entity using its score. Entities without a score
// are segmented as if they scored zero.
func (d DecisionList) SegmentAll(entities []domain.Entity, scores map[string]int, now time.Time) map[string]domain.Segment {
	out := make(map[string]domain.Segment, len(entities))
	for _, e := range entities {
		out[e.ID] = d.Segment(e, scores[e.ID], now)
	}
	return out
}

// Partition groups ids by segment. Every declared label gets a bucket, possibly
// empty; ids keep the order of entities.
func Partition(entities []domain.Entity, segments map[string]domain.Segment, labels []domain.Segment) map[domain.Segment][]string {
	buckets := make(map[domain.Segment][]string, len(labels))
	for _, l := range labels {
		buckets[l] = []string{}
	}
	for _, e := range entities {
		s, ok := segments[e.ID]
		if !ok {
			continue
		}
		buckets[s] = append(buckets[s], e.ID)
	}
	return buckets
}

// ScoreBelow is a Condition on the score alone.
func ScoreBelow(threshold int) Condition {
	return func(_ domain.Entity, score int, _ time.Time) bool { return score < threshold }
}

// OnEntity lifts an entity-only predicate into a Condition.
func OnEntity(p func(domain.Entity, time.Time) bool) Condition {
	return func(e domain.Entity, _ int, now time.Time) bool { return p(e, now) }
}
