// Package recommend turns segment membership and aggregate statistics into a
// short list of suggested actions.
package recommend

import (
	"sort"
	"time"

	"propdesk/internal/domain"
)

// Stats aggregates one analysis run.
type Stats struct {
	Total         int
	AverageScore  float64
	SegmentCounts map[domain.Segment]int
}

type Input struct {
	Entities []domain.Entity
	Scores   map[string]int
	Segments map[string]domain.Segment
	Stats    Stats
	Now      time.Time
}

// Rule produces one recommendation when Targets returns at least one id.
type Rule struct {
	ID          string
	Title       string
	Description string
	ActionLabel string
	Targets     func(in Input) []string
}

// Order is how recommendations are presented. Evaluation order is the order
// rules are declared in; the engine does not rank across rule types.
type Order int

const (
	OrderEvaluation Order = iota
	OrderLargestFirst
)

// Recommend evaluates rules in order. Target ids are copied, so the result
// does not follow later changes to the data.
func Recommend(in Input, rules []Rule, order Order) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(rules))
	for _, r := range rules {
		if r.Targets == nil {
			continue
		}
		targets := r.Targets(in)
		if len(targets) == 0 {
			continue
		}
		out = append(out, domain.Recommendation{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			TargetIDs:   append([]string(nil), targets...),
			ActionLabel: r.ActionLabel,
		})
	}
	if order == OrderLargestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return len(out[i].TargetIDs) > len(out[j].TargetIDs)
		})
	}
	return out
}

// ComputeStats summarises scores and segment counts.
func ComputeStats(entities []domain.Entity, scores map[string]int, segments map[string]domain.Segment) Stats {
	st := Stats{Total: len(entities), SegmentCounts: map[domain.Segment]int{}}
	if len(entities) == 0 {
		return st
	}
	sum := 0
	for _, e := range entities {
		sum += scores[e.ID]
		if s, ok := segments[e.ID]; ok {
			st.SegmentCounts[s]++
		}
	}
	st.AverageScore = float64(sum) / float64(len(entities))
	return st
}

// InSegment targets every entity labelled with one of the given segments.
func InSegment(labels ...domain.Segment) func(Input) []string {
	return func(in Input) []string {
		var ids []string
		for _, e := range in.Entities {
			s := in.Segments[e.ID]
			for _, l := range labels {
				if s == l {
					ids = append(ids, e.ID)
					break
				}
			}
		}
		return ids
	}
}

// Matching targets every entity satisfying p.
func Matching(p func(domain.Entity, time.Time) bool) func(Input) []string {
	return func(in Input) []string {
		var ids []string
		for _, e := range in.Entities {
			if p(e, in.Now) {
				ids = append(ids, e.ID)
			}
		}
		return ids
	}
}

// BelowAverageWhen targets entities scoring under the run's average, but only
// when that average is below threshold.
func BelowAverageWhen(threshold float64) func(Input) []string {
	return func(in Input) []string {
		if in.Stats.Total == 0 || in.Stats.AverageScore >= threshold {
			return nil
		}
		var ids []string
		for _, e := range in.Entities {
			if float64(in.Scores[e.ID]) < in.Stats.AverageScore {
				ids = append(ids, e.ID)
			}
		}
		return ids
	}
}
