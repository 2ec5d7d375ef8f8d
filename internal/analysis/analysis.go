// Package analysis runs scoring, segmentation and recommendations over one
// snapshot of a filtered collection.
package analysis

import (
	"time"

	"propdesk/internal/domain"
	"propdesk/internal/recommend"
	"propdesk/internal/ruleset"
	"propdesk/internal/segment"
)

type Result struct {
	Kind            domain.Kind
	Scores          map[string]int
	Segments        map[string]domain.Segment
	Buckets         map[domain.Segment][]string
	Labels          []domain.Segment
	Stats           recommend.Stats
	Recommendations []domain.Recommendation
	RanAt           time.Time
}

type Options struct {
	Order recommend.Order
}

// Run is deterministic for a fixed snapshot, rule set and clock.
func Run(entities []domain.Entity, rules ruleset.KindRules, now time.Time, opts Options) Result {
	scores := rules.Scoring.ScoreAll(entities, now)
	segments := rules.Segments.SegmentAll(entities, scores, now)
	stats := recommend.ComputeStats(entities, scores, segments)
	recs := recommend.Recommend(recommend.Input{
		Entities: entities,
		Scores:   scores,
		Segments: segments,
		Stats:    stats,
		Now:      now,
	}, rules.Recommendations, opts.Order)

	return Result{
		Kind:            rules.Kind,
		Scores:          scores,
		Segments:        segments,
		Buckets:         segment.Partition(entities, segments, rules.Segments.Labels),
		Labels:          append([]domain.Segment(nil), rules.Segments.Labels...),
		Stats:           stats,
		Recommendations: recs,
		RanAt:           now,
	}
}

// Recommendation finds a recommendation of the result by id.
func (r Result) Recommendation(id string) (domain.Recommendation, bool) {
	for _, rec := range r.Recommendations {
		if rec.ID == id {
			return rec, true
		}
	}
	return domain.Recommendation{}, false
}
