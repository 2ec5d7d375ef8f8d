package segment

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propdesk/internal/domain"
	"propdesk/internal/scoring"
)

var now = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func clientList() DecisionList {
	return DecisionList{
		Kind:   domain.KindClient,
		Labels: []domain.Segment{"high_value", "inactive", "new", "regular"},
		Rules: []Rule{
			{Label: "high_value", When: OnEntity(scoring.FieldAtLeast("buildingsCount", 5))},
			{Label: "inactive", When: OnEntity(scoring.MonthsSinceOver("lastInspection", 12))},
			{Label: "new", When: OnEntity(scoring.Missing("lastInspection"))},
		},
		Default: "regular",
	}
}

func TestFirstMatchWins(t *testing.T) {
	d := clientList()
	entities := []domain.Entity{
		domain.NewEntity(1, map[string]any{"buildingsCount": 6}),
		domain.NewEntity(2, map[string]any{"buildingsCount": 1, "lastInspection": nil}),
		domain.NewEntity(3, map[string]any{"buildingsCount": 7, "lastInspection": "2020-01-01"}),
		domain.NewEntity(4, map[string]any{"buildingsCount": 2, "lastInspection": "2025-01-01"}),
	}
	got := d.SegmentAll(entities, nil, now)
	assert.Equal(t, map[string]domain.Segment{
		"1": "high_value",
		"2": "new",
		"3": "high_value",
		"4": "regular",
	}, got)
}

func TestValidate(t *testing.T) {
	require.NoError(t, clientList().Validate())

	bad := clientList()
	bad.Default = "vip"
	assert.ErrorIs(t, bad.Validate(), domain.ErrValidation)

	bad = clientList()
	bad.Rules = append(bad.Rules, Rule{Label: "churned", When: ScoreBelow(10)})
	assert.ErrorIs(t, bad.Validate(), domain.ErrValidation)
}

func TestPartitionCoversEveryEntityOnce(t *testing.T) {
	d := clientList()
	properties := gopter.NewProperties(nil)
	properties.Property("segments partition the collection", prop.ForAll(
		func(counts []int) bool {
			entities := make([]domain.Entity, len(counts))
			for i, c := range counts {
				fields := map[string]any{"buildingsCount": c}
				if c%3 == 0 {
					fields["lastInspection"] = "2019-03-01"
				}
				entities[i] = domain.NewEntity(i, fields)
			}
			segs := d.SegmentAll(entities, nil, now)
			buckets := Partition(entities, segs, d.Labels)

			seen := map[string]int{}
			for label, ids := range buckets {
				if !contains(d.Labels, label) {
					return false
				}
				for _, id := range ids {
					seen[id]++
				}
			}
			if len(seen) != len(entities) {
				return false
			}
			for _, n := range seen {
				if n != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10)),
	))
	properties.TestingRun(t)
}

func contains(labels []domain.Segment, l domain.Segment) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}
