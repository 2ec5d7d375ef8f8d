// Package scoring computes bounded health/value scores from weighted rules.
package scoring

import (
	"time"

	"propdesk/internal/domain"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Predicate decides whether a rule applies. now is the only clock a rule may
// read.
type Predicate func(e domain.Entity, now time.Time) bool

type Rule struct {
	Name  string
	Delta int
	When  Predicate
}

type RuleSet struct {
	Kind  domain.Kind
	Base  int
	Rules []Rule
}

// Score adds the delta of every matching rule to the base and clamps the sum
// once, after all rules have been applied.
func (rs RuleSet) Score(e domain.Entity, now time.Time) int {
	total := rs.Base
	for _, r := range rs.Rules {
		if r.When != nil && r.When(e, now) {
			total += r.Delta
		}
	}
	return Clamp(total)
}

// Explain lists the rules that matched e, in evaluation order.
func (rs RuleSet) Explain(e domain.Entity, now time.Time) []Rule {
	var matched []Rule
	for _, r := range rs.Rules {
		if r.When != nil && r.When(e, now) {
			matched = append(matched, r)
		}
	}
	return matched
}

// ScoreAll scores every entity, keyed by id.
func (rs RuleSet) ScoreAll(entities []domain.Entity, now time.Time) map[string]int {
	out := make(map[string]int, len(entities))
	for _, e := range entities {
		out[e.ID] = rs.Score(e, now)
	}
	return out
}

func Clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
