// Package ruleset holds the per-kind configuration that drives the generic
// engines: filter profile, scoring weights, segment decision list and
// recommendation rules.
package ruleset

import (
	"fmt"

	"propdesk/internal/domain"
	"propdesk/internal/filter"
	"propdesk/internal/recommend"
	"propdesk/internal/scoring"
	"propdesk/internal/segment"
)

type KindRules struct {
	Kind            domain.Kind
	Profile         filter.Profile
	Scoring         scoring.RuleSet
	Segments        segment.DecisionList
	Recommendations []recommend.Rule
}

type Catalog struct {
	kinds map[domain.Kind]KindRules
}

func NewCatalog(rules ...KindRules) (*Catalog, error) {
	c := &Catalog{kinds: make(map[domain.Kind]KindRules, len(rules))}
	for _, r := range rules {
		if err := r.Segments.Validate(); err != nil {
			return nil, err
		}
		c.kinds[r.Kind] = r
	}
	return c, nil
}

func (c *Catalog) Get(kind domain.Kind) (KindRules, error) {
	r, ok := c.kinds[kind]
	if !ok {
		return KindRules{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	return r, nil
}

func (c *Catalog) Kinds() []domain.Kind {
	var out []domain.Kind
	for _, k := range domain.Kinds {
		if _, ok := c.kinds[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
