package ruleset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"propdesk/internal/domain"
	"propdesk/internal/recommend"
	"propdesk/internal/scoring"
	"propdesk/internal/segment"
)

// Overrides is the rules file layout, keyed by kind:
//
//	building:
//	  base: 100
//	  rules:
//	    - name: flat roof
//	      delta: -5
//	      when: 'e.roofType == "flat"'
//	  segments:
//	    rules:
//	      - label: critical
//	        when: 'score < 30'
type Overrides map[string]KindOverride

type KindOverride struct {
	Base         *int              `yaml:"base"`
	ReplaceRules bool              `yaml:"replace_rules"`
	Rules        []RuleOverride    `yaml:"rules"`
	Segments     *SegmentOverride  `yaml:"segments"`
	SearchFields []string          `yaml:"search_fields"`
	Aliases      map[string]string `yaml:"aliases"`
	Recommend    []RecommendRule   `yaml:"recommendations"`
}

type RuleOverride struct {
	Name  string `yaml:"name"`
	Delta int    `yaml:"delta"`
	When  string `yaml:"when"`
}

// SegmentOverride replaces the kind's decision list rules when Rules is set.
type SegmentOverride struct {
	Labels  []string              `yaml:"labels"`
	Default string                `yaml:"default"`
	Rules   []SegmentRuleOverride `yaml:"rules"`
}

type SegmentRuleOverride struct {
	Label string `yaml:"label"`
	When  string `yaml:"when"`
}

// RecommendRule adds a recommendation targeting entities in Segments or
// matching When.
type RecommendRule struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	ActionLabel string   `yaml:"action_label"`
	Segments    []string `yaml:"segments"`
	When        string   `yaml:"when"`
}

func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	return o, nil
}

// Load builds a catalog from the defaults, applying the rules file at path
// when path is non-empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	o, err := LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	return Apply(Defaults(), o)
}

// Apply merges overrides into base. Expression errors fail the whole load.
func Apply(base []KindRules, o Overrides) (*Catalog, error) {
	env, err := newExprEnv()
	if err != nil {
		return nil, err
	}
	byKind := make(map[domain.Kind]KindRules, len(base))
	for _, kr := range base {
		byKind[kr.Kind] = kr
	}

	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, err := domain.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kr, ok := byKind[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, name)
		}
		merged, err := applyKind(env, kr, o[name])
		if err != nil {
			return nil, fmt.Errorf("%s rules: %w", kind, err)
		}
		byKind[kind] = merged
	}

	out := make([]KindRules, 0, len(byKind))
	for _, k := range domain.Kinds {
		if kr, ok := byKind[k]; ok {
			out = append(out, kr)
		}
	}
	return NewCatalog(out...)
}

func applyKind(env *exprEnv, kr KindRules, ko KindOverride) (KindRules, error) {
	if ko.Base != nil {
		kr.Scoring.Base = *ko.Base
	}

	var rules []scoring.Rule
	if !ko.ReplaceRules {
		rules = append(rules, kr.Scoring.Rules...)
	}
	for _, r := range ko.Rules {
		x, err := env.compile(r.When)
		if err != nil {
			return kr, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		rules = append(rules, scoring.Rule{Name: r.Name, Delta: r.Delta, When: x.predicate()})
	}
	kr.Scoring.Rules = rules

	if ko.Segments != nil {
		seg := kr.Segments
		if len(ko.Segments.Labels) > 0 {
			seg.Labels = nil
			for _, l := range ko.Segments.Labels {
				seg.Labels = append(seg.Labels, domain.Segment(l))
			}
		}
		if ko.Segments.Default != "" {
			seg.Default = domain.Segment(ko.Segments.Default)
		}
		if len(ko.Segments.Rules) > 0 {
			seg.Rules = nil
			for _, r := range ko.Segments.Rules {
				x, err := env.compile(r.When)
				if err != nil {
					return kr, fmt.Errorf("segment %q: %w", r.Label, err)
				}
				seg.Rules = append(seg.Rules, segment.Rule{Label: domain.Segment(r.Label), When: x.condition()})
			}
		}
		kr.Segments = seg
	}

	if len(ko.SearchFields) > 0 {
		kr.Profile.SearchFields = append([]string(nil), ko.SearchFields...)
	}
	if len(ko.Aliases) > 0 {
		aliases := make(map[string]string, len(kr.Profile.Aliases)+len(ko.Aliases))
		for k, v := range kr.Profile.Aliases {
			aliases[k] = v
		}
		for k, v := range ko.Aliases {
			aliases[k] = v
		}
		kr.Profile.Aliases = aliases
	}

	recs := append([]recommend.Rule(nil), kr.Recommendations...)
	for _, r := range ko.Recommend {
		rule := recommend.Rule{ID: r.ID, Title: r.Title, Description: r.Description, ActionLabel: r.ActionLabel}
		switch {
		case r.When != "":
			x, err := env.compile(r.When)
			if err != nil {
				return kr, fmt.Errorf("recommendation %q: %w", r.ID, err)
			}
			rule.Targets = recommend.Matching(x.predicate())
		case len(r.Segments) > 0:
			labels := make([]domain.Segment, len(r.Segments))
			for i, s := range r.Segments {
				labels[i] = domain.Segment(s)
			}
			rule.Targets = recommend.InSegment(labels...)
		default:
			return kr, fmt.Errorf("recommendation %q: needs segments or when", r.ID)
		}
		recs = append(recs, rule)
	}
	kr.Recommendations = recs

	return kr, nil
}
