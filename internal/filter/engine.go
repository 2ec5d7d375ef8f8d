package filter

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"propdesk/internal/domain"
)

// Profile is the kind-specific part of filtering: which fields free-text
// search looks at, how criterion ids map onto fields, and the named sorts a
// screen offers.
type Profile struct {
	Kind         domain.Kind
	SearchFields []string
	// Aliases maps a criterion id onto the entity field it reads. Ids not
	// listed address the field of the same name.
	Aliases map[string]string
	// Fields, when non-empty, lists the only fields criteria may address.
	// Criteria naming anything else are unknown and ignored.
	Fields []string
	Sorts  map[string]domain.SortRule
}

func (p Profile) field(criterionID string) (string, bool) {
	field := criterionID
	if alias, ok := p.Aliases[criterionID]; ok {
		field = alias
	}
	if len(p.Fields) == 0 {
		return field, true
	}
	for _, f := range p.Fields {
		if f == field {
			return field, true
		}
	}
	return "", false
}

// ResolveSort expands a named composite into its field and direction. An
// explicit direction on rule overrides the composite's.
func (p Profile) ResolveSort(rule domain.SortRule) (domain.SortRule, bool) {
	if named, ok := p.Sorts[rule.Name]; ok && rule.Name != "" {
		named.Name = rule.Name
		if rule.Direction != "" {
			named.Direction = rule.Direction
		}
		rule = named
	}
	if rule.Field == "" {
		return domain.SortRule{}, false
	}
	if rule.Direction != domain.Descending {
		rule.Direction = domain.Ascending
	}
	return rule, true
}

type Engine struct {
	profile Profile
	locale  language.Tag
}

type Option func(*Engine)

// WithLocale sets the collation used for string sorts. Defaults to "und".
func WithLocale(tag string) Option {
	return func(e *Engine) {
		if t, err := language.Parse(tag); err == nil {
			e.locale = t
		}
	}
}

func NewEngine(profile Profile, opts ...Option) *Engine {
	e := &Engine{profile: profile, locale: language.Und}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Profile() Profile { return e.profile }

// Apply narrows entities to those matching every active criterion and, when
// sortRule is non-nil, orders the result. The input slice is not modified.
func (e *Engine) Apply(entities []domain.Entity, criteria domain.Criteria, sortRule *domain.SortRule) []domain.Entity {
	active := criteria.Active()
	out := make([]domain.Entity, 0, len(entities))
	for _, ent := range entities {
		if e.matches(ent, active) {
			out = append(out, ent)
		}
	}
	if sortRule != nil {
		if rule, ok := e.profile.ResolveSort(*sortRule); ok {
			e.sortEntities(out, rule)
		}
	}
	return out
}

func (e *Engine) matches(ent domain.Entity, active []domain.CriteriaEntry) bool {
	for _, entry := range active {
		if text, ok := entry.Value.(domain.Text); ok {
			if !MatchSearch(ent, e.profile.SearchFields, text.Term) {
				return false
			}
			continue
		}
		field, known := e.profile.field(entry.ID)
		if !known {
			continue
		}
		var ok bool
		switch c := entry.Value.(type) {
		case domain.Exact:
			ok = MatchExact(ent, field, c)
		case domain.Range:
			ok = MatchRange(ent, field, c)
		case domain.MultiSelect:
			ok = MatchMultiSelect(ent, field, c)
		case domain.DateRange:
			ok = MatchDateRange(ent, field, c)
		default:
			ok = true
		}
		if !ok {
			return false
		}
	}
	return true
}

type keyType int

const (
	keyString keyType = iota
	keyNumber
	keyDate
)

// sortEntities orders list in place by rule.Field. The key type is chosen once
// for the whole list so the order stays consistent: numeric when every present
// value is a number, chronological when every present value is a date, else
// collated strings. Entities without the field go last in either direction.
func (e *Engine) sortEntities(list []domain.Entity, rule domain.SortRule) {
	field := rule.Field
	kt := detectKeyType(list, field)
	col := collate.New(e.locale, collate.IgnoreCase)
	desc := rule.Direction == domain.Descending

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		aHas, bHas := a.Has(field), b.Has(field)
		if !aHas || !bHas {
			return aHas && !bHas
		}
		cmp := compareKeys(col, kt, a, b, field)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func detectKeyType(list []domain.Entity, field string) keyType {
	numeric, dates, seen := true, true, false
	for _, ent := range list {
		if !ent.Has(field) {
			continue
		}
		seen = true
		if _, ok := ent.Number(field); !ok {
			numeric = false
		}
		if _, ok := ent.Date(field); !ok {
			dates = false
		}
	}
	switch {
	case !seen:
		return keyString
	case numeric:
		return keyNumber
	case dates:
		return keyDate
	default:
		return keyString
	}
}

func compareKeys(col *collate.Collator, kt keyType, a, b domain.Entity, field string) int {
	switch kt {
	case keyNumber:
		x, _ := a.Number(field)
		y, _ := b.Number(field)
		return compareFloat(x, y)
	case keyDate:
		x, _ := a.Date(field)
		y, _ := b.Date(field)
		return compareTime(x, y)
	default:
		x, _ := a.Text(field)
		y, _ := b.Text(field)
		return col.CompareString(strings.TrimSpace(x), strings.TrimSpace(y))
	}
}

func compareFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func compareTime(x, y time.Time) int {
	switch {
	case x.Before(y):
		return -1
	case x.After(y):
		return 1
	default:
		return 0
	}
}
