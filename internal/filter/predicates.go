package filter

import (
	"strings"

	"propdesk/internal/domain"
)

// MatchExact compares the field's text form with the token. When both sides
// are numbers the comparison is numeric, so "5" matches 5.0.
func MatchExact(e domain.Entity, field string, c domain.Exact) bool {
	want := strings.TrimSpace(c.Value)
	if n, ok := e.Number(field); ok {
		if w, ok := domain.ParseNumber(want); ok {
			return n == w
		}
	}
	for _, v := range e.Strings(field) {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

// MatchRange is inclusive on both bounds. Non-numeric stored values never
// match.
func MatchRange(e domain.Entity, field string, c domain.Range) bool {
	n, ok := e.Number(field)
	if !ok {
		return false
	}
	if c.Min != nil && n < *c.Min {
		return false
	}
	if c.Max != nil && n > *c.Max {
		return false
	}
	return true
}

// MatchMultiSelect matches when the field, or any element of a list field, is
// one of the selected values.
func MatchMultiSelect(e domain.Entity, field string, c domain.MultiSelect) bool {
	for _, v := range e.Strings(field) {
		v = strings.TrimSpace(v)
		for _, want := range c.Values {
			if strings.EqualFold(v, strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

// MatchDateRange compares calendar dates, inclusive. A missing or unparseable
// date never matches.
func MatchDateRange(e domain.Entity, field string, c domain.DateRange) bool {
	d, ok := e.Date(field)
	if !ok {
		return false
	}
	day := domain.CalendarDate(d)
	if c.Start != nil && day.Before(domain.CalendarDate(*c.Start)) {
		return false
	}
	if c.End != nil && day.After(domain.CalendarDate(*c.End)) {
		return false
	}
	return true
}

// MatchSearch reports whether any of the fields contains term,
// case-insensitively.
func MatchSearch(e domain.Entity, fields []string, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		s, ok := e.Text(f)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}
