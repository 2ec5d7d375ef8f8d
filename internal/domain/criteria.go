package domain

import (
	"strings"
	"time"
)

// AllToken is the UI's "no restriction" choice for select-style criteria.
const AllToken = "all"

// Criterion is one filter condition. The concrete types are Exact, Range,
// MultiSelect, DateRange and Text.
type Criterion interface {
	IsNoop() bool
	clone() Criterion
}

type Exact struct {
	Value string
}

type Range struct {
	Min *float64
	Max *float64
}

type MultiSelect struct {
	Values []string
}

type DateRange struct {
	Start *time.Time
	End   *time.Time
}

type Text struct {
	Term string
}

func (c Exact) IsNoop() bool {
	v := strings.TrimSpace(c.Value)
	return v == "" || strings.EqualFold(v, AllToken)
}

func (c Range) IsNoop() bool { return c.Min == nil && c.Max == nil }

func (c MultiSelect) IsNoop() bool {
	active := 0
	for _, v := range c.Values {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, AllToken) {
			return true
		}
		if v != "" {
			active++
		}
	}
	return active == 0
}

func (c DateRange) IsNoop() bool { return c.Start == nil && c.End == nil }

func (c Text) IsNoop() bool { return strings.TrimSpace(c.Term) == "" }

func (c Exact) clone() Criterion { return c }

func (c Range) clone() Criterion {
	return Range{Min: copyFloat(c.Min), Max: copyFloat(c.Max)}
}

func (c MultiSelect) clone() Criterion {
	vals := make([]string, len(c.Values))
	copy(vals, c.Values)
	return MultiSelect{Values: vals}
}

func (c DateRange) clone() Criterion {
	return DateRange{Start: copyTime(c.Start), End: copyTime(c.End)}
}

func (c Text) clone() Criterion { return c }

// ParseRange builds a numeric range from raw form input. A bound that is blank
// or not a number is treated as absent.
func ParseRange(minRaw, maxRaw string) Range {
	return Range{Min: parseBound(minRaw), Max: parseBound(maxRaw)}
}

// ParseDateRange builds a date range from raw form input; unparseable bounds
// are absent.
func ParseDateRange(startRaw, endRaw string) DateRange {
	var r DateRange
	if t, ok := ParseDate(startRaw); ok {
		r.Start = &t
	}
	if t, ok := ParseDate(endRaw); ok {
		r.End = &t
	}
	return r
}

func parseBound(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, ok := ParseNumber(raw)
	if !ok {
		return nil
	}
	return &f
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type CriteriaEntry struct {
	ID    string
	Value Criterion
}

// Criteria is an ordered mapping from criterion id to value.
type Criteria struct {
	entries []CriteriaEntry
}

func NewCriteria(entries ...CriteriaEntry) Criteria {
	var c Criteria
	for _, e := range entries {
		c = c.Set(e.ID, e.Value)
	}
	return c
}

// Set returns a copy of c with id bound to a copy of value. An existing id
// keeps its position.
func (c Criteria) Set(id string, value Criterion) Criteria {
	value = cloneCriterion(value)
	out := c.Clone()
	for i := range out.entries {
		if out.entries[i].ID == id {
			out.entries[i].Value = value
			return out
		}
	}
	out.entries = append(out.entries, CriteriaEntry{ID: id, Value: value})
	return out
}

func (c Criteria) Delete(id string) Criteria {
	out := Criteria{}
	for _, e := range c.entries {
		if e.ID != id {
			out.entries = append(out.entries, CriteriaEntry{ID: e.ID, Value: cloneCriterion(e.Value)})
		}
	}
	return out
}

// Get returns a copy of the criterion bound to id.
func (c Criteria) Get(id string) (Criterion, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return cloneCriterion(e.Value), true
		}
	}
	return nil, false
}

func (c Criteria) Len() int { return len(c.entries) }

func (c Criteria) Entries() []CriteriaEntry {
	out := make([]CriteriaEntry, len(c.entries))
	for i, e := range c.entries {
		out[i] = CriteriaEntry{ID: e.ID, Value: cloneCriterion(e.Value)}
	}
	return out
}

// Active returns the entries that restrict the collection, in order.
func (c Criteria) Active() []CriteriaEntry {
	var out []CriteriaEntry
	for _, e := range c.entries {
		if e.Value == nil || e.Value.IsNoop() {
			continue
		}
		out = append(out, CriteriaEntry{ID: e.ID, Value: cloneCriterion(e.Value)})
	}
	return out
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	return Criteria{entries: c.Entries()}
}

func cloneCriterion(c Criterion) Criterion {
	if c == nil {
		return nil
	}
	return c.clone()
}

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortRule names a comparator. Name refers to a composite registered on the
// kind's profile; otherwise Field and Direction are used directly.
type SortRule struct {
	Name      string
	Field     string
	Direction SortDirection
}
