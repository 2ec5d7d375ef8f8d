package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindClient     Kind = "client"
	KindBuilding   Kind = "building"
	KindInspection Kind = "inspection"
	KindTenant     Kind = "tenant"
)

var Kinds = []Kind{KindClient, KindBuilding, KindInspection, KindTenant}

// ParseKind accepts singular or plural kind names ("buildings", "Client").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrUnsupportedKind, s)
}

// Entity is one record of a filterable collection. Fields are addressed by
// name; the engine never assumes a schema beyond what a rule set reads.
type Entity struct {
	ID     string
	Fields map[string]any
}

func NewEntity(id any, fields map[string]any) Entity {
	return Entity{ID: NormalizeID(id), Fields: fields}
}

// NormalizeID renders string and integer ids the same way so that 7, int64(7)
// and "7" address the same record.
func NormalizeID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (e Entity) Has(field string) bool {
	v, ok := e.Fields[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func (e Entity) Value(field string) (any, bool) {
	if !e.Has(field) {
		return nil, false
	}
	return e.Fields[field], true
}

// Text returns the field rendered as a string. Dates render as YYYY-MM-DD.
func (e Entity) Text(field string) (string, bool) {
	v, ok := e.Value(field)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case time.Time:
		return t.Format(DateLayout), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []any, []string:
		return strings.Join(toStrings(t), ", "), true
	default:
		return fmt.Sprint(t), true
	}
}

// Number returns the field as float64. Numeric strings are accepted; any other
// shape reports absent.
func (e Entity) Number(field string) (float64, bool) {
	v, ok := e.Value(field)
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

// Date returns the field as a time. Accepts time.Time, YYYY-MM-DD and RFC 3339.
func (e Entity) Date(field string) (time.Time, bool) {
	v, ok := e.Value(field)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return ParseDate(t)
	default:
		return time.Time{}, false
	}
}

// Strings returns a slice field, or a single scalar as a one-element slice.
func (e Entity) Strings(field string) []string {
	v, ok := e.Value(field)
	if !ok {
		return nil
	}
	return toStrings(v)
}

const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CalendarDate drops the clock part, keeping the date as seen in t's location.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case string:
		return ParseNumber(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseNumber reads a finite decimal number. "NaN" and the infinities are
// not numbers here.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

// IDs returns the ids of entities in order.
func IDs(entities []Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}
