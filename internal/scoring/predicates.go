package scoring

import (
	"strings"
	"time"

	"propdesk/internal/domain"
)

// Predicate helpers. Apart from Missing, each reports false when the field it
// reads is absent or malformed, so degraded records contribute nothing.

func FieldEquals(field, value string) Predicate {
	return func(e domain.Entity, _ time.Time) bool {
		s, ok := e.Text(field)
		return ok && strings.EqualFold(strings.TrimSpace(s), value)
	}
}

func FieldIn(field string, values ...string) Predicate {
	return func(e domain.Entity, _ time.Time) bool {
		s, ok := e.Text(field)
		if !ok {
			return false
		}
		s = strings.TrimSpace(s)
		for _, v := range values {
			if strings.EqualFold(s, v) {
				return true
			}
		}
		return false
	}
}

func FieldAtLeast(field string, min float64) Predicate {
	return func(e domain.Entity, _ time.Time) bool {
		n, ok := e.Number(field)
		return ok && n >= min
	}
}

func FieldAbove(field string, min float64) Predicate {
	return func(e domain.Entity, _ time.Time) bool {
		n, ok := e.Number(field)
		return ok && n > min
	}
}

func Missing(field string) Predicate {
	return func(e domain.Entity, _ time.Time) bool {
		return !e.Has(field)
	}
}

// AgeOver matches when the year stored in yearField lies more than years
// before now.
func AgeOver(yearField string, years int) Predicate {
	return func(e domain.Entity, now time.Time) bool {
		y, ok := e.Number(yearField)
		return ok && now.Year()-int(y) > years
	}
}

// MonthsSinceOver matches when the date in field is more than months ago.
func MonthsSinceOver(field string, months int) Predicate {
	return func(e domain.Entity, now time.Time) bool {
		d, ok := e.Date(field)
		return ok && MonthsBetween(d, now) > months
	}
}

// WithinMonths matches a date no more than months before now.
func WithinMonths(field string, months int) Predicate {
	return func(e domain.Entity, now time.Time) bool {
		d, ok := e.Date(field)
		return ok && MonthsBetween(d, now) <= months
	}
}

// DateBeforeNow matches a date strictly before today's calendar date.
func DateBeforeNow(field string) Predicate {
	return func(e domain.Entity, now time.Time) bool {
		d, ok := e.Date(field)
		return ok && domain.CalendarDate(d).Before(domain.CalendarDate(now))
	}
}

// WithinDays matches a date from today up to days ahead.
func WithinDays(field string, days int) Predicate {
	return func(e domain.Entity, now time.Time) bool {
		d, ok := e.Date(field)
		if !ok {
			return false
		}
		today := domain.CalendarDate(now)
		day := domain.CalendarDate(d)
		return !day.Before(today) && !day.After(today.AddDate(0, 0, days))
	}
}

func Not(p Predicate) Predicate {
	return func(e domain.Entity, now time.Time) bool { return !p(e, now) }
}

// Present guards p so it only runs when field is set.
func Present(field string, p Predicate) Predicate {
	return func(e domain.Entity, now time.Time) bool { return e.Has(field) && p(e, now) }
}

func All(ps ...Predicate) Predicate {
	return func(e domain.Entity, now time.Time) bool {
		for _, p := range ps {
			if !p(e, now) {
				return false
			}
		}
		return true
	}
}

// MonthsBetween counts whole calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}
