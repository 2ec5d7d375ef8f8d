package filter

import (
	"fmt"
	"strconv"
	"strings"

	"propdesk/internal/domain"
)

// SearchCriterionID is the criterion id free-text search is stored under.
const SearchCriterionID = "searchTerm"

type Query struct {
	Criteria domain.Criteria
	Sort     *domain.SortRule
}

// ParseQuery reads the compact text form used by chat commands:
//
//	city=Warsaw yearBuilt=1900..1950 heatingType=coal,gas
//	lastInspection=2024-01-01..2024-06-30 sort=yearBuilt:desc chimney
//
// Bare words form the search term. Malformed bounds become absent bounds.
// Double quotes group words and make the quoted text literal, so
// name="Rynek 5" and owner="a,b" are exact values.
func ParseQuery(text string) Query {
	var q Query
	var words []string
	for _, tok := range tokenize(text) {
		key, value, ok := cutUnquoted(tok, "=")
		if !ok || strings.TrimSpace(key) == "" {
			words = append(words, unquote(tok))
			continue
		}
		key = strings.TrimSpace(unquote(key))
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "sort":
			q.Sort = parseSort(unquote(value))
		case "q", "search", strings.ToLower(SearchCriterionID):
			words = append(words, unquote(value))
		default:
			q.Criteria = q.Criteria.Set(key, parseValue(value))
		}
	}
	if term := strings.TrimSpace(strings.Join(words, " ")); term != "" {
		q.Criteria = q.Criteria.Set(SearchCriterionID, domain.Text{Term: term})
	}
	return q
}

func parseValue(value string) domain.Criterion {
	if lo, hi, ok := cutUnquoted(value, ".."); ok {
		lo, hi = unquote(lo), unquote(hi)
		if _, isDate := domain.ParseDate(lo); isDate {
			return domain.ParseDateRange(lo, hi)
		}
		if _, isDate := domain.ParseDate(hi); isDate {
			return domain.ParseDateRange(lo, hi)
		}
		return domain.ParseRange(lo, hi)
	}
	if parts := splitUnquoted(value, ','); len(parts) > 1 {
		var vals []string
		for _, v := range parts {
			if v = strings.TrimSpace(unquote(v)); v != "" {
				vals = append(vals, v)
			}
		}
		return domain.MultiSelect{Values: vals}
	}
	return domain.Exact{Value: unquote(value)}
}

// parseSort leaves Direction empty when none is given so a named composite
// keeps its own.
func parseSort(value string) *domain.SortRule {
	if value == "" {
		return nil
	}
	field, dir, hasDir := strings.Cut(value, ":")
	// Could be a named composite or a bare field; the profile decides.
	rule := &domain.SortRule{Name: field, Field: field}
	if !hasDir {
		return rule
	}
	rule.Direction = domain.Ascending
	if strings.EqualFold(dir, string(domain.Descending)) {
		rule.Direction = domain.Descending
	}
	return rule
}

// FormatSort renders a sort rule the way ParseQuery reads it.
func FormatSort(rule *domain.SortRule) string {
	if rule == nil {
		return ""
	}
	name := rule.Name
	if name == "" {
		name = rule.Field
	}
	if rule.Direction == "" {
		return "sort=" + name
	}
	return "sort=" + name + ":" + string(rule.Direction)
}

// tokenize splits on whitespace outside double quotes. Quotes are kept so
// later stages can tell literal text apart.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// cutUnquoted is strings.Cut ignoring separators inside double quotes.
func cutUnquoted(s, sep string) (before, after string, found bool) {
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && strings.HasPrefix(s[i:], sep) {
			return s[:i], s[i+len(sep):], true
		}
	}
	return s, "", false
}

func splitUnquoted(s string, sep byte) []string {
	var parts []string
	inQuote := false
	last := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == sep && !inQuote:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func unquote(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// FormatCriteria renders criteria back into query text that ParseQuery reads
// to the same criteria. Values containing double quotes do not round-trip.
func FormatCriteria(c domain.Criteria) string {
	var parts []string
	for _, e := range c.Entries() {
		switch v := e.Value.(type) {
		case domain.Exact:
			parts = append(parts, e.ID+"="+quote(v.Value))
		case domain.Range:
			parts = append(parts, fmt.Sprintf("%s=%s..%s", e.ID, formatBound(v.Min), formatBound(v.Max)))
		case domain.MultiSelect:
			vals := make([]string, 0, len(v.Values))
			for _, val := range v.Values {
				vals = append(vals, quote(val))
			}
			joined := strings.Join(vals, ",")
			if len(vals) < 2 {
				// Trailing comma keeps a single value a multi-select.
				joined += ","
			}
			parts = append(parts, e.ID+"="+joined)
		case domain.DateRange:
			var lo, hi string
			if v.Start != nil {
				lo = v.Start.Format(domain.DateLayout)
			}
			if v.End != nil {
				hi = v.End.Format(domain.DateLayout)
			}
			parts = append(parts, fmt.Sprintf("%s=%s..%s", e.ID, lo, hi))
		case domain.Text:
			parts = append(parts, quote(v.Term))
		}
	}
	return strings.Join(parts, " ")
}

func formatBound(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\n=,") || strings.Contains(s, "..") {
		return `"` + s + `"`
	}
	return s
}
