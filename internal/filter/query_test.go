package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propdesk/internal/domain"
)

func TestParseQuery(t *testing.T) {
	q := ParseQuery(`city=Warsaw yearBuilt=1900..abc heatingType=coal,gas lastInspection=2024-01-01.. sort=yearBuilt:desc old "chimney stack"`)

	city, ok := q.Criteria.Get("city")
	require.True(t, ok)
	assert.Equal(t, domain.Exact{Value: "Warsaw"}, city)

	yb, _ := q.Criteria.Get("yearBuilt")
	r := yb.(domain.Range)
	require.NotNil(t, r.Min)
	assert.Equal(t, 1900.0, *r.Min)
	assert.Nil(t, r.Max, "malformed bound is absent")

	ht, _ := q.Criteria.Get("heatingType")
	assert.Equal(t, domain.MultiSelect{Values: []string{"coal", "gas"}}, ht)

	li, _ := q.Criteria.Get("lastInspection")
	dr := li.(domain.DateRange)
	require.NotNil(t, dr.Start)
	assert.Nil(t, dr.End)

	term, _ := q.Criteria.Get(SearchCriterionID)
	assert.Equal(t, domain.Text{Term: "old chimney stack"}, term)

	require.NotNil(t, q.Sort)
	assert.Equal(t, "yearBuilt", q.Sort.Field)
	assert.Equal(t, domain.Descending, q.Sort.Direction)
}

func TestParseQueryNamedSort(t *testing.T) {
	q := ParseQuery("sort=recent_inspection")
	assert.Equal(t, 0, q.Criteria.Len())
	rule, ok := buildingProfile.ResolveSort(*q.Sort)
	require.True(t, ok)
	assert.Equal(t, "lastInspection", rule.Field)
	assert.Equal(t, domain.Descending, rule.Direction)
}

func TestParseQueryNamedSortWithDirection(t *testing.T) {
	q := ParseQuery("sort=recent_inspection:asc")
	require.NotNil(t, q.Sort)
	rule, ok := buildingProfile.ResolveSort(*q.Sort)
	require.True(t, ok)
	assert.Equal(t, "lastInspection", rule.Field)
	assert.Equal(t, domain.Ascending, rule.Direction)
	assert.Equal(t, "sort=recent_inspection:asc", FormatSort(q.Sort))

	assert.Equal(t, "sort=recent_inspection", FormatSort(ParseQuery("sort=recent_inspection").Sort))
}

func TestParseQueryQuotedValuesAreLiteral(t *testing.T) {
	q := ParseQuery(`owner="Kowalski, Nowak" name="1900..1950" heatingType="wood stove",coal "a=b"`)

	owner, _ := q.Criteria.Get("owner")
	assert.Equal(t, domain.Exact{Value: "Kowalski, Nowak"}, owner)
	name, _ := q.Criteria.Get("name")
	assert.Equal(t, domain.Exact{Value: "1900..1950"}, name)
	ht, _ := q.Criteria.Get("heatingType")
	assert.Equal(t, domain.MultiSelect{Values: []string{"wood stove", "coal"}}, ht)
	term, _ := q.Criteria.Get(SearchCriterionID)
	assert.Equal(t, domain.Text{Term: "a=b"}, term)
}

func TestFormatCriteriaRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.Criteria
	}{
		{"parsed query", ParseQuery(`city=Warsaw yearBuilt=1900..1950 heatingType=gas,coal "chimney stack"`).Criteria},
		{"values with separators", domain.NewCriteria(
			domain.CriteriaEntry{ID: "owner", Value: domain.Exact{Value: "Kowalski, Nowak"}},
			domain.CriteriaEntry{ID: "address", Value: domain.Exact{Value: "ul. Długa 4"}},
			domain.CriteriaEntry{ID: "code", Value: domain.Exact{Value: "a=b..c"}},
			domain.CriteriaEntry{ID: "heatingType", Value: domain.MultiSelect{Values: []string{"wood stove", "coal,gas"}}},
			domain.CriteriaEntry{ID: SearchCriterionID, Value: domain.Text{Term: "Rynek 5 a=b"}},
		)},
		{"single multi-select value", domain.NewCriteria(
			domain.CriteriaEntry{ID: "heatingType", Value: domain.MultiSelect{Values: []string{"coal"}}},
		)},
		{"date range", domain.NewCriteria(
			domain.CriteriaEntry{ID: "lastInspection", Value: domain.ParseDateRange("2024-01-01", "2024-06-30")},
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.criteria, ParseQuery(FormatCriteria(tt.criteria)).Criteria)
		})
	}
}

func TestParseQueryNonFiniteBoundsStaySavable(t *testing.T) {
	q := ParseQuery("yearBuilt=NaN..1950")
	c, ok := q.Criteria.Get("yearBuilt")
	require.True(t, ok)
	r := c.(domain.Range)
	assert.Nil(t, r.Min)
	require.NotNil(t, r.Max)
	assert.Equal(t, 1950.0, *r.Max)

	_, err := json.Marshal(q.Criteria)
	require.NoError(t, err)
}
