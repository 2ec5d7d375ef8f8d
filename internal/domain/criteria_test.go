package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriterionNoop(t *testing.T) {
	tests := []struct {
		name string
		c    Criterion
		want bool
	}{
		{"empty exact", Exact{Value: "  "}, true},
		{"all exact", Exact{Value: "All"}, true},
		{"exact", Exact{Value: "Warsaw"}, false},
		{"empty range", Range{}, true},
		{"malformed range", ParseRange("abc", ""), true},
		{"nan range", ParseRange("NaN", ""), true},
		{"infinite range", ParseRange("-Inf", "Infinity"), true},
		{"half range", ParseRange("", "10"), false},
		{"multi with all", MultiSelect{Values: []string{"coal", "all"}}, true},
		{"blank multi", MultiSelect{Values: []string{"", " "}}, true},
		{"multi", MultiSelect{Values: []string{"coal"}}, false},
		{"empty dates", ParseDateRange("", "not-a-date"), true},
		{"dates", ParseDateRange("2024-01-01", ""), false},
		{"blank search", Text{Term: " "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.IsNoop())
		})
	}
}

func TestCriteriaSetKeepsOrderAndDoesNotAlias(t *testing.T) {
	base := NewCriteria(
		CriteriaEntry{ID: "city", Value: Exact{Value: "Warsaw"}},
		CriteriaEntry{ID: "heatingType", Value: MultiSelect{Values: []string{"coal"}}},
	)
	updated := base.Set("city", Exact{Value: "Krakow"}).Set("searchTerm", Text{Term: "chimney"})

	require.Equal(t, 2, base.Len())
	got, _ := base.Get("city")
	assert.Equal(t, Exact{Value: "Warsaw"}, got)

	entries := updated.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "city", entries[0].ID)
	assert.Equal(t, Exact{Value: "Krakow"}, entries[0].Value)
	assert.Equal(t, "searchTerm", entries[2].ID)

	clone := updated.Clone()
	ms, _ := clone.Get("heatingType")
	ms.(MultiSelect).Values[0] = "gas"
	orig, _ := updated.Get("heatingType")
	assert.Equal(t, []string{"coal"}, orig.(MultiSelect).Values)
}

func TestCriteriaGetAndSetCopyValues(t *testing.T) {
	values := []string{"coal"}
	c := NewCriteria(CriteriaEntry{ID: "heatingType", Value: MultiSelect{Values: values}})
	values[0] = "gas"

	got, ok := c.Get("heatingType")
	require.True(t, ok)
	got.(MultiSelect).Values[0] = "wood"

	again, _ := c.Get("heatingType")
	assert.Equal(t, []string{"coal"}, again.(MultiSelect).Values)
}

func TestCriteriaActiveSkipsNoops(t *testing.T) {
	c := NewCriteria(
		CriteriaEntry{ID: "city", Value: Exact{Value: "all"}},
		CriteriaEntry{ID: "yearBuilt", Value: ParseRange("1900", "x")},
		CriteriaEntry{ID: "status", Value: Exact{Value: ""}},
	)
	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "yearBuilt", active[0].ID)
}

func TestCriteriaJSON(t *testing.T) {
	c := NewCriteria(
		CriteriaEntry{ID: "city", Value: Exact{Value: "Warsaw"}},
		CriteriaEntry{ID: "yearBuilt", Value: ParseRange("1900", "")},
		CriteriaEntry{ID: "heatingType", Value: MultiSelect{Values: []string{"coal", "gas"}}},
		CriteriaEntry{ID: "lastInspection", Value: ParseDateRange("2024-01-01", "2024-06-30")},
		CriteriaEntry{ID: "searchTerm", Value: Text{Term: "chimney"}},
	)
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Criteria
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, c, decoded)

	assert.Error(t, json.Unmarshal([]byte(`[{"id":"x","type":"regex"}]`), &decoded))
}
