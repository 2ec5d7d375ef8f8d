package slackbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propdesk/internal/domain"
)

func TestSplitKind(t *testing.T) {
	kind, rest, err := splitKind("  Buildings city=Warsaw  heating=coal ")
	require.NoError(t, err)
	assert.Equal(t, domain.KindBuilding, kind)
	assert.Equal(t, "city=Warsaw  heating=coal", rest)

	_, _, err = splitKind("")
	assert.ErrorIs(t, err, errUsage)
	_, _, err = splitKind("boilers")
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestParseFiltersCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    filtersCommand
		wantErr error
	}{
		{input: "save buildings Coal in Warsaw", want: filtersCommand{Op: filtersSave, Kind: domain.KindBuilding, Arg: "Coal in Warsaw"}},
		{input: "list", want: filtersCommand{Op: filtersList}},
		{input: "LIST clients", want: filtersCommand{Op: filtersList, Kind: domain.KindClient}},
		{input: "delete 1f0c", want: filtersCommand{Op: filtersDelete, Arg: "1f0c"}},
		{input: "apply 1f0c", want: filtersCommand{Op: filtersApply, Arg: "1f0c"}},
		{input: "", wantErr: errUsage},
		{input: "save buildings", wantErr: errUsage},
		{input: "apply", wantErr: errUsage},
		{input: "delete a b", wantErr: errUsage},
		{input: "rename x", wantErr: errUsage},
		{input: "list boilers", wantErr: domain.ErrUnsupportedKind},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFiltersCommand(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSelectCommand(t *testing.T) {
	got, err := parseSelectCommand("tenants toggle 4 7")
	require.NoError(t, err)
	assert.Equal(t, selectCommand{Kind: domain.KindTenant, Op: selectToggle, IDs: []string{"4", "7"}}, got)

	got, err = parseSelectCommand("inspections")
	require.NoError(t, err)
	assert.Equal(t, selectShow, got.Op)

	got, err = parseSelectCommand("clients ALL")
	require.NoError(t, err)
	assert.Equal(t, selectAll, got.Op)

	_, err = parseSelectCommand("clients toggle")
	assert.ErrorIs(t, err, errUsage)
	_, err = parseSelectCommand("clients invert")
	assert.ErrorIs(t, err, errUsage)
}

func TestActionValueRoundTrip(t *testing.T) {
	kind, arg, err := parseActionValue(actionValue(domain.KindInspection, "reinspect_failed"))
	require.NoError(t, err)
	assert.Equal(t, domain.KindInspection, kind)
	assert.Equal(t, "reinspect_failed", arg)

	_, _, err = parseActionValue("no-separator")
	assert.Error(t, err)

	assert.Equal(t, 0, parsePage("x"))
	assert.Equal(t, 0, parsePage("-2"))
	assert.Equal(t, 3, parsePage(" 3 "))
}
