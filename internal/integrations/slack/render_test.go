package slackbot

import (
	"fmt"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/filter"
	"propdesk/internal/recommend"
	"propdesk/internal/selection"
)

func buildingsN(n int) []domain.Entity {
	out := make([]domain.Entity, n)
	for i := range out {
		out[i] = domain.NewEntity(i+1, map[string]any{"name": fmt.Sprintf("Building %d", i+1), "city": "Warsaw"})
	}
	return out
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		total, page, size            int
		wantPage, wantStart, wantEnd int
	}{
		{total: 0, page: 0, size: 15, wantPage: 0, wantStart: 0, wantEnd: 0},
		{total: 20, page: 0, size: 15, wantPage: 0, wantStart: 0, wantEnd: 15},
		{total: 20, page: 1, size: 15, wantPage: 1, wantStart: 15, wantEnd: 20},
		{total: 20, page: 9, size: 15, wantPage: 1, wantStart: 15, wantEnd: 20},
		{total: 20, page: -1, size: 15, wantPage: 0, wantStart: 0, wantEnd: 15},
	}
	for _, tt := range tests {
		page, start, end := pageBounds(tt.total, tt.page, tt.size)
		assert.Equal(t, []int{tt.wantPage, tt.wantStart, tt.wantEnd}, []int{page, start, end}, "%+v", tt)
	}
}

func TestRenderListPagesAndMarksSelection(t *testing.T) {
	blocks := renderList(listView{
		Kind:         domain.KindBuilding,
		Query:        "city=Warsaw",
		Visible:      buildingsN(4),
		Selected:     selection.New("3"),
		Page:         1,
		PageSize:     2,
		TitleFields:  titleFields,
		DetailFields: detailFields[domain.KindBuilding],
	})

	header, ok := blocks[0].(*slack.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "Buildings: 4 matching (1 selected)", header.Text.Text)

	row, ok := blocks[2].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "☑ *Building 3* `3`\ncity: Warsaw", row.Text.Text)
	btn := row.Accessory.ButtonElement
	require.NotNil(t, btn)
	assert.Equal(t, actionToggleRow, btn.ActionID)
	assert.Equal(t, "building:3", btn.Value)
	assert.Equal(t, "Unselect", btn.Text.Text)

	nav, ok := blocks[4].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, nav.Elements.ElementSet, 1)
	prev := nav.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	assert.Equal(t, actionPagePrev, prev.ActionID)
	assert.Equal(t, "building:0", prev.Value)

	assert.Len(t, blocks, 6)
}

func TestRenderListEmpty(t *testing.T) {
	blocks := renderList(listView{Kind: domain.KindTenant, Selected: selection.New(), PageSize: 10})
	require.Len(t, blocks, 3)
	ctx := blocks[1].(*slack.ContextBlock)
	assert.Equal(t, "`no filters`", ctx.ContextElements.Elements[0].(*slack.TextBlockObject).Text)
}

func TestRenderAnalysis(t *testing.T) {
	res := analysis.Result{
		Kind:   domain.KindBuilding,
		Labels: []domain.Segment{"critical", "healthy"},
		Buckets: map[domain.Segment][]string{
			"critical": {"1", "2", "3", "4", "5", "6"},
			"healthy":  {},
		},
		Stats: recommend.Stats{Total: 6, AverageScore: 31},
		Recommendations: []domain.Recommendation{
			{ID: "urgent_review", Title: "Urgent technical review", Description: "Below 40.", TargetIDs: []string{"1", "2"}, ActionLabel: "Select critical buildings"},
		},
	}
	blocks := renderAnalysis(res, "Six buildings are critical.")

	assert.Equal(t, "Building analysis: 6 records, average score 31", blocks[0].(*slack.HeaderBlock).Text.Text)
	assert.Equal(t, "*critical*: 6 (1, 2, 3, 4, 5, …)\n*healthy*: 0", blocks[1].(*slack.SectionBlock).Text.Text)
	assert.IsType(t, &slack.ContextBlock{}, blocks[2])
	assert.IsType(t, &slack.DividerBlock{}, blocks[3])

	rec := blocks[4].(*slack.SectionBlock)
	assert.Equal(t, "*Urgent technical review* (2)\nBelow 40.", rec.Text.Text)
	assert.Equal(t, actionSelectTargets, rec.Accessory.ButtonElement.ActionID)
	assert.Equal(t, "building:urgent_review", rec.Accessory.ButtonElement.Value)
}

func TestRenderAnalysisWithoutRecommendations(t *testing.T) {
	blocks := renderAnalysis(analysis.Result{Kind: domain.KindClient}, "")
	require.Len(t, blocks, 2)
	assert.Equal(t, "No actions suggested for this view.", blocks[1].(*slack.SectionBlock).Text.Text)
}

func TestRenderSavedFilters(t *testing.T) {
	assert.Equal(t, "No saved filters.", renderSavedFilters(nil, filter.FormatCriteria))

	c := domain.NewCriteria(domain.CriteriaEntry{ID: "city", Value: domain.Exact{Value: "Warsaw"}})
	got := renderSavedFilters([]domain.SavedFilter{{ID: "abc", Name: "Warsaw", Kind: domain.KindBuilding, Criteria: c}}, filter.FormatCriteria)
	assert.Equal(t, "*Saved filters*\n• `abc` Warsaw _building_: `city=Warsaw`", got)

	kind, err := savedFilterKind([]domain.SavedFilter{{ID: "abc", Kind: domain.KindBuilding}}, "abc")
	require.NoError(t, err)
	assert.Equal(t, domain.KindBuilding, kind)
	_, err = savedFilterKind(nil, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
