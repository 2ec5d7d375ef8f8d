package slackbot

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/selection"
)

const (
	actionPagePrev       = "list_page_prev"
	actionPageNext       = "list_page_next"
	actionToggleRow      = "list_toggle_row"
	actionSelectAll      = "list_select_all"
	actionClearSelection = "list_clear_selection"
	actionAnalyze        = "list_analyze"
	actionSelectTargets  = "recommendation_select"
	blockIDListNav       = "list_nav"
	blockIDListSelection = "list_selection"
	maxDetailFields      = 3
	maxSegmentPreviewIDs = 5
)

type listView struct {
	Kind     domain.Kind
	Query    string
	Visible  []domain.Entity
	Selected selection.Set
	Page     int
	PageSize int
	// TitleFields are tried in order to label a row; DetailFields are shown
	// beneath it when present.
	TitleFields  []string
	DetailFields []string
}

// pageBounds clamps page into range and returns the slice bounds for it.
func pageBounds(total, page, size int) (int, int, int) {
	if size < 1 {
		size = 1
	}
	if page < 0 {
		page = 0
	}
	start := page * size
	if start >= total && total > 0 {
		page = (total - 1) / size
		start = page * size
	}
	end := start + size
	if end > total {
		end = total
	}
	return page, start, end
}

func entityTitle(e domain.Entity, fields []string) string {
	for _, f := range fields {
		if v, ok := e.Text(f); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "#" + e.ID
}

func entityDetails(e domain.Entity, fields []string) string {
	var parts []string
	for _, f := range fields {
		if len(parts) == maxDetailFields {
			break
		}
		if v, ok := e.Text(f); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", f, v))
		}
	}
	return strings.Join(parts, " · ")
}

func renderList(v listView) []slack.Block {
	total := len(v.Visible)
	page, start, end := pageBounds(total, v.Page, v.PageSize)

	query := strings.TrimSpace(v.Query)
	if query == "" {
		query = "no filters"
	}
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("%ss: %d matching (%d selected)", kindTitle(v.Kind), total, v.Selected.Len()), false, false)),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "`"+query+"`", false, false)),
	}
	if total == 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "Nothing matches these criteria.", false, false), nil, nil))
		return blocks
	}

	for _, e := range v.Visible[start:end] {
		mark := "☐"
		label := "Select"
		if v.Selected.Has(e.ID) {
			mark = "☑"
			label = "Unselect"
		}
		text := fmt.Sprintf("%s *%s* `%s`", mark, entityTitle(e, v.TitleFields), e.ID)
		if details := entityDetails(e, v.DetailFields); details != "" {
			text += "\n" + details
		}
		btn := slack.NewButtonBlockElement(actionToggleRow, actionValue(v.Kind, e.ID),
			slack.NewTextBlockObject(slack.PlainTextType, label, false, false))
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, slack.NewAccessory(btn)))
	}

	var nav []slack.BlockElement
	if page > 0 {
		nav = append(nav, slack.NewButtonBlockElement(actionPagePrev, actionValue(v.Kind, fmt.Sprint(page-1)),
			slack.NewTextBlockObject(slack.PlainTextType, "Prev", false, false)))
	}
	if end < total {
		nav = append(nav, slack.NewButtonBlockElement(actionPageNext, actionValue(v.Kind, fmt.Sprint(page+1)),
			slack.NewTextBlockObject(slack.PlainTextType, "Next", false, false)))
	}
	if len(nav) > 0 {
		blocks = append(blocks, slack.NewActionBlock(blockIDListNav, nav...))
	}
	blocks = append(blocks, slack.NewActionBlock(blockIDListSelection,
		slack.NewButtonBlockElement(actionSelectAll, actionValue(v.Kind, ""),
			slack.NewTextBlockObject(slack.PlainTextType, "Select all", false, false)),
		slack.NewButtonBlockElement(actionClearSelection, actionValue(v.Kind, ""),
			slack.NewTextBlockObject(slack.PlainTextType, "Clear selection", false, false)),
		slack.NewButtonBlockElement(actionAnalyze, actionValue(v.Kind, ""),
			slack.NewTextBlockObject(slack.PlainTextType, "Analyze", false, false)).WithStyle(slack.StylePrimary),
	))
	return blocks
}

func renderAnalysis(res analysis.Result, narration string) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("%s analysis: %d records, average score %.0f", kindTitle(res.Kind), res.Stats.Total, res.Stats.AverageScore),
			false, false)),
	}

	var seg []string
	for _, label := range res.Labels {
		ids := res.Buckets[label]
		line := fmt.Sprintf("*%s*: %d", label, len(ids))
		if n := len(ids); n > 0 {
			preview := ids
			if n > maxSegmentPreviewIDs {
				preview = ids[:maxSegmentPreviewIDs]
			}
			line += " (" + strings.Join(preview, ", ")
			if n > maxSegmentPreviewIDs {
				line += ", …"
			}
			line += ")"
		}
		seg = append(seg, line)
	}
	if len(seg) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(seg, "\n"), false, false), nil, nil))
	}

	if text := strings.TrimSpace(narration); text != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false)))
	}

	if len(res.Recommendations) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "No actions suggested for this view.", false, false), nil, nil))
		return blocks
	}
	blocks = append(blocks, slack.NewDividerBlock())
	for _, rec := range res.Recommendations {
		text := fmt.Sprintf("*%s* (%d)\n%s", rec.Title, len(rec.TargetIDs), rec.Description)
		btn := slack.NewButtonBlockElement(actionSelectTargets, actionValue(res.Kind, rec.ID),
			slack.NewTextBlockObject(slack.PlainTextType, rec.ActionLabel, false, false))
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, slack.NewAccessory(btn)))
	}
	return blocks
}

func renderSavedFilters(filters []domain.SavedFilter, format func(domain.Criteria) string) string {
	if len(filters) == 0 {
		return "No saved filters."
	}
	lines := []string{"*Saved filters*"}
	for _, f := range filters {
		lines = append(lines, fmt.Sprintf("• `%s` %s _%s_: `%s`", f.ID, f.Name, f.Kind, format(f.Criteria)))
	}
	return strings.Join(lines, "\n")
}

func savedFilterKind(filters []domain.SavedFilter, id string) (domain.Kind, error) {
	for _, f := range filters {
		if f.ID == id {
			return f.Kind, nil
		}
	}
	return "", fmt.Errorf("saved filter %s: %w", id, domain.ErrNotFound)
}

func helpText() string {
	lines := []string{
		"*Console Commands*",
		"",
		"`/filter <kind> [query]` - Filter a collection. Kinds: clients, buildings, inspections, tenants.",
		">*Example:* `/filter buildings city=Warsaw heating=coal,oil yearBuilt=..1950 sort=oldest`",
		">`field=a..b` is a numeric or date range, `field=a,b` matches any listed value, bare words search.",
		"`/analyze <kind>` - Score, segment and suggest actions for the current view.",
		"`/select <kind> toggle <id...>|all|clear` - Manage the selection of the current view.",
		"`/filters save <kind> <name>` - Save the current criteria.",
		"`/filters list [kind]` - List saved filters.",
		"`/filters apply <id>` - Apply a saved filter.",
		"`/filters delete <id>` - Delete a saved filter.",
		"`/console-help` - Show this help.",
	}
	return strings.Join(lines, "\n")
}

func kindTitle(k domain.Kind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var titleFields = []string{"name", "buildingName", "address"}

var detailFields = map[domain.Kind][]string{
	domain.KindClient:     {"city", "buildingsCount", "lastInspection"},
	domain.KindBuilding:   {"city", "yearBuilt", "heatingType", "lastInspection"},
	domain.KindInspection: {"date", "result", "ceebStatus", "nextInspectionDue"},
	domain.KindTenant:     {"apartment", "leaseEnd", "arrears"},
}
