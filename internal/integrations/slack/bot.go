// Package slackbot is the Slack Socket Mode surface of the console: slash
// commands open and drive per-user list screens, block actions page through
// results, toggle selections and apply recommendations.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/filter"
	"propdesk/internal/savedfilter"
	"propdesk/internal/session"
)

const analyzeTimeout = 30 * time.Second

// Messenger is the part of *slack.Client the bot posts through.
type Messenger interface {
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Narrator interface {
	Narrate(ctx context.Context, res analysis.Result) (string, error)
}

type Bot struct {
	api      Messenger
	screens  *session.Registry
	store    savedfilter.Store
	narrator Narrator
	pageSize int
	logger   *zap.Logger
}

type Options struct {
	PageSize int
	Narrator Narrator // optional
}

func New(api Messenger, screens *session.Registry, store savedfilter.Store, logger *zap.Logger, opts Options) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageSize < 1 {
		opts.PageSize = 15
	}
	return &Bot{
		api:      api,
		screens:  screens,
		store:    store,
		narrator: opts.Narrator,
		pageSize: opts.PageSize,
		logger:   logger,
	}
}

// Run connects via Socket Mode and serves events until the connection ends.
func (b *Bot) Run(ctx context.Context, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				b.logger.Info("slash command received",
					zap.String("command", cmd.Command),
					zap.String("user", cmd.UserID),
					zap.String("channel", cmd.ChannelID))
				go b.HandleSlashCommand(ctx, cmd)
			case socketmode.EventTypeInteractive:
				client.Ack(*evt.Request)
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				go b.HandleInteraction(ctx, callback)
			}
		}
	}()

	b.logger.Info("slack bot connected via socket mode")
	return client.RunContext(ctx)
}

func (b *Bot) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/filter":
		b.handleFilter(cmd)
	case "/analyze":
		b.handleAnalyze(ctx, cmd)
	case "/filters":
		b.handleFilters(cmd)
	case "/select":
		b.handleSelect(cmd)
	case "/console-help":
		b.postEphemeral(cmd.ChannelID, cmd.UserID, helpText())
	}
}

func (b *Bot) handleFilter(cmd slack.SlashCommand) {
	kind, query, err := splitKind(cmd.Text)
	if err != nil {
		b.replyError(cmd.ChannelID, cmd.UserID, "Usage: /filter <kind> [query]", err)
		return
	}
	screen, err := b.screens.Screen(cmd.UserID, kind)
	if err != nil {
		b.replyError(cmd.ChannelID, cmd.UserID, "", err)
		return
	}
	visible := screen.ApplyQuery(query)
	b.logger.Info("filter applied",
		zap.String("user", cmd.UserID),
		zap.String("kind", string(kind)),
		zap.String("query", query),
		zap.Int("matching", len(visible)))
	b.renderScreen(cmd.ChannelID, cmd.UserID, screen, 0)
}

func (b *Bot) handleAnalyze(ctx context.Context, cmd slack.SlashCommand) {
	kind, _, err := splitKind(cmd.Text)
	if err != nil {
		b.replyError(cmd.ChannelID, cmd.UserID, "Usage: /analyze <kind>", err)
		return
	}
	b.analyze(ctx, cmd.ChannelID, cmd.UserID, kind)
}

func (b *Bot) analyze(ctx context.Context, channelID, userID string, kind domain.Kind) {
	screen, err := b.screens.Screen(userID, kind)
	if err != nil {
		b.replyError(channelID, userID, "", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	res, err := screen.Analyze(ctx)
	if errors.Is(err, analysis.ErrSuperseded) {
		return
	}
	if errors.Is(err, session.ErrViewChanged) {
		b.postEphemeral(channelID, userID, "The list changed while the analysis ran, run /analyze again.")
		return
	}
	if err != nil {
		b.replyError(channelID, userID, "Analysis failed.", err)
		return
	}

	narration := ""
	if b.narrator != nil && res.Stats.Total > 0 {
		text, err := b.narrator.Narrate(ctx, res)
		if err != nil {
			b.logger.Warn("narration skipped", zap.String("kind", string(kind)), zap.Error(err))
		} else {
			narration = text
		}
	}
	b.postBlocks(channelID, userID, renderAnalysis(res, narration))
}

func (b *Bot) handleFilters(cmd slack.SlashCommand) {
	fc, err := parseFiltersCommand(cmd.Text)
	if err != nil {
		b.replyError(cmd.ChannelID, cmd.UserID, "Usage: /filters save <kind> <name> | list [kind] | apply <id> | delete <id>", err)
		return
	}
	switch fc.Op {
	case filtersSave:
		screen, err := b.screens.Screen(cmd.UserID, fc.Kind)
		if err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "", err)
			return
		}
		saved, err := screen.SaveCurrent(fc.Arg)
		if err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "Could not save filter.", err)
			return
		}
		b.logger.Info("filter saved", zap.String("id", saved.ID), zap.String("kind", string(saved.Kind)), zap.String("user", cmd.UserID))
		b.postEphemeral(cmd.ChannelID, cmd.UserID, fmt.Sprintf("Saved *%s* as `%s`: `%s`", saved.Name, saved.ID, filter.FormatCriteria(saved.Criteria)))
	case filtersList:
		list, err := b.store.List(fc.Kind)
		if err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "Could not list filters.", err)
			return
		}
		b.postEphemeral(cmd.ChannelID, cmd.UserID, renderSavedFilters(list, filter.FormatCriteria))
	case filtersDelete:
		if err := b.store.Delete(fc.Arg); err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "Could not delete filter.", err)
			return
		}
		b.logger.Info("filter deleted", zap.String("id", fc.Arg), zap.String("user", cmd.UserID))
		b.postEphemeral(cmd.ChannelID, cmd.UserID, fmt.Sprintf("Deleted filter `%s`.", fc.Arg))
	case filtersApply:
		all, err := b.store.List("")
		if err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "Could not load filters.", err)
			return
		}
		kind, err := savedFilterKind(all, fc.Arg)
		if err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "", err)
			return
		}
		screen, err := b.screens.Screen(cmd.UserID, kind)
		if err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "", err)
			return
		}
		if _, err := screen.ApplySaved(fc.Arg); err != nil {
			b.replyError(cmd.ChannelID, cmd.UserID, "Could not apply filter.", err)
			return
		}
		b.renderScreen(cmd.ChannelID, cmd.UserID, screen, 0)
	}
}

func (b *Bot) handleSelect(cmd slack.SlashCommand) {
	sc, err := parseSelectCommand(cmd.Text)
	if err != nil {
		b.replyError(cmd.ChannelID, cmd.UserID, "Usage: /select <kind> toggle <id...> | all | clear", err)
		return
	}
	screen, err := b.screens.Screen(cmd.UserID, sc.Kind)
	if err != nil {
		b.replyError(cmd.ChannelID, cmd.UserID, "", err)
		return
	}
	switch sc.Op {
	case selectToggle:
		for _, id := range sc.IDs {
			screen.Toggle(domain.NormalizeID(id))
		}
	case selectAll:
		screen.SelectAll()
	case selectClear:
		screen.ClearSelection()
	}
	b.postEphemeral(cmd.ChannelID, cmd.UserID, selectionSummary(screen))
}

func selectionSummary(screen *session.Screen) string {
	sel := screen.Selection()
	if sel.Len() == 0 {
		return fmt.Sprintf("No %ss selected.", screen.Kind())
	}
	return fmt.Sprintf("%d %s(s) selected: %s", sel.Len(), screen.Kind(), strings.Join(sel.IDs(), ", "))
}

func (b *Bot) HandleInteraction(ctx context.Context, cb slack.InteractionCallback) {
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return
	}
	act := cb.ActionCallback.BlockActions[0]
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	userID := cb.User.ID

	kind, arg, err := parseActionValue(act.Value)
	if err != nil {
		b.logger.Warn("ignoring block action", zap.String("action", act.ActionID), zap.Error(err))
		return
	}
	if act.ActionID == actionAnalyze {
		b.analyze(ctx, channelID, userID, kind)
		return
	}

	screen, err := b.screens.Screen(userID, kind)
	if err != nil {
		b.replyError(channelID, userID, "", err)
		return
	}
	switch act.ActionID {
	case actionPagePrev, actionPageNext:
		b.renderScreen(channelID, userID, screen, parsePage(arg))
	case actionToggleRow:
		screen.Toggle(arg)
		b.renderScreen(channelID, userID, screen, b.pageOf(screen, arg))
	case actionSelectAll:
		screen.SelectAll()
		b.postEphemeral(channelID, userID, selectionSummary(screen))
	case actionClearSelection:
		screen.ClearSelection()
		b.postEphemeral(channelID, userID, selectionSummary(screen))
	case actionSelectTargets:
		if _, err := screen.SelectRecommendation(arg); err != nil {
			b.logger.Debug("stale recommendation", zap.String("user", userID), zap.Error(err))
			b.postEphemeral(channelID, userID, "That analysis is out of date, run /analyze again.")
			return
		}
		b.logger.Info("recommendation targets selected", zap.String("user", userID), zap.String("recommendation", arg))
		b.postEphemeral(channelID, userID, selectionSummary(screen))
	}
}

// pageOf finds the page showing id so a toggle re-renders in place.
func (b *Bot) pageOf(screen *session.Screen, id string) int {
	for i, e := range screen.Visible() {
		if e.ID == id {
			return i / b.pageSize
		}
	}
	return 0
}

func (b *Bot) renderScreen(channelID, userID string, screen *session.Screen, page int) {
	query := filter.FormatCriteria(screen.Criteria())
	if s := screen.Sort(); s != nil {
		query = strings.TrimSpace(query + " " + filter.FormatSort(s))
	}
	blocks := renderList(listView{
		Kind:         screen.Kind(),
		Query:        query,
		Visible:      screen.Visible(),
		Selected:     screen.Selection(),
		Page:         page,
		PageSize:     b.pageSize,
		TitleFields:  titleFields,
		DetailFields: detailFields[screen.Kind()],
	})
	b.postBlocks(channelID, userID, blocks)
}

func (b *Bot) postBlocks(channelID, userID string, blocks []slack.Block) {
	if _, err := b.api.PostEphemeral(channelID, userID, slack.MsgOptionBlocks(blocks...)); err != nil {
		b.logger.Error("posting blocks failed", zap.String("channel", channelID), zap.Error(err))
		b.postEphemeral(channelID, userID, "Error rendering results.")
	}
}

func (b *Bot) postEphemeral(channelID, userID, text string) {
	if _, err := b.api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		b.logger.Error("posting ephemeral failed", zap.String("channel", channelID), zap.Error(err))
	}
}

// replyError maps the error taxonomy onto a user-facing message.
func (b *Bot) replyError(channelID, userID, usage string, err error) {
	var msg string
	switch {
	case errors.Is(err, domain.ErrUnsupportedKind):
		msg = "Unknown kind. Use one of: clients, buildings, inspections, tenants."
	case errors.Is(err, domain.ErrNotFound):
		msg = "Not found: " + err.Error()
	case errors.Is(err, domain.ErrValidation):
		msg = "Invalid input: " + err.Error()
	case errors.Is(err, errUsage) && usage != "":
		msg = usage
	case usage != "":
		msg = usage + " " + err.Error()
	default:
		msg = "Error: " + err.Error()
	}
	b.logger.Debug("command rejected", zap.String("user", userID), zap.Error(err))
	b.postEphemeral(channelID, userID, msg)
}
