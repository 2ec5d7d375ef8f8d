// Package digest posts a scheduled analysis summary of selected collections
// to a Slack channel.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/ruleset"
)

type Source interface {
	Entities(kind domain.Kind) []domain.Entity
}

type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Narrator turns one analysis result into a short prose summary.
type Narrator interface {
	Narrate(ctx context.Context, res analysis.Result) (string, error)
}

type Digest struct {
	Catalog  *ruleset.Catalog
	Source   Source
	Kinds    []domain.Kind
	Options  analysis.Options
	Narrator Narrator // optional
	Logger   *zap.Logger
}

// Build runs one analysis per configured kind over the full collection.
func (d Digest) Build(now time.Time) []analysis.Result {
	out := make([]analysis.Result, 0, len(d.Kinds))
	for _, kind := range d.Kinds {
		rules, err := d.Catalog.Get(kind)
		if err != nil {
			d.logger().Warn("digest skipped kind", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		out = append(out, analysis.Run(d.Source.Entities(kind), rules, now, d.Options))
	}
	return out
}

// Format renders results as Slack mrkdwn. narration is keyed by kind and may
// be nil.
func Format(results []analysis.Result, narration map[domain.Kind]string, loc *time.Location) string {
	if len(results) == 0 {
		return "Nothing to report."
	}
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Portfolio digest for %s*\n", results[0].RanAt.In(loc).Format("Mon Jan 2"))
	for _, res := range results {
		fmt.Fprintf(&b, "\n*%s* (%d, average score %.0f)\n", title(res.Kind), res.Stats.Total, res.Stats.AverageScore)
		if res.Stats.Total == 0 {
			b.WriteString("No records.\n")
			continue
		}
		b.WriteString(segmentLine(res))
		b.WriteString("\n")
		if len(res.Recommendations) == 0 {
			b.WriteString("No actions suggested.\n")
		}
		for _, rec := range res.Recommendations {
			fmt.Fprintf(&b, "• %s (%d)\n", rec.Title, len(rec.TargetIDs))
		}
		if text := strings.TrimSpace(narration[res.Kind]); text != "" {
			fmt.Fprintf(&b, "> %s\n", strings.ReplaceAll(text, "\n", "\n> "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func segmentLine(res analysis.Result) string {
	labels := res.Labels
	if len(labels) == 0 {
		for l := range res.Stats.SegmentCounts {
			labels = append(labels, l)
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s %d", l, res.Stats.SegmentCounts[l]))
	}
	return strings.Join(parts, " · ")
}

func title(k domain.Kind) string {
	s := string(k) + "s"
	return strings.ToUpper(s[:1]) + s[1:]
}

// Post builds, narrates and posts one digest.
func (d Digest) Post(ctx context.Context, api Poster, channelID string, now time.Time, loc *time.Location) error {
	results := d.Build(now)
	narration := map[domain.Kind]string{}
	if d.Narrator != nil {
		for _, res := range results {
			if res.Stats.Total == 0 {
				continue
			}
			text, err := d.Narrator.Narrate(ctx, res)
			if err != nil {
				d.logger().Warn("digest narration failed", zap.String("kind", string(res.Kind)), zap.Error(err))
				continue
			}
			narration[res.Kind] = text
		}
	}
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(Format(results, narration, loc), false))
	if err != nil {
		return fmt.Errorf("posting digest: %w", err)
	}
	return nil
}

func (d Digest) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Start runs the digest on a standard 5-field cron schedule until ctx is
// done. Examples: "0 7 * * 1-5" (weekdays 7am), "0 8 * * 1" (Mondays 8am).
func Start(ctx context.Context, d Digest, api Poster, channelID, schedule string, loc *time.Location) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(schedule))
	if err != nil {
		return fmt.Errorf("invalid digest_schedule %q: %w", schedule, err)
	}
	if loc == nil {
		loc = time.Local
	}
	log := d.logger()
	log.Info("digest scheduled", zap.String("cron", schedule), zap.String("channel", channelID))

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Info("next digest", zap.Time("at", next), zap.Duration("in", wait.Round(time.Minute)))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := d.Post(ctx, api, channelID, time.Now().In(loc), loc); err != nil {
				log.Error("digest failed", zap.Error(err))
				continue
			}
			log.Info("digest posted", zap.Int("kinds", len(d.Kinds)))
		}
	}()
	return nil
}
