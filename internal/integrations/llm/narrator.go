// Package llm narrates analysis results in plain language using Anthropic's
// Messages API.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
)

const systemPrompt = `You summarise portfolio analyses for a property management and chimney inspection office.
You receive per-segment counts, an average score and the suggested actions for one collection.
Write at most three short sentences for the office manager. State the most urgent action first.
Do not invent numbers, names or records that are not in the input. Do not use markdown headings.`

// maxListedTargets bounds how many ids per action are shown to the model.
const maxListedTargets = 10

type Narrator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

func NewNarrator(apiKey, model string, maxTokens int, logger *zap.Logger, opts ...option.RequestOption) *Narrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Narrator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger,
	}
}

// Narrate returns a short summary of res.
func (n *Narrator) Narrate(ctx context.Context, res analysis.Result) (string, error) {
	message, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: n.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(res))),
		},
	})
	if err != nil {
		n.logger.Warn("anthropic request failed", zap.String("kind", string(res.Kind)), zap.Error(err))
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			n.logger.Debug("narration received",
				zap.String("kind", string(res.Kind)),
				zap.Int("size", len(block.Text)),
				zap.Int64("tokens_in", message.Usage.InputTokens),
				zap.Int64("tokens_out", message.Usage.OutputTokens),
				zap.Int64("cache_read", message.Usage.CacheReadInputTokens))
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

// BuildPrompt renders the analysis as the user message. Only aggregates and
// ids are sent; entity field values never leave the process.
func BuildPrompt(res analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Collection: %ss\n", res.Kind)
	fmt.Fprintf(&b, "Records analysed: %d\n", res.Stats.Total)
	fmt.Fprintf(&b, "Average score: %.1f (0-100)\n", res.Stats.AverageScore)

	b.WriteString("Segments:\n")
	for _, label := range orderedLabels(res) {
		fmt.Fprintf(&b, "- %s: %d\n", label, res.Stats.SegmentCounts[label])
	}

	if len(res.Recommendations) == 0 {
		b.WriteString("Suggested actions: none\n")
		return b.String()
	}
	b.WriteString("Suggested actions:\n")
	for _, rec := range res.Recommendations {
		ids := rec.TargetIDs
		more := ""
		if len(ids) > maxListedTargets {
			more = fmt.Sprintf(" and %d more", len(ids)-maxListedTargets)
			ids = ids[:maxListedTargets]
		}
		fmt.Fprintf(&b, "- %s: %s (%d records: %s%s)\n", rec.Title, rec.Description, len(rec.TargetIDs), strings.Join(ids, ", "), more)
	}
	return b.String()
}

func orderedLabels(res analysis.Result) []domain.Segment {
	if len(res.Labels) > 0 {
		return res.Labels
	}
	labels := make([]domain.Segment, 0, len(res.Stats.SegmentCounts))
	for l := range res.Stats.SegmentCounts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
