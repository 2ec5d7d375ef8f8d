package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"propdesk/internal/analysis"
	"propdesk/internal/config"
	"propdesk/internal/dataset"
	"propdesk/internal/digest"
	"propdesk/internal/httpx"
	"propdesk/internal/integrations/llm"
	slackbot "propdesk/internal/integrations/slack"
	"propdesk/internal/recommend"
	"propdesk/internal/ruleset"
	"propdesk/internal/savedfilter"
	"propdesk/internal/session"
)

func Main() {
	boot := zap.Must(zap.NewProduction())
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("invalid configuration", zap.Error(err))
	}
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		boot.Fatal("invalid log level", zap.String("log_level", cfg.LogLevel), zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded",
		zap.String("dataset", cfg.DatasetPath),
		zap.String("rules", cfg.RulesPath),
		zap.String("db", cfg.DBPath),
		zap.String("timezone", cfg.Timezone),
		zap.String("locale", cfg.Locale),
		zap.Bool("narration", cfg.NarrationEnabled()),
		zap.Bool("digest", cfg.DigestEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := ruleset.Load(cfg.RulesPath)
	if err != nil {
		logger.Fatal("failed to load rules", zap.Error(err))
	}
	data, err := dataset.Load(cfg.DatasetPath, logger.Named("dataset"))
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}
	store, closeStore, err := openStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to open saved filter store", zap.Error(err))
	}
	defer closeStore()

	opts := analysis.Options{Order: RecommendationOrder(cfg.RecommendationOrder)}
	screens := session.NewRegistry(catalog, data, store, logger.Named("session"),
		session.WithAnalysisOptions(opts),
		session.WithLocale(cfg.Locale))

	httpClient := httpx.NewExternalClient(cfg.ExternalHTTPTimeoutSeconds)

	var narrator *llm.Narrator
	if cfg.NarrationEnabled() {
		narrator = llm.NewNarrator(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, logger.Named("llm"),
			option.WithHTTPClient(httpClient))
	}

	api := slack.New(cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
		slack.OptionHTTPClient(httpClient))

	if cfg.DigestEnabled() {
		d := digest.Digest{
			Catalog: catalog,
			Source:  data,
			Kinds:   cfg.Kinds,
			Options: opts,
			Logger:  logger.Named("digest"),
		}
		if narrator != nil {
			d.Narrator = narrator
		}
		if err := digest.Start(ctx, d, api, cfg.DigestChannelID, cfg.DigestSchedule, cfg.Location); err != nil {
			logger.Fatal("failed to start digest", zap.Error(err))
		}
	} else {
		logger.Info("digest disabled (digest_channel_id or digest_kinds not set)")
	}

	botOpts := slackbot.Options{PageSize: cfg.ListPageSize}
	if narrator != nil {
		botOpts.Narrator = narrator
	}
	bot := slackbot.New(api, screens, store, logger.Named("slack"), botOpts)

	logger.Info("starting propdesk console")
	if err := bot.Run(ctx, api); err != nil && ctx.Err() == nil {
		logger.Fatal("slack bot error", zap.Error(err))
	}
	logger.Info("shutting down")
}

// NewLogger builds the production logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func RecommendationOrder(name string) recommend.Order {
	if name == "largest_first" {
		return recommend.OrderLargestFirst
	}
	return recommend.OrderEvaluation
}

func openStore(path string, logger *zap.Logger) (savedfilter.Store, func(), error) {
	if path == "" {
		logger.Info("saved filters kept in memory (db_path not set)")
		return savedfilter.NewMemoryStore(), func() {}, nil
	}
	s, err := savedfilter.OpenSQLite(path, logger.Named("savedfilter"))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	logger.Info("saved filters stored in sqlite", zap.String("path", path))
	return s, func() { _ = s.Close() }, nil
}
