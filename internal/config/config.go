package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"propdesk/internal/domain"
)

// Config holds all configuration for propdesk.
// Values come from config.yaml (path overridable via CONFIG_PATH) and
// environment variables, which always win over YAML.
type Config struct {
	SlackBotToken string `yaml:"slack_bot_token" env:"SLACK_BOT_TOKEN"`
	SlackAppToken string `yaml:"slack_app_token" env:"SLACK_APP_TOKEN"`

	// DatasetPath is the YAML export of clients, buildings, inspections and
	// tenants.
	DatasetPath string `yaml:"dataset_path" env:"DATASET_PATH" env-default:"./data/entities.yaml"`
	// RulesPath optionally overrides the built-in scoring and segment rules.
	RulesPath string `yaml:"rules_path" env:"RULES_PATH" env-default:""`
	// DBPath selects the sqlite saved-filter store. Empty keeps saved filters
	// in memory only.
	DBPath string `yaml:"db_path" env:"DB_PATH" env-default:""`

	DigestChannelID string   `yaml:"digest_channel_id" env:"DIGEST_CHANNEL_ID" env-default:""`
	DigestSchedule  string   `yaml:"digest_schedule" env:"DIGEST_SCHEDULE" env-default:"0 7 * * 1-5"`
	DigestKinds     []string `yaml:"digest_kinds" env:"DIGEST_KINDS" env-separator:"," env-default:"building,inspection"`

	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	LLMModel        string `yaml:"llm_model" env:"LLM_MODEL" env-default:"claude-3-5-haiku-latest"`
	LLMMaxTokens    int    `yaml:"llm_max_tokens" env:"LLM_MAX_TOKENS" env-default:"600"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds" env:"EXTERNAL_HTTP_TIMEOUT_SECONDS" env-default:"90"`

	Timezone            string `yaml:"timezone" env:"TIMEZONE" env-default:"Local"`
	Locale              string `yaml:"locale" env:"LOCALE" env-default:"pl"`
	ListPageSize        int    `yaml:"list_page_size" env:"LIST_PAGE_SIZE" env-default:"15"`
	RecommendationOrder string `yaml:"recommendation_order" env:"RECOMMENDATION_ORDER" env-default:"evaluation"`
	LogLevel            string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Location *time.Location `yaml:"-"` // computed from Timezone
	Kinds    []domain.Kind  `yaml:"-"` // parsed DigestKinds
}

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// Load reads the config file when it exists, applies environment overrides
// and validates the result.
func Load() (*Config, error) {
	path := DefaultPath
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		path = env
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	var errs []error

	if c.SlackBotToken == "" {
		errs = append(errs, errors.New("slack_bot_token is not set (via config.yaml or SLACK_BOT_TOKEN)"))
	}
	if c.SlackAppToken == "" {
		errs = append(errs, errors.New("slack_app_token is not set (via config.yaml or SLACK_APP_TOKEN)"))
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else if loc, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	} else {
		c.Location = loc
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errs = append(errs, fmt.Errorf("invalid locale %q: %w", c.Locale, err))
	}
	if c.ListPageSize < 1 {
		errs = append(errs, fmt.Errorf("invalid list_page_size %d: must be >= 1", c.ListPageSize))
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		errs = append(errs, fmt.Errorf("invalid external_http_timeout_seconds %d: must be >= 5", c.ExternalHTTPTimeoutSeconds))
	}
	if c.LLMMaxTokens < 64 {
		errs = append(errs, fmt.Errorf("invalid llm_max_tokens %d: must be >= 64", c.LLMMaxTokens))
	}
	switch c.RecommendationOrder {
	case "evaluation", "largest_first":
	default:
		errs = append(errs, fmt.Errorf("recommendation_order must be 'evaluation' or 'largest_first', got %q", c.RecommendationOrder))
	}

	if c.DigestChannelID != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.DigestSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid digest_schedule %q: %w", c.DigestSchedule, err))
		}
	}

	c.Kinds = c.Kinds[:0]
	for _, raw := range c.DigestKinds {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		k, err := domain.ParseKind(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("digest_kinds: %w", err))
			continue
		}
		c.Kinds = append(c.Kinds, k)
	}

	return errors.Join(errs...)
}

// NarrationEnabled reports whether analysis summaries can be narrated by the
// LLM.
func (c Config) NarrationEnabled() bool {
	return strings.TrimSpace(c.AnthropicAPIKey) != ""
}

func (c Config) DigestEnabled() bool {
	return c.DigestChannelID != "" && len(c.Kinds) > 0
}
