package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INDRABOT_"

// Config is the complete bot configuration. Values come from the YAML file,
// then INDRABOT_* environment variables, then defaults.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	DBRest  DBRestConfig  `yaml:"dbrest" envPrefix:"DBREST_"`
	Gilda   GildaConfig   `yaml:"gilda" envPrefix:"GILDA_"`
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`
	Publish PublishConfig `yaml:"publish" envPrefix:"PUBLISH_"`
	Slack   SlackConfig   `yaml:"slack" envPrefix:"SLACK_"`
	Web     WebConfig     `yaml:"web" envPrefix:"WEB_"`
	LLM     LLMConfig     `yaml:"llm" envPrefix:"LLM_"`

	// GroundingsPath is a YAML grounding map consulted before Gilda.
	GroundingsPath string `yaml:"groundings" env:"GROUNDINGS"`
	// TemplatesPath adds question templates after the built-in ones.
	TemplatesPath string `yaml:"templates" env:"TEMPLATES"`
	// DotPath is the Graphviz binary used for PDF output.
	DotPath string `yaml:"dot_path" env:"DOT_PATH"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type DBRestConfig struct {
	URL           string        `yaml:"url" env:"URL"`
	APIKey        string        `yaml:"api_key" env:"API_KEY"`
	MaxStatements int           `yaml:"max_statements" env:"MAX_STATEMENTS"`
	EvidenceLimit int           `yaml:"evidence_limit" env:"EVIDENCE_LIMIT"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type GildaConfig struct {
	URL       string        `yaml:"url" env:"URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	CacheSize int           `yaml:"cache_size" env:"CACHE_SIZE"`
}

// StoreConfig selects the SQLite database. An empty path keeps everything
// in memory.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// PublishConfig selects where shareable result pages go: "none", "store"
// (served by the web front end) or "s3".
type PublishConfig struct {
	Backend string   `yaml:"backend" env:"BACKEND"`
	BaseURL string   `yaml:"base_url" env:"BASE_URL"`
	S3      S3Config `yaml:"s3" envPrefix:"S3_"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	Region          string `yaml:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
}

type SlackConfig struct {
	BotToken  string `yaml:"bot_token" env:"BOT_TOKEN"`
	AppToken  string `yaml:"app_token" env:"APP_TOKEN"`
	TokenFile string `yaml:"token_file" env:"TOKEN_FILE"`
	// BotUserID is discovered with auth.test when empty.
	BotUserID string `yaml:"bot_user_id" env:"BOT_USER_ID"`
	CacheSize int    `yaml:"cache_size" env:"CACHE_SIZE"`
}

type WebConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LLMConfig enables prose summaries from an OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	Model   string `yaml:"model" env:"MODEL"`
}

// Enabled reports whether summaries are configured.
func (c LLMConfig) Enabled() bool {
	return c.BaseURL != "" && c.Model != ""
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Load reads path (optional), applies environment overrides, fills in
// defaults and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", internalerr.ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.DBRest.URL == "" {
		c.DBRest.URL = "https://db.indra.bio"
	}
	if c.DBRest.MaxStatements == 0 {
		c.DBRest.MaxStatements = 100
	}
	if c.DBRest.EvidenceLimit == 0 {
		c.DBRest.EvidenceLimit = 10
	}
	if c.DBRest.Timeout == 0 {
		c.DBRest.Timeout = 60 * time.Second
	}
	if c.Gilda.URL == "" {
		c.Gilda.URL = "http://grounding.indra.bio"
	}
	if c.Gilda.Timeout == 0 {
		c.Gilda.Timeout = 15 * time.Second
	}
	if c.Gilda.CacheSize == 0 {
		c.Gilda.CacheSize = 1024
	}
	if c.Publish.Backend == "" {
		c.Publish.Backend = "none"
	}
	if c.Slack.TokenFile == "" {
		c.Slack.TokenFile = "indrabot_slack_token"
	}
	if c.Slack.CacheSize == 0 {
		c.Slack.CacheSize = 512
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.Web.ReadTimeout == 0 {
		c.Web.ReadTimeout = 30 * time.Second
	}
	if c.Web.ShutdownTimeout == 0 {
		c.Web.ShutdownTimeout = 10 * time.Second
	}
	if c.DotPath == "" {
		c.DotPath = "dot"
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.DBRest.MaxStatements < 0 {
		errs = append(errs, fmt.Errorf("dbrest.max_statements must not be negative"))
	}
	if c.DBRest.EvidenceLimit < 0 {
		errs = append(errs, fmt.Errorf("dbrest.evidence_limit must not be negative"))
	}
	if c.Gilda.CacheSize < 0 || c.Slack.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache sizes must not be negative"))
	}
	switch c.Publish.Backend {
	case "none":
	case "store":
		if c.Publish.BaseURL == "" {
			errs = append(errs, fmt.Errorf("publish.base_url is required for the store backend"))
		}
	case "s3":
		if c.Publish.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("publish.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("publish.backend must be none, store or s3, got %q", c.Publish.Backend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// SlackBotToken returns the configured bot token, reading the token file
// when none is set directly.
func (c Config) SlackBotToken() (string, error) {
	if c.Slack.BotToken != "" {
		return c.Slack.BotToken, nil
	}
	data, err := os.ReadFile(c.Slack.TokenFile)
	if err != nil {
		return "", fmt.Errorf("%w: no slack bot token: %v", internalerr.ErrInvalidConfig, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: slack token file %s is empty", internalerr.ErrInvalidConfig, c.Slack.TokenFile)
	}
	return token, nil
}
