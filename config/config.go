package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the helpbot process.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Slack     SlackConfig     `mapstructure:"slack"`
	KB        KBConfig        `mapstructure:"kb"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Warm      WarmConfig      `mapstructure:"warm"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`
}

// SlackConfig contains the signing secret for inbound webhooks and the
// bot token for the outbound Web API client.
type SlackConfig struct {
	SigningSecret string        `mapstructure:"signing_secret"`
	BotToken      string        `mapstructure:"bot_token"`
	Command       string        `mapstructure:"command"`
	APIBaseURL    string        `mapstructure:"api_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// RequireCredentials checks the settings that only the serve command needs.
// The search and warm commands never talk to Slack, so these are not part
// of Validate.
func (s SlackConfig) RequireCredentials() error {
	if strings.TrimSpace(s.SigningSecret) == "" {
		return fmt.Errorf("slack.signing_secret is required")
	}
	if strings.TrimSpace(s.BotToken) == "" {
		return fmt.Errorf("slack.bot_token is required")
	}
	return nil
}

func (s SlackConfig) Validate() error {
	if !strings.HasPrefix(s.Command, "/") {
		return fmt.Errorf("slack.command must start with '/'")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("slack.timeout must be positive")
	}
	return nil
}

// KBConfig contains the knowledge-base crawl settings. MaxArticles and
// FetchDelay are part of the observable contract: the crawl never touches
// more than MaxArticles pages per search and waits FetchDelay between
// article iterations.
type KBConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PathSegment  string        `mapstructure:"path_segment"`
	MaxArticles  int           `mapstructure:"max_articles"`
	FetchDelay   time.Duration `mapstructure:"fetch_delay"`
	MaxResults   int           `mapstructure:"max_results"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
}

func (k KBConfig) Validate() error {
	if strings.TrimSpace(k.BaseURL) == "" {
		return fmt.Errorf("kb.base_url is required")
	}
	if strings.TrimSpace(k.PathSegment) == "" {
		return fmt.Errorf("kb.path_segment is required")
	}
	if k.MaxArticles <= 0 {
		return fmt.Errorf("kb.max_articles must be > 0")
	}
	if k.MaxResults <= 0 {
		return fmt.Errorf("kb.max_results must be > 0")
	}
	if k.FetchDelay < 0 {
		return fmt.Errorf("kb.fetch_delay cannot be negative")
	}
	if k.FetchTimeout <= 0 {
		return fmt.Errorf("kb.fetch_timeout must be positive")
	}
	return nil
}

// CacheConfig selects the article cache backend and its retention policy.
// TTL 0 and MaxEntries 0 mean keep forever and grow without bound; both are
// stated parameters rather than implicit behaviour.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Backend)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative")
	}
	return nil
}

// StorageConfig contains connection settings for external stores.
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// WarmConfig controls the optional cache-warming scheduler.
type WarmConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

func (w WarmConfig) Validate() error {
	if w.Enabled && strings.TrimSpace(w.Schedule) == "" {
		return fmt.Errorf("warm.schedule required when warm.enabled is true")
	}
	return nil
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.listen", ":8080")
	v.SetDefault("general.debug", false)
	// Secrets and the landing URL default empty; registering them is what
	// lets AutomaticEnv surface HELPBOT_* values through Unmarshal.
	v.SetDefault("slack.signing_secret", "")
	v.SetDefault("slack.bot_token", "")
	v.SetDefault("kb.base_url", "")
	v.SetDefault("slack.command", "/kb")
	v.SetDefault("slack.api_base_url", "https://slack.com/api")
	v.SetDefault("slack.timeout", 10*time.Second)
	v.SetDefault("kb.path_segment", "/knowledge-base/")
	v.SetDefault("kb.max_articles", 10)
	v.SetDefault("kb.fetch_delay", 500*time.Millisecond)
	v.SetDefault("kb.max_results", 5)
	v.SetDefault("kb.fetch_timeout", 10*time.Second)
	v.SetDefault("kb.user_agent", "helpbot/1.0 (+https://github.com/safakhou/helpbot)")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("warm.enabled", false)
	v.SetDefault("warm.schedule", "@hourly")
	v.SetDefault("telemetry.enabled", true)
}

// Load reads config from file (or the default search paths when path is
// empty), applies HELPBOT_* environment overrides and validates the result.
// A missing config file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("HELPBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for call sites that cannot continue without config.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}

// Validate runs every section's validation.
func (c *Config) Validate() error {
	if err := c.Slack.Validate(); err != nil {
		return err
	}
	if err := c.KB.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.Cache.Backend == "redis" {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	return c.Warm.Validate()
}
