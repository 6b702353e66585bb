// Package config loads the application configuration from config.yaml and
// ENRICH_* environment variables, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Listeners ListenersConfig `yaml:"listeners" mapstructure:"listeners"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Knowledge KnowledgeConfig `yaml:"knowledge" mapstructure:"knowledge"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker" mapstructure:"breaker"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Label     LabelConfig     `yaml:"label" mapstructure:"label"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ListenersConfig configures the listener-count scraping provider. Listener
// counts are volatile, so their TTL is the shortest of the three providers.
type ListenersConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TTLMinutes       int     `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PollIntervalSecs int     `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollCapSecs      int     `yaml:"poll_cap_secs" mapstructure:"poll_cap_secs"`
	Confidence       float64 `yaml:"confidence" mapstructure:"confidence"`
}

// CatalogConfig configures the catalogue API provider.
type CatalogConfig struct {
	Token       string  `yaml:"token" mapstructure:"token"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TTLHours    int     `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// KnowledgeConfig configures the knowledge-graph provider. Management data
// barely changes, so its TTL is the longest.
type KnowledgeConfig struct {
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TTLHours    int     `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Confidence  float64 `yaml:"confidence" mapstructure:"confidence"`
}

// RetryConfig configures the shared retry policy.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	BackoffFactor    float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
}

// BreakerConfig configures the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	OpenTimeoutSecs  int `yaml:"open_timeout_secs" mapstructure:"open_timeout_secs"`
}

// BatchConfig configures batch enrichment.
type BatchConfig struct {
	Size        int `yaml:"size" mapstructure:"size"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LabelConfig configures principal-label resolution.
type LabelConfig struct {
	Method string `yaml:"method" mapstructure:"method"` // latest | frequent
	Window int    `yaml:"window" mapstructure:"window"`
}

// EnrichConfig configures the enrichment call envelope.
type EnrichConfig struct {
	// DeadlineSecs bounds one whole enrichment call; 0 disables the
	// deadline and leaves only per-provider timeouts.
	DeadlineSecs int `yaml:"deadline_secs" mapstructure:"deadline_secs"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("listeners.base_url", "https://api.streamcount.app/v1")
	v.SetDefault("listeners.ttl_minutes", 60)
	v.SetDefault("listeners.timeout_secs", 120)
	v.SetDefault("listeners.poll_interval_secs", 2)
	v.SetDefault("listeners.poll_cap_secs", 15)
	v.SetDefault("listeners.confidence", 0.8)
	v.SetDefault("catalog.base_url", "https://api.tunegraph.io/v1")
	v.SetDefault("catalog.ttl_hours", 24)
	v.SetDefault("catalog.timeout_secs", 15)
	v.SetDefault("catalog.rate_per_sec", 10)
	v.SetDefault("knowledge.endpoint", "https://query.wikidata.org/sparql")
	v.SetDefault("knowledge.user_agent", "enrich-cli/1.0 (data@crescendo.dev)")
	v.SetDefault("knowledge.ttl_hours", 168)
	v.SetDefault("knowledge.timeout_secs", 30)
	v.SetDefault("knowledge.confidence", 0.9)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.backoff_factor", 2.0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.open_timeout_secs", 60)
	v.SetDefault("batch.size", 50)
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("label.method", "latest")
	v.SetDefault("label.window", 20)
	v.SetDefault("enrich.deadline_secs", 0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings that must be present before any provider is
// constructed. Missing credentials are a configuration error at startup,
// not a per-call failure.
func (c *Config) Validate() error {
	if c.Listeners.Key == "" {
		return eris.New("config: listeners.key is required (ENRICH_LISTENERS_KEY)")
	}
	if c.Catalog.Token == "" {
		return eris.New("config: catalog.token is required (ENRICH_CATALOG_TOKEN)")
	}
	if c.Label.Method != "latest" && c.Label.Method != "frequent" {
		return eris.Errorf("config: unknown label.method %q (want latest or frequent)", c.Label.Method)
	}
	return nil
}

// ListenersTTL returns the listener-count cache TTL.
func (c *Config) ListenersTTL() time.Duration {
	return time.Duration(c.Listeners.TTLMinutes) * time.Minute
}

// CatalogTTL returns the catalogue-facts cache TTL.
func (c *Config) CatalogTTL() time.Duration {
	return time.Duration(c.Catalog.TTLHours) * time.Hour
}

// KnowledgeTTL returns the management-info cache TTL.
func (c *Config) KnowledgeTTL() time.Duration {
	return time.Duration(c.Knowledge.TTLHours) * time.Hour
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
