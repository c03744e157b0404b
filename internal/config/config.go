// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/page-archiver/internal/archive"
	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// EnvPrefix prefixes every environment override, e.g. ARCHIVER_SERVER_PORT.
const EnvPrefix = "ARCHIVER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Auth      AuthConfig           `mapstructure:"auth"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Scan      autoarchive.Settings `mapstructure:"scan"`
	Archive   ArchiveConfig        `mapstructure:"archive"`
	Crawler   CrawlerConfig        `mapstructure:"crawler"`
	Headless  HeadlessConfig       `mapstructure:"headless"`
	RateLimit RateLimitConfig      `mapstructure:"ratelimit"`
	PubSub    PubSubConfig         `mapstructure:"pubsub"`
	DB        DBConfig             `mapstructure:"db"`
	Telemetry TelemetryConfig      `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ArchiveConfig selects where archive requests are published.
type ArchiveConfig struct {
	// Publisher is "memory" or "pubsub".
	Publisher string `mapstructure:"publisher"`
	Topic     string `mapstructure:"topic"`
}

// CrawlerConfig governs the scan workers and the static fetcher.
type CrawlerConfig struct {
	Concurrency    int      `mapstructure:"concurrency"`
	QueueDepth     int      `mapstructure:"queue_depth"`
	UserAgent      string   `mapstructure:"user_agent"`
	RespectRobots  bool     `mapstructure:"respect_robots"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxAttempts    int      `mapstructure:"max_attempts"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
	MaxBodyBytes   int      `mapstructure:"max_body_bytes"`
	DenyHosts      []string `mapstructure:"deny_hosts"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	SettleMs      int  `mapstructure:"settle_ms"`
	MinTextLength int  `mapstructure:"min_text_length"`
}

// RateLimitConfig throttles fetches per domain.
type RateLimitConfig struct {
	DefaultRPS   float64      `mapstructure:"default_rps"`
	DefaultBurst int          `mapstructure:"default_burst"`
	Domains      []DomainRate `mapstructure:"domains"`
}

// DomainRate overrides the default rate for one host. Hosts are listed
// rather than keyed because viper splits map keys on dots.
type DomainRate struct {
	Host string  `mapstructure:"host"`
	RPS  float64 `mapstructure:"rps"`
}

// DomainRPS flattens Domains into a host-to-rate map.
func (r RateLimitConfig) DomainRPS() map[string]float64 {
	out := make(map[string]float64, len(r.Domains))
	for _, d := range r.Domains {
		out[d.Host] = d.RPS
	}
	return out
}

// PubSubConfig holds the Pub/Sub project used when archive.publisher is pubsub.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DBConfig controls the optional Postgres verdict history.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// TelemetryConfig controls tracing. Spans are exported to Cloud Trace only
// when ProjectID is set.
type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	ProjectID   string  `mapstructure:"project_id"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("scan.archive_url", archive.DefaultSubmitURL)
	v.SetDefault("scan.global_scanning", false)
	v.SetDefault("scan.text_indicators", "")
	v.SetDefault("scan.page_path_patterns", "")
	v.SetDefault("scan.debug_mode", false)
	v.SetDefault("archive.publisher", "memory")
	v.SetDefault("archive.topic", "archive-requests")
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("crawler.user_agent", "page-archiver/0.1")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.max_attempts", 2)
	v.SetDefault("crawler.retry_backoff_ms", 250)
	v.SetDefault("crawler.max_body_bytes", 5<<20)
	v.SetDefault("crawler.deny_hosts", []string{})
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("headless.min_text_length", 200)
	v.SetDefault("ratelimit.default_rps", 1.0)
	v.SetDefault("ratelimit.default_burst", 1)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "scan_verdicts")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("telemetry.service_name", "page-archiver")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.sample_ratio", 0.1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.QueueDepth <= 0 {
		return fmt.Errorf("crawler.queue_depth must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Publisher {
	case "memory":
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required for the pubsub publisher")
		}
	default:
		return fmt.Errorf("archive.publisher must be memory or pubsub, got %q", c.Archive.Publisher)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	if c.Scan.ArchiveURL != "" && !archive.IsValidURL(c.Scan.ArchiveURL) {
		return fmt.Errorf("scan.archive_url must be an absolute url")
	}
	return nil
}

// FetchTimeout is the per-attempt fetch budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// RetryBackoff is the delay before the first fetch retry.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Crawler.RetryBackoffMs) * time.Millisecond
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
