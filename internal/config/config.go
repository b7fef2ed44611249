// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Store   StoreConfig   `mapstructure:"store"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Events  EventsConfig  `mapstructure:"events"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SlackConfig holds bot credentials.
type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	SigningSecret string `mapstructure:"signing_secret"`
	BaseURL       string `mapstructure:"base_url"`
}

// StoreConfig selects and configures the catalog store.
type StoreConfig struct {
	Provider       string `mapstructure:"provider"`
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	RESTAPIKey     string `mapstructure:"rest_api_key"`
	DSN            string `mapstructure:"dsn"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScrapeConfig governs the fetch cascade.
type ScrapeConfig struct {
	UserAgent             string   `mapstructure:"user_agent"`
	TimeoutSeconds        int      `mapstructure:"timeout_seconds"`
	ProxyBaseURL          string   `mapstructure:"proxy_base_url"`
	RenderEnabled         bool     `mapstructure:"render_enabled"`
	RenderTimeoutSeconds  int      `mapstructure:"render_timeout_seconds"`
	RenderSettleSeconds   int      `mapstructure:"render_settle_seconds"`
	RenderMaxParallel     int      `mapstructure:"render_max_parallel"`
	RenderDomainQPS       float64  `mapstructure:"render_domain_qps"`
	DetectorMinHTMLBytes  int      `mapstructure:"detector_min_html_bytes"`
	DetectorKeywords      []string `mapstructure:"detector_keywords"`
}

// MonitorConfig controls the scheduled check cycle.
type MonitorConfig struct {
	IntervalMinutes  int    `mapstructure:"interval_minutes"`
	CoolDownSeconds  int    `mapstructure:"cool_down_seconds"`
	StatePath        string `mapstructure:"state_path"`
	TeamID           string `mapstructure:"team_id"`
}

// ArchiveConfig selects where fetched page content is kept.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig selects the price change event publisher.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VANTAGEFLOW")
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
	v.SetDefault("store.provider", "noop")
	v.SetDefault("store.timeout_seconds", 30)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("scrape.user_agent", "vantageflow-bot/0.1")
	v.SetDefault("scrape.timeout_seconds", 20)
	v.SetDefault("scrape.render_enabled", false)
	v.SetDefault("scrape.render_timeout_seconds", 40)
	v.SetDefault("scrape.render_settle_seconds", 2)
	v.SetDefault("scrape.render_max_parallel", 1)
	v.SetDefault("scrape.render_domain_qps", 0.5)
	v.SetDefault("scrape.detector_min_html_bytes", 2048)
	v.SetDefault("scrape.detector_keywords", []string{"enable javascript", "captcha", "cf-challenge"})
	v.SetDefault("monitor.interval_minutes", 60)
	v.SetDefault("monitor.cool_down_seconds", 30)
	v.SetDefault("monitor.state_path", "vantageflow_state.json")
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("events.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if c.Scrape.RenderEnabled && c.Scrape.RenderMaxParallel <= 0 {
		return fmt.Errorf("scrape.render_max_parallel must be > 0 when rendering is enabled")
	}
	if c.Monitor.IntervalMinutes <= 0 {
		return fmt.Errorf("monitor.interval_minutes must be > 0")
	}
	switch c.Store.Provider {
	case "noop":
	case "rest":
		if c.Store.RESTBaseURL == "" {
			return fmt.Errorf("store.rest_base_url must be set for the rest provider")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown store.provider %q", c.Store.Provider)
	}
	switch c.Archive.Provider {
	case "noop", "local":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	switch c.Events.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicName == "" {
			return fmt.Errorf("events.project_id and events.topic_name must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown events.provider %q", c.Events.Provider)
	}
	return nil
}

// StoreTimeout converts the store timeout into a duration.
func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutSeconds) * time.Second
}

// ScrapeTimeout converts the fetch timeout into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// MonitorInterval converts the check interval into a duration.
func (c Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMinutes) * time.Minute
}

// MonitorCoolDown converts the failure cool-down into a duration.
func (c Config) MonitorCoolDown() time.Duration {
	return time.Duration(c.Monitor.CoolDownSeconds) * time.Second
}
