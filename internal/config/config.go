// Package config loads and validates eventtap configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Teardown  TeardownConfig  `mapstructure:"teardown"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	GCS       GCSConfig       `mapstructure:"gcs"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
}

// ServerConfig controls the inspection HTTP server. A non-empty APIKey
// guards the /v1 routes.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TeardownConfig bounds the remote calls made while deregistering.
type TeardownConfig struct {
	UnlistenTimeoutSeconds     int `mapstructure:"unlisten_timeout_seconds"`
	NotificationTimeoutSeconds int `mapstructure:"notification_timeout_seconds"`
	ShutdownTimeoutSeconds     int `mapstructure:"shutdown_timeout_seconds"`
}

// PubSubConfig lists the subscriptions to receive from.
type PubSubConfig struct {
	ProjectID     string   `mapstructure:"project_id"`
	Subscriptions []string `mapstructure:"subscriptions"`
}

// PostgresConfig lists the channels to LISTEN on.
type PostgresConfig struct {
	DSN      string   `mapstructure:"dsn"`
	Channels []string `mapstructure:"channels"`
}

// GCSConfig describes an optional bucket notification held for the
// lifetime of the process.
type GCSConfig struct {
	Bucket         string `mapstructure:"bucket"`
	TopicProjectID string `mapstructure:"topic_project_id"`
	TopicID        string `mapstructure:"topic_id"`
}

// CrawlConfig drives the periodic page watcher.
type CrawlConfig struct {
	URL             string `mapstructure:"url"`
	Selector        string `mapstructure:"selector"`
	UserAgent       string `mapstructure:"user_agent"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

// HeadlessConfig enables a chromedp tab whose network events are tapped.
type HeadlessConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// HeartbeatConfig sets the heartbeat interval; zero disables it.
type HeartbeatConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EVENTTAP")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("teardown.unlisten_timeout_seconds", 5)
	v.SetDefault("teardown.notification_timeout_seconds", 10)
	v.SetDefault("teardown.shutdown_timeout_seconds", 10)
	v.SetDefault("crawl.selector", "title")
	v.SetDefault("crawl.user_agent", "eventtap/0.1")
	v.SetDefault("crawl.interval_seconds", 300)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("heartbeat.interval_seconds", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Heartbeat.IntervalSeconds < 0 {
		return fmt.Errorf("heartbeat.interval_seconds must be >= 0")
	}
	if len(c.PubSub.Subscriptions) > 0 && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when subscriptions are configured")
	}
	if len(c.Postgres.Channels) > 0 && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn must be set when channels are configured")
	}
	if c.GCS.Bucket != "" && (c.GCS.TopicProjectID == "" || c.GCS.TopicID == "") {
		return fmt.Errorf("gcs.topic_project_id and gcs.topic_id must be set when gcs.bucket is set")
	}
	if c.Crawl.URL != "" && c.Crawl.IntervalSeconds <= 0 {
		return fmt.Errorf("crawl.interval_seconds must be > 0 when crawl.url is set")
	}
	if c.Headless.Enabled && c.Headless.URL == "" {
		return fmt.Errorf("headless.url must be set when headless is enabled")
	}
	return nil
}

// UnlistenTimeout returns the bound for UNLISTEN during teardown.
func (c Config) UnlistenTimeout() time.Duration {
	return seconds(c.Teardown.UnlistenTimeoutSeconds)
}

// NotificationTimeout returns the bound for deleting a bucket notification.
func (c Config) NotificationTimeout() time.Duration {
	return seconds(c.Teardown.NotificationTimeoutSeconds)
}

// ShutdownTimeout returns the HTTP server shutdown budget.
func (c Config) ShutdownTimeout() time.Duration {
	return seconds(c.Teardown.ShutdownTimeoutSeconds)
}

// HeartbeatInterval returns the heartbeat period; zero means disabled.
func (c Config) HeartbeatInterval() time.Duration {
	return seconds(c.Heartbeat.IntervalSeconds)
}

// CrawlInterval returns how often the watched page is revisited.
func (c Config) CrawlInterval() time.Duration {
	return seconds(c.Crawl.IntervalSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
