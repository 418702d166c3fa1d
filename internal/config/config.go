// Package config loads and validates connector configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"db"`
	BrowserUse BrowserUseConfig `mapstructure:"browseruse"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Hash       HashConfig       `mapstructure:"hash"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// BrowserUseConfig configures the remote browser-automation provider.
type BrowserUseConfig struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `mapstructure:"poll_timeout_seconds"`
}

// WebhookConfig holds the shared secrets for inbound webhook verification.
// An empty secret disables verification for that provider (fail-open).
type WebhookConfig struct {
	GitHubSecret string `mapstructure:"github_secret"`
	VercelSecret string `mapstructure:"vercel_secret"`
}

// HashConfig configures phone-number digest computation.
type HashConfig struct {
	// Pepper, when set, is mixed into every phone digest. Changing it
	// invalidates all previously stored hashes, so it must stay stable
	// for the lifetime of the candidates table.
	Pepper string `mapstructure:"pepper"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from environment variables and an optional file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONNECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without a default need an explicit binding before Unmarshal can see
	// their env values.
	for _, key := range []string{
		"db.dsn",
		"browseruse.api_key",
		"webhook.github_secret",
		"webhook.vercel_secret",
		"hash.pepper",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s env: %w", key, err)
		}
	}

	// Cloud platforms inject the listen port as PORT.
	if err := v.BindEnv("server.port", "CONNECTOR_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

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
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("browseruse.base_url", "https://api.browser-use.com/api/v1")
	v.SetDefault("browseruse.poll_interval_seconds", 5)
	v.SetDefault("browseruse.poll_timeout_seconds", 600)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.BrowserUse.PollIntervalSeconds <= 0 {
		return fmt.Errorf("browseruse.poll_interval_seconds must be > 0")
	}
	if c.BrowserUse.PollTimeoutSeconds < c.BrowserUse.PollIntervalSeconds {
		return fmt.Errorf("browseruse.poll_timeout_seconds must be >= poll interval")
	}
	if c.BrowserUse.BaseURL == "" {
		return fmt.Errorf("browseruse.base_url must be set")
	}
	return nil
}

// ScrapeEnabled reports whether the scrape workflow has the credentials it
// needs. Resolved once at startup; when false, /api/scrape serves 503 while
// the webhook endpoints stay available.
func (c Config) ScrapeEnabled() bool {
	return c.DB.DSN != "" && c.BrowserUse.APIKey != ""
}

// PollInterval returns the automation poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.BrowserUse.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the overall automation wait budget as a duration.
func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.BrowserUse.PollTimeoutSeconds) * time.Second
}
