// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Display  DisplayConfig  `yaml:"display"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

// PlaybackConfig represents reconciliation settings.
type PlaybackConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms" default:"250" validate:"gte=50,lte=10000"`
}

// DisplayConfig represents time display settings.
type DisplayConfig struct {
	PadMinutes bool   `yaml:"pad_minutes"`
	NoTimeText string `yaml:"no_time_text" default:"--:--"`
}

// EngineConfig selects and configures the playback engine backend.
type EngineConfig struct {
	Backend string        `yaml:"backend" default:"mpv" validate:"oneof=mpv spotify"`
	Spotify SpotifyConfig `yaml:"spotify"`
}

// SpotifyConfig represents Spotify Connect backend configuration.
// Required only when the spotify backend is selected.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	DeviceID     string `yaml:"device_id"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	var cfg Config
	// Set never fails on this struct; the tags are static.
	_ = defaults.Set(&cfg)
	cfg.overrideFromEnv()
	return &cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Engine.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Engine.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Engine.Spotify.RefreshToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Engine.Backend == "spotify" {
		s := c.Engine.Spotify
		if s.ClientID == "" || s.ClientSecret == "" || s.RefreshToken == "" {
			return errors.New("spotify backend requires client_id, client_secret and refresh_token")
		}
	}

	return nil
}

// TickInterval returns the reconcile tick interval as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Playback.TickIntervalMs) * time.Millisecond
}
