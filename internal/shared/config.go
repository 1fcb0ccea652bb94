package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Download    DownloadConfig    `toml:"download"`
	Search      SearchConfig      `toml:"search"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Telegram TelegramConfig `toml:"telegram"`
	YouTube  YouTubeConfig  `toml:"youtube"`
}

// SpotifyConfig contains Spotify client-credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// TelegramConfig contains the bot token issued by BotFather.
type TelegramConfig struct {
	Token string `toml:"token"`
}

// YouTubeConfig contains the optional YouTube Data API key.
type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
}

// DownloadConfig controls the per-track retry policy and the fetch backend.
type DownloadConfig struct {
	Dir            string `toml:"dir"`
	Attempts       int    `toml:"attempts"`
	AttemptTimeout string `toml:"attempt_timeout"`
	RetryDelay     string `toml:"retry_delay"`
	DefaultBitrate int    `toml:"default_bitrate"`
	YtdlpPath      string `toml:"ytdlp_path"`
	InstallYtdlp   bool   `toml:"install_ytdlp"`
}

// SearchConfig controls candidate resolution.
type SearchConfig struct {
	RateLimit      float64 `toml:"rate_limit"`
	MatchThreshold float64 `toml:"match_threshold"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	History      bool   `toml:"history"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials with values found in the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Credentials.Telegram.Token = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.Credentials.YouTube.APIKey = v
	}
}

// Validate reports values that would leave the download pipeline unusable.
func (c *Config) Validate() error {
	if c.Download.Attempts < 1 {
		return fmt.Errorf("%w: download.attempts must be at least 1, got %d", ErrInvalidConfig, c.Download.Attempts)
	}
	if _, err := c.AttemptTimeout(); err != nil {
		return err
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	if c.Search.RateLimit < 0 {
		return fmt.Errorf("%w: search.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Search.MatchThreshold < 0 || c.Search.MatchThreshold > 100 {
		return fmt.Errorf("%w: search.match_threshold must be within 0-100", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevelName()); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// AttemptTimeout parses download.attempt_timeout. Zero means no deadline.
func (c *Config) AttemptTimeout() (time.Duration, error) {
	return parseDuration("download.attempt_timeout", c.Download.AttemptTimeout)
}

// RetryDelay parses download.retry_delay.
func (c *Config) RetryDelay() (time.Duration, error) {
	return parseDuration("download.retry_delay", c.Download.RetryDelay)
}

// LogLevelName returns the configured level, defaulting to info.
func (c *Config) LogLevelName() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// HasSpotifyCredentials reports whether both halves of the client credentials are set.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, key)
	}
	return d, nil
}
