package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrMissingToken          = errors.New("discord token is not configured")
	ErrMissingPrefix         = errors.New("command prefix is not configured")
)

// CurrentVersion is the version of the config file layout.
const CurrentVersion = 1

// EnvPrefix is the prefix of environment variables overriding file values.
const EnvPrefix = "BOT_"

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Discord    Discord    `koanf:"discord"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Debug      Debug      `koanf:"debug"`
	Activity   Activity   `koanf:"activity"`
	RMT        RMT        `koanf:"rmt"`
	Showdown   Showdown   `koanf:"showdown"`
}

// Discord contains bot account and dispatch configuration.
type Discord struct {
	// Bot token.
	Token string `koanf:"token"`
	// Prefix every command starts with.
	Prefix string `koanf:"prefix"`
	// User IDs that bypass every permission check.
	Admins []string `koanf:"admins"`
	// Channel receiving throttled error reports. Zero disables reporting.
	ErrorChannel uint64 `koanf:"error_channel"`
	// Seconds to wait for in-flight work after a shutdown begins.
	ShutdownGrace int `koanf:"shutdown_grace"`
}

// PostgreSQL contains database connection settings.
type PostgreSQL struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"db_name"`
	// Connection pool limits.
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetimes in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains the optional shared cooldown store settings.
type Redis struct {
	// Leave empty to keep cooldowns in process memory.
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Enabled reports whether a Redis host is configured.
func (r Redis) Enabled() bool {
	return r.Host != ""
}

// Debug contains logging configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Number of log sessions to keep on disk.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// Activity contains line count settings.
type Activity struct {
	// Days of line counts kept before pruning.
	RetentionDays int `koanf:"retention_days"`
}

// RMT contains team rating monitor settings.
type RMT struct {
	// Minutes before raters of a format in a channel may be pinged again.
	CooldownMinutes int `koanf:"cooldown_minutes"`
}

// Showdown contains usage statistics settings.
type Showdown struct {
	// Directory holding dex.json and the ps-stats tree.
	DataDir string `koanf:"data_dir"`
}

// defaults are applied before any file is read.
var defaults = map[string]any{
	"discord.prefix":            "!",
	"discord.shutdown_grace":    10,
	"postgresql.host":           "localhost",
	"postgresql.port":           5432,
	"postgresql.max_open_conns": 20,
	"postgresql.max_idle_conns": 5,
	"postgresql.max_lifetime":   30,
	"postgresql.max_idle_time":  5,
	"debug.log_level":           "info",
	"debug.max_logs_to_keep":    10,
	"activity.retention_days":   60,
	"rmt.cooldown_minutes":      60,
	"showdown.data_dir":         "data",
}

// LoadConfig loads bot.toml from the first matching config path, overlays BOT_* environment
// variables and validates the result. An explicit dir is searched before the default paths.
func LoadConfig(dir string) (*Config, string, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		filepath.Join(homeDir, ".warden"),
		"/etc/warden",
		"config",
		".",
	}
	if dir != "" {
		configPaths = append([]string{dir}, configPaths...)
	}

	var usedConfigPath string
	for _, path := range configPaths {
		if err := k.Load(file.Provider(filepath.Join(path, "bot.toml")), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	// Environment overrides apply with or without a file
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment: %w", err)
	}

	if usedConfigPath == "" && !k.Exists("version") {
		return nil, "", ErrConfigFileNotFound
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Comma separated admin lists come from the environment
	if raw, ok := k.Get("discord.admins").(string); ok {
		config.Discord.Admins = splitList(raw)
	}

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// Validate checks the version and the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return ErrConfigVersionMissing
	}

	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: bot.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, c.Version, CurrentVersion)
	}

	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}

	if c.Discord.Prefix == "" {
		return ErrMissingPrefix
	}

	return nil
}

// envKey maps BOT_DISCORD_ERROR_CHANNEL to discord.error_channel.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(raw string) []string {
	var items []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
