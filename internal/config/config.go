// Package config resolves the engine's settings from the environment.
// Values come from the process environment under the CONCORD_ prefix,
// optionally seeded from a .env file, with command-line flags bound over
// them through viper. The loaded Config is immutable for the session.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/concordsync/concord/pkg/constants"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapper"
)

// Config carries every resolved setting for one engine session.
type Config struct {
	// Directory credentials and endpoints. Base URLs are empty unless
	// overridden; the clients fall back to their public defaults.
	GoogleToken   string
	GoogleBaseURL string
	MonicaToken   string
	MonicaBaseURL string

	// Database is the mapping store path.
	Database string

	// Sync behavior.
	Fields          mapper.FieldSet
	StreetReversal  bool
	DeleteOnSync    bool
	CreateReminders bool

	// Label filters per directory.
	GoogleLabels mapper.LabelFilter
	MonicaLabels mapper.LabelFilter

	// Logging.
	LogFormat string
	LogFile   string
	LogLevel  string
}

// logFormats and logLevels mirror what pkg/logging accepts, aliases
// included, so a typo fails at load time instead of being silently
// replaced with a default at log setup.
var logFormats = map[string]struct{}{
	"auto": {}, "console": {}, "pretty": {}, "json": {},
}

var logLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "warning": {},
	"error": {}, "fatal": {}, "panic": {}, "disabled": {}, "none": {}, "off": {},
}

// Load resolves the configuration from the environment through the given
// viper instance. A non-empty envFile must exist and load; with an empty
// one, a .env in the working directory is loaded when present. Flags
// already bound to the instance take precedence over environment values.
func Load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.NewConfigError("env_file", "cannot load env file "+envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, errors.NewConfigError("env_file", "cannot load .env", err)
		}
	}

	v.SetEnvPrefix("CONCORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database", constants.DefaultDatabaseFile)
	v.SetDefault("fields", "all")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_file", constants.DefaultLogFile)
	v.SetDefault("log_level", "info")

	cfg := &Config{
		GoogleToken:   v.GetString("google_token"),
		GoogleBaseURL: v.GetString("google_base_url"),
		MonicaToken:   v.GetString("monica_token"),
		MonicaBaseURL: v.GetString("monica_base_url"),

		Database: v.GetString("database"),

		StreetReversal:  v.GetBool("street_reversal"),
		DeleteOnSync:    v.GetBool("delete_on_sync"),
		CreateReminders: v.GetBool("create_reminders"),

		GoogleLabels: mapper.LabelFilter{
			Include: splitList(v.GetString("google_labels_include")),
			Exclude: splitList(v.GetString("google_labels_exclude")),
		},
		MonicaLabels: mapper.LabelFilter{
			Include: splitList(v.GetString("monica_labels_include")),
			Exclude: splitList(v.GetString("monica_labels_exclude")),
		},

		LogFormat: strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		LogFile:   v.GetString("log_file"),
		LogLevel:  strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}

	fields, err := mapper.ParseFieldSet(v.GetString("fields"))
	if err != nil {
		return nil, errors.NewConfigError("fields", "invalid sync field list", err)
	}
	cfg.Fields = fields

	if cfg.Database == "" {
		return nil, errors.NewConfigError("database", "a mapping store path is required", nil)
	}
	if _, ok := logFormats[cfg.LogFormat]; !ok {
		return nil, errors.NewConfigError("log_format", "unknown log format "+cfg.LogFormat, nil)
	}
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return nil, errors.NewConfigError("log_level", "unknown log level "+cfg.LogLevel, nil)
	}

	return cfg, nil
}

// RequireSource validates that the source directory is usable. Called by
// operations that touch the Google side.
func (c *Config) RequireSource() error {
	if c.GoogleToken == "" {
		return errors.NewConfigError("google_token", "a Google People API token is required for this operation", nil)
	}
	return nil
}

// RequireTarget validates that the target directory is usable. Called by
// operations that touch the Monica side.
func (c *Config) RequireTarget() error {
	if c.MonicaToken == "" {
		return errors.NewConfigError("monica_token", "a Monica API token is required for this operation", nil)
	}
	return nil
}

// splitList parses a comma-separated list, trimming entries and dropping
// empty ones. Returns nil for an empty list so zero filters stay zero.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
