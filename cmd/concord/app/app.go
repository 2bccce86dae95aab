// Package app wires the concord CLI together: version metadata, resolved
// configuration, logging, and construction of the engine with its
// collaborators. Commands receive an App and pull what they need from it.
package app

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/concordsync/concord/internal/config"
	"github.com/concordsync/concord/pkg/logging"
)

// App carries the state shared by every command in one invocation.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	viper  *viper.Viper
	config *config.Config
	logger *zerolog.Logger

	// Global flag values. The root command binds its persistent flags to
	// these fields; Setup reads them after parsing.
	EnvFile string
	DryRun  bool
	Output  string
	Verbose bool
	Quiet   bool
	NoColor bool
}

// New creates the application shell with the given build metadata.
// Configuration is loaded later by Setup, after flag parsing, so that
// --env-file and flags bound over viper are in effect.
func New(version, commit, date, builtBy string) *App {
	return &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		viper:   viper.New(),
		logger:  logging.Default(),
	}
}

// Setup loads the configuration and configures logging. It runs as the
// root command's PersistentPreRunE.
func (a *App) Setup() error {
	cfg, err := config.Load(a.viper, a.EnvFile)
	if err != nil {
		return err
	}
	a.config = cfg

	// --verbose and --quiet override the configured level; quiet wins
	// when both are given.
	level := cfg.LogLevel
	if a.Verbose {
		level = "debug"
	}
	if a.Quiet {
		level = "warn"
	}

	logging.Configure(&logging.Config{
		Level:   level,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		NoColor: a.NoColor,
	})
	a.logger = logging.Default()
	return nil
}

// Version returns the release version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the loaded configuration. Nil before Setup runs.
func (a *App) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Viper returns the viper instance flags are bound to.
func (a *App) Viper() *viper.Viper { return a.viper }

// ExitOnError prints the error to stderr and exits with status 1. Meant
// for top-level error handling in main.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
