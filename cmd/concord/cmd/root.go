// Package cmd defines the concord command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/concordsync/concord/cmd/concord/app"
	"github.com/concordsync/concord/pkg/constants"
)

// NewRootCommand builds the root command with every subcommand attached.
func NewRootCommand(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:   "concord",
		Short: "Reconcile contacts between Google and Monica",
		Long: `Concord keeps a Google People contact book and a Monica CRM in step.

The Google side is authoritative. Bootstrap links or creates Monica
counterparts for every Google contact, sync replays the changes since
the last pass, and full reconciles the whole directory including
deletions. Reverse copies Monica-only contacts back to Google, and
audit cross-checks the mapping table against both directories without
changing anything.

Settings come from CONCORD_* environment variables, optionally loaded
from a .env file; flags override them.`,
		Version: a.Version(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.Setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.EnvFile, "env-file", "", "load environment from this file instead of .env")
	flags.String("database", constants.DefaultDatabaseFile, "mapping store path")
	flags.BoolVar(&a.DryRun, "dry-run", false, "log what would change without writing anything")
	flags.StringVarP(&a.Output, "output", "o", "table", "report format: table, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVarP(&a.Verbose, "verbose", "v", false, "verbose output (same as --log-level=debug)")
	flags.BoolVarP(&a.Quiet, "quiet", "q", false, "minimal output (same as --log-level=warn)")
	flags.BoolVar(&a.NoColor, "no-color", false, "disable colored output")

	cobra.CheckErr(a.Viper().BindPFlag("database", flags.Lookup("database")))
	cobra.CheckErr(a.Viper().BindPFlag("log_level", flags.Lookup("log-level")))

	root.SetVersionTemplate("concord {{.Version}}\n")

	root.AddCommand(
		newBootstrapCommand(a),
		newSyncCommand(a),
		newFullCommand(a),
		newReverseCommand(a),
		newAuditCommand(a),
		newStatusCommand(a),
		newVersionCommand(a),
	)

	return root
}
