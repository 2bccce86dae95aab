package cmd

import (
	"github.com/spf13/cobra"

	"github.com/concordsync/concord/cmd/concord/app"
)

func newReverseCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse",
		Short: "Copy Monica-only contacts back to Google",
		Long: `Reverse scans Monica for eligible contacts that have no mapping and
creates a Google counterpart for each, with names, birthday, career,
addresses, phone numbers and emails carried over. Mapped contacts are
never touched; Google stays authoritative for them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, done, err := a.Engine()
			if err != nil {
				return err
			}
			defer done()

			report, err := eng.Reverse(cmd.Context())
			if err != nil {
				return err
			}
			return finishReport(cmd, a, report)
		},
	}
}
