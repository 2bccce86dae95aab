package cmd

import (
	"github.com/spf13/cobra"

	"github.com/concordsync/concord"
	"github.com/concordsync/concord/cmd/concord/app"
)

func newFullCommand(a *app.App) *cobra.Command {
	var (
		withReverse bool
		withAudit   bool
	)

	cmd := &cobra.Command{
		Use:   "full",
		Short: "Reconcile the entire Google directory",
		Long: `Full pulls every Google contact and reconciles each one, then removes
the pairs whose Google contact no longer exists, which an incremental
pass cannot see when its tombstone fell outside the change window. Needs
no cursor and stores a fresh one, so it also recovers from an expired
sync token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, done, err := a.Engine()
			if err != nil {
				return err
			}
			defer done()

			report, err := eng.Full(cmd.Context(),
				concord.RunWithReverse(withReverse),
				concord.RunWithAudit(withAudit),
			)
			if err != nil {
				return err
			}
			return finishReport(cmd, a, report)
		},
	}

	cmd.Flags().BoolVar(&withReverse, "with-reverse", false, "also copy unmapped Monica contacts back to Google")
	cmd.Flags().BoolVar(&withAudit, "with-audit", false, "also audit the mapping table after the pass")
	return cmd
}
