package cmd

import (
	"github.com/spf13/cobra"

	"github.com/concordsync/concord"
	"github.com/concordsync/concord/cmd/concord/app"
)

func newSyncCommand(a *app.App) *cobra.Command {
	var (
		withReverse bool
		withAudit   bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile Google changes since the last pass",
		Long: `Sync pulls the contacts changed since the stored cursor and brings
their Monica counterparts in line: new contacts are created, changed ones
patched field by field, and deleted ones removed when deletion is
enabled. The cursor advances only after a pass with no failures, so
failed contacts are pulled and retried next time.

Requires a cursor; run bootstrap or full first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, done, err := a.Engine()
			if err != nil {
				return err
			}
			defer done()

			report, err := eng.Incremental(cmd.Context(),
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
