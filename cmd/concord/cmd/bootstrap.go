package cmd

import (
	"github.com/spf13/cobra"

	"github.com/concordsync/concord"
	"github.com/concordsync/concord/cmd/concord/app"
)

func newBootstrapCommand(a *app.App) *cobra.Command {
	var (
		force       bool
		withReverse bool
		withAudit   bool
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Link both directories and create missing counterparts",
		Long: `Bootstrap builds the initial mapping table. Every eligible Google
contact is matched against Monica by normalized name: a unique match is
adopted in place, anything else gets a newly created Monica counterpart
with its career, addresses, phone numbers, emails, note, and tags seeded.

Refuses to run on a non-empty mapping store unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, done, err := a.Engine()
			if err != nil {
				return err
			}
			defer done()

			report, err := eng.Bootstrap(cmd.Context(),
				concord.RunWithForce(force),
				concord.RunWithReverse(withReverse),
				concord.RunWithAudit(withAudit),
			)
			if err != nil {
				return err
			}
			return finishReport(cmd, a, report)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "run even when the mapping store is not empty")
	cmd.Flags().BoolVar(&withReverse, "with-reverse", false, "also copy unmapped Monica contacts back to Google")
	cmd.Flags().BoolVar(&withAudit, "with-audit", false, "also audit the mapping table after the pass")
	return cmd
}
