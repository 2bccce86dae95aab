package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concordsync/concord/cmd/concord/app"
)

func newAuditCommand(a *app.App) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Cross-check the mapping table against both directories",
		Long: `Audit pulls both directories and reports every inconsistency without
changing anything: mappings pointing at contacts that no longer exist,
contacts bound more than once, and eligible contacts on either side that
have no mapping. The stored cursor is not moved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, done, err := a.Engine()
			if err != nil {
				return err
			}
			defer done()

			report, err := eng.Audit(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderReport(cmd.OutOrStdout(), a.Output, report); err != nil {
				return err
			}
			if strict && report.HasAnomalies() {
				return fmt.Errorf("audit found %d anomalies", len(report.Anomalies))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when anomalies are found")
	return cmd
}
