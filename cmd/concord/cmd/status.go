package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/concordsync/concord/cmd/concord/app"
	"github.com/concordsync/concord/pkg/mapping"
)

// storeStatus is the status command's output document.
type storeStatus struct {
	Database string          `json:"database" yaml:"database"`
	Mappings int             `json:"mappings" yaml:"mappings"`
	Cursor   *mapping.Cursor `json:"cursor,omitempty" yaml:"cursor,omitempty"`
}

func newStatusCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mapping store counts and cursor age",
		Long: `Status reads the local mapping store and reports how many pairs it
holds and when the sync cursor was last advanced. It never contacts the
directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.OpenStore()
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					a.Logger().Error().Err(err).Msg("Closing mapping store failed")
				}
			}()

			ctx := cmd.Context()
			count, err := st.Count(ctx)
			if err != nil {
				return err
			}
			cursor, err := st.Cursor(ctx)
			if err != nil {
				return err
			}

			status := storeStatus{
				Database: a.Config().Database,
				Mappings: count,
				Cursor:   cursor,
			}
			return renderDoc(cmd.OutOrStdout(), a.Output, status, func(w io.Writer) {
				fmt.Fprintf(w, "database:  %s\n", status.Database)
				fmt.Fprintf(w, "mappings:  %d\n", status.Mappings)
				if status.Cursor == nil {
					fmt.Fprintln(w, "cursor:    none (run bootstrap or full first)")
					return
				}
				age := time.Since(status.Cursor.UpdatedAt).Round(time.Minute)
				fmt.Fprintf(w, "cursor:    advanced %s (%s ago)\n",
					status.Cursor.UpdatedAt.Format(time.RFC3339), age)
			})
		},
	}
}
