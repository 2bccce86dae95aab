package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/concordsync/concord/cmd/concord/app"
)

func newVersionCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "concord version %s\n", a.Version())
			fmt.Fprintf(w, "commit: %s\n", a.Commit())
			fmt.Fprintf(w, "built: %s\n", a.Date())
			fmt.Fprintf(w, "built by: %s\n", a.BuiltBy())
			fmt.Fprintf(w, "go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
