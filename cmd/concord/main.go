// Package main provides the entry point for the concord CLI.
package main

import (
	"github.com/concordsync/concord/cmd/concord/app"
	"github.com/concordsync/concord/cmd/concord/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application := app.New(version, commit, date, builtBy)

	ctx, cancel := app.Context()
	defer cancel()

	root := cmd.NewRootCommand(application)
	if err := root.ExecuteContext(ctx); err != nil {
		app.ExitOnError(err)
	}
}
