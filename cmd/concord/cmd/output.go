package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/concordsync/concord"
	"github.com/concordsync/concord/cmd/concord/app"
	"github.com/concordsync/concord/pkg/errors"
)

// finishReport renders the session report and turns per-contact failures
// into a non-zero exit after the output is written.
func finishReport(cmd *cobra.Command, a *app.App, report *concord.Report) error {
	if err := renderReport(cmd.OutOrStdout(), a.Output, report); err != nil {
		return err
	}
	if report.HasFailures() {
		return fmt.Errorf("%s finished with %d failed contact(s)", report.Operation, report.Failed)
	}
	return nil
}

// renderReport writes the report in the requested format. Table output is
// the summary box followed by one line per issue and anomaly; json and
// yaml emit the full report document.
func renderReport(w io.Writer, format string, report *concord.Report) error {
	switch format {
	case "", "table":
		fmt.Fprintln(w, report.Summary())
		for _, issue := range report.Issues {
			fmt.Fprintf(w, "issue  [%s %s] %s: %s\n", issue.Side, issue.ID, issue.Name, issue.Reason)
		}
		for _, an := range report.Anomalies {
			fmt.Fprintf(w, "anomaly  %s [%s %s] %s: %s\n", an.Class, an.Side, an.ID, an.Name, an.Detail)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return errors.NewValidationError("output", format, "unknown output format")
	}
}

// renderDoc writes any document as json or yaml, or via the table
// function for table output.
func renderDoc(w io.Writer, format string, doc any, table func(io.Writer)) error {
	switch format {
	case "", "table":
		table(w)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return errors.NewValidationError("output", format, "unknown output format")
	}
}
