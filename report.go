package concord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/concordsync/concord/pkg/audit"
)

// Operation names carried by reports.
const (
	OpBootstrap   = "bootstrap"
	OpIncremental = "incremental"
	OpFull        = "full"
	OpReverse     = "reverse"
	OpAudit       = "audit"
)

// Issue is one contact the pass could not fully handle, with the reason.
type Issue struct {
	Side   audit.Side `json:"side" yaml:"side"`
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name,omitempty" yaml:"name,omitempty"`
	Reason string     `json:"reason" yaml:"reason"`
}

// Report summarizes one engine pass: what was changed, what was skipped,
// what failed, and what the audit found when one ran. Counts are
// per-pass; API call counts cover every stage of the session.
type Report struct {
	Operation string    `json:"operation" yaml:"operation"`
	DryRun    bool      `json:"dry_run" yaml:"dry_run"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Duration of the whole session in nanoseconds.
	Duration time.Duration `json:"duration" yaml:"duration"`

	SourceCalls int64 `json:"source_calls" yaml:"source_calls"`
	TargetCalls int64 `json:"target_calls" yaml:"target_calls"`

	Created       int `json:"created" yaml:"created"`               // Target contacts created
	Adopted       int `json:"adopted" yaml:"adopted"`               // Existing target contacts linked during bootstrap
	Updated       int `json:"updated" yaml:"updated"`               // Target contacts patched
	Deleted       int `json:"deleted" yaml:"deleted"`               // Target contacts deleted
	SourceCreated int `json:"source_created" yaml:"source_created"` // Source contacts created by a reverse pass
	Skipped       int `json:"skipped" yaml:"skipped"`               // Contacts examined but deliberately left alone
	Failed        int `json:"failed" yaml:"failed"`                 // Contacts abandoned after a terminal error

	Issues []Issue `json:"issues,omitempty" yaml:"issues,omitempty"`

	// Audited reports whether a consistency audit ran this session.
	Audited   bool            `json:"audited" yaml:"audited"`
	Anomalies []audit.Anomaly `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

// HasFailures reports whether any contact was abandoned mid-pass.
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

// HasAnomalies reports whether an audit ran and found inconsistencies.
func (r *Report) HasAnomalies() bool {
	return len(r.Anomalies) > 0
}

// Summary renders the statistics box printed at session end.
func (r *Report) Summary() string {
	title := "Sync statistics (" + r.Operation
	if r.DryRun {
		title += ", dry run"
	}
	title += ")"

	rows := []struct {
		label string
		value string
	}{
		{"Duration", r.Duration.Round(time.Millisecond).String()},
		{"Source API calls", strconv.FormatInt(r.SourceCalls, 10)},
		{"Target API calls", strconv.FormatInt(r.TargetCalls, 10)},
		{"Created on target", strconv.Itoa(r.Created)},
		{"Adopted on target", strconv.Itoa(r.Adopted)},
		{"Updated on target", strconv.Itoa(r.Updated)},
		{"Deleted on target", strconv.Itoa(r.Deleted)},
		{"Created on source", strconv.Itoa(r.SourceCreated)},
		{"Skipped", strconv.Itoa(r.Skipped)},
		{"Failed", strconv.Itoa(r.Failed)},
	}
	if r.Audited {
		rows = append(rows, struct {
			label string
			value string
		}{"Audit anomalies", strconv.Itoa(len(r.Anomalies))})
	}

	width := len(title)
	for _, row := range rows {
		if w := len(row.label) + 2 + len(row.value); w > width {
			width = w
		}
	}

	border := "+" + strings.Repeat("-", width+2) + "+"
	var b strings.Builder
	b.WriteString(border + "\n")
	fmt.Fprintf(&b, "| %-*s |\n", width, title)
	b.WriteString(border + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s:%*s |\n", row.label, width-len(row.label)-1, row.value)
	}
	b.WriteString(border)
	return b.String()
}
