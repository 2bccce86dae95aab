package concord

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/concordsync/concord/pkg/audit"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapping"
)

// session is the working state of one engine pass: the report under
// construction and the call-count baselines that turn the clients'
// cumulative counters into per-session numbers. Discarded at session end.
type session struct {
	c       *Concord
	report  *Report
	started time.Time

	sourceCallBase int64
	targetCallBase int64
}

func (c *Concord) newSession(operation string) *session {
	started := time.Now()
	return &session{
		c: c,
		report: &Report{
			Operation: operation,
			DryRun:    c.dryRun,
			StartedAt: started.UTC(),
		},
		started:        started,
		sourceCallBase: c.source.Calls(),
		targetCallBase: c.target.Calls(),
	}
}

// finish seals the report with duration and per-session call counts.
func (s *session) finish() *Report {
	s.report.Duration = time.Since(s.started)
	s.report.SourceCalls = s.c.source.Calls() - s.sourceCallBase
	s.report.TargetCalls = s.c.target.Calls() - s.targetCallBase
	return s.report
}

// fail records a per-contact terminal error and moves on. The session
// keeps running; the contact is retried on the next pass because its
// record timestamps were not refreshed.
func (s *session) fail(side audit.Side, id, name string, err error) {
	s.report.Failed++
	s.report.Issues = append(s.report.Issues, Issue{Side: side, ID: id, Name: name, Reason: err.Error()})
	s.c.logger.Error().Err(err).Str("side", string(side)).Str("contact_id", id).Str("name", name).Msg("Contact failed")
}

// skipIssue records a deliberate skip that the operator should know about.
// Routine skips (no changes, filter exclusions) are only counted.
func (s *session) skipIssue(side audit.Side, id, name, reason string) {
	s.report.Skipped++
	s.report.Issues = append(s.report.Issues, Issue{Side: side, ID: id, Name: name, Reason: reason})
}

// commitCursor stores the next incremental token as the terminal step of a
// pass. Nothing is stored on a dry run, on an empty token, or when
// contacts failed, so the next pass re-pulls and retries them.
func (s *session) commitCursor(ctx context.Context, token string) error {
	if token == "" || s.c.dryRun {
		return nil
	}
	if s.report.Failed > 0 {
		s.c.logger.Warn().Int("failed", s.report.Failed).Msg("Keeping previous cursor so failed contacts are retried next run")
		return nil
	}
	if err := s.c.store.SetCursor(ctx, mapping.Cursor{Token: token, UpdatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	s.c.logger.Debug().Msg("Cursor advanced")
	return nil
}

// runModifiers executes the optional trailing stages in fixed order:
// reverse first, audit last so it sees the session's own writes.
func (s *session) runModifiers(ctx context.Context, options *RunOptions) error {
	if options.Reverse {
		if err := s.runReverse(ctx); err != nil {
			return err
		}
	}
	if options.Audit {
		if err := s.runAudit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// abortive reports whether an error must end the session rather than one
// contact: mapping constraint violations, store I/O failures, and
// cancellation. Everything else is a per-contact matter.
func abortive(err error) bool {
	return errors.IsConstraint(err) ||
		errors.IsStore(err) ||
		errors.IsCanceled(err) ||
		stderrors.Is(err, context.DeadlineExceeded)
}
