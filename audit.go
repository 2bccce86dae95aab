package concord

import (
	"context"

	"github.com/concordsync/concord/pkg/audit"
)

// Audit cross-references the mapping store against both directories and
// reports the inconsistencies. Strictly read-only: nothing is mutated and
// the cursor does not move.
func (c *Concord) Audit(ctx context.Context) (*Report, error) {
	s := c.newSession(OpAudit)
	if err := s.runAudit(ctx); err != nil {
		return nil, err
	}
	return s.finish(), nil
}

func (s *session) runAudit(ctx context.Context) error {
	c := s.c

	records, err := c.store.All(ctx)
	if err != nil {
		return err
	}
	// The fresh sync token from the listing is discarded; an audit must
	// not move the cursor.
	sources, _, err := c.source.ListAll(ctx)
	if err != nil {
		return err
	}
	targets, err := c.target.ListAll(ctx)
	if err != nil {
		return err
	}

	anomalies := audit.Run(records, sources, targets, c.sourceFilter, c.targetFilter)
	s.report.Audited = true
	s.report.Anomalies = append(s.report.Anomalies, anomalies...)

	if len(anomalies) > 0 {
		c.logger.Warn().Int("anomalies", len(anomalies)).Int("records", len(records)).Msg("Audit found inconsistencies")
	} else {
		c.logger.Info().Int("records", len(records)).Msg("Audit clean")
	}
	return nil
}
