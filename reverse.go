package concord

import (
	"context"

	"github.com/concordsync/concord/pkg/audit"
	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/mapping"
)

// Reverse copies target-only contacts back to the source directory: every
// eligible target contact with no mapping gets a source counterpart and a
// record. Mapped contacts are never touched; the source stays
// authoritative for them.
func (c *Concord) Reverse(ctx context.Context) (*Report, error) {
	s := c.newSession(OpReverse)
	if err := s.runReverse(ctx); err != nil {
		return nil, err
	}
	return s.finish(), nil
}

func (s *session) runReverse(ctx context.Context) error {
	c := s.c

	targets, err := c.target.ListAll(ctx)
	if err != nil {
		return err
	}
	c.logger.Info().Int("target_contacts", len(targets)).Msg("Scanning target directory for unmapped contacts")

	for _, tgt := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tgt.Deleted || !tgt.Named() {
			continue
		}
		if !c.targetFilter.Eligible(tgt.Labels) {
			s.report.Skipped++
			c.logger.Debug().Str("target_id", tgt.ID).Str("name", tgt.Name()).Msg("Excluded by label filter")
			continue
		}
		rec, err := c.store.LookupByTarget(ctx, tgt.ID)
		if err != nil {
			return err
		}
		if rec != nil {
			continue
		}
		if err := s.createOnSource(ctx, tgt); err != nil {
			return err
		}
	}
	return nil
}

// createOnSource creates a source counterpart for a target-only contact.
// The shallow listing carries no phones or emails, so the full contact is
// fetched first.
func (s *session) createOnSource(ctx context.Context, tgt contact.Contact) error {
	c := s.c
	log := c.logger.With().Str("target_id", tgt.ID).Str("name", tgt.Name()).Logger()

	if c.dryRun {
		s.report.SourceCreated++
		log.Info().Msg("Would create source contact")
		return nil
	}

	full, err := c.target.Get(ctx, tgt.ID)
	if err != nil {
		if abortive(err) {
			return err
		}
		s.fail(audit.SideTarget, tgt.ID, tgt.Name(), err)
		return nil
	}

	created, err := c.source.Create(ctx, c.mapper.ToSourceForm(*full))
	if err != nil {
		if abortive(err) {
			return err
		}
		s.fail(audit.SideTarget, tgt.ID, tgt.Name(), err)
		return nil
	}

	rec := mapping.Record{
		SourceID:      created.ID,
		TargetID:      tgt.ID,
		SourceName:    created.Name(),
		TargetName:    tgt.Name(),
		SourceUpdated: created.Updated,
		TargetUpdated: tgt.Updated,
	}
	if err := c.store.Upsert(ctx, rec); err != nil {
		return err
	}

	s.report.SourceCreated++
	log.Info().Str("source_id", created.ID).Msg("Created source contact")
	return nil
}
