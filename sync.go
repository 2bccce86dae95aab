package concord

import (
	"context"
	"time"

	"github.com/concordsync/concord/pkg/audit"
	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapper"
	"github.com/concordsync/concord/pkg/mapping"
)

// alignOutcome classifies what alignPair did with a mapped pair.
type alignOutcome int

const (
	alignFailed    alignOutcome = iota // terminal error, recorded as an issue
	alignUnchanged                     // already in sync, record refreshed
	alignUpdated                       // patch applied
)

// processSource runs one source contact through the per-contact pipeline:
// tombstone, filter, create, timestamp skip, or diff and patch. Returned
// errors are session-fatal; per-contact failures are recorded internally.
func (s *session) processSource(ctx context.Context, src contact.Contact) error {
	c := s.c

	rec, err := c.store.LookupBySource(ctx, src.ID)
	if err != nil {
		return err
	}

	if src.Deleted {
		if rec == nil {
			s.report.Skipped++
			c.logger.Debug().Str("source_id", src.ID).Msg("Tombstone for an unmapped contact")
			return nil
		}
		return s.removePair(ctx, *rec, "source contact deleted")
	}

	if !c.sourceFilter.Eligible(src.Labels) {
		s.report.Skipped++
		c.logger.Debug().Str("source_id", src.ID).Str("name", src.Name()).Msg("Excluded by label filter")
		return nil
	}

	if rec == nil {
		return s.createOnTarget(ctx, src)
	}

	if !src.Updated.IsZero() && src.Updated.Equal(rec.SourceUpdated) {
		s.report.Skipped++
		c.logger.Debug().Str("source_id", src.ID).Str("name", src.Name()).Msg("No changes since last sync")
		return nil
	}

	outcome, err := s.alignPair(ctx, src, *rec)
	if err != nil {
		return err
	}
	switch outcome {
	case alignUpdated:
		s.report.Updated++
	case alignUnchanged:
		s.report.Skipped++
		c.logger.Debug().Str("source_id", src.ID).Str("name", src.Name()).Msg("Already in sync")
	}
	return nil
}

// alignPair fetches the full target contact, diffs it against the source
// contact, applies the resulting patch, and refreshes the record so the
// timestamp skip works on the next pass. A patch interrupted midway is
// repaired later: the record keeps its old source timestamp, so the pair
// is diffed again.
func (s *session) alignPair(ctx context.Context, src contact.Contact, rec mapping.Record) (alignOutcome, error) {
	c := s.c

	existing, err := c.target.Get(ctx, rec.TargetID)
	if err != nil {
		if abortive(err) {
			return alignFailed, err
		}
		s.fail(audit.SideTarget, rec.TargetID, rec.TargetName, err)
		return alignFailed, nil
	}

	patch := c.mapper.Diff(*existing, src)
	if patch.IsZero() {
		if !c.dryRun {
			rec.SourceName = src.Name()
			rec.TargetName = existing.Name()
			rec.SourceUpdated = src.Updated
			if err := c.store.Upsert(ctx, rec); err != nil {
				return alignFailed, err
			}
		}
		return alignUnchanged, nil
	}

	log := c.logger.With().Str("source_id", src.ID).Str("target_id", rec.TargetID).Str("name", src.Name()).Logger()
	if c.dryRun {
		log.Info().Str("changes", patch.String()).Msg("Would update target contact")
		return alignUpdated, nil
	}

	if err := s.applyPatch(ctx, rec.TargetID, patch); err != nil {
		if abortive(err) {
			return alignFailed, err
		}
		s.fail(audit.SideTarget, rec.TargetID, existing.Name(), err)
		return alignFailed, nil
	}

	rec.SourceName = src.Name()
	rec.TargetName = existing.Name()
	if patch.Profile != nil {
		rec.TargetName = src.Name()
	}
	rec.SourceUpdated = src.Updated
	rec.TargetUpdated = time.Now().UTC()
	if err := c.store.Upsert(ctx, rec); err != nil {
		return alignFailed, err
	}

	log.Info().Str("changes", patch.String()).Msg("Updated target contact")
	return alignUpdated, nil
}

// applyPatch issues the patch's mutations serially in fixed order:
// profile, career, addresses, fields, notes, tags. Removals precede
// creations within each sub-resource.
func (s *session) applyPatch(ctx context.Context, targetID string, patch mapper.Patch) error {
	c := s.c

	if patch.Profile != nil {
		if _, err := c.target.Update(ctx, targetID, *patch.Profile); err != nil {
			return err
		}
	}
	if patch.Career != nil {
		if err := c.target.UpdateCareer(ctx, targetID, *patch.Career); err != nil {
			return err
		}
	}
	if patch.Addresses.HasChanges() {
		for _, addr := range patch.Addresses.Removed {
			if err := c.target.DeleteAddress(ctx, addr.ID); err != nil {
				return err
			}
		}
		for _, addr := range patch.Addresses.Added {
			if err := c.target.CreateAddress(ctx, targetID, addr); err != nil {
				return err
			}
		}
	}
	if patch.Fields.HasChanges() {
		for _, field := range patch.Fields.Removed {
			if err := c.target.DeleteField(ctx, field.ID); err != nil {
				return err
			}
		}
		for _, field := range patch.Fields.Added {
			if err := c.target.CreateField(ctx, targetID, field); err != nil {
				return err
			}
		}
	}
	if patch.Notes.HasChanges() {
		for _, note := range patch.Notes.Removed {
			if err := c.target.DeleteNote(ctx, note.ID); err != nil {
				return err
			}
		}
		for _, note := range patch.Notes.Updated {
			if err := c.target.UpdateNote(ctx, targetID, note); err != nil {
				return err
			}
		}
		for _, note := range patch.Notes.Added {
			if err := c.target.CreateNote(ctx, targetID, note); err != nil {
				return err
			}
		}
	}
	if patch.Tags.HasChanges() {
		if len(patch.Tags.Remove) > 0 {
			if err := c.target.RemoveTags(ctx, targetID, patch.Tags.Remove); err != nil {
				return err
			}
		}
		if len(patch.Tags.Set) > 0 {
			if err := c.target.SetTags(ctx, targetID, patch.Tags.Set); err != nil {
				return err
			}
		}
	}
	return nil
}

// createOnTarget creates a target counterpart for an unmapped source
// contact. The record is committed before sub-resources are seeded, so an
// interruption cannot cause a duplicate create on the next pass; the
// record's zero source timestamp makes that pass finish the seeding.
func (s *session) createOnTarget(ctx context.Context, src contact.Contact) error {
	c := s.c
	log := c.logger.With().Str("source_id", src.ID).Str("name", src.Name()).Logger()

	if c.dryRun {
		s.report.Created++
		log.Info().Msg("Would create target contact")
		return nil
	}

	created, err := c.target.Create(ctx, c.mapper.ToTargetForm(src))
	if err != nil {
		if abortive(err) {
			return err
		}
		s.fail(audit.SideSource, src.ID, src.Name(), err)
		return nil
	}

	rec := mapping.Record{
		SourceID:      src.ID,
		TargetID:      created.ID,
		SourceName:    src.Name(),
		TargetName:    created.Name(),
		TargetUpdated: created.Updated,
	}
	if err := c.store.Upsert(ctx, rec); err != nil {
		return err
	}

	// Seed career, addresses, fields, notes, and tags: the combined
	// create call cannot carry them.
	patch := c.mapper.Diff(*created, src)
	if !patch.IsZero() {
		if err := s.applyPatch(ctx, created.ID, patch); err != nil {
			if abortive(err) {
				return err
			}
			s.fail(audit.SideTarget, created.ID, created.Name(), err)
			return nil
		}
	}

	rec.SourceUpdated = src.Updated
	rec.TargetUpdated = time.Now().UTC()
	if err := c.store.Upsert(ctx, rec); err != nil {
		return err
	}

	s.report.Created++
	log.Info().Str("target_id", created.ID).Msg("Created target contact")
	return nil
}

// removePair propagates a source-side disappearance. With deletion off the
// target contact and the mapping both survive, and the skip is surfaced in
// the report so the operator sees the growing backlog.
func (s *session) removePair(ctx context.Context, rec mapping.Record, reason string) error {
	c := s.c
	log := c.logger.With().Str("source_id", rec.SourceID).Str("target_id", rec.TargetID).Str("name", rec.TargetName).Logger()

	if !c.deletion {
		s.skipIssue(audit.SideTarget, rec.TargetID, rec.TargetName, "deletion disabled; target contact and mapping retained ("+reason+")")
		log.Info().Str("reason", reason).Msg("Deletion disabled, keeping target contact")
		return nil
	}

	if c.dryRun {
		s.report.Deleted++
		log.Info().Str("reason", reason).Msg("Would delete target contact")
		return nil
	}

	if err := c.target.Delete(ctx, rec.TargetID); err != nil && !errors.IsNotFound(err) {
		if abortive(err) {
			return err
		}
		s.fail(audit.SideTarget, rec.TargetID, rec.TargetName, err)
		return nil
	}
	if err := c.store.RemoveBySource(ctx, rec.SourceID); err != nil {
		return err
	}

	s.report.Deleted++
	log.Info().Str("reason", reason).Msg("Deleted target contact")
	return nil
}
