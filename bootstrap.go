package concord

import (
	"context"
	"fmt"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapping"
)

// Bootstrap populates an empty mapping store from scratch. Existing target
// contacts whose name matches exactly one eligible source contact are
// adopted in place instead of duplicated; every other eligible source
// contact gets a fresh target counterpart. The listing's sync token is
// stored as the terminal step, so the next Incremental picks up from here.
func (c *Concord) Bootstrap(ctx context.Context, opts ...RunOption) (*Report, error) {
	options := newRunOptions(opts...)
	s := c.newSession(OpBootstrap)

	// Step 1: refuse to run over an existing mapping unless forced.
	count, err := c.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		if !options.Force {
			return nil, errors.NewStateError("bootstrap", fmt.Sprintf("store already holds %d mappings; re-run with force to continue", count))
		}
		c.logger.Warn().Int("mappings", count).Msg("Bootstrapping over a non-empty store")
	}

	// Step 2: pull both directories in full.
	sources, next, err := c.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := c.target.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Int("source_contacts", len(sources)).Int("target_contacts", len(targets)).Msg("Pulled both directories")

	// Step 3: index unmapped, eligible target contacts by normalized name.
	records, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}
	mappedSource := make(map[string]bool, len(records))
	mappedTarget := make(map[string]bool, len(records))
	for _, rec := range records {
		mappedSource[rec.SourceID] = true
		mappedTarget[rec.TargetID] = true
	}

	byName := make(map[string][]contact.Contact)
	for _, tgt := range targets {
		if tgt.Deleted || !tgt.Named() || mappedTarget[tgt.ID] {
			continue
		}
		if !c.targetFilter.Eligible(tgt.Labels) {
			continue
		}
		key := tgt.NormalizedName()
		byName[key] = append(byName[key], tgt)
	}

	// Step 4: adopt or create per eligible source contact.
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if src.Deleted || !src.Named() {
			s.report.Skipped++
			continue
		}
		if !c.sourceFilter.Eligible(src.Labels) {
			s.report.Skipped++
			c.logger.Debug().Str("source_id", src.ID).Str("name", src.Name()).Msg("Excluded by label filter")
			continue
		}
		if mappedSource[src.ID] {
			s.report.Skipped++
			c.logger.Debug().Str("source_id", src.ID).Str("name", src.Name()).Msg("Already mapped")
			continue
		}

		name := src.NormalizedName()
		candidates := byName[name]
		if len(candidates) == 1 {
			adopted, err := s.adopt(ctx, src, candidates[0])
			if err != nil {
				return nil, err
			}
			if adopted {
				delete(byName, name)
			}
			continue
		}
		if len(candidates) > 1 {
			c.logger.Info().Str("name", src.Name()).Int("matches", len(candidates)).Msg("Ambiguous name match, creating a new target contact")
		}
		if err := s.createOnTarget(ctx, src); err != nil {
			return nil, err
		}
	}

	// Step 5: store the cursor from the listing.
	if err := s.commitCursor(ctx, next); err != nil {
		return nil, err
	}

	// Step 6: optional trailing passes.
	if err := s.runModifiers(ctx, options); err != nil {
		return nil, err
	}

	return s.finish(), nil
}

// adopt links an unmapped source contact to the single target contact
// bearing the same normalized name, then brings the pair in line. Reports
// whether the link was made; per-contact alignment failures do not undo it.
func (s *session) adopt(ctx context.Context, src, tgt contact.Contact) (bool, error) {
	c := s.c
	log := c.logger.With().Str("source_id", src.ID).Str("target_id", tgt.ID).Str("name", src.Name()).Logger()

	rec := mapping.Record{
		SourceID:      src.ID,
		TargetID:      tgt.ID,
		SourceName:    src.Name(),
		TargetName:    tgt.Name(),
		TargetUpdated: tgt.Updated,
	}
	if !c.dryRun {
		if err := c.store.Upsert(ctx, rec); err != nil {
			return false, err
		}
	}
	s.report.Adopted++
	log.Info().Msg("Adopted existing target contact")

	outcome, err := s.alignPair(ctx, src, rec)
	if err != nil {
		return true, err
	}
	if outcome == alignUpdated {
		s.report.Updated++
	}
	return true, nil
}
