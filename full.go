package concord

import (
	"context"
)

// Full reconciles the entire source directory and, unlike Incremental,
// also notices silent disappearances: every mapping whose source contact
// was absent from the pull is removed per the deletion flag. Needs no
// cursor; stores a fresh one as the terminal step.
func (c *Concord) Full(ctx context.Context, opts ...RunOption) (*Report, error) {
	options := newRunOptions(opts...)
	s := c.newSession(OpFull)

	// Step 1: pull the entire source directory.
	sources, next, err := c.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Int("source_contacts", len(sources)).Msg("Pulled source directory")

	// Step 2: reconcile every contact serially.
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		seen[src.ID] = true
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.processSource(ctx, src); err != nil {
			return nil, err
		}
	}

	// Step 3: remove pairs whose source contact no longer exists.
	records, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if seen[rec.SourceID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.removePair(ctx, rec, "source contact no longer exists"); err != nil {
			return nil, err
		}
	}

	// Step 4: store the fresh cursor.
	if err := s.commitCursor(ctx, next); err != nil {
		return nil, err
	}

	// Step 5: optional trailing passes.
	if err := s.runModifiers(ctx, options); err != nil {
		return nil, err
	}

	return s.finish(), nil
}
