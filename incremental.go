package concord

import (
	"context"

	"github.com/concordsync/concord/pkg/errors"
)

// Incremental reconciles the contacts changed since the stored cursor.
// This is the routine operation: cheap, idempotent, and safe to re-run.
// The cursor advances exactly once, after every pulled contact has been
// handled; a pass with failures keeps the old cursor so those contacts
// are pulled and retried next time.
func (c *Concord) Incremental(ctx context.Context, opts ...RunOption) (*Report, error) {
	options := newRunOptions(opts...)
	s := c.newSession(OpIncremental)

	// Step 1: load the stored cursor.
	cursor, err := c.store.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	if cursor == nil {
		return nil, errors.NewStateError("incremental", "no sync cursor stored; run bootstrap or a full sync first")
	}

	// Step 2: pull changes since the cursor.
	changed, next, err := c.source.Changes(ctx, cursor.Token)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Int("changed", len(changed)).Msg("Pulled source changes")

	// Step 3: reconcile each changed contact serially.
	for _, src := range changed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.processSource(ctx, src); err != nil {
			return nil, err
		}
	}

	// Step 4: advance the cursor.
	if err := s.commitCursor(ctx, next); err != nil {
		return nil, err
	}

	// Step 5: optional trailing passes.
	if err := s.runModifiers(ctx, options); err != nil {
		return nil, err
	}

	return s.finish(), nil
}
