package concord

import (
	"github.com/rs/zerolog"

	"github.com/concordsync/concord/pkg/mapper"
	"github.com/concordsync/concord/pkg/mapping"
)

// Option is a function that configures a Concord engine.
type Option func(*Concord) error

// WithStore sets the persistent mapping store. Required.
func WithStore(store mapping.Store) Option {
	return func(c *Concord) error {
		c.store = store
		return nil
	}
}

// WithSource sets the source directory client. Required.
func WithSource(source Source) Option {
	return func(c *Concord) error {
		c.source = source
		return nil
	}
}

// WithTarget sets the target directory client. Required.
func WithTarget(target Target) Option {
	return func(c *Concord) error {
		c.target = target
		return nil
	}
}

// WithMapper sets the field mapper. Defaults to a mapper that syncs every
// field with street reversal and reminders off.
func WithMapper(m *mapper.Mapper) Option {
	return func(c *Concord) error {
		c.mapper = m
		return nil
	}
}

// WithSourceFilter restricts which source contacts take part in a session.
// Filtered-out contacts are treated as absent: never matched, created, or
// updated, though existing mappings are retained.
func WithSourceFilter(filter mapper.LabelFilter) Option {
	return func(c *Concord) error {
		c.sourceFilter = filter
		return nil
	}
}

// WithTargetFilter restricts which target contacts are eligible for
// adoption and reverse sync.
func WithTargetFilter(filter mapper.LabelFilter) Option {
	return func(c *Concord) error {
		c.targetFilter = filter
		return nil
	}
}

// WithDeletion configures whether source deletions propagate to the
// target. Off, a deletion is logged and skipped and the mapping retained.
func WithDeletion(enabled bool) Option {
	return func(c *Concord) error {
		c.deletion = enabled
		return nil
	}
}

// WithDryRun configures dry-run mode: every pass computes and logs its
// changes but issues no remote mutations, no store writes, and no cursor
// advance.
func WithDryRun(enabled bool) Option {
	return func(c *Concord) error {
		c.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger the engine reports progress on.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Concord) error {
		c.logger = logger
		return nil
	}
}

// RunOptions adjust a single engine pass.
type RunOptions struct {
	Force   bool // Bootstrap only: proceed over a non-empty store
	Reverse bool // Run a reverse pass after the primary pass
	Audit   bool // Run a consistency audit as the final stage
}

// RunOption is a function that configures run options.
type RunOption func(*RunOptions)

// RunWithForce lets Bootstrap proceed over a non-empty mapping store.
func RunWithForce(enabled bool) RunOption {
	return func(opts *RunOptions) {
		opts.Force = enabled
	}
}

// RunWithReverse appends a reverse pass after the primary pass.
func RunWithReverse(enabled bool) RunOption {
	return func(opts *RunOptions) {
		opts.Reverse = enabled
	}
}

// RunWithAudit appends a consistency audit as the final stage.
func RunWithAudit(enabled bool) RunOption {
	return func(opts *RunOptions) {
		opts.Audit = enabled
	}
}

func newRunOptions(opts ...RunOption) *RunOptions {
	options := &RunOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
