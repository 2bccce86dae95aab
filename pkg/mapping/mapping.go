// Package mapping defines the persistent 1:1 link table between the two
// directories and the store contract the engine relies on. The SQLite
// implementation lives in internal/store; this package stays free of
// persistence details so pure consumers like the auditor can use Records
// without a database.
package mapping

import (
	"context"
	"fmt"
	"time"
)

// Record binds one source contact to one target contact. Both ids are
// unique across the table: a contact on either side belongs to at most one
// pair. Names are cached display labels for diagnostics only and carry no
// sync semantics.
type Record struct {
	SourceID      string    `json:"source_id" yaml:"source_id"`                             // Native id on the source directory
	TargetID      string    `json:"target_id" yaml:"target_id"`                             // Native id on the target directory
	SourceName    string    `json:"source_name,omitempty" yaml:"source_name,omitempty"`     // Cached source display name
	TargetName    string    `json:"target_name,omitempty" yaml:"target_name,omitempty"`     // Cached target display name
	SourceUpdated time.Time `json:"source_updated" yaml:"source_updated"` // Last observed source modification, UTC
	TargetUpdated time.Time `json:"target_updated" yaml:"target_updated"` // Last observed target modification, UTC
}

// String returns the pair in log-friendly form.
func (r Record) String() string {
	return fmt.Sprintf("%s <-> %s", r.SourceID, r.TargetID)
}

// Cursor is the stored incremental position: an opaque token handed out by
// the source directory, overwritten only as the terminal step of a
// successful pass. UpdatedAt records when that happened.
type Cursor struct {
	Token     string    `json:"token" yaml:"token"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Reader provides read access to the link table.
type Reader interface {
	// Lookups return a nil record and nil error when the id is unmapped;
	// absence is a normal answer, not a failure.
	LookupBySource(ctx context.Context, sourceID string) (*Record, error)
	LookupByTarget(ctx context.Context, targetID string) (*Record, error)

	// All returns a snapshot of every record ordered by source id.
	// Re-calling yields a fresh snapshot.
	All(ctx context.Context) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// Writer provides mutations on the link table. Every call commits durably
// before returning, so a crash between contacts loses nothing.
type Writer interface {
	// Upsert inserts or refreshes a record. Binding a source or target id
	// that already belongs to a different partner fails with a
	// ConstraintError instead of silently rebinding.
	Upsert(ctx context.Context, record Record) error

	// Removes are idempotent; removing an absent id is a no-op.
	RemoveBySource(ctx context.Context, sourceID string) error
	RemoveByTarget(ctx context.Context, targetID string) error
}

// CursorStore persists the single incremental cursor row.
type CursorStore interface {
	// Cursor returns nil when no cursor has been stored yet.
	Cursor(ctx context.Context) (*Cursor, error)

	// SetCursor replaces the cursor atomically.
	SetCursor(ctx context.Context, cursor Cursor) error
}

// Store is the complete persistence contract the engine depends on.
type Store interface {
	Reader
	Writer
	CursorStore

	// Close releases the underlying database handle.
	Close() error
}
