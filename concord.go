// Package concord reconciles contacts between a personal-contacts source
// directory and a CRM-style target directory. The source is authoritative:
// changes flow source to target, with a reverse pass that copies
// target-only contacts back. Pairs live in a persistent mapping store,
// incremental position in a single stored cursor.
//
// Construct an engine with New and the functional options, then run one of
// the five operations: Bootstrap, Incremental, Full, Reverse, or Audit.
// Every operation processes contacts strictly serially and returns a
// Report of what happened.
package concord

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/concordsync/concord/internal/directory/google"
	"github.com/concordsync/concord/internal/directory/monica"
	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/logging"
	"github.com/concordsync/concord/pkg/mapper"
	"github.com/concordsync/concord/pkg/mapping"
)

// Source is the authoritative personal-contacts directory. Contacts flow
// from here to the target; the engine only ever creates on it during a
// reverse pass.
type Source interface {
	// Name identifies the directory in logs and reports.
	Name() string

	// Calls returns the number of API requests issued so far.
	Calls() int64

	// ListAll returns every contact plus a fresh incremental token.
	ListAll(ctx context.Context) ([]contact.Contact, string, error)

	// Changes returns the contacts changed since token, deletion
	// tombstones included, plus the next token. An expired token
	// surfaces as a StateError.
	Changes(ctx context.Context, token string) ([]contact.Contact, string, error)

	// Create adds a person to the directory.
	Create(ctx context.Context, form mapper.SourceForm) (*contact.Contact, error)
}

// Target is the CRM-style directory the engine writes to. Identity fields
// travel in one combined form; every other sub-resource has its own
// create/delete lifecycle keyed by the owning contact id.
type Target interface {
	// Name identifies the directory in logs and reports.
	Name() string

	// Calls returns the number of API requests issued so far.
	Calls() int64

	// ListAll returns every contact in shallow form: no typed fields
	// and no notes. Get fills those in.
	ListAll(ctx context.Context) ([]contact.Contact, error)

	// Get returns one contact with fields and notes attached.
	Get(ctx context.Context, id string) (*contact.Contact, error)

	Create(ctx context.Context, form mapper.TargetForm) (*contact.Contact, error)
	Update(ctx context.Context, id string, form mapper.TargetForm) (*contact.Contact, error)
	Delete(ctx context.Context, id string) error

	// UpdateCareer replaces the contact's occupation via the dedicated
	// work endpoint.
	UpdateCareer(ctx context.Context, id string, update mapper.CareerUpdate) error

	CreateAddress(ctx context.Context, id string, addr contact.Address) error
	DeleteAddress(ctx context.Context, addressID string) error

	CreateField(ctx context.Context, id string, field contact.Field) error
	DeleteField(ctx context.Context, fieldID string) error

	CreateNote(ctx context.Context, id string, note contact.Note) error
	UpdateNote(ctx context.Context, id string, note contact.Note) error
	DeleteNote(ctx context.Context, noteID string) error

	// SetTags posts the complete desired tag name list; RemoveTags
	// unsets the named tags.
	SetTags(ctx context.Context, id string, names []string) error
	RemoveTags(ctx context.Context, id string, names []string) error
}

// The shipped directory clients satisfy the engine contracts.
var (
	_ Source = (*google.Client)(nil)
	_ Target = (*monica.Client)(nil)
)

// Concord is the reconciliation engine. Collaborators are fixed at
// construction; each operation runs a fresh session over them.
type Concord struct {
	store  mapping.Store
	source Source
	target Target
	mapper *mapper.Mapper

	sourceFilter mapper.LabelFilter
	targetFilter mapper.LabelFilter

	deletion bool // propagate source deletions to the target
	dryRun   bool // compute and log changes without applying them

	logger *zerolog.Logger
}

// New creates a reconciliation engine. A store, a source, and a target are
// required; the mapper defaults to one that syncs every field, the logger
// to the package default.
func New(opts ...Option) (*Concord, error) {
	c := &Concord{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		return nil, errors.NewConfigError("store", "a mapping store is required", nil)
	}
	if c.source == nil {
		return nil, errors.NewConfigError("source", "a source directory is required", nil)
	}
	if c.target == nil {
		return nil, errors.NewConfigError("target", "a target directory is required", nil)
	}

	if c.mapper == nil {
		c.mapper = mapper.New()
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}

	return c, nil
}
