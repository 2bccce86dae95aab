package mapper

import (
	"fmt"
	"strings"

	"github.com/concordsync/concord/pkg/contact"
)

// TargetForm is the combined identity payload for creating or updating a
// contact on the target directory: names, nickname, gender, birthday, and
// deceased details in one call. The target client translates it to wire
// fields and resolves the gender category to a directory-specific id.
type TargetForm struct {
	FirstName    string         // Given name; falls back to the display name when the source has none
	LastName     string         // Family name
	MiddleName   string         // Middle name; settable on upload even though the target never returns it
	Nickname     string         // Informal name
	Gender       contact.Gender // Category; unknown preserves whatever the target has
	Birthday     contact.Date   // Zero unless both day and month are known
	Deceased     contact.Deceased
	AddReminders bool // Ask the target to create birthday and deceased-date reminders
}

// SourceForm is the payload for creating a person on the source directory.
// Street reversal has already been applied to Addresses when enabled.
type SourceForm struct {
	FirstName  string
	MiddleName string
	LastName   string
	Birthday   contact.Date // Zero when unknown or age-based; the source cannot express age-based dates
	Career     contact.Career
	Addresses  []contact.Address
	Phones     []string
	Emails     []string
	Labels     []string // Group names; the source client resolves or creates group ids
}

// CareerUpdate is the occupation payload for the target's dedicated work
// endpoint. Company carries the rendered `Company; Department` form when a
// department exists, since the target has no department field of its own.
type CareerUpdate struct {
	JobTitle string
	Company  string
}

// AddressChangeset replaces the target's address set wholesale: any
// difference removes every existing address and recreates the incoming
// ones. There is no per-address update.
type AddressChangeset struct {
	Added   []contact.Address // Addresses to create
	Removed []contact.Address // Addresses to delete, by native id
}

// HasChanges returns true if the address changeset contains any changes.
func (a *AddressChangeset) HasChanges() bool {
	return a != nil && (len(a.Added) > 0 || len(a.Removed) > 0)
}

// FieldChangeset adjusts typed contact fields by content set difference.
// A changed field is expressed as a delete plus a create, never a partial
// update.
type FieldChangeset struct {
	Added   []contact.Field // Fields to create
	Removed []contact.Field // Fields to delete, by native id
}

// HasChanges returns true if the field changeset contains any changes.
func (f *FieldChangeset) HasChanges() bool {
	return f != nil && (len(f.Added) > 0 || len(f.Removed) > 0)
}

// NoteChangeset manages the single synced note on the target. Bodies in
// Added and Updated already carry the sync marker.
type NoteChangeset struct {
	Added   []contact.Note // Notes to create
	Updated []contact.Note // Existing notes to rewrite, by native id
	Removed []contact.Note // Notes to delete, by native id
}

// HasChanges returns true if the note changeset contains any changes.
func (n *NoteChangeset) HasChanges() bool {
	return n != nil && (len(n.Added) > 0 || len(n.Updated) > 0 || len(n.Removed) > 0)
}

// TagChangeset adjusts the target's tag membership. Remove lists existing
// tag names to unset (the target client resolves their ids); Set, when
// non-empty, is the full desired name list posted in one call.
type TagChangeset struct {
	Set    []string // Complete desired tag names; empty means membership already matches
	Remove []string // Names of tags to unset
}

// HasChanges returns true if the tag changeset contains any changes.
func (t *TagChangeset) HasChanges() bool {
	return t != nil && (len(t.Set) > 0 || len(t.Remove) > 0)
}

// Patch enumerates the target-side mutations that bring an existing contact
// in line with its source counterpart. Nil members are no-ops; the engine
// applies the rest serially in declaration order.
type Patch struct {
	Profile   *TargetForm       // Combined identity update; nil when unchanged
	Career    *CareerUpdate     // Occupation update; nil when unchanged
	Addresses *AddressChangeset // Wholesale address replacement; nil when the sets match
	Fields    *FieldChangeset   // Phone and email adjustments; nil when the sets match
	Notes     *NoteChangeset    // Synced-note adjustments; nil when up to date
	Tags      *TagChangeset     // Tag membership adjustments; nil when equal
}

// IsZero reports whether the patch contains no mutations at all.
// Diffing a contact against itself must always produce a zero patch.
func (p Patch) IsZero() bool {
	return p.Profile == nil &&
		p.Career == nil &&
		!p.Addresses.HasChanges() &&
		!p.Fields.HasChanges() &&
		!p.Notes.HasChanges() &&
		!p.Tags.HasChanges()
}

// String returns a human-readable summary of the patch.
func (p Patch) String() string {
	if p.IsZero() {
		return "no changes"
	}

	var parts []string
	if p.Profile != nil {
		parts = append(parts, "profile")
	}
	if p.Career != nil {
		parts = append(parts, "career")
	}
	if p.Addresses.HasChanges() {
		parts = append(parts, fmt.Sprintf("addresses(-%d +%d)", len(p.Addresses.Removed), len(p.Addresses.Added)))
	}
	if p.Fields.HasChanges() {
		parts = append(parts, fmt.Sprintf("fields(-%d +%d)", len(p.Fields.Removed), len(p.Fields.Added)))
	}
	if p.Notes.HasChanges() {
		parts = append(parts, fmt.Sprintf("notes(-%d ~%d +%d)", len(p.Notes.Removed), len(p.Notes.Updated), len(p.Notes.Added)))
	}
	if p.Tags.HasChanges() {
		parts = append(parts, fmt.Sprintf("tags(-%d =%d)", len(p.Tags.Remove), len(p.Tags.Set)))
	}
	return strings.Join(parts, ", ")
}
