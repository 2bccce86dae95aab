package mapper

import (
	"sort"
	"strings"

	"github.com/concordsync/concord/pkg/errors"
)

// Field names a syncable group of contact data that can be toggled in a
// FieldSet.
type Field string

// Syncable field groups.
const (
	FieldName     Field = "name"     // Given, family, middle, and display names
	FieldNickname Field = "nickname" // Informal name
	FieldBirthday Field = "birthday" // Birthday date
	FieldGender   Field = "gender"   // Gender category
	FieldDeceased Field = "deceased" // Deceased status and date
	FieldCareer   Field = "career"   // Job title, company, department
	FieldAddress  Field = "address"  // Postal addresses
	FieldPhone    Field = "phone"    // Phone numbers
	FieldEmail    Field = "email"    // Email addresses
	FieldNotes    Field = "notes"    // Synced note
	FieldLabels   Field = "labels"   // Tags and group memberships
)

// String returns the string representation of a Field.
func (f Field) String() string {
	return string(f)
}

// knownFields holds every valid field name for parse validation.
var knownFields = map[Field]struct{}{
	FieldName:     {},
	FieldNickname: {},
	FieldBirthday: {},
	FieldGender:   {},
	FieldDeceased: {},
	FieldCareer:   {},
	FieldAddress:  {},
	FieldPhone:    {},
	FieldEmail:    {},
	FieldNotes:    {},
	FieldLabels:   {},
}

// FieldSet is an allow-list of syncable field groups. The zero value admits
// every field, so an unconfigured set syncs everything.
type FieldSet struct {
	enabled map[Field]struct{}
}

// AllFields returns a FieldSet admitting every field group.
func AllFields() FieldSet {
	return FieldSet{}
}

// NewFieldSet builds a FieldSet admitting exactly the given fields.
// Unknown field names are rejected with a ValidationError.
func NewFieldSet(fields ...Field) (FieldSet, error) {
	if len(fields) == 0 {
		return FieldSet{}, nil
	}
	enabled := make(map[Field]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := knownFields[f]; !ok {
			return FieldSet{}, &errors.ValidationError{
				Field:   "fields",
				Value:   f.String(),
				Message: "unknown sync field",
			}
		}
		enabled[f] = struct{}{}
	}
	return FieldSet{enabled: enabled}, nil
}

// ParseFieldSet parses a comma-separated field list from configuration.
// The keyword "all" (or an empty string) admits every field. Entries are
// trimmed and lowercased before validation.
func ParseFieldSet(s string) (FieldSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FieldSet{}, nil
	}

	var fields []Field
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if part == "all" {
			return FieldSet{}, nil
		}
		fields = append(fields, Field(part))
	}
	return NewFieldSet(fields...)
}

// Has reports whether the field group is admitted by this set.
func (fs FieldSet) Has(f Field) bool {
	if fs.enabled == nil {
		return true
	}
	_, ok := fs.enabled[f]
	return ok
}

// All reports whether the set admits every field group.
func (fs FieldSet) All() bool {
	return fs.enabled == nil
}

// String returns the admitted fields as a sorted comma list, or "all".
func (fs FieldSet) String() string {
	if fs.enabled == nil {
		return "all"
	}
	names := make([]string, 0, len(fs.enabled))
	for f := range fs.enabled {
		names = append(names, f.String())
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
