// Package contact defines the canonical, directory-agnostic contact model.
// Both directories translate their wire formats into this shape, and the
// reconciliation engine compares and patches contacts exclusively through it.
//
// A Contact owns its sub-resources (addresses, fields, notes, labels); they
// have no lifecycle of their own. Identity fields carry whichever native ID
// the producing directory assigned, so the same struct describes a person on
// either side of a sync pass.
package contact

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Gender categorizes a contact's gender.
type Gender string

// Gender categories understood by both directories.
const (
	GenderMale    Gender = "male"    // Male
	GenderFemale  Gender = "female"  // Female
	GenderOther   Gender = "other"   // Any stated gender outside male/female
	GenderUnknown Gender = "unknown" // Not stated or not mapped
)

// String returns the string representation of a Gender.
func (g Gender) String() string {
	return string(g)
}

// Known reports whether the gender carries information worth syncing.
func (g Gender) Known() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// ParseGender normalizes a free-form gender string into a category.
// Unrecognized values map to GenderUnknown rather than erroring, since
// directories disagree on vocabulary.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	case "other", "o", "nonbinary", "non-binary":
		return GenderOther
	default:
		return GenderUnknown
	}
}

// FieldKind identifies the type of a typed contact field.
type FieldKind string

// Field kinds carried across directories.
const (
	FieldPhone FieldKind = "phone" // Phone number
	FieldEmail FieldKind = "email" // Email address
)

// String returns the string representation of a FieldKind.
func (k FieldKind) String() string {
	return string(k)
}

// Date is a calendar date as directories represent birthdays: any component
// may be absent. The zero value means "no date known".
type Date struct {
	Year  int `json:"year,omitempty" yaml:"year,omitempty"`   // Calendar year; 0 for year-less birthdays
	Month int `json:"month,omitempty" yaml:"month,omitempty"` // 1-12; 0 when unknown
	Day   int `json:"day,omitempty" yaml:"day,omitempty"`     // 1-31; 0 when unknown

	// AgeBased marks a date reconstructed from an approximate age. Only
	// Year carries information then; Month and Day are zero.
	AgeBased bool `json:"age_based,omitempty" yaml:"age_based,omitempty"`
}

// IsZero reports whether no date component is known.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// HasDayAndMonth reports whether the date pins down a day in the calendar,
// which is what a birthday reminder needs.
func (d Date) HasDayAndMonth() bool {
	return d.Month != 0 && d.Day != 0
}

// Equal reports whether two dates describe the same calendar information.
func (d Date) Equal(other Date) bool {
	return d == other
}

// Deceased records whether a contact has died and, when known, the date.
type Deceased struct {
	Dead bool `json:"dead,omitempty" yaml:"dead,omitempty"` // True when the contact is recorded as deceased
	Date Date `json:"date,omitempty" yaml:"date,omitempty"` // Date of death; zero when unknown
}

// Career describes a contact's occupation.
type Career struct {
	JobTitle   string `json:"job_title,omitempty" yaml:"job_title,omitempty"`   // Role or position
	Company    string `json:"company,omitempty" yaml:"company,omitempty"`       // Employer name
	Department string `json:"department,omitempty" yaml:"department,omitempty"` // Organizational unit within the employer
}

// IsZero reports whether no career information is present.
func (c Career) IsZero() bool {
	return c.JobTitle == "" && c.Company == "" && c.Department == ""
}

// Address is a postal address attached to a contact.
type Address struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`                     // Native address id on the owning directory, when known
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`               // Address name, e.g. "home" or "work"
	Street      string `json:"street,omitempty" yaml:"street,omitempty"`             // Street line, locale-ordered
	City        string `json:"city,omitempty" yaml:"city,omitempty"`                 // City or locality
	Province    string `json:"province,omitempty" yaml:"province,omitempty"`         // State, region, or province
	PostalCode  string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`   // Postal or ZIP code
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"` // ISO 3166-1 alpha-2 country code
}

// Key returns a canonical content key for set-difference comparison.
// Two addresses with the same key are considered the same address; the
// native ID is deliberately excluded.
func (a Address) Key() string {
	return strings.Join([]string{a.Label, a.Street, a.City, a.Province, a.PostalCode, a.CountryCode}, "\x1f")
}

// Field is a typed contact field such as a phone number or email address.
type Field struct {
	Kind  FieldKind `json:"kind" yaml:"kind"`                         // phone or email
	Value string    `json:"value" yaml:"value"`                       // The number or address itself
	Label string    `json:"label,omitempty" yaml:"label,omitempty"`   // Directory label, e.g. "mobile"
	ID    string    `json:"id,omitempty" yaml:"id,omitempty"`         // Native field id on the owning directory, when known
}

// Key returns a canonical content key for set-difference comparison.
// The native ID is deliberately excluded: fields match by content.
func (f Field) Key() string {
	return strings.Join([]string{string(f.Kind), f.Value}, "\x1f")
}

// Note is a free-text note attached to a contact.
type Note struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`             // Native note id on the owning directory, when known
	Body     string `json:"body" yaml:"body"`                             // Note text
	Favorite bool   `json:"favorite,omitempty" yaml:"favorite,omitempty"` // Pinned/starred on the owning directory
}

// Contact is the canonical representation of a person in either directory.
type Contact struct {
	// Identity
	ID      string    `json:"id" yaml:"id"`                             // Native id assigned by the producing directory
	Deleted bool      `json:"deleted,omitempty" yaml:"deleted,omitempty"` // Tombstone: the directory reports this contact as removed
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"` // Last remote modification stamp, UTC

	// Names
	FirstName   string `json:"first_name,omitempty" yaml:"first_name,omitempty"`     // Given name
	LastName    string `json:"last_name,omitempty" yaml:"last_name,omitempty"`       // Family name
	MiddleName  string `json:"middle_name,omitempty" yaml:"middle_name,omitempty"`   // Middle name(s)
	Nickname    string `json:"nickname,omitempty" yaml:"nickname,omitempty"`         // Informal name
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"` // Directory-rendered full name

	// Person details
	Gender   Gender   `json:"gender,omitempty" yaml:"gender,omitempty"`     // Gender category
	Birthday Date     `json:"birthday,omitempty" yaml:"birthday,omitempty"` // Birthday; zero when unknown
	Deceased Deceased `json:"deceased,omitempty" yaml:"deceased,omitempty"` // Deceased status
	Career   Career   `json:"career,omitempty" yaml:"career,omitempty"`     // Occupation

	// Sub-resources, owned by this contact
	Addresses []Address `json:"addresses,omitempty" yaml:"addresses,omitempty"` // Postal addresses
	Fields    []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`       // Phones and emails
	Notes     []Note    `json:"notes,omitempty" yaml:"notes,omitempty"`         // Free-text notes
	Labels    []string  `json:"labels,omitempty" yaml:"labels,omitempty"`       // Tag/label names, sorted and deduplicated
}

// Name returns the best display label for the contact: the directory-rendered
// display name when present, otherwise the joined given and family names,
// otherwise the nickname.
func (c Contact) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if full := strings.TrimSpace(c.FirstName + " " + c.LastName); full != "" {
		return full
	}
	return c.Nickname
}

// Named reports whether the contact has any usable name. Unnamed contacts
// cannot be adopted or created on the other side and are skipped.
func (c Contact) Named() bool {
	return c.Name() != ""
}

// NormalizedName returns the contact name case-folded, NFC-composed and
// whitespace-collapsed, the form used to match contacts across directories
// during adoption. Folding rather than lowercasing keeps names equal when
// the two directories disagree on case conventions beyond ASCII.
func (c Contact) NormalizedName() string {
	folded := cases.Fold().String(norm.NFC.String(c.Name()))
	return strings.Join(strings.Fields(folded), " ")
}

// FieldsOfKind returns the contact's fields of one kind, in input order.
func (c Contact) FieldsOfKind(kind FieldKind) []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// NormalizeLabels returns the labels sorted and deduplicated, with empty
// entries dropped. The input slice is not modified.
func NormalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
