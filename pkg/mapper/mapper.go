// Package mapper translates contacts between directory conventions and
// computes the patches that reconcile them.
//
// All translations are pure: a Mapper carries only session configuration
// (field allow-list, street reversal, reminder preference) and never touches
// the network or the mapping store. The engine pulls canonical contacts from
// both directories, asks the Mapper what differs, and applies the resulting
// Patch through the directory clients.
package mapper

import (
	"strings"

	"github.com/concordsync/concord/pkg/contact"
)

// mapperOptions contains the configuration for a Mapper.
type mapperOptions struct {
	fields         FieldSet
	streetReversal bool
	reminders      bool
}

// apply applies the given options to the mapper options.
func (m *mapperOptions) apply(opts ...Option) *mapperOptions {
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// mapperDefaults returns the default options for a Mapper.
func mapperDefaults() *mapperOptions {
	return &mapperOptions{
		fields:    AllFields(),
		reminders: true,
	}
}

// Option configures a Mapper.
type Option func(*mapperOptions)

// WithFields restricts the mapper to the given field allow-list.
func WithFields(fields FieldSet) Option {
	return func(m *mapperOptions) {
		m.fields = fields
	}
}

// WithStreetReversal enables house-number relocation when translating
// street lines between directories.
func WithStreetReversal(enabled bool) Option {
	return func(m *mapperOptions) {
		m.streetReversal = enabled
	}
}

// WithReminders controls whether target uploads request birthday and
// deceased-date reminders.
func WithReminders(enabled bool) Option {
	return func(m *mapperOptions) {
		m.reminders = enabled
	}
}

// Mapper performs the field-level translation between the two directories.
type Mapper struct {
	fields         FieldSet
	streetReversal bool
	reminders      bool
}

// New returns a Mapper configured by the given options.
func New(opts ...Option) *Mapper {
	o := mapperDefaults().apply(opts...)
	return &Mapper{
		fields:         o.fields,
		streetReversal: o.streetReversal,
		reminders:      o.reminders,
	}
}

// Fields returns the mapper's field allow-list.
func (m *Mapper) Fields() FieldSet {
	return m.fields
}

// StreetReversal reports whether house-number relocation is enabled.
func (m *Mapper) StreetReversal() bool {
	return m.streetReversal
}

// RenderCompany renders a career's company for the target directory, which
// has no department field: `Company; Department` when a department exists.
func RenderCompany(c contact.Career) string {
	company := strings.TrimSpace(c.Company)
	department := strings.TrimSpace(c.Department)
	if department != "" {
		return company + "; " + department
	}
	return company
}

// ToTargetForm projects a source contact into the target's combined
// identity payload, honoring the field allow-list. Used when creating a
// target contact; updates go through Diff so target-owned data survives.
func (m *Mapper) ToTargetForm(c contact.Contact) TargetForm {
	return m.mergeProfile(contact.Contact{}, c)
}

// ToSourceForm projects a target contact into the source's person payload,
// honoring the field allow-list. Street reversal is applied to addresses
// when enabled. Notes never flow to the source: the synced-note marker has
// a direction, and echoing notes back would duplicate them.
func (m *Mapper) ToSourceForm(c contact.Contact) SourceForm {
	var form SourceForm

	if m.fields.Has(FieldName) {
		form.FirstName = strings.TrimSpace(c.FirstName)
		form.MiddleName = strings.TrimSpace(c.MiddleName)
		form.LastName = strings.TrimSpace(c.LastName)
	}
	if form.FirstName == "" && form.LastName == "" {
		form.FirstName = strings.TrimSpace(c.Name())
	}

	// The source cannot express age-based dates.
	if m.fields.Has(FieldBirthday) && !c.Birthday.AgeBased && c.Birthday.HasDayAndMonth() {
		form.Birthday = contact.Date{
			Year:  c.Birthday.Year,
			Month: c.Birthday.Month,
			Day:   c.Birthday.Day,
		}
	}

	if m.fields.Has(FieldCareer) {
		form.Career = contact.Career{
			JobTitle: strings.TrimSpace(c.Career.JobTitle),
			Company:  strings.TrimSpace(c.Career.Company),
		}
	}

	if m.fields.Has(FieldAddress) {
		for _, a := range c.Addresses {
			a.ID = ""
			if m.streetReversal {
				a.Street = ReverseStreet(a.Street)
			}
			form.Addresses = append(form.Addresses, a)
		}
	}

	if m.fields.Has(FieldPhone) {
		for _, f := range c.FieldsOfKind(contact.FieldPhone) {
			form.Phones = append(form.Phones, strings.TrimSpace(f.Value))
		}
	}
	if m.fields.Has(FieldEmail) {
		for _, f := range c.FieldsOfKind(contact.FieldEmail) {
			form.Emails = append(form.Emails, strings.TrimSpace(f.Value))
		}
	}

	if m.fields.Has(FieldLabels) {
		form.Labels = contact.NormalizeLabels(c.Labels)
	}

	return form
}

// Diff computes the patch that brings an existing target contact in line
// with its incoming source counterpart. Diffing any contact against itself
// yields a zero patch.
func (m *Mapper) Diff(existing, incoming contact.Contact) Patch {
	var p Patch

	incomingForm := m.mergeProfile(existing, incoming)
	existingForm := m.existingProfile(existing)
	if incomingForm != existingForm {
		p.Profile = &incomingForm
	}

	if m.fields.Has(FieldCareer) {
		p.Career = m.diffCareer(existing, incoming)
	}
	if m.fields.Has(FieldAddress) {
		p.Addresses = m.diffAddresses(existing.Addresses, incoming.Addresses)
	}
	p.Fields = m.diffFields(existing.Fields, incoming.Fields)
	if m.fields.Has(FieldNotes) {
		p.Notes = m.diffNotes(existing.Notes, incoming.Notes)
	}
	if m.fields.Has(FieldLabels) {
		p.Tags = m.diffTags(existing.Labels, incoming.Labels)
	}

	return p
}

// mergeProfile builds the target identity form for an incoming contact,
// taking the existing contact's values for every field group outside the
// allow-list. Deceased details always come from the existing side: the
// source has no notion of them, and a combined update that omitted them
// would clear them.
func (m *Mapper) mergeProfile(existing, incoming contact.Contact) TargetForm {
	form := TargetForm{
		AddReminders: m.reminders,
		Deceased:     normalizeDeceased(existing.Deceased),
	}

	namesrc := existing
	if m.fields.Has(FieldName) {
		namesrc = incoming
	}
	form.FirstName = strings.TrimSpace(namesrc.FirstName)
	form.LastName = strings.TrimSpace(namesrc.LastName)
	form.MiddleName = strings.TrimSpace(namesrc.MiddleName)
	// The target requires a first name.
	if form.FirstName == "" {
		form.FirstName = strings.TrimSpace(namesrc.Name())
		form.LastName = ""
	}

	if m.fields.Has(FieldNickname) {
		form.Nickname = strings.TrimSpace(incoming.Nickname)
	} else {
		form.Nickname = strings.TrimSpace(existing.Nickname)
	}

	if m.fields.Has(FieldGender) && incoming.Gender.Known() {
		form.Gender = incoming.Gender
	} else {
		form.Gender = normalizeGender(existing.Gender)
	}

	if m.fields.Has(FieldBirthday) {
		form.Birthday = normalizeBirthday(incoming.Birthday)
	} else {
		form.Birthday = normalizeBirthday(existing.Birthday)
	}

	return form
}

// existingProfile projects the existing target contact into the same form
// shape, so profile equality is a plain struct comparison.
func (m *Mapper) existingProfile(existing contact.Contact) TargetForm {
	form := TargetForm{
		AddReminders: m.reminders,
		Deceased:     normalizeDeceased(existing.Deceased),
		FirstName:    strings.TrimSpace(existing.FirstName),
		LastName:     strings.TrimSpace(existing.LastName),
		MiddleName:   strings.TrimSpace(existing.MiddleName),
		Nickname:     strings.TrimSpace(existing.Nickname),
		Gender:       normalizeGender(existing.Gender),
		Birthday:     normalizeBirthday(existing.Birthday),
	}
	if form.FirstName == "" {
		form.FirstName = strings.TrimSpace(existing.Name())
		form.LastName = ""
	}
	return form
}

// normalizeBirthday reduces a date to what the target can store: only
// dates with both day and month count, and the age-based flag is dropped
// because uploads always carry explicit parts.
func normalizeBirthday(d contact.Date) contact.Date {
	if !d.HasDayAndMonth() {
		return contact.Date{}
	}
	return contact.Date{Year: d.Year, Month: d.Month, Day: d.Day}
}

// normalizeGender maps the zero value to the explicit unknown category so
// form comparison treats them alike.
func normalizeGender(g contact.Gender) contact.Gender {
	if !g.Known() {
		return contact.GenderUnknown
	}
	return g
}

// normalizeDeceased clears the date flag noise on living contacts.
func normalizeDeceased(d contact.Deceased) contact.Deceased {
	if !d.Dead {
		return contact.Deceased{}
	}
	return d
}

// diffCareer compares occupations in the target's rendered form, where the
// department folds into the company. One changed field updates both, since
// the target exposes a single work endpoint.
func (m *Mapper) diffCareer(existing, incoming contact.Contact) *CareerUpdate {
	in := CareerUpdate{
		JobTitle: strings.TrimSpace(incoming.Career.JobTitle),
		Company:  RenderCompany(incoming.Career),
	}
	ex := CareerUpdate{
		JobTitle: strings.TrimSpace(existing.Career.JobTitle),
		Company:  RenderCompany(existing.Career),
	}
	if in == ex {
		return nil
	}
	return &in
}

// diffAddresses applies the wholesale address policy: if every incoming
// address already exists on the target, nothing happens, extras included;
// any difference removes all existing addresses and recreates the incoming
// set.
func (m *Mapper) diffAddresses(existing, incoming []contact.Address) *AddressChangeset {
	inc := make([]contact.Address, 0, len(incoming))
	for _, a := range incoming {
		a.ID = ""
		if m.streetReversal {
			a.Street = ReverseStreet(a.Street)
		}
		inc = append(inc, a)
	}

	if len(inc) == 0 {
		if len(existing) == 0 {
			return nil
		}
		return &AddressChangeset{Removed: existing}
	}

	existingKeys := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		existingKeys[a.Key()] = struct{}{}
	}
	allPresent := true
	for _, a := range inc {
		if _, ok := existingKeys[a.Key()]; !ok {
			allPresent = false
			break
		}
	}
	if allPresent {
		return nil
	}
	return &AddressChangeset{Removed: existing, Added: inc}
}

// diffFields computes per-kind create and delete lists by content set
// difference. Labels play no role: two fields with the same kind and value
// are the same field.
func (m *Mapper) diffFields(existing, incoming []contact.Field) *FieldChangeset {
	var cs FieldChangeset
	for _, kind := range []contact.FieldKind{contact.FieldPhone, contact.FieldEmail} {
		if kind == contact.FieldPhone && !m.fields.Has(FieldPhone) {
			continue
		}
		if kind == contact.FieldEmail && !m.fields.Has(FieldEmail) {
			continue
		}

		incValues := make(map[string]struct{})
		for _, f := range incoming {
			if f.Kind == kind {
				incValues[strings.TrimSpace(f.Value)] = struct{}{}
			}
		}
		exValues := make(map[string]struct{})
		for _, f := range existing {
			if f.Kind == kind {
				exValues[f.Value] = struct{}{}
			}
		}

		for _, f := range existing {
			if f.Kind != kind {
				continue
			}
			if _, ok := incValues[f.Value]; !ok {
				cs.Removed = append(cs.Removed, f)
			}
		}
		seen := make(map[string]struct{})
		for _, f := range incoming {
			if f.Kind != kind {
				continue
			}
			value := strings.TrimSpace(f.Value)
			if value == "" {
				continue
			}
			if _, ok := exValues[value]; ok {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			cs.Added = append(cs.Added, contact.Field{Kind: kind, Value: value})
		}
	}

	if !cs.HasChanges() {
		return nil
	}
	return &cs
}

// diffNotes manages the single synced note. The first incoming note is the
// source of truth; existing notes are scanned once and the first one that
// either matches its converted body (a user-written duplicate, adopted by
// adding the marker) or already carries the marker wins.
func (m *Mapper) diffNotes(existing, incoming []contact.Note) *NoteChangeset {
	if len(incoming) == 0 || strings.TrimSpace(incoming[0].Body) == "" {
		for _, ex := range existing {
			if IsSyncedNote(ex.Body) {
				return &NoteChangeset{Removed: []contact.Note{ex}}
			}
		}
		return nil
	}

	marked := MarkNote(incoming[0].Body)
	plain := strings.TrimSuffix(marked, markerSeparator+NoteMarker)

	for _, ex := range existing {
		if ex.Body == plain {
			return &NoteChangeset{Updated: []contact.Note{{ID: ex.ID, Body: marked}}}
		}
		if IsSyncedNote(ex.Body) {
			if ex.Body != marked {
				return &NoteChangeset{Updated: []contact.Note{{ID: ex.ID, Body: marked}}}
			}
			return nil
		}
	}
	return &NoteChangeset{Added: []contact.Note{{Body: marked}}}
}

// diffTags compares tag-name sets. Existing tags missing from the incoming
// set are removed; when the kept set still differs from the incoming one,
// the full incoming list is posted in a single set call.
func (m *Mapper) diffTags(existing, incoming []string) *TagChangeset {
	inc := contact.NormalizeLabels(incoming)
	ex := contact.NormalizeLabels(existing)

	incSet := make(map[string]struct{}, len(inc))
	for _, l := range inc {
		incSet[l] = struct{}{}
	}

	var cs TagChangeset
	var kept []string
	for _, l := range ex {
		if _, ok := incSet[l]; ok {
			kept = append(kept, l)
		} else {
			cs.Remove = append(cs.Remove, l)
		}
	}

	if !equalStrings(inc, kept) && len(inc) > 0 {
		cs.Set = inc
	}

	if !cs.HasChanges() {
		return nil
	}
	return &cs
}

// equalStrings reports whether two string slices are element-wise equal.
// Both inputs arrive sorted, so this is a set comparison.
func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
