// Package monica implements the target directory client against the Monica
// CRM API. Contacts are listed shallow and fetched deep (profile plus
// contact fields and notes), and every sub-resource the reconciler patches
// has its own endpoint: work info, addresses, contact fields, notes, tags.
//
// The API speaks numeric ids and resolves genders, field types, and tags
// through per-account catalogs. The client loads each catalog lazily and
// caches it for the session.
package monica

import (
	"context"
	"strconv"
	"strings"

	"github.com/concordsync/concord/internal/transport"
	"github.com/concordsync/concord/pkg/constants"
	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapper"
)

// DefaultBaseURL is the hosted Monica API endpoint. Self-hosted instances
// override it with their own /api root.
const DefaultBaseURL = "https://app.monicahq.com/api"

const directoryName = "monica"

type clientOptions struct {
	baseURL   string
	transport *transport.Client
}

func defaults() *clientOptions {
	return &clientOptions{
		baseURL: DefaultBaseURL,
	}
}

func (o *clientOptions) apply(opts ...Option) *clientOptions {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the Monica client.
type Option func(*clientOptions)

// WithBaseURL overrides the API base URL, e.g. for a self-hosted instance
// or a test server.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTransport replaces the HTTP transport, bypassing the default
// bearer-token client. The transport's call counter feeds Calls.
func WithTransport(t *transport.Client) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// Client talks to the Monica API.
type Client struct {
	transport *transport.Client
	baseURL   string

	// Per-account catalogs, loaded lazily and cached for the session.
	genders          map[contact.Gender]int64
	gendersLoaded    bool
	fieldTypes       map[contact.FieldKind]int64
	fieldTypesLoaded bool
	tags             map[string]int64
	tagsLoaded       bool
}

// New returns a client authenticating with the given API bearer token.
func New(token string, opts ...Option) *Client {
	options := defaults().apply(opts...)
	t := options.transport
	if t == nil {
		t = transport.New(directoryName, token)
	}
	return &Client{
		transport:  t,
		baseURL:    strings.TrimRight(options.baseURL, "/"),
		genders:    make(map[contact.Gender]int64),
		fieldTypes: make(map[contact.FieldKind]int64),
		tags:       make(map[string]int64),
	}
}

// Name returns the directory name used in logs and reports.
func (c *Client) Name() string {
	return directoryName
}

// Calls returns the number of API requests issued so far, retries included.
func (c *Client) Calls() int64 {
	return c.transport.Calls()
}

// ListAll fetches every contact, shallow: no contact fields and no notes.
// Use Get for the full picture of a single contact.
func (c *Client) ListAll(ctx context.Context) ([]contact.Contact, error) {
	var contacts []contact.Contact
	for page := 1; ; page++ {
		var list contactList
		u := c.baseURL + "/contacts?limit=" + strconv.Itoa(constants.TargetPageSize) + "&page=" + strconv.Itoa(page)
		if err := c.transport.Get(ctx, u, &list); err != nil {
			return nil, err
		}
		for _, mc := range list.Data {
			contacts = append(contacts, toContact(mc))
		}
		if page >= list.Meta.LastPage {
			break
		}
	}
	return contacts, nil
}

// Get fetches a single contact deep: profile, contact fields, and notes.
func (c *Client) Get(ctx context.Context, id string) (*contact.Contact, error) {
	var envelope contactEnvelope
	if err := c.transport.Get(ctx, c.baseURL+"/contacts/"+id, &envelope); err != nil {
		return nil, err
	}
	converted := toContact(envelope.Data)

	var fields contactFieldList
	if err := c.transport.Get(ctx, c.baseURL+"/contacts/"+id+"/contactfields", &fields); err != nil {
		return nil, err
	}
	for _, f := range fields.Data {
		kind, ok := fieldKind(f.ContactFieldType.Type)
		if !ok {
			// Other field types (social handles and the like) are not
			// synced and must stay invisible to the differ.
			continue
		}
		converted.Fields = append(converted.Fields, contact.Field{
			ID:    strconv.FormatInt(f.ID, 10),
			Kind:  kind,
			Value: f.Content,
		})
	}

	var notes noteList
	if err := c.transport.Get(ctx, c.baseURL+"/contacts/"+id+"/notes", &notes); err != nil {
		return nil, err
	}
	for _, n := range notes.Data {
		converted.Notes = append(converted.Notes, contact.Note{
			ID:       strconv.FormatInt(n.ID, 10),
			Body:     n.Body,
			Favorite: n.IsFavorited,
		})
	}

	return &converted, nil
}

// Create uploads a new contact.
func (c *Client) Create(ctx context.Context, form mapper.TargetForm) (*contact.Contact, error) {
	genderID, err := c.genderID(ctx, form.Gender)
	if err != nil {
		return nil, err
	}
	var envelope contactEnvelope
	if err := c.transport.Post(ctx, c.baseURL+"/contacts", uploadFromForm(form, genderID), &envelope); err != nil {
		return nil, err
	}
	converted := toContact(envelope.Data)
	return &converted, nil
}

// Update replaces a contact's profile: names, gender, birthday, deceased
// info. Sub-resources are patched through their own endpoints.
func (c *Client) Update(ctx context.Context, id string, form mapper.TargetForm) (*contact.Contact, error) {
	genderID, err := c.genderID(ctx, form.Gender)
	if err != nil {
		return nil, err
	}
	var envelope contactEnvelope
	if err := c.transport.Put(ctx, c.baseURL+"/contacts/"+id, uploadFromForm(form, genderID), &envelope); err != nil {
		return nil, err
	}
	converted := toContact(envelope.Data)
	return &converted, nil
}

// Delete removes a contact and everything attached to it.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.transport.Delete(ctx, c.baseURL+"/contacts/"+id)
}

// UpdateCareer sets the contact's work information in a single call.
func (c *Client) UpdateCareer(ctx context.Context, id string, update mapper.CareerUpdate) error {
	payload := careerUpload{
		Job:     optString(update.JobTitle),
		Company: optString(update.Company),
	}
	return c.transport.Put(ctx, c.baseURL+"/contacts/"+id+"/work", payload, nil)
}

// CreateAddress attaches an address to a contact.
func (c *Client) CreateAddress(ctx context.Context, id string, addr contact.Address) error {
	contactID, err := c.contactID(id)
	if err != nil {
		return err
	}
	payload := addressUpload{
		Name:       optString(addr.Label),
		Street:     optString(addr.Street),
		City:       optString(addr.City),
		Province:   optString(addr.Province),
		PostalCode: optString(addr.PostalCode),
		Country:    optString(addr.CountryCode),
		ContactID:  contactID,
	}
	return c.transport.Post(ctx, c.baseURL+"/addresses", payload, nil)
}

// DeleteAddress removes an address by its own id.
func (c *Client) DeleteAddress(ctx context.Context, addressID string) error {
	return c.transport.Delete(ctx, c.baseURL+"/addresses/"+addressID)
}

// CreateField attaches a phone number or email address to a contact.
func (c *Client) CreateField(ctx context.Context, id string, field contact.Field) error {
	contactID, err := c.contactID(id)
	if err != nil {
		return err
	}
	typeID, err := c.fieldTypeID(ctx, field.Kind)
	if err != nil {
		return err
	}
	payload := fieldUpload{
		ContactFieldTypeID: typeID,
		Data:               strings.TrimSpace(field.Value),
		ContactID:          contactID,
	}
	return c.transport.Post(ctx, c.baseURL+"/contactfields", payload, nil)
}

// DeleteField removes a contact field by its own id.
func (c *Client) DeleteField(ctx context.Context, fieldID string) error {
	return c.transport.Delete(ctx, c.baseURL+"/contactfields/"+fieldID)
}

// CreateNote attaches a note to a contact.
func (c *Client) CreateNote(ctx context.Context, id string, note contact.Note) error {
	contactID, err := c.contactID(id)
	if err != nil {
		return err
	}
	payload := noteUpload{
		Body:        note.Body,
		ContactID:   contactID,
		IsFavorited: note.Favorite,
	}
	return c.transport.Post(ctx, c.baseURL+"/notes", payload, nil)
}

// UpdateNote replaces the body of an existing note. The note's ID names
// the note; the contact id rides along in the payload as the API demands.
func (c *Client) UpdateNote(ctx context.Context, id string, note contact.Note) error {
	if note.ID == "" {
		return errors.NewValidationError("note_id", "", "update requires a note id")
	}
	contactID, err := c.contactID(id)
	if err != nil {
		return err
	}
	payload := noteUpload{
		Body:        note.Body,
		ContactID:   contactID,
		IsFavorited: note.Favorite,
	}
	return c.transport.Put(ctx, c.baseURL+"/notes/"+note.ID, payload, nil)
}

// DeleteNote removes a note by its own id.
func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	return c.transport.Delete(ctx, c.baseURL+"/notes/"+noteID)
}

// SetTags posts the complete desired tag-name list for a contact. Missing
// tags are created by the server.
func (c *Client) SetTags(ctx context.Context, id string, names []string) error {
	payload := tagNamesUpload{Tags: names}
	return c.transport.Post(ctx, c.baseURL+"/contacts/"+id+"/setTags", payload, nil)
}

// RemoveTags unsets tags from a contact by name. Names resolve to ids
// through the account tag catalog; names the account no longer knows are
// skipped, there is nothing left to unset then.
func (c *Client) RemoveTags(ctx context.Context, id string, names []string) error {
	ids, err := c.resolveTagIDs(ctx, names)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	payload := tagIDsUpload{Tags: ids}
	return c.transport.Post(ctx, c.baseURL+"/contacts/"+id+"/unsetTag", payload, nil)
}

// genderID resolves a gender category to the account's gender id, or nil
// when the category is unknown or the account has no matching gender.
// A nil id leaves the contact's stored gender untouched.
func (c *Client) genderID(ctx context.Context, gender contact.Gender) (*int64, error) {
	if !gender.Known() {
		return nil, nil
	}
	if !c.gendersLoaded {
		var list genderList
		if err := c.transport.Get(ctx, c.baseURL+"/genders", &list); err != nil {
			return nil, err
		}
		for _, g := range list.Data {
			parsed := contact.ParseGender(g.Type)
			if !parsed.Known() {
				continue
			}
			c.genders[parsed] = g.ID
		}
		c.gendersLoaded = true
	}
	id, ok := c.genders[gender]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// fieldTypeID resolves a field kind to the account's contact-field-type id.
// The default catalog names the types "phone" and "email", matching the
// canonical kinds; a missing type is an account misconfiguration.
func (c *Client) fieldTypeID(ctx context.Context, kind contact.FieldKind) (int64, error) {
	if !c.fieldTypesLoaded {
		var list fieldTypeList
		if err := c.transport.Get(ctx, c.baseURL+"/contactfieldtypes", &list); err != nil {
			return 0, err
		}
		for _, ft := range list.Data {
			k, ok := fieldKind(ft.Type)
			if !ok {
				continue
			}
			c.fieldTypes[k] = ft.ID
		}
		c.fieldTypesLoaded = true
	}
	id, ok := c.fieldTypes[kind]
	if !ok {
		return 0, errors.NewValidationError("contact_field_type", kind.String(), "no matching field type on the account")
	}
	return id, nil
}

// resolveTagIDs maps tag names to ids through the account tag catalog.
// The catalog is reloaded once when a name is missing, since tags created
// earlier in the session would not be in the first load.
func (c *Client) resolveTagIDs(ctx context.Context, names []string) ([]int64, error) {
	if err := c.loadTags(ctx, false); err != nil {
		return nil, err
	}
	missing := false
	for _, name := range names {
		if _, ok := c.tags[name]; !ok {
			missing = true
			break
		}
	}
	if missing {
		if err := c.loadTags(ctx, true); err != nil {
			return nil, err
		}
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if id, ok := c.tags[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Client) loadTags(ctx context.Context, force bool) error {
	if c.tagsLoaded && !force {
		return nil
	}
	tags := make(map[string]int64)
	for page := 1; ; page++ {
		var list tagList
		u := c.baseURL + "/tags?limit=" + strconv.Itoa(constants.TargetPageSize) + "&page=" + strconv.Itoa(page)
		if err := c.transport.Get(ctx, u, &list); err != nil {
			return err
		}
		for _, t := range list.Data {
			tags[t.Name] = t.ID
		}
		if page >= list.Meta.LastPage {
			break
		}
	}
	c.tags = tags
	c.tagsLoaded = true
	return nil
}

// contactID parses the numeric id the payload endpoints require.
func (c *Client) contactID(id string) (int64, error) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("contact_id", id, "not a numeric id")
	}
	return parsed, nil
}
