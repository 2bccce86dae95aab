// Package google implements the source directory client against the Google
// People API. It lists connections with sync tokens for change tracking,
// creates contacts from reverse-sync forms, and maintains the contact-group
// catalog that backs label resolution.
//
// Snapshots are returned raw: label filtering and street reversal happen in
// the engine and mapper, not here. The one exception is unnamed contacts,
// which no directory can adopt and which are skipped at conversion time
// (deleted tombstones are kept regardless, so removals still propagate).
package google

import (
	"context"
	stderrors "errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/concordsync/concord/internal/transport"
	"github.com/concordsync/concord/pkg/constants"
	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/logging"
	"github.com/concordsync/concord/pkg/mapper"
)

// DefaultBaseURL is the production People API endpoint.
const DefaultBaseURL = "https://people.googleapis.com/v1"

const directoryName = "google"

// personFields requested on every read. Only fields the converter
// understands are listed; anything else would be dead weight on the wire.
const personFields = "addresses,biographies,birthdays,emailAddresses,genders,memberships,metadata,names,nicknames,organizations,phoneNumbers"

// updatePersonFields is the replacement mask for updates. Biographies and
// genders are deliberately absent: an update built from a reverse-sync form
// carries neither, and masking them would erase what the contact already has.
const updatePersonFields = "addresses,birthdays,emailAddresses,memberships,names,organizations,phoneNumbers"

// Group names outside USER_CONTACT_GROUP that still behave like labels.
var systemGroups = map[string]bool{
	"myContacts": true,
	"starred":    true,
}

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

// Option configures the Google client.
type Option func(*clientOptions)

// WithBaseURL overrides the People API base URL. Used for tests and proxies.
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

// Client talks to the Google People API.
type Client struct {
	transport *transport.Client
	baseURL   string

	// Contact-group catalog, loaded once per client. groups maps label
	// name to group resource name; groupNames is the reverse.
	groups       map[string]string
	groupNames   map[string]string
	groupsLoaded bool
}

// New returns a client authenticating with the given OAuth bearer token.
func New(token string, opts ...Option) *Client {
	options := defaults().apply(opts...)
	t := options.transport
	if t == nil {
		t = transport.New(directoryName, token)
	}
	return &Client{
		transport:  t,
		baseURL:    strings.TrimRight(options.baseURL, "/"),
		groups:     make(map[string]string),
		groupNames: make(map[string]string),
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

// ListAll fetches every connection and returns the contacts together with a
// fresh sync token for subsequent incremental calls.
func (c *Client) ListAll(ctx context.Context) ([]contact.Contact, string, error) {
	return c.list(ctx, "")
}

// Changes fetches the contacts modified or deleted since the given sync
// token was issued, including tombstones, and returns the next token.
// An expired or rejected token surfaces as a state error so callers know
// to fall back to a full pass.
func (c *Client) Changes(ctx context.Context, token string) ([]contact.Contact, string, error) {
	if token == "" {
		return nil, "", errors.NewStateError("changes", "no sync token; run a full sync first")
	}
	contacts, next, err := c.list(ctx, token)
	if err != nil && isExpiredSyncToken(err) {
		return nil, "", errors.NewStateError("changes", "sync token expired or invalid; run a full sync to obtain a fresh one")
	}
	return contacts, next, err
}

func (c *Client) list(ctx context.Context, syncToken string) ([]contact.Contact, string, error) {
	if err := c.loadGroups(ctx); err != nil {
		return nil, "", err
	}
	var (
		contacts  []contact.Contact
		pageToken string
		nextSync  string
	)
	for {
		query := url.Values{}
		query.Set("personFields", personFields)
		query.Set("pageSize", strconv.Itoa(constants.SourcePageSize))
		query.Set("requestSyncToken", "true")
		if syncToken != "" {
			query.Set("syncToken", syncToken)
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var page connectionList
		if err := c.transport.Get(ctx, c.baseURL+"/people/me/connections?"+query.Encode(), &page); err != nil {
			return nil, "", err
		}
		for _, p := range page.Connections {
			converted := c.toContact(p)
			if !converted.Named() && !converted.Deleted {
				logging.Ctx(ctx).Warn().
					Str("directory", directoryName).
					Str("contact_id", converted.ID).
					Msg("Skipping unnamed contact")
				continue
			}
			contacts = append(contacts, converted)
		}
		if page.NextSyncToken != "" {
			nextSync = page.NextSyncToken
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return contacts, nextSync, nil
}

// Get fetches a single contact by resource name, e.g. "people/c123".
func (c *Client) Get(ctx context.Context, id string) (*contact.Contact, error) {
	if err := c.loadGroups(ctx); err != nil {
		return nil, err
	}
	var p person
	if err := c.transport.Get(ctx, c.resourceURL(id)+"?personFields="+url.QueryEscape(personFields), &p); err != nil {
		return nil, err
	}
	converted := c.toContact(p)
	return &converted, nil
}

// Create uploads a new contact built from a reverse-sync form. Labels are
// resolved to contact groups, creating missing groups on demand.
func (c *Client) Create(ctx context.Context, form mapper.SourceForm) (*contact.Contact, error) {
	groupIDs, err := c.ensureLabels(ctx, form.Labels)
	if err != nil {
		return nil, err
	}
	payload := personFromForm(form, groupIDs)
	var created person
	if err := c.transport.Post(ctx, c.baseURL+"/people:createContact?personFields="+url.QueryEscape(personFields), payload, &created); err != nil {
		return nil, err
	}
	converted := c.toContact(created)
	return &converted, nil
}

// Update replaces the masked fields of an existing contact with the form's
// values. The API requires the current etag, so the contact is fetched first.
func (c *Client) Update(ctx context.Context, id string, form mapper.SourceForm) (*contact.Contact, error) {
	groupIDs, err := c.ensureLabels(ctx, form.Labels)
	if err != nil {
		return nil, err
	}
	var current person
	if err := c.transport.Get(ctx, c.resourceURL(id)+"?personFields=metadata", &current); err != nil {
		return nil, err
	}
	payload := personFromForm(form, groupIDs)
	payload.ResourceName = id
	payload.ETag = current.ETag
	var updated person
	if err := c.transport.Patch(ctx, c.resourceURL(id)+":updateContact?updatePersonFields="+url.QueryEscape(updatePersonFields), payload, &updated); err != nil {
		return nil, err
	}
	converted := c.toContact(updated)
	return &converted, nil
}

// Delete removes a contact by resource name.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.transport.Delete(ctx, c.resourceURL(id)+":deleteContact")
}

// EnsureLabel returns the group resource name for a label, creating the
// contact group if no group with that name exists yet.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	if err := c.loadGroups(ctx); err != nil {
		return "", err
	}
	if id, ok := c.groups[name]; ok {
		return id, nil
	}
	payload := createGroupRequest{ContactGroup: contactGroup{Name: name}}
	var created contactGroup
	if err := c.transport.Post(ctx, c.baseURL+"/contactGroups", payload, &created); err != nil {
		return "", err
	}
	if created.ResourceName == "" {
		return "", errors.NewValidationError("contactGroup", name, "create returned no resource name")
	}
	c.groups[name] = created.ResourceName
	c.groupNames[created.ResourceName] = name
	logging.Ctx(ctx).Info().
		Str("directory", directoryName).
		Str("label", name).
		Str("group", created.ResourceName).
		Msg("Created contact group")
	return created.ResourceName, nil
}

func (c *Client) ensureLabels(ctx context.Context, names []string) ([]string, error) {
	if err := c.loadGroups(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := c.EnsureLabel(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadGroups fills the label catalog from the contactGroups endpoint.
// Only user groups and the two system groups that behave like labels are
// kept; other system groups (chatBuddies, blocked) never reach contacts.
func (c *Client) loadGroups(ctx context.Context) error {
	if c.groupsLoaded {
		return nil
	}
	var list groupList
	if err := c.transport.Get(ctx, c.baseURL+"/contactGroups", &list); err != nil {
		return err
	}
	for _, g := range list.ContactGroups {
		if g.GroupType != "USER_CONTACT_GROUP" && !systemGroups[g.Name] {
			continue
		}
		c.groups[g.Name] = g.ResourceName
		c.groupNames[g.ResourceName] = g.Name
	}
	c.groupsLoaded = true
	return nil
}

// labelName resolves a group resource name to its display name, falling
// back to the bare id when the group is not in the catalog.
func (c *Client) labelName(resourceName string) string {
	if name, ok := c.groupNames[resourceName]; ok {
		return name
	}
	if _, id, ok := strings.Cut(resourceName, "/"); ok {
		return id
	}
	return resourceName
}

func (c *Client) resourceURL(id string) string {
	return c.baseURL + "/" + id
}

// isExpiredSyncToken recognizes the People API's rejection of a stale or
// malformed sync token, which it reports as a 400 with a message naming
// the token.
func isExpiredSyncToken(err error) bool {
	var rejection *errors.RejectedError
	if !stderrors.As(err, &rejection) || rejection.StatusCode != 400 {
		return false
	}
	message := strings.ToUpper(rejection.Message)
	return strings.Contains(message, "SYNC TOKEN") || strings.Contains(message, "EXPIRED_SYNC_TOKEN")
}
