package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapper"
)

// groupCatalog is the contactGroups payload most tests serve: two user
// groups, the myContacts system group, and one system group that must be
// ignored.
const groupCatalog = `{
	"contactGroups": [
		{"resourceName": "contactGroups/friends", "name": "Friends", "groupType": "USER_CONTACT_GROUP"},
		{"resourceName": "contactGroups/work", "name": "Work", "groupType": "USER_CONTACT_GROUP"},
		{"resourceName": "contactGroups/myContacts", "name": "myContacts", "groupType": "SYSTEM_CONTACT_GROUP"},
		{"resourceName": "contactGroups/blocked", "name": "blocked", "groupType": "SYSTEM_CONTACT_GROUP"}
	]
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-token", WithBaseURL(server.URL))
}

func serveGroups(mux *http.ServeMux) {
	mux.HandleFunc("/contactGroups", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(groupCatalog))
		}
	})
}

func TestListAllPaginatesAndResolvesLabels(t *testing.T) {
	mux := http.NewServeMux()
	serveGroups(mux)
	var queries []string
	mux.HandleFunc("/people/me/connections", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Query().Get("pageToken") == "" {
			w.Write([]byte(`{
				"connections": [{
					"resourceName": "people/c1",
					"names": [{"givenName": "Ada", "familyName": "Lovelace", "displayName": "Ada Lovelace"}],
					"memberships": [
						{"contactGroupMembership": {"contactGroupResourceName": "contactGroups/friends"}},
						{"contactGroupMembership": {"contactGroupResourceName": "contactGroups/myContacts"}}
					]
				}],
				"nextPageToken": "page-2"
			}`))
			return
		}
		w.Write([]byte(`{
			"connections": [{
				"resourceName": "people/c2",
				"names": [{"givenName": "Grace", "familyName": "Hopper"}]
			}],
			"nextSyncToken": "sync-42"
		}`))
	})
	client := newTestClient(t, mux)

	contacts, token, err := client.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("Expected 2 contacts, got %d", len(contacts))
	}
	if token != "sync-42" {
		t.Errorf("Expected sync token 'sync-42', got %q", token)
	}
	if contacts[0].ID != "people/c1" {
		t.Errorf("Expected first contact 'people/c1', got %q", contacts[0].ID)
	}
	wantLabels := []string{"Friends", "myContacts"}
	if len(contacts[0].Labels) != len(wantLabels) {
		t.Fatalf("Expected labels %v, got %v", wantLabels, contacts[0].Labels)
	}
	for i, label := range wantLabels {
		if contacts[0].Labels[i] != label {
			t.Errorf("Expected label %q at %d, got %q", label, i, contacts[0].Labels[i])
		}
	}

	if len(queries) != 2 {
		t.Fatalf("Expected 2 connection requests, got %d", len(queries))
	}
	q, err := url.ParseQuery(queries[0])
	if err != nil {
		t.Fatalf("Failed to parse query: %v", err)
	}
	if q.Get("requestSyncToken") != "true" {
		t.Error("Expected requestSyncToken=true on list request")
	}
	if q.Get("pageSize") != "1000" {
		t.Errorf("Expected pageSize 1000, got %q", q.Get("pageSize"))
	}
	if q.Get("personFields") != personFields {
		t.Errorf("Expected personFields %q, got %q", personFields, q.Get("personFields"))
	}

	// Group catalog + two pages.
	if calls := client.Calls(); calls != 3 {
		t.Errorf("Expected 3 API calls, got %d", calls)
	}
}

func TestListAllSkipsUnnamedContacts(t *testing.T) {
	mux := http.NewServeMux()
	serveGroups(mux)
	mux.HandleFunc("/people/me/connections", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"connections": [
				{"resourceName": "people/unnamed"},
				{"resourceName": "people/ghost", "metadata": {"deleted": true}},
				{"resourceName": "people/named", "names": [{"givenName": "Ada"}]}
			],
			"nextSyncToken": "sync-1"
		}`))
	})
	client := newTestClient(t, mux)

	contacts, _, err := client.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("Expected 2 contacts (tombstone kept, unnamed dropped), got %d", len(contacts))
	}
	if contacts[0].ID != "people/ghost" || !contacts[0].Deleted {
		t.Errorf("Expected deleted tombstone first, got %+v", contacts[0])
	}
	if contacts[1].ID != "people/named" {
		t.Errorf("Expected named contact kept, got %q", contacts[1].ID)
	}
}

func TestChanges(t *testing.T) {
	t.Run("passes sync token and returns tombstones", func(t *testing.T) {
		mux := http.NewServeMux()
		serveGroups(mux)
		var gotToken string
		mux.HandleFunc("/people/me/connections", func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.URL.Query().Get("syncToken")
			w.Write([]byte(`{
				"connections": [{"resourceName": "people/c9", "metadata": {"deleted": true}}],
				"nextSyncToken": "sync-43"
			}`))
		})
		client := newTestClient(t, mux)

		contacts, next, err := client.Changes(context.Background(), "sync-42")
		if err != nil {
			t.Fatalf("Changes failed: %v", err)
		}
		if gotToken != "sync-42" {
			t.Errorf("Expected syncToken 'sync-42' on request, got %q", gotToken)
		}
		if next != "sync-43" {
			t.Errorf("Expected next token 'sync-43', got %q", next)
		}
		if len(contacts) != 1 || !contacts[0].Deleted {
			t.Fatalf("Expected one tombstone, got %+v", contacts)
		}
	})

	t.Run("empty token is a state error", func(t *testing.T) {
		client := newTestClient(t, http.NewServeMux())
		if _, _, err := client.Changes(context.Background(), ""); !errors.IsState(err) {
			t.Errorf("Expected state error for empty token, got %v", err)
		}
	})

	t.Run("expired token is a state error", func(t *testing.T) {
		mux := http.NewServeMux()
		serveGroups(mux)
		mux.HandleFunc("/people/me/connections", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"code": 400, "message": "Sync token is expired. Clear local cache and retry call without the sync token.", "status": "INVALID_ARGUMENT"}}`))
		})
		client := newTestClient(t, mux)

		_, _, err := client.Changes(context.Background(), "stale")
		if !errors.IsState(err) {
			t.Errorf("Expected state error for expired token, got %v", err)
		}
	})

	t.Run("other rejections pass through", func(t *testing.T) {
		mux := http.NewServeMux()
		serveGroups(mux)
		mux.HandleFunc("/people/me/connections", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": {"code": 403, "message": "insufficient scopes"}}`))
		})
		client := newTestClient(t, mux)

		_, _, err := client.Changes(context.Background(), "sync-42")
		if errors.IsState(err) {
			t.Error("Expected rejection to pass through, got state error")
		}
		if !errors.IsRejected(err) {
			t.Errorf("Expected rejected error, got %v", err)
		}
	})
}

func TestToContact(t *testing.T) {
	client := New("test-token")
	client.groupsLoaded = true
	client.groupNames["contactGroups/friends"] = "Friends"

	p := person{
		ResourceName: "people/c7",
		Metadata: &personMetadata{
			Sources: []personSource{{UpdateTime: "2024-03-01T10:20:30.123456Z"}},
		},
		Names:     []personName{{GivenName: "Ada", FamilyName: "Lovelace", MiddleName: "King", DisplayName: "Ada King Lovelace"}},
		Nicknames: []personNickname{{Value: "Addie"}},
		Genders:   []personGender{{Value: "female"}},
		Birthdays: []personBirthday{{Date: &personDate{Year: 1815, Month: 12, Day: 10}}},
		Organizations: []personOrganization{{
			Name:       "Analytical Engines",
			Department: "Research",
			Title:      "Mathematician",
		}},
		Addresses: []personAddress{
			{
				FormattedType:   "Home",
				StreetAddress:   "12 St James\nSquare",
				ExtendedAddress: "Flat 3",
				City:            "London",
				PostalCode:      "SW1Y 4JH",
				CountryCode:     "GB",
			},
			{},
		},
		PhoneNumbers:   []personPhoneNumber{{Value: "+44 20 1234", Type: "mobile"}, {Value: "  "}},
		EmailAddresses: []personEmail{{Value: "ada@example.com", Type: "home"}},
		Biographies:    []personBiography{{Value: "First programmer."}},
		Memberships: []personMembership{
			{ContactGroupMembership: &groupMembership{ContactGroupResourceName: "contactGroups/friends"}},
			{ContactGroupMembership: &groupMembership{ContactGroupResourceName: "contactGroups/unknown123"}},
			{},
		},
	}

	got := client.toContact(p)

	if got.ID != "people/c7" {
		t.Errorf("Expected ID 'people/c7', got %q", got.ID)
	}
	wantUpdated := time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)
	if !got.Updated.Equal(wantUpdated) {
		t.Errorf("Expected updated %v, got %v", wantUpdated, got.Updated)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" || got.MiddleName != "King" {
		t.Errorf("Unexpected names: %q %q %q", got.FirstName, got.MiddleName, got.LastName)
	}
	if got.DisplayName != "Ada King Lovelace" {
		t.Errorf("Expected display name 'Ada King Lovelace', got %q", got.DisplayName)
	}
	if got.Nickname != "Addie" {
		t.Errorf("Expected nickname 'Addie', got %q", got.Nickname)
	}
	if got.Gender != contact.GenderFemale {
		t.Errorf("Expected gender female, got %q", got.Gender)
	}
	if got.Birthday != (contact.Date{Year: 1815, Month: 12, Day: 10}) {
		t.Errorf("Unexpected birthday: %+v", got.Birthday)
	}
	if got.Career.JobTitle != "Mathematician" || got.Career.Company != "Analytical Engines" || got.Career.Department != "Research" {
		t.Errorf("Unexpected career: %+v", got.Career)
	}

	if len(got.Addresses) != 1 {
		t.Fatalf("Expected 1 address (empty one dropped), got %d", len(got.Addresses))
	}
	addr := got.Addresses[0]
	if addr.Street != "12 St James Square" {
		t.Errorf("Expected newline folded into street, got %q", addr.Street)
	}
	if addr.City != "London Flat 3" {
		t.Errorf("Expected extended address folded into city, got %q", addr.City)
	}
	if addr.Label != "Home" {
		t.Errorf("Expected label 'Home', got %q", addr.Label)
	}

	if len(got.Fields) != 2 {
		t.Fatalf("Expected 2 fields (blank phone dropped), got %d", len(got.Fields))
	}
	if got.Fields[0].Kind != contact.FieldPhone || got.Fields[0].Value != "+44 20 1234" {
		t.Errorf("Unexpected phone field: %+v", got.Fields[0])
	}
	if got.Fields[1].Kind != contact.FieldEmail || got.Fields[1].Value != "ada@example.com" {
		t.Errorf("Unexpected email field: %+v", got.Fields[1])
	}

	if len(got.Notes) != 1 || got.Notes[0].Body != "First programmer." {
		t.Errorf("Expected biography as note, got %+v", got.Notes)
	}

	wantLabels := []string{"Friends", "unknown123"}
	if len(got.Labels) != len(wantLabels) {
		t.Fatalf("Expected labels %v, got %v", wantLabels, got.Labels)
	}
	for i, label := range wantLabels {
		if got.Labels[i] != label {
			t.Errorf("Expected label %q at %d, got %q", label, i, got.Labels[i])
		}
	}
}

func TestToContactDefaults(t *testing.T) {
	client := New("test-token")

	got := client.toContact(person{ResourceName: "people/c8"})
	if got.Gender != contact.GenderUnknown {
		t.Errorf("Expected unknown gender, got %q", got.Gender)
	}
	if !got.Updated.IsZero() {
		t.Errorf("Expected zero updated time, got %v", got.Updated)
	}
	if got.Named() {
		t.Error("Expected contact without names to be unnamed")
	}
}

func TestCreateBuildsUploadPayload(t *testing.T) {
	mux := http.NewServeMux()
	serveGroups(mux)
	var uploaded person
	mux.HandleFunc("/people:createContact", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&uploaded); err != nil {
			t.Fatalf("Failed to decode upload: %v", err)
		}
		w.Write([]byte(`{"resourceName": "people/new1", "names": [{"givenName": "Marie", "familyName": "Curie", "displayName": "Marie Curie"}]}`))
	})
	client := newTestClient(t, mux)

	form := mapper.SourceForm{
		FirstName: "Marie",
		LastName:  "Curie",
		Birthday:  contact.Date{Year: 1867, Month: 11, Day: 7},
		Career:    contact.Career{JobTitle: "Physicist", Company: "Sorbonne"},
		Addresses: []contact.Address{{Label: "Home", Street: "Rue Cuvier 36", City: "Paris", CountryCode: "FR"}},
		Phones:    []string{"+33 1 23 45"},
		Emails:    []string{"marie@example.com"},
		Labels:    []string{"Friends"},
	}
	created, err := client.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "people/new1" {
		t.Errorf("Expected created ID 'people/new1', got %q", created.ID)
	}

	if len(uploaded.Names) != 1 || uploaded.Names[0].GivenName != "Marie" || uploaded.Names[0].FamilyName != "Curie" {
		t.Errorf("Unexpected names payload: %+v", uploaded.Names)
	}
	if len(uploaded.Birthdays) != 1 || uploaded.Birthdays[0].Date == nil || uploaded.Birthdays[0].Date.Year != 1867 {
		t.Errorf("Unexpected birthday payload: %+v", uploaded.Birthdays)
	}
	if len(uploaded.Organizations) != 1 || uploaded.Organizations[0].Name != "Sorbonne" || uploaded.Organizations[0].Title != "Physicist" {
		t.Errorf("Unexpected organization payload: %+v", uploaded.Organizations)
	}
	if len(uploaded.Addresses) != 1 || uploaded.Addresses[0].StreetAddress != "Rue Cuvier 36" {
		t.Errorf("Unexpected address payload: %+v", uploaded.Addresses)
	}
	if len(uploaded.PhoneNumbers) != 1 || uploaded.PhoneNumbers[0].Type != "other" {
		t.Errorf("Expected phone with type 'other', got %+v", uploaded.PhoneNumbers)
	}
	if len(uploaded.EmailAddresses) != 1 || uploaded.EmailAddresses[0].Type != "other" {
		t.Errorf("Expected email with type 'other', got %+v", uploaded.EmailAddresses)
	}
	if len(uploaded.Memberships) != 1 ||
		uploaded.Memberships[0].ContactGroupMembership == nil ||
		uploaded.Memberships[0].ContactGroupMembership.ContactGroupResourceName != "contactGroups/friends" {
		t.Errorf("Expected membership in contactGroups/friends, got %+v", uploaded.Memberships)
	}
}

func TestCreateResolvesMissingLabel(t *testing.T) {
	mux := http.NewServeMux()
	var groupPosts int
	mux.HandleFunc("/contactGroups", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(groupCatalog))
			return
		}
		groupPosts++
		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode group request: %v", err)
		}
		if req.ContactGroup.Name != "Chess Club" {
			t.Errorf("Expected group name 'Chess Club', got %q", req.ContactGroup.Name)
		}
		w.Write([]byte(`{"resourceName": "contactGroups/chess", "name": "Chess Club"}`))
	})
	var uploaded person
	mux.HandleFunc("/people:createContact", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&uploaded); err != nil {
			t.Fatalf("Failed to decode upload: %v", err)
		}
		w.Write([]byte(`{"resourceName": "people/new2", "names": [{"givenName": "Bobby"}]}`))
	})
	client := newTestClient(t, mux)

	form := mapper.SourceForm{FirstName: "Bobby", Labels: []string{"Chess Club"}}
	if _, err := client.Create(context.Background(), form); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if groupPosts != 1 {
		t.Errorf("Expected 1 group creation, got %d", groupPosts)
	}
	if len(uploaded.Memberships) != 1 ||
		uploaded.Memberships[0].ContactGroupMembership.ContactGroupResourceName != "contactGroups/chess" {
		t.Errorf("Expected membership in created group, got %+v", uploaded.Memberships)
	}

	// The new group is cached; creating another contact with the same
	// label must not post again.
	if _, err := client.EnsureLabel(context.Background(), "Chess Club"); err != nil {
		t.Fatalf("EnsureLabel failed: %v", err)
	}
	if groupPosts != 1 {
		t.Errorf("Expected cached group to skip creation, got %d posts", groupPosts)
	}
}

func TestUpdateFetchesETagThenPatches(t *testing.T) {
	mux := http.NewServeMux()
	serveGroups(mux)
	var sequence []string
	var patched person
	var mask string
	mux.HandleFunc("/people/c5", func(w http.ResponseWriter, r *http.Request) {
		sequence = append(sequence, r.Method)
		w.Write([]byte(`{"resourceName": "people/c5", "etag": "etag-7"}`))
	})
	mux.HandleFunc("/people/c5:updateContact", func(w http.ResponseWriter, r *http.Request) {
		sequence = append(sequence, r.Method)
		mask = r.URL.Query().Get("updatePersonFields")
		if err := json.NewDecoder(r.Body).Decode(&patched); err != nil {
			t.Fatalf("Failed to decode patch: %v", err)
		}
		w.Write([]byte(`{"resourceName": "people/c5", "names": [{"givenName": "Nikola", "displayName": "Nikola Tesla"}]}`))
	})
	client := newTestClient(t, mux)

	updated, err := client.Update(context.Background(), "people/c5", mapper.SourceForm{FirstName: "Nikola", LastName: "Tesla"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.FirstName != "Nikola" {
		t.Errorf("Expected updated first name 'Nikola', got %q", updated.FirstName)
	}
	if len(sequence) != 2 || sequence[0] != http.MethodGet || sequence[1] != http.MethodPatch {
		t.Fatalf("Expected GET then PATCH, got %v", sequence)
	}
	if patched.ETag != "etag-7" {
		t.Errorf("Expected current etag on patch, got %q", patched.ETag)
	}
	if patched.ResourceName != "people/c5" {
		t.Errorf("Expected resource name on patch, got %q", patched.ResourceName)
	}
	if mask != updatePersonFields {
		t.Errorf("Expected update mask %q, got %q", updatePersonFields, mask)
	}
}

func TestDelete(t *testing.T) {
	mux := http.NewServeMux()
	var method, path string
	mux.HandleFunc("/people/c3:deleteContact", func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.Write([]byte(`{}`))
	})
	client := newTestClient(t, mux)

	if err := client.Delete(context.Background(), "people/c3"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("Expected DELETE, got %s", method)
	}
	if path != "/people/c3:deleteContact" {
		t.Errorf("Unexpected path %q", path)
	}
}

func TestGroupCatalogLoadsOnce(t *testing.T) {
	mux := http.NewServeMux()
	var groupGets int
	mux.HandleFunc("/contactGroups", func(w http.ResponseWriter, r *http.Request) {
		groupGets++
		w.Write([]byte(groupCatalog))
	})
	mux.HandleFunc("/people/me/connections", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nextSyncToken": "sync-1"}`))
	})
	client := newTestClient(t, mux)

	for i := 0; i < 3; i++ {
		if _, _, err := client.ListAll(context.Background()); err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
	}
	if groupGets != 1 {
		t.Errorf("Expected group catalog loaded once, got %d loads", groupGets)
	}
}
