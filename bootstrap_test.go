package concord

import (
	"context"
	"testing"
	"time"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/errors"
	"github.com/concordsync/concord/pkg/mapper"
	"github.com/concordsync/concord/pkg/mapping"
)

func TestBootstrapCreatesAndSeeds(t *testing.T) {
	c, store, source, target := newTestEngine(t,
		WithSourceFilter(mapper.LabelFilter{Include: []string{"friends"}}),
	)

	source.nextToken = "sync-1"
	source.contacts = []contact.Contact{
		{
			ID:        "people/ada",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Labels:    []string{"friends"},
			Career:    contact.Career{JobTitle: "Mathematician", Company: "Analytical Engines"},
			Fields:    []contact.Field{{Kind: contact.FieldPhone, Value: "+4912345"}},
			Notes:     []contact.Note{{Body: "Loves mathematics"}},
			Addresses: []contact.Address{{Label: "Home", Street: "Auenweg 13", City: "London"}},
			Updated:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	report, err := c.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}

	if report.Created != 1 {
		t.Errorf("Expected 1 created, got %d", report.Created)
	}
	if report.Skipped != 0 {
		t.Errorf("Expected 0 skipped, got %d", report.Skipped)
	}
	if report.Failed != 0 {
		t.Errorf("Expected 0 failed, got %+v", report.Issues)
	}

	rec, err := store.LookupBySource(context.Background(), "people/ada")
	if err != nil || rec == nil {
		t.Fatalf("Expected a record for people/ada, got %v (err %v)", rec, err)
	}
	if rec.TargetID != "t1" {
		t.Errorf("Expected target id t1, got %q", rec.TargetID)
	}
	if !rec.SourceUpdated.Equal(source.contacts[0].Updated) {
		t.Errorf("Expected source timestamp recorded, got %v", rec.SourceUpdated)
	}

	// The combined create carries identity; everything else is seeded.
	if len(target.createdForms) != 1 {
		t.Fatalf("Expected 1 create, got %d", len(target.createdForms))
	}
	if len(target.careerUpdates) != 1 || target.careerUpdates[0].JobTitle != "Mathematician" {
		t.Errorf("Expected a career seed, got %+v", target.careerUpdates)
	}
	if len(target.addedFields) != 1 || target.addedFields[0].Value != "+4912345" {
		t.Errorf("Expected a phone seed, got %+v", target.addedFields)
	}
	if len(target.addedAddresses) != 1 || target.addedAddresses[0].Street != "Auenweg 13" {
		t.Errorf("Expected an address seed, got %+v", target.addedAddresses)
	}
	if len(target.addedNotes) != 1 || target.addedNotes[0].Body != mapper.MarkNote("Loves mathematics") {
		t.Errorf("Expected a marked note seed, got %+v", target.addedNotes)
	}
	if len(target.tagSets) != 1 {
		t.Errorf("Expected one tag set call, got %+v", target.tagSets)
	}

	if store.cursor == nil || store.cursor.Token != "sync-1" {
		t.Errorf("Expected cursor sync-1 stored, got %+v", store.cursor)
	}
}

func TestBootstrapSkipsIneligible(t *testing.T) {
	c, store, source, _ := newTestEngine(t,
		WithSourceFilter(mapper.LabelFilter{Include: []string{"friends"}}),
	)
	source.contacts = []contact.Contact{
		{ID: "people/ada", FirstName: "Ada", Labels: []string{"friends"}},
		{ID: "people/work", FirstName: "Boss", Labels: []string{"work"}},
		{ID: "people/unnamed"},
	}

	report, err := c.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if report.Created != 1 {
		t.Errorf("Expected 1 created, got %d", report.Created)
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", report.Skipped)
	}
	if count, _ := store.Count(context.Background()); count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}
}

func TestBootstrapAdoption(t *testing.T) {
	t.Run("unique name match links in place", func(t *testing.T) {
		c, store, source, target := newTestEngine(t)
		source.contacts = []contact.Contact{
			{ID: "people/ada", FirstName: "Ada", LastName: "Lovelace", Nickname: "Addie"},
		}
		target.add(contact.Contact{ID: "t7", FirstName: "Ada", LastName: "Lovelace"})

		report, err := c.Bootstrap(context.Background())
		if err != nil {
			t.Fatalf("Bootstrap() error: %v", err)
		}
		if report.Adopted != 1 || report.Created != 0 {
			t.Errorf("Expected 1 adopted and 0 created, got %d/%d", report.Adopted, report.Created)
		}
		// The alignment pass fills in the missing nickname.
		if report.Updated != 1 {
			t.Errorf("Expected 1 updated, got %d", report.Updated)
		}
		rec, _ := store.LookupBySource(context.Background(), "people/ada")
		if rec == nil || rec.TargetID != "t7" {
			t.Fatalf("Expected people/ada linked to t7, got %+v", rec)
		}
		if len(target.createdForms) != 0 {
			t.Errorf("Expected no creates, got %d", len(target.createdForms))
		}
	})

	t.Run("matching ignores case and spacing", func(t *testing.T) {
		c, store, source, target := newTestEngine(t)
		source.contacts = []contact.Contact{
			{ID: "people/ada", DisplayName: "Ada Lovelace"},
		}
		target.add(contact.Contact{ID: "t7", DisplayName: "  ada   LOVELACE "})

		if _, err := c.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap() error: %v", err)
		}
		rec, _ := store.LookupBySource(context.Background(), "people/ada")
		if rec == nil || rec.TargetID != "t7" {
			t.Fatalf("Expected adoption across case and spacing, got %+v", rec)
		}
		if len(target.createdForms) != 0 {
			t.Errorf("Expected no creates, got %d", len(target.createdForms))
		}
	})

	t.Run("ambiguous match falls through to create", func(t *testing.T) {
		c, store, source, target := newTestEngine(t)
		source.contacts = []contact.Contact{
			{ID: "people/ada", FirstName: "Ada", LastName: "Lovelace"},
		}
		target.add(contact.Contact{ID: "t7", FirstName: "Ada", LastName: "Lovelace"})
		target.add(contact.Contact{ID: "t8", FirstName: "Ada", LastName: "Lovelace"})

		report, err := c.Bootstrap(context.Background())
		if err != nil {
			t.Fatalf("Bootstrap() error: %v", err)
		}
		if report.Adopted != 0 || report.Created != 1 {
			t.Errorf("Expected 0 adopted and 1 created, got %d/%d", report.Adopted, report.Created)
		}
		rec, _ := store.LookupBySource(context.Background(), "people/ada")
		if rec == nil || rec.TargetID == "t7" || rec.TargetID == "t8" {
			t.Fatalf("Expected a fresh target contact, got %+v", rec)
		}
	})

	t.Run("mapped target is not an adoption candidate", func(t *testing.T) {
		c, store, source, target := newTestEngine(t)
		source.contacts = []contact.Contact{
			{ID: "people/ada", FirstName: "Ada", LastName: "Lovelace"},
		}
		target.add(contact.Contact{ID: "t7", FirstName: "Ada", LastName: "Lovelace"})
		store.records["people/other"] = mapping.Record{SourceID: "people/other", TargetID: "t7"}

		report, err := c.Bootstrap(context.Background(), RunWithForce(true))
		if err != nil {
			t.Fatalf("Bootstrap() error: %v", err)
		}
		if report.Adopted != 0 || report.Created != 1 {
			t.Errorf("Expected create over adoption, got adopted %d created %d", report.Adopted, report.Created)
		}
	})
}

func TestBootstrapGuardsNonEmptyStore(t *testing.T) {
	c, store, source, _ := newTestEngine(t)
	store.records["people/x"] = mapping.Record{SourceID: "people/x", TargetID: "t99"}
	source.contacts = []contact.Contact{
		{ID: "people/x", FirstName: "Existing"},
		{ID: "people/new", FirstName: "New", LastName: "Person"},
	}

	if _, err := c.Bootstrap(context.Background()); !errors.IsState(err) {
		t.Fatalf("Expected a state error, got %v", err)
	}

	report, err := c.Bootstrap(context.Background(), RunWithForce(true))
	if err != nil {
		t.Fatalf("Bootstrap(force) error: %v", err)
	}
	if report.Created != 1 {
		t.Errorf("Expected 1 created, got %d", report.Created)
	}
	if report.Skipped != 1 {
		t.Errorf("Expected the mapped contact skipped, got %d", report.Skipped)
	}
}
