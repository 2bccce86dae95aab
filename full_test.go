package concord

import (
	"context"
	"testing"
	"time"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/mapper"
	"github.com/concordsync/concord/pkg/mapping"
)

func TestFullCombinedPass(t *testing.T) {
	c, store, source, target := newTestEngine(t)
	updated := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	// One pair in sync, one pair with a pending change, one unmapped.
	target.add(contact.Contact{ID: "t1", FirstName: "Ada", LastName: "Lovelace"})
	target.add(contact.Contact{ID: "t2", FirstName: "Grace", LastName: "Hopper"})
	store.records["people/ada"] = mapping.Record{
		SourceID: "people/ada", TargetID: "t1",
		SourceName: "Ada Lovelace", TargetName: "Ada Lovelace",
		SourceUpdated: updated, TargetUpdated: updated,
	}
	store.records["people/grace"] = mapping.Record{
		SourceID: "people/grace", TargetID: "t2",
		SourceName: "Grace Hopper", TargetName: "Grace Hopper",
		SourceUpdated: updated, TargetUpdated: updated,
	}
	source.contacts = []contact.Contact{
		{ID: "people/ada", FirstName: "Ada", LastName: "Lovelace", Updated: updated},
		{ID: "people/grace", FirstName: "Grace", LastName: "Hopper", Nickname: "Amazing", Updated: updated.Add(time.Hour)},
		{ID: "people/new", FirstName: "Niklaus", LastName: "Wirth", Updated: updated},
	}
	source.nextToken = "full-1"

	report, err := c.Full(context.Background())
	if err != nil {
		t.Fatalf("Full() error: %v", err)
	}
	if report.Created != 1 || report.Updated != 1 || report.Skipped != 1 || report.Deleted != 0 {
		t.Errorf("Unexpected counts: %+v", report)
	}
	if report.Operation != OpFull {
		t.Errorf("Expected operation %q, got %q", OpFull, report.Operation)
	}
	if len(target.updatedIDs) != 1 || target.updatedIDs[0] != "t2" {
		t.Errorf("Expected only t2 updated, got %v", target.updatedIDs)
	}
	if count, _ := store.Count(context.Background()); count != 3 {
		t.Errorf("Expected 3 records, got %d", count)
	}
	if store.cursor == nil || store.cursor.Token != "full-1" {
		t.Errorf("Expected cursor full-1, got %+v", store.cursor)
	}
}

func TestFullRemovesVanishedPairs(t *testing.T) {
	t.Run("deletion enabled", func(t *testing.T) {
		c, store, _, target := newTestEngine(t)
		target.add(contact.Contact{ID: "t9", FirstName: "Ghost"})
		store.records["people/gone"] = mapping.Record{
			SourceID: "people/gone", TargetID: "t9", TargetName: "Ghost",
		}

		report, err := c.Full(context.Background())
		if err != nil {
			t.Fatalf("Full() error: %v", err)
		}
		if report.Deleted != 1 {
			t.Errorf("Expected 1 deleted, got %+v", report)
		}
		if len(target.deletedIDs) != 1 || target.deletedIDs[0] != "t9" {
			t.Errorf("Expected t9 deleted, got %v", target.deletedIDs)
		}
		if count, _ := store.Count(context.Background()); count != 0 {
			t.Errorf("Expected the record removed, got %d", count)
		}
	})

	t.Run("deletion disabled", func(t *testing.T) {
		c, store, _, target := newTestEngine(t, WithDeletion(false))
		target.add(contact.Contact{ID: "t9", FirstName: "Ghost"})
		store.records["people/gone"] = mapping.Record{
			SourceID: "people/gone", TargetID: "t9", TargetName: "Ghost",
		}

		report, err := c.Full(context.Background())
		if err != nil {
			t.Fatalf("Full() error: %v", err)
		}
		if report.Deleted != 0 || report.Skipped != 1 {
			t.Errorf("Expected a skip, got %+v", report)
		}
		if len(report.Issues) != 1 {
			t.Errorf("Expected the retained pair surfaced as an issue, got %+v", report.Issues)
		}
		if len(target.deletedIDs) != 0 {
			t.Errorf("Expected no deletion, got %v", target.deletedIDs)
		}
		if count, _ := store.Count(context.Background()); count != 1 {
			t.Errorf("Expected the record retained, got %d", count)
		}
	})

	t.Run("target already gone", func(t *testing.T) {
		c, store, _, target := newTestEngine(t)
		store.records["people/gone"] = mapping.Record{
			SourceID: "people/gone", TargetID: "t9", TargetName: "Ghost",
		}

		report, err := c.Full(context.Background())
		if err != nil {
			t.Fatalf("Full() error: %v", err)
		}
		if report.Deleted != 1 || report.Failed != 0 {
			t.Errorf("Expected a clean removal, got %+v", report)
		}
		if len(target.deletedIDs) != 1 {
			t.Errorf("Expected the delete attempted, got %v", target.deletedIDs)
		}
		if count, _ := store.Count(context.Background()); count != 0 {
			t.Errorf("Expected the record removed, got %d", count)
		}
	})
}

// A contact that drops out of the label filter stays mapped: it was still
// present in the pull, so absence-based removal must not fire.
func TestFullKeepsFilteredMappings(t *testing.T) {
	c, store, source, target := newTestEngine(t,
		WithSourceFilter(mapper.LabelFilter{Include: []string{"friends"}}),
	)
	target.add(contact.Contact{ID: "t5", FirstName: "Wendy", LastName: "Carlos"})
	store.records["people/wendy"] = mapping.Record{
		SourceID: "people/wendy", TargetID: "t5",
		SourceName: "Wendy Carlos", TargetName: "Wendy Carlos",
	}
	source.contacts = []contact.Contact{
		{ID: "people/wendy", FirstName: "Wendy", LastName: "Carlos", Labels: []string{"colleagues"}},
	}

	report, err := c.Full(context.Background())
	if err != nil {
		t.Fatalf("Full() error: %v", err)
	}
	if report.Skipped != 1 || report.Deleted != 0 {
		t.Errorf("Expected a filter skip, got %+v", report)
	}
	if len(target.deletedIDs) != 0 {
		t.Errorf("Expected no deletion, got %v", target.deletedIDs)
	}
	if count, _ := store.Count(context.Background()); count != 1 {
		t.Errorf("Expected the mapping retained, got %d", count)
	}
}

func TestFullSeedsCursorForIncremental(t *testing.T) {
	c, store, source, _ := newTestEngine(t)
	source.nextToken = "full-tok"

	if _, err := c.Full(context.Background()); err != nil {
		t.Fatalf("Full() error: %v", err)
	}
	if store.cursor == nil || store.cursor.Token != "full-tok" {
		t.Fatalf("Expected cursor full-tok, got %+v", store.cursor)
	}

	source.nextToken = "inc-tok"
	if _, err := c.Incremental(context.Background()); err != nil {
		t.Fatalf("Incremental() after Full error: %v", err)
	}
	if source.gotToken != "full-tok" {
		t.Errorf("Expected incremental pull with full-tok, got %q", source.gotToken)
	}
	if store.cursor.Token != "inc-tok" {
		t.Errorf("Expected cursor advanced to inc-tok, got %q", store.cursor.Token)
	}
}
