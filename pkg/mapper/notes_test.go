package mapper

import (
	"strings"
	"testing"
)

func TestMarkNote(t *testing.T) {
	got := MarkNote("First line\nSecond line")
	want := "First line  \nSecond line\n\n" + NoteMarker
	if got != want {
		t.Errorf("MarkNote() = %q, want %q", got, want)
	}
}

func TestMarkNoteTrimsBody(t *testing.T) {
	got := MarkNote("  A note \n")
	if !strings.HasPrefix(got, "A note\n\n") {
		t.Errorf("expected trimmed body, got %q", got)
	}
}

func TestMarkNoteIsIdempotent(t *testing.T) {
	once := MarkNote("First line\nSecond line")
	if twice := MarkNote(once); twice != once {
		t.Errorf("marking a marked note must be a no-op, got %q", twice)
	}
}

func TestIsSyncedNote(t *testing.T) {
	if !IsSyncedNote(MarkNote("anything")) {
		t.Error("marked note must be recognized as synced")
	}
	if IsSyncedNote("A plain user note") {
		t.Error("plain note must not be recognized as synced")
	}
	// The bare marker line without its separator does not count.
	if IsSyncedNote(NoteMarker) {
		t.Error("marker without body separator must not be recognized")
	}
}
