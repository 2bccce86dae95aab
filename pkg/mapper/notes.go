package mapper

import "strings"

// NoteMarker is the line carried at the end of every synced note body on
// the target. It both warns users against editing the note there and lets
// later passes recognize which note the sync owns.
const NoteMarker = "*This note is synced from your Google contacts. Do not edit here.*"

// markerSeparator sits between the note body and the marker line.
const markerSeparator = "\n\n"

// MarkNote renders a source note body into its synced target form: the
// trimmed body with newlines turned into markdown hard breaks, followed by
// the marker line. Bodies already carrying the marker are returned
// unchanged, so marking is idempotent.
func MarkNote(body string) string {
	body = strings.TrimSpace(body)
	if IsSyncedNote(body) {
		return body
	}
	return hardBreaks(body) + markerSeparator + NoteMarker
}

// IsSyncedNote reports whether a target note body is owned by the sync,
// recognized by the embedded marker.
func IsSyncedNote(body string) bool {
	return strings.Contains(body, markerSeparator+NoteMarker)
}

// hardBreaks converts plain newlines into markdown hard breaks so the
// target renders the same line structure the source stored.
func hardBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "  \n")
}
