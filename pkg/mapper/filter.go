package mapper

// LabelFilter restricts a sync pass to contacts carrying (or lacking)
// certain labels. The zero value admits everyone.
type LabelFilter struct {
	Include []string // When non-empty, a contact needs at least one of these labels
	Exclude []string // A contact carrying any of these labels is never eligible
}

// IsZero reports whether the filter admits every contact.
func (f LabelFilter) IsZero() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Eligible reports whether a contact with the given labels passes the
// filter. Contacts that fail are treated as absent for the whole session:
// they are neither matched, created, nor audited.
func (f LabelFilter) Eligible(labels []string) bool {
	for _, l := range labels {
		for _, excluded := range f.Exclude {
			if l == excluded {
				return false
			}
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, l := range labels {
		for _, included := range f.Include {
			if l == included {
				return true
			}
		}
	}
	return false
}
