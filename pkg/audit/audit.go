// Package audit cross-references the mapping table against directory
// snapshots and reports inconsistencies. It performs no I/O and never
// mutates anything: callers pull the snapshots and records, Run only looks.
//
// Snapshots must be raw, unfiltered listings. Label filters are applied
// here, only where eligibility matters, so that a filter-excluded contact
// referenced by a mapping still counts as present.
package audit

import (
	"sort"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/mapper"
	"github.com/concordsync/concord/pkg/mapping"
)

// Side names the directory a finding belongs to.
type Side string

// The two directory sides.
const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// Class categorizes a finding.
type Class string

// Anomaly classes, ordered as reported.
const (
	// ClassDangling flags a mapping that references an id absent from
	// its directory snapshot.
	ClassDangling Class = "dangling"

	// ClassDuplicateBinding flags a directory snapshot carrying the same
	// mapped id more than once.
	ClassDuplicateBinding Class = "duplicate-binding"

	// ClassUnmappedEligible flags a contact that passes the side's label
	// filter but has no mapping.
	ClassUnmappedEligible Class = "unmapped-eligible"
)

// Anomaly is one inconsistency between the mapping table and a directory.
type Anomaly struct {
	Class  Class  `json:"class" yaml:"class"`
	Side   Side   `json:"side" yaml:"side"`
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Detail string `json:"detail" yaml:"detail"`
}

// Run cross-references the mapping records against both directory
// snapshots. The result is ordered by (class, side, id) so repeated runs
// over the same state compare equal.
func Run(records []mapping.Record, source, target []contact.Contact, sourceFilter, targetFilter mapper.LabelFilter) []Anomaly {
	var anomalies []Anomaly

	sourceSeen := index(source)
	targetSeen := index(target)

	mappedSource := make(map[string]string, len(records))
	mappedTarget := make(map[string]string, len(records))
	for _, r := range records {
		mappedSource[r.SourceID] = r.SourceName
		mappedTarget[r.TargetID] = r.TargetName

		if sourceSeen[r.SourceID] == 0 {
			anomalies = append(anomalies, Anomaly{
				Class:  ClassDangling,
				Side:   SideSource,
				ID:     r.SourceID,
				Name:   r.SourceName,
				Detail: "mapping references a source contact absent from the directory",
			})
		}
		if targetSeen[r.TargetID] == 0 {
			anomalies = append(anomalies, Anomaly{
				Class:  ClassDangling,
				Side:   SideTarget,
				ID:     r.TargetID,
				Name:   r.TargetName,
				Detail: "mapping references a target contact absent from the directory",
			})
		}
	}

	anomalies = append(anomalies, duplicates(SideSource, sourceSeen, mappedSource)...)
	anomalies = append(anomalies, duplicates(SideTarget, targetSeen, mappedTarget)...)

	for _, c := range source {
		if c.Deleted || !c.Named() {
			continue
		}
		if _, mapped := mappedSource[c.ID]; mapped {
			continue
		}
		if !sourceFilter.Eligible(c.Labels) {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Class:  ClassUnmappedEligible,
			Side:   SideSource,
			ID:     c.ID,
			Name:   c.Name(),
			Detail: "eligible source contact has no mapping",
		})
	}
	for _, c := range target {
		if c.Deleted || !c.Named() {
			continue
		}
		if _, mapped := mappedTarget[c.ID]; mapped {
			continue
		}
		if !targetFilter.Eligible(c.Labels) {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Class:  ClassUnmappedEligible,
			Side:   SideTarget,
			ID:     c.ID,
			Name:   c.Name(),
			Detail: "eligible target contact has no mapping",
		})
	}

	sort.Slice(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.ID < b.ID
	})
	return anomalies
}

// index counts live occurrences of every id in a snapshot. Tombstones do
// not count as present.
func index(contacts []contact.Contact) map[string]int {
	seen := make(map[string]int, len(contacts))
	for _, c := range contacts {
		if c.Deleted {
			continue
		}
		seen[c.ID]++
	}
	return seen
}

// duplicates reports mapped ids a snapshot carries more than once.
func duplicates(side Side, seen map[string]int, mapped map[string]string) []Anomaly {
	var anomalies []Anomaly
	for id, count := range seen {
		if count < 2 {
			continue
		}
		name, isMapped := mapped[id]
		if !isMapped {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Class:  ClassDuplicateBinding,
			Side:   side,
			ID:     id,
			Name:   name,
			Detail: "directory snapshot carries a mapped id more than once",
		})
	}
	return anomalies
}
