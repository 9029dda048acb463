// Package replay reconstructs historical cohort membership by undoing
// category-change events in reverse chronological order. The directory only
// knows who is a member now; walking the change log backwards from the
// current cohort recovers who was a member at any past instant.
package replay

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/identity"
)

// Event is one category transition for one person, as parsed from a
// directory change report. PersonID may be empty, in which case PersonName
// is matched against the directory index. From and To are the free-text
// category labels exactly as the report carries them.
type Event struct {
	Timestamp  time.Time
	PersonID   directory.PersonID
	PersonName string
	From       string
	To         string
}

// Classifier decides whether a free-text category label names a member
// category. Labels are normalized first, so "Member*", " MEMBER " and
// "member" all classify identically. Anything outside the configured
// canonical set is non-member.
type Classifier struct {
	memberKeys map[string]struct{}
}

// NewClassifier builds a classifier over the canonical member-category
// names (e.g. "Member", "Regular Attender").
func NewClassifier(memberCategories []string) *Classifier {
	keys := make(map[string]struct{}, len(memberCategories))
	for _, c := range memberCategories {
		if key := identity.Normalize(c); key != "" {
			keys[key] = struct{}{}
		}
	}
	return &Classifier{memberKeys: keys}
}

// IsMember reports whether the label names a member category.
func (c *Classifier) IsMember(label string) bool {
	_, ok := c.memberKeys[identity.Normalize(label)]
	return ok
}

// Stats counts what a reconstruction did, for diagnostics.
type Stats struct {
	Undone  int // transitions that crossed the member boundary
	Neutral int // member->member or nonmember->nonmember, left unapplied
	Skipped int // events with no resolvable person
}

// Engine replays change events backwards. Stateless per call: it never
// retains the working set between invocations, so callers can chain anchor
// dates by feeding each result and remainder into the next call.
type Engine struct {
	classifier *Classifier
	ix         *directory.Index
	log        *zap.SugaredLogger
}

// NewEngine creates a replay engine. The index resolves events that carry
// only a name; logger may be nil.
func NewEngine(classifier *Classifier, ix *directory.Index, log *zap.SugaredLogger) *Engine {
	return &Engine{classifier: classifier, ix: ix, log: log}
}

// ReconstructAt returns the cohort as it stood at asOf, given the cohort
// now (current) and the change events between then and now. Events are
// walked latest-first; each transition strictly after asOf is undone:
//
//   - non-member -> member: the person joined after asOf, so remove them
//   - member -> non-member: the person left after asOf, so add them back
//   - transitions that stay on one side of the boundary change nothing
//
// Events at or before asOf are not consumed; they come back in the second
// return value so the caller can continue replaying toward an earlier
// anchor. The input set is not mutated.
func (e *Engine) ReconstructAt(current directory.IDSet, events []Event, asOf time.Time) (directory.IDSet, []Event, Stats) {
	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})

	working := current.Clone()
	var stats Stats
	remaining := ordered

	for i, ev := range ordered {
		if !ev.Timestamp.After(asOf) {
			remaining = ordered[i:]
			break
		}
		remaining = nil

		id, ok := e.resolve(ev)
		if !ok {
			stats.Skipped++
			if e.log != nil {
				e.log.Warnw("skipping change event with no resolvable person",
					"name", ev.PersonName,
					"id_hint", ev.PersonID,
					"timestamp", ev.Timestamp,
					"error", errors.ErrUnparseableIdentifier,
				)
			}
			continue
		}

		fromMember := e.classifier.IsMember(ev.From)
		toMember := e.classifier.IsMember(ev.To)

		switch {
		case !fromMember && toMember:
			working.Remove(id)
			stats.Undone++
		case fromMember && !toMember:
			working.Add(id)
			stats.Undone++
		default:
			stats.Neutral++
		}
	}

	return working, remaining, stats
}

// ReconstructSeries chains ReconstructAt across several anchor dates,
// newest anchor first: replay from now back to anchors[0], then continue
// with the leftover events back to anchors[1], and so on. Anchors are
// sorted newest-first internally; the result maps each anchor to its
// cohort.
func (e *Engine) ReconstructSeries(current directory.IDSet, events []Event, anchors []time.Time) map[time.Time]directory.IDSet {
	sorted := make([]time.Time, len(anchors))
	copy(sorted, anchors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	cohorts := make(map[time.Time]directory.IDSet, len(sorted))
	working := current
	remaining := events
	for _, anchor := range sorted {
		var stats Stats
		working, remaining, stats = e.ReconstructAt(working, remaining, anchor)
		cohorts[anchor] = working
		if e.log != nil {
			e.log.Infow("cohort reconstructed",
				"as_of", anchor.Format("2006-01-02"),
				"size", len(working),
				"undone", stats.Undone,
				"neutral", stats.Neutral,
				"skipped", stats.Skipped,
			)
		}
	}
	return cohorts
}

// resolve finds the person an event refers to: a well-formed id wins, then
// an unambiguous canonical name. Ambiguous names and unknowns are not
// guessed.
func (e *Engine) resolve(ev Event) (directory.PersonID, bool) {
	if ev.PersonID != "" && identity.WellFormedID(string(ev.PersonID)) {
		return ev.PersonID, true
	}
	if ev.PersonName == "" || e.ix == nil {
		return "", false
	}
	id, ok, err := e.ix.Resolve(ev.PersonName)
	if err != nil || !ok {
		return "", false
	}
	return id, true
}
