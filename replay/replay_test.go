package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casteleyn/rollbook/directory"
)

var memberCategories = []string{"Member", "Regular Attender"}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEngine(people ...directory.Person) *Engine {
	return NewEngine(NewClassifier(memberCategories), directory.NewIndex(people), nil)
}

func TestClassifier(t *testing.T) {
	c := NewClassifier(memberCategories)

	tests := []struct {
		label string
		want  bool
	}{
		{"Member", true},
		{"member", true},
		{" MEMBER ", true},
		{"Member*", true},
		{"Regular Attender", true},
		{"regular-attender", true},
		{"Visitor", false},
		{"Member (inactive)", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsMember(tt.label), "label %q", tt.label)
	}
}

func TestReconstructAtUndoesJoin(t *testing.T) {
	// Current cohort {P}; P moved Visitor -> Member at t2. Before t2, P was
	// not a member, so reversing the event must yield the empty cohort.
	engine := newTestEngine()
	current := directory.NewIDSet("P")
	events := []Event{
		{Timestamp: ts("2022-06-01"), PersonID: "P", From: "Visitor", To: "Member"},
	}

	cohort, remaining, stats := engine.ReconstructAt(current, events, ts("2022-01-01"))

	assert.Empty(t, cohort)
	assert.Empty(t, remaining)
	assert.Equal(t, 1, stats.Undone)
	assert.True(t, current.Has("P"), "input set must not be mutated")
}

func TestReconstructAtUndoesLeave(t *testing.T) {
	engine := newTestEngine()
	events := []Event{
		{Timestamp: ts("2022-06-01"), PersonID: "P", From: "Member", To: "Visitor"},
	}

	cohort, _, stats := engine.ReconstructAt(directory.NewIDSet(), events, ts("2022-01-01"))

	assert.True(t, cohort.Has("P"), "P was a member before leaving")
	assert.Equal(t, 1, stats.Undone)
}

func TestReconstructAtNeutralTransitions(t *testing.T) {
	engine := newTestEngine()
	current := directory.NewIDSet("P", "Q")
	events := []Event{
		{Timestamp: ts("2022-06-01"), PersonID: "P", From: "Member", To: "Regular Attender"},
		{Timestamp: ts("2022-05-01"), PersonID: "Q", From: "Visitor", To: "Guest"},
	}

	cohort, _, stats := engine.ReconstructAt(current, events, ts("2022-01-01"))

	assert.Equal(t, current, cohort)
	assert.Equal(t, 2, stats.Neutral)
	assert.Equal(t, 0, stats.Undone)
}

func TestReconstructAtOrdersEventsLatestFirst(t *testing.T) {
	// P joins at t1, leaves at t2. Reversed latest-first from the current
	// (non-member) state: undo the leave (add), then undo the join
	// (remove): P was not a member before t1.
	engine := newTestEngine()
	events := []Event{
		{Timestamp: ts("2022-03-01"), PersonID: "P", From: "Visitor", To: "Member"},
		{Timestamp: ts("2022-09-01"), PersonID: "P", From: "Member", To: "Visitor"},
	}

	cohort, _, _ := engine.ReconstructAt(directory.NewIDSet(), events, ts("2022-01-01"))
	assert.False(t, cohort.Has("P"))

	// Between the two events, P was a member.
	cohort, _, _ = engine.ReconstructAt(directory.NewIDSet(), events, ts("2022-06-01"))
	assert.True(t, cohort.Has("P"))
}

func TestReconstructAtLeavesOlderEventsForChaining(t *testing.T) {
	engine := newTestEngine()
	events := []Event{
		{Timestamp: ts("2023-02-01"), PersonID: "A", From: "Visitor", To: "Member"},
		{Timestamp: ts("2022-02-01"), PersonID: "B", From: "Visitor", To: "Member"},
		{Timestamp: ts("2021-02-01"), PersonID: "C", From: "Visitor", To: "Member"},
	}
	current := directory.NewIDSet("A", "B", "C")

	cohort, remaining, _ := engine.ReconstructAt(current, events, ts("2023-01-01"))
	assert.False(t, cohort.Has("A"))
	assert.True(t, cohort.Has("B"))
	require.Len(t, remaining, 2)

	cohort, remaining, _ = engine.ReconstructAt(cohort, remaining, ts("2022-01-01"))
	assert.False(t, cohort.Has("B"))
	assert.True(t, cohort.Has("C"))
	require.Len(t, remaining, 1)
}

func TestReconstructAtEventAtAnchorInstantIsNotUndone(t *testing.T) {
	// Cohort at an instant reflects events that already happened at that
	// instant.
	engine := newTestEngine()
	events := []Event{
		{Timestamp: ts("2022-01-01"), PersonID: "P", From: "Visitor", To: "Member"},
	}

	cohort, remaining, _ := engine.ReconstructAt(directory.NewIDSet("P"), events, ts("2022-01-01"))
	assert.True(t, cohort.Has("P"))
	assert.Len(t, remaining, 1)
}

func TestReplayReversibility(t *testing.T) {
	// Undoing an event and then replaying its logical inverse restores the
	// original working set.
	engine := newTestEngine()
	original := directory.NewIDSet("P", "Q")

	join := []Event{{Timestamp: ts("2022-06-01"), PersonID: "P", From: "Visitor", To: "Member"}}
	inverse := []Event{{Timestamp: ts("2022-06-01"), PersonID: "P", From: "Member", To: "Visitor"}}

	after, _, _ := engine.ReconstructAt(original, join, ts("2022-01-01"))
	restored, _, _ := engine.ReconstructAt(after, inverse, ts("2022-01-01"))

	assert.Equal(t, original, restored)
}

func TestReconstructAtResolvesByName(t *testing.T) {
	engine := newTestEngine(directory.Person{ID: "42", FirstName: "Jo", LastName: "Smith"})
	events := []Event{
		{Timestamp: ts("2022-06-01"), PersonName: "Smith, Jo", From: "Visitor", To: "Member"},
	}

	cohort, _, stats := engine.ReconstructAt(directory.NewIDSet("42"), events, ts("2022-01-01"))
	assert.False(t, cohort.Has("42"))
	assert.Equal(t, 1, stats.Undone)
}

func TestReconstructAtSkipsUnresolvableEvents(t *testing.T) {
	engine := newTestEngine(
		directory.Person{ID: "1", FirstName: "Jo", LastName: "Smith"},
		directory.Person{ID: "2", FirstName: "Jo", LastName: "Smith"},
	)
	current := directory.NewIDSet("1", "2", "3")
	events := []Event{
		// no id, name not in directory
		{Timestamp: ts("2022-06-01"), PersonName: "Nobody Known", From: "Visitor", To: "Member"},
		// no id, ambiguous name
		{Timestamp: ts("2022-05-01"), PersonName: "Jo Smith", From: "Visitor", To: "Member"},
		// malformed id hint, no name
		{Timestamp: ts("2022-04-01"), PersonID: "##bad##", From: "Visitor", To: "Member"},
	}

	cohort, _, stats := engine.ReconstructAt(current, events, ts("2022-01-01"))

	assert.Equal(t, current, cohort, "skipped events never fabricate membership changes")
	assert.Equal(t, 3, stats.Skipped)
}

func TestReconstructSeries(t *testing.T) {
	engine := newTestEngine()
	events := []Event{
		{Timestamp: ts("2023-06-01"), PersonID: "A", From: "Visitor", To: "Member"},
		{Timestamp: ts("2022-06-01"), PersonID: "B", From: "Member", To: "Visitor"},
		{Timestamp: ts("2021-06-01"), PersonID: "C", From: "Visitor", To: "Member"},
	}
	current := directory.NewIDSet("A", "C")

	anchors := []time.Time{ts("2023-01-01"), ts("2022-01-01"), ts("2021-01-01")}
	cohorts := engine.ReconstructSeries(current, events, anchors)

	require.Len(t, cohorts, 3)

	// 2023-01-01: A's join undone, B's leave not yet reached.
	assert.Equal(t, directory.NewIDSet("C"), cohorts[ts("2023-01-01")])
	// 2022-01-01: B's leave undone, so B was still a member.
	assert.Equal(t, directory.NewIDSet("B", "C"), cohorts[ts("2022-01-01")])
	// 2021-01-01: C's join undone.
	assert.Equal(t, directory.NewIDSet("B"), cohorts[ts("2021-01-01")])
}

func TestReconstructSeriesAnchorOrderIrrelevant(t *testing.T) {
	engine := newTestEngine()
	events := []Event{
		{Timestamp: ts("2023-06-01"), PersonID: "A", From: "Visitor", To: "Member"},
	}
	current := directory.NewIDSet("A")

	forward := engine.ReconstructSeries(current, events, []time.Time{ts("2021-01-01"), ts("2023-01-01")})
	backward := engine.ReconstructSeries(current, events, []time.Time{ts("2023-01-01"), ts("2021-01-01")})

	assert.Equal(t, forward, backward)
}
