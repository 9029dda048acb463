// Package directory models the external person directory and builds the
// per-run lookup indexes used by cohort reconstruction and record matching.
// The network transport behind the Client interface is a collaborator; this
// package owns pagination and indexing only.
package directory

import (
	"context"
	"time"
)

// PersonID is the directory service's opaque stable person identifier.
type PersonID string

// IDSet is a set of person ids.
type IDSet map[PersonID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...PersonID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports set membership.
func (s IDSet) Has(id PersonID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts an id.
func (s IDSet) Add(id PersonID) { s[id] = struct{}{} }

// Remove deletes an id.
func (s IDSet) Remove(id PersonID) { delete(s, id) }

// Clone returns an independent copy of the set.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Person is an immutable snapshot of one directory entry for the duration
// of a run. Optional dates are nil when the directory does not report them.
type Person struct {
	ID            PersonID
	FirstName     string
	LastName      string
	PreferredName string
	CategoryID    string
	Status        string
	Deceased      bool
	Archived      bool
	DateDeceased  *time.Time
	DateArchived  *time.Time
	DateAdded     *time.Time
}

// DisplayName returns the person's preferred-first form when a preferred
// name is on file, otherwise first-last.
func (p Person) DisplayName() string {
	first := p.FirstName
	if p.PreferredName != "" {
		first = p.PreferredName
	}
	if first == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return first
	}
	return first + " " + p.LastName
}

// PersonPage is one page of a directory listing. TotalPages is the
// server-reported page count, or 0 when the transport does not expose one.
type PersonPage struct {
	People     []Person
	TotalPages int
}

// Client is the transport collaborator boundary. Implementations handle
// HTTP mechanics (retries, backoff, auth); a failed call surfaces as an
// empty result, not a panic.
type Client interface {
	// ListPeople returns one page of the directory. Pages are 1-based.
	ListPeople(ctx context.Context, page, pageSize int) (PersonPage, error)

	// GetPersonDetail fetches the named profile fields for one person.
	// Used only for the bounded lifecycle-enrichment subset.
	GetPersonDetail(ctx context.Context, id PersonID, fields []string) (Person, error)

	// ListCategories returns the directory's category id to name mapping.
	ListCategories(ctx context.Context) (map[string]string, error)
}
