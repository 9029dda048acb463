package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casteleyn/rollbook/errors"
)

// fakeClient serves a fixed set of people in pages.
type fakeClient struct {
	people     []Person
	totalPages int // 0 = do not report a page count
	calls      int
}

func (f *fakeClient) ListPeople(_ context.Context, page, pageSize int) (PersonPage, error) {
	f.calls++
	start := (page - 1) * pageSize
	if start >= len(f.people) {
		return PersonPage{TotalPages: f.totalPages}, nil
	}
	end := start + pageSize
	if end > len(f.people) {
		end = len(f.people)
	}
	return PersonPage{People: f.people[start:end], TotalPages: f.totalPages}, nil
}

func (f *fakeClient) GetPersonDetail(_ context.Context, id PersonID, _ []string) (Person, error) {
	for _, p := range f.people {
		if p.ID == id {
			return p, nil
		}
	}
	return Person{}, errors.Wrapf(errors.ErrNotFound, "person %s", id)
}

func (f *fakeClient) ListCategories(_ context.Context) (map[string]string, error) {
	return map[string]string{"1": "Member", "2": "Visitor"}, nil
}

func somePeople(n int) []Person {
	people := make([]Person, 0, n)
	names := []struct{ first, last string }{
		{"Jo", "Smith"}, {"Pat", "Jones"}, {"Sam", "Reyes"}, {"Lee", "Okafor"},
		{"Max", "Ito"}, {"Ana", "Silva"}, {"Kim", "Novak"}, {"Ben", "Eze"},
	}
	for i := 0; i < n; i++ {
		nm := names[i%len(names)]
		people = append(people, Person{
			ID:        PersonID(string(rune('a' + i))),
			FirstName: nm.first,
			LastName:  nm.last,
		})
	}
	return people
}

func TestBuildStopsOnShortPage(t *testing.T) {
	client := &fakeClient{people: somePeople(5)}
	ix, err := NewBuilder(client, nil).Build(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 5, ix.Len())
	// page 1 full (3), page 2 short (2) -> stop without a third call
	assert.Equal(t, 2, client.calls)
}

func TestBuildStopsOnReportedPageCount(t *testing.T) {
	// Exactly two full pages; the reported page count prevents a wasted
	// third request for an empty page.
	client := &fakeClient{people: somePeople(6), totalPages: 2}
	ix, err := NewBuilder(client, nil).Build(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 6, ix.Len())
	assert.Equal(t, 2, client.calls)
}

func TestBuildStopsOnEmptyPageWhenPageSizeDivides(t *testing.T) {
	// Six people, page size 3, no reported page count: page 3 comes back
	// empty and terminates the loop.
	client := &fakeClient{people: somePeople(6)}
	ix, err := NewBuilder(client, nil).Build(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 6, ix.Len())
	assert.Equal(t, 3, client.calls)
}

func TestBuildEmptyDirectoryIsFatal(t *testing.T) {
	client := &fakeClient{}
	_, err := NewBuilder(client, nil).Build(context.Background(), 10)

	require.Error(t, err)
	assert.True(t, errors.IsEmptyDirectory(err))
}

func TestBuildRejectsBadPageSize(t *testing.T) {
	_, err := NewBuilder(&fakeClient{}, nil).Build(context.Background(), 0)
	require.Error(t, err)
}

func TestIndexNameVariants(t *testing.T) {
	ix := NewIndex([]Person{
		{ID: "1", FirstName: "Jo", LastName: "Smith", PreferredName: "Josie"},
	})

	for _, name := range []string{
		"Jo Smith", "Smith, Jo", "Josie Smith", "Jo", "Smith",
	} {
		id, ok, err := ix.Resolve(name)
		require.NoError(t, err, name)
		require.True(t, ok, name)
		assert.Equal(t, PersonID("1"), id, name)
	}
}

func TestIndexAmbiguousKeyIsNeverResolved(t *testing.T) {
	ix := NewIndex([]Person{
		{ID: "1", FirstName: "Jo", LastName: "Smith"},
		{ID: "2", FirstName: "Jo", LastName: "Smith"},
	})

	assert.True(t, ix.Ambiguous("Jo Smith"))

	_, ok, err := ix.Resolve("Jo Smith")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAmbiguousNameKey))

	// The ambiguous mapping is retained as a set, not silently collapsed.
	assert.Len(t, ix.ByName["jo smith"], 2)
}

func TestIndexUnknownName(t *testing.T) {
	ix := NewIndex([]Person{{ID: "1", FirstName: "Jo", LastName: "Smith"}})

	_, ok, err := ix.Resolve("Nobody Here")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestIndexByTokenDeterministic(t *testing.T) {
	ix := NewIndex([]Person{
		{ID: "9", FirstName: "Jo", LastName: "Smith"},
		{ID: "2", FirstName: "Jo", LastName: "Jones"},
		{ID: "5", FirstName: "Jo", LastName: "Reyes"},
	})

	assert.Equal(t, []PersonID{"2", "5", "9"}, ix.ByToken["jo"])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Jo Smith", Person{FirstName: "Jo", LastName: "Smith"}.DisplayName())
	assert.Equal(t, "Josie Smith", Person{FirstName: "Jo", LastName: "Smith", PreferredName: "Josie"}.DisplayName())
	assert.Equal(t, "Smith", Person{LastName: "Smith"}.DisplayName())
	assert.Equal(t, "Jo", Person{FirstName: "Jo"}.DisplayName())
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("a", "b")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))

	c := s.Clone()
	c.Remove("a")
	assert.True(t, s.Has("a"))
	assert.False(t, c.Has("a"))

	c.Add("c")
	assert.True(t, c.Has("c"))
}

func TestPersonSnapshotDates(t *testing.T) {
	added := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	p := Person{ID: "1", DateAdded: &added}
	require.NotNil(t, p.DateAdded)
	assert.Equal(t, 2020, p.DateAdded.Year())
}
