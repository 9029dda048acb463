package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/errors"
)

// detailClient records which people had their detail fetched.
type detailClient struct {
	details map[directory.PersonID]directory.Person
	failOn  map[directory.PersonID]bool
	fetched []directory.PersonID
}

func (c *detailClient) ListPeople(context.Context, int, int) (directory.PersonPage, error) {
	return directory.PersonPage{}, nil
}

func (c *detailClient) GetPersonDetail(_ context.Context, id directory.PersonID, _ []string) (directory.Person, error) {
	c.fetched = append(c.fetched, id)
	if c.failOn[id] {
		return directory.Person{}, errors.New("directory unavailable")
	}
	return c.details[id], nil
}

func (c *detailClient) ListCategories(context.Context) (map[string]string, error) {
	return nil, nil
}

func TestEnrichFetchesOnlyFlaggedUncachedPeople(t *testing.T) {
	ix := directory.NewIndex([]directory.Person{
		{ID: "1", FirstName: "A", LastName: "Alive"},
		{ID: "2", FirstName: "B", LastName: "Gone", Deceased: true},
		{ID: "3", FirstName: "C", LastName: "Filed", Archived: true},
		{ID: "4", FirstName: "D", LastName: "Known", Deceased: true},
		{ID: "5", FirstName: "E", LastName: "Listed", Archived: true, DateArchived: date(2021, 2, 3)},
	})
	cache, err := OpenCache(testDB(t), nil)
	require.NoError(t, err)
	cache.Put("4", Dates{Deceased: date(2019, 9, 9)}) // already cached

	client := &detailClient{
		details: map[directory.PersonID]directory.Person{
			"2": {ID: "2", DateDeceased: date(2020, 5, 6)},
			"3": {ID: "3", DateArchived: date(2018, 7, 8)},
		},
	}

	enricher := NewEnricher(client, cache, 0, nil)
	require.NoError(t, enricher.Enrich(context.Background(), ix, directory.NewIDSet("1", "2", "3", "4", "5")))

	// Only the flagged, uncached, undated people hit the wire, and in
	// sorted id order for reproducibility.
	assert.Equal(t, []directory.PersonID{"2", "3"}, client.fetched)

	d, ok := cache.Get("2")
	require.True(t, ok)
	assert.Equal(t, 2020, d.Deceased.Year())

	// Listing-supplied dates were cached without a fetch.
	d, ok = cache.Get("5")
	require.True(t, ok)
	assert.Equal(t, 2021, d.Archived.Year())

	_, ok = cache.Get("1")
	assert.False(t, ok, "living person never enters the lifecycle cache")
}

func TestEnrichSkipsFailedFetches(t *testing.T) {
	ix := directory.NewIndex([]directory.Person{
		{ID: "2", FirstName: "B", LastName: "Gone", Deceased: true},
		{ID: "3", FirstName: "C", LastName: "Filed", Archived: true},
	})
	cache, err := OpenCache(testDB(t), nil)
	require.NoError(t, err)

	client := &detailClient{
		details: map[directory.PersonID]directory.Person{
			"3": {ID: "3", DateArchived: date(2018, 7, 8)},
		},
		failOn: map[directory.PersonID]bool{"2": true},
	}

	enricher := NewEnricher(client, cache, 0, nil)
	require.NoError(t, enricher.Enrich(context.Background(), ix, directory.NewIDSet("2", "3")))

	_, ok := cache.Get("2")
	assert.False(t, ok, "failed fetch leaves the person undated this run")
	_, ok = cache.Get("3")
	assert.True(t, ok)
}

func TestEnrichIgnoresIDsOutsideDirectory(t *testing.T) {
	ix := directory.NewIndex(nil)
	cache, err := OpenCache(testDB(t), nil)
	require.NoError(t, err)

	client := &detailClient{}
	enricher := NewEnricher(client, cache, 0, nil)
	require.NoError(t, enricher.Enrich(context.Background(), ix, directory.NewIDSet("ghost")))
	assert.Empty(t, client.fetched)
}
