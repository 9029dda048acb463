// Package dirclient is the HTTP implementation of the directory and report
// collaborators. It speaks the directory service's JSON API and knows
// nothing about cohorts or matching: pagination policy and indexing live in
// the directory package, parsing in the report package.
package dirclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/internal/httpclient"
)

// DefaultTimeout bounds every directory request.
const DefaultTimeout = 30 * time.Second

// Client calls the directory service. Implements directory.Client and
// report.Source.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Guarded
	log     *zap.SugaredLogger
}

// New creates a directory client for the service at baseURL.
func New(baseURL, apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpclient.New(DefaultTimeout),
		log:     log,
	}
}

// personPayload is the wire shape of one directory person.
type personPayload struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PreferredName string `json:"preferred_name"`
	CategoryID    string `json:"category_id"`
	Status        string `json:"status"`
	Deceased      bool   `json:"deceased"`
	Archived      bool   `json:"archived"`
	DateDeceased  string `json:"date_deceased"`
	DateArchived  string `json:"date_archived"`
	DateAdded     string `json:"date_added"`
}

type peoplePayload struct {
	People   []personPayload `json:"people"`
	PageInfo struct {
		TotalPages int `json:"total_pages"`
	} `json:"page_info"`
}

// ListPeople fetches one page of the directory. A failed call surfaces the
// error; the index builder decides what is fatal.
func (c *Client) ListPeople(ctx context.Context, page, pageSize int) (directory.PersonPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))

	body, err := c.get(ctx, "/people", q)
	if err != nil {
		return directory.PersonPage{}, err
	}

	var payload peoplePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return directory.PersonPage{}, errors.Wrap(err, "decode people page")
	}

	result := directory.PersonPage{TotalPages: payload.PageInfo.TotalPages}
	for _, p := range payload.People {
		result.People = append(result.People, c.toPerson(p))
	}
	return result, nil
}

// GetPersonDetail fetches the named profile fields for one person.
func (c *Client) GetPersonDetail(ctx context.Context, id directory.PersonID, fields []string) (directory.Person, error) {
	q := url.Values{}
	for _, f := range fields {
		q.Add("fields", f)
	}

	body, err := c.get(ctx, "/people/"+url.PathEscape(string(id)), q)
	if err != nil {
		return directory.Person{}, err
	}

	var payload personPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return directory.Person{}, errors.Wrapf(err, "decode person %s", id)
	}
	return c.toPerson(payload), nil
}

// ListCategories fetches the category id to name mapping.
func (c *Client) ListCategories(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, "/categories", nil)
	if err != nil {
		return nil, err
	}

	var payload []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode categories")
	}

	categories := make(map[string]string, len(payload))
	for _, c := range payload {
		categories[c.ID] = c.Name
	}
	return categories, nil
}

// FetchReport downloads the raw bytes of a named report for a year. A 404
// maps to ErrMissingReport so callers can zero that year and continue.
func (c *Client) FetchReport(ctx context.Context, year int, name string) ([]byte, error) {
	path := fmt.Sprintf("/reports/%d/%s", year, url.PathEscape(name))
	body, err := c.get(ctx, path, nil)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewMissingReportError("no %s report for %d", name, year)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request %s", path)
	}
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errors.ErrNotFound, "GET %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response %s", path)
	}
	return body, nil
}

// toPerson converts a wire person, dropping malformed date fields with a
// diagnostic instead of rejecting the whole record.
func (c *Client) toPerson(p personPayload) directory.Person {
	return directory.Person{
		ID:            directory.PersonID(p.ID),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		PreferredName: p.PreferredName,
		CategoryID:    p.CategoryID,
		Status:        p.Status,
		Deceased:      p.Deceased,
		Archived:      p.Archived,
		DateDeceased:  c.parseDate(p.ID, "date_deceased", p.DateDeceased),
		DateArchived:  c.parseDate(p.ID, "date_archived", p.DateArchived),
		DateAdded:     c.parseDate(p.ID, "date_added", p.DateAdded),
	}
}

var wireDateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

func (c *Client) parseDate(personID, field, value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range wireDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	if c.log != nil {
		c.log.Warnw("skipping unparseable date field",
			"person_id", personID, "field", field, "value", value,
			"error", errors.ErrUnparseableDate)
	}
	return nil
}
