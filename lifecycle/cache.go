// Package lifecycle tracks when people left the population (deceased or
// archived) and prunes reconstructed cohorts against those dates. Lifecycle
// dates are expensive to fetch (one detail call per person), so they live in
// a small disk-backed cache that persists between runs, the only state in
// the system that does.
package lifecycle

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/errors"
)

// Dates holds the two optional lifecycle dates for one person.
type Dates struct {
	Deceased *time.Time
	Archived *time.Time
}

// dateLayouts accepted when loading cached rows. Writes always use the
// first layout; older cache files may carry full timestamps.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Cache is the disk-backed per-person lifecycle date store. The full table
// is loaded at construction and written back once by Flush at the end of a
// run; in between, all reads and writes are in-memory.
type Cache struct {
	db      *sql.DB
	log     *zap.SugaredLogger
	entries map[directory.PersonID]Dates
	dirty   map[directory.PersonID]Dates
}

// OpenCache loads every row of the lifecycle_dates table. Rows with
// malformed dates are skipped with a warning; a bad row never discards the
// cache as a whole.
func OpenCache(db *sql.DB, log *zap.SugaredLogger) (*Cache, error) {
	c := &Cache{
		db:      db,
		log:     log,
		entries: make(map[directory.PersonID]Dates),
		dirty:   make(map[directory.PersonID]Dates),
	}

	rows, err := db.Query("SELECT person_id, date_deceased, date_archived FROM lifecycle_dates")
	if err != nil {
		return nil, errors.Wrap(err, "load lifecycle cache")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var deceased, archived sql.NullString
		if err := rows.Scan(&id, &deceased, &archived); err != nil {
			return nil, errors.Wrap(err, "scan lifecycle row")
		}
		if id == "" {
			c.warnw("dropping lifecycle cache row with empty person id")
			continue
		}

		var d Dates
		var bad bool
		if d.Deceased, bad = parseOptionalDate(deceased); bad {
			c.warnw("dropping lifecycle cache row with malformed deceased date",
				"person_id", id, "value", deceased.String)
			continue
		}
		if d.Archived, bad = parseOptionalDate(archived); bad {
			c.warnw("dropping lifecycle cache row with malformed archived date",
				"person_id", id, "value", archived.String)
			continue
		}
		c.entries[directory.PersonID(id)] = d
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate lifecycle rows")
	}

	c.debugw("lifecycle cache loaded", "entries", len(c.entries))
	return c, nil
}

// parseOptionalDate parses a nullable date column. The second return is
// true when the value is present but unusable.
func parseOptionalDate(v sql.NullString) (*time.Time, bool) {
	if !v.Valid || v.String == "" {
		return nil, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			return &t, false
		}
	}
	return nil, true
}

// Get returns the cached dates for a person, if any.
func (c *Cache) Get(id directory.PersonID) (Dates, bool) {
	d, ok := c.entries[id]
	return d, ok
}

// Put records dates for a person in memory; Flush persists them.
func (c *Cache) Put(id directory.PersonID, d Dates) {
	c.entries[id] = d
	c.dirty[id] = d
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Flush writes all entries added or updated since load back to disk in one
// transaction. Called once at the end of a run.
func (c *Cache) Flush() error {
	if len(c.dirty) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin lifecycle flush")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO lifecycle_dates (person_id, date_deceased, date_archived, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(person_id) DO UPDATE SET
			date_deceased = excluded.date_deceased,
			date_archived = excluded.date_archived,
			updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare lifecycle upsert")
	}
	defer stmt.Close()

	for id, d := range c.dirty {
		if _, err := stmt.Exec(string(id), formatOptionalDate(d.Deceased), formatOptionalDate(d.Archived)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "flush lifecycle entry %s", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit lifecycle flush")
	}

	c.debugw("lifecycle cache flushed", "written", len(c.dirty))
	c.dirty = make(map[directory.PersonID]Dates)
	return nil
}

// Clear removes every cached entry, in memory and on disk.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM lifecycle_dates"); err != nil {
		return errors.Wrap(err, "clear lifecycle cache")
	}
	c.entries = make(map[directory.PersonID]Dates)
	c.dirty = make(map[directory.PersonID]Dates)
	return nil
}

func formatOptionalDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayouts[0])
}

func (c *Cache) warnw(msg string, kv ...interface{}) {
	if c.log != nil {
		c.log.Warnw(msg, kv...)
	}
}

func (c *Cache) debugw(msg string, kv ...interface{}) {
	if c.log != nil {
		c.log.Debugw(msg, kv...)
	}
}
