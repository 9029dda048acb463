// Package report defines the boundary to the report collaborators: the
// source that downloads raw report bytes from the directory's named report
// groups, and the parser that turns those bytes into typed events and
// records. HTML scraping and transport mechanics live behind these
// interfaces, outside this engine.
package report

import (
	"context"

	"github.com/casteleyn/rollbook/match"
	"github.com/casteleyn/rollbook/replay"
)

// Category-change and visitor report group names as the directory exposes
// them.
const (
	CategoryChangeReport = "category-changes"
	VisitorReport        = "visitors"
)

// Source fetches raw report bytes for a year and report name. A report that
// does not exist for that year returns errors.ErrMissingReport (wrapped);
// callers zero out that year's contribution and continue.
type Source interface {
	FetchReport(ctx context.Context, year int, name string) ([]byte, error)
}

// Parser turns raw report bytes into typed rows. Row order is arbitrary;
// the replay engine orders events itself. Individual malformed rows are
// skipped by the parser, never fatal.
type Parser interface {
	ParseCategoryChangeReport(b []byte) ([]replay.Event, error)
	ParseVisitorReport(b []byte) ([]match.Record, error)
}
