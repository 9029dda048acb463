package match

import (
	"time"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/identity"
)

// Dedupe collapses duplicate report rows that describe the same logical
// transition for the same person within one processing year, keeping only
// the earliest-dated instance of each group. Duplicate source rows are
// common when a report spans overlapping exports; without this step one
// person's transition would be counted several times.
//
// Grouping key: the well-formed member id when present, otherwise the
// order-insensitive canonical name key. Rows whose key is empty (no id, no
// usable name) pass through untouched. Input order is preserved for the
// surviving rows.
func Dedupe(records []Record, log *zap.SugaredLogger) []Record {
	type groupKey struct {
		year int
		key  string
	}

	// First pass: find the earliest date per group.
	earliest := make(map[groupKey]time.Time)
	for _, rec := range records {
		key, ok := dedupeKey(rec)
		if !ok {
			continue
		}
		gk := groupKey{year: rec.ReportYear, key: key}
		if cur, seen := earliest[gk]; !seen || rec.Date.Before(cur) {
			earliest[gk] = rec.Date
		}
	}

	// Second pass: keep the first row carrying each group's earliest date,
	// drop the rest of the group.
	taken := make(map[groupKey]bool)
	out := make([]Record, 0, len(records))
	dropped := 0
	for _, rec := range records {
		key, ok := dedupeKey(rec)
		if !ok {
			out = append(out, rec)
			continue
		}
		gk := groupKey{year: rec.ReportYear, key: key}
		if taken[gk] || !rec.Date.Equal(earliest[gk]) {
			dropped++
			continue
		}
		taken[gk] = true
		out = append(out, rec)
	}

	if log != nil && dropped > 0 {
		log.Infow("deduplicated report rows", "dropped", dropped, "kept", len(out))
	}
	return out
}

func dedupeKey(rec Record) (string, bool) {
	if identity.WellFormedID(rec.MemberIDHint) {
		return "id:" + rec.MemberIDHint, true
	}
	if key := identity.SortedKey(rec.DisplayName); key != "" {
		return "name:" + key, true
	}
	return "", false
}
