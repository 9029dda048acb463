package lifecycle

import (
	"time"

	"github.com/casteleyn/rollbook/directory"
)

// PruneExistence removes cohort members who did not yet exist in the
// directory as of the snapshot date (DateAdded after asOf). Members without
// a known DateAdded are kept. Pure set filter; never grows the set.
func PruneExistence(cohort directory.IDSet, ix *directory.Index, asOf time.Time) directory.IDSet {
	out := make(directory.IDSet, len(cohort))
	for id := range cohort {
		p, ok := ix.ByID[id]
		if ok && p.DateAdded != nil && p.DateAdded.After(asOf) {
			continue
		}
		out.Add(id)
	}
	return out
}

// PruneLifecycle removes cohort members who had already left the population
// as of the snapshot date: deceased or archived on or before asOf. Members
// without cached dates are kept. Pure set filter; never grows the set.
//
// Convention: run after PruneExistence, since lifecycle dates are only
// fetched for candidates that survive existence pruning. That ordering is a
// cost saving, not a correctness requirement.
func PruneLifecycle(cohort directory.IDSet, cache *Cache, asOf time.Time) directory.IDSet {
	out := make(directory.IDSet, len(cohort))
	for id := range cohort {
		d, ok := cache.Get(id)
		if ok && departedBy(d, asOf) {
			continue
		}
		out.Add(id)
	}
	return out
}

func departedBy(d Dates, asOf time.Time) bool {
	if d.Deceased != nil && !d.Deceased.After(asOf) {
		return true
	}
	if d.Archived != nil && !d.Archived.After(asOf) {
		return true
	}
	return false
}
