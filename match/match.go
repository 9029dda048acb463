// Package match resolves loosely-identified attendance and visitor records
// against the person directory. Report rows carry a display name and
// sometimes a (possibly mangled) member id; matching works through staged
// tiers of decreasing confidence so callers can tell a certain identifier
// hit from a token-overlap guess.
package match

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/identity"
)

// Record is one attendance or visitor row from a parsed report. Ephemeral:
// produced by the report-parsing collaborator and consumed once here.
type Record struct {
	DisplayName  string
	MemberIDHint string // optional, possibly malformed
	RawLocation  string
	ReportYear   int
	Date         time.Time
}

// Tier is the matching strategy that produced a result, most to least
// certain.
type Tier int

// Confidence tiers.
const (
	TierUnmatched Tier = iota
	TierTokenOverlap
	TierCanonicalName
	TierExactID
)

func (t Tier) String() string {
	switch t {
	case TierExactID:
		return "EXACT_ID"
	case TierCanonicalName:
		return "CANONICAL_NAME"
	case TierTokenOverlap:
		return "TOKEN_OVERLAP"
	default:
		return "UNMATCHED"
	}
}

// Result is the outcome of matching one record. PersonID is empty and
// MatchedYear zero when Tier is TierUnmatched.
type Result struct {
	Record      Record
	PersonID    directory.PersonID
	MatchedYear int
	Tier        Tier
}

// Matcher resolves records against per-year directory indexes. Pure over
// the supplied indexes: no side effects, deterministic output.
type Matcher struct {
	indexes map[int]*directory.Index
	log     *zap.SugaredLogger
}

// NewMatcher creates a matcher over per-year indexes (year -> index built
// from that year's records).
func NewMatcher(indexes map[int]*directory.Index, log *zap.SugaredLogger) *Matcher {
	return &Matcher{indexes: indexes, log: log}
}

// Match resolves one record across the lookback years, which the caller
// supplies in priority order (same year first, then further back). Tiers
// are strict: an exact-id match in any lookback year beats a canonical-name
// match in every year, and so on down. The first success wins.
func (m *Matcher) Match(rec Record, lookbackYears []int) Result {
	if identity.WellFormedID(rec.MemberIDHint) {
		for _, year := range lookbackYears {
			ix, ok := m.indexes[year]
			if !ok {
				continue
			}
			if _, found := ix.ByID[directory.PersonID(rec.MemberIDHint)]; found {
				return Result{
					Record:      rec,
					PersonID:    directory.PersonID(rec.MemberIDHint),
					MatchedYear: year,
					Tier:        TierExactID,
				}
			}
		}
	}

	for _, year := range lookbackYears {
		ix, ok := m.indexes[year]
		if !ok {
			continue
		}
		// Ambiguous keys are skipped outright (Resolve refuses them); the
		// record falls through to token overlap instead of guessing.
		id, found, err := ix.Resolve(rec.DisplayName)
		if err != nil {
			if m.log != nil {
				m.log.Debugw("ambiguous canonical name, falling through",
					"name", rec.DisplayName, "year", year)
			}
			continue
		}
		if found {
			return Result{Record: rec, PersonID: id, MatchedYear: year, Tier: TierCanonicalName}
		}
	}

	for _, year := range lookbackYears {
		ix, ok := m.indexes[year]
		if !ok {
			continue
		}
		if id, found := bestTokenOverlap(rec.DisplayName, ix); found {
			return Result{Record: rec, PersonID: id, MatchedYear: year, Tier: TierTokenOverlap}
		}
	}

	return Result{Record: rec, Tier: TierUnmatched}
}

// bestTokenOverlap selects the candidate whose name tokens overlap the
// record's the most, requiring at least one shared token. Ties break by
// lexicographic candidate name, then id, for determinism.
func bestTokenOverlap(name string, ix *directory.Index) (directory.PersonID, bool) {
	recTokens := identity.Tokens(name)
	if len(recTokens) == 0 {
		return "", false
	}

	candidates := make(directory.IDSet)
	for tok := range recTokens {
		for _, id := range ix.ByToken[tok] {
			candidates.Add(id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	ids := make([]directory.PersonID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni := identity.Normalize(ix.ByID[ids[i]].DisplayName())
		nj := identity.Normalize(ix.ByID[ids[j]].DisplayName())
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})

	var best directory.PersonID
	bestOverlap := 0
	for _, id := range ids {
		p := ix.ByID[id]
		overlap := identity.OverlapCount(recTokens, personTokens(p))
		if overlap > bestOverlap {
			best = id
			bestOverlap = overlap
		}
	}
	if bestOverlap < 1 {
		return "", false
	}
	return best, true
}

func personTokens(p directory.Person) map[string]struct{} {
	return identity.Tokens(p.FirstName + " " + p.LastName + " " + p.PreferredName)
}
