// Package pipeline orchestrates one rollbook run: build the directory
// index, replay change events into historical cohorts, prune them against
// existence and lifecycle data, and resolve visitor records into per-bucket
// counts. One invocation is one single-threaded batch pass; the lifecycle
// cache is the only state that survives it.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/allocate"
	"github.com/casteleyn/rollbook/config"
	"github.com/casteleyn/rollbook/directory"
	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/lifecycle"
	"github.com/casteleyn/rollbook/match"
	"github.com/casteleyn/rollbook/replay"
	"github.com/casteleyn/rollbook/report"
)

// Params carries the collaborators and configuration for one Runner.
type Params struct {
	Config  *config.Config
	Client  directory.Client
	Reports report.Source
	Parser  report.Parser
	Cache   *lifecycle.Cache
	Logger  *zap.SugaredLogger
}

// Runner executes the batch pipeline. Construct one per run.
type Runner struct {
	cfg     *config.Config
	client  directory.Client
	reports report.Source
	parser  report.Parser
	cache   *lifecycle.Cache
	log     *zap.SugaredLogger
	runID   string

	now func() time.Time

	// built lazily, once per run
	index      *directory.Index
	categories map[string]string
}

// NewRunner creates a Runner. Every run gets a fresh id stamped into its
// log lines.
func NewRunner(p Params) *Runner {
	log := p.Logger
	runID := uuid.NewString()
	if log != nil {
		log = log.With("run_id", runID)
	}
	return &Runner{
		cfg:     p.Config,
		client:  p.Client,
		reports: p.Reports,
		parser:  p.Parser,
		cache:   p.Cache,
		log:     log,
		runID:   runID,
		now:     time.Now,
	}
}

// RunID returns this run's identifier.
func (r *Runner) RunID() string { return r.runID }

// AnchorDates returns n year-start snapshot dates, newest first, counting
// back from the start of now's year.
func AnchorDates(n int, now time.Time) []time.Time {
	anchors := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		anchors = append(anchors, time.Date(now.Year()-i, 1, 1, 0, 0, 0, 0, time.UTC))
	}
	return anchors
}

// buildIndex pages the directory once per run and memoizes the result.
func (r *Runner) buildIndex(ctx context.Context) (*directory.Index, error) {
	if r.index != nil {
		return r.index, nil
	}
	ix, err := directory.NewBuilder(r.client, r.log).Build(ctx, r.cfg.Directory.PageSize)
	if err != nil {
		return nil, err
	}
	r.index = ix
	return ix, nil
}

// categoryName translates a category id into its display name, falling back
// to the id itself when the category listing is unavailable.
func (r *Runner) categoryName(ctx context.Context, id string) string {
	if r.categories == nil {
		cats, err := r.client.ListCategories(ctx)
		if err != nil || cats == nil {
			if r.log != nil && err != nil {
				r.log.Warnw("category listing unavailable, classifying raw ids", "error", err)
			}
			cats = map[string]string{}
		}
		r.categories = cats
	}
	if name, ok := r.categories[id]; ok {
		return name
	}
	return id
}

// currentCohort derives the membership set as it stands right now from the
// live directory snapshot.
func (r *Runner) currentCohort(ctx context.Context, ix *directory.Index, classifier *replay.Classifier) directory.IDSet {
	cohort := make(directory.IDSet)
	for id, p := range ix.ByID {
		if classifier.IsMember(r.categoryName(ctx, p.CategoryID)) {
			cohort.Add(id)
		}
	}
	return cohort
}

// changeEvents downloads and parses the category-change reports covering
// every year from the oldest anchor through now. A year whose report is
// missing contributes nothing and is diagnosed, not fatal.
func (r *Runner) changeEvents(ctx context.Context, oldest time.Time) []replay.Event {
	var events []replay.Event
	for year := r.now().Year(); year >= oldest.Year(); year-- {
		raw, err := r.reports.FetchReport(ctx, year, report.CategoryChangeReport)
		if err != nil {
			if r.log != nil {
				if errors.IsMissingReport(err) {
					r.log.Warnw("category change report missing, year contributes no events", "year", year)
				} else {
					r.log.Warnw("category change report fetch failed, year contributes no events",
						"year", year, "error", err)
				}
			}
			continue
		}
		parsed, err := r.parser.ParseCategoryChangeReport(raw)
		if err != nil {
			if r.log != nil {
				r.log.Warnw("category change report unparseable, year contributes no events",
					"year", year, "error", err)
			}
			continue
		}
		events = append(events, parsed...)
	}
	return events
}

// ReconstructCohorts rebuilds cohort membership for each anchor date by
// replaying change events backwards from the current directory state, then
// pruning members who did not yet exist or had already left the population
// as of each anchor. The lifecycle cache is enriched (bounded detail
// fetches) and flushed before returning.
func (r *Runner) ReconstructCohorts(ctx context.Context, anchors []time.Time) (map[time.Time]directory.IDSet, error) {
	if len(anchors) == 0 {
		return map[time.Time]directory.IDSet{}, nil
	}

	ix, err := r.buildIndex(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reconstruct cohorts")
	}

	classifier := replay.NewClassifier(r.cfg.Cohorts.MemberCategories)
	engine := replay.NewEngine(classifier, ix, r.log)

	oldest := anchors[0]
	for _, a := range anchors[1:] {
		if a.Before(oldest) {
			oldest = a
		}
	}

	current := r.currentCohort(ctx, ix, classifier)
	events := r.changeEvents(ctx, oldest)
	raw := engine.ReconstructSeries(current, events, anchors)

	enricher := lifecycle.NewEnricher(r.client, r.cache, r.cfg.Directory.DetailRPS, r.log)
	cohorts := make(map[time.Time]directory.IDSet, len(raw))
	for anchor, cohort := range raw {
		existing := lifecycle.PruneExistence(cohort, ix, anchor)
		if err := enricher.Enrich(ctx, ix, existing); err != nil {
			return nil, errors.Wrap(err, "enrich lifecycle dates")
		}
		cohorts[anchor] = lifecycle.PruneLifecycle(existing, r.cache, anchor)
	}

	if err := r.cache.Flush(); err != nil {
		return nil, errors.Wrap(err, "flush lifecycle cache")
	}
	return cohorts, nil
}

// yearIndexes scopes the live directory to each lookback year: a person
// belongs to a year's index when they had been added to the directory by
// the end of that year (unknown DateAdded counts as present).
func (r *Runner) yearIndexes(ix *directory.Index, years []int) map[int]*directory.Index {
	indexes := make(map[int]*directory.Index, len(years))
	for _, year := range years {
		cutoff := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)
		var people []directory.Person
		for _, p := range ix.ByID {
			if p.DateAdded != nil && p.DateAdded.After(cutoff) {
				continue
			}
			people = append(people, p)
		}
		indexes[year] = directory.NewIndex(people)
	}
	return indexes
}

// MatchAndAllocate resolves visitor records for one processing year into
// per-bucket counts. Records are deduplicated, matched across the lookback
// window, aggregated by bucket, and the unmatched residue is apportioned
// with the largest-remainder allocator so the grand total is conserved
// exactly. knownDist may be nil, in which case the matched counts serve as
// the distribution.
func (r *Runner) MatchAndAllocate(ctx context.Context, records []match.Record, lookbackYears []int, knownDist map[allocate.Bucket]int) (map[allocate.Bucket]int, error) {
	ix, err := r.buildIndex(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "match and allocate")
	}

	order := bucketOrder(r.cfg)
	deduped := match.Dedupe(records, r.log)
	matcher := match.NewMatcher(r.yearIndexes(ix, lookbackYears), r.log)

	results := make([]match.Result, 0, len(deduped))
	for _, rec := range deduped {
		results = append(results, matcher.Match(rec, lookbackYears))
	}

	// The merge must stay deterministic even if matching is ever fanned
	// out per year, so results are sorted by a stable key before
	// aggregation.
	sort.Slice(results, func(i, j int) bool {
		if results[i].PersonID != results[j].PersonID {
			return results[i].PersonID < results[j].PersonID
		}
		return results[i].Record.DisplayName < results[j].Record.DisplayName
	})

	counts := make(map[allocate.Bucket]int, len(order))
	for _, b := range order {
		counts[b] = 0
	}
	unmatched := 0
	for _, res := range results {
		if res.Tier == match.TierUnmatched {
			unmatched++
			continue
		}
		counts[allocate.ClassifyLocation(res.Record.RawLocation, order)]++
	}

	dist := knownDist
	if len(dist) == 0 {
		dist = counts
	}
	allocate.Merge(counts, allocate.Allocate(unmatched, dist, order))

	if r.log != nil {
		r.log.Infow("records matched and allocated",
			"records", len(records),
			"deduped", len(deduped),
			"unmatched", unmatched,
		)
	}
	return counts, nil
}

// VisitorCounts downloads and parses the visitor report for a year, then
// matches and allocates it. A missing report yields zeroed buckets and a
// diagnostic, per the partial-result policy.
func (r *Runner) VisitorCounts(ctx context.Context, year int) (map[allocate.Bucket]int, error) {
	order := bucketOrder(r.cfg)

	raw, err := r.reports.FetchReport(ctx, year, report.VisitorReport)
	if err != nil {
		if errors.IsMissingReport(err) {
			if r.log != nil {
				r.log.Warnw("visitor report missing, year zeroed", "year", year)
			}
			return zeroCounts(order), nil
		}
		return nil, errors.Wrapf(err, "fetch visitor report %d", year)
	}

	records, err := r.parser.ParseVisitorReport(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse visitor report %d", year)
	}

	lookback := make([]int, 0, r.cfg.Matching.LookbackYears+1)
	for y := year; y >= year-r.cfg.Matching.LookbackYears; y-- {
		lookback = append(lookback, y)
	}
	return r.MatchAndAllocate(ctx, records, lookback, nil)
}

func bucketOrder(cfg *config.Config) []allocate.Bucket {
	names := cfg.BucketOrder()
	order := make([]allocate.Bucket, len(names))
	for i, n := range names {
		order[i] = allocate.Bucket(n)
	}
	return order
}

func zeroCounts(order []allocate.Bucket) map[allocate.Bucket]int {
	counts := make(map[allocate.Bucket]int, len(order))
	for _, b := range order {
		counts[b] = 0
	}
	return counts
}
