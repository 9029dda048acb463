package lifecycle

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/casteleyn/rollbook/directory"
)

// DetailFields are the profile fields requested from the directory when
// enriching one person's lifecycle dates.
var DetailFields = []string{"date_deceased", "date_archived"}

// Enricher fills the cache with lifecycle dates for exactly the people who
// need them: currently flagged deceased or archived, not yet cached, and
// not already dated in the directory listing itself. Detail fetches are
// throttled so a large backlog does not hammer the directory service.
type Enricher struct {
	client  directory.Client
	cache   *Cache
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewEnricher creates an enricher. detailRPS bounds detail fetches per
// second; zero or negative means unthrottled.
func NewEnricher(client directory.Client, cache *Cache, detailRPS float64, log *zap.SugaredLogger) *Enricher {
	limit := rate.Inf
	if detailRPS > 0 {
		limit = rate.Limit(detailRPS)
	}
	return &Enricher{
		client:  client,
		cache:   cache,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Enrich ensures the cache holds lifecycle dates for every candidate that
// is flagged deceased or archived in the directory snapshot. Candidates are
// visited in sorted id order so fetch behavior is reproducible. A failed
// detail fetch is logged and skipped; pruning then simply lacks dates for
// that person this run.
func (e *Enricher) Enrich(ctx context.Context, ix *directory.Index, candidates directory.IDSet) error {
	ids := make([]directory.PersonID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fetched := 0
	for _, id := range ids {
		p, ok := ix.ByID[id]
		if !ok || (!p.Deceased && !p.Archived) {
			continue
		}
		if _, cached := e.cache.Get(id); cached {
			continue
		}

		// The listing sometimes already carries the dates; no fetch needed.
		if p.DateDeceased != nil || p.DateArchived != nil {
			e.cache.Put(id, Dates{Deceased: p.DateDeceased, Archived: p.DateArchived})
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		detail, err := e.client.GetPersonDetail(ctx, id, DetailFields)
		if err != nil {
			if e.log != nil {
				e.log.Warnw("lifecycle detail fetch failed, skipping person",
					"person_id", id, "error", err)
			}
			continue
		}
		e.cache.Put(id, Dates{Deceased: detail.DateDeceased, Archived: detail.DateArchived})
		fetched++
	}

	if e.log != nil && fetched > 0 {
		e.log.Infow("lifecycle cache enriched", "detail_fetches", fetched)
	}
	return nil
}
