package directory

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/identity"
)

// Index holds the per-run lookup structures over directory people.
// Built once per invocation and read-only afterwards.
type Index struct {
	// ByID maps person id to the full snapshot.
	ByID map[PersonID]Person

	// ByName maps a canonical (sorted-token) name key to every person id
	// registered under it. A key held by two or more distinct ids is
	// ambiguous: it stays a set so no caller can silently pick one.
	ByName map[string]IDSet

	// ByToken maps one normalized name token to candidate person ids, in
	// deterministic (registration, then id) order.
	ByToken map[string][]PersonID
}

// NewIndex builds an Index over a fixed slice of people. Every plausible
// name variant is registered: first-last, last-first, preferred-last,
// first only, last only. Variants that normalize to nothing are dropped.
func NewIndex(people []Person) *Index {
	ix := &Index{
		ByID:    make(map[PersonID]Person, len(people)),
		ByName:  make(map[string]IDSet),
		ByToken: make(map[string][]PersonID),
	}
	for _, p := range people {
		ix.add(p)
	}
	// Candidate lists stay deterministic regardless of map iteration
	// anywhere upstream.
	for tok := range ix.ByToken {
		ids := ix.ByToken[tok]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		ix.ByToken[tok] = dedupeIDs(ids)
	}
	return ix
}

func (ix *Index) add(p Person) {
	if p.ID == "" {
		return
	}
	ix.ByID[p.ID] = p

	seen := make(map[string]struct{}, 5)
	for _, variant := range nameVariants(p) {
		key := identity.SortedKey(variant)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if ix.ByName[key] == nil {
			ix.ByName[key] = make(IDSet, 1)
		}
		ix.ByName[key].Add(p.ID)

		for tok := range identity.Tokens(variant) {
			ix.ByToken[tok] = append(ix.ByToken[tok], p.ID)
		}
	}
}

func nameVariants(p Person) []string {
	variants := []string{
		p.FirstName + " " + p.LastName,
		p.LastName + " " + p.FirstName,
		p.FirstName,
		p.LastName,
	}
	if p.PreferredName != "" {
		variants = append(variants, p.PreferredName+" "+p.LastName)
	}
	return variants
}

func dedupeIDs(sorted []PersonID) []PersonID {
	out := sorted[:0]
	var prev PersonID
	for i, id := range sorted {
		if i > 0 && id == prev {
			continue
		}
		out = append(out, id)
		prev = id
	}
	return out
}

// Resolve returns the single person id registered under the canonical key
// for name. The second return is false when the key is unknown, and the
// error is ErrAmbiguousNameKey when the key maps to several people;
// ambiguous keys are never resolved to an arbitrary winner.
func (ix *Index) Resolve(name string) (PersonID, bool, error) {
	key := identity.SortedKey(name)
	ids, ok := ix.ByName[key]
	if !ok || len(ids) == 0 {
		return "", false, nil
	}
	if len(ids) > 1 {
		return "", false, errors.Wrapf(errors.ErrAmbiguousNameKey, "key %q has %d people", key, len(ids))
	}
	for id := range ids {
		return id, true, nil
	}
	return "", false, nil
}

// Ambiguous reports whether the canonical key for name maps to more than
// one person id.
func (ix *Index) Ambiguous(name string) bool {
	return len(ix.ByName[identity.SortedKey(name)]) > 1
}

// Len returns the number of people in the index.
func (ix *Index) Len() int { return len(ix.ByID) }

// Builder pages through the directory once per run and produces the Index.
type Builder struct {
	client Client
	log    *zap.SugaredLogger
}

// NewBuilder creates an index builder over the given transport client.
// Logger may be nil for silent operation.
func NewBuilder(client Client, log *zap.SugaredLogger) *Builder {
	return &Builder{client: client, log: log}
}

// Build pages through the directory until exhausted and indexes every
// person. Stop conditions, in order of availability: an empty page, the
// server-reported page count reached, or a page shorter than pageSize.
// A directory that yields no people at all is fatal: the whole run has
// nothing to operate on.
func (b *Builder) Build(ctx context.Context, pageSize int) (*Index, error) {
	if pageSize <= 0 {
		return nil, errors.Newf("page size must be positive, got %d", pageSize)
	}

	var people []Person
	for page := 1; ; page++ {
		result, err := b.client.ListPeople(ctx, page, pageSize)
		if err != nil {
			return nil, errors.Wrapf(err, "list people page %d", page)
		}
		if len(result.People) == 0 {
			break
		}
		people = append(people, result.People...)

		if result.TotalPages > 0 && page >= result.TotalPages {
			break
		}
		if result.TotalPages == 0 && len(result.People) < pageSize {
			// No reported page count; a short page means we are done.
			break
		}
	}

	if len(people) == 0 {
		return nil, errors.WithHint(
			errors.ErrEmptyDirectory,
			"check directory credentials and connectivity",
		)
	}

	ix := NewIndex(people)
	if b.log != nil {
		b.log.Infow("directory index built",
			"people", ix.Len(),
			"name_keys", len(ix.ByName),
			"tokens", len(ix.ByToken),
		)
	}
	return ix, nil
}
