// Package allocate apportions unmatched record counts across category
// buckets using the largest-remainder (Hamilton) method. The one invariant
// that matters: the allocated values always sum to exactly the input total,
// so no record is ever lost or double-counted by rounding.
package allocate

import "sort"

// Bucket is a destination category for per-year counts: the named service
// or time buckets plus the catch-all Overall.
type Bucket string

// Overall is the catch-all bucket present in every bucket order.
const Overall Bucket = "Overall"

// Allocate distributes total across the buckets in order, proportionally to
// the known distribution dist. Buckets absent from dist count as zero.
//
// If dist sums to zero there is no signal to apportion by, so the total is
// split as evenly as possible, with the remainder going to the earliest
// buckets in order. Otherwise each bucket receives the floor of its exact
// proportional share, and the leftover units go one each to the buckets
// with the largest fractional remainder, ties broken by position in order.
// Deterministic for identical inputs.
func Allocate(total int, dist map[Bucket]int, order []Bucket) map[Bucket]int {
	result := make(map[Bucket]int, len(order))
	for _, b := range order {
		result[b] = 0
	}
	if total <= 0 || len(order) == 0 {
		return result
	}

	known := 0
	for _, b := range order {
		known += dist[b]
	}

	if known == 0 {
		base := total / len(order)
		rem := total % len(order)
		for i, b := range order {
			result[b] = base
			if i < rem {
				result[b]++
			}
		}
		return result
	}

	type remainder struct {
		pos  int
		frac float64
	}
	remainders := make([]remainder, 0, len(order))

	allocated := 0
	for i, b := range order {
		exact := float64(total) * float64(dist[b]) / float64(known)
		base := int(exact)
		result[b] = base
		allocated += base
		remainders = append(remainders, remainder{pos: i, frac: exact - float64(base)})
	}

	// Hand the leftover units to the largest fractional remainders,
	// falling back to bucket order on ties.
	sort.SliceStable(remainders, func(i, j int) bool {
		if remainders[i].frac != remainders[j].frac {
			return remainders[i].frac > remainders[j].frac
		}
		return remainders[i].pos < remainders[j].pos
	})

	for i := 0; i < total-allocated; i++ {
		result[order[remainders[i].pos]]++
	}

	return result
}

// Sum returns the total count across all buckets in a distribution.
func Sum(dist map[Bucket]int) int {
	n := 0
	for _, v := range dist {
		n += v
	}
	return n
}

// Merge adds every count in src into dst, creating buckets as needed.
func Merge(dst, src map[Bucket]int) {
	for b, v := range src {
		dst[b] += v
	}
}
