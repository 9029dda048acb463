package allocate

import (
	"strings"

	"github.com/casteleyn/rollbook/identity"
)

// ClassifyLocation maps a record's free-text location to a destination
// bucket. A record belongs to the first bucket in order whose normalized
// name appears whole in the normalized location text; anything that matches
// no named bucket lands in Overall. All keyword heuristics live here so
// they can change without touching callers.
func ClassifyLocation(raw string, order []Bucket) Bucket {
	text := " " + identity.Normalize(raw) + " "
	for _, b := range order {
		if b == Overall {
			continue
		}
		key := identity.Normalize(string(b))
		if key == "" {
			continue
		}
		if strings.Contains(text, " "+key+" ") {
			return b
		}
	}
	return Overall
}
