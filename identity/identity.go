// Package identity canonicalizes raw name and identifier strings into
// comparable keys. Directory exports and scraped report rows disagree on
// casing, punctuation and name order ("Last, First" vs "First Last"), so all
// matching goes through these transforms instead of comparing raw strings.
package identity

import (
	"sort"
	"strings"
	"unicode"
)

// Normalize lowercases a name, replaces every run of non-alphanumeric
// characters with a single space, and trims. Idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastWasSpace := true // leading separators produce no space
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteByte(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// SortedKey returns the order-insensitive canonical key for a name: the
// normalized tokens sorted alphabetically and rejoined with single spaces.
// "Smith, Jo" and "Jo Smith" share the key "jo smith".
func SortedKey(name string) string {
	tokens := strings.Fields(Normalize(name))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Tokens returns the set of normalized tokens in a name.
func Tokens(name string) map[string]struct{} {
	fields := strings.Fields(Normalize(name))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// OverlapCount returns the number of tokens present in both sets.
func OverlapCount(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

// WellFormedID reports whether s matches the directory service's person id
// syntax: one or more ASCII alphanumeric runs joined by single hyphens
// (e.g. "29043781" or "abc-123"). Report rows sometimes carry mangled hints
// ("#12 34", "n/a", ""); those must fall through to name matching rather
// than producing a bogus exact-id lookup.
func WellFormedID(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	prevHyphen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			prevHyphen = false
		case c == '-':
			if prevHyphen {
				return false
			}
			prevHyphen = true
		default:
			return false
		}
	}
	return true
}
