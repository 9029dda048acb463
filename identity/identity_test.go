package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "Jo Smith", want: "jo smith"},
		{name: "last comma first", input: "Smith, Jo", want: "smith jo"},
		{name: "punctuation collapses", input: "O'Brien-Smith,  Jo.", want: "o brien smith jo"},
		{name: "leading and trailing junk", input: "  **Jo Smith**  ", want: "jo smith"},
		{name: "digits survive", input: "Jo Smith 2nd", want: "jo smith 2nd"},
		{name: "empty", input: "", want: ""},
		{name: "only punctuation", input: "-- , !!", want: ""},
		{name: "unicode letters kept", input: "Zoë Müller", want: "zoë müller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Smith, Jo", "  weird -- spacing  ", "ALLCAPS NAME", "", "a",
		"Mixed. Case-Name", "tabs\tand\nnewlines",
	}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestSortedKey(t *testing.T) {
	assert.Equal(t, SortedKey("Jo Smith"), SortedKey("Smith, Jo"))
	assert.Equal(t, "jo smith", SortedKey("Smith Jo"))
	assert.Equal(t, "jo", SortedKey("Jo"))
	assert.Equal(t, "", SortedKey("!!"))
}

func TestTokens(t *testing.T) {
	toks := Tokens("Smith, Jo-Anne")
	assert.Len(t, toks, 3)
	assert.Contains(t, toks, "smith")
	assert.Contains(t, toks, "jo")
	assert.Contains(t, toks, "anne")
}

func TestOverlapCount(t *testing.T) {
	a := Tokens("Jo Anne Smith")
	b := Tokens("Smith, Jo")
	assert.Equal(t, 2, OverlapCount(a, b))
	assert.Equal(t, 2, OverlapCount(b, a))
	assert.Equal(t, 0, OverlapCount(a, Tokens("Pat Jones")))
	assert.Equal(t, 0, OverlapCount(a, Tokens("")))
}

func TestWellFormedID(t *testing.T) {
	assert.True(t, WellFormedID("12345"))
	assert.True(t, WellFormedID("0"))
	assert.True(t, WellFormedID("abc-123"))
	assert.False(t, WellFormedID(""))
	assert.False(t, WellFormedID("-123"))
	assert.False(t, WellFormedID("abc-"))
	assert.False(t, WellFormedID("ab--cd"))
	assert.False(t, WellFormedID("12 34"))
	assert.False(t, WellFormedID("#12"))
	assert.False(t, WellFormedID("n/a"))
}
