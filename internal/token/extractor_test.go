package token

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRegexExtractorCashtags(t *testing.T) {
	e := NewRegexExtractor()

	got := e.Extract("1000x incoming for $BONK and #wif, trust me")
	assert.Equal(t, []string{"BONK", "WIF"}, got)
}

func TestRegexExtractorWordMentions(t *testing.T) {
	e := NewRegexExtractor()

	got := e.Extract("the jup token is about to rip, solid coin fundamentals")
	assert.Contains(t, got, "JUP")
	// "solid coin" also matches the word pattern; filtering against the
	// instrument table is the resolver's job, not the extractor's.
	assert.Contains(t, got, "SOLID")
}

func TestRegexExtractorDeduplicates(t *testing.T) {
	e := NewRegexExtractor()

	got := e.Extract("$SOL $sol #SOL sol token")
	assert.Equal(t, []string{"SOL"}, got)
}

func TestRegexExtractorNoMatches(t *testing.T) {
	e := NewRegexExtractor()

	assert.Empty(t, e.Extract("gm everyone, beautiful morning"))
}

func TestRegexExtractorMixedCaseWordMentions(t *testing.T) {
	e := NewRegexExtractor()

	got := e.Extract("JUP Token looking strong, Wif COIN too")
	assert.Equal(t, []string{"JUP", "WIF"}, got)
}

func TestRegexExtractorNonASCIIText(t *testing.T) {
	e := NewRegexExtractor()

	// Runes whose lowercase form has a different UTF-8 length must not
	// derail extraction or produce garbage candidates.
	got := e.Extract("ȺȺȺȺȺȺȺȺȺȺ xy crypto")
	assert.Equal(t, []string{"XY"}, got)

	got = e.Extract("İİİİ jup token")
	assert.Equal(t, []string{"JUP"}, got)

	for _, sym := range e.Extract("İȺ $SOL ⱥⱥ bonk coin") {
		assert.True(t, utf8.ValidString(sym), "candidate %q is not valid UTF-8", sym)
	}
}
