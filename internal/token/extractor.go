// Package token maps free-text sentiment signals to tradable instruments.
// Extraction is a pluggable strategy so the regex heuristics can be swapped
// for a smarter lookup without touching the execution state machine.
package token

import (
	"regexp"
	"strings"
)

// Extractor produces candidate token symbols from post text, in order of
// appearance. Symbols are upper-cased but not validated against any map.
type Extractor interface {
	Extract(text string) []string
}

// cashtag/hashtag prefixes and "XYZ token|coin|crypto" suffix mentions.
var (
	taggedSymbolRe = regexp.MustCompile(`[$#]([A-Za-z][A-Za-z0-9]{1,9})\b`)
	wordSymbolRe   = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9]{1,9})\s+(?:token|coin|crypto)\b`)
)

// RegexExtractor extracts symbols via pattern matching: symbols prefixed by
// "$" or "#", and words directly followed by "token", "coin", or "crypto".
type RegexExtractor struct{}

// NewRegexExtractor returns the default pattern-based extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract implements Extractor. Candidates keep first-appearance order and
// duplicates are dropped.
func (e *RegexExtractor) Extract(text string) []string {
	var out []string
	seen := make(map[string]bool)

	appendMatch := func(sym string) {
		sym = strings.ToUpper(sym)
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}

	for _, m := range taggedSymbolRe.FindAllStringSubmatch(text, -1) {
		appendMatch(m[1])
	}
	for _, m := range wordSymbolRe.FindAllStringSubmatch(text, -1) {
		appendMatch(m[1])
	}

	return out
}
