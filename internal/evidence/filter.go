// Package evidence selects and formats the usage examples that accompany a
// stamp's generation request. The filter is a relevance and safety gate: it
// keeps prompt size bounded and drops messages the generator cannot learn
// anything from (wrong language, degenerate length).
package evidence

import "unicode/utf8"

// MaxUsages caps how many usage examples are kept per source.
const MaxUsages = 5

// Bounds are the rune-length limits applied to each candidate message.
type Bounds struct {
	MinLen int
	MaxLen int
}

// DefaultBounds is the production configuration. The upper bound is
// deliberately configurable; see config.Config.
var DefaultBounds = Bounds{MinLen: 10, MaxLen: 250}

// ContainsCJK reports whether s contains at least one character in the
// hiragana/katakana (U+3040–U+30FF) or CJK unified ideograph
// (U+4E00–U+9FFF) ranges.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if (r >= 0x3040 && r <= 0x30FF) || (r >= 0x4E00 && r <= 0x9FFF) {
			return true
		}
	}
	return false
}

// Usable is the filter predicate: rune length within bounds and at least one
// CJK character. Messages failing it are dropped, never truncated.
func (b Bounds) Usable(content string) bool {
	n := utf8.RuneCountInString(content)
	if n < b.MinLen || n > b.MaxLen {
		return false
	}
	return ContainsCJK(content)
}

// FilterStrings applies the predicate to an ordered sequence of message
// bodies, preserving order and keeping at most MaxUsages entries.
func (b Bounds) FilterStrings(contents []string) []string {
	var out []string
	for _, c := range contents {
		if !b.Usable(c) {
			continue
		}
		out = append(out, c)
		if len(out) == MaxUsages {
			break
		}
	}
	return out
}
