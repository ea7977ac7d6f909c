// Package match scores candidate complex names against a query. Scoring uses
// a longest-matching-block similarity ratio over normalized strings, not an
// edit distance: "래미안프레스티지" and "래미안 프레스티지" collapse to the
// same normal form, and partial brand names still score usefully high.
package match

import (
	"strings"
	"unicode"
)

// Matcher holds the two policy thresholds. Both are configuration, not law:
// EarlyExit is the similarity above which a traversal halts on the spot, and
// MinScore is the floor below which the best candidate is discarded.
type Matcher struct {
	EarlyExit float64
	MinScore  float64
}

func New(earlyExit, minScore float64) *Matcher {
	return &Matcher{EarlyExit: earlyExit, MinScore: minScore}
}

// Normalize lower-cases and removes all whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Prefilter is the cheap containment check applied before scoring: the
// normalized query must be a substring of the normalized candidate, or the
// other way around.
func Prefilter(query, candidate string) bool {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return false
	}
	return strings.Contains(c, q) || strings.Contains(q, c)
}

// Score returns the similarity of two strings in [0, 1] after normalization.
// The ratio is 2*M/T where M is the total length of the matching blocks
// (longest common block, then recursively to either side) and T the combined
// length. Inputs are ordered internally, so Score(a, b) == Score(b, a).
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na > nb {
		na, nb = nb, na
	}
	ra, rb := []rune(na), []rune(nb)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return 2 * float64(matchedLen(ra, rb)) / float64(total)
}

// IsEarlyExit reports whether a score clears the halt-immediately threshold.
func (m *Matcher) IsEarlyExit(score float64) bool {
	return score > m.EarlyExit
}

// Accepts reports whether a completed traversal's best score is good enough
// to count as a match at all.
func (m *Matcher) Accepts(score float64) bool {
	return score > m.MinScore
}

// matchedLen sums the matching blocks of a and b: find the longest common
// block, then recurse into the unmatched prefixes and suffixes.
func matchedLen(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	bestLen, bestA, bestB := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestLen {
					bestLen, bestA, bestB = cur[j], i, j
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}

	if bestLen == 0 {
		return 0
	}
	return bestLen +
		matchedLen(a[:bestA-bestLen], b[:bestB-bestLen]) +
		matchedLen(a[bestA:], b[bestB:])
}
