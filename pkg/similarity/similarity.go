// Package similarity provides the pure string-similarity primitives shared
// by entity resolution, duplicate detection, and conflict detection:
// normalized Levenshtein similarity for short names and word-overlap
// (Jaccard) similarity for assertion text. No state, no I/O.
package similarity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases text and collapses whitespace so equal names map to
// the same comparison key.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

// Levenshtein computes the edit distance between two strings over runes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// NameSimilarity returns 1 - dist/max(len) over the normalized forms of two
// names, in [0, 1]. Two empty names are identical.
func NameSimilarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == nb {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(na)
	if l := utf8.RuneCountInString(nb); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(na, nb))/float64(maxLen)
}

// WordOverlap returns the Jaccard similarity of the word sets of two texts,
// in [0, 1]. Words are compared after Normalize; duplicates within a text
// do not matter.
func WordOverlap(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(Normalize(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
