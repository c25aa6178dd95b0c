// Package textsim provides cheap lexical similarity for short texts
// such as headlines and market questions.
package textsim

import "strings"

// Jaccard returns the Jaccard similarity of two strings in [0,1]:
// the ratio of shared to total unique whitespace-separated tokens,
// case-insensitive. Two empty strings score 0, not 1: for headline
// comparison an empty string matches nothing.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
