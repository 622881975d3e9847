package matching

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Similarity scores two normalized strings in [0, 1]. It takes the higher of
// a token-set Jaccard measure (robust to word reordering) and a Levenshtein
// ratio (robust to small misspellings). Either side empty scores 0; the
// function is symmetric and deterministic.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	jaccard := tokenSetJaccard(a, b)
	edit := strutil.Similarity(a, b, metrics.NewLevenshtein())
	if jaccard > edit {
		return jaccard
	}
	return edit
}

func tokenSetJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(value string) map[string]struct{} {
	fields := strings.Fields(value)
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}
