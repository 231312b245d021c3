package fusion

import "strings"

// similarityThreshold above which a secondary insight adds nothing.
const similarityThreshold = 0.9

// tokenSimilarity is Jaccard overlap of lowercase word sets. Cheap and
// good enough to catch two models phrasing the same argument.
func tokenSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?\"'()")
		if f != "" {
			set[f] = true
		}
	}
	return set
}
