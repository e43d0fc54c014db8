package showdown

import "strings"

// closest returns the candidate most similar to name and its similarity score.
// Comparison ignores case.
func closest(name string, candidates []string) (string, float64) {
	name = strings.ToLower(name)

	var (
		best      string
		bestScore float64
	)
	for _, candidate := range candidates {
		score := similarity(name, strings.ToLower(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, bestScore
}

// similarity computes a normalized similarity score between two strings.
// Returns a value between 0.0 (completely different) and 1.0 (identical).
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	maxLen := float64(max(len(r1), len(r2)))
	return 1.0 - float64(levenshtein(r1, r2))/maxLen
}

// levenshtein calculates the edit distance between two rune slices using two rows.
func levenshtein(r1, r2 []rune) int {
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
