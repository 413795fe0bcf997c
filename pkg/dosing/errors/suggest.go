package errors

import "sort"

// maxSuggestionDistance bounds how far a near miss may be from a known
// token before it is no longer worth suggesting.
const maxSuggestionDistance = 2

// SuggestUnits ranks known unit tokens by edit distance to an
// unrecognized token and returns the closest matches, best first. Only
// tokens within maxSuggestionDistance edits qualify. Ties break
// alphabetically so equal inputs always produce identical output.
func SuggestUnits(unknown string, known []string, limit int) []string {
	if len(known) == 0 || limit <= 0 {
		return nil
	}

	type candidate struct {
		token string
		dist  int
	}
	candidates := make([]candidate, 0, len(known))
	for _, token := range known {
		if token == unknown {
			continue
		}
		dist := levenshteinDistance(unknown, token)
		if dist <= maxSuggestionDistance {
			candidates = append(candidates, candidate{token: token, dist: dist})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].token < candidates[j].token
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.token
	}
	return out
}

// levenshteinDistance computes the Levenshtein distance between two strings.
// This is used for finding similar unit tokens for suggestions.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	// Create distance matrix
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	// Initialize first column and row
	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	// Compute distances
	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min3(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}

// min3 returns the minimum of three integers.
func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
