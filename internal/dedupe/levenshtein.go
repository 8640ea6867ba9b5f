// Package dedupe detects duplicate business listings via strict key
// matching and fuzzy name comparison, and recommends merges.
package dedupe

// Levenshtein returns the edit distance between two strings, computed
// over runes so multi-byte characters count as single edits.
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
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns 1 - distance/max(len), in [0,1]. Two empty strings
// are considered identical.
func Similarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(longest)
}
