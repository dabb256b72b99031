package textutil

import "sort"

// CosineSimilarity scores two fingerprints in [0, 1]. Nil fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// TitleSimilarity compares two titles directly.
func TitleSimilarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}

// RankIndexes returns the indexes of titles ordered by similarity to query,
// most similar first. Ties keep their original order.
func RankIndexes(query string, titles []string) []int {
	target := NewFingerprint(query)
	scores := make([]float64, len(titles))
	order := make([]int, len(titles))
	for i, title := range titles {
		scores[i] = CosineSimilarity(target, NewFingerprint(title))
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order
}
