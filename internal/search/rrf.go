package search

import "sort"

// Reciprocal rank fusion over independently ranked lists. Each list
// contributes 1/(k+rank) per document with rank starting at 1, so a
// document ranked #1 in both of two lists with k=60 scores
// 1/61 + 1/61. Fusion works on ranks alone: the legs' native scores are
// not comparable and are ignored.

// Fused is one document after fusion.
type Fused struct {
	ID    string
	Score float64
}

// fuse merges ranked ID lists. Results sort by fused score descending,
// with ties broken by ID ascending so output is deterministic.
func fuse(k int, lists ...[]string) []Fused {
	if k <= 0 {
		k = 60
	}

	scores := make(map[string]float64)
	for _, list := range lists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}

	fused := make([]Fused, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, Fused{ID: id, Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}
