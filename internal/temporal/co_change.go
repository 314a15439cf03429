package temporal

import (
	"math"
	"sort"
)

// Related is one co-change neighbor of a file.
type Related struct {
	Path  string
	Score float64
}

// CoChangeScore returns the Jaccard similarity of two files' commit sets:
// co / (commits(A) + commits(B) - co). Symmetric, in [0,1], and 0 when the
// denominator is 0.
func (a *Accumulator) CoChangeScore(fileA, fileB string) float64 {
	co := a.pairCounts[makePair(fileA, fileB)]
	if co == 0 {
		return 0
	}
	countA := a.FileCommitCount(fileA)
	countB := a.FileCommitCount(fileB)
	denom := countA + countB - co
	if denom <= 0 {
		return 0
	}
	return roundScore(float64(co) / float64(denom))
}

// Scores computes every file's co-change map, keeping only neighbors at or
// above the configured floor. Stored bidirectionally, matching the
// symmetric definition.
func (a *Accumulator) Scores() map[string]map[string]float64 {
	scores := make(map[string]map[string]float64)

	for p, co := range a.pairCounts {
		denom := a.FileCommitCount(p.A) + a.FileCommitCount(p.B) - co
		if denom <= 0 {
			continue
		}
		score := roundScore(float64(co) / float64(denom))
		if score < a.cfg.MinCoChangeScore {
			continue
		}
		if scores[p.A] == nil {
			scores[p.A] = make(map[string]float64)
		}
		if scores[p.B] == nil {
			scores[p.B] = make(map[string]float64)
		}
		scores[p.A][p.B] = score
		scores[p.B][p.A] = score
	}

	return scores
}

// RelatedFiles returns a file's neighbors above the floor, sorted by score
// descending, ties broken by lexicographic path order for determinism.
func (a *Accumulator) RelatedFiles(path string) []Related {
	neighbors := a.Scores()[path]
	if len(neighbors) == 0 {
		return nil
	}

	related := make([]Related, 0, len(neighbors))
	for other, score := range neighbors {
		related = append(related, Related{Path: other, Score: score})
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].Score != related[j].Score {
			return related[i].Score > related[j].Score
		}
		return related[i].Path < related[j].Path
	})
	return related
}

func roundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
