package services

import "github.com/caldera-labs/assistant-cli/internal/core/domain"

// scoredMemory is a memory candidate with its query relevance and vector.
type scoredMemory struct {
	item  domain.MemoryItem
	score float64
	vec   []float32
}

// maxMarginalRelevance re-ranks candidates to balance relevance against
// redundancy. The selection is seeded with the highest-relevance
// candidate; each following pick maximises
//
//	lambda*relevance(c) - (1-lambda)*max_over_selected(cosine(c, s))
//
// until k items are chosen or candidates are exhausted. Candidates must
// be sorted by relevance descending. Cost is O(k*n) vector comparisons,
// cheap for the small on-device sets this targets.
func maxMarginalRelevance(candidates []scoredMemory, lambda float64, k int) []scoredMemory {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}

	selected := make([]scoredMemory, 0, k)
	remaining := make([]scoredMemory, len(candidates))
	copy(remaining, candidates)

	// Seed with the most relevant candidate.
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, lambda)
		for i := 1; i < len(remaining); i++ {
			if score := mmrScore(remaining[i], selected, lambda); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// mmrScore computes the marginal relevance of a candidate against the
// already-selected set.
func mmrScore(c scoredMemory, selected []scoredMemory, lambda float64) float64 {
	var maxSim float64
	for i := range selected {
		if sim := domain.CosineSimilarity(c.vec, selected[i].vec); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*c.score - (1-lambda)*maxSim
}
