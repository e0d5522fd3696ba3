// Package pipeline runs the three-tier gated triage pipeline: dedup,
// heuristics, and vision alignment. Each tier can gate the item and
// short-circuit the tiers behind it.
package pipeline

import (
	"github.com/maintainerd/gatekeeper/internal/similarity"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// CheckPRDuplicates compares a PR embedding against existing PR embeddings
// and gates when the strongest match reaches threshold. Self-comparison by
// PR number is skipped. existing and embeddings must be index-aligned.
func CheckPRDuplicates(
	pr *types.PullRequest,
	embedding []float64,
	existing []*types.PullRequest,
	embeddings [][]float64,
	threshold float64,
) *types.DedupResult {
	if len(existing) == 0 || len(embeddings) == 0 {
		return &types.DedupResult{Outcome: types.TierPass}
	}

	idx, maxSim := similarity.BestMatch(embedding, embeddings, func(j int) bool {
		return j < len(existing) && existing[j].Number == pr.Number
	})
	return dedupVerdict(idx, maxSim, threshold, func(i int) int { return existing[i].Number })
}

// CheckIssueDuplicates is the issue counterpart of CheckPRDuplicates.
func CheckIssueDuplicates(
	issue *types.Issue,
	embedding []float64,
	existing []*types.Issue,
	embeddings [][]float64,
	threshold float64,
) *types.DedupResult {
	if len(existing) == 0 || len(embeddings) == 0 {
		return &types.DedupResult{Outcome: types.TierPass}
	}

	idx, maxSim := similarity.BestMatch(embedding, embeddings, func(j int) bool {
		return j < len(existing) && existing[j].Number == issue.Number
	})
	return dedupVerdict(idx, maxSim, threshold, func(i int) int { return existing[i].Number })
}

func dedupVerdict(idx int, maxSim, threshold float64, numberOf func(int) int) *types.DedupResult {
	if idx >= 0 && maxSim >= threshold {
		return &types.DedupResult{
			Outcome:       types.TierGated,
			IsDuplicate:   true,
			DuplicateOf:   numberOf(idx),
			MaxSimilarity: maxSim,
		}
	}
	return &types.DedupResult{
		Outcome:       types.TierPass,
		MaxSimilarity: maxSim,
	}
}

// SkippedDedup is the Tier-1 result when no embedding is available.
func SkippedDedup() *types.DedupResult {
	return &types.DedupResult{Outcome: types.TierSkipped}
}
