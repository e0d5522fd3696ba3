// Package triage derives repository-level signals from embeddings and
// metadata: conflict pairs, issue-to-PR links, staleness findings, label
// suggestions, reviewer routing, contributor profiles, and backlog audits.
// Everything here is deterministic; no model calls are made.
package triage

import (
	"sort"

	"github.com/maintainerd/gatekeeper/internal/similarity"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// fileSet collects the distinct changed paths of a PR.
func fileSet(pr *types.PullRequest) map[string]struct{} {
	set := make(map[string]struct{}, len(pr.Files))
	for _, f := range pr.Files {
		set[f.Path] = struct{}{}
	}
	return set
}

// overlappingFiles returns the sorted intersection of two PRs' file sets.
func overlappingFiles(a, b *types.PullRequest) []string {
	setA := fileSet(a)
	var out []string
	for _, f := range b.Files {
		if _, ok := setA[f.Path]; ok {
			out = append(out, f.Path)
		}
	}
	sort.Strings(out)
	return dedupStrings(out)
}

// fileJaccard is the Jaccard similarity of two PRs' file sets. Two PRs with
// no files at all score 0, not 1.
func fileJaccard(a, b *types.PullRequest) float64 {
	setA := fileSet(a)
	setB := fileSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0.0
	}

	inter := 0
	for f := range setA {
		if _, ok := setB[f]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

func dedupStrings(sorted []string) []string {
	var out []string
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// DetectConflicts scores every open-PR pair by blending file-set Jaccard
// overlap with embedding similarity and reports pairs at or above threshold,
// sorted by confidence descending. prs and embeddings are index-aligned.
func DetectConflicts(
	prs []*types.PullRequest,
	embeddings [][]float64,
	fileOverlapWeight float64,
	threshold float64,
) *types.ConflictReport {
	report := &types.ConflictReport{
		TotalOpenPRs:      len(prs),
		FileOverlapWeight: fileOverlapWeight,
		Threshold:         threshold,
	}
	if len(prs) > 0 {
		report.Owner = prs[0].Owner
		report.Repo = prs[0].Repo
	}
	if len(prs) < 2 {
		return report
	}

	sim := similarity.Matrix(embeddings, embeddings)

	var pairs []types.ConflictPair
	for i := range prs {
		for j := i + 1; j < len(prs); j++ {
			jaccard := fileJaccard(prs[i], prs[j])
			embSim := 0.0
			if sim != nil {
				embSim = sim[i][j]
			}
			confidence := similarity.Blend(jaccard, fileOverlapWeight, embSim)
			if confidence < threshold {
				continue
			}
			pairs = append(pairs, types.ConflictPair{
				PRA:                prs[i].Number,
				PRB:                prs[j].Number,
				PRATitle:           prs[i].Title,
				PRBTitle:           prs[j].Title,
				OverlappingFiles:   overlappingFiles(prs[i], prs[j]),
				FileOverlap:        jaccard,
				SemanticSimilarity: embSim,
				Confidence:         confidence,
			})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Confidence > pairs[b].Confidence
	})
	report.Pairs = pairs
	return report
}
