package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// unitVec returns a basis vector for embedding fixtures: identical indices
// are perfectly similar, distinct indices are orthogonal.
func unitVec(i int) []float64 {
	v := make([]float64, 4)
	v[i] = 1.0
	return v
}

func prWithFiles(number int, title string, paths ...string) *types.PullRequest {
	files := make([]types.FileChange, len(paths))
	for i, p := range paths {
		files[i] = types.FileChange{Path: p, Additions: 10}
	}
	return &types.PullRequest{
		Owner: "acme", Repo: "widgets",
		Number: number, Title: title, Files: files,
	}
}

func TestFileJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b *types.PullRequest
		want float64
	}{
		{
			"half overlap",
			prWithFiles(1, "a", "x.go", "y.go"),
			prWithFiles(2, "b", "x.go"),
			0.5,
		},
		{
			"identical sets",
			prWithFiles(1, "a", "x.go"),
			prWithFiles(2, "b", "x.go"),
			1.0,
		},
		{
			"disjoint sets",
			prWithFiles(1, "a", "x.go"),
			prWithFiles(2, "b", "y.go"),
			0.0,
		},
		{
			"both empty scores zero not one",
			prWithFiles(1, "a"),
			prWithFiles(2, "b"),
			0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, fileJaccard(tt.a, tt.b), 1e-9)
		})
	}
}

func TestDetectConflictsBlendsOverlapAndSimilarity(t *testing.T) {
	prs := []*types.PullRequest{
		prWithFiles(1, "Refactor auth flow", "auth/session.go", "auth/token.go"),
		prWithFiles(2, "Fix auth session bug", "auth/session.go"),
		prWithFiles(3, "Update docs", "docs/guide.md"),
	}
	embeddings := [][]float64{unitVec(0), unitVec(0), unitVec(1)}

	report := DetectConflicts(prs, embeddings, 0.6, 0.5)

	assert.Equal(t, "acme", report.Owner)
	assert.Equal(t, 3, report.TotalOpenPRs)
	require.Len(t, report.Pairs, 1)

	pair := report.Pairs[0]
	assert.Equal(t, 1, pair.PRA)
	assert.Equal(t, 2, pair.PRB)
	assert.Equal(t, []string{"auth/session.go"}, pair.OverlappingFiles)
	assert.InDelta(t, 0.5, pair.FileOverlap, 1e-9)
	assert.InDelta(t, 1.0, pair.SemanticSimilarity, 1e-9)
	// 0.6*0.5 + 0.4*1.0
	assert.InDelta(t, 0.7, pair.Confidence, 1e-9)
}

func TestDetectConflictsSortsByConfidence(t *testing.T) {
	prs := []*types.PullRequest{
		prWithFiles(1, "a", "x.go"),
		prWithFiles(2, "b", "x.go"),
		prWithFiles(3, "c", "x.go", "y.go", "z.go"),
	}
	embeddings := [][]float64{unitVec(0), unitVec(0), unitVec(0)}

	report := DetectConflicts(prs, embeddings, 0.6, 0.5)
	require.Len(t, report.Pairs, 3)
	for i := 1; i < len(report.Pairs); i++ {
		assert.GreaterOrEqual(t, report.Pairs[i-1].Confidence, report.Pairs[i].Confidence)
	}
	// The identical pair (1,2) outranks the partial overlaps.
	assert.Equal(t, 1, report.Pairs[0].PRA)
	assert.Equal(t, 2, report.Pairs[0].PRB)
}

func TestDetectConflictsTooFewPRs(t *testing.T) {
	report := DetectConflicts(
		[]*types.PullRequest{prWithFiles(1, "solo", "x.go")},
		[][]float64{unitVec(0)}, 0.6, 0.5,
	)
	assert.Empty(t, report.Pairs)
	assert.Equal(t, 1, report.TotalOpenPRs)

	empty := DetectConflicts(nil, nil, 0.6, 0.5)
	assert.Empty(t, empty.Pairs)
	assert.Zero(t, empty.TotalOpenPRs)
}
