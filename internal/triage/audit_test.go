package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/heuristics"
	"github.com/maintainerd/gatekeeper/internal/ingest"
	"github.com/maintainerd/gatekeeper/internal/types"
	"github.com/maintainerd/gatekeeper/internal/vision"
)

func auditCleanPR(number int) *types.PullRequest {
	return &types.PullRequest{
		Owner:  "acme",
		Repo:   "widgets",
		Number: number,
		Title:  "Clarify reload semantics in docs",
		Body:   "Documents the plugin reload ordering guarantees discussed in the maintainers sync.",
		Author: types.Author{
			Login:               "veteran",
			AccountCreatedAt:    time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
			ContributionsToRepo: 12,
		},
		Files: []types.FileChange{
			{Path: "docs/reload.md", Status: "modified", Additions: 5, Deletions: 1},
		},
		TotalAdditions: 5,
		TotalDeletions: 1,
		CreatedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func auditSuspiciousPR(number int) *types.PullRequest {
	return &types.PullRequest{
		Owner:  "acme",
		Repo:   "widgets",
		Number: number,
		Title:  "Fixed some stuff",
		Body:   "",
		Author: types.Author{
			Login:               "newbie",
			AccountCreatedAt:    time.Now().Add(-5 * 24 * time.Hour),
			ContributionsToRepo: 0,
		},
		Files: []types.FileChange{
			{Path: "src/auth/login.py", Status: "modified", Additions: 50, Deletions: 10},
			{Path: "requirements.txt", Status: "modified", Additions: 3, Deletions: 0},
		},
		TotalAdditions: 53,
		TotalDeletions: 10,
		CreatedAt:      time.Now(),
	}
}

func TestFindDuplicateClusters(t *testing.T) {
	prs := []*types.PullRequest{
		auditCleanPR(1),
		auditCleanPR(2),
		auditSuspiciousPR(3),
	}
	embeddings := [][]float64{unitVec(0), unitVec(0), unitVec(1)}

	clusters := FindDuplicateClusters(prs, embeddings, 0.90)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Members, 2)

	anchor := clusters[0].Members[0]
	assert.True(t, anchor.Anchor)
	assert.Equal(t, 1, anchor.Number)
	assert.Equal(t, "veteran", anchor.Author)

	follower := clusters[0].Members[1]
	assert.False(t, follower.Anchor)
	assert.Equal(t, 2, follower.Number)
	assert.InDelta(t, 1.0, follower.Similarity, 1e-9)
}

func TestFindDuplicateClustersNoDuplicates(t *testing.T) {
	prs := []*types.PullRequest{auditCleanPR(1), auditSuspiciousPR(2)}
	embeddings := [][]float64{unitVec(0), unitVec(1)}
	assert.Empty(t, FindDuplicateClusters(prs, embeddings, 0.90))
}

func TestBuildAuditReport(t *testing.T) {
	cfg := config.Default()
	heur := heuristics.New(&cfg)

	prs := []*types.PullRequest{
		auditCleanPR(1),
		auditCleanPR(2), // near-identical to #1: counted as a duplicate
		auditSuspiciousPR(3),
	}
	embeddings := [][]float64{unitVec(0), unitVec(0), unitVec(1)}

	report := BuildAuditReport("acme", "widgets", prs, embeddings, heur, nil, time.Now())

	assert.Equal(t, 3, report.PRsAnalyzed)
	assert.Len(t, report.Clusters090, 1)
	assert.Equal(t, 1, report.RecommendCloseCount, "cluster follower, not the anchor")

	// The duplicate follower is excluded from the verdict distribution:
	// the clean anchor fast-tracks, the suspicious PR needs review.
	assert.Equal(t, 1, report.FastTrackCount)
	assert.Equal(t, 1, report.ReviewRequiredCount)

	assert.GreaterOrEqual(t, report.FlagFrequency["new_account"], 1)
	assert.GreaterOrEqual(t, report.FlagFrequency["sensitive_paths"], 1)

	require.NotEmpty(t, report.HighestRisk)
	top := report.HighestRisk[0]
	assert.Equal(t, 3, top.PRNumber)
	assert.Equal(t, "newbie", top.Author)
	assert.NotZero(t, top.HighSeverityCount)
	assert.Contains(t, top.Flags, "new_account")

	assert.Equal(t, 2, report.UniqueAuthors)
	assert.Equal(t, 1, report.FirstTimeContributors)
	assert.Equal(t, 1, report.NewAccounts)
	assert.GreaterOrEqual(t, report.SensitivePathPRs, 1)
}

// auditFetcher serves canned PRs, with configurable failures.
type auditFetcher struct {
	open    []int
	prs     map[int]*types.PullRequest
	failing map[int]bool
}

var _ ingest.Fetcher = (*auditFetcher)(nil)

func (f *auditFetcher) ListOpenPRNumbers(context.Context, string, string) ([]int, error) {
	return f.open, nil
}

func (f *auditFetcher) ListOpenIssueNumbers(context.Context, string, string) ([]int, error) {
	return nil, nil
}

func (f *auditFetcher) ListMergedPRNumbers(context.Context, string, string, int) ([]int, error) {
	return nil, nil
}

func (f *auditFetcher) ListPRNumbersByAuthor(context.Context, string, string, string) ([]int, error) {
	return nil, nil
}

func (f *auditFetcher) FetchPR(_ context.Context, _, _ string, number int) (*types.PullRequest, error) {
	if f.failing[number] {
		return nil, errors.New("boom")
	}
	return f.prs[number], nil
}

func (f *auditFetcher) FetchIssue(context.Context, string, string, int) (*types.Issue, error) {
	return nil, errors.New("not implemented")
}

func (f *auditFetcher) FetchRepoLabels(context.Context, string, string) ([]types.LabelDefinition, error) {
	return nil, nil
}

func (f *auditFetcher) FetchCodeowners(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *auditFetcher) FetchReviewers(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

// titleEmbedder maps the first line of the embedding text (the item title)
// to a fixture vector, so tests control which PRs cluster.
type titleEmbedder struct {
	vecs map[string][]float64
}

func (e *titleEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	title, _, _ := strings.Cut(text, "\n")
	if v, ok := e.vecs[title]; ok {
		return v, nil
	}
	return unitVec(3), nil
}

func TestAuditorRun(t *testing.T) {
	cfg := config.Default()

	dup := auditCleanPR(2)
	dup.Title = "Clarify reload semantics in the docs"

	fetcher := &auditFetcher{
		open: []int{1, 2, 3, 4},
		prs: map[int]*types.PullRequest{
			1: auditCleanPR(1),
			2: dup,
			3: auditSuspiciousPR(3),
			4: auditCleanPR(4),
		},
		failing: map[int]bool{4: true},
	}
	embedder := &titleEmbedder{vecs: map[string][]float64{
		"Clarify reload semantics in docs":     unitVec(0),
		"Clarify reload semantics in the docs": unitVec(0),
		"Fixed some stuff":                     unitVec(1),
	}}

	auditor := NewAuditor(&cfg, fetcher, embedder)
	report, err := auditor.Run(context.Background(), "acme", "widgets", 10,
		&vision.Document{Project: "widgets"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalOpenPRs)
	assert.Equal(t, 3, report.PRsAnalyzed, "failed fetch is skipped, not fatal")
	assert.Equal(t, 1, report.RecommendCloseCount)
	assert.Equal(t, "widgets", report.VisionDocument)
	assert.GreaterOrEqual(t, report.ElapsedSeconds, 0.0)
}

func TestAuditorRunCapsCount(t *testing.T) {
	cfg := config.Default()
	fetcher := &auditFetcher{
		open: []int{1, 2, 3},
		prs: map[int]*types.PullRequest{
			1: auditCleanPR(1),
			2: auditCleanPR(2),
			3: auditCleanPR(3),
		},
	}
	auditor := NewAuditor(&cfg, fetcher, &titleEmbedder{})

	report, err := auditor.Run(context.Background(), "acme", "widgets", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalOpenPRs)
	assert.Equal(t, 2, report.PRsAnalyzed)
}
