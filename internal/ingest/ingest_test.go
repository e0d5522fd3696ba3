package ingest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintainerd/gatekeeper/internal/cache"
	"github.com/maintainerd/gatekeeper/internal/types"
)

func TestExtractLinkedIssues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []int
	}{
		{"empty body", "", nil},
		{"no references", "Just a plain description.", nil},
		{"fixes keyword", "Fixes #12", []int{12}},
		{"closes keyword", "closes #7 and resolves #9", []int{7, 9}},
		{"bare reference", "See #34 for context", []int{34}},
		{"mixed and duplicated", "Fixes #5, also touches #5 and #3", []int{3, 5}},
		{"case insensitive", "FIXED #2? no, CLOSED #2", []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLinkedIssues(tt.body))
		})
	}
}

func TestPREmbeddingTextBounds(t *testing.T) {
	longBody := ""
	for i := 0; i < 200; i++ {
		longBody += "0123456789"
	}
	longDiff := ""
	for i := 0; i < 150; i++ {
		longDiff += fmt.Sprintf("+ line %d\n", i)
	}

	pr := &types.PullRequest{
		Title:    "Add retry logic",
		Body:     longBody,
		Files:    []types.FileChange{{Path: "a.go"}, {Path: "b.go"}},
		DiffText: longDiff,
	}
	text := PREmbeddingText(pr)

	assert.Contains(t, text, "Add retry logic")
	assert.Contains(t, text, "a.go b.go")
	assert.Contains(t, text, "+ line 99")
	assert.NotContains(t, text, "+ line 100", "diff capped at 100 lines")
	assert.Less(t, len(text), len(longBody)+len(longDiff), "body capped at 1000 chars")
}

func TestIssueEmbeddingText(t *testing.T) {
	issue := &types.Issue{
		Title:  "Crash on startup",
		Body:   "Stack trace attached",
		Labels: []string{"bug", "p1"},
	}
	text := IssueEmbeddingText(issue)
	assert.Equal(t, "Crash on startup\nStack trace attached\nbug p1", text)

	bare := &types.Issue{Title: "Question"}
	assert.Equal(t, "Question", IssueEmbeddingText(bare))
}

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"empty", "", ""},
		{
			"next present",
			`<https://api.github.com/repos/a/b/pulls?page=2>; rel="next", <https://api.github.com/repos/a/b/pulls?page=5>; rel="last"`,
			"https://api.github.com/repos/a/b/pulls?page=2",
		},
		{
			"only prev and last",
			`<https://api.github.com/x?page=1>; rel="prev", <https://api.github.com/x?page=5>; rel="last"`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextPageURL(tt.link))
		})
	}
}

func TestLocalEmbedderDeterministicAndNormalized(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "fix login crash when token expires")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "fix login crash when token expires")
	require.NoError(t, err)
	assert.Equal(t, a, b, "same text, same vector")
	assert.Len(t, a, embeddingDims)

	norm := 0.0
	for _, x := range a {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-9, "unit length")

	c, err := e.Embed(ctx, "add dark mode to settings page")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	e := NewLocalEmbedder()
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vec, embeddingDims)
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestLocalEmbedderSimilarTextsScoreHigher(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	base, _ := e.Embed(ctx, "fix crash in login handler")
	near, _ := e.Embed(ctx, "fix crash in the login handler code")
	far, _ := e.Embed(ctx, "update documentation for release process")

	assert.Greater(t, dot(base, near), dot(base, far))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	if math.IsNaN(sum) {
		return 0
	}
	return sum
}

// fakeFetcher counts fetches so tests can assert cache hits avoid the network.
type fakeFetcher struct {
	prFetches    int
	issueFetches int
	openPRs      []int
	openIssues   []int
}

var _ Fetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) ListOpenPRNumbers(context.Context, string, string) ([]int, error) {
	return f.openPRs, nil
}

func (f *fakeFetcher) ListOpenIssueNumbers(context.Context, string, string) ([]int, error) {
	return f.openIssues, nil
}

func (f *fakeFetcher) ListMergedPRNumbers(_ context.Context, _, _ string, limit int) ([]int, error) {
	return nil, nil
}

func (f *fakeFetcher) ListPRNumbersByAuthor(context.Context, string, string, string) ([]int, error) {
	return nil, nil
}

func (f *fakeFetcher) FetchPR(_ context.Context, owner, repo string, number int) (*types.PullRequest, error) {
	f.prFetches++
	return &types.PullRequest{
		Owner: owner, Repo: repo, Number: number,
		Title:     fmt.Sprintf("PR %d", number),
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeFetcher) FetchIssue(_ context.Context, owner, repo string, number int) (*types.Issue, error) {
	f.issueFetches++
	return &types.Issue{
		Owner: owner, Repo: repo, Number: number,
		Title: fmt.Sprintf("Issue %d", number),
	}, nil
}

func (f *fakeFetcher) FetchRepoLabels(context.Context, string, string) ([]types.LabelDefinition, error) {
	return nil, nil
}

func (f *fakeFetcher) FetchCodeowners(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeFetcher) FetchReviewers(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

func newTestLoader(t *testing.T, f Fetcher) *Loader {
	t.Helper()
	c, err := cache.Open(":memory:", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return NewLoader(f, NewLocalEmbedder(), c)
}

func TestLoaderCachesPRs(t *testing.T) {
	f := &fakeFetcher{}
	l := newTestLoader(t, f)
	ctx := context.Background()

	pr1, emb1, err := l.LoadPR(ctx, "acme", "widgets", 10)
	require.NoError(t, err)
	require.NotNil(t, pr1)
	require.NotEmpty(t, emb1)
	assert.Equal(t, 1, f.prFetches)

	pr2, emb2, err := l.LoadPR(ctx, "acme", "widgets", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, f.prFetches, "second load served from cache")
	assert.Equal(t, pr1.Title, pr2.Title)
	assert.Equal(t, emb1, emb2, "embedding computed once and reused")
}

func TestLoaderCachesIssues(t *testing.T) {
	f := &fakeFetcher{}
	l := newTestLoader(t, f)
	ctx := context.Background()

	_, _, err := l.LoadIssue(ctx, "acme", "widgets", 3)
	require.NoError(t, err)
	_, _, err = l.LoadIssue(ctx, "acme", "widgets", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.issueFetches)
}

func TestLoaderWorksWithoutCache(t *testing.T) {
	f := &fakeFetcher{}
	l := NewLoader(f, NewLocalEmbedder(), nil)
	ctx := context.Background()

	_, _, err := l.LoadPR(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	_, _, err = l.LoadPR(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, f.prFetches, "no cache means every load fetches")
}

func TestLoadOpenPRsSkipsSelf(t *testing.T) {
	f := &fakeFetcher{openPRs: []int{5, 6, 7}}
	l := newTestLoader(t, f)

	prs, embs, err := l.LoadOpenPRs(context.Background(), "acme", "widgets", 6)
	require.NoError(t, err)
	require.Len(t, prs, 2)
	require.Len(t, embs, 2)
	assert.Equal(t, 5, prs[0].Number)
	assert.Equal(t, 7, prs[1].Number)
}

func TestLoadOpenIssues(t *testing.T) {
	f := &fakeFetcher{openIssues: []int{2, 4}}
	l := newTestLoader(t, f)

	issues, embs, err := l.LoadOpenIssues(context.Background(), "acme", "widgets", 0)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Len(t, embs, 2)
}
