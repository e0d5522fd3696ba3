package ingest

import (
	"context"
	"fmt"

	"github.com/maintainerd/gatekeeper/internal/cache"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// Loader combines a Fetcher, an Embedder, and an optional cache into the
// standard ingestion flow: cache hit wins, misses go to the network and are
// written back, and embeddings are computed once per cached item.
type Loader struct {
	fetcher  Fetcher
	embedder Embedder
	cache    *cache.Cache // nil disables caching
}

// NewLoader wires a loader. Pass a nil cache to fetch and embed every time.
func NewLoader(fetcher Fetcher, embedder Embedder, c *cache.Cache) *Loader {
	return &Loader{fetcher: fetcher, embedder: embedder, cache: c}
}

// LoadPR returns a pull request and its embedding, consulting the cache
// before the fetcher. Cache write failures are returned: a cache that cannot
// persist will silently re-fetch everything, which is worse than failing.
func (l *Loader) LoadPR(ctx context.Context, owner, repo string, number int) (*types.PullRequest, []float64, error) {
	var pr *types.PullRequest
	if l.cache != nil {
		cached, err := l.cache.GetPR(ctx, owner, repo, number)
		if err != nil {
			return nil, nil, err
		}
		pr = cached
	}

	if pr == nil {
		fetched, err := l.fetcher.FetchPR(ctx, owner, repo, number)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching PR #%d: %w", number, err)
		}
		pr = fetched
		if l.cache != nil {
			if err := l.cache.PutPR(ctx, pr); err != nil {
				return nil, nil, err
			}
		}
	}

	emb, err := l.embedding(ctx, owner, repo, types.KindPullRequest, number, PREmbeddingText(pr))
	if err != nil {
		return nil, nil, err
	}
	return pr, emb, nil
}

// LoadIssue is LoadPR for issues.
func (l *Loader) LoadIssue(ctx context.Context, owner, repo string, number int) (*types.Issue, []float64, error) {
	var issue *types.Issue
	if l.cache != nil {
		cached, err := l.cache.GetIssue(ctx, owner, repo, number)
		if err != nil {
			return nil, nil, err
		}
		issue = cached
	}

	if issue == nil {
		fetched, err := l.fetcher.FetchIssue(ctx, owner, repo, number)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching issue #%d: %w", number, err)
		}
		issue = fetched
		if l.cache != nil {
			if err := l.cache.PutIssue(ctx, issue); err != nil {
				return nil, nil, err
			}
		}
	}

	emb, err := l.embedding(ctx, owner, repo, types.KindIssue, number, IssueEmbeddingText(issue))
	if err != nil {
		return nil, nil, err
	}
	return issue, emb, nil
}

// LoadOpenPRs loads every open PR except skip (0 means skip nothing),
// returning the PRs and their embeddings in matching order.
func (l *Loader) LoadOpenPRs(ctx context.Context, owner, repo string, skip int) ([]*types.PullRequest, [][]float64, error) {
	numbers, err := l.fetcher.ListOpenPRNumbers(ctx, owner, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("listing open PRs: %w", err)
	}

	prs := make([]*types.PullRequest, 0, len(numbers))
	embs := make([][]float64, 0, len(numbers))
	for _, n := range numbers {
		if n == skip {
			continue
		}
		pr, emb, err := l.LoadPR(ctx, owner, repo, n)
		if err != nil {
			return nil, nil, err
		}
		prs = append(prs, pr)
		embs = append(embs, emb)
	}
	return prs, embs, nil
}

// LoadOpenIssues loads every open issue except skip.
func (l *Loader) LoadOpenIssues(ctx context.Context, owner, repo string, skip int) ([]*types.Issue, [][]float64, error) {
	numbers, err := l.fetcher.ListOpenIssueNumbers(ctx, owner, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("listing open issues: %w", err)
	}

	issues := make([]*types.Issue, 0, len(numbers))
	embs := make([][]float64, 0, len(numbers))
	for _, n := range numbers {
		if n == skip {
			continue
		}
		issue, emb, err := l.LoadIssue(ctx, owner, repo, n)
		if err != nil {
			return nil, nil, err
		}
		issues = append(issues, issue)
		embs = append(embs, emb)
	}
	return issues, embs, nil
}

// LoadMergedPRs loads up to limit recently merged PRs with embeddings.
func (l *Loader) LoadMergedPRs(ctx context.Context, owner, repo string, limit int) ([]*types.PullRequest, [][]float64, error) {
	numbers, err := l.fetcher.ListMergedPRNumbers(ctx, owner, repo, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("listing merged PRs: %w", err)
	}

	prs := make([]*types.PullRequest, 0, len(numbers))
	embs := make([][]float64, 0, len(numbers))
	for _, n := range numbers {
		pr, emb, err := l.LoadPR(ctx, owner, repo, n)
		if err != nil {
			return nil, nil, err
		}
		prs = append(prs, pr)
		embs = append(embs, emb)
	}
	return prs, embs, nil
}

// LoadAuthorPRs loads the PRs a contributor authored in this repository.
func (l *Loader) LoadAuthorPRs(ctx context.Context, owner, repo, login string) ([]*types.PullRequest, error) {
	numbers, err := l.fetcher.ListPRNumbersByAuthor(ctx, owner, repo, login)
	if err != nil {
		return nil, fmt.Errorf("listing PRs by %s: %w", login, err)
	}

	prs := make([]*types.PullRequest, 0, len(numbers))
	for _, n := range numbers {
		pr, _, err := l.LoadPR(ctx, owner, repo, n)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

func (l *Loader) embedding(ctx context.Context, owner, repo string, kind types.ItemKind, number int, text string) ([]float64, error) {
	if l.cache != nil {
		emb, err := l.cache.GetEmbedding(ctx, owner, repo, kind, number)
		if err != nil {
			return nil, err
		}
		if emb != nil {
			return emb, nil
		}
	}

	emb, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding %s #%d: %w", kind, number, err)
	}
	if l.cache != nil {
		if err := l.cache.PutEmbedding(ctx, owner, repo, kind, number, emb); err != nil {
			return nil, err
		}
	}
	return emb, nil
}
