// Package ingest fetches and normalizes GitHub pull requests and issues
// into the domain types, and computes the embedding vectors every
// similarity-based signal consumes. Fetching and embedding are both behind
// interfaces so tests and alternative backends can swap them out.
package ingest

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// Fetcher retrieves repository data. Implementations own pagination, rate
// limiting, and authentication.
type Fetcher interface {
	// ListOpenPRNumbers returns the numbers of all open PRs, newest first.
	ListOpenPRNumbers(ctx context.Context, owner, repo string) ([]int, error)

	// ListOpenIssueNumbers returns the numbers of all open issues, newest
	// first. Pull requests are excluded even though GitHub's issues API
	// reports them.
	ListOpenIssueNumbers(ctx context.Context, owner, repo string) ([]int, error)

	// ListMergedPRNumbers returns up to limit recently merged PR numbers.
	ListMergedPRNumbers(ctx context.Context, owner, repo string, limit int) ([]int, error)

	// ListPRNumbersByAuthor returns the numbers of PRs authored by login.
	ListPRNumbersByAuthor(ctx context.Context, owner, repo, login string) ([]int, error)

	// FetchPR retrieves one fully-populated pull request: metadata, files,
	// diff, and author details.
	FetchPR(ctx context.Context, owner, repo string, number int) (*types.PullRequest, error)

	// FetchIssue retrieves one fully-populated issue.
	FetchIssue(ctx context.Context, owner, repo string, number int) (*types.Issue, error)

	// FetchRepoLabels returns the repository's label definitions.
	FetchRepoLabels(ctx context.Context, owner, repo string) ([]types.LabelDefinition, error)

	// FetchCodeowners returns the raw CODEOWNERS content, or "" when the
	// repository has none.
	FetchCodeowners(ctx context.Context, owner, repo string) (string, error)

	// FetchReviewers returns the logins of users who reviewed the PR.
	FetchReviewers(ctx context.Context, owner, repo string, number int) ([]string, error)
}

// Embedder turns text into a vector. Implementations must be deterministic
// per input so cached vectors stay comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// issuePattern matches issue references in PR bodies, with or without a
// closing keyword ("fixes #12", "closes #7", bare "#34").
var issuePattern = regexp.MustCompile(`(?i)(?:fix(?:es)?|close[sd]?|resolve[sd]?)\s+#(\d+)|#(\d+)`)

// ExtractLinkedIssues pulls referenced issue numbers out of a PR body,
// deduplicated and sorted ascending.
func ExtractLinkedIssues(body string) []int {
	if body == "" {
		return nil
	}
	seen := make(map[int]struct{})
	for _, m := range issuePattern.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if raw == "" {
			continue
		}
		if n, err := strconv.Atoi(raw); err == nil {
			seen[n] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// PREmbeddingText renders a PR into the text its embedding is computed
// from: title, bounded body, changed filenames, and the head of the diff.
func PREmbeddingText(pr *types.PullRequest) string {
	parts := []string{pr.Title}

	if pr.Body != "" {
		body := pr.Body
		if len(body) > 1000 {
			body = body[:1000]
		}
		parts = append(parts, body)
	}

	if len(pr.Files) > 0 {
		names := make([]string, len(pr.Files))
		for i, f := range pr.Files {
			names[i] = f.Path
		}
		parts = append(parts, strings.Join(names, " "))
	}

	if pr.DiffText != "" {
		lines := strings.Split(pr.DiffText, "\n")
		if len(lines) > 100 {
			lines = lines[:100]
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n")
}

// IssueEmbeddingText renders an issue into embedding text: title, bounded
// body, and labels.
func IssueEmbeddingText(issue *types.Issue) string {
	parts := []string{issue.Title}

	if issue.Body != "" {
		body := issue.Body
		if len(body) > 1000 {
			body = body[:1000]
		}
		parts = append(parts, body)
	}

	if len(issue.Labels) > 0 {
		parts = append(parts, strings.Join(issue.Labels, " "))
	}

	return strings.Join(parts, "\n")
}
