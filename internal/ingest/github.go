package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// GitHubClient is a REST client for the GitHub API implementing Fetcher.
// Every request passes through a client-side rate limiter so batch audits
// stay under the API budget.
type GitHubClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

var _ Fetcher = (*GitHubClient)(nil)

// NewGitHubClient builds a client from configuration. The token is
// optional; unauthenticated requests get GitHub's much smaller rate budget.
func NewGitHubClient(cfg *config.Config) *GitHubClient {
	return &GitHubClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.GitHubAPIURL, "/"),
		token:      cfg.GitHubToken,
		limiter:    rate.NewLimiter(rate.Limit(cfg.GitHubRPS), 1),
	}
}

// get performs one rate-limited GET and returns the response body plus the
// Link header (for pagination). accept overrides the default media type.
func (c *GitHubClient) get(ctx context.Context, rawURL, accept string) ([]byte, string, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", 0, err
	}
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		return body, "", resp.StatusCode, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return body, resp.Header.Get("Link"), resp.StatusCode, nil
}

// getJSON fetches and decodes one resource.
func (c *GitHubClient) getJSON(ctx context.Context, path string, out any) error {
	body, _, _, err := c.get(ctx, c.baseURL+path, "")
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// paginate follows Link-header pagination, decoding each page into a slice
// of raw messages.
func (c *GitHubClient) paginate(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	next := c.baseURL + path
	if len(params) > 0 {
		next += "?" + params.Encode()
	}

	var out []json.RawMessage
	for next != "" {
		body, link, _, err := c.get(ctx, next, "")
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, err
		}
		out = append(out, page...)
		next = nextPageURL(link)
	}
	return out, nil
}

// nextPageURL extracts the rel="next" target from a Link header, or "".
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		segment := strings.SplitN(part, ";", 2)[0]
		return strings.Trim(strings.TrimSpace(segment), "<>")
	}
	return ""
}

// Wire shapes for the subset of GitHub's API this client reads.
type ghUser struct {
	Login     string    `json:"login"`
	CreatedAt time.Time `json:"created_at"`
}

type ghLabel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type ghPull struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	User      ghUser    `json:"user"`
	Labels    []ghLabel `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	MergedAt  time.Time `json:"merged_at"`
	Base      struct {
		Repo struct {
			Name  string `json:"name"`
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repo"`
	} `json:"base"`
}

type ghFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

type ghIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	User      ghUser    `json:"user"`
	Labels    []ghLabel `json:"labels"`
	Assignees []ghUser  `json:"assignees"`
	Milestone *struct {
		Title string `json:"title"`
	} `json:"milestone"`
	Comments    int              `json:"comments"`
	Reactions   map[string]any   `json:"reactions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	ClosedAt    time.Time        `json:"closed_at"`
	PullRequest *json.RawMessage `json:"pull_request"`
}

// ListOpenPRNumbers implements Fetcher.
func (c *GitHubClient) ListOpenPRNumbers(ctx context.Context, owner, repo string) ([]int, error) {
	params := url.Values{"state": {"open"}, "per_page": {"100"}}
	pages, err := c.paginate(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), params)
	if err != nil {
		return nil, fmt.Errorf("listing open PRs: %w", err)
	}
	return decodeNumbers(pages)
}

// ListOpenIssueNumbers implements Fetcher. GitHub's issues endpoint also
// returns PRs; those are filtered out.
func (c *GitHubClient) ListOpenIssueNumbers(ctx context.Context, owner, repo string) ([]int, error) {
	params := url.Values{"state": {"open"}, "per_page": {"100"}}
	pages, err := c.paginate(ctx, fmt.Sprintf("/repos/%s/%s/issues", owner, repo), params)
	if err != nil {
		return nil, fmt.Errorf("listing open issues: %w", err)
	}
	var numbers []int
	for _, raw := range pages {
		var item ghIssue
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		if item.PullRequest != nil {
			continue
		}
		numbers = append(numbers, item.Number)
	}
	return numbers, nil
}

// ListMergedPRNumbers implements Fetcher: recently closed PRs that were
// actually merged, newest first, capped at limit.
func (c *GitHubClient) ListMergedPRNumbers(ctx context.Context, owner, repo string, limit int) ([]int, error) {
	params := url.Values{
		"state":     {"closed"},
		"sort":      {"updated"},
		"direction": {"desc"},
		"per_page":  {"100"},
	}
	pages, err := c.paginate(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), params)
	if err != nil {
		return nil, fmt.Errorf("listing merged PRs: %w", err)
	}
	var numbers []int
	for _, raw := range pages {
		var pull ghPull
		if err := json.Unmarshal(raw, &pull); err != nil {
			return nil, err
		}
		if pull.MergedAt.IsZero() {
			continue
		}
		numbers = append(numbers, pull.Number)
		if limit > 0 && len(numbers) == limit {
			break
		}
	}
	return numbers, nil
}

// ListPRNumbersByAuthor implements Fetcher via the search API.
func (c *GitHubClient) ListPRNumbersByAuthor(ctx context.Context, owner, repo, login string) ([]int, error) {
	query := fmt.Sprintf("repo:%s/%s author:%s type:pr", owner, repo, login)
	params := url.Values{"q": {query}, "per_page": {"100"}}

	body, _, _, err := c.get(ctx, c.baseURL+"/search/issues?"+params.Encode(), "")
	if err != nil {
		return nil, fmt.Errorf("searching PRs by author: %w", err)
	}
	var result struct {
		Items []struct {
			Number int `json:"number"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	numbers := make([]int, len(result.Items))
	for i, item := range result.Items {
		numbers[i] = item.Number
	}
	return numbers, nil
}

// FetchPR implements Fetcher: PR metadata, files, raw diff, and author
// profile, normalized into a PullRequest.
func (c *GitHubClient) FetchPR(ctx context.Context, owner, repo string, number int) (*types.PullRequest, error) {
	var pull ghPull
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), &pull); err != nil {
		return nil, fmt.Errorf("fetching PR #%d: %w", number, err)
	}

	params := url.Values{"per_page": {"100"}}
	filePages, err := c.paginate(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/files", owner, repo, number), params)
	if err != nil {
		return nil, fmt.Errorf("fetching files of PR #%d: %w", number, err)
	}
	files := make([]types.FileChange, 0, len(filePages))
	totalAdditions, totalDeletions := 0, 0
	for _, raw := range filePages {
		var f ghFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		files = append(files, types.FileChange{
			Path:      f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Patch:     f.Patch,
		})
		totalAdditions += f.Additions
		totalDeletions += f.Deletions
	}

	diff := c.fetchDiff(ctx, owner, repo, number)
	author := c.fetchAuthor(ctx, owner, repo, pull.User.Login, "type:pr is:merged")

	pr := &types.PullRequest{
		Owner:          pull.Base.Repo.Owner.Login,
		Repo:           pull.Base.Repo.Name,
		Number:         pull.Number,
		Title:          pull.Title,
		Body:           pull.Body,
		Author:         author,
		State:          pull.State,
		Files:          files,
		DiffText:       diff,
		CreatedAt:      pull.CreatedAt,
		UpdatedAt:      pull.UpdatedAt,
		MergedAt:       pull.MergedAt,
		LinkedIssues:   ExtractLinkedIssues(pull.Body),
		Labels:         labelNames(pull.Labels),
		TotalAdditions: totalAdditions,
		TotalDeletions: totalDeletions,
	}
	if pr.Owner == "" {
		pr.Owner, pr.Repo = owner, repo
	}
	return pr, nil
}

// fetchDiff retrieves the raw diff. Unavailable diffs (drafts, conflicts)
// come back empty rather than failing the whole ingest.
func (c *GitHubClient) fetchDiff(ctx context.Context, owner, repo string, number int) string {
	body, _, status, err := c.get(ctx,
		fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number),
		"application/vnd.github.diff")
	if err != nil || status == http.StatusNotAcceptable {
		return ""
	}
	return string(body)
}

// fetchAuthor resolves the author's profile and contribution count. Both
// lookups are best-effort: failures leave the corresponding field at its
// zero value, which the heuristic rules treat as "unknown".
func (c *GitHubClient) fetchAuthor(ctx context.Context, owner, repo, login, searchQualifier string) types.Author {
	author := types.Author{Login: login}
	if login == "" {
		author.Login = "unknown"
		return author
	}

	var user ghUser
	if err := c.getJSON(ctx, "/users/"+login, &user); err == nil {
		author.AccountCreatedAt = user.CreatedAt
	}

	query := fmt.Sprintf("repo:%s/%s author:%s %s", owner, repo, login, searchQualifier)
	params := url.Values{"q": {query}, "per_page": {"1"}}
	body, _, status, err := c.get(ctx, c.baseURL+"/search/issues?"+params.Encode(), "")
	if err == nil && status < 400 {
		var result struct {
			TotalCount int `json:"total_count"`
		}
		if json.Unmarshal(body, &result) == nil {
			author.ContributionsToRepo = result.TotalCount
		}
	}
	return author
}

// FetchIssue implements Fetcher.
func (c *GitHubClient) FetchIssue(ctx context.Context, owner, repo string, number int) (*types.Issue, error) {
	var item ghIssue
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number), &item); err != nil {
		return nil, fmt.Errorf("fetching issue #%d: %w", number, err)
	}

	author := c.fetchAuthor(ctx, owner, repo, item.User.Login, "type:issue")

	assignees := make([]string, 0, len(item.Assignees))
	for _, a := range item.Assignees {
		assignees = append(assignees, a.Login)
	}
	milestone := ""
	if item.Milestone != nil {
		milestone = item.Milestone.Title
	}

	return &types.Issue{
		Owner:        owner,
		Repo:         repo,
		Number:       item.Number,
		Title:        item.Title,
		Body:         item.Body,
		Author:       author,
		State:        item.State,
		Labels:       labelNames(item.Labels),
		Assignees:    assignees,
		Milestone:    milestone,
		Reactions:    reactionCounts(item.Reactions),
		CommentCount: item.Comments,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
		ClosedAt:     item.ClosedAt,
	}, nil
}

// FetchRepoLabels implements Fetcher.
func (c *GitHubClient) FetchRepoLabels(ctx context.Context, owner, repo string) ([]types.LabelDefinition, error) {
	params := url.Values{"per_page": {"100"}}
	pages, err := c.paginate(ctx, fmt.Sprintf("/repos/%s/%s/labels", owner, repo), params)
	if err != nil {
		return nil, fmt.Errorf("fetching labels: %w", err)
	}
	var defs []types.LabelDefinition
	for _, raw := range pages {
		var lb ghLabel
		if err := json.Unmarshal(raw, &lb); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(lb.Name)
		if name == "" {
			continue
		}
		defs = append(defs, types.LabelDefinition{
			Name:        name,
			Description: lb.Description,
			Color:       lb.Color,
			Source:      "github",
		})
	}
	return defs, nil
}

// codeownersPaths are tried in order; the first hit wins.
var codeownersPaths = []string{".github/CODEOWNERS", "CODEOWNERS", "docs/CODEOWNERS"}

// FetchCodeowners implements Fetcher. A repository without a CODEOWNERS
// file yields "" and no error.
func (c *GitHubClient) FetchCodeowners(ctx context.Context, owner, repo string) (string, error) {
	for _, path := range codeownersPaths {
		body, _, status, err := c.get(ctx,
			fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path),
			"application/vnd.github.raw+json")
		if status == http.StatusNotFound {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("fetching CODEOWNERS: %w", err)
		}
		return string(body), nil
	}
	return "", nil
}

// FetchReviewers implements Fetcher: distinct reviewer logins for a PR,
// sorted for determinism.
func (c *GitHubClient) FetchReviewers(ctx context.Context, owner, repo string, number int) ([]string, error) {
	params := url.Values{"per_page": {"100"}}
	pages, err := c.paginate(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number), params)
	if err != nil {
		return nil, fmt.Errorf("fetching reviews of PR #%d: %w", number, err)
	}
	seen := make(map[string]struct{})
	for _, raw := range pages {
		var review struct {
			User ghUser `json:"user"`
		}
		if err := json.Unmarshal(raw, &review); err != nil {
			return nil, err
		}
		if review.User.Login != "" {
			seen[review.User.Login] = struct{}{}
		}
	}
	logins := make([]string, 0, len(seen))
	for login := range seen {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins, nil
}

func decodeNumbers(pages []json.RawMessage) ([]int, error) {
	numbers := make([]int, 0, len(pages))
	for _, raw := range pages {
		var item struct {
			Number int `json:"number"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		numbers = append(numbers, item.Number)
	}
	return numbers, nil
}

func labelNames(labels []ghLabel) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, 0, len(labels))
	for _, lb := range labels {
		if lb.Name != "" {
			names = append(names, lb.Name)
		}
	}
	return names
}

// reactionCounts keeps only the positive per-emoji counts, dropping
// GitHub's bookkeeping fields.
func reactionCounts(raw map[string]any) map[string]int {
	if len(raw) == 0 {
		return nil
	}
	keys := []string{"+1", "-1", "laugh", "hooray", "confused", "heart", "rocket", "eyes"}
	out := make(map[string]int)
	for _, k := range keys {
		if v, ok := raw[k].(float64); ok && v > 0 {
			out[k] = int(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
