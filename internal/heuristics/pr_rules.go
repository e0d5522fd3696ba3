package heuristics

import (
	"fmt"
	"strings"
	"time"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// highRiskHints escalate a sensitive-path match to HIGH severity when the
// path looks like authentication or credential handling.
var highRiskHints = []string{"auth", "crypto", "security", "password", "login"}

// depManifests are the dependency manifest filenames the unjustified_deps
// rule watches.
var depManifests = []string{
	"requirements.txt", "package.json", "pyproject.toml",
	"Gemfile", "go.mod", "Cargo.toml", "pom.xml",
	"package-lock.json", "yarn.lock", "Pipfile",
}

// depKeywords are description words that justify a manifest change.
var depKeywords = []string{"depend", "upgrade", "bump", "update", "package", "library", "version"}

func isSensitivePath(path string, sensitive []string) bool {
	lower := strings.ToLower(path)
	for _, p := range sensitive {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// checkNewAccount flags authors whose account is younger than the
// configured threshold. Unknown account age means the rule does not apply.
func (e *Engine) checkNewAccount(author types.Author) *types.SuspicionFlag {
	if author.AccountCreatedAt.IsZero() {
		return nil
	}

	age := e.clock().Sub(author.AccountCreatedAt)
	thresholdDays := e.cfg.NewAccountDays
	if age >= time.Duration(thresholdDays)*24*time.Hour {
		return nil
	}

	return &types.SuspicionFlag{
		RuleID:      "new_account",
		Severity:    types.SeverityMedium,
		Title:       "New account",
		Explanation: fmt.Sprintf("Account created %d days ago (threshold: %d days)", int(age.Hours()/24), thresholdDays),
		Evidence:    fmt.Sprintf("Account created: %s", author.AccountCreatedAt.Format(time.RFC3339)),
	}
}

// checkFirstContribution flags authors with no prior contributions.
func (e *Engine) checkFirstContribution(author types.Author, noun string) *types.SuspicionFlag {
	if author.ContributionsToRepo != 0 {
		return nil
	}
	return &types.SuspicionFlag{
		RuleID:      "first_contribution",
		Severity:    types.SeverityLow,
		Title:       "First contribution",
		Explanation: fmt.Sprintf("User %q has no prior %s in this repo", author.Login, noun),
		Evidence:    "contributions_to_repo=0",
	}
}

// checkSensitivePaths flags PRs touching security-sensitive files.
// Severity escalates to HIGH when the match is in an auth/crypto-like path.
func (e *Engine) checkSensitivePaths(pr *types.PullRequest, sensitive []string) *types.SuspicionFlag {
	var matched []string
	highRisk := false
	for _, f := range pr.Files {
		if !isSensitivePath(f.Path, sensitive) {
			continue
		}
		matched = append(matched, f.Path)
		lower := strings.ToLower(f.Path)
		for _, hint := range highRiskHints {
			if strings.Contains(lower, hint) {
				highRisk = true
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	severity := types.SeverityMedium
	if highRisk {
		severity = types.SeverityHigh
	}
	evidence := matched
	if len(evidence) > 5 {
		evidence = evidence[:5]
	}
	return &types.SuspicionFlag{
		RuleID:      "sensitive_paths",
		Severity:    severity,
		Title:       "Sensitive path changes",
		Explanation: fmt.Sprintf("PR modifies %d security-sensitive file(s)", len(matched)),
		Evidence:    strings.Join(evidence, ", "),
	}
}

// checkTestRatio flags PRs adding more than 20 code lines with a test-line
// fraction below the configured minimum.
func (e *Engine) checkTestRatio(pr *types.PullRequest) *types.SuspicionFlag {
	codeAdditions := 0
	testAdditions := 0
	for _, f := range pr.Files {
		lower := strings.ToLower(f.Path)
		if strings.Contains(lower, "test") || strings.Contains(lower, "spec") {
			testAdditions += f.Additions
		} else {
			codeAdditions += f.Additions
		}
	}

	if codeAdditions <= 20 {
		return nil
	}

	total := codeAdditions + testAdditions
	ratio := 0.0
	if total > 0 {
		ratio = float64(testAdditions) / float64(total)
	}
	if ratio >= e.cfg.MinTestRatio {
		return nil
	}

	return &types.SuspicionFlag{
		RuleID:   "low_test_ratio",
		Severity: types.SeverityMedium,
		Title:    "Low test coverage",
		Explanation: fmt.Sprintf("Test ratio %.1f%% is below threshold %.0f%% (%d test lines / %d total additions)",
			ratio*100, e.cfg.MinTestRatio*100, testAdditions, total),
		Evidence: fmt.Sprintf("code_additions=%d, test_additions=%d", codeAdditions, testAdditions),
	}
}

// checkDependencyChanges flags manifest changes whose PR description never
// mentions dependencies.
func (e *Engine) checkDependencyChanges(pr *types.PullRequest) *types.SuspicionFlag {
	var changed []string
	for _, f := range pr.Files {
		for _, m := range depManifests {
			if strings.HasSuffix(f.Path, m) {
				changed = append(changed, f.Path)
				break
			}
		}
	}
	if len(changed) == 0 {
		return nil
	}

	body := strings.ToLower(pr.Body)
	for _, kw := range depKeywords {
		if strings.Contains(body, kw) {
			return nil
		}
	}

	return &types.SuspicionFlag{
		RuleID:      "unjustified_deps",
		Severity:    types.SeverityHigh,
		Title:       "Unjustified dependency changes",
		Explanation: "Dependency files modified but PR description doesn't mention dependency changes",
		Evidence:    strings.Join(changed, ", "),
	}
}

// checkLargeDiffHiding flags large diffs where the sensitive-path share of
// changed lines is under 5%, a small sensitive change buried in bulk.
func (e *Engine) checkLargeDiffHiding(pr *types.PullRequest, sensitive []string) *types.SuspicionFlag {
	totalChanges := pr.TotalAdditions + pr.TotalDeletions
	if totalChanges < 500 {
		return nil
	}

	sensitiveChanges := 0
	for _, f := range pr.Files {
		if isSensitivePath(f.Path, sensitive) {
			sensitiveChanges += f.Additions + f.Deletions
		}
	}
	if sensitiveChanges == 0 {
		return nil
	}

	ratio := float64(sensitiveChanges) / float64(totalChanges)
	if ratio >= 0.05 {
		return nil
	}

	return &types.SuspicionFlag{
		RuleID:   "large_diff_hiding",
		Severity: types.SeverityHigh,
		Title:    "Large diff with hidden sensitive changes",
		Explanation: fmt.Sprintf("Large diff (%d changes) with only %.1f%% in sensitive paths — sensitive changes may be hidden in bulk",
			totalChanges, ratio*100),
		Evidence: fmt.Sprintf("total_changes=%d, sensitive_changes=%d", totalChanges, sensitiveChanges),
	}
}

// checkPRTemporalClustering flags bursts of new-account PRs within a
// 24-hour window of this one. The cluster size scales with the peer set:
// 3+ for small sets, 5+ once the set is large enough that coincidental
// clusters become common.
func (e *Engine) checkPRTemporalClustering(pr *types.PullRequest, recent []*types.PullRequest) *types.SuspicionFlag {
	if len(recent) == 0 || pr.CreatedAt.IsZero() {
		return nil
	}

	now := e.clock()
	accountCutoff := time.Duration(e.cfg.NewAccountDays) * 24 * time.Hour
	window := 24 * time.Hour

	var clustered []*types.PullRequest
	for _, other := range recent {
		if other.Number == pr.Number {
			continue
		}
		if other.CreatedAt.IsZero() || other.Author.AccountCreatedAt.IsZero() {
			continue
		}
		accountAge := now.Sub(other.Author.AccountCreatedAt)
		timeDiff := pr.CreatedAt.Sub(other.CreatedAt)
		if timeDiff < 0 {
			timeDiff = -timeDiff
		}
		if accountAge < accountCutoff && timeDiff < window {
			clustered = append(clustered, other)
		}
	}

	minCluster := 3
	if len(recent) >= 50 {
		minCluster = 5
	}
	if len(clustered) < minCluster {
		return nil
	}

	var refs []string
	for _, p := range clustered {
		refs = append(refs, fmt.Sprintf("PR#%d by %s", p.Number, p.Author.Login))
		if len(refs) == 5 {
			break
		}
	}
	return &types.SuspicionFlag{
		RuleID:      "temporal_clustering",
		Severity:    types.SeverityHigh,
		Title:       "Temporal clustering of new-account PRs",
		Explanation: fmt.Sprintf("%d other new-account PRs within 24h window", len(clustered)),
		Evidence:    strings.Join(refs, ", "),
	}
}
