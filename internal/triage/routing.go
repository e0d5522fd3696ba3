package triage

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// ParseCodeowners parses CODEOWNERS content into rules. Comment and blank
// lines are skipped; a line needs a pattern plus at least one @owner to
// count. Owners keep their name without the @ prefix.
func ParseCodeowners(content string) []types.CodeOwnerRule {
	var rules []types.CodeOwnerRule
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		var owners []string
		for _, p := range parts[1:] {
			if strings.HasPrefix(p, "@") {
				owners = append(owners, strings.TrimPrefix(p, "@"))
			}
		}
		if len(owners) > 0 {
			rules = append(rules, types.CodeOwnerRule{Pattern: parts[0], Owners: owners})
		}
	}
	return rules
}

// matchPattern applies a CODEOWNERS pattern to a file path. Patterns match
// either the whole path or any trailing component (a bare "*.go" owns Go
// files anywhere in the tree).
func matchPattern(filePath, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, "/")
	if ok, _ := path.Match(pattern, filePath); ok {
		return true
	}
	if ok, _ := path.Match(pattern, path.Base(filePath)); ok {
		return true
	}
	// Directory pattern: "docs/" owns everything underneath.
	if strings.HasSuffix(pattern, "/") && strings.HasPrefix(filePath, pattern) {
		return true
	}
	return false
}

// matchCodeowners maps each owner to the reasons (matched patterns) they
// own changed files. Per CODEOWNERS convention the last matching rule wins
// per file.
func matchCodeowners(changedFiles []string, rules []types.CodeOwnerRule) map[string][]string {
	reasons := make(map[string][]string)
	for _, file := range changedFiles {
		var matchedOwners []string
		matchedPattern := ""
		for _, rule := range rules {
			if matchPattern(file, rule.Pattern) {
				matchedOwners = rule.Owners
				matchedPattern = rule.Pattern
			}
		}
		for _, owner := range matchedOwners {
			reason := "CODEOWNERS: " + matchedPattern
			if !containsString(reasons[owner], reason) {
				reasons[owner] = append(reasons[owner], reason)
			}
		}
	}
	return reasons
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// scorePastReviewers counts, per reviewer, how many recent PRs they
// reviewed that touched any of the changed files.
func scorePastReviewers(
	changedFiles []string,
	recentPRs []*types.PullRequest,
	reviewsByPR map[int][]string,
) map[string]int {
	changed := make(map[string]struct{}, len(changedFiles))
	for _, f := range changedFiles {
		changed[f] = struct{}{}
	}

	counts := make(map[string]int)
	for _, pr := range recentPRs {
		overlaps := false
		for _, f := range pr.Files {
			if _, ok := changed[f.Path]; ok {
				overlaps = true
				break
			}
		}
		if !overlaps {
			continue
		}
		for _, reviewer := range reviewsByPR[pr.Number] {
			counts[reviewer]++
		}
	}
	return counts
}

// SuggestReviewers ranks candidate reviewers for a PR from CODEOWNERS
// matches (weight 2.0 per matched pattern) and past review history on
// overlapping files (weight 1.0). The PR author is excluded and scores are
// normalized to [0,1] against the top candidate.
func SuggestReviewers(
	pr *types.PullRequest,
	rules []types.CodeOwnerRule,
	recentPRs []*types.PullRequest,
	reviewsByPR map[int][]string,
	maxSuggestions int,
) *types.ReviewRoutingReport {
	changedFiles := make([]string, len(pr.Files))
	for i, f := range pr.Files {
		changedFiles[i] = f.Path
	}

	report := &types.ReviewRoutingReport{
		Owner:                  pr.Owner,
		Repo:                   pr.Repo,
		PRNumber:               pr.Number,
		PRTitle:                pr.Title,
		ChangedFiles:           changedFiles,
		CodeOwnersFound:        len(rules) > 0,
		RecentReviewersChecked: len(recentPRs),
	}

	scores := make(map[string]float64)
	reasons := make(map[string][]string)

	if len(rules) > 0 {
		for user, userReasons := range matchCodeowners(changedFiles, rules) {
			scores[user] += 2.0 * float64(len(userReasons))
			reasons[user] = append(reasons[user], userReasons...)
		}
	}

	if len(recentPRs) > 0 && len(reviewsByPR) > 0 {
		for user, count := range scorePastReviewers(changedFiles, recentPRs, reviewsByPR) {
			scores[user] += 1.0
			reasons[user] = append(reasons[user],
				pluralReason(count))
		}
	}

	delete(scores, pr.Author.Login)
	delete(reasons, pr.Author.Login)

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	users := make([]string, 0, len(scores))
	for user := range scores {
		users = append(users, user)
	}
	sort.Slice(users, func(a, b int) bool {
		if scores[users[a]] != scores[users[b]] {
			return scores[users[a]] > scores[users[b]]
		}
		return users[a] < users[b]
	})

	var suggestions []types.ReviewerSuggestion
	for _, user := range users {
		normalized := 0.0
		if maxScore > 0 {
			normalized = scores[user] / maxScore
		}
		suggestions = append(suggestions, types.ReviewerSuggestion{
			Username: user,
			Score:    normalized,
			Reasons:  reasons[user],
		})
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	report.Suggestions = suggestions
	return report
}

func pluralReason(count int) string {
	return fmt.Sprintf("Reviewed %d recent PR(s) touching similar files", count)
}
