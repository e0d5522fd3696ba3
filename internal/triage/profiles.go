package triage

import (
	"sort"
	"strings"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// topDirectory extracts the top-level directory of a changed path; files at
// the repository root group under "(root)".
func topDirectory(filePath string) string {
	normalized := strings.ReplaceAll(filePath, "\\", "/")
	if idx := strings.Index(normalized, "/"); idx >= 0 {
		return normalized[:idx]
	}
	return "(root)"
}

func hasTestFiles(pr *types.PullRequest) bool {
	for _, f := range pr.Files {
		lower := strings.ToLower(f.Path)
		if strings.Contains(lower, "test") || strings.Contains(lower, "spec") {
			return true
		}
	}
	return false
}

// BuildContributorProfile computes contribution metrics from a user's PR
// history: merge rate, test inclusion rate, average change size, top
// directories touched, and the contribution date range. reviewCount is
// supplied by the caller since review data lives outside the PR objects.
func BuildContributorProfile(
	owner, repo, username string,
	prs []*types.PullRequest,
	reviewCount int,
) *types.ContributorProfile {
	profile := &types.ContributorProfile{
		Owner:       owner,
		Repo:        repo,
		Username:    username,
		PRsAnalyzed: len(prs),
		ReviewCount: reviewCount,
	}
	if len(prs) == 0 {
		return profile
	}

	var merged, open, closed, testPRs int
	var totalAdditions, totalDeletions int
	dirCounts := make(map[string]int)

	for _, pr := range prs {
		switch {
		case !pr.MergedAt.IsZero():
			merged++
		case pr.State == "open":
			open++
		default:
			closed++
		}

		if hasTestFiles(pr) {
			testPRs++
		}

		totalAdditions += pr.TotalAdditions
		totalDeletions += pr.TotalDeletions

		for _, f := range pr.Files {
			dirCounts[topDirectory(f.Path)]++
		}

		if !pr.CreatedAt.IsZero() {
			if profile.FirstContribution.IsZero() || pr.CreatedAt.Before(profile.FirstContribution) {
				profile.FirstContribution = pr.CreatedAt
			}
			if pr.CreatedAt.After(profile.LastContribution) {
				profile.LastContribution = pr.CreatedAt
			}
		}
	}

	total := len(prs)
	profile.TotalPRs = total
	profile.MergedPRs = merged
	profile.OpenPRs = open
	profile.ClosedPRs = closed
	profile.MergeRate = float64(merged) / float64(total)
	profile.TestInclusionRate = float64(testPRs) / float64(total)
	profile.AvgAdditions = float64(totalAdditions) / float64(total)
	profile.AvgDeletions = float64(totalDeletions) / float64(total)
	profile.AreasOfExpertise = topDirectories(dirCounts, 5)
	return profile
}

// topDirectories ranks directories by touch count descending, name
// ascending on ties, keeping the top n.
func topDirectories(counts map[string]int, n int) []string {
	dirs := make([]string, 0, len(counts))
	for d := range counts {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(a, b int) bool {
		if counts[dirs[a]] != counts[dirs[b]] {
			return counts[dirs[a]] > counts[dirs[b]]
		}
		return dirs[a] < dirs[b]
	})
	if len(dirs) > n {
		dirs = dirs[:n]
	}
	return dirs
}
