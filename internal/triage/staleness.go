package triage

import (
	"fmt"
	"sort"
	"time"

	"github.com/maintainerd/gatekeeper/internal/similarity"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// StalenessInput bundles the three item sets staleness detection compares.
// Each embedding slice is index-aligned with its item slice.
type StalenessInput struct {
	OpenPRs          []*types.PullRequest
	OpenPREmbeddings [][]float64
	OpenIssues       []*types.Issue
	IssueEmbeddings  [][]float64
	MergedPRs        []*types.PullRequest
	MergedEmbeddings [][]float64
}

// DetectStale runs all four staleness signals and assembles the report.
// now is injected so inactivity cutoffs are testable.
func DetectStale(in StalenessInput, threshold float64, inactiveDays int, now time.Time) *types.StalenessReport {
	report := &types.StalenessReport{
		TotalOpenPRs:         len(in.OpenPRs),
		TotalOpenIssues:      len(in.OpenIssues),
		TotalMergedPRChecked: len(in.MergedPRs),
		Threshold:            threshold,
		InactiveDays:         inactiveDays,
	}
	switch {
	case len(in.OpenPRs) > 0:
		report.Owner, report.Repo = in.OpenPRs[0].Owner, in.OpenPRs[0].Repo
	case len(in.OpenIssues) > 0:
		report.Owner, report.Repo = in.OpenIssues[0].Owner, in.OpenIssues[0].Repo
	}

	report.SupersededPRs = findSupersededPRs(in, threshold)
	report.AddressedIssues = findAddressedIssues(in, threshold)
	report.BlockedPRs = findBlockedPRs(in.OpenPRs, in.OpenIssues)

	cutoff := now.Add(-time.Duration(inactiveDays) * 24 * time.Hour)
	report.InactivePRs, report.InactiveIssues = findInactiveItems(in.OpenPRs, in.OpenIssues, cutoff)
	return report
}

// findSupersededPRs flags open PRs highly similar to a PR merged after the
// open one was created. The temporal guard keeps the causality straight: a
// PR merged before the subject existed cannot have superseded it. At most
// one finding per open PR, keeping the best match.
func findSupersededPRs(in StalenessInput, threshold float64) []types.StaleItem {
	if len(in.OpenPRs) == 0 || len(in.MergedPRs) == 0 {
		return nil
	}

	var out []types.StaleItem
	for i, open := range in.OpenPRs {
		idx, sim := similarity.GuardedBestMatch(
			in.OpenPREmbeddings[i], in.MergedEmbeddings, threshold,
			func(j int) bool {
				merged := in.MergedPRs[j]
				if merged.MergedAt.IsZero() {
					return false
				}
				if open.CreatedAt.IsZero() {
					return true
				}
				return merged.MergedAt.After(open.CreatedAt)
			},
		)
		if idx < 0 {
			continue
		}
		merged := in.MergedPRs[idx]
		out = append(out, types.StaleItem{
			Kind:          types.KindPullRequest,
			Number:        open.Number,
			Title:         open.Title,
			Signal:        types.StaleSuperseded,
			RelatedNumber: merged.Number,
			RelatedTitle:  merged.Title,
			Similarity:    sim,
			Explanation: fmt.Sprintf("PR #%d is %.0f%% similar to merged PR #%d — likely superseded.",
				open.Number, sim*100, merged.Number),
		})
	}
	return out
}

// findAddressedIssues flags open issues highly similar to a merged PR.
// At most one finding per issue, keeping the best match.
func findAddressedIssues(in StalenessInput, threshold float64) []types.StaleItem {
	if len(in.OpenIssues) == 0 || len(in.MergedPRs) == 0 {
		return nil
	}

	var out []types.StaleItem
	for j, issue := range in.OpenIssues {
		idx, sim := similarity.GuardedBestMatch(in.IssueEmbeddings[j], in.MergedEmbeddings, threshold, nil)
		if idx < 0 {
			continue
		}
		merged := in.MergedPRs[idx]
		out = append(out, types.StaleItem{
			Kind:          types.KindIssue,
			Number:        issue.Number,
			Title:         issue.Title,
			Signal:        types.StaleAddressed,
			RelatedNumber: merged.Number,
			RelatedTitle:  merged.Title,
			Similarity:    sim,
			Explanation: fmt.Sprintf("Issue #%d is %.0f%% similar to merged PR #%d — may already be addressed.",
				issue.Number, sim*100, merged.Number),
		})
	}
	return out
}

// findBlockedPRs flags open PRs whose linked issues are still open. Pure
// metadata, no embeddings involved.
func findBlockedPRs(openPRs []*types.PullRequest, openIssues []*types.Issue) []types.StaleItem {
	openIssueNumbers := make(map[int]struct{}, len(openIssues))
	for _, issue := range openIssues {
		openIssueNumbers[issue.Number] = struct{}{}
	}

	var out []types.StaleItem
	for _, pr := range openPRs {
		var blocking []int
		for _, num := range pr.LinkedIssues {
			if _, ok := openIssueNumbers[num]; ok {
				blocking = append(blocking, num)
			}
		}
		if len(blocking) == 0 {
			continue
		}
		refs := ""
		for i, n := range blocking {
			if i > 0 {
				refs += ", "
			}
			refs += fmt.Sprintf("#%d", n)
		}
		out = append(out, types.StaleItem{
			Kind:          types.KindPullRequest,
			Number:        pr.Number,
			Title:         pr.Title,
			Signal:        types.StaleBlocked,
			RelatedNumber: blocking[0],
			Explanation:   fmt.Sprintf("PR #%d is blocked by open issue(s): %s.", pr.Number, refs),
		})
	}
	return out
}

// findInactiveItems flags items whose last update predates the cutoff.
// Items without an update timestamp are not flagged. Both lists come back
// sorted oldest-first.
func findInactiveItems(openPRs []*types.PullRequest, openIssues []*types.Issue, cutoff time.Time) (prs, issues []types.StaleItem) {
	for _, pr := range openPRs {
		if pr.UpdatedAt.IsZero() || !pr.UpdatedAt.Before(cutoff) {
			continue
		}
		prs = append(prs, types.StaleItem{
			Kind:         types.KindPullRequest,
			Number:       pr.Number,
			Title:        pr.Title,
			Signal:       types.StaleInactive,
			LastActivity: pr.UpdatedAt,
			Explanation: fmt.Sprintf("PR #%d has had no activity since %s.",
				pr.Number, pr.UpdatedAt.Format("2006-01-02")),
		})
	}
	for _, issue := range openIssues {
		if issue.UpdatedAt.IsZero() || !issue.UpdatedAt.Before(cutoff) {
			continue
		}
		issues = append(issues, types.StaleItem{
			Kind:         types.KindIssue,
			Number:       issue.Number,
			Title:        issue.Title,
			Signal:       types.StaleInactive,
			LastActivity: issue.UpdatedAt,
			Explanation: fmt.Sprintf("Issue #%d has had no activity since %s.",
				issue.Number, issue.UpdatedAt.Format("2006-01-02")),
		})
	}

	sort.SliceStable(prs, func(a, b int) bool { return prs[a].LastActivity.Before(prs[b].LastActivity) })
	sort.SliceStable(issues, func(a, b int) bool { return issues[a].LastActivity.Before(issues[b].LastActivity) })
	return prs, issues
}
