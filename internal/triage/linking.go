package triage

import (
	"sort"

	"github.com/maintainerd/gatekeeper/internal/similarity"
	"github.com/maintainerd/gatekeeper/internal/types"
)

type prIssuePair struct {
	pr    int
	issue int
}

// FindLinks connects PRs to the issues they likely address. Explicit links
// (issue numbers referenced from the PR body) are recorded at similarity
// 1.0 and excluded from suggestions; remaining pairs at or above threshold
// become suggestions sorted by similarity descending. Issues touched by
// neither are reported as orphans.
func FindLinks(
	prs []*types.PullRequest,
	prEmbeddings [][]float64,
	issues []*types.Issue,
	issueEmbeddings [][]float64,
	threshold float64,
) *types.LinkingReport {
	report := &types.LinkingReport{
		TotalPRs:    len(prs),
		TotalIssues: len(issues),
		Threshold:   threshold,
	}
	switch {
	case len(prs) > 0:
		report.Owner, report.Repo = prs[0].Owner, prs[0].Repo
	case len(issues) > 0:
		report.Owner, report.Repo = issues[0].Owner, issues[0].Repo
	}

	if len(prs) == 0 || len(issues) == 0 {
		for _, issue := range issues {
			report.OrphanIssues = append(report.OrphanIssues, issue.Number)
		}
		sort.Ints(report.OrphanIssues)
		return report
	}

	issueByNumber := make(map[int]*types.Issue, len(issues))
	for _, issue := range issues {
		issueByNumber[issue.Number] = issue
	}

	explicit := make(map[prIssuePair]struct{})
	linked := make(map[int]struct{})
	for _, pr := range prs {
		for _, num := range pr.LinkedIssues {
			explicit[prIssuePair{pr.Number, num}] = struct{}{}
			issue, ok := issueByNumber[num]
			if !ok {
				continue
			}
			report.ExplicitLinks = append(report.ExplicitLinks, types.LinkSuggestion{
				PRNumber:    pr.Number,
				IssueNumber: num,
				Similarity:  1.0,
				PRTitle:     pr.Title,
				IssueTitle:  issue.Title,
				Explicit:    true,
			})
			linked[num] = struct{}{}
		}
	}

	sim := similarity.Matrix(prEmbeddings, issueEmbeddings)

	var suggestions []types.LinkSuggestion
	for i, pr := range prs {
		for j, issue := range issues {
			if sim == nil {
				continue
			}
			s := sim[i][j]
			if s < threshold {
				continue
			}
			if _, ok := explicit[prIssuePair{pr.Number, issue.Number}]; ok {
				continue
			}
			suggestions = append(suggestions, types.LinkSuggestion{
				PRNumber:    pr.Number,
				IssueNumber: issue.Number,
				Similarity:  s,
				PRTitle:     pr.Title,
				IssueTitle:  issue.Title,
			})
			linked[issue.Number] = struct{}{}
		}
	}

	sort.SliceStable(suggestions, func(a, b int) bool {
		return suggestions[a].Similarity > suggestions[b].Similarity
	})
	report.Suggestions = suggestions

	for _, issue := range issues {
		if _, ok := linked[issue.Number]; !ok {
			report.OrphanIssues = append(report.OrphanIssues, issue.Number)
		}
	}
	sort.Ints(report.OrphanIssues)
	return report
}
