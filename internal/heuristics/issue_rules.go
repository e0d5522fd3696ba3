package heuristics

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// bugKeywords suggest an issue is a bug report.
var bugKeywords = []string{"bug", "error", "crash", "exception", "traceback", "fail", "broken", "issue"}

// reproKeywords suggest a reproduction is included in the body.
var reproKeywords = []string{
	"reproduce", "repro", "steps to", "step 1", "expected", "actual",
	"stack trace", "traceback", "```",
}

// checkVagueDescription flags issue bodies too short to be actionable.
func (e *Engine) checkVagueDescription(issue *types.Issue) *types.SuspicionFlag {
	body := strings.TrimSpace(issue.Body)
	minLength := e.cfg.IssueMinBodyLength
	if len(body) >= minLength {
		return nil
	}
	return &types.SuspicionFlag{
		RuleID:      "vague_description",
		Severity:    types.SeverityMedium,
		Title:       "Vague description",
		Explanation: fmt.Sprintf("Issue body is %d chars (minimum: %d)", len(body), minLength),
		Evidence:    fmt.Sprintf("body_length=%d", len(body)),
	}
}

// checkMissingReproduction flags bug-like issues whose body carries none of
// the reproduction markers. Issues that don't look like bug reports are
// left alone.
func (e *Engine) checkMissingReproduction(issue *types.Issue) *types.SuspicionFlag {
	titleLower := strings.ToLower(issue.Title)
	bodyLower := strings.ToLower(issue.Body)

	isBug := false
	for _, kw := range bugKeywords {
		if strings.Contains(titleLower, kw) || strings.Contains(bodyLower, kw) {
			isBug = true
			break
		}
	}
	if !isBug {
		for _, l := range issue.Labels {
			if strings.Contains(strings.ToLower(l), "bug") {
				isBug = true
				break
			}
		}
	}
	if !isBug {
		return nil
	}

	for _, kw := range reproKeywords {
		if strings.Contains(bodyLower, kw) {
			return nil
		}
	}

	title := issue.Title
	if len(title) > 60 {
		title = title[:60]
	}
	return &types.SuspicionFlag{
		RuleID:      "missing_reproduction",
		Severity:    types.SeverityMedium,
		Title:       "Missing reproduction steps",
		Explanation: "Bug-like issue without reproduction steps or code snippets",
		Evidence:    fmt.Sprintf("title=%q", title),
	}
}

// checkShortTitle flags titles under 10 characters.
func (e *Engine) checkShortTitle(issue *types.Issue) *types.SuspicionFlag {
	title := strings.TrimSpace(issue.Title)
	if len(title) >= 10 {
		return nil
	}
	return &types.SuspicionFlag{
		RuleID:      "short_title",
		Severity:    types.SeverityLow,
		Title:       "Short title",
		Explanation: fmt.Sprintf("Issue title is only %d chars", len(title)),
		Evidence:    fmt.Sprintf("title=%q", issue.Title),
	}
}

// checkAllCapsTitle flags ALL CAPS titles, a spam signal. Titles with fewer
// than 5 letters are too short to judge and never fire.
func (e *Engine) checkAllCapsTitle(issue *types.Issue) *types.SuspicionFlag {
	letters := 0
	for _, r := range issue.Title {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 5 || issue.Title != strings.ToUpper(issue.Title) {
		return nil
	}

	title := issue.Title
	if len(title) > 60 {
		title = title[:60]
	}
	return &types.SuspicionFlag{
		RuleID:      "all_caps_title",
		Severity:    types.SeverityLow,
		Title:       "ALL CAPS title",
		Explanation: "Issue title is in ALL CAPS, which may indicate spam or low quality",
		Evidence:    fmt.Sprintf("title=%q", title),
	}
}

// checkIssueTemporalClustering mirrors the PR rule: bursts of new-account
// issues within a 24-hour window of this one.
func (e *Engine) checkIssueTemporalClustering(issue *types.Issue, recent []*types.Issue) *types.SuspicionFlag {
	if len(recent) == 0 || issue.CreatedAt.IsZero() {
		return nil
	}

	now := e.clock()
	accountCutoff := time.Duration(e.cfg.NewAccountDays) * 24 * time.Hour
	window := 24 * time.Hour

	var clustered []*types.Issue
	for _, other := range recent {
		if other.Number == issue.Number {
			continue
		}
		if other.CreatedAt.IsZero() || other.Author.AccountCreatedAt.IsZero() {
			continue
		}
		accountAge := now.Sub(other.Author.AccountCreatedAt)
		timeDiff := issue.CreatedAt.Sub(other.CreatedAt)
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
	for _, i := range clustered {
		refs = append(refs, fmt.Sprintf("Issue#%d by %s", i.Number, i.Author.Login))
		if len(refs) == 5 {
			break
		}
	}
	return &types.SuspicionFlag{
		RuleID:      "temporal_clustering",
		Severity:    types.SeverityHigh,
		Title:       "Temporal clustering of new-account issues",
		Explanation: fmt.Sprintf("%d other new-account issues within 24h window", len(clustered)),
		Evidence:    strings.Join(refs, ", "),
	}
}
