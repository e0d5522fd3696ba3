package vision

import (
	"context"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// Judge assesses a contribution item against a vision document and returns
// an alignment result. Implementations own their timeout, retry, and
// cancellation behavior; the orchestrator calls once and interprets the
// outcome.
type Judge interface {
	// AssessPR judges a pull request against the document.
	AssessPR(ctx context.Context, pr *types.PullRequest, doc *Document) (*types.AlignmentResult, error)

	// AssessIssue judges an issue against the document.
	AssessIssue(ctx context.Context, issue *types.Issue, doc *Document) (*types.AlignmentResult, error)
}

// resultFromScore builds an AlignmentResult from a parsed judge response.
// Scores under 0.4 are GATED; everything else passes and lets the
// orchestrator apply its combined-evidence rules.
func resultFromScore(score float64, violated, strengths, concerns []string) *types.AlignmentResult {
	outcome := types.TierPass
	if score < 0.4 {
		outcome = types.TierGated
	}
	return &types.AlignmentResult{
		Outcome:            outcome,
		AlignmentScore:     score,
		ViolatedPrinciples: violated,
		Strengths:          strengths,
		Concerns:           concerns,
	}
}

// ErrorResult wraps a judge failure reason as a TierError alignment result.
// The orchestrator maps this to the fail-safe verdict.
func ErrorResult(reason string) *types.AlignmentResult {
	return &types.AlignmentResult{
		Outcome:  types.TierError,
		Concerns: []string{reason},
	}
}
