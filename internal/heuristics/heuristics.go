// Package heuristics is the Tier-2 rule engine: a catalog of independent,
// pure scoring rules over a contribution item, aggregated into a capped
// suspicion score and a binary gate decision.
//
// Rules never fail on missing optional fields; absent data means the rule
// does not apply and it simply returns no flag.
package heuristics

import (
	"time"

	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// Engine evaluates the rule catalogs against a validated configuration.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg *config.Config

	// clock is swapped in tests so age-based rules are deterministic.
	clock func() time.Time
}

// New creates a heuristic engine over an already-validated configuration.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg, clock: time.Now}
}

// Aggregate folds raised flags into a HeuristicsResult. The score is the
// severity-weighted sum capped at 1.0. The cap is intentionally lossy: five HIGH
// flags and fifty look the same. Downstream thresholds assume exactly this
// shape, so it must not be replaced with a max or a geometric blend.
func Aggregate(flags []types.SuspicionFlag, threshold float64) types.HeuristicsResult {
	score := 0.0
	for _, f := range flags {
		score += f.Severity.Weight()
	}
	if score > 1.0 {
		score = 1.0
	}

	outcome := types.TierPass
	if score >= threshold {
		outcome = types.TierGated
	}
	return types.HeuristicsResult{
		Outcome:        outcome,
		SuspicionScore: score,
		Flags:          flags,
	}
}

// RunPR evaluates the full PR rule catalog and aggregates the result.
// recent supplies peer context for the temporal-clustering rule and may be
// nil. extraSensitive extends the configured sensitive-path list (e.g. the
// focus areas of a vision document).
func (e *Engine) RunPR(pr *types.PullRequest, recent []*types.PullRequest, extraSensitive []string) types.HeuristicsResult {
	sensitive := e.cfg.SensitivePaths
	if len(extraSensitive) > 0 {
		merged := make([]string, 0, len(sensitive)+len(extraSensitive))
		merged = append(merged, sensitive...)
		merged = append(merged, extraSensitive...)
		sensitive = merged
	}

	checks := []*types.SuspicionFlag{
		e.checkNewAccount(pr.Author),
		e.checkFirstContribution(pr.Author, "contributions"),
		e.checkSensitivePaths(pr, sensitive),
		e.checkTestRatio(pr),
		e.checkDependencyChanges(pr),
		e.checkLargeDiffHiding(pr, sensitive),
		e.checkPRTemporalClustering(pr, recent),
	}

	return Aggregate(collect(checks), e.cfg.SuspicionThreshold)
}

// RunIssue evaluates the full issue rule catalog and aggregates the result.
func (e *Engine) RunIssue(issue *types.Issue, recent []*types.Issue) types.HeuristicsResult {
	checks := []*types.SuspicionFlag{
		e.checkVagueDescription(issue),
		e.checkNewAccount(issue.Author),
		e.checkFirstContribution(issue.Author, "issues"),
		e.checkMissingReproduction(issue),
		e.checkShortTitle(issue),
		e.checkAllCapsTitle(issue),
		e.checkIssueTemporalClustering(issue, recent),
	}

	return Aggregate(collect(checks), e.cfg.IssueSuspicionThreshold)
}

// collect drops the nils, preserving catalog order.
func collect(checks []*types.SuspicionFlag) []types.SuspicionFlag {
	var flags []types.SuspicionFlag
	for _, f := range checks {
		if f != nil {
			flags = append(flags, *f)
		}
	}
	return flags
}
