package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/heuristics"
	"github.com/maintainerd/gatekeeper/internal/types"
	"github.com/maintainerd/gatekeeper/internal/vision"
)

// Orchestrator wires the three tiers together and assembles scorecards.
// Tiers run strictly in order; a gated tier produces a verdict immediately
// and the tiers behind it never run, leaving their result pointers nil.
type Orchestrator struct {
	cfg   *config.Config
	heur  *heuristics.Engine
	judge vision.Judge
}

// New builds an orchestrator. judge may be nil, in which case Tier 3 is
// never attempted regardless of configuration.
func New(cfg *config.Config, judge vision.Judge) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		heur:  heuristics.New(cfg),
		judge: judge,
	}
}

// PRInput carries a pull request plus the peer context each tier needs.
// A nil Embedding skips Tier 1; a nil Vision document skips Tier 3.
// Existing and Embeddings must be index-aligned.
type PRInput struct {
	PR         *types.PullRequest
	Embedding  []float64
	Existing   []*types.PullRequest
	Embeddings [][]float64
	Recent     []*types.PullRequest
	Vision     *vision.Document
}

// IssueInput is the issue counterpart of PRInput.
type IssueInput struct {
	Issue      *types.Issue
	Embedding  []float64
	Existing   []*types.Issue
	Embeddings [][]float64
	Recent     []*types.Issue
	Vision     *vision.Document
}

// TriagePR runs the gated pipeline for a pull request:
//
//	Tier 1 (dedup)      gated -> RECOMMEND_CLOSE, stop
//	Tier 2 (heuristics) gated -> REVIEW_REQUIRED, stop
//	Tier 3 (alignment)  scoring-based verdict
func (o *Orchestrator) TriagePR(ctx context.Context, in PRInput) *types.Scorecard {
	pr := in.PR
	card := &types.Scorecard{
		ID:     uuid.NewString(),
		Owner:  pr.Owner,
		Repo:   pr.Repo,
		Kind:   types.KindPullRequest,
		Number: pr.Number,
	}

	// Tier 1: dedup.
	dedup := SkippedDedup()
	if in.Embedding != nil {
		dedup = CheckPRDuplicates(pr, in.Embedding, in.Existing, in.Embeddings, o.cfg.DuplicateThreshold)
	}
	card.Dedup = dedup
	card.Dimensions = append(card.Dimensions, dedupDimension("Hygiene & Dedup", "PR", dedup))

	if dedup.Outcome == types.TierGated {
		card.Verdict = types.VerdictRecommendClose
		card.Confidence = dedup.MaxSimilarity
		card.Summary = fmt.Sprintf("PR is a duplicate of PR#%d (similarity: %.2f). Recommend closing.",
			dedup.DuplicateOf, dedup.MaxSimilarity)
		return card
	}

	// Tier 2: heuristics. Vision focus areas feed the sensitive-path rule.
	var extraSensitive []string
	if in.Vision != nil {
		extraSensitive = in.Vision.FocusAreas
	}
	heur := o.heur.RunPR(pr, in.Recent, extraSensitive)
	card.Heuristics = &heur
	card.Flags = append(card.Flags, heur.Flags...)
	card.Dimensions = append(card.Dimensions, heuristicsDimension("Supply Chain Suspicion", heur))

	if heur.Outcome == types.TierGated {
		card.Verdict = types.VerdictReviewRequired
		card.Confidence = heur.SuspicionScore
		card.Summary = gatedHeuristicsSummary(heur)
		return card
	}

	// Tier 3: vision alignment.
	var alignment *types.AlignmentResult
	if o.tier3Enabled(in.Vision) {
		res, err := o.judge.AssessPR(ctx, pr, in.Vision)
		if err != nil {
			res = vision.ErrorResult(err.Error())
		}
		alignment = res
	}
	return o.finish(card, alignment, "PR")
}

// TriageIssue runs the gated pipeline for an issue.
func (o *Orchestrator) TriageIssue(ctx context.Context, in IssueInput) *types.Scorecard {
	issue := in.Issue
	card := &types.Scorecard{
		ID:     uuid.NewString(),
		Owner:  issue.Owner,
		Repo:   issue.Repo,
		Kind:   types.KindIssue,
		Number: issue.Number,
	}

	// Tier 1: dedup.
	dedup := SkippedDedup()
	if in.Embedding != nil {
		dedup = CheckIssueDuplicates(issue, in.Embedding, in.Existing, in.Embeddings, o.cfg.IssueDuplicateThreshold)
	}
	card.Dedup = dedup
	card.Dimensions = append(card.Dimensions, dedupDimension("Issue Dedup", "Issue", dedup))

	if dedup.Outcome == types.TierGated {
		card.Verdict = types.VerdictRecommendClose
		card.Confidence = dedup.MaxSimilarity
		card.Summary = fmt.Sprintf("Issue is a duplicate of Issue#%d (similarity: %.2f). Recommend closing.",
			dedup.DuplicateOf, dedup.MaxSimilarity)
		return card
	}

	// Tier 2: heuristics.
	heur := o.heur.RunIssue(issue, in.Recent)
	card.Heuristics = &heur
	card.Flags = append(card.Flags, heur.Flags...)
	card.Dimensions = append(card.Dimensions, heuristicsDimension("Issue Quality", heur))

	if heur.Outcome == types.TierGated {
		card.Verdict = types.VerdictReviewRequired
		card.Confidence = heur.SuspicionScore
		card.Summary = gatedHeuristicsSummary(heur)
		return card
	}

	// Tier 3: vision alignment.
	var alignment *types.AlignmentResult
	if o.tier3Enabled(in.Vision) {
		res, err := o.judge.AssessIssue(ctx, issue, in.Vision)
		if err != nil {
			res = vision.ErrorResult(err.Error())
		}
		alignment = res
	}
	return o.finish(card, alignment, "Issue")
}

func (o *Orchestrator) tier3Enabled(doc *vision.Document) bool {
	return o.cfg.EnableTier3 && o.judge != nil && doc != nil
}

// finish applies the Tier-3 verdict rules and the fast-track fallthrough.
// alignment is nil when Tier 3 never ran; its dimension is only recorded
// when the tier actually produced a result.
func (o *Orchestrator) finish(card *types.Scorecard, alignment *types.AlignmentResult, noun string) *types.Scorecard {
	if alignment != nil {
		card.Alignment = alignment
		card.Dimensions = append(card.Dimensions, types.DimensionScore{
			Dimension: "Vision Alignment",
			Score:     alignment.AlignmentScore,
			Summary:   fmt.Sprintf("Alignment: %.2f", alignment.AlignmentScore),
		})

		if alignment.Outcome == types.TierError {
			reason := "unknown error"
			if len(alignment.Concerns) > 0 {
				reason = alignment.Concerns[0]
			}
			card.Verdict = types.VerdictReviewRequired
			card.Confidence = 0.5
			card.Summary = "Vision assessment errored: " + reason
			return card
		}

		if alignment.AlignmentScore < 0.4 {
			violated := "none"
			if len(alignment.ViolatedPrinciples) > 0 {
				violated = strings.Join(alignment.ViolatedPrinciples, ", ")
			}
			card.Verdict = types.VerdictReviewRequired
			card.Confidence = 1.0 - alignment.AlignmentScore
			card.Summary = fmt.Sprintf("Low vision alignment (%.2f). Violated: %s.",
				alignment.AlignmentScore, violated)
			return card
		}

		if len(card.Flags) > 0 && alignment.AlignmentScore < 0.6 {
			card.Verdict = types.VerdictReviewRequired
			card.Confidence = 0.6
			card.Summary = fmt.Sprintf("Moderate alignment (%.2f) combined with %d suspicion flag(s) warrants review.",
				alignment.AlignmentScore, len(card.Flags))
			return card
		}
	}

	confidence := 0.8
	if alignment != nil && alignment.AlignmentScore > 0 {
		confidence = alignment.AlignmentScore
	}
	card.Verdict = types.VerdictFastTrack
	card.Confidence = confidence
	card.Summary = noun + " passed all tiers. Safe to fast-track."
	return card
}

func dedupDimension(name, noun string, d *types.DedupResult) types.DimensionScore {
	dim := types.DimensionScore{Dimension: name, Score: 1.0, Summary: "No duplicates found"}
	if d.IsDuplicate {
		dim.Score = 0.0
		dim.Summary = fmt.Sprintf("Duplicate of %s#%d (similarity: %.2f)", noun, d.DuplicateOf, d.MaxSimilarity)
	}
	return dim
}

func heuristicsDimension(name string, h types.HeuristicsResult) types.DimensionScore {
	return types.DimensionScore{
		Dimension: name,
		Score:     1.0 - h.SuspicionScore,
		Flags:     h.Flags,
		Summary:   fmt.Sprintf("Suspicion score: %.2f (%d flag(s))", h.SuspicionScore, len(h.Flags)),
	}
}

func gatedHeuristicsSummary(h types.HeuristicsResult) string {
	titles := make([]string, 0, len(h.Flags))
	for _, f := range h.Flags {
		titles = append(titles, f.Title)
	}
	return fmt.Sprintf("Suspicion score %.2f exceeds threshold. Flagged: %s.",
		h.SuspicionScore, strings.Join(titles, ", "))
}
