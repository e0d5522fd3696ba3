package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/types"
	"github.com/maintainerd/gatekeeper/internal/vision"
)

// stubJudge returns a canned alignment result (or error) for every item.
type stubJudge struct {
	res *types.AlignmentResult
	err error
}

func (s *stubJudge) AssessPR(context.Context, *types.PullRequest, *vision.Document) (*types.AlignmentResult, error) {
	return s.res, s.err
}

func (s *stubJudge) AssessIssue(context.Context, *types.Issue, *vision.Document) (*types.AlignmentResult, error) {
	return s.res, s.err
}

func alignment(score float64) *types.AlignmentResult {
	outcome := types.TierPass
	if score < 0.4 {
		outcome = types.TierGated
	}
	return &types.AlignmentResult{Outcome: outcome, AlignmentScore: score}
}

func establishedAuthor() types.Author {
	return types.Author{
		Login:               "veteran",
		AccountCreatedAt:    time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		ContributionsToRepo: 12,
	}
}

// cleanPR raises no heuristic flags.
func cleanPR(number int) *types.PullRequest {
	return &types.PullRequest{
		Owner:  "acme",
		Repo:   "widgets",
		Number: number,
		Title:  "Clarify reload semantics in docs",
		Body:   "Documents the plugin reload ordering guarantees discussed in the maintainers sync.",
		Author: establishedAuthor(),
		Files: []types.FileChange{
			{Path: "docs/reload.md", Status: "modified", Additions: 5, Deletions: 1},
		},
		TotalAdditions: 5,
		TotalDeletions: 1,
		CreatedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

// suspiciousPR gates Tier 2: brand-new account touching auth code with no
// tests and a dependency bump.
func suspiciousPR(number int) *types.PullRequest {
	return &types.PullRequest{
		Owner:  "acme",
		Repo:   "widgets",
		Number: number,
		Title:  "Fixed some stuff",
		Body:   "",
		Author: types.Author{
			Login:               "newbie",
			AccountCreatedAt:    time.Now().Add(-5 * 24 * time.Hour),
			ContributionsToRepo: 0,
		},
		Files: []types.FileChange{
			{Path: "src/auth/login.py", Status: "modified", Additions: 50, Deletions: 10},
			{Path: "requirements.txt", Status: "modified", Additions: 3, Deletions: 0},
		},
		TotalAdditions: 53,
		TotalDeletions: 10,
		CreatedAt:      time.Now(),
	}
}

// mildPR raises exactly one low-severity flag (first contribution) without
// gating Tier 2.
func mildPR(number int) *types.PullRequest {
	pr := cleanPR(number)
	pr.Author.ContributionsToRepo = 0
	return pr
}

func testVision() *vision.Document {
	return &vision.Document{
		Project: "widgets",
		Principles: []vision.Principle{
			{Name: "Small core", Description: "keep it minimal"},
		},
	}
}

func TestTriagePRDuplicateGates(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	existing := []*types.PullRequest{cleanPR(10)}
	embeddings := [][]float64{{1, 0, 0}}

	card := o.TriagePR(context.Background(), PRInput{
		PR:         cleanPR(42),
		Embedding:  []float64{1, 0, 0},
		Existing:   existing,
		Embeddings: embeddings,
	})

	assert.Equal(t, types.VerdictRecommendClose, card.Verdict)
	assert.InDelta(t, 1.0, card.Confidence, 1e-9)
	require.NotNil(t, card.Dedup)
	assert.Equal(t, types.TierGated, card.Dedup.Outcome)
	assert.True(t, card.Dedup.IsDuplicate)
	assert.Equal(t, 10, card.Dedup.DuplicateOf)

	// Gated Tier 1 means later tiers never ran.
	assert.Nil(t, card.Heuristics)
	assert.Nil(t, card.Alignment)
	require.Len(t, card.Dimensions, 1)
	assert.Equal(t, "Hygiene & Dedup", card.Dimensions[0].Dimension)
	assert.Equal(t, 0.0, card.Dimensions[0].Score)

	assert.NoError(t, card.Validate())
}

func TestTriagePRDedupSkipsSelf(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	pr := cleanPR(42)
	card := o.TriagePR(context.Background(), PRInput{
		PR:         pr,
		Embedding:  []float64{1, 0, 0},
		Existing:   []*types.PullRequest{pr},
		Embeddings: [][]float64{{1, 0, 0}},
	})

	require.NotNil(t, card.Dedup)
	assert.False(t, card.Dedup.IsDuplicate, "self-comparison must not count as a duplicate")
	assert.Equal(t, types.VerdictFastTrack, card.Verdict)
}

func TestTriagePRNoEmbeddingSkipsTier1(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	card := o.TriagePR(context.Background(), PRInput{PR: cleanPR(1)})

	require.NotNil(t, card.Dedup)
	assert.Equal(t, types.TierSkipped, card.Dedup.Outcome)
	assert.Equal(t, types.VerdictFastTrack, card.Verdict)
}

func TestTriagePRHeuristicsGate(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, &stubJudge{res: alignment(0.9)})

	card := o.TriagePR(context.Background(), PRInput{
		PR:     suspiciousPR(7),
		Vision: testVision(),
	})

	assert.Equal(t, types.VerdictReviewRequired, card.Verdict)
	require.NotNil(t, card.Heuristics)
	assert.Equal(t, types.TierGated, card.Heuristics.Outcome)
	assert.Equal(t, card.Heuristics.SuspicionScore, card.Confidence)
	assert.NotEmpty(t, card.Flags)

	// Gated Tier 2 means the judge never ran.
	assert.Nil(t, card.Alignment)
	require.Len(t, card.Dimensions, 2)
	assert.Equal(t, "Supply Chain Suspicion", card.Dimensions[1].Dimension)
}

func TestTriagePRJudgeError(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, &stubJudge{err: errors.New("anthropic API call failed: 529")})

	card := o.TriagePR(context.Background(), PRInput{
		PR:     cleanPR(3),
		Vision: testVision(),
	})

	assert.Equal(t, types.VerdictReviewRequired, card.Verdict)
	assert.InDelta(t, 0.5, card.Confidence, 1e-9)
	require.NotNil(t, card.Alignment)
	assert.Equal(t, types.TierError, card.Alignment.Outcome)
	assert.Contains(t, card.Summary, "Vision assessment errored")
}

func TestTriagePRLowAlignment(t *testing.T) {
	cfg := config.Default()
	res := alignment(0.2)
	res.ViolatedPrinciples = []string{"Small core"}
	o := New(&cfg, &stubJudge{res: res})

	card := o.TriagePR(context.Background(), PRInput{
		PR:     cleanPR(3),
		Vision: testVision(),
	})

	assert.Equal(t, types.VerdictReviewRequired, card.Verdict)
	assert.InDelta(t, 0.8, card.Confidence, 1e-9)
	assert.Contains(t, card.Summary, "Small core")
}

func TestTriagePRCombinedEvidence(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, &stubJudge{res: alignment(0.5)})

	card := o.TriagePR(context.Background(), PRInput{
		PR:     mildPR(4),
		Vision: testVision(),
	})

	// One flag + moderate alignment trips the combined-evidence rule even
	// though neither tier gated on its own.
	require.NotNil(t, card.Heuristics)
	assert.Equal(t, types.TierPass, card.Heuristics.Outcome)
	assert.NotEmpty(t, card.Flags)
	assert.Equal(t, types.VerdictReviewRequired, card.Verdict)
	assert.InDelta(t, 0.6, card.Confidence, 1e-9)
}

func TestTriagePRFastTrack(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, &stubJudge{res: alignment(0.92)})

	card := o.TriagePR(context.Background(), PRInput{
		PR:     cleanPR(5),
		Vision: testVision(),
	})

	assert.Equal(t, types.VerdictFastTrack, card.Verdict)
	assert.InDelta(t, 0.92, card.Confidence, 1e-9, "fast-track confidence follows the alignment score")
	require.Len(t, card.Dimensions, 3)
	assert.Equal(t, "Vision Alignment", card.Dimensions[2].Dimension)
	assert.NoError(t, card.Validate())
}

func TestTriagePRFastTrackWithoutJudge(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	card := o.TriagePR(context.Background(), PRInput{
		PR:     cleanPR(5),
		Vision: testVision(),
	})

	assert.Equal(t, types.VerdictFastTrack, card.Verdict)
	assert.InDelta(t, 0.8, card.Confidence, 1e-9, "default confidence when Tier 3 never ran")
	assert.Nil(t, card.Alignment)
}

func TestTriagePRTier3Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.EnableTier3 = false
	judge := &stubJudge{res: alignment(0.1)}
	o := New(&cfg, judge)

	card := o.TriagePR(context.Background(), PRInput{
		PR:     cleanPR(5),
		Vision: testVision(),
	})

	assert.Nil(t, card.Alignment)
	assert.Equal(t, types.VerdictFastTrack, card.Verdict)
}

func TestTriageIssueDuplicateGates(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	existing := []*types.Issue{{
		Owner: "acme", Repo: "widgets", Number: 100,
		Title: "Crash on reload", Author: establishedAuthor(),
	}}

	card := o.TriageIssue(context.Background(), IssueInput{
		Issue: &types.Issue{
			Owner: "acme", Repo: "widgets", Number: 101,
			Title: "Crash when reloading", Author: establishedAuthor(),
		},
		Embedding:  []float64{0.6, 0.8},
		Existing:   existing,
		Embeddings: [][]float64{{0.6, 0.8}},
	})

	assert.Equal(t, types.KindIssue, card.Kind)
	assert.Equal(t, types.VerdictRecommendClose, card.Verdict)
	assert.Equal(t, 100, card.Dedup.DuplicateOf)
	assert.Nil(t, card.Heuristics)
}

func TestTriageIssueHeuristicsGate(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	card := o.TriageIssue(context.Background(), IssueInput{
		Issue: &types.Issue{
			Owner: "acme", Repo: "widgets", Number: 9,
			Title: "BUGBUGBUG",
			Body:  "broken",
			Author: types.Author{
				Login:            "fresh",
				AccountCreatedAt: time.Now().Add(-2 * 24 * time.Hour),
			},
			CreatedAt: time.Now(),
		},
	})

	assert.Equal(t, types.VerdictReviewRequired, card.Verdict)
	require.NotNil(t, card.Heuristics)
	assert.Equal(t, types.TierGated, card.Heuristics.Outcome)
}

func TestCheckPRDuplicatesBelowThreshold(t *testing.T) {
	pr := cleanPR(1)
	existing := []*types.PullRequest{cleanPR(2)}

	res := CheckPRDuplicates(pr, []float64{1, 0}, existing, [][]float64{{0.5, 0.5}}, 0.9)

	assert.Equal(t, types.TierPass, res.Outcome)
	assert.False(t, res.IsDuplicate)
	assert.InDelta(t, 0.7071, res.MaxSimilarity, 1e-3, "best similarity is recorded even when below threshold")
	assert.Equal(t, 0, res.DuplicateOf)
}

func TestCheckPRDuplicatesNoPeers(t *testing.T) {
	res := CheckPRDuplicates(cleanPR(1), []float64{1, 0}, nil, nil, 0.9)
	assert.Equal(t, types.TierPass, res.Outcome)
	assert.Equal(t, 0.0, res.MaxSimilarity)
}

func TestScorecardIDsAreUnique(t *testing.T) {
	cfg := config.Default()
	o := New(&cfg, nil)

	a := o.TriagePR(context.Background(), PRInput{PR: cleanPR(1)})
	b := o.TriagePR(context.Background(), PRInput{PR: cleanPR(1)})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
