package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictValid(t *testing.T) {
	assert.True(t, VerdictFastTrack.Valid())
	assert.True(t, VerdictReviewRequired.Valid())
	assert.True(t, VerdictRecommendClose.Valid())
	assert.False(t, Verdict("approved").Valid())
	assert.False(t, Verdict("").Valid())
}

func TestSeverityWeight(t *testing.T) {
	assert.Equal(t, 0.3, SeverityHigh.Weight())
	assert.Equal(t, 0.15, SeverityMedium.Weight())
	assert.Equal(t, 0.05, SeverityLow.Weight())
	assert.Equal(t, 0.1, FlagSeverity("bogus").Weight(), "malformed flags are never free")
}

func TestSuspicionFlagValidate(t *testing.T) {
	valid := SuspicionFlag{RuleID: "new_account", Severity: SeverityMedium, Title: "New account"}
	assert.NoError(t, valid.Validate())

	missing := SuspicionFlag{Severity: SeverityHigh}
	assert.Error(t, missing.Validate())

	badSeverity := SuspicionFlag{RuleID: "x", Severity: "critical"}
	assert.Error(t, badSeverity.Validate())
}

func TestDedupResultValidate(t *testing.T) {
	dup := DedupResult{Outcome: TierGated, IsDuplicate: true, DuplicateOf: 12, MaxSimilarity: 0.95}
	assert.NoError(t, dup.Validate())

	noRef := DedupResult{Outcome: TierGated, IsDuplicate: true}
	assert.Error(t, noRef.Validate(), "duplicates must name the matched peer")

	strayRef := DedupResult{Outcome: TierPass, DuplicateOf: 7}
	assert.Error(t, strayRef.Validate())

	notGated := DedupResult{Outcome: TierPass, IsDuplicate: true, DuplicateOf: 7}
	assert.Error(t, notGated.Validate())
}

func TestScorecardValidate(t *testing.T) {
	card := Scorecard{
		ID: "abc", Kind: KindPullRequest, Number: 12,
		Verdict: VerdictFastTrack, Confidence: 0.8,
	}
	assert.NoError(t, card.Validate())

	card.Verdict = "maybe"
	assert.Error(t, card.Validate())

	card.Verdict = VerdictFastTrack
	card.Confidence = 1.2
	assert.Error(t, card.Validate())

	card.Confidence = 0.8
	card.Number = 0
	assert.Error(t, card.Validate())

	card.Number = 12
	card.Flags = []SuspicionFlag{{Severity: SeverityLow}}
	assert.Error(t, card.Validate(), "invalid flag fails the whole card")
}

func TestContributionItemAccessors(t *testing.T) {
	pr := &PullRequest{Number: 5, Title: "t", Body: "b", Labels: []string{"l"}}
	assert.Equal(t, KindPullRequest, pr.Kind())
	assert.Equal(t, 5, pr.ItemNumber())
	assert.Equal(t, "t", pr.ItemTitle())

	issue := &Issue{Number: 9, Title: "q"}
	assert.Equal(t, KindIssue, issue.Kind())
	assert.Equal(t, 9, issue.ItemNumber())
	assert.Empty(t, issue.ItemLabels())
}
