package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintainerd/gatekeeper/internal/types"
)

func TestTopDirectory(t *testing.T) {
	assert.Equal(t, "internal", topDirectory("internal/auth/session.go"))
	assert.Equal(t, "docs", topDirectory("docs/guide.md"))
	assert.Equal(t, "(root)", topDirectory("README.md"))
	assert.Equal(t, "src", topDirectory(`src\windows\path.go`))
}

func TestBuildContributorProfile(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	merged := prWithFiles(1, "Add feature", "internal/core/engine.go", "internal/core/engine_test.go")
	merged.MergedAt = base.Add(48 * time.Hour)
	merged.CreatedAt = base
	merged.TotalAdditions = 100
	merged.TotalDeletions = 20

	open := prWithFiles(2, "WIP refactor", "internal/core/loop.go")
	open.State = "open"
	open.CreatedAt = base.Add(30 * 24 * time.Hour)
	open.TotalAdditions = 50

	closed := prWithFiles(3, "Rejected idea", "docs/proposal.md")
	closed.State = "closed"
	closed.CreatedAt = base.Add(10 * 24 * time.Hour)
	closed.TotalAdditions = 30
	closed.TotalDeletions = 10

	profile := BuildContributorProfile("acme", "widgets", "octocat",
		[]*types.PullRequest{merged, open, closed}, 4)

	assert.Equal(t, "octocat", profile.Username)
	assert.Equal(t, 3, profile.TotalPRs)
	assert.Equal(t, 1, profile.MergedPRs)
	assert.Equal(t, 1, profile.OpenPRs)
	assert.Equal(t, 1, profile.ClosedPRs)
	assert.Equal(t, 4, profile.ReviewCount)

	assert.InDelta(t, 1.0/3.0, profile.MergeRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, profile.TestInclusionRate, 1e-9)
	assert.InDelta(t, 60.0, profile.AvgAdditions, 1e-9)
	assert.InDelta(t, 10.0, profile.AvgDeletions, 1e-9)

	// internal touched by 3 files, docs by 1.
	require.NotEmpty(t, profile.AreasOfExpertise)
	assert.Equal(t, "internal", profile.AreasOfExpertise[0])

	assert.Equal(t, base, profile.FirstContribution)
	assert.Equal(t, base.Add(30*24*time.Hour), profile.LastContribution)
}

func TestBuildContributorProfileEmpty(t *testing.T) {
	profile := BuildContributorProfile("acme", "widgets", "ghost", nil, 0)
	assert.Equal(t, "ghost", profile.Username)
	assert.Zero(t, profile.TotalPRs)
	assert.Zero(t, profile.MergeRate)
	assert.Empty(t, profile.AreasOfExpertise)
}

func TestTopDirectoriesTieBreakByName(t *testing.T) {
	counts := map[string]int{"zeta": 2, "alpha": 2, "beta": 5, "gamma": 1}
	dirs := topDirectories(counts, 3)
	assert.Equal(t, []string{"beta", "alpha", "zeta"}, dirs)
}
