package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintainerd/gatekeeper/internal/types"
)

func TestLabelEmbeddingText(t *testing.T) {
	label := types.LabelDefinition{
		Name:        "bug",
		Description: "Something is broken",
		Keywords:    []string{"crash", "error"},
	}
	assert.Equal(t, "bug Something is broken crash error", LabelEmbeddingText(label))

	bare := types.LabelDefinition{Name: "question"}
	assert.Equal(t, "question", LabelEmbeddingText(bare))
}

func TestItemEmbeddingTextIncludesPRFiles(t *testing.T) {
	pr := prWithFiles(1, "Fix crash", "internal/auth/session.go")
	pr.Body = "Crash on expired token"
	pr.Labels = []string{"needs-review"}

	text := ItemEmbeddingText(pr)
	assert.Contains(t, text, "Fix crash")
	assert.Contains(t, text, "internal/auth/session.go")
	assert.Contains(t, text, "needs-review")

	issue := linkIssue(2, "Dark mode")
	issue.Body = "Please add dark mode"
	assert.Equal(t, "Dark mode\nPlease add dark mode", ItemEmbeddingText(issue))
}

func TestMergeTaxonomiesVisionWins(t *testing.T) {
	vision := []types.LabelDefinition{
		{Name: "Bug", Keywords: []string{"crash"}, Source: "vision"},
	}
	repo := []types.LabelDefinition{
		{Name: "bug", Description: "github version", Source: "github"},
		{Name: "docs", Source: "github"},
	}

	merged := MergeTaxonomies(vision, repo)
	require.Len(t, merged, 2)
	assert.Equal(t, "Bug", merged[0].Name)
	assert.Equal(t, "vision", merged[0].Source)
	assert.Equal(t, "docs", merged[1].Name)
}

func TestKeywordScoreWholeWordsOnly(t *testing.T) {
	label := types.LabelDefinition{Name: "bug", Keywords: []string{"crash", "panic"}}

	score, matched := keywordScore("the app will crash on startup", label)
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Equal(t, []string{"crash"}, matched)

	// "crashing" must not match the keyword "crash".
	score, matched = keywordScore("the app keeps crashing", label)
	assert.Zero(t, score)
	assert.Empty(t, matched)

	score, _ = keywordScore("anything", types.LabelDefinition{Name: "no-keywords"})
	assert.Zero(t, score)
}

func TestKeywordPatternCompiledOnce(t *testing.T) {
	a := keywordPattern("crash")
	b := keywordPattern("crash")
	assert.Same(t, a, b, "repeated lookups reuse the compiled matcher")
	assert.True(t, a.MatchString("app crash on startup"))
	assert.False(t, a.MatchString("app keeps crashing"))
}

func TestClassifyItem(t *testing.T) {
	taxonomy := []types.LabelDefinition{
		{Name: "bug", Keywords: []string{"crash", "error"}, Source: "github"},
		{Name: "docs", Keywords: []string{"readme"}, Source: "github"},
	}
	labelEmbs := [][]float64{unitVec(0), unitVec(1)}

	issue := linkIssue(7, "App crash with error dialog")
	report := ClassifyItem(issue, unitVec(0), taxonomy, labelEmbs, 0.5, 0.3, 3)

	assert.Equal(t, types.KindIssue, report.Kind)
	assert.Equal(t, 7, report.Number)
	assert.Equal(t, "acme", report.Owner)
	require.Len(t, report.Suggestions, 1)

	top := report.Suggestions[0]
	assert.Equal(t, "bug", top.Label)
	// keywords fully matched, embeddings identical: 0.3*1.0 + 0.7*1.0
	assert.InDelta(t, 1.0, top.Confidence, 1e-9)
	assert.ElementsMatch(t, []string{"crash", "error"}, top.KeywordMatches)
	assert.Equal(t, "github", top.Source)
}

func TestClassifyItemCapsSuggestions(t *testing.T) {
	taxonomy := []types.LabelDefinition{
		{Name: "a"}, {Name: "b"}, {Name: "c"},
	}
	labelEmbs := [][]float64{unitVec(0), unitVec(0), unitVec(0)}

	issue := linkIssue(1, "anything")
	report := ClassifyItem(issue, unitVec(0), taxonomy, labelEmbs, 0.5, 0.3, 2)
	assert.Len(t, report.Suggestions, 2)
}

func TestClassifyItemEmptyTaxonomy(t *testing.T) {
	issue := linkIssue(1, "anything")
	report := ClassifyItem(issue, unitVec(0), nil, nil, 0.5, 0.3, 3)
	assert.Empty(t, report.Suggestions)
	assert.Zero(t, report.TaxonomySize)
}
