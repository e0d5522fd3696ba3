package triage

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/maintainerd/gatekeeper/internal/similarity"
	"github.com/maintainerd/gatekeeper/internal/types"
)

// keywordPatterns caches compiled whole-word matchers keyed by lowercase
// keyword, so classifying a batch of items compiles each keyword once.
var keywordPatterns sync.Map

func keywordPattern(kw string) *regexp.Regexp {
	if re, ok := keywordPatterns.Load(kw); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	keywordPatterns.Store(kw, re)
	return re
}

// LabelEmbeddingText renders a label definition into the text its embedding
// is computed from: name, description, and keywords joined with spaces.
func LabelEmbeddingText(label types.LabelDefinition) string {
	parts := []string{label.Name}
	if label.Description != "" {
		parts = append(parts, label.Description)
	}
	if len(label.Keywords) > 0 {
		parts = append(parts, strings.Join(label.Keywords, " "))
	}
	return strings.Join(parts, " ")
}

// ItemEmbeddingText renders a PR or issue into classification text: title,
// bounded body, changed filenames (PRs only), and existing labels.
func ItemEmbeddingText(item types.ContributionItem) string {
	parts := []string{item.ItemTitle()}
	if body := item.ItemBody(); body != "" {
		if len(body) > 1000 {
			body = body[:1000]
		}
		parts = append(parts, body)
	}
	if pr, ok := item.(*types.PullRequest); ok && len(pr.Files) > 0 {
		names := make([]string, len(pr.Files))
		for i, f := range pr.Files {
			names[i] = f.Path
		}
		parts = append(parts, strings.Join(names, " "))
	}
	if labels := item.ItemLabels(); len(labels) > 0 {
		parts = append(parts, strings.Join(labels, " "))
	}
	return strings.Join(parts, "\n")
}

// MergeTaxonomies combines vision-document labels with repository labels.
// A vision label wins over a repository label of the same name (case
// insensitive); everything else is kept.
func MergeTaxonomies(visionLabels, repoLabels []types.LabelDefinition) []types.LabelDefinition {
	visionNames := make(map[string]struct{}, len(visionLabels))
	for _, lb := range visionLabels {
		visionNames[strings.ToLower(lb.Name)] = struct{}{}
	}
	merged := append([]types.LabelDefinition(nil), visionLabels...)
	for _, lb := range repoLabels {
		if _, ok := visionNames[strings.ToLower(lb.Name)]; !ok {
			merged = append(merged, lb)
		}
	}
	return merged
}

// keywordScore is the fraction of a label's keywords found as whole words
// in the item text, plus the matched keywords themselves. Labels without
// keywords score 0.
func keywordScore(itemText string, label types.LabelDefinition) (float64, []string) {
	if len(label.Keywords) == 0 {
		return 0.0, nil
	}
	textLower := strings.ToLower(itemText)

	var matched []string
	for _, kw := range label.Keywords {
		if keywordPattern(strings.ToLower(kw)).MatchString(textLower) {
			matched = append(matched, kw)
		}
	}
	return float64(len(matched)) / float64(len(label.Keywords)), matched
}

// ClassifyItem scores an item against a label taxonomy by blending keyword
// matches with embedding similarity and keeps the top suggestions at or
// above threshold. itemEmbedding and labelEmbeddings must come from the
// same embedder; taxonomy and labelEmbeddings are index-aligned.
func ClassifyItem(
	item types.ContributionItem,
	itemEmbedding []float64,
	taxonomy []types.LabelDefinition,
	labelEmbeddings [][]float64,
	threshold float64,
	keywordWeight float64,
	maxSuggestions int,
) *types.LabelingReport {
	report := &types.LabelingReport{
		Kind:           item.Kind(),
		Number:         item.ItemNumber(),
		Title:          item.ItemTitle(),
		ExistingLabels: item.ItemLabels(),
		TaxonomySize:   len(taxonomy),
		Threshold:      threshold,
	}
	switch v := item.(type) {
	case *types.PullRequest:
		report.Owner, report.Repo = v.Owner, v.Repo
	case *types.Issue:
		report.Owner, report.Repo = v.Owner, v.Repo
	}

	if len(taxonomy) == 0 || len(labelEmbeddings) == 0 {
		return report
	}

	sim := similarity.Matrix([][]float64{itemEmbedding}, labelEmbeddings)
	itemText := ItemEmbeddingText(item)

	var suggestions []types.LabelSuggestion
	for j, label := range taxonomy {
		embSim := 0.0
		if sim != nil {
			embSim = sim[0][j]
		}
		kwScore, matches := keywordScore(itemText, label)
		confidence := similarity.Blend(kwScore, keywordWeight, embSim)
		if confidence < threshold {
			continue
		}
		suggestions = append(suggestions, types.LabelSuggestion{
			Label:               label.Name,
			Confidence:          confidence,
			EmbeddingSimilarity: embSim,
			KeywordMatches:      matches,
			Source:              label.Source,
		})
	}

	sort.SliceStable(suggestions, func(a, b int) bool {
		return suggestions[a].Confidence > suggestions[b].Confidence
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	report.Suggestions = suggestions
	return report
}
