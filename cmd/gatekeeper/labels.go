package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/ingest"
	"github.com/maintainerd/gatekeeper/internal/triage"
	"github.com/maintainerd/gatekeeper/internal/types"
)

var labelsKind string

var labelsCmd = &cobra.Command{
	Use:   "labels <owner/repo> <number>",
	Short: "Suggest labels for a PR or issue",
	Long: `Classify an item against the merged label taxonomy: the vision
document's labels (which win on name collisions) plus the repository's
own labels. Confidence blends keyword matches with embedding similarity.

Examples:
  gatekeeper labels acme/widgets 1234
  gatekeeper labels acme/widgets 567 --kind issue`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])
		number := parseNumber(args[1])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		doc := loadVision(&cfg)
		ctx := context.Background()

		var item types.ContributionItem
		var itemEmb []float64
		switch labelsKind {
		case "pr":
			pr, emb, err := loader.LoadPR(ctx, owner, repo, number)
			if err != nil {
				fatal(err)
			}
			item, itemEmb = pr, emb
		case "issue":
			issue, emb, err := loader.LoadIssue(ctx, owner, repo, number)
			if err != nil {
				fatal(err)
			}
			item, itemEmb = issue, emb
		default:
			fatal(fmt.Errorf("--kind must be pr or issue, got %q", labelsKind))
		}

		fetcher := ingest.NewGitHubClient(&cfg)
		repoLabels, err := fetcher.FetchRepoLabels(ctx, owner, repo)
		if err != nil {
			fatal(err)
		}

		var visionLabels []types.LabelDefinition
		if doc != nil {
			visionLabels = doc.Taxonomy()
		}
		taxonomy := triage.MergeTaxonomies(visionLabels, repoLabels)

		embedder := ingest.NewLocalEmbedder()
		labelEmbs := make([][]float64, len(taxonomy))
		for i, label := range taxonomy {
			labelEmbs[i], err = embedder.Embed(ctx, triage.LabelEmbeddingText(label))
			if err != nil {
				fatal(err)
			}
		}

		report := triage.ClassifyItem(item, itemEmb, taxonomy, labelEmbs,
			cfg.LabelThreshold, cfg.LabelKeywordWeight, cfg.LabelMaxSuggestion)

		if flagJSON {
			printJSON(report)
			return
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		fmt.Printf("\n%s #%d: %s\n", report.Kind, report.Number, report.Title)
		fmt.Printf("  Taxonomy: %d labels  Existing: %s\n\n",
			report.TaxonomySize, strings.Join(report.ExistingLabels, ", "))

		if len(report.Suggestions) == 0 {
			fmt.Printf("  No labels above threshold %.2f\n\n", report.Threshold)
			return
		}
		for _, s := range report.Suggestions {
			detail := fmt.Sprintf("semantic %.2f", s.EmbeddingSimilarity)
			if len(s.KeywordMatches) > 0 {
				detail += ", keywords: " + strings.Join(s.KeywordMatches, ", ")
			}
			fmt.Printf("  %s %-20s %.2f  %s\n", green("+"), s.Label, s.Confidence, gray(detail))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.Flags().StringVar(&labelsKind, "kind", "pr", "Item kind: pr or issue")
}
