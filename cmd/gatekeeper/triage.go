package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/pipeline"
	"github.com/maintainerd/gatekeeper/internal/types"
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Run the tiered pipeline on a single PR or issue",
}

var triagePRCmd = &cobra.Command{
	Use:   "pr <owner/repo> <number>",
	Short: "Triage one pull request",
	Long: `Run the full gated pipeline on one pull request.

Tier 1 compares the PR against every other open PR; a near-duplicate
gates immediately with RECOMMEND_CLOSE. Tier 2 runs the heuristic rule
catalog; a suspicion score at or above the threshold gates with
REVIEW_REQUIRED. Tier 3 judges the PR against the vision document when
one is configured.

Examples:
  gatekeeper triage pr acme/widgets 1234
  gatekeeper triage pr acme/widgets 1234 --vision VISION.md --json`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])
		number := parseNumber(args[1])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		doc := loadVision(&cfg)
		ctx := context.Background()

		pr, embedding, err := loader.LoadPR(ctx, owner, repo, number)
		if err != nil {
			fatal(err)
		}
		existing, embeddings, err := loader.LoadOpenPRs(ctx, owner, repo, number)
		if err != nil {
			fatal(err)
		}

		orch := pipeline.New(&cfg, newJudge(&cfg, doc))
		card := orch.TriagePR(ctx, pipeline.PRInput{
			PR:         pr,
			Embedding:  embedding,
			Existing:   existing,
			Embeddings: embeddings,
			Recent:     existing,
			Vision:     doc,
		})

		if flagJSON {
			printJSON(card)
			return
		}
		renderScorecard(card, pr.Title)
	},
}

var triageIssueCmd = &cobra.Command{
	Use:   "issue <owner/repo> <number>",
	Short: "Triage one issue",
	Long: `Run the full gated pipeline on one issue: dedup against open issues,
the issue-quality rule catalog, then vision alignment.

Example:
  gatekeeper triage issue acme/widgets 567`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])
		number := parseNumber(args[1])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		doc := loadVision(&cfg)
		ctx := context.Background()

		issue, embedding, err := loader.LoadIssue(ctx, owner, repo, number)
		if err != nil {
			fatal(err)
		}
		existing, embeddings, err := loader.LoadOpenIssues(ctx, owner, repo, number)
		if err != nil {
			fatal(err)
		}

		orch := pipeline.New(&cfg, newJudge(&cfg, doc))
		card := orch.TriageIssue(ctx, pipeline.IssueInput{
			Issue:      issue,
			Embedding:  embedding,
			Existing:   existing,
			Embeddings: embeddings,
			Recent:     existing,
			Vision:     doc,
		})

		if flagJSON {
			printJSON(card)
			return
		}
		renderScorecard(card, issue.Title)
	},
}

func parseNumber(arg string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		fatal(fmt.Errorf("expected a positive item number, got %q", arg))
	}
	return n
}

func renderScorecard(card *types.Scorecard, title string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s #%d: %s\n", cyan(card.Kind), card.Number, title)
	fmt.Printf("  %s %s\n", verdictBadge(card.Verdict), gray(fmt.Sprintf("(confidence %.2f)", card.Confidence)))
	fmt.Printf("  %s\n\n", card.Summary)

	for _, dim := range card.Dimensions {
		fmt.Printf("  %-24s %.2f  %s\n", dim.Dimension, dim.Score, gray(dim.Summary))
	}

	if len(card.Flags) > 0 {
		fmt.Println()
		for _, f := range card.Flags {
			fmt.Printf("  %s %s — %s\n", severityBadge(f.Severity), f.Title, gray(f.Explanation))
		}
	}
	fmt.Println()
}

func verdictBadge(v types.Verdict) string {
	switch v {
	case types.VerdictFastTrack:
		return color.New(color.FgGreen, color.Bold).Sprint("FAST_TRACK")
	case types.VerdictRecommendClose:
		return color.New(color.FgRed, color.Bold).Sprint("RECOMMEND_CLOSE")
	default:
		return color.New(color.FgYellow, color.Bold).Sprint("REVIEW_REQUIRED")
	}
}

func severityBadge(s types.FlagSeverity) string {
	switch s {
	case types.SeverityHigh:
		return color.New(color.FgRed).Sprint("[high]")
	case types.SeverityMedium:
		return color.New(color.FgYellow).Sprint("[medium]")
	default:
		return color.New(color.FgHiBlack).Sprint("[low]")
	}
}

func init() {
	rootCmd.AddCommand(triageCmd)
	triageCmd.AddCommand(triagePRCmd)
	triageCmd.AddCommand(triageIssueCmd)
}
