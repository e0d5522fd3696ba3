package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/ingest"
	"github.com/maintainerd/gatekeeper/internal/triage"
)

var reviewersRecentLimit int

var reviewersCmd = &cobra.Command{
	Use:   "reviewers <owner/repo> <number>",
	Short: "Suggest reviewers for a PR",
	Long: `Rank candidate reviewers from two signals: CODEOWNERS patterns
matching the changed files, and who reviewed recently merged PRs that
touched the same files. The PR author is never suggested.

Example:
  gatekeeper reviewers acme/widgets 1234`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])
		number := parseNumber(args[1])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		ctx := context.Background()
		pr, _, err := loader.LoadPR(ctx, owner, repo, number)
		if err != nil {
			fatal(err)
		}

		fetcher := ingest.NewGitHubClient(&cfg)
		content, err := fetcher.FetchCodeowners(ctx, owner, repo)
		if err != nil {
			fatal(err)
		}
		rules := triage.ParseCodeowners(content)

		recent, _, err := loader.LoadMergedPRs(ctx, owner, repo, reviewersRecentLimit)
		if err != nil {
			fatal(err)
		}
		reviewsByPR := make(map[int][]string, len(recent))
		for _, past := range recent {
			reviewers, err := fetcher.FetchReviewers(ctx, owner, repo, past.Number)
			if err != nil {
				continue // best effort; review history is a soft signal
			}
			reviewsByPR[past.Number] = reviewers
		}

		report := triage.SuggestReviewers(pr, rules, recent, reviewsByPR, cfg.ReviewerMaxSuggest)
		if flagJSON {
			printJSON(report)
			return
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("\n%s #%d: %s\n", cyan("PR"), report.PRNumber, report.PRTitle)
		if !report.CodeOwnersFound {
			fmt.Printf("  %s\n", gray("No CODEOWNERS file found"))
		}
		if len(report.Suggestions) == 0 {
			fmt.Println("  No reviewer candidates found")
			fmt.Println()
			return
		}
		fmt.Println()
		for _, s := range report.Suggestions {
			fmt.Printf("  %-16s %.2f  %s\n", s.Username, s.Score, gray(strings.Join(s.Reasons, "; ")))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(reviewersCmd)
	reviewersCmd.Flags().IntVar(&reviewersRecentLimit, "recent", 30, "Recently merged PRs to mine for review history")
}
