package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/triage"
	"github.com/maintainerd/gatekeeper/internal/types"
)

var staleMergedLimit int

var staleCmd = &cobra.Command{
	Use:   "stale <owner/repo>",
	Short: "Find superseded, addressed, blocked, and inactive items",
	Long: `Run the four staleness signals over a repository:

  superseded  open PR highly similar to a PR merged after it was opened
  addressed   open issue highly similar to a merged PR
  blocked     open PR whose linked issues are still open
  inactive    no activity past the inactivity cutoff

Examples:
  gatekeeper stale acme/widgets
  gatekeeper stale acme/widgets --merged 100`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		ctx := context.Background()
		openPRs, openEmbs, err := loader.LoadOpenPRs(ctx, owner, repo, 0)
		if err != nil {
			fatal(err)
		}
		issues, issueEmbs, err := loader.LoadOpenIssues(ctx, owner, repo, 0)
		if err != nil {
			fatal(err)
		}
		mergedPRs, mergedEmbs, err := loader.LoadMergedPRs(ctx, owner, repo, staleMergedLimit)
		if err != nil {
			fatal(err)
		}

		report := triage.DetectStale(triage.StalenessInput{
			OpenPRs:          openPRs,
			OpenPREmbeddings: openEmbs,
			OpenIssues:       issues,
			IssueEmbeddings:  issueEmbs,
			MergedPRs:        mergedPRs,
			MergedEmbeddings: mergedEmbs,
		}, cfg.StaleThreshold, cfg.StaleInactiveDays, time.Now())

		if flagJSON {
			printJSON(report)
			return
		}
		renderStale(report)
	},
}

func renderStale(r *types.StalenessReport) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	total := len(r.SupersededPRs) + len(r.AddressedIssues) + len(r.BlockedPRs) +
		len(r.InactivePRs) + len(r.InactiveIssues)
	if total == 0 {
		fmt.Printf("%s Nothing stale across %d open PRs and %d open issues\n",
			green("✓"), r.TotalOpenPRs, r.TotalOpenIssues)
		return
	}

	fmt.Printf("\n%s %d finding(s) across %d open PRs and %d open issues:\n\n",
		cyan("Staleness:"), total, r.TotalOpenPRs, r.TotalOpenIssues)

	sections := []struct {
		name  string
		items []types.StaleItem
	}{
		{"Superseded PRs", r.SupersededPRs},
		{"Addressed issues", r.AddressedIssues},
		{"Blocked PRs", r.BlockedPRs},
		{"Inactive PRs", r.InactivePRs},
		{"Inactive issues", r.InactiveIssues},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Printf("  %s:\n", s.name)
		for _, item := range s.items {
			fmt.Printf("    #%-6d %s\n", item.Number, gray(item.Explanation))
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(staleCmd)
	staleCmd.Flags().IntVar(&staleMergedLimit, "merged", 50, "Recently merged PRs to compare against")
}
