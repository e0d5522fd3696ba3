package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/triage"
)

var linksCmd = &cobra.Command{
	Use:   "links <owner/repo>",
	Short: "Connect open PRs to the issues they address",
	Long: `Record explicit links (issue numbers referenced from PR bodies),
suggest implicit ones from embedding similarity, and list orphan issues
no open PR appears to touch.

Example:
  gatekeeper links acme/widgets`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		ctx := context.Background()
		prs, prEmbs, err := loader.LoadOpenPRs(ctx, owner, repo, 0)
		if err != nil {
			fatal(err)
		}
		issues, issueEmbs, err := loader.LoadOpenIssues(ctx, owner, repo, 0)
		if err != nil {
			fatal(err)
		}

		report := triage.FindLinks(prs, prEmbs, issues, issueEmbs, cfg.LinkingThreshold)
		if flagJSON {
			printJSON(report)
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s %d PRs, %d issues\n\n", cyan("Linking:"), report.TotalPRs, report.TotalIssues)

		if len(report.ExplicitLinks) > 0 {
			fmt.Println("  Explicit links:")
			for _, l := range report.ExplicitLinks {
				fmt.Printf("    PR #%-5d -> issue #%-5d %s\n", l.PRNumber, l.IssueNumber, gray(l.IssueTitle))
			}
			fmt.Println()
		}

		if len(report.Suggestions) > 0 {
			fmt.Println("  Suggested links:")
			for _, l := range report.Suggestions {
				fmt.Printf("    PR #%-5d -> issue #%-5d %.2f %s\n",
					l.PRNumber, l.IssueNumber, l.Similarity, gray(l.IssueTitle))
			}
			fmt.Println()
		}

		if len(report.OrphanIssues) > 0 {
			fmt.Printf("  Orphan issues (no related PR): %v\n\n", report.OrphanIssues)
		}
	},
}

func init() {
	rootCmd.AddCommand(linksCmd)
}
