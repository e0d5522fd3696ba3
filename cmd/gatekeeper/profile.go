package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/triage"
)

var profileCmd = &cobra.Command{
	Use:   "profile <owner/repo> <username>",
	Short: "Summarize a contributor's history in a repository",
	Long: `Build a contributor profile from the user's PRs in the repository:
merge rate, test inclusion rate, average change size, the directories
they touch most, and their contribution date range.

Example:
  gatekeeper profile acme/widgets octocat`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])
		username := args[1]

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		prs, err := loader.LoadAuthorPRs(context.Background(), owner, repo, username)
		if err != nil {
			fatal(err)
		}

		profile := triage.BuildContributorProfile(owner, repo, username, prs, 0)
		if flagJSON {
			printJSON(profile)
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s %s in %s/%s\n\n", cyan("Contributor:"), profile.Username, owner, repo)
		if profile.TotalPRs == 0 {
			fmt.Println("  No PRs found for this user")
			fmt.Println()
			return
		}

		fmt.Printf("  PRs: %d total (%d merged, %d open, %d closed)\n",
			profile.TotalPRs, profile.MergedPRs, profile.OpenPRs, profile.ClosedPRs)
		fmt.Printf("  Merge rate: %.0f%%   Includes tests: %.0f%%\n",
			profile.MergeRate*100, profile.TestInclusionRate*100)
		fmt.Printf("  Avg change: +%.0f/-%.0f\n", profile.AvgAdditions, profile.AvgDeletions)
		if len(profile.AreasOfExpertise) > 0 {
			fmt.Printf("  Active in: %s\n", strings.Join(profile.AreasOfExpertise, ", "))
		}
		if !profile.FirstContribution.IsZero() {
			fmt.Printf("  %s\n", gray(fmt.Sprintf("First PR %s, latest %s",
				profile.FirstContribution.Format("2006-01-02"),
				profile.LastContribution.Format("2006-01-02"))))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
