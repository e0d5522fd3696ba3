package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/triage"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <owner/repo>",
	Short: "Find open PRs likely to collide",
	Long: `Score every pair of open PRs by blending file-set overlap with
embedding similarity, and report pairs above the conflict threshold.

Two PRs rewriting the same function rarely share exact lines, so the
blend leans on file overlap (weight 0.6 by default) with semantic
similarity filling in the rest.

Example:
  gatekeeper conflicts acme/widgets`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])

		cfg := loadConfig()
		loader, closeLoader := openLoader(&cfg)
		defer closeLoader()

		prs, embeddings, err := loader.LoadOpenPRs(context.Background(), owner, repo, 0)
		if err != nil {
			fatal(err)
		}

		report := triage.DetectConflicts(prs, embeddings, cfg.FileOverlapWeight, cfg.ConflictThreshold)
		if flagJSON {
			printJSON(report)
			return
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		if len(report.Pairs) == 0 {
			fmt.Printf("%s No likely conflicts among %d open PRs\n", green("✓"), report.TotalOpenPRs)
			return
		}

		fmt.Printf("\n%s %d potential conflict pair(s) among %d open PRs:\n\n",
			yellow("⚠"), len(report.Pairs), report.TotalOpenPRs)
		for _, p := range report.Pairs {
			fmt.Printf("  #%d ↔ #%d  confidence %.2f %s\n",
				p.PRA, p.PRB, p.Confidence,
				gray(fmt.Sprintf("(files %.2f, semantic %.2f)", p.FileOverlap, p.SemanticSimilarity)))
			fmt.Printf("    %s / %s\n", p.PRATitle, p.PRBTitle)
			if len(p.OverlappingFiles) > 0 {
				fmt.Printf("    %s\n", gray(strings.Join(p.OverlappingFiles, ", ")))
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
}
