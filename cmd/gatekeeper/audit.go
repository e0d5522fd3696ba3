package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/ingest"
	"github.com/maintainerd/gatekeeper/internal/triage"
	"github.com/maintainerd/gatekeeper/internal/types"
)

var (
	auditCount       int
	auditConcurrency int
)

var auditCmd = &cobra.Command{
	Use:   "audit <owner/repo>",
	Short: "Audit the open PR backlog in batch",
	Long: `Fetch up to --count open PRs, cluster near-duplicates at three
similarity thresholds, sweep the heuristic rule catalog over the whole
set, and report verdict distribution, flag frequency, the highest-risk
PRs, and contributor statistics.

Individual PR fetch failures are skipped, not fatal.

Examples:
  gatekeeper audit acme/widgets
  gatekeeper audit acme/widgets --count 200 --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		owner, repo := parseRepo(args[0])

		cfg := loadConfig()
		doc := loadVision(&cfg)

		fetcher := ingest.NewGitHubClient(&cfg)
		auditor := triage.NewAuditor(&cfg, fetcher, ingest.NewLocalEmbedder())
		if auditConcurrency > 0 {
			auditor.Concurrency = auditConcurrency
		}

		report, err := auditor.Run(context.Background(), owner, repo, auditCount, doc)
		if err != nil {
			fatal(err)
		}

		if flagJSON {
			printJSON(report)
			return
		}
		renderAudit(report)
	},
}

func renderAudit(r *types.AuditReport) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Printf("\n%s %s/%s — %d of %d open PRs analyzed in %.1fs\n\n",
		cyan("Audit:"), r.Owner, r.Repo, r.PRsAnalyzed, r.TotalOpenPRs, r.ElapsedSeconds)

	fmt.Printf("  %s %d   %s %d   %s %d\n\n",
		green("fast-track:"), r.FastTrackCount,
		yellow("review-required:"), r.ReviewRequiredCount,
		red("recommend-close:"), r.RecommendCloseCount)

	fmt.Printf("  Duplicate clusters: %d @0.90, %d @0.85, %d @0.80\n",
		len(r.Clusters090), len(r.Clusters085), len(r.Clusters080))
	for _, cluster := range r.Clusters090 {
		refs := ""
		for i, m := range cluster.Members {
			if i > 0 {
				refs += ", "
			}
			refs += fmt.Sprintf("#%d", m.Number)
		}
		fmt.Printf("    %s %s\n", red("dup:"), refs)
	}
	fmt.Println()

	if len(r.FlagFrequency) > 0 {
		fmt.Println("  Flag frequency:")
		for _, rule := range sortedKeys(r.FlagFrequency) {
			fmt.Printf("    %-22s %d\n", rule, r.FlagFrequency[rule])
		}
		fmt.Println()
	}

	if len(r.HighestRisk) > 0 {
		fmt.Println("  Highest risk:")
		for _, e := range r.HighestRisk {
			fmt.Printf("    #%-6d %s %s\n", e.PRNumber,
				yellow(fmt.Sprintf("score=%.2f flags=%d high=%d", e.Score, e.FlagCount, e.HighSeverityCount)),
				gray(e.Title))
		}
		fmt.Println()
	}

	fmt.Printf("  Contributors: %d unique, %d first-time, %d new accounts\n",
		r.UniqueAuthors, r.FirstTimeContributors, r.NewAccounts)
	fmt.Printf("  Sensitive-path PRs: %d   Low-test PRs: %d\n\n",
		r.SensitivePathPRs, r.LowTestPRs)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if m[keys[a]] != m[keys[b]] {
			return m[keys[a]] > m[keys[b]]
		}
		return keys[a] < keys[b]
	})
	return keys
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVar(&auditCount, "count", 50, "Maximum open PRs to audit")
	auditCmd.Flags().IntVar(&auditConcurrency, "concurrency", 0, "Parallel PR fetches (default 3)")
}
