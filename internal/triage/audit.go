package triage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/heuristics"
	"github.com/maintainerd/gatekeeper/internal/ingest"
	"github.com/maintainerd/gatekeeper/internal/similarity"
	"github.com/maintainerd/gatekeeper/internal/types"
	"github.com/maintainerd/gatekeeper/internal/vision"
)

// FindDuplicateClusters groups PRs into duplicate clusters at the given
// similarity threshold. Each cluster starts with its anchor member;
// follower members carry their strongest similarity to the cluster.
func FindDuplicateClusters(
	prs []*types.PullRequest,
	embeddings [][]float64,
	threshold float64,
) []types.DuplicateCluster {
	var out []types.DuplicateCluster
	for _, nodes := range similarity.Cluster(embeddings, threshold) {
		members := make([]types.ClusterMember, len(nodes))
		for i, n := range nodes {
			pr := prs[n.Index]
			members[i] = types.ClusterMember{
				Number:     pr.Number,
				Title:      pr.Title,
				Author:     pr.Author.Login,
				Similarity: n.Similarity,
				Anchor:     n.Anchor,
			}
		}
		out = append(out, types.DuplicateCluster{Members: members, Threshold: threshold})
	}
	return out
}

// Auditor runs batch backlog audits: fetch open PRs, embed them, cluster
// duplicates at three thresholds, and sweep the heuristic catalog over the
// whole set.
type Auditor struct {
	cfg      *config.Config
	fetcher  ingest.Fetcher
	embedder ingest.Embedder
	heur     *heuristics.Engine

	// Concurrency bounds the PR fetch fan-out.
	Concurrency int
}

// NewAuditor builds an auditor over a fetcher and embedder.
func NewAuditor(cfg *config.Config, fetcher ingest.Fetcher, embedder ingest.Embedder) *Auditor {
	return &Auditor{
		cfg:         cfg,
		fetcher:     fetcher,
		embedder:    embedder,
		heur:        heuristics.New(cfg),
		Concurrency: 3,
	}
}

// Run audits up to count open PRs of owner/repo. Individual PR fetch
// failures are logged and skipped so one bad PR cannot sink the batch.
func (a *Auditor) Run(ctx context.Context, owner, repo string, count int, doc *vision.Document) (*types.AuditReport, error) {
	start := time.Now()

	numbers, err := a.fetcher.ListOpenPRNumbers(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("listing open PRs: %w", err)
	}
	totalOpen := len(numbers)
	if count > 0 && len(numbers) > count {
		numbers = numbers[:count]
	}

	fetched := make([]*types.PullRequest, len(numbers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Concurrency)
	for i, number := range numbers {
		i, number := i, number
		g.Go(func() error {
			pr, err := a.fetcher.FetchPR(gctx, owner, repo, number)
			if err != nil {
				log.Printf("audit: skipping PR #%d: %v", number, err)
				return nil
			}
			fetched[i] = pr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var prs []*types.PullRequest
	for _, pr := range fetched {
		if pr != nil {
			prs = append(prs, pr)
		}
	}

	var focusAreas []string
	visionName := ""
	if doc != nil {
		focusAreas = doc.FocusAreas
		visionName = doc.Project
	}

	if len(prs) == 0 {
		return &types.AuditReport{
			Owner:          owner,
			Repo:           repo,
			TotalOpenPRs:   totalOpen,
			ElapsedSeconds: time.Since(start).Seconds(),
			VisionDocument: visionName,
		}, nil
	}

	embeddings := make([][]float64, len(prs))
	for i, pr := range prs {
		emb, err := a.embedder.Embed(ctx, ingest.PREmbeddingText(pr))
		if err != nil {
			return nil, fmt.Errorf("embedding PR #%d: %w", pr.Number, err)
		}
		embeddings[i] = emb
	}

	report := BuildAuditReport(owner, repo, prs, embeddings, a.heur, focusAreas, time.Now())
	report.TotalOpenPRs = totalOpen
	report.ElapsedSeconds = time.Since(start).Seconds()
	report.VisionDocument = visionName
	return report, nil
}

// BuildAuditReport is the pure analysis half of an audit: duplicate
// clusters at 0.90/0.85/0.80, a heuristics sweep over all PRs, verdict
// distribution, flag frequency, risk ranking, and contributor statistics.
func BuildAuditReport(
	owner, repo string,
	prs []*types.PullRequest,
	embeddings [][]float64,
	heur *heuristics.Engine,
	focusAreas []string,
	now time.Time,
) *types.AuditReport {
	report := &types.AuditReport{
		Owner:       owner,
		Repo:        repo,
		PRsAnalyzed: len(prs),
	}

	report.Clusters090 = FindDuplicateClusters(prs, embeddings, 0.90)
	report.Clusters085 = FindDuplicateClusters(prs, embeddings, 0.85)
	report.Clusters080 = FindDuplicateClusters(prs, embeddings, 0.80)

	// Follower members of the tightest clusters count as duplicates; the
	// anchor of each cluster stays in the normal verdict flow.
	dupPRs := make(map[int]struct{})
	for _, cluster := range report.Clusters090 {
		for _, m := range cluster.Members {
			if !m.Anchor {
				dupPRs[m.Number] = struct{}{}
			}
		}
	}
	report.RecommendCloseCount = len(dupPRs)

	results := make([]types.HeuristicsResult, len(prs))
	for i, pr := range prs {
		results[i] = heur.RunPR(pr, prs, focusAreas)
	}

	flagFrequency := make(map[string]int)
	for i, pr := range prs {
		for _, f := range results[i].Flags {
			flagFrequency[f.RuleID]++
		}
		if _, isDup := dupPRs[pr.Number]; isDup {
			continue
		}
		if results[i].Outcome == types.TierGated {
			report.ReviewRequiredCount++
		} else {
			report.FastTrackCount++
		}
	}
	report.FlagFrequency = flagFrequency

	report.HighestRisk = rankByRisk(prs, results, 15)

	authors := make(map[string]struct{})
	accountCutoff := 90 * 24 * time.Hour
	for i, pr := range prs {
		authors[pr.Author.Login] = struct{}{}
		if pr.Author.ContributionsToRepo == 0 {
			report.FirstTimeContributors++
		}
		if !pr.Author.AccountCreatedAt.IsZero() && now.Sub(pr.Author.AccountCreatedAt) < accountCutoff {
			report.NewAccounts++
		}
		for _, f := range results[i].Flags {
			switch f.RuleID {
			case "sensitive_paths":
				report.SensitivePathPRs++
			case "low_test_ratio":
				report.LowTestPRs++
			}
		}
	}
	report.UniqueAuthors = len(authors)
	return report
}

// rankByRisk orders PRs by high-severity flag count, then total flag count,
// then suspicion score, and keeps the top limit entries that raised at
// least one flag.
func rankByRisk(prs []*types.PullRequest, results []types.HeuristicsResult, limit int) []types.AuditRiskEntry {
	idx := make([]int, len(prs))
	for i := range idx {
		idx[i] = i
	}

	highCount := func(r types.HeuristicsResult) int {
		n := 0
		for _, f := range r.Flags {
			if f.Severity == types.SeverityHigh {
				n++
			}
		}
		return n
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := results[idx[a]], results[idx[b]]
		if ha, hb := highCount(ra), highCount(rb); ha != hb {
			return ha > hb
		}
		if len(ra.Flags) != len(rb.Flags) {
			return len(ra.Flags) > len(rb.Flags)
		}
		return ra.SuspicionScore > rb.SuspicionScore
	})

	var out []types.AuditRiskEntry
	for _, i := range idx {
		if len(out) == limit {
			break
		}
		r := results[i]
		if len(r.Flags) == 0 {
			break
		}
		ruleIDs := make([]string, len(r.Flags))
		for k, f := range r.Flags {
			ruleIDs[k] = f.RuleID
		}
		out = append(out, types.AuditRiskEntry{
			PRNumber:          prs[i].Number,
			Title:             prs[i].Title,
			Author:            prs[i].Author.Login,
			Score:             r.SuspicionScore,
			FlagCount:         len(r.Flags),
			HighSeverityCount: highCount(r),
			Flags:             ruleIDs,
		})
	}
	return out
}
