// Command gatekeeper triages open-source contributions: it scores pull
// requests and issues through a gated three-tier pipeline (dedup,
// heuristics, vision alignment) and derives repository-level signals from
// the same embeddings: duplicate clusters, conflict pairs, issue links,
// staleness, label suggestions, reviewer routing, and contributor profiles.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/cache"
	"github.com/maintainerd/gatekeeper/internal/config"
	"github.com/maintainerd/gatekeeper/internal/ingest"
	"github.com/maintainerd/gatekeeper/internal/vision"
)

var (
	flagConfigFile string
	flagVisionPath string
	flagJSON       bool
	flagNoCache    bool
)

var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "Tiered triage for open-source contributions",
	Long: `Gatekeeper scores pull requests and issues through a gated pipeline:

  Tier 1  dedup        near-duplicate detection against open peers
  Tier 2  heuristics   supply-chain and hygiene rule catalog
  Tier 3  alignment    vision-document judgment by an external model

and derives repository signals from the same embeddings: duplicate
clusters, merge-conflict candidates, issue-to-PR links, stale items,
label suggestions, reviewer routing, and contributor profiles.

Configuration comes from GATEKEEPER_-prefixed environment variables or
--config; GATEKEEPER_GITHUB_TOKEN raises API rate limits and is required
for private repositories.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Path to a config file (optional; env vars still apply)")
	rootCmd.PersistentFlags().StringVar(&flagVisionPath, "vision", "", "Path to the project vision document (YAML)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit raw JSON instead of formatted output")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the local item cache")
}

// fatal prints an error and exits. Subcommands use this instead of
// returning errors so partial output is never followed by a usage dump.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// loadConfig builds the runtime configuration, folding the --vision flag in.
func loadConfig() config.Config {
	cfg, err := config.FromEnv(flagConfigFile)
	if err != nil {
		fatal(err)
	}
	if flagVisionPath != "" {
		cfg.VisionDocumentPath = flagVisionPath
	}
	return cfg
}

// parseRepo splits an "owner/repo" argument.
func parseRepo(arg string) (string, string) {
	owner, repo, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || repo == "" {
		fatal(fmt.Errorf("expected owner/repo, got %q", arg))
	}
	return owner, repo
}

// openLoader wires the GitHub fetcher, the local embedder, and (unless
// disabled) the SQLite cache. The returned cleanup is safe to defer.
func openLoader(cfg *config.Config) (*ingest.Loader, func()) {
	fetcher := ingest.NewGitHubClient(cfg)
	embedder := ingest.NewLocalEmbedder()

	if flagNoCache {
		return ingest.NewLoader(fetcher, embedder, nil), func() {}
	}

	c, err := cache.Open(cfg.CacheDBPath, time.Duration(cfg.CacheTTLHours)*time.Hour)
	if err != nil {
		fatal(err)
	}
	return ingest.NewLoader(fetcher, embedder, c), func() { _ = c.Close() }
}

// loadVision loads the configured vision document; absent is not an error.
func loadVision(cfg *config.Config) *vision.Document {
	doc, err := vision.LoadOptional(cfg.VisionDocumentPath)
	if err != nil {
		fatal(err)
	}
	return doc
}

// newJudge builds the Tier-3 judge, or nil when Tier 3 cannot run (judge
// disabled, no vision document, or no API key).
func newJudge(cfg *config.Config, doc *vision.Document) vision.Judge {
	if !cfg.EnableTier3 || doc == nil {
		return nil
	}
	judge, err := vision.NewAnthropicJudge(vision.JudgeConfig{
		Model:   cfg.JudgeModel,
		Timeout: cfg.JudgeTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Tier 3 disabled: %v\n", err)
		return nil
	}
	return judge
}

// printJSON renders any report as indented JSON.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}
