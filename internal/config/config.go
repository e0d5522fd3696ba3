// Package config holds the explicit configuration for the triage engine.
// There is no settings singleton: a Config is constructed once, validated,
// and passed by reference into the engines that need it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable configuration for the similarity engine, the
// heuristic rule catalog, and the tier orchestrator. All thresholds and
// weights are validated once at construction; the engines never clamp or
// re-check them.
type Config struct {
	// Tier 1: dedup
	DuplicateThreshold      float64 // cosine similarity to gate a PR as duplicate
	IssueDuplicateThreshold float64 // cosine similarity to gate an issue as duplicate

	// Tier 2: heuristics
	SuspicionThreshold      float64  // PR score at which Tier 2 gates
	IssueSuspicionThreshold float64  // issue score at which Tier 2 gates
	NewAccountDays          int      // account age below which new_account fires
	SensitivePaths          []string // path substrings treated as security-sensitive
	MinTestRatio            float64  // minimum test-line fraction for PRs adding code
	IssueMinBodyLength      int      // body length below which vague_description fires

	// Similarity-derived signals
	LinkingThreshold   float64 // issue-to-PR link suggestion cutoff
	StaleThreshold     float64 // superseded/addressed similarity cutoff
	StaleInactiveDays  int     // inactivity cutoff for the inactive signal
	ConflictThreshold  float64 // blended confidence cutoff for conflict pairs
	FileOverlapWeight  float64 // weight of file-overlap Jaccard in the conflict blend
	LabelThreshold     float64 // blended confidence cutoff for label suggestions
	LabelKeywordWeight float64 // weight of keyword score in the label blend
	LabelMaxSuggestion int     // max labels suggested per item
	ReviewerMaxSuggest int     // max reviewers suggested per PR

	// Tier 3: alignment judge
	EnableTier3        bool
	VisionDocumentPath string
	JudgeModel         string
	JudgeTimeout       time.Duration

	// Collaborators
	GitHubToken   string
	GitHubAPIURL  string
	GitHubRPS     float64 // client-side request rate toward the GitHub API
	CacheDBPath   string
	CacheTTLHours int
}

// Default returns the configuration the engine ships with. The thresholds
// mirror long-observed triage behavior: PRs need a stronger match than
// issues to be called duplicates, and staleness tolerates looser matches
// than dedup.
func Default() Config {
	return Config{
		DuplicateThreshold:      0.90,
		IssueDuplicateThreshold: 0.85,

		SuspicionThreshold:      0.6,
		IssueSuspicionThreshold: 0.6,
		NewAccountDays:          90,
		SensitivePaths: []string{
			"auth", "crypto", "security", "login", "password",
			".github/workflows", "ci", "cd", "deploy",
			"Dockerfile", "docker-compose",
			"requirements.txt", "package.json", "pyproject.toml",
			"Gemfile", "go.mod", "Cargo.toml",
		},
		MinTestRatio:       0.1,
		IssueMinBodyLength: 30,

		LinkingThreshold:   0.45,
		StaleThreshold:     0.75,
		StaleInactiveDays:  90,
		ConflictThreshold:  0.5,
		FileOverlapWeight:  0.6,
		LabelThreshold:     0.5,
		LabelKeywordWeight: 0.3,
		LabelMaxSuggestion: 3,
		ReviewerMaxSuggest: 5,

		EnableTier3:  true,
		JudgeModel:   "claude-sonnet-4-5-20250929",
		JudgeTimeout: 60 * time.Second,

		GitHubAPIURL:  "https://api.github.com",
		GitHubRPS:     5,
		CacheDBPath:   ".gatekeeper_cache.db",
		CacheTTLHours: 24,
	}
}

// Validate rejects configurations that would make scoring meaningless.
// It runs once before any scoring; the engines assume a validated config.
func (c Config) Validate() error {
	unit := func(name string, v float64) error {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0 (got %.2f)", name, v)
		}
		return nil
	}
	for name, v := range map[string]float64{
		"duplicate_threshold":       c.DuplicateThreshold,
		"issue_duplicate_threshold": c.IssueDuplicateThreshold,
		"suspicion_threshold":       c.SuspicionThreshold,
		"issue_suspicion_threshold": c.IssueSuspicionThreshold,
		"min_test_ratio":            c.MinTestRatio,
		"linking_threshold":         c.LinkingThreshold,
		"stale_threshold":           c.StaleThreshold,
		"conflict_threshold":        c.ConflictThreshold,
		"file_overlap_weight":       c.FileOverlapWeight,
		"label_threshold":           c.LabelThreshold,
		"label_keyword_weight":      c.LabelKeywordWeight,
	} {
		if err := unit(name, v); err != nil {
			return err
		}
	}
	if c.NewAccountDays < 0 {
		return fmt.Errorf("new_account_days cannot be negative (got %d)", c.NewAccountDays)
	}
	if c.IssueMinBodyLength < 0 {
		return fmt.Errorf("issue_min_body_length cannot be negative (got %d)", c.IssueMinBodyLength)
	}
	if c.StaleInactiveDays < 0 {
		return fmt.Errorf("stale_inactive_days cannot be negative (got %d)", c.StaleInactiveDays)
	}
	if c.LabelMaxSuggestion <= 0 {
		return fmt.Errorf("label_max_suggestions must be positive (got %d)", c.LabelMaxSuggestion)
	}
	if c.ReviewerMaxSuggest <= 0 {
		return fmt.Errorf("reviewer_max_suggestions must be positive (got %d)", c.ReviewerMaxSuggest)
	}
	if c.JudgeTimeout <= 0 {
		return fmt.Errorf("judge_timeout must be positive (got %v)", c.JudgeTimeout)
	}
	if c.GitHubRPS <= 0 {
		return fmt.Errorf("github_rps must be positive (got %.2f)", c.GitHubRPS)
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("cache_ttl_hours must be positive (got %d)", c.CacheTTLHours)
	}
	return nil
}

// FromEnv builds a Config from GATEKEEPER_-prefixed environment variables
// (and an optional config file path), falling back to defaults for unset
// keys. The result is validated before it is returned.
//
// Examples: GATEKEEPER_DUPLICATE_THRESHOLD=0.92, GATEKEEPER_GITHUB_TOKEN=...,
// GATEKEEPER_SENSITIVE_PATHS="auth,crypto,infra/terraform".
func FromEnv(configFile string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	setFloat := func(key string, dest *float64) {
		if v.IsSet(key) {
			*dest = v.GetFloat64(key)
		}
	}
	setInt := func(key string, dest *int) {
		if v.IsSet(key) {
			*dest = v.GetInt(key)
		}
	}
	setString := func(key string, dest *string) {
		if v.IsSet(key) {
			*dest = v.GetString(key)
		}
	}

	setFloat("duplicate_threshold", &cfg.DuplicateThreshold)
	setFloat("issue_duplicate_threshold", &cfg.IssueDuplicateThreshold)
	setFloat("suspicion_threshold", &cfg.SuspicionThreshold)
	setFloat("issue_suspicion_threshold", &cfg.IssueSuspicionThreshold)
	setInt("new_account_days", &cfg.NewAccountDays)
	setFloat("min_test_ratio", &cfg.MinTestRatio)
	setInt("issue_min_body_length", &cfg.IssueMinBodyLength)
	setFloat("linking_threshold", &cfg.LinkingThreshold)
	setFloat("stale_threshold", &cfg.StaleThreshold)
	setInt("stale_inactive_days", &cfg.StaleInactiveDays)
	setFloat("conflict_threshold", &cfg.ConflictThreshold)
	setFloat("file_overlap_weight", &cfg.FileOverlapWeight)
	setFloat("label_threshold", &cfg.LabelThreshold)
	setFloat("label_keyword_weight", &cfg.LabelKeywordWeight)
	setInt("label_max_suggestions", &cfg.LabelMaxSuggestion)
	setInt("reviewer_max_suggestions", &cfg.ReviewerMaxSuggest)

	if v.IsSet("enable_tier3") {
		cfg.EnableTier3 = v.GetBool("enable_tier3")
	}
	setString("vision_document", &cfg.VisionDocumentPath)
	setString("judge_model", &cfg.JudgeModel)
	if v.IsSet("judge_timeout_seconds") {
		cfg.JudgeTimeout = time.Duration(v.GetInt("judge_timeout_seconds")) * time.Second
	}

	setString("github_token", &cfg.GitHubToken)
	setString("github_api_url", &cfg.GitHubAPIURL)
	setFloat("github_rps", &cfg.GitHubRPS)
	setString("cache_db_path", &cfg.CacheDBPath)
	setInt("cache_ttl_hours", &cfg.CacheTTLHours)

	if v.IsSet("sensitive_paths") {
		raw := v.GetString("sensitive_paths")
		var paths []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		cfg.SensitivePaths = paths
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}
