package types

import "time"

// ClusterMember is one item inside a duplicate cluster. Similarity is the
// member's maximum similarity to any node visited before it during the
// cluster traversal. The traversal root carries Similarity 0.0 with Anchor
// set; that marks the anchor, not a missing or failed comparison.
type ClusterMember struct {
	Number     int     `json:"number"`
	Title      string  `json:"title"`
	Author     string  `json:"author,omitempty"`
	Similarity float64 `json:"similarity"`
	Anchor     bool    `json:"anchor,omitempty"`
}

// DuplicateCluster is a connected component of two or more items whose
// pairwise similarity meets the threshold.
type DuplicateCluster struct {
	Members   []ClusterMember `json:"members"`
	Threshold float64         `json:"threshold"`
}

// ConflictPair flags two open PRs that likely collide: overlapping files,
// semantically similar changes, or both.
type ConflictPair struct {
	PRA              int      `json:"pr_a"`
	PRB              int      `json:"pr_b"`
	PRATitle         string   `json:"pr_a_title,omitempty"`
	PRBTitle         string   `json:"pr_b_title,omitempty"`
	OverlappingFiles []string `json:"overlapping_files,omitempty"`

	FileOverlap        float64 `json:"file_overlap"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	Confidence         float64 `json:"confidence"`
}

// ConflictReport collects conflict pairs above threshold, sorted by
// confidence descending.
type ConflictReport struct {
	Owner             string         `json:"owner"`
	Repo              string         `json:"repo"`
	TotalOpenPRs      int            `json:"total_open_prs"`
	FileOverlapWeight float64        `json:"file_overlap_weight"`
	Threshold         float64        `json:"threshold"`
	Pairs             []ConflictPair `json:"pairs,omitempty"`
}

// LinkSuggestion connects a PR to an issue it likely addresses.
type LinkSuggestion struct {
	PRNumber    int     `json:"pr_number"`
	IssueNumber int     `json:"issue_number"`
	Similarity  float64 `json:"similarity"`
	PRTitle     string  `json:"pr_title,omitempty"`
	IssueTitle  string  `json:"issue_title,omitempty"`

	// Explicit is true when the PR body already references the issue.
	Explicit bool `json:"explicit,omitempty"`
}

// LinkingReport is the result of issue-to-PR linking over a repository.
type LinkingReport struct {
	Owner         string           `json:"owner"`
	Repo          string           `json:"repo"`
	TotalPRs      int              `json:"total_prs"`
	TotalIssues   int              `json:"total_issues"`
	Threshold     float64          `json:"threshold"`
	Suggestions   []LinkSuggestion `json:"suggestions,omitempty"`
	ExplicitLinks []LinkSuggestion `json:"explicit_links,omitempty"`
	OrphanIssues  []int            `json:"orphan_issues,omitempty"`
}

// StaleSignal names the reason an item was marked stale.
type StaleSignal string

const (
	// StaleSuperseded marks an open PR highly similar to a PR merged after it.
	StaleSuperseded StaleSignal = "superseded"
	// StaleAddressed marks an open issue highly similar to a merged PR.
	StaleAddressed StaleSignal = "addressed"
	// StaleBlocked marks an open PR referencing still-open issues.
	StaleBlocked StaleSignal = "blocked"
	// StaleInactive marks an item with no activity past the cutoff.
	StaleInactive StaleSignal = "inactive"
)

// StaleItem is one staleness finding for a PR or issue.
type StaleItem struct {
	Kind          ItemKind    `json:"kind"`
	Number        int         `json:"number"`
	Title         string      `json:"title,omitempty"`
	Signal        StaleSignal `json:"signal"`
	RelatedNumber int         `json:"related_number,omitempty"`
	RelatedTitle  string      `json:"related_title,omitempty"`
	Similarity    float64     `json:"similarity,omitempty"`
	LastActivity  time.Time   `json:"last_activity,omitzero"`
	Explanation   string      `json:"explanation,omitempty"`
}

// StalenessReport aggregates all four staleness signals over a repository.
type StalenessReport struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`

	SupersededPRs   []StaleItem `json:"superseded_prs,omitempty"`
	AddressedIssues []StaleItem `json:"addressed_issues,omitempty"`
	BlockedPRs      []StaleItem `json:"blocked_prs,omitempty"`
	InactivePRs     []StaleItem `json:"inactive_prs,omitempty"`
	InactiveIssues  []StaleItem `json:"inactive_issues,omitempty"`

	TotalOpenPRs         int     `json:"total_open_prs"`
	TotalOpenIssues      int     `json:"total_open_issues"`
	TotalMergedPRChecked int     `json:"total_merged_prs_checked"`
	Threshold            float64 `json:"threshold"`
	InactiveDays         int     `json:"inactive_days"`
}

// LabelDefinition is one entry of the label taxonomy an item is classified
// against. Source records where the definition came from ("vision" or
// "github").
type LabelDefinition struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Color       string   `json:"color,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// LabelSuggestion is one proposed label with its blended confidence and the
// raw component scores behind it.
type LabelSuggestion struct {
	Label               string   `json:"label"`
	Confidence          float64  `json:"confidence"`
	EmbeddingSimilarity float64  `json:"embedding_similarity"`
	KeywordMatches      []string `json:"keyword_matches,omitempty"`
	Source              string   `json:"source,omitempty"`
}

// LabelingReport is the classification result for one PR or issue.
type LabelingReport struct {
	Owner          string            `json:"owner"`
	Repo           string            `json:"repo"`
	Kind           ItemKind          `json:"kind"`
	Number         int               `json:"number"`
	Title          string            `json:"title,omitempty"`
	ExistingLabels []string          `json:"existing_labels,omitempty"`
	TaxonomySize   int               `json:"taxonomy_size"`
	Threshold      float64           `json:"threshold"`
	Suggestions    []LabelSuggestion `json:"suggestions,omitempty"`
}

// CodeOwnerRule is one parsed CODEOWNERS line: a path pattern and the users
// who own it.
type CodeOwnerRule struct {
	Pattern string   `json:"pattern"`
	Owners  []string `json:"owners"`
}

// ReviewerSuggestion ranks one candidate reviewer for a PR.
type ReviewerSuggestion struct {
	Username string   `json:"username"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons,omitempty"`
}

// ReviewRoutingReport is the ranked reviewer list for one PR.
type ReviewRoutingReport struct {
	Owner                  string               `json:"owner"`
	Repo                   string               `json:"repo"`
	PRNumber               int                  `json:"pr_number"`
	PRTitle                string               `json:"pr_title,omitempty"`
	ChangedFiles           []string             `json:"changed_files,omitempty"`
	CodeOwnersFound        bool                 `json:"codeowners_found"`
	RecentReviewersChecked int                  `json:"recent_reviewers_checked"`
	Suggestions            []ReviewerSuggestion `json:"suggestions,omitempty"`
}

// ContributorProfile summarizes one author's contribution history.
type ContributorProfile struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Username string `json:"username"`

	PRsAnalyzed int `json:"prs_analyzed"`
	TotalPRs    int `json:"total_prs"`
	MergedPRs   int `json:"merged_prs"`
	OpenPRs     int `json:"open_prs"`
	ClosedPRs   int `json:"closed_prs"`
	ReviewCount int `json:"review_count"`

	MergeRate         float64 `json:"merge_rate"`
	TestInclusionRate float64 `json:"test_inclusion_rate"`
	AvgAdditions      float64 `json:"avg_additions"`
	AvgDeletions      float64 `json:"avg_deletions"`

	AreasOfExpertise  []string  `json:"areas_of_expertise,omitempty"`
	FirstContribution time.Time `json:"first_contribution,omitzero"`
	LastContribution  time.Time `json:"last_contribution,omitzero"`
}

// AuditRiskEntry is one high-risk PR surfaced by a backlog audit.
type AuditRiskEntry struct {
	PRNumber          int      `json:"pr_number"`
	Title             string   `json:"title,omitempty"`
	Author            string   `json:"author,omitempty"`
	Score             float64  `json:"score"`
	FlagCount         int      `json:"flag_count"`
	HighSeverityCount int      `json:"high_severity_count"`
	Flags             []string `json:"flags,omitempty"`
}

// AuditReport is the result of a batch audit over a repository's open PR
// backlog: verdict distribution, duplicate clusters at three thresholds,
// highest-risk entries, and contributor statistics.
type AuditReport struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`

	PRsAnalyzed    int     `json:"prs_analyzed"`
	TotalOpenPRs   int     `json:"total_open_prs"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`

	FastTrackCount      int `json:"fast_track_count"`
	ReviewRequiredCount int `json:"review_required_count"`
	RecommendCloseCount int `json:"recommend_close_count"`

	Clusters090 []DuplicateCluster `json:"clusters_090,omitempty"`
	Clusters085 []DuplicateCluster `json:"clusters_085,omitempty"`
	Clusters080 []DuplicateCluster `json:"clusters_080,omitempty"`

	HighestRisk   []AuditRiskEntry `json:"highest_risk,omitempty"`
	FlagFrequency map[string]int   `json:"flag_frequency,omitempty"`

	UniqueAuthors         int `json:"unique_authors"`
	FirstTimeContributors int `json:"first_time_contributors"`
	NewAccounts           int `json:"new_accounts"`
	SensitivePathPRs      int `json:"sensitive_path_prs"`
	LowTestPRs            int `json:"low_test_prs"`

	VisionDocument string `json:"vision_document,omitempty"`
}
