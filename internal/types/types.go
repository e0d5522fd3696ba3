// Package types defines the data model for the gatekeeper triage engine:
// contribution items (pull requests and issues), tier outcomes, verdicts,
// suspicion flags, and the scorecard produced by the gated pipeline.
package types

import (
	"fmt"
	"time"
)

// ItemKind distinguishes the two contribution variants.
type ItemKind string

const (
	KindPullRequest ItemKind = "pr"
	KindIssue       ItemKind = "issue"
)

// Verdict is the pipeline's terminal recommendation for a contribution item.
type Verdict string

const (
	// VerdictFastTrack means the item passed all tiers and is safe to prioritize.
	VerdictFastTrack Verdict = "fast_track"
	// VerdictReviewRequired means at least one tier raised enough evidence
	// that a human maintainer should look before merging or engaging.
	VerdictReviewRequired Verdict = "review_required"
	// VerdictRecommendClose means the item duplicates existing work.
	VerdictRecommendClose Verdict = "recommend_close"
)

// Valid reports whether v is one of the defined verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictFastTrack, VerdictReviewRequired, VerdictRecommendClose:
		return true
	}
	return false
}

// TierOutcome is the per-tier result of the gated pipeline.
type TierOutcome string

const (
	// TierPass means the tier ran and found nothing gating.
	TierPass TierOutcome = "pass"
	// TierGated means the tier stopped the pipeline with a terminal verdict.
	TierGated TierOutcome = "gated"
	// TierSkipped means the tier had no input to work with (e.g. no embedding).
	TierSkipped TierOutcome = "skipped"
	// TierError means an external dependency failed (Tier-3 judge only).
	TierError TierOutcome = "error"
)

// FlagSeverity ranks how strongly a single heuristic finding should count.
type FlagSeverity string

const (
	SeverityHigh   FlagSeverity = "high"
	SeverityMedium FlagSeverity = "medium"
	SeverityLow    FlagSeverity = "low"
)

// Weight returns the severity's contribution to the aggregate suspicion
// score. Unknown severities count 0.1 so a malformed flag is never free.
func (s FlagSeverity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 0.3
	case SeverityMedium:
		return 0.15
	case SeverityLow:
		return 0.05
	}
	return 0.1
}

// Author holds the contributor identity fields the heuristics care about.
type Author struct {
	Login string `json:"login"`

	// AccountCreatedAt is zero when the ingestion layer could not determine
	// the account age; age-based rules treat that as "rule does not apply".
	AccountCreatedAt time.Time `json:"account_created_at,omitzero"`

	// ContributionsToRepo counts prior merged PRs or filed issues by this
	// author in the repository under triage.
	ContributionsToRepo int `json:"contributions_to_repo"`
}

// FileChange is one changed file in a pull request.
type FileChange struct {
	Path      string `json:"path"`
	Status    string `json:"status,omitempty"` // added, removed, modified, renamed
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// PullRequest is the PR variant of a contribution item.
type PullRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`

	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
	Author Author `json:"author"`
	State  string `json:"state,omitempty"`

	Files    []FileChange `json:"files,omitempty"`
	DiffText string       `json:"diff_text,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	MergedAt  time.Time `json:"merged_at,omitzero"`

	LinkedIssues []int    `json:"linked_issues,omitempty"`
	Labels       []string `json:"labels,omitempty"`

	TotalAdditions int `json:"total_additions"`
	TotalDeletions int `json:"total_deletions"`
}

// Issue is the issue variant of a contribution item.
type Issue struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`

	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
	Author Author `json:"author"`
	State  string `json:"state,omitempty"`

	Labels    []string       `json:"labels,omitempty"`
	Assignees []string       `json:"assignees,omitempty"`
	Milestone string         `json:"milestone,omitempty"`
	Reactions map[string]int `json:"reactions,omitempty"`

	CommentCount int `json:"comment_count"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	ClosedAt  time.Time `json:"closed_at,omitzero"`
}

// ContributionItem is the shared capability surface of the PR/issue union.
// The two variants are closed; code needing variant-specific fields type
// switches on the concrete type rather than inspecting strings.
type ContributionItem interface {
	Kind() ItemKind
	ItemNumber() int
	ItemTitle() string
	ItemBody() string
	ItemAuthor() Author
	ItemLabels() []string
	CreatedTime() time.Time
	UpdatedTime() time.Time
}

func (p *PullRequest) Kind() ItemKind         { return KindPullRequest }
func (p *PullRequest) ItemNumber() int        { return p.Number }
func (p *PullRequest) ItemTitle() string      { return p.Title }
func (p *PullRequest) ItemBody() string       { return p.Body }
func (p *PullRequest) ItemAuthor() Author     { return p.Author }
func (p *PullRequest) ItemLabels() []string   { return p.Labels }
func (p *PullRequest) CreatedTime() time.Time { return p.CreatedAt }
func (p *PullRequest) UpdatedTime() time.Time { return p.UpdatedAt }

func (i *Issue) Kind() ItemKind         { return KindIssue }
func (i *Issue) ItemNumber() int        { return i.Number }
func (i *Issue) ItemTitle() string      { return i.Title }
func (i *Issue) ItemBody() string       { return i.Body }
func (i *Issue) ItemAuthor() Author     { return i.Author }
func (i *Issue) ItemLabels() []string   { return i.Labels }
func (i *Issue) CreatedTime() time.Time { return i.CreatedAt }
func (i *Issue) UpdatedTime() time.Time { return i.UpdatedAt }

// Compile-time checks that both variants satisfy the interface.
var (
	_ ContributionItem = (*PullRequest)(nil)
	_ ContributionItem = (*Issue)(nil)
)

// SuspicionFlag is a single heuristic rule's positive finding. Flags are
// immutable once created by a rule.
type SuspicionFlag struct {
	RuleID      string       `json:"rule_id"`
	Severity    FlagSeverity `json:"severity"`
	Title       string       `json:"title"`
	Explanation string       `json:"explanation"`
	Evidence    string       `json:"evidence,omitempty"`
}

// Validate checks that the flag names a rule and carries a known severity.
func (f SuspicionFlag) Validate() error {
	if f.RuleID == "" {
		return fmt.Errorf("flag is missing a rule_id")
	}
	switch f.Severity {
	case SeverityHigh, SeverityMedium, SeverityLow:
	default:
		return fmt.Errorf("flag %s has unknown severity %q", f.RuleID, f.Severity)
	}
	return nil
}
