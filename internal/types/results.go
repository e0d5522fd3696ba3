package types

import (
	"fmt"
)

// DedupResult is the Tier-1 outcome of comparing an item's embedding
// against a peer set.
type DedupResult struct {
	Outcome TierOutcome `json:"outcome"`

	IsDuplicate bool `json:"is_duplicate"`

	// DuplicateOf is the number of the best-matching peer. Only set when
	// IsDuplicate is true.
	DuplicateOf int `json:"duplicate_of,omitempty"`

	// MaxSimilarity is the highest cosine similarity seen against any peer,
	// recorded even when below the duplicate threshold.
	MaxSimilarity float64 `json:"max_similarity"`
}

// Validate checks internal consistency of the dedup result.
func (d *DedupResult) Validate() error {
	if d.IsDuplicate && d.DuplicateOf == 0 {
		return fmt.Errorf("duplicate_of must be set when is_duplicate is true")
	}
	if !d.IsDuplicate && d.DuplicateOf != 0 {
		return fmt.Errorf("duplicate_of should not be set when is_duplicate is false")
	}
	if d.IsDuplicate && d.Outcome != TierGated {
		return fmt.Errorf("duplicate result must be gated (got %q)", d.Outcome)
	}
	return nil
}

// HeuristicsResult is the Tier-2 outcome: the aggregated suspicion score
// and the ordered list of raised flags.
type HeuristicsResult struct {
	Outcome        TierOutcome     `json:"outcome"`
	SuspicionScore float64         `json:"suspicion_score"`
	Flags          []SuspicionFlag `json:"flags,omitempty"`
}

// AlignmentResult is the Tier-3 outcome returned by the external judge.
// Outcome TierError carries the failure reason in Concerns[0].
type AlignmentResult struct {
	Outcome            TierOutcome `json:"outcome"`
	AlignmentScore     float64     `json:"alignment_score"`
	ViolatedPrinciples []string    `json:"violated_principles,omitempty"`
	Strengths          []string    `json:"strengths,omitempty"`
	Concerns           []string    `json:"concerns,omitempty"`
}

// DimensionScore is one tier's contribution to the scorecard. Dimensions
// are appended in tier order (1, 2, 3) and never reordered.
type DimensionScore struct {
	Dimension string          `json:"dimension"`
	Score     float64         `json:"score"`
	Flags     []SuspicionFlag `json:"flags,omitempty"`
	Summary   string          `json:"summary,omitempty"`
}

// Scorecard is the immutable result record assembled by the orchestrator.
// A gated pipeline leaves the results of tiers that never ran as nil, not
// as zero values, so consumers can tell "did not run" from "ran clean".
type Scorecard struct {
	ID    string   `json:"id"`
	Owner string   `json:"owner"`
	Repo  string   `json:"repo"`
	Kind  ItemKind `json:"kind"`

	Number int `json:"number"`

	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"`

	Dimensions []DimensionScore `json:"dimensions,omitempty"`

	Dedup      *DedupResult      `json:"dedup_result,omitempty"`
	Heuristics *HeuristicsResult `json:"heuristics_result,omitempty"`
	Alignment  *AlignmentResult  `json:"alignment_result,omitempty"`

	Flags   []SuspicionFlag `json:"flags,omitempty"`
	Summary string          `json:"summary,omitempty"`
}

// Validate checks the scorecard for consistency before it leaves the
// orchestrator.
func (s *Scorecard) Validate() error {
	if !s.Verdict.Valid() {
		return fmt.Errorf("unknown verdict %q", s.Verdict)
	}
	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", s.Confidence)
	}
	if s.Number <= 0 {
		return fmt.Errorf("scorecard needs a positive item number (got %d)", s.Number)
	}
	for _, f := range s.Flags {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
