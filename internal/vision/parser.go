package vision

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/maintainerd/gatekeeper/internal/types"
)

var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
)

// alignmentPayload is the wire shape the judge is instructed to emit.
type alignmentPayload struct {
	AlignmentScore     float64  `json:"alignment_score"`
	ViolatedPrinciples []string `json:"violated_principles"`
	Strengths          []string `json:"strengths"`
	Concerns           []string `json:"concerns"`
}

// parseAlignmentResponse extracts the alignment JSON from a model response.
// Models occasionally wrap JSON in markdown fences or prose despite
// instructions, so parsing goes through escalating cleanup passes: direct
// parse, fence stripping, balanced-object extraction, trailing-comma repair.
func parseAlignmentResponse(text string) (*types.AlignmentResult, error) {
	candidates := []string{strings.TrimSpace(text)}

	if m := codeFenceRegex.FindStringSubmatch(text); len(m) == 2 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if obj := extractObject(text); obj != "" {
		candidates = append(candidates, obj)
	}

	var lastErr error
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, attempt := range []string{c, trailingCommaRegex.ReplaceAllString(c, "$1")} {
			var payload alignmentPayload
			if err := json.Unmarshal([]byte(attempt), &payload); err != nil {
				lastErr = err
				continue
			}
			return resultFromScore(
				clampUnit(payload.AlignmentScore),
				payload.ViolatedPrinciples,
				payload.Strengths,
				payload.Concerns,
			), nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return nil, fmt.Errorf("invalid alignment response: %w", lastErr)
}

// extractObject returns the first balanced top-level JSON object in text,
// or "" when none exists. Brace counting ignores braces inside strings.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
