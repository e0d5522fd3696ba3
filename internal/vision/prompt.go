package vision

import (
	"fmt"
	"strings"

	"github.com/maintainerd/gatekeeper/internal/types"
)

const (
	maxDiffChars = 5000
	maxBodyChars = 2000
)

// schemaInstruction pins the response format for providers without
// structured output mode.
const schemaInstruction = `

You MUST respond with ONLY valid JSON matching this exact schema:
{
  "alignment_score": <number 0.0-1.0>,
  "violated_principles": [<string>, ...],
  "strengths": [<string>, ...],
  "concerns": [<string>, ...]
}
No other keys, no markdown fences, no extra text.`

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func visionSections(doc *Document) (principles, antiPatterns, focusAreas string) {
	var p []string
	for _, pr := range doc.Principles {
		p = append(p, fmt.Sprintf("- %s: %s", pr.Name, pr.Description))
	}
	var ap []string
	for _, a := range doc.AntiPatterns {
		ap = append(ap, "- "+a)
	}
	var fa []string
	for _, f := range doc.FocusAreas {
		fa = append(fa, "- "+f)
	}
	return strings.Join(p, "\n"), strings.Join(ap, "\n"), strings.Join(fa, "\n")
}

// buildPRPrompt renders the PR alignment prompt: the vision document's
// principles, anti-patterns, and focus areas, then the PR metadata with a
// bounded body and diff.
func buildPRPrompt(pr *types.PullRequest, doc *Document) string {
	principles, antiPatterns, focusAreas := visionSections(doc)

	body := truncate(pr.Body, maxBodyChars)
	if body == "" {
		body = "(no description)"
	}
	diff := truncate(pr.DiffText, maxDiffChars)
	if diff == "" {
		diff = "(no diff available)"
	}

	var files []string
	for _, f := range pr.Files {
		files = append(files, fmt.Sprintf("- %s (+%d/-%d)", f.Path, f.Additions, f.Deletions))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assess this pull request for alignment with the project's vision document.\n\n")
	fmt.Fprintf(&b, "## Project: %s\n\n", doc.Project)
	fmt.Fprintf(&b, "### Vision Principles\n%s\n\n", principles)
	fmt.Fprintf(&b, "### Anti-Patterns to Watch For\n%s\n\n", antiPatterns)
	fmt.Fprintf(&b, "### Focus Areas\n%s\n\n", focusAreas)
	fmt.Fprintf(&b, "## Pull Request #%d: %s\n\n", pr.Number, pr.Title)
	fmt.Fprintf(&b, "**Author:** %s\n", pr.Author.Login)
	fmt.Fprintf(&b, "**Description:** %s\n\n", body)
	fmt.Fprintf(&b, "### Changed Files\n%s\n\n", strings.Join(files, "\n"))
	fmt.Fprintf(&b, "### Diff (truncated)\n```\n%s\n```\n\n", diff)
	b.WriteString("Evaluate alignment_score from 0.0 (violates vision) to 1.0 (perfect fit). " +
		"List any violated principle names exactly as shown above.")
	b.WriteString(schemaInstruction)
	return b.String()
}

// buildIssuePrompt renders the issue alignment prompt. Issues carry no diff,
// so the prompt leans on title, labels, and discussion volume instead.
func buildIssuePrompt(issue *types.Issue, doc *Document) string {
	principles, antiPatterns, focusAreas := visionSections(doc)

	body := truncate(issue.Body, maxBodyChars)
	if body == "" {
		body = "(no description)"
	}
	labels := "(none)"
	if len(issue.Labels) > 0 {
		labels = strings.Join(issue.Labels, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assess this GitHub issue for alignment with the project's vision document.\n\n")
	fmt.Fprintf(&b, "## Project: %s\n\n", doc.Project)
	fmt.Fprintf(&b, "### Vision Principles\n%s\n\n", principles)
	fmt.Fprintf(&b, "### Anti-Patterns to Watch For\n%s\n\n", antiPatterns)
	fmt.Fprintf(&b, "### Focus Areas\n%s\n\n", focusAreas)
	fmt.Fprintf(&b, "## Issue #%d: %s\n\n", issue.Number, issue.Title)
	fmt.Fprintf(&b, "**Author:** %s\n", issue.Author.Login)
	fmt.Fprintf(&b, "**State:** %s\n", issue.State)
	fmt.Fprintf(&b, "**Labels:** %s\n", labels)
	fmt.Fprintf(&b, "**Comments:** %d\n", issue.CommentCount)
	fmt.Fprintf(&b, "**Description:** %s\n\n", body)
	b.WriteString("Evaluate alignment_score from 0.0 (off-topic / violates vision) to 1.0 (perfect fit). " +
		"List any violated principle names exactly as shown above.")
	b.WriteString(schemaInstruction)
	return b.String()
}
