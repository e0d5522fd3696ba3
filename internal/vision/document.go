// Package vision supplies the optional Tier-3 collaborator: a YAML vision
// document describing what a project wants to be, and a Judge that assesses
// how well a contribution aligns with it.
//
// The judge is an opaque, possibly-slow, possibly-failing remote call. Its
// failures surface as TierError results and are mapped by the orchestrator
// to the fail-safe verdict; they never abort a batch.
package vision

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// Principle is one named tenet of the project vision.
type Principle struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Document is a parsed vision document: principles the project holds,
// anti-patterns it rejects, focus areas that deserve extra scrutiny, and an
// optional label taxonomy for classification.
type Document struct {
	Project      string      `yaml:"project"`
	Principles   []Principle `yaml:"principles"`
	AntiPatterns []string    `yaml:"anti_patterns"`
	FocusAreas   []string    `yaml:"focus_areas"`

	LabelTaxonomy []LabelEntry `yaml:"label_taxonomy"`
}

// LabelEntry is one label definition inside a vision document.
type LabelEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Color       string   `yaml:"color"`
}

// Load reads and parses a YAML vision document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vision document: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing vision document %s: %w", path, err)
	}
	return &doc, nil
}

// LoadOptional loads a vision document when path names an existing file.
// An empty path or a missing file yields (nil, nil): an absent document is
// an expected state, not an error. Parse failures still report.
func LoadOptional(path string) (*Document, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return Load(path)
}

// Taxonomy converts the document's label entries into label definitions
// with source "vision". Entries without a name are dropped.
func (d *Document) Taxonomy() []types.LabelDefinition {
	if d == nil {
		return nil
	}
	var out []types.LabelDefinition
	for _, e := range d.LabelTaxonomy {
		if e.Name == "" {
			continue
		}
		out = append(out, types.LabelDefinition{
			Name:        e.Name,
			Description: e.Description,
			Keywords:    e.Keywords,
			Color:       e.Color,
			Source:      "vision",
		})
	}
	return out
}
