package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTaxonomy is returned when a taxonomy definition cannot be used for tagging.
var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// Category is a label with the lowercase phrases that trigger it.
type Category struct {
	Label   string   `yaml:"label" json:"label"`
	Phrases []string `yaml:"phrases" json:"phrases"`
}

// Taxonomy is an ordered list of categories. Earlier categories win when a
// title matches several of them.
type Taxonomy struct {
	categories []Category
}

// New validates and normalizes the categories. Phrases are lowercased and trimmed.
func New(categories []Category) (*Taxonomy, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalidTaxonomy)
	}

	seen := make(map[string]struct{}, len(categories))
	out := make([]Category, 0, len(categories))
	for i, c := range categories {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: category %d has no label", ErrInvalidTaxonomy, i)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidTaxonomy, label)
		}
		seen[label] = struct{}{}

		if len(c.Phrases) == 0 {
			return nil, fmt.Errorf("%w: category %q has no phrases", ErrInvalidTaxonomy, label)
		}
		phrases := make([]string, 0, len(c.Phrases))
		for _, p := range c.Phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return nil, fmt.Errorf("%w: category %q has a blank phrase", ErrInvalidTaxonomy, label)
			}
			phrases = append(phrases, p)
		}
		out = append(out, Category{Label: label, Phrases: phrases})
	}

	return &Taxonomy{categories: out}, nil
}

// Parse reads a YAML sequence of {label, phrases} entries, keeping file order.
func Parse(data []byte) (*Taxonomy, error) {
	var doc struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	return New(doc.Categories)
}

// Load reads a taxonomy file from disk.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	return Parse(data)
}

// Categories returns a copy of the categories in priority order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{Label: c.Label, Phrases: append([]string(nil), c.Phrases...)}
	}
	return out
}

// Labels returns the category labels in priority order.
func (t *Taxonomy) Labels() []string {
	out := make([]string, len(t.categories))
	for i, c := range t.categories {
		out[i] = c.Label
	}
	return out
}

// Classify returns the label of the first category with a phrase contained in
// the lowercased title, or fallback when nothing matches.
func (t *Taxonomy) Classify(title, fallback string) string {
	if title == "" {
		return fallback
	}
	lower := strings.ToLower(title)
	for _, c := range t.categories {
		for _, p := range c.Phrases {
			if strings.Contains(lower, p) {
				return c.Label
			}
		}
	}
	return fallback
}
