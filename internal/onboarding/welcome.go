package onboarding

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed welcome.yaml
var defaultWelcomeYAML []byte

// Welcome holds the per-category text blocks used to compose the message
// posted into a first-time user's introduction thread.
type Welcome struct {
	All        string            `yaml:"all"`
	Categories map[string]string `yaml:"categories"`
}

// LoadWelcome parses welcome blocks from YAML. Pass nil to use the embedded
// defaults.
func LoadWelcome(data []byte) (*Welcome, error) {
	if data == nil {
		data = defaultWelcomeYAML
	}
	var w Welcome
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse welcome blocks: %w", err)
	}
	if w.All == "" {
		return nil, fmt.Errorf("welcome blocks missing combined block")
	}
	return &w, nil
}

// Compose assembles the welcome text for a selection set. The all-categories
// sentinel emits the single combined block and suppresses every individual
// block; otherwise exactly the blocks for selected categories are emitted,
// in registry order.
func (w *Welcome) Compose(selections []string) string {
	if slices.Contains(selections, AllCategoriesID) {
		return strings.TrimRight(w.All, "\n")
	}

	var parts []string
	for _, c := range Categories {
		if !slices.Contains(selections, c.ID) {
			continue
		}
		if block, ok := w.Categories[c.ID]; ok {
			parts = append(parts, strings.TrimRight(block, "\n"))
		}
	}
	return strings.Join(parts, "\n\n")
}
