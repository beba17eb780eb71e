package onboarding

import (
	"strings"
	"testing"
)

const welcomeFixture = `
all: |
  Everything at once.
categories:
  Newcomer: |
    Newcomer block.
  Buidler: |
    Buidler block.
  Research: |
    Research block.
`

func TestLoadWelcomeEmbeddedDefaults(t *testing.T) {
	w, err := LoadWelcome(nil)
	if err != nil {
		t.Fatalf("LoadWelcome(nil) error = %v", err)
	}
	if w.All == "" {
		t.Error("embedded defaults have no combined block")
	}
	for _, c := range Categories {
		if _, ok := w.Categories[c.ID]; !ok {
			t.Errorf("embedded defaults missing block for %s", c.ID)
		}
	}
}

func TestLoadWelcomeRejectsMissingCombinedBlock(t *testing.T) {
	if _, err := LoadWelcome([]byte("categories: {}")); err == nil {
		t.Error("LoadWelcome accepted blocks without a combined block")
	}
}

func TestComposeSelectedBlocksInRegistryOrder(t *testing.T) {
	w, err := LoadWelcome([]byte(welcomeFixture))
	if err != nil {
		t.Fatalf("LoadWelcome() error = %v", err)
	}

	// Selection order is reversed relative to the registry.
	got := w.Compose([]string{"Research", "Newcomer"})
	want := "Newcomer block.\n\nResearch block."
	if got != want {
		t.Errorf("Compose() = %q, want %q", got, want)
	}
}

func TestComposeAllCategoriesSuppressesIndividualBlocks(t *testing.T) {
	w, err := LoadWelcome([]byte(welcomeFixture))
	if err != nil {
		t.Fatalf("LoadWelcome() error = %v", err)
	}

	got := w.Compose([]string{"Newcomer", AllCategoriesID, "Research"})
	if got != "Everything at once." {
		t.Errorf("Compose() = %q, want the combined block only", got)
	}
	if strings.Contains(got, "Newcomer block") {
		t.Error("combined output still contains an individual block")
	}
}

func TestComposeUnknownSelectionsYieldNothing(t *testing.T) {
	w, err := LoadWelcome([]byte(welcomeFixture))
	if err != nil {
		t.Fatalf("LoadWelcome() error = %v", err)
	}
	if got := w.Compose([]string{"Events", "Polls"}); got != "" {
		t.Errorf("Compose() = %q, want empty", got)
	}
}
