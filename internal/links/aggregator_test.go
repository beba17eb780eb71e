package links

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeScraper struct {
	bySite map[string][]Candidate
	err    error
}

func (f *fakeScraper) Search(ctx context.Context, site, query string) ([]Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySite[site], nil
}

type fakeIndex struct {
	mu      sync.Mutex
	similar []Candidate
	err     error
	added   []Question
}

func (f *fakeIndex) QuerySimilar(ctx context.Context, text string, limit int) ([]Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.similar, nil
}

func (f *fakeIndex) Add(ctx context.Context, q Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, q)
	return nil
}

func question() Question {
	return Question{ID: "t1", GuildID: "g1", ChannelID: "c1", Title: "how to mint", Description: "details"}
}

func TestCollectMergesWebBeforeSimilar(t *testing.T) {
	scraper := &fakeScraper{bySite: map[string][]Candidate{
		"site-a": {{Title: "A1", URL: "https://a/1"}, {Title: "A2", URL: "https://a/2"}},
		"site-b": {{Title: "B1", URL: "https://b/1"}},
	}}
	index := &fakeIndex{similar: []Candidate{{Title: "S1", URL: "https://discord.com/channels/g/c/1"}}}
	agg := NewAggregator(scraper, index, []string{"site-a", "site-b"}, testLogger())

	got := agg.Collect(context.Background(), question())

	want := []string{"A1", "A2", "B1", "S1"}
	titles := got.Titles()
	if len(titles) != len(want) {
		t.Fatalf("Titles() = %v, want %v", titles, want)
	}
	for i, w := range want {
		if titles[i] != w {
			t.Errorf("Titles()[%d] = %q, want %q", i, titles[i], w)
		}
	}
}

func TestCollectSimilarWinsTitleCollision(t *testing.T) {
	scraper := &fakeScraper{bySite: map[string][]Candidate{
		"site-a": {{Title: "Minting NFTs", URL: "https://a/mint"}},
	}}
	index := &fakeIndex{similar: []Candidate{
		{Title: "Minting NFTs", URL: "https://discord.com/channels/g/c/9"},
	}}
	agg := NewAggregator(scraper, index, []string{"site-a"}, testLogger())

	got := agg.Collect(context.Background(), question())

	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	url, ok := got.URL("Minting NFTs")
	if !ok || url != "https://discord.com/channels/g/c/9" {
		t.Errorf("URL() = (%q, %v), want the indexed question's URL", url, ok)
	}
	// The colliding title keeps its original position.
	if got.Titles()[0] != "Minting NFTs" {
		t.Errorf("Titles() = %v", got.Titles())
	}
}

func TestCollectToleratesFailingSources(t *testing.T) {
	scraper := &fakeScraper{err: errors.New("engine down")}
	index := &fakeIndex{err: errors.New("index down")}
	agg := NewAggregator(scraper, index, []string{"site-a"}, testLogger())

	got := agg.Collect(context.Background(), question())
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0 when every source fails", got.Len())
	}
}

func TestCollectIndexesTheQuestion(t *testing.T) {
	scraper := &fakeScraper{}
	index := &fakeIndex{}
	agg := NewAggregator(scraper, index, nil, testLogger())

	agg.Collect(context.Background(), question())

	index.mu.Lock()
	defer index.mu.Unlock()
	if len(index.added) != 1 || index.added[0].ID != "t1" {
		t.Errorf("indexed questions = %+v, want the submitted one", index.added)
	}
}

func TestSuggestionsPutKeepsInsertionOrder(t *testing.T) {
	s := NewSuggestions()
	s.Put("one", "u1")
	s.Put("two", "u2")
	s.Put("one", "u1-overwritten")
	s.Put("three", "u3")

	want := []string{"one", "two", "three"}
	titles := s.Titles()
	if len(titles) != len(want) {
		t.Fatalf("Titles() = %v, want %v", titles, want)
	}
	for i, w := range want {
		if titles[i] != w {
			t.Errorf("Titles()[%d] = %q, want %q", i, titles[i], w)
		}
	}
	if url, _ := s.URL("one"); url != "u1-overwritten" {
		t.Errorf("URL(one) = %q, want the overwritten value", url)
	}
}
