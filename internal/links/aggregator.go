// Package links discovers resources possibly answering a new question: a
// best-effort merge of web search hits on allow-listed sites and similar
// previously asked questions from the search index.
package links

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

const similarLimit = 3

// Question is the newly submitted question the aggregator works from.
type Question struct {
	ID          string
	GuildID     string
	ChannelID   string
	Title       string
	Description string
}

// SimilarityIndex is the external store of prior questions.
type SimilarityIndex interface {
	// QuerySimilar returns prior questions matching the text.
	QuerySimilar(ctx context.Context, text string, limit int) ([]Candidate, error)
	// Add indexes the question for future queries.
	Add(ctx context.Context, q Question) error
}

// Suggestions is a title-keyed mapping of discovered links. Insertion order
// of titles is preserved so pagination output is reproducible; putting an
// existing title again overwrites its URL but keeps its position.
type Suggestions struct {
	order []string
	urls  map[string]string
}

func NewSuggestions() *Suggestions {
	return &Suggestions{urls: make(map[string]string)}
}

// Put inserts or overwrites a suggestion. Deduplication is by exact title
// equality, not URL.
func (s *Suggestions) Put(title, url string) {
	if _, ok := s.urls[title]; !ok {
		s.order = append(s.order, title)
	}
	s.urls[title] = url
}

// URL returns the link stored for a title.
func (s *Suggestions) URL(title string) (string, bool) {
	url, ok := s.urls[title]
	return url, ok
}

// Titles returns all titles in first-insertion order.
func (s *Suggestions) Titles() []string {
	return s.order
}

// Len returns the number of distinct titles.
func (s *Suggestions) Len() int {
	return len(s.order)
}

// Aggregator fans out per-site web searches and the similarity query in
// parallel, tolerates individual failures and merges whatever succeeded.
type Aggregator struct {
	scraper Scraper
	index   SimilarityIndex
	sites   []string
	logger  *slog.Logger
}

func NewAggregator(scraper Scraper, index SimilarityIndex, sites []string, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		scraper: scraper,
		index:   index,
		sites:   sites,
		logger:  logger,
	}
}

// Collect gathers link suggestions for a question and indexes the question
// itself for future queries. All sources are best-effort: a failing site or
// a failing similarity query only shrinks the result. Similarity hits are
// merged after web hits, so on a title collision the indexed question wins.
func (a *Aggregator) Collect(ctx context.Context, q Question) *Suggestions {
	webResults := make([][]Candidate, len(a.sites))
	var similar []Candidate

	g, gctx := errgroup.WithContext(ctx)
	for i, site := range a.sites {
		i, site := i, site
		g.Go(func() error {
			candidates, err := a.scraper.Search(gctx, site, q.Title)
			if err != nil {
				a.logger.Debug("web search failed", "site", site, "error", err)
				return nil
			}
			webResults[i] = candidates
			return nil
		})
	}
	g.Go(func() error {
		matches, err := a.index.QuerySimilar(gctx, fmt.Sprintf("%s %s", q.Title, q.Description), similarLimit)
		if err != nil {
			a.logger.Debug("similarity query failed", "error", err)
			return nil
		}
		similar = matches
		return nil
	})
	g.Go(func() error {
		// Fire and forget: indexing failures never block the response.
		if err := a.index.Add(gctx, q); err != nil {
			a.logger.Debug("failed to index question", "id", q.ID, "error", err)
		}
		return nil
	})
	_ = g.Wait()

	merged := NewSuggestions()
	for _, candidates := range webResults {
		for _, c := range candidates {
			merged.Put(c.Title, c.URL)
		}
	}
	for _, m := range similar {
		merged.Put(m.Title, m.URL)
	}

	a.logger.Info("collected link suggestions",
		"question", q.ID,
		"suggestions", merged.Len())
	return merged
}
