// Package search stores previously asked questions in a meilisearch index
// and answers free-text similarity queries against them.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meilisearch/meilisearch-go"

	"github.com/iota-community/optimus-bot/internal/links"
)

const indexName = "threads"

// document is the indexed form of a question. History holds the description;
// the field name is kept for compatibility with existing indexes.
type document struct {
	ID        string `json:"id"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Title     string `json:"title"`
	History   string `json:"history"`
}

// Index wraps the meilisearch threads index. It implements
// links.SimilarityIndex.
type Index struct {
	index  *meilisearch.Index
	logger *slog.Logger
}

// New connects to meilisearch and configures the threads index: title and
// history are searchable, results are distinct by title.
func New(host, apiKey string, logger *slog.Logger) (*Index, error) {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	distinct := "title"
	idx := client.Index(indexName)
	if _, err := idx.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"title", "history"},
		DistinctAttribute:    &distinct,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure index: %w", err)
	}

	return &Index{index: idx, logger: logger}, nil
}

// Add indexes a question for future similarity queries.
func (i *Index) Add(ctx context.Context, q links.Question) error {
	doc := document{
		ID:        q.ID,
		GuildID:   q.GuildID,
		ChannelID: q.ChannelID,
		Title:     q.Title,
		History:   q.Description,
	}
	if _, err := i.index.AddDocuments([]document{doc}, "id"); err != nil {
		return fmt.Errorf("failed to index question: %w", err)
	}
	i.logger.Debug("indexed question", "id", q.ID, "title", q.Title)
	return nil
}

// QuerySimilar returns up to limit previously asked questions matching the
// given text, each linked to its original thread message.
func (i *Index) QuerySimilar(ctx context.Context, text string, limit int) ([]links.Candidate, error) {
	res, err := i.index.Search(text, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	matches := make([]links.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		matches = append(matches, links.Candidate{
			Title: doc.Title,
			URL:   fmt.Sprintf("https://discord.com/channels/%s/%s/%s", doc.GuildID, doc.ChannelID, doc.ID),
		})
	}
	return matches, nil
}
