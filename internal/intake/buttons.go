package intake

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/iota-community/optimus-bot/internal/links"
	"github.com/iota-community/optimus-bot/internal/platform"
)

const (
	maxSuggestionRows   = 10
	maxButtonsPerRow    = 5
	buttonLabelLimit    = 80
	buttonCustomIDLimit = 100
)

// iconSource maps a URL prefix to a guild emoji created lazily from an
// image. The last entry with an empty prefix is the fallback.
type iconSource struct {
	Name     string
	Prefix   string
	ImageURL string
}

var iconSources = []iconSource{
	{Name: "iota", Prefix: "https://wiki.iota.org", ImageURL: "https://files.iota.org/media-kit/iota-mark-light.png"},
	{Name: "github", Prefix: "https://github.com", ImageURL: "https://github.githubassets.com/favicons/favicon.png"},
	{Name: "discord", Prefix: "", ImageURL: "https://discord.com/assets/favicon.png"},
}

// iconCache creates guild emojis once per hosting guild and caches them by
// name. Failures degrade to no icon.
type iconCache struct {
	platform platform.Platform
	logger   *slog.Logger

	mu     sync.Mutex
	emojis map[string]platform.Emoji // "guildID/name"
}

func newIconCache(p platform.Platform, logger *slog.Logger) *iconCache {
	return &iconCache{
		platform: p,
		logger:   logger,
		emojis:   make(map[string]platform.Emoji),
	}
}

// forURL resolves the icon for a suggestion link by URL prefix matching.
func (ic *iconCache) forURL(ctx context.Context, guildID, url string) (platform.Emoji, bool) {
	src := iconSources[len(iconSources)-1]
	for _, s := range iconSources {
		if s.Prefix != "" && strings.HasPrefix(url, s.Prefix) {
			src = s
			break
		}
	}

	ic.mu.Lock()
	defer ic.mu.Unlock()
	key := guildID + "/" + src.Name
	if emoji, ok := ic.emojis[key]; ok {
		return emoji, true
	}

	emoji, err := ic.platform.EnsureEmoji(ctx, guildID, src.Name, src.ImageURL)
	if err != nil {
		ic.logger.Debug("failed to ensure icon emoji", "name", src.Name, "error", err)
		return platform.Emoji{}, false
	}
	ic.emojis[key] = emoji
	return emoji, true
}

// suggestionRows renders a suggestion mapping as up to 10 rows of up to 5
// buttons. Iteration follows the mapping's insertion order, so the layout
// is reproducible for a fixed input.
func (c *Controller) suggestionRows(ctx context.Context, guildID string, s *links.Suggestions) [][]platform.Button {
	var rows [][]platform.Button
	var row []platform.Button

	for _, title := range s.Titles() {
		if len(rows) == maxSuggestionRows {
			break
		}
		url, _ := s.URL(title)

		b := platform.Button{
			Label:    truncate(title, buttonLabelLimit),
			CustomID: truncate(url, buttonCustomIDLimit),
			Style:    platform.StyleSecondary,
		}
		if emoji, ok := c.icons.forURL(ctx, guildID, url); ok {
			b.Emoji = emoji.Name
			b.EmojiID = emoji.ID
		}

		row = append(row, b)
		if len(row) == maxButtonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 && len(rows) < maxSuggestionRows {
		rows = append(rows, row)
	}
	return rows
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
