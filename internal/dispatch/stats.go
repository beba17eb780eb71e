package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/iota-community/optimus-bot/internal/platform"
	"github.com/iota-community/optimus-bot/internal/store"
)

// StatsStore is the read side of the counter store.
type StatsStore interface {
	CounterStats(ctx context.Context, table string) ([]store.Stat, error)
}

// NewStatsHandler answers the statistics command with a formatted dump of
// one counter table. The table name is the command's first argument,
// defaulting to join_reason.
func NewStatsHandler(s StatsStore, p platform.Platform) Handler {
	return func(ctx context.Context, ev platform.Event) error {
		table := "join_reason"
		if len(ev.Values) > 0 && ev.Values[0] != "" {
			table = ev.Values[0]
		}

		stats, err := s.CounterStats(ctx, table)
		if err != nil {
			_, err := p.Respond(ctx, ev, platform.Prompt{
				Content:   fmt.Sprintf("No statistics for %q", table),
				Ephemeral: true,
			})
			return err
		}

		var b strings.Builder
		for _, st := range stats {
			fmt.Fprintf(&b, "%s: %d\n", st.Category, st.Count)
		}
		_, err = p.Respond(ctx, ev, platform.Prompt{
			Content:   b.String(),
			Ephemeral: true,
		})
		return err
	}
}
