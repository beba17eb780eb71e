// Package dispatch routes inbound UI events: suspended sessions get first
// claim, then the static routing table, then the generic link-suggestion
// handler. Everything else is a no-op.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iota-community/optimus-bot/internal/platform"
)

// Handler processes one routed event. Handlers that suspend (the onboarding
// flow) run on their own goroutine.
type Handler func(ctx context.Context, ev platform.Event) error

type route struct {
	kind     platform.Kind
	customID string
}

// Dispatcher is the single entry point for inbound platform events.
type Dispatcher struct {
	platform platform.Platform
	waiter   *platform.Waiter
	handlers map[route]Handler
	logger   *slog.Logger
}

func New(p platform.Platform, w *platform.Waiter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		platform: p,
		waiter:   w,
		handlers: make(map[route]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an event kind and custom identifier. For
// slash commands the custom identifier is the command name.
func (d *Dispatcher) Register(kind platform.Kind, customID string, h Handler) {
	d.handlers[route{kind: kind, customID: customID}] = h
	d.logger.Debug("registered handler", "kind", kind.String(), "custom_id", customID)
}

// Handle consumes one inbound event. Suspended sessions have priority: an
// event claimed by a waiting session never reaches the routing table.
func (d *Dispatcher) Handle(ctx context.Context, ev platform.Event) {
	if d.waiter.Deliver(ev) {
		return
	}

	if h, ok := d.handlers[route{kind: ev.Kind, customID: ev.CustomID}]; ok {
		d.run(ctx, ev, h)
		return
	}

	// Link suggestion buttons carry their URL as the custom identifier and
	// are handled generically, independent of any session.
	if ev.Kind == platform.ButtonClick && strings.HasPrefix(ev.CustomID, "http") {
		d.run(ctx, ev, d.linkEcho)
		return
	}

	d.logger.Debug("ignoring unrouted event",
		"kind", ev.Kind.String(),
		"custom_id", ev.CustomID)
}

// run executes a handler asynchronously so the gateway read loop is never
// blocked by a suspended session.
func (d *Dispatcher) run(ctx context.Context, ev platform.Event, h Handler) {
	go func() {
		if err := h(ctx, ev); err != nil {
			d.logger.Error("handler failed",
				"kind", ev.Kind.String(),
				"custom_id", ev.CustomID,
				"user", ev.UserID,
				"error", err)
		}
	}()
}

// linkEcho echoes a suggestion button's label back with an "open link"
// affordance and marks the source message.
func (d *Dispatcher) linkEcho(ctx context.Context, ev platform.Event) error {
	if _, err := d.platform.Respond(ctx, ev, platform.Prompt{
		Content:   fmt.Sprintf("<@%s>: %s", ev.UserID, ev.Label),
		Ephemeral: true,
		Buttons: []platform.Button{
			{Label: "Open link", Style: platform.StyleLink, URL: ev.CustomID},
		},
	}); err != nil {
		return fmt.Errorf("failed to echo link suggestion: %w", err)
	}
	if err := d.platform.React(ctx, ev.ChannelID, ev.MessageID, "🔎"); err != nil {
		d.logger.Debug("failed to mark suggestion message", "error", err)
	}
	return nil
}
