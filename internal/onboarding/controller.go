// Package onboarding implements the multi-step onboarding interview: a
// per-user session advanced by UI events, committed as role changes and
// counter increments at its terminal step.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iota-community/optimus-bot/internal/platform"
)

const introductionTimeout = 30 * time.Minute

// Store is the slice of the counter/role store the controller needs.
type Store interface {
	IncrementCounter(ctx context.Context, table, column string) error
	SetUserRoles(ctx context.Context, userID string, roleIDs []string) error
}

// Channels names the well-known channels mentioned during onboarding. The
// Questions channel comes from the store's designated list at startup.
type Channels struct {
	Introduction string
	General      string
	OffTopic     string
	Questions    string
}

// Controller runs onboarding sessions. One session per triggering prompt;
// sessions are in-memory only and are abandoned on deadline expiry or
// process restart.
type Controller struct {
	platform   platform.Platform
	waiter     *platform.Waiter
	store      Store
	reconciler *Reconciler
	welcome    *Welcome
	channels   Channels
	logger     *slog.Logger
}

func NewController(p platform.Platform, w *platform.Waiter, store Store, welcome *Welcome, channels Channels, logger *slog.Logger) *Controller {
	return &Controller{
		platform:   p,
		waiter:     w,
		store:      store,
		reconciler: NewReconciler(p, logger),
		welcome:    welcome,
		channels:   channels,
		logger:     logger,
	}
}

// HandleStart runs a full session for one "getting started" button press.
// It blocks until the session completes or is abandoned, so the dispatcher
// runs it on its own goroutine.
func (c *Controller) HandleStart(ctx context.Context, ev platform.Event) error {
	never, err := c.neverIntroduced(ctx, ev)
	if err != nil {
		return fmt.Errorf("failed to determine onboarding history: %w", err)
	}

	sess, out := Begin(ev, never)
	c.logger.Info("onboarding session started",
		"session", sess.ID,
		"user", sess.UserID,
		"steps", sess.StepCount)

	for {
		promptID, err := c.render(ctx, ev, out.Prompts)
		if err != nil {
			return err
		}
		if out.Commit != nil {
			return c.commit(ctx, sess, *out.Commit)
		}
		if out.Expect == nil {
			return nil
		}

		// Scoping to the rendered prompt message keeps concurrent sessions of
		// the same user from claiming each other's answers.
		next, err := c.waiter.Wait(ctx, platform.Scope{
			UserID:    sess.UserID,
			MessageID: promptID,
			Kinds:     out.Expect.Kinds,
			CustomIDs: out.Expect.CustomIDs,
		}, out.Expect.Timeout)
		if errors.Is(err, platform.ErrAbandoned) {
			c.logger.Info("onboarding session abandoned",
				"session", sess.ID,
				"user", sess.UserID,
				"step", sess.Step)
			return nil
		}
		if err != nil {
			return err
		}

		ev = next
		sess, out = Advance(sess, next)
	}
}

// render sends the step prompts and returns the ID of the last message
// carrying components, so the caller can scope its wait to it.
func (c *Controller) render(ctx context.Context, ev platform.Event, prompts []StepPrompt) (string, error) {
	var componentMsgID string
	for _, sp := range prompts {
		var id string
		var err error
		switch sp.Mode {
		case ModeRespond:
			id, err = c.platform.Respond(ctx, ev, sp.Prompt)
		case ModeUpdate:
			id, err = c.platform.Update(ctx, ev, sp.Prompt)
		case ModeFollowup:
			id, err = c.platform.Followup(ctx, ev, sp.Prompt)
		}
		if err != nil {
			return "", fmt.Errorf("failed to render step prompt: %w", err)
		}
		if sp.Prompt.Menu != nil || len(sp.Prompt.Buttons) > 0 {
			componentMsgID = id
		}
	}
	return componentMsgID, nil
}

// commit applies the terminal step: counters first, then the role delta.
// Counter failures degrade silently (best-effort, see the statistics
// command); a failed role write is the caller's error.
func (c *Controller) commit(ctx context.Context, sess Session, com Commit) error {
	if com.JoinReason != "" {
		if err := c.store.IncrementCounter(ctx, "join_reason", com.JoinReason); err != nil {
			c.logger.Warn("failed to increment join reason", "reason", com.JoinReason, "error", err)
		}
	}
	for _, src := range com.Sources {
		if err := c.store.IncrementCounter(ctx, "found_from", src); err != nil {
			c.logger.Warn("failed to increment found from", "source", src, "error", err)
		}
	}

	added, err := c.reconciler.Apply(ctx, sess.GuildID, sess.UserID, com.Selections)
	if err != nil {
		return fmt.Errorf("role commit failed: %w", err)
	}
	if len(added) > 0 {
		if err := c.store.SetUserRoles(ctx, sess.UserID, added); err != nil {
			c.logger.Warn("failed to record granted roles", "user", sess.UserID, "error", err)
		}
	}

	c.logger.Info("onboarding session completed",
		"session", sess.ID,
		"user", sess.UserID,
		"selections", len(com.Selections))

	if com.AwaitIntroduction {
		return c.awaitIntroduction(ctx, sess)
	}
	return nil
}

// awaitIntroduction waits for the user's freeform message in the
// introduction channel, then opens a welcome thread on it.
func (c *Controller) awaitIntroduction(ctx context.Context, sess Session) error {
	ev, err := c.waiter.Wait(ctx, platform.Scope{
		UserID:    sess.UserID,
		ChannelID: c.channels.Introduction,
		Kinds:     []platform.Kind{platform.Message},
	}, introductionTimeout)
	if errors.Is(err, platform.ErrAbandoned) {
		c.logger.Info("no introduction message received", "session", sess.ID, "user", sess.UserID)
		return nil
	}
	if err != nil {
		return err
	}

	threadID, err := c.platform.CreateThread(ctx, ev.ChannelID, ev.MessageID,
		fmt.Sprintf("Welcome %s!", ev.UserName), 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to create welcome thread: %w", err)
	}

	if len(strings.Fields(ev.Content)) > 5 {
		if err := c.platform.React(ctx, ev.ChannelID, ev.MessageID, "🔥"); err != nil {
			c.logger.Warn("failed to react to introduction", "error", err)
		}
	}
	if err := c.platform.React(ctx, ev.ChannelID, ev.MessageID, "👋"); err != nil {
		c.logger.Warn("failed to react to introduction", "error", err)
	}

	if err := c.sendPlain(ctx, threadID, c.tourMessage(ev.UserID)); err != nil {
		return fmt.Errorf("failed to send welcome message: %w", err)
	}
	if extra := c.welcome.Compose(sess.Selections); extra != "" {
		if err := c.sendPlain(ctx, threadID, extra); err != nil {
			return fmt.Errorf("failed to send welcome blocks: %w", err)
		}
	}
	return nil
}

// sendPlain sends a message and suppresses link previews, which would
// otherwise bury the welcome text under embeds.
func (c *Controller) sendPlain(ctx context.Context, channelID, content string) error {
	msgID, err := c.platform.SendMessage(ctx, channelID, platform.Msg{Content: content})
	if err != nil {
		return err
	}
	if err := c.platform.SuppressEmbeds(ctx, channelID, msgID); err != nil {
		c.logger.Warn("failed to suppress embeds", "message", msgID, "error", err)
	}
	return nil
}

func (c *Controller) tourMessage(userID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to the IOTA & Shimmer community <@%s> 🙌\n\n", userID)
	b.WriteString("**Here are some channels that you should check out:**\n")
	fmt.Fprintf(&b, "> • <#%s> - for anything IOTA & Shimmer related\n", c.channels.General)
	fmt.Fprintf(&b, "> • <#%s> - for any random discussions ☕️\n", c.channels.OffTopic)
	fmt.Fprintf(&b, "> • <#%s> - have a question or need help? This is the place to ask! ❓\n\n", c.channels.Questions)
	b.WriteString("…And there’s more! Take your time to explore :)\n\n")
	b.WriteString("**Feel free to check out the following pages to learn more about IOTA & Shimmer:**\n")
	b.WriteString("> • <https://www.iota.org>\n")
	b.WriteString("> • <https://shimmer.network>\n")
	b.WriteString("> • <https://wiki.iota.org>")
	return b.String()
}

// neverIntroduced reports whether the user still lacks the Onboarded role.
func (c *Controller) neverIntroduced(ctx context.Context, ev platform.Event) (bool, error) {
	memberRoles, err := c.platform.MemberRoles(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return false, err
	}
	all, err := c.platform.Roles(ctx, ev.GuildID)
	if err != nil {
		return false, err
	}
	for _, role := range all {
		if role.Name != RoleOnboarded {
			continue
		}
		for _, id := range memberRoles {
			if id == role.ID {
				return false, nil
			}
		}
	}
	return true, nil
}
