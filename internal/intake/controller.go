// Package intake turns submitted questions into searchable support threads
// enriched with auto-discovered related links.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iota-community/optimus-bot/internal/links"
	"github.com/iota-community/optimus-bot/internal/platform"
	"github.com/iota-community/optimus-bot/internal/store"
)

// Component custom IDs owned by the intake flow.
const (
	// CreateButtonID opens the question form.
	CreateButtonID = "create_question"
	// ModalID identifies the question form submission.
	ModalID = "question_modal"
	// CloseButtonID closes a question thread.
	CloseButtonID = "close_question"

	fieldTitle       = "input_title"
	fieldDescription = "input_description"

	titleMaxLength       = 98
	descriptionMaxLength = 4000

	// Descriptions at or past this length are rendered as an embed instead
	// of inline text.
	inlineDescriptionLimit = 1960

	questionArchiveAfter = 72 * time.Hour
)

// Draft store is the slice of the persistence layer the intake flow needs.
type DraftStore interface {
	PendingDraft(ctx context.Context, userID, channelID string) (string, error)
	SaveDraft(ctx context.Context, userID, channelID, content string) error
	ClearPendingDraft(ctx context.Context, userID, channelID string) error
}

// Controller handles the question form and its resulting thread.
type Controller struct {
	platform   platform.Platform
	drafts     DraftStore
	aggregator *links.Aggregator
	icons      *iconCache
	logger     *slog.Logger
}

func NewController(p platform.Platform, drafts DraftStore, aggregator *links.Aggregator, logger *slog.Logger) *Controller {
	return &Controller{
		platform:   p,
		drafts:     drafts,
		aggregator: aggregator,
		icons:      newIconCache(p, logger),
		logger:     logger,
	}
}

// HandleOpenForm opens the question modal, pre-filled with any pending
// draft the user left in this channel.
func (c *Controller) HandleOpenForm(ctx context.Context, ev platform.Event) error {
	draft, err := c.drafts.PendingDraft(ctx, ev.UserID, ev.ChannelID)
	switch {
	case err == nil:
		if err := c.drafts.ClearPendingDraft(ctx, ev.UserID, ev.ChannelID); err != nil {
			c.logger.Warn("failed to clear pending draft", "user", ev.UserID, "error", err)
		}
	case errors.Is(err, store.ErrNoDraft):
		draft = ""
	default:
		c.logger.Warn("failed to read pending draft", "user", ev.UserID, "error", err)
	}

	return c.platform.OpenModal(ctx, ev, platform.Modal{
		CustomID: ModalID,
		Title:    "Ask a question",
		Inputs: []platform.TextInput{
			{CustomID: fieldTitle, Label: "Title", Required: true, MaxLength: titleMaxLength},
			{CustomID: fieldDescription, Label: "Description", Paragraph: true, Required: true, MaxLength: descriptionMaxLength, Value: draft},
		},
	})
}

// HandleSubmit creates the question thread and, best-effort, the link
// suggestion buttons.
func (c *Controller) HandleSubmit(ctx context.Context, ev platform.Event) error {
	title := strings.TrimSpace(ev.Field(fieldTitle))
	description := strings.TrimSpace(ev.Field(fieldDescription))
	if title == "" || description == "" {
		// Malformed payload: leave the form to be resubmitted.
		return nil
	}

	if _, err := c.platform.Respond(ctx, ev, platform.Prompt{
		Content:   "Thanks! Opening a thread for your question…",
		Ephemeral: true,
	}); err != nil {
		return fmt.Errorf("failed to acknowledge question: %w", err)
	}

	headerID, err := c.platform.SendMessage(ctx, ev.ChannelID, platform.Msg{
		Content: fmt.Sprintf("**%s** — asked by <@%s>", title, ev.UserID),
	})
	if err != nil {
		return fmt.Errorf("failed to post question: %w", err)
	}
	if err := c.platform.SuppressEmbeds(ctx, ev.ChannelID, headerID); err != nil {
		c.logger.Warn("failed to suppress embeds", "message", headerID, "error", err)
	}

	threadID, err := c.platform.CreateThread(ctx, ev.ChannelID, headerID,
		"❓ "+title, questionArchiveAfter)
	if err != nil {
		return fmt.Errorf("failed to create question thread: %w", err)
	}

	if _, err := c.platform.SendMessage(ctx, threadID, descriptionMsg(description)); err != nil {
		return fmt.Errorf("failed to post description: %w", err)
	}

	if _, err := c.platform.SendMessage(ctx, threadID, platform.Msg{
		Content: fmt.Sprintf("> Hey <@%s>! Thank you for raising this — please hang tight as someone from our community may help you out. Meanwhile, feel free to add any more information in this thread!", ev.UserID),
		Buttons: [][]platform.Button{{
			{Label: "Close", CustomID: CloseButtonID, Style: platform.StyleDanger, Emoji: "🔒"},
		}},
	}); err != nil {
		return fmt.Errorf("failed to post acknowledgement: %w", err)
	}

	suggestions := c.aggregator.Collect(ctx, links.Question{
		ID:          threadID,
		GuildID:     ev.GuildID,
		ChannelID:   ev.ChannelID,
		Title:       title,
		Description: description,
	})
	if suggestions.Len() == 0 {
		return nil
	}

	rows := c.suggestionRows(ctx, ev.GuildID, suggestions)
	if _, err := c.platform.SendMessage(ctx, threadID, platform.Msg{
		Content: fmt.Sprintf("<@%s> I also found some relevant links which might answer your question, please do check them out below 🙏:", ev.UserID),
		Buttons: rows,
	}); err != nil {
		// Suggestions are best-effort; the thread already exists.
		c.logger.Warn("failed to post link suggestions", "thread", threadID, "error", err)
	}
	return nil
}

// HandleChannelMessage redirects a plain message posted in a designated
// question channel into the form flow: the message is saved as a pending
// draft (pre-filling the modal), removed, and replaced with a quoted repost
// carrying the form button.
func (c *Controller) HandleChannelMessage(ctx context.Context, ev platform.Event) error {
	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return nil
	}

	if err := c.drafts.SaveDraft(ctx, ev.UserID, ev.ChannelID, content); err != nil {
		c.logger.Warn("failed to save pending draft", "user", ev.UserID, "error", err)
	}
	if err := c.platform.DeleteMessage(ctx, ev.ChannelID, ev.MessageID); err != nil {
		c.logger.Warn("failed to remove redirected message", "message", ev.MessageID, "error", err)
	}

	quoted := "> " + strings.ReplaceAll(content, "\n", "\n> ")
	if _, err := c.platform.SendMessage(ctx, ev.ChannelID, platform.Msg{
		Content: fmt.Sprintf("%s\n<@%s> please use the button below so your question gets its own thread:", quoted, ev.UserID),
		Buttons: [][]platform.Button{{
			{Label: "Ask a question", CustomID: CreateButtonID, Style: platform.StylePrimary, Emoji: "❓"},
		}},
	}); err != nil {
		return fmt.Errorf("failed to repost question prompt: %w", err)
	}
	return nil
}

// descriptionMsg renders the description inline below the threshold and as
// a structured embed at or past it.
func descriptionMsg(description string) platform.Msg {
	if utf8.RuneCountInString(description) < inlineDescriptionLimit {
		return platform.Msg{
			Content: "__**Description**__\n" + description + "\n**---------------**",
		}
	}
	return platform.Msg{
		Embed: &platform.Embed{Title: "Description", Description: description},
	}
}

// HandleClose archives a question thread, renaming ❓ to ✅. byUser is set
// for the close button, where the closer is announced.
func (c *Controller) HandleClose(ctx context.Context, ev platform.Event, byUser bool) error {
	name, err := c.platform.ChannelName(ctx, ev.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to read thread name: %w", err)
	}

	threadType := "thread"
	if strings.Contains(name, "✅") || strings.Contains(name, "❓") {
		threadType = "question"
	}
	newName := name
	if threadType == "question" && !strings.Contains(name, "✅") {
		newName = "✅ " + strings.TrimPrefix(name, "❓ ")
	}

	if byUser {
		if _, err := c.platform.SendMessage(ctx, ev.ChannelID, platform.Msg{
			Content: fmt.Sprintf("This %s was closed by <@%s>", threadType, ev.UserID),
		}); err != nil {
			return fmt.Errorf("failed to announce close: %w", err)
		}
		// A deferred acknowledgement leaves the close button's message
		// untouched.
		if err := c.platform.Ack(ctx, ev); err != nil {
			c.logger.Warn("failed to acknowledge close button", "error", err)
		}
	} else {
		if _, err := c.platform.Respond(ctx, ev, platform.Prompt{
			Content: fmt.Sprintf("This %s was closed", threadType),
		}); err != nil {
			return fmt.Errorf("failed to announce close: %w", err)
		}
	}

	if err := c.platform.ArchiveThread(ctx, ev.ChannelID, newName); err != nil {
		return fmt.Errorf("failed to archive thread: %w", err)
	}
	return nil
}
