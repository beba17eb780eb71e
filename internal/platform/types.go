package platform

import (
	"context"
	"time"
)

// Kind identifies the shape of an inbound UI event.
type Kind int

const (
	// ButtonClick is a press on a message component button.
	ButtonClick Kind = iota
	// MenuSelect is a submission of a select menu.
	MenuSelect
	// ModalSubmit is a submission of a modal form.
	ModalSubmit
	// SlashCommand is an application command invocation.
	SlashCommand
	// Message is a plain channel message.
	Message
)

func (k Kind) String() string {
	switch k {
	case ButtonClick:
		return "button"
	case MenuSelect:
		return "menu"
	case ModalSubmit:
		return "modal"
	case SlashCommand:
		return "command"
	case Message:
		return "message"
	}
	return "unknown"
}

// Event is a single inbound UI event. Events are immutable and consumed at
// most once: either by a suspended session (via the Waiter) or by the
// dispatcher's routing table.
type Event struct {
	Kind      Kind
	UserID    string
	UserName  string
	GuildID   string
	ChannelID string
	// MessageID is the message the component belongs to, or the message
	// itself for Kind Message.
	MessageID string
	CustomID  string
	// Label is the display label of the pressed button, if any.
	Label string
	// Values holds menu selections or slash command arguments.
	Values []string
	// Fields holds modal text inputs keyed by input custom ID.
	Fields map[string]string
	// Content is the message body for Kind Message.
	Content string
	// Ref is an opaque handle set by the platform adapter so that responses
	// can be tied back to the originating interaction.
	Ref any
}

// Field returns a modal input value, or "" when absent.
func (e Event) Field(id string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[id]
}

// ButtonStyle selects the visual style of a button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota
	StyleSuccess
	StyleDanger
	StyleSecondary
	StyleLink
)

// Button is a single actionable button on a prompt or message.
type Button struct {
	Label    string
	CustomID string
	Style    ButtonStyle
	// Emoji is a unicode emoji, or a custom emoji when EmojiID is set.
	Emoji   string
	EmojiID string
	// URL is only used with StyleLink.
	URL string
}

// MenuOption is one selectable entry of a Menu.
type MenuOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// Menu is a select menu component.
type Menu struct {
	CustomID    string
	Placeholder string
	MaxValues   int
	Options     []MenuOption
}

// Embed is a structured content block attached to a message.
type Embed struct {
	Title       string
	Description string
}

// Prompt is the renderable payload of an interaction response.
type Prompt struct {
	Content   string
	Ephemeral bool
	Menu      *Menu
	Buttons   []Button
}

// Msg is the renderable payload of a plain channel message. Buttons are laid
// out as rows of up to five.
type Msg struct {
	Content string
	Embed   *Embed
	Buttons [][]Button
}

// TextInput is one input of a Modal.
type TextInput struct {
	CustomID  string
	Label     string
	Paragraph bool
	Required  bool
	MaxLength int
	Value     string
}

// Modal is a form opened in response to an interaction.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// Role is a platform-level role.
type Role struct {
	ID   string
	Name string
}

// Emoji is a platform-level custom emoji.
type Emoji struct {
	ID   string
	Name string
}

// Platform is the chat platform surface consumed by the controllers. The
// discord adapter is the only production implementation; tests use fakes.
type Platform interface {
	// Respond sends the initial response to an interaction event and returns
	// the ID of the created message, or "" when the platform cannot resolve
	// it.
	Respond(ctx context.Context, ev Event, p Prompt) (string, error)
	// Update edits the message the interaction originated from and returns
	// its ID.
	Update(ctx context.Context, ev Event, p Prompt) (string, error)
	// Followup sends an additional response message and returns its ID.
	Followup(ctx context.Context, ev Event, p Prompt) (string, error)
	// Ack acknowledges a component interaction without altering the message
	// it originated from.
	Ack(ctx context.Context, ev Event) error
	// OpenModal responds to an interaction by opening a modal form.
	OpenModal(ctx context.Context, ev Event, m Modal) error

	SendMessage(ctx context.Context, channelID string, m Msg) (string, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	CreateThread(ctx context.Context, channelID, messageID, name string, autoArchive time.Duration) (string, error)
	ArchiveThread(ctx context.Context, threadID, name string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	SuppressEmbeds(ctx context.Context, channelID, messageID string) error
	ChannelName(ctx context.Context, channelID string) (string, error)

	Roles(ctx context.Context, guildID string) ([]Role, error)
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	GrantRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	RevokeRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	// EnsureRole returns the role with the given name, creating it with empty
	// permissions when absent.
	EnsureRole(ctx context.Context, guildID, name string) (Role, error)
	// EnsureEmoji returns the custom emoji with the given name, creating it
	// from the image at imageURL when absent.
	EnsureEmoji(ctx context.Context, guildID, name, imageURL string) (Emoji, error)
}
