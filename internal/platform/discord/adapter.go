// Package discord adapts the chat platform contract to the Discord gateway
// and REST API. All discordgo types stay inside this package.
package discord

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/iota-community/optimus-bot/internal/platform"
)

// EventHandler consumes translated inbound events. The dispatcher is the
// only implementation.
type EventHandler interface {
	Handle(ctx context.Context, ev platform.Event)
}

// Adapter connects a bot session to the event handler and implements
// platform.Platform.
type Adapter struct {
	session *discordgo.Session
	handler EventHandler
	guildID string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a closed adapter. REST calls work immediately; call Start to
// connect to the gateway and receive events.
func New(token, guildID string, logger *slog.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	return &Adapter{
		session: session,
		guildID: guildID,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

// Start opens the gateway connection, feeding events into the handler, and
// registers the guild commands.
func (a *Adapter) Start(ctx context.Context, handler EventHandler) error {
	a.handler = handler
	a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		a.handleInteraction(ctx, i)
	})
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(ctx, m)
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}

	appID := a.session.State.User.ID
	adminOnly := int64(discordgo.PermissionManageServer)
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "close",
			Description: "Close and archive this thread",
		},
		{
			Name:                     "statistics",
			Description:              "Show onboarding statistics",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "table",
					Description: "Counter table (join_reason or found_from)",
				},
			},
		},
	}
	for _, cmd := range commands {
		if _, err := a.session.ApplicationCommandCreate(appID, a.guildID, cmd); err != nil {
			return fmt.Errorf("failed to register command %q: %w", cmd.Name, err)
		}
	}

	a.logger.Info("connected to gateway", "user", a.session.State.User.Username)
	return nil
}

// Stop closes the gateway connection.
func (a *Adapter) Stop() error {
	return a.session.Close()
}

func (a *Adapter) handleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	ev := platform.Event{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Ref:       i.Interaction,
	}
	if i.Member != nil && i.Member.User != nil {
		ev.UserID = i.Member.User.ID
		ev.UserName = i.Member.User.Username
	} else if i.User != nil {
		ev.UserID = i.User.ID
		ev.UserName = i.User.Username
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		ev.CustomID = data.CustomID
		ev.Values = data.Values
		if data.ComponentType == discordgo.SelectMenuComponent {
			ev.Kind = platform.MenuSelect
		} else {
			ev.Kind = platform.ButtonClick
		}
		if i.Message != nil {
			ev.MessageID = i.Message.ID
			ev.Label = buttonLabel(i.Message.Components, data.CustomID)
		}

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		ev.Kind = platform.ModalSubmit
		ev.CustomID = data.CustomID
		ev.Fields = modalFields(data.Components)

	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		ev.Kind = platform.SlashCommand
		ev.CustomID = data.Name
		for _, opt := range data.Options {
			if opt.Type == discordgo.ApplicationCommandOptionString {
				ev.Values = append(ev.Values, opt.StringValue())
			}
		}

	default:
		return
	}

	a.handler.Handle(ctx, ev)
}

func (a *Adapter) handleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	a.handler.Handle(ctx, platform.Event{
		Kind:      platform.Message,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Content:   m.Content,
	})
}

// buttonLabel finds the label of the pressed button on the source message.
func buttonLabel(components []discordgo.MessageComponent, customID string) string {
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if b, ok := inner.(*discordgo.Button); ok && b.CustomID == customID {
				return b.Label
			}
		}
	}
	return ""
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if in, ok := inner.(*discordgo.TextInput); ok {
				fields[in.CustomID] = in.Value
			}
		}
	}
	return fields
}

func interactionRef(ev platform.Event) (*discordgo.Interaction, error) {
	ref, ok := ev.Ref.(*discordgo.Interaction)
	if !ok || ref == nil {
		return nil, fmt.Errorf("event carries no interaction reference")
	}
	return ref, nil
}

// Respond sends the initial interaction response and returns the ID of the
// created message.
func (a *Adapter) Respond(ctx context.Context, ev platform.Event, p platform.Prompt) (string, error) {
	ref, err := interactionRef(ev)
	if err != nil {
		return "", err
	}
	if err := a.session.InteractionRespond(ref, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(p),
	}); err != nil {
		return "", err
	}
	msg, err := a.session.InteractionResponse(ref)
	if err != nil {
		// The response went through; without its ID callers fall back to an
		// unscoped wait.
		a.logger.Debug("failed to fetch interaction response", "error", err)
		return "", nil
	}
	return msg.ID, nil
}

// Update edits the message the interaction originated from.
func (a *Adapter) Update(ctx context.Context, ev platform.Event, p platform.Prompt) (string, error) {
	ref, err := interactionRef(ev)
	if err != nil {
		return "", err
	}
	if err := a.session.InteractionRespond(ref, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: responseData(p),
	}); err != nil {
		return "", err
	}
	return ev.MessageID, nil
}

// Ack acknowledges a component interaction without touching the message it
// originated from.
func (a *Adapter) Ack(ctx context.Context, ev platform.Event) error {
	ref, err := interactionRef(ev)
	if err != nil {
		return err
	}
	return a.session.InteractionRespond(ref, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// Followup sends an additional response message.
func (a *Adapter) Followup(ctx context.Context, ev platform.Event, p platform.Prompt) (string, error) {
	ref, err := interactionRef(ev)
	if err != nil {
		return "", err
	}
	params := &discordgo.WebhookParams{
		Content:    p.Content,
		Components: promptComponents(p),
	}
	if p.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	msg, err := a.session.FollowupMessageCreate(ref, true, params)
	if err != nil {
		return "", fmt.Errorf("failed to send followup: %w", err)
	}
	return msg.ID, nil
}

// OpenModal responds with a modal form.
func (a *Adapter) OpenModal(ctx context.Context, ev platform.Event, m platform.Modal) error {
	ref, err := interactionRef(ev)
	if err != nil {
		return err
	}
	components := make([]discordgo.MessageComponent, 0, len(m.Inputs))
	for _, in := range m.Inputs {
		style := discordgo.TextInputShort
		if in.Paragraph {
			style = discordgo.TextInputParagraph
		}
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  in.CustomID,
					Label:     in.Label,
					Style:     style,
					Required:  in.Required,
					MaxLength: in.MaxLength,
					Value:     in.Value,
				},
			},
		})
	}
	return a.session.InteractionRespond(ref, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   m.CustomID,
			Title:      m.Title,
			Components: components,
		},
	})
}

func (a *Adapter) SendMessage(ctx context.Context, channelID string, m platform.Msg) (string, error) {
	send := &discordgo.MessageSend{Content: m.Content}
	if m.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{{
			Title:       m.Embed.Title,
			Description: m.Embed.Description,
		}}
	}
	for _, row := range m.Buttons {
		send.Components = append(send.Components, buttonRow(row))
	}
	msg, err := a.session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return a.session.ChannelMessageDelete(channelID, messageID)
}

func (a *Adapter) CreateThread(ctx context.Context, channelID, messageID, name string, autoArchive time.Duration) (string, error) {
	thread, err := a.session.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: int(autoArchive.Minutes()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start thread: %w", err)
	}
	return thread.ID, nil
}

func (a *Adapter) ArchiveThread(ctx context.Context, threadID, name string) error {
	archived := true
	if _, err := a.session.ChannelEditComplex(threadID, &discordgo.ChannelEdit{
		Name:     name,
		Archived: &archived,
	}); err != nil {
		return fmt.Errorf("failed to archive thread: %w", err)
	}
	return nil
}

func (a *Adapter) React(ctx context.Context, channelID, messageID, emoji string) error {
	return a.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (a *Adapter) SuppressEmbeds(ctx context.Context, channelID, messageID string) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Flags = discordgo.MessageFlagsSuppressEmbeds
	_, err := a.session.ChannelMessageEditComplex(edit)
	return err
}

func (a *Adapter) ChannelName(ctx context.Context, channelID string) (string, error) {
	ch, err := a.session.Channel(channelID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch channel: %w", err)
	}
	return ch.Name, nil
}

func (a *Adapter) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	roles, err := a.session.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	out := make([]platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, platform.Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (a *Adapter) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	return member.Roles, nil
}

func (a *Adapter) GrantRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	for _, id := range roleIDs {
		if err := a.session.GuildMemberRoleAdd(guildID, userID, id); err != nil {
			return fmt.Errorf("failed to grant role %s: %w", id, err)
		}
	}
	return nil
}

func (a *Adapter) RevokeRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	for _, id := range roleIDs {
		if err := a.session.GuildMemberRoleRemove(guildID, userID, id); err != nil {
			return fmt.Errorf("failed to revoke role %s: %w", id, err)
		}
	}
	return nil
}

// EnsureRole returns the named role, creating it with empty permissions
// when absent.
func (a *Adapter) EnsureRole(ctx context.Context, guildID, name string) (platform.Role, error) {
	roles, err := a.session.GuildRoles(guildID)
	if err != nil {
		return platform.Role{}, fmt.Errorf("failed to list roles: %w", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}

	var noPerms int64
	hoist, mentionable := false, false
	role, err := a.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Permissions: &noPerms,
		Hoist:       &hoist,
		Mentionable: &mentionable,
	})
	if err != nil {
		return platform.Role{}, fmt.Errorf("failed to create role %q: %w", name, err)
	}
	a.logger.Info("created role", "name", name, "id", role.ID)
	return platform.Role{ID: role.ID, Name: role.Name}, nil
}

// EnsureEmoji returns the named guild emoji, creating it from the image at
// imageURL when absent.
func (a *Adapter) EnsureEmoji(ctx context.Context, guildID, name, imageURL string) (platform.Emoji, error) {
	emojis, err := a.session.GuildEmojis(guildID)
	if err != nil {
		return platform.Emoji{}, fmt.Errorf("failed to list emojis: %w", err)
	}
	for _, e := range emojis {
		if e.Name == name {
			return platform.Emoji{ID: e.ID, Name: e.Name}, nil
		}
	}

	image, err := a.fetchImage(ctx, imageURL)
	if err != nil {
		return platform.Emoji{}, fmt.Errorf("failed to fetch emoji image: %w", err)
	}
	emoji, err := a.session.GuildEmojiCreate(guildID, &discordgo.EmojiParams{
		Name:  name,
		Image: image,
	})
	if err != nil {
		return platform.Emoji{}, fmt.Errorf("failed to create emoji %q: %w", name, err)
	}
	a.logger.Info("created emoji", "name", name, "id", emoji.ID)
	return platform.Emoji{ID: emoji.ID, Name: emoji.Name}, nil
}

// fetchImage downloads an image and returns it as a data URI.
func (a *Adapter) fetchImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(body)), nil
}

func responseData(p platform.Prompt) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    p.Content,
		Components: promptComponents(p),
	}
	if p.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

// promptComponents renders a prompt's menu or buttons as action rows. An
// empty slice (not nil) clears components on message updates.
func promptComponents(p platform.Prompt) []discordgo.MessageComponent {
	components := []discordgo.MessageComponent{}
	if p.Menu != nil {
		options := make([]discordgo.SelectMenuOption, 0, len(p.Menu.Options))
		for _, o := range p.Menu.Options {
			opt := discordgo.SelectMenuOption{
				Label:       o.Label,
				Value:       o.Value,
				Description: o.Description,
			}
			if o.Emoji != "" {
				opt.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
			}
			options = append(options, opt)
		}
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    p.Menu.CustomID,
					Placeholder: p.Menu.Placeholder,
					MaxValues:   p.Menu.MaxValues,
					Options:     options,
				},
			},
		})
	}
	if len(p.Buttons) > 0 {
		components = append(components, buttonRow(p.Buttons))
	}
	return components
}

func buttonRow(buttons []platform.Button) discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		btn := discordgo.Button{
			Label:    b.Label,
			CustomID: b.CustomID,
			Style:    buttonStyle(b.Style),
			URL:      b.URL,
		}
		if b.Emoji != "" || b.EmojiID != "" {
			btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji, ID: b.EmojiID}
		}
		row.Components = append(row.Components, btn)
	}
	return row
}

func buttonStyle(s platform.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case platform.StyleSuccess:
		return discordgo.SuccessButton
	case platform.StyleDanger:
		return discordgo.DangerButton
	case platform.StyleSecondary:
		return discordgo.SecondaryButton
	case platform.StyleLink:
		return discordgo.LinkButton
	}
	return discordgo.PrimaryButton
}
