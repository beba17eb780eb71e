// Package platformtest provides an in-memory platform.Platform for
// controller tests. Every outbound call is recorded; guild state is a plain
// map the test seeds and inspects.
package platformtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iota-community/optimus-bot/internal/platform"
)

// SentMessage is one recorded SendMessage call.
type SentMessage struct {
	ChannelID string
	MessageID string
	Msg       platform.Msg
}

// Thread is one recorded CreateThread call.
type Thread struct {
	ID        string
	ChannelID string
	MessageID string
	Name      string
}

// Archive is one recorded ArchiveThread call.
type Archive struct {
	ThreadID string
	Name     string
}

// Fake implements platform.Platform in memory.
type Fake struct {
	mu sync.Mutex

	// Seeded guild state.
	GuildRoles   map[string][]platform.Role // by guild ID
	MemberRoleID map[string][]string        // "guildID/userID" -> role IDs
	ChannelNames map[string]string
	EmojiErr     error

	// Recorded outbound traffic.
	Responses  []platform.Prompt
	Updates    []platform.Prompt
	Followups  []platform.Prompt
	Acks       []string // custom IDs of acknowledged interactions
	Modals     []platform.Modal
	Sent       []SentMessage
	Deleted    []string
	Threads    []Thread
	Archived   []Archive
	Reactions  []string // "channelID/messageID emoji"
	Suppressed []string
	Granted    map[string][]string // "guildID/userID" -> role IDs granted
	Revoked    map[string][]string

	seq int
}

func NewFake() *Fake {
	return &Fake{
		GuildRoles:   make(map[string][]platform.Role),
		MemberRoleID: make(map[string][]string),
		ChannelNames: make(map[string]string),
		Granted:      make(map[string][]string),
		Revoked:      make(map[string][]string),
	}
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func memberKey(guildID, userID string) string {
	return guildID + "/" + userID
}

// ResponsesCopy returns a snapshot safe to read while handlers run on other
// goroutines.
func (f *Fake) ResponsesCopy() []platform.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Prompt(nil), f.Responses...)
}

// ReactionsCopy returns a snapshot of recorded reactions.
func (f *Fake) ReactionsCopy() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Reactions...)
}

// Respond records the prompt and returns "resp-N", N being the position in
// Responses. Tests address prompt messages by these IDs.
func (f *Fake) Respond(ctx context.Context, ev platform.Event, p platform.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses = append(f.Responses, p)
	return fmt.Sprintf("resp-%d", len(f.Responses)), nil
}

// Update records the prompt and returns the edited message's ID, mirroring
// the production adapter.
func (f *Fake) Update(ctx context.Context, ev platform.Event, p platform.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates = append(f.Updates, p)
	return ev.MessageID, nil
}

func (f *Fake) Followup(ctx context.Context, ev platform.Event, p platform.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Followups = append(f.Followups, p)
	return fmt.Sprintf("followup-%d", len(f.Followups)), nil
}

func (f *Fake) Ack(ctx context.Context, ev platform.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Acks = append(f.Acks, ev.CustomID)
	return nil
}

func (f *Fake) OpenModal(ctx context.Context, ev platform.Event, m platform.Modal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Modals = append(f.Modals, m)
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID string, m platform.Msg) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("msg")
	f.Sent = append(f.Sent, SentMessage{ChannelID: channelID, MessageID: id, Msg: m})
	return id, nil
}

func (f *Fake) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, channelID+"/"+messageID)
	return nil
}

func (f *Fake) CreateThread(ctx context.Context, channelID, messageID, name string, autoArchive time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("thread")
	f.Threads = append(f.Threads, Thread{ID: id, ChannelID: channelID, MessageID: messageID, Name: name})
	return id, nil
}

func (f *Fake) ArchiveThread(ctx context.Context, threadID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Archived = append(f.Archived, Archive{ThreadID: threadID, Name: name})
	return nil
}

func (f *Fake) React(ctx context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, channelID+"/"+messageID+" "+emoji)
	return nil
}

func (f *Fake) SuppressEmbeds(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Suppressed = append(f.Suppressed, channelID+"/"+messageID)
	return nil
}

func (f *Fake) ChannelName(ctx context.Context, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ChannelNames[channelID], nil
}

func (f *Fake) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Role(nil), f.GuildRoles[guildID]...), nil
}

func (f *Fake) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.MemberRoleID[memberKey(guildID, userID)]...), nil
}

func (f *Fake) GrantRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey(guildID, userID)
	f.Granted[key] = append(f.Granted[key], roleIDs...)
	f.MemberRoleID[key] = append(f.MemberRoleID[key], roleIDs...)
	return nil
}

func (f *Fake) RevokeRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey(guildID, userID)
	f.Revoked[key] = append(f.Revoked[key], roleIDs...)
	remove := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		remove[id] = true
	}
	var kept []string
	for _, id := range f.MemberRoleID[key] {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	f.MemberRoleID[key] = kept
	return nil
}

// EnsureRole resolves by name against the seeded guild roles, creating a
// role with a derived ID when absent.
func (f *Fake) EnsureRole(ctx context.Context, guildID, name string) (platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.GuildRoles[guildID] {
		if r.Name == name {
			return r, nil
		}
	}
	role := platform.Role{ID: "role-" + name, Name: name}
	f.GuildRoles[guildID] = append(f.GuildRoles[guildID], role)
	return role, nil
}

func (f *Fake) EnsureEmoji(ctx context.Context, guildID, name, imageURL string) (platform.Emoji, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EmojiErr != nil {
		return platform.Emoji{}, f.EmojiErr
	}
	return platform.Emoji{ID: "emoji-" + name, Name: name}, nil
}
