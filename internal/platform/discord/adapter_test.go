package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/iota-community/optimus-bot/internal/platform"
)

func TestButtonLabel(t *testing.T) {
	components := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.Button{Label: "Yes!", CustomID: "events"},
			&discordgo.Button{Label: "No, thank you!", CustomID: "no_events"},
		}},
	}

	if got := buttonLabel(components, "no_events"); got != "No, thank you!" {
		t.Errorf("buttonLabel() = %q, want the matching button's label", got)
	}
	if got := buttonLabel(components, "missing"); got != "" {
		t.Errorf("buttonLabel() = %q for an unknown custom ID, want empty", got)
	}
}

func TestModalFields(t *testing.T) {
	components := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: "input_title", Value: "How do I mint?"},
		}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: "input_description", Value: "details"},
		}},
	}

	fields := modalFields(components)
	if fields["input_title"] != "How do I mint?" || fields["input_description"] != "details" {
		t.Errorf("modalFields() = %v", fields)
	}
}

func TestPromptComponentsRendersMenuAndButtons(t *testing.T) {
	p := platform.Prompt{
		Menu: &platform.Menu{
			CustomID:    "channel_choice",
			Placeholder: "Select your interest(s)",
			MaxValues:   3,
			Options: []platform.MenuOption{
				{Label: "Buidler", Value: "Buidler", Emoji: "🏗️"},
			},
		},
		Buttons: []platform.Button{
			{Label: "Yes!", CustomID: "events", Style: platform.StyleSuccess},
		},
	}

	components := promptComponents(p)
	if len(components) != 2 {
		t.Fatalf("promptComponents() returned %d rows, want 2", len(components))
	}

	menuRow, ok := components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("first row is %T, want ActionsRow", components[0])
	}
	menu, ok := menuRow.Components[0].(discordgo.SelectMenu)
	if !ok {
		t.Fatalf("menu row holds %T, want SelectMenu", menuRow.Components[0])
	}
	if menu.CustomID != "channel_choice" || menu.MaxValues != 3 {
		t.Errorf("menu = %+v", menu)
	}
	if menu.Options[0].Emoji == nil || menu.Options[0].Emoji.Name != "🏗️" {
		t.Errorf("menu option emoji = %+v", menu.Options[0].Emoji)
	}

	buttonRow, ok := components[1].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("second row is %T, want ActionsRow", components[1])
	}
	button, ok := buttonRow.Components[0].(discordgo.Button)
	if !ok {
		t.Fatalf("button row holds %T, want Button", buttonRow.Components[0])
	}
	if button.Style != discordgo.SuccessButton {
		t.Errorf("button style = %v, want SuccessButton", button.Style)
	}
}

func TestPromptComponentsClearsOnEmptyPrompt(t *testing.T) {
	components := promptComponents(platform.Prompt{})
	if components == nil {
		t.Fatal("promptComponents() returned nil; updates need an empty slice to clear rows")
	}
	if len(components) != 0 {
		t.Errorf("promptComponents() = %v, want empty", components)
	}
}

func TestButtonStyleMapping(t *testing.T) {
	tests := []struct {
		in   platform.ButtonStyle
		want discordgo.ButtonStyle
	}{
		{platform.StylePrimary, discordgo.PrimaryButton},
		{platform.StyleSuccess, discordgo.SuccessButton},
		{platform.StyleDanger, discordgo.DangerButton},
		{platform.StyleSecondary, discordgo.SecondaryButton},
		{platform.StyleLink, discordgo.LinkButton},
	}
	for _, tt := range tests {
		if got := buttonStyle(tt.in); got != tt.want {
			t.Errorf("buttonStyle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
