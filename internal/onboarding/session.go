package onboarding

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/iota-community/optimus-bot/internal/platform"
)

// Step timeouts. The freeform introduction message gets a longer window in
// controller.go.
const stepTimeout = 5 * time.Minute

// State identifies the step a session is suspended at.
type State int

const (
	StateInterests State = iota
	StateEvents
	StatePolls
	StateJoinReason
	StateSources
	StateDone
)

// Component custom IDs owned by the onboarding flow.
const (
	// StartButtonID is the public button that opens a new session.
	StartButtonID = "getting_started_letsgo"

	idInterestMenu = "channel_choice"
	idEvents       = "events"
	idNoEvents     = "no_events"
	idPolls        = "polls"
	idNoPolls      = "no_polls"
	idFoundFrom    = "found_from"
)

// Session is the explicit state of one onboarding interview, threaded
// through the pure Advance transition. It is a value: every transition
// returns a new session and the previous one is discarded.
type Session struct {
	ID        string
	UserID    string
	UserName  string
	GuildID   string
	ChannelID string

	State State
	// Step is the 1-based display index of the prompt currently shown.
	Step int
	// StepCount is fixed when the session starts and never changes.
	StepCount int
	// NeverIntroduced is true when the user has not completed the full
	// first-time flow before (no Onboarded role).
	NeverIntroduced bool

	// Selections accumulates chosen role IDs in insertion order. It never
	// shrinks before the terminal step and never contains SelectionNone.
	Selections []string
	JoinReason string
	Sources    []string
}

// PromptMode selects how a step prompt is delivered.
type PromptMode int

const (
	// ModeRespond creates the initial interaction response.
	ModeRespond PromptMode = iota
	// ModeUpdate edits the message the triggering component lives on.
	ModeUpdate
	// ModeFollowup sends an additional ephemeral message.
	ModeFollowup
)

// StepPrompt is one outbound render command.
type StepPrompt struct {
	Mode   PromptMode
	Prompt platform.Prompt
}

// Expectation describes the next event the session accepts, and for how
// long it will wait.
type Expectation struct {
	Kinds     []platform.Kind
	CustomIDs []string
	Timeout   time.Duration
}

// Commit carries the accumulated results applied at the terminal step. Role
// changes and counter increments happen only here, never mid-flow.
type Commit struct {
	Selections []string
	JoinReason string
	Sources    []string
	// AwaitIntroduction is set for first-time flows: the controller keeps
	// waiting for a freeform message in the introduction channel.
	AwaitIntroduction bool
}

// Outcome is everything a transition asks the controller to do: render
// prompts, then either suspend on Expect or commit.
type Outcome struct {
	Prompts []StepPrompt
	Expect  *Expectation
	Commit  *Commit
}

// Begin creates a session for the triggering event and produces the first
// prompt. The step count is decided here, once, from neverIntroduced.
func Begin(ev platform.Event, neverIntroduced bool) (Session, Outcome) {
	s := Session{
		ID:              uuid.New().String(),
		UserID:          ev.UserID,
		UserName:        ev.UserName,
		GuildID:         ev.GuildID,
		ChannelID:       ev.ChannelID,
		State:           StateInterests,
		Step:            1,
		StepCount:       3,
		NeverIntroduced: neverIntroduced,
	}
	if neverIntroduced {
		s.StepCount = 5
	}

	return s, Outcome{
		Prompts: []StepPrompt{{Mode: ModeRespond, Prompt: s.interestPrompt()}},
		Expect: &Expectation{
			Kinds:     []platform.Kind{platform.MenuSelect},
			CustomIDs: []string{idInterestMenu},
			Timeout:   stepTimeout,
		},
	}
}

// Advance applies one event to the session. Events not matching the current
// state are never delivered here; the waiter's scope filters them out.
func Advance(s Session, ev platform.Event) (Session, Outcome) {
	switch s.State {
	case StateInterests:
		for _, v := range ev.Values {
			s = s.withSelection(v)
		}
		s.State = StateEvents
		s.Step = 2
		return s, Outcome{
			Prompts: []StepPrompt{{Mode: ModeUpdate, Prompt: s.yesNoPrompt(
				"Would you like to get notified for community events?", idEvents, idNoEvents)}},
			Expect: &Expectation{
				Kinds:     []platform.Kind{platform.ButtonClick},
				CustomIDs: []string{idEvents, idNoEvents},
				Timeout:   stepTimeout,
			},
		}

	case StateEvents:
		if ev.CustomID == idEvents {
			s = s.withSelection(EventsRole.ID)
		}
		s.State = StatePolls
		s.Step = 3
		return s, Outcome{
			Prompts: []StepPrompt{{Mode: ModeUpdate, Prompt: s.yesNoPrompt(
				"Would you like to get notified for polls and surveys?", idPolls, idNoPolls)}},
			Expect: &Expectation{
				Kinds:     []platform.Kind{platform.ButtonClick},
				CustomIDs: []string{idPolls, idNoPolls},
				Timeout:   stepTimeout,
			},
		}

	case StatePolls:
		if ev.CustomID == idPolls {
			s = s.withSelection(PollsRole.ID)
		}
		if !s.NeverIntroduced {
			s.State = StateDone
			return s, Outcome{
				Prompts: []StepPrompt{
					{Mode: ModeUpdate, Prompt: platform.Prompt{
						Content: fmt.Sprintf("**[%d/%d]**: You have personalized the server, congrats!", s.StepCount, s.StepCount),
					}},
					{Mode: ModeFollowup, Prompt: platform.Prompt{
						Content:   "Awesome, your server profile will be updated now!",
						Ephemeral: true,
					}},
				},
				Commit: &Commit{Selections: s.Selections},
			}
		}
		s.State = StateJoinReason
		s.Step = 4
		return s, Outcome{
			Prompts: []StepPrompt{{Mode: ModeUpdate, Prompt: s.joinReasonPrompt()}},
			Expect: &Expectation{
				Kinds:     []platform.Kind{platform.ButtonClick},
				CustomIDs: joinReasonIDs(),
				Timeout:   stepTimeout,
			},
		}

	case StateJoinReason:
		s.JoinReason = ev.CustomID
		s.State = StateSources
		s.Step = 5
		return s, Outcome{
			Prompts: []StepPrompt{
				{Mode: ModeUpdate, Prompt: platform.Prompt{
					Content: fmt.Sprintf("**[%d/%d]**: You have personalized the server, congrats!", s.StepCount, s.StepCount),
				}},
				{Mode: ModeFollowup, Prompt: s.foundFromPrompt()},
			},
			Expect: &Expectation{
				Kinds:     []platform.Kind{platform.MenuSelect},
				CustomIDs: []string{idFoundFrom},
				Timeout:   stepTimeout,
			},
		}

	case StateSources:
		for _, v := range ev.Values {
			if v != SelectionNone {
				s.Sources = append(s.Sources, v)
			}
		}
		s.State = StateDone
		return s, Outcome{
			Prompts: []StepPrompt{{Mode: ModeUpdate, Prompt: platform.Prompt{
				Content: fmt.Sprintf(
					"Thank you <@%s>! If you'd like to get more introduction info, drop by the introduction channel and say Hi :)\n\n"+
						"We’d love to get to know you better and hear about:\n"+
						"> 🌈 your favourite IOTA & Shimmer feature\n"+
						"> 🔧 what you’re working on!", s.UserID),
			}}},
			Commit: &Commit{
				Selections:        s.Selections,
				JoinReason:        s.JoinReason,
				Sources:           s.Sources,
				AwaitIntroduction: true,
			},
		}
	}

	// StateDone: terminal, nothing to advance.
	return s, Outcome{}
}

// withSelection appends a value unless it is the skip sentinel or already
// present. Membership is order-independent; order is kept for rendering.
func (s Session) withSelection(v string) Session {
	if v == SelectionNone || slices.Contains(s.Selections, v) {
		return s
	}
	s.Selections = append(slices.Clone(s.Selections), v)
	return s
}

func (s Session) header(text string) string {
	return fmt.Sprintf("**[%d/%d]:** %s", s.Step, s.StepCount, text)
}

func (s Session) interestPrompt() platform.Prompt {
	opts := make([]platform.MenuOption, 0, len(Categories)+2)
	for _, c := range Categories {
		opts = append(opts, platform.MenuOption{
			Label: c.Label, Value: c.ID, Description: c.Description, Emoji: c.Emoji,
		})
	}
	opts = append(opts, platform.MenuOption{
		Label: AllCategories.Label, Value: AllCategories.ID,
		Description: AllCategories.Description, Emoji: AllCategories.Emoji,
	})
	opts = append(opts, platform.MenuOption{
		Label: "[Skip] I don't want any!", Value: SelectionNone,
		Description: "Nope, I ain't need more.", Emoji: "⏭",
	})

	return platform.Prompt{
		Content:   s.header("Which content would you like to have access to?"),
		Ephemeral: true,
		Menu: &platform.Menu{
			CustomID:    idInterestMenu,
			Placeholder: "Select your interest(s)",
			MaxValues:   len(opts) - 1,
			Options:     opts,
		},
	}
}

func (s Session) yesNoPrompt(text, yesID, noID string) platform.Prompt {
	return platform.Prompt{
		Content: s.header(text),
		Buttons: []platform.Button{
			{Label: "Yes!", CustomID: yesID, Style: platform.StyleSuccess},
			{Label: "No, thank you!", CustomID: noID, Style: platform.StyleDanger},
		},
	}
}

func (s Session) joinReasonPrompt() platform.Prompt {
	buttons := make([]platform.Button, 0, len(JoinReasons))
	for _, r := range JoinReasons {
		buttons = append(buttons, platform.Button{
			Label: r.Label, CustomID: r.ID, Style: platform.StyleSecondary, Emoji: r.Emoji,
		})
	}
	return platform.Prompt{
		Content: s.header("Why did you join our community?"),
		Buttons: buttons,
	}
}

func (s Session) foundFromPrompt() platform.Prompt {
	opts := make([]platform.MenuOption, 0, len(FoundFromSources)+1)
	for _, src := range FoundFromSources {
		opts = append(opts, platform.MenuOption{
			Label: src.Label, Value: src.ID, Description: src.Description, Emoji: src.Emoji,
		})
	}
	opts = append(opts, platform.MenuOption{
		Label: "[Skip] Prefer not to share", Value: SelectionNone, Emoji: "⏭",
	})
	return platform.Prompt{
		Content:   s.header("How did you find IOTA & Shimmer?"),
		Ephemeral: true,
		Menu: &platform.Menu{
			CustomID:    idFoundFrom,
			Placeholder: "[Poll]: Select sources (Optional)",
			MaxValues:   len(FoundFromSources),
			Options:     opts,
		},
	}
}

func joinReasonIDs() []string {
	ids := make([]string, len(JoinReasons))
	for i, r := range JoinReasons {
		ids[i] = r.ID
	}
	return ids
}
