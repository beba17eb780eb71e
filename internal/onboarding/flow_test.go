package onboarding_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iota-community/optimus-bot/internal/onboarding"
	"github.com/iota-community/optimus-bot/internal/platform"
	"github.com/iota-community/optimus-bot/internal/platform/platformtest"
)

type fakeStore struct {
	mu       sync.Mutex
	counters map[string]int
	roles    map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counters: make(map[string]int),
		roles:    make(map[string][]string),
	}
}

func (s *fakeStore) IncrementCounter(ctx context.Context, table, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[table+"/"+column]++
	return nil
}

func (s *fakeStore) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = append(s.roles[userID], roleIDs...)
	return nil
}

func (s *fakeStore) counter(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

func (s *fakeStore) userRoles(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.roles[userID]...)
}

var _ = Describe("Onboarding flow", func() {
	var (
		fake     *platformtest.Fake
		db       *fakeStore
		waiter   *platform.Waiter
		ctrl     *onboarding.Controller
		channels onboarding.Channels
		done     chan error
	)

	start := func(ev platform.Event) {
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		done = make(chan error, 1)
		go func() {
			done <- ctrl.HandleStart(ctx, ev)
		}()
	}

	deliver := func(ev platform.Event) {
		Eventually(waiter.Pending).Should(Equal(1))
		Expect(waiter.Deliver(ev)).To(BeTrue())
	}

	startEvent := platform.Event{
		Kind:      platform.ButtonClick,
		UserID:    "u1",
		UserName:  "alice",
		GuildID:   "g1",
		ChannelID: "c-lobby",
		CustomID:  onboarding.StartButtonID,
	}

	BeforeEach(func() {
		fake = platformtest.NewFake()
		db = newFakeStore()
		waiter = platform.NewWaiter()
		channels = onboarding.Channels{
			Introduction: "c-intro",
			General:      "c-general",
			OffTopic:     "c-offtopic",
			Questions:    "c-questions",
		}
		welcome, err := onboarding.LoadWelcome(nil)
		Expect(err).NotTo(HaveOccurred())
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctrl = onboarding.NewController(fake, waiter, db, welcome, channels, logger)
	})

	Describe("a returning user", func() {
		BeforeEach(func() {
			fake.GuildRoles["g1"] = []platform.Role{
				{ID: "r-onboarded", Name: onboarding.RoleOnboarded},
				{ID: "r-member", Name: onboarding.RoleMember},
			}
			fake.MemberRoleID["g1/u1"] = []string{"r-onboarded", "r-member"}
		})

		It("finishes after three steps without interview answers", func() {
			start(startEvent)

			deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "channel_choice",
				MessageID: "resp-1", Values: []string{"Buidler"},
			})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "events", MessageID: "resp-1"})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "no_polls", MessageID: "resp-1"})

			Eventually(done).Should(Receive(BeNil()))

			Expect(fake.Responses).To(HaveLen(1))
			Expect(fake.Responses[0].Content).To(HavePrefix("**[1/3]:**"))
			Expect(db.counter("join_reason/hangout")).To(BeZero())
			Expect(db.userRoles("u1")).To(ConsistOf("role-Buidler", "role-Events"))
			// No introduction wait: no thread was opened.
			Expect(fake.Threads).To(BeEmpty())
		})
	})

	Describe("a first-time user", func() {
		It("runs the full interview and welcomes the introduction message", func() {
			start(startEvent)

			deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "channel_choice",
				MessageID: "resp-1", Values: []string{"Newcomer", "none"},
			})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "no_events", MessageID: "resp-1"})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "polls", MessageID: "resp-1"})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "develop", MessageID: "resp-1"})
			deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "found_from",
				MessageID: "followup-1", Values: []string{"friend", "youtube"},
			})

			// The session now waits in the introduction channel.
			deliver(platform.Event{
				Kind:      platform.Message,
				UserID:    "u1",
				UserName:  "alice",
				ChannelID: "c-intro",
				MessageID: "m-intro",
				Content:   "Hi everyone, I am alice and I love building things",
			})

			Eventually(done).Should(Receive(BeNil()))

			Expect(db.counter("join_reason/develop")).To(Equal(1))
			Expect(db.counter("found_from/friend")).To(Equal(1))
			Expect(db.counter("found_from/youtube")).To(Equal(1))
			Expect(db.userRoles("u1")).To(ConsistOf("role-Newcomer", "role-Polls"))

			Expect(fake.Threads).To(HaveLen(1))
			Expect(fake.Threads[0].Name).To(Equal("Welcome alice!"))
			Expect(fake.Threads[0].ChannelID).To(Equal("c-intro"))
			Expect(fake.Threads[0].MessageID).To(Equal("m-intro"))

			// A long introduction earns the extra reaction.
			Expect(fake.Reactions).To(ContainElement("c-intro/m-intro 🔥"))
			Expect(fake.Reactions).To(ContainElement("c-intro/m-intro 👋"))

			var threadContents []string
			for _, sent := range fake.Sent {
				if sent.ChannelID == fake.Threads[0].ID {
					threadContents = append(threadContents, sent.Msg.Content)
				}
			}
			Expect(threadContents).To(HaveLen(2))
			Expect(threadContents[0]).To(ContainSubstring("Welcome to the IOTA & Shimmer community <@u1>"))
			Expect(threadContents[1]).To(ContainSubstring("welcome to your community"))
			Expect(fake.Suppressed).NotTo(BeEmpty())
		})

		It("skips the extra reaction for a short introduction", func() {
			start(startEvent)

			deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "channel_choice",
				MessageID: "resp-1", Values: []string{"none"},
			})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "no_events", MessageID: "resp-1"})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "no_polls", MessageID: "resp-1"})
			deliver(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "hangout", MessageID: "resp-1"})
			deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "found_from",
				MessageID: "followup-1", Values: []string{"none"},
			})
			deliver(platform.Event{
				Kind:      platform.Message,
				UserID:    "u1",
				UserName:  "alice",
				ChannelID: "c-intro",
				MessageID: "m-short",
				Content:   "Hi!",
			})

			Eventually(done).Should(Receive(BeNil()))

			Expect(fake.Reactions).To(ConsistOf("c-intro/m-short 👋"))
			Expect(db.counter("join_reason/hangout")).To(Equal(1))
		})

		It("ignores events from other users while suspended", func() {
			start(startEvent)

			Eventually(waiter.Pending).Should(Equal(1))
			Expect(waiter.Deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u2", CustomID: "channel_choice",
				MessageID: "resp-1", Values: []string{"Buidler"},
			})).To(BeFalse())
			Expect(waiter.Pending()).To(Equal(1))
		})
	})

	Describe("concurrent sessions of one user", func() {
		BeforeEach(func() {
			fake.GuildRoles["g1"] = []platform.Role{
				{ID: "r-onboarded", Name: onboarding.RoleOnboarded},
				{ID: "r-member", Name: onboarding.RoleMember},
			}
			fake.MemberRoleID["g1/u1"] = []string{"r-onboarded", "r-member"}
		})

		It("routes each answer to the session that prompted it", func() {
			ctxA, cancelA := context.WithCancel(context.Background())
			DeferCleanup(cancelA)
			doneA := make(chan error, 1)
			go func() {
				doneA <- ctrl.HandleStart(ctxA, startEvent)
			}()
			Eventually(waiter.Pending).Should(Equal(1))

			second := startEvent
			second.MessageID = "m-second-prompt"
			ctxB, cancelB := context.WithCancel(context.Background())
			DeferCleanup(cancelB)
			doneB := make(chan error, 1)
			go func() {
				doneB <- ctrl.HandleStart(ctxB, second)
			}()
			Eventually(waiter.Pending).Should(Equal(2))

			// Answers carry the second prompt's message ID and must only
			// advance the session that rendered it.
			answer := func(ev platform.Event) {
				Eventually(waiter.Pending).Should(Equal(2))
				Expect(waiter.Deliver(ev)).To(BeTrue())
			}
			answer(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "channel_choice",
				MessageID: "resp-2", Values: []string{"Buidler"},
			})
			answer(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "events", MessageID: "resp-2"})
			answer(platform.Event{Kind: platform.ButtonClick, UserID: "u1", CustomID: "no_polls", MessageID: "resp-2"})

			Eventually(doneB).Should(Receive(BeNil()))
			Consistently(doneA).ShouldNot(Receive())
			Expect(waiter.Pending()).To(Equal(1))

			// Only the completed session committed.
			Expect(db.userRoles("u1")).To(ConsistOf("role-Buidler", "role-Events"))
		})
	})

	Describe("an abandoned session", func() {
		It("commits nothing when cancelled mid-flow", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done = make(chan error, 1)
			go func() {
				done <- ctrl.HandleStart(ctx, startEvent)
			}()

			deliver(platform.Event{
				Kind: platform.MenuSelect, UserID: "u1", CustomID: "channel_choice",
				MessageID: "resp-1", Values: []string{"Buidler"},
			})
			Eventually(waiter.Pending).Should(Equal(1))
			cancel()

			var err error
			Eventually(done, time.Second).Should(Receive(&err))
			Expect(err).To(MatchError(context.Canceled))

			Expect(db.userRoles("u1")).To(BeEmpty())
			Expect(db.counter("join_reason/hangout")).To(BeZero())
			Expect(fake.Granted).To(BeEmpty())
		})
	})
})
