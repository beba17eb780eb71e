package platform

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrAbandoned is returned by Waiter.Wait when no matching event arrives
// before the deadline. Sessions receiving it are discarded without partial
// commits.
var ErrAbandoned = errors.New("session abandoned: no matching event before deadline")

// Scope describes the single next event a suspended session will accept.
// Empty fields match anything.
type Scope struct {
	UserID    string
	ChannelID string
	// MessageID restricts matches to components attached to one message.
	MessageID string
	Kinds     []Kind
	CustomIDs []string
}

func (s Scope) matches(ev Event) bool {
	if s.UserID != "" && s.UserID != ev.UserID {
		return false
	}
	if s.ChannelID != "" && s.ChannelID != ev.ChannelID {
		return false
	}
	if s.MessageID != "" && s.MessageID != ev.MessageID {
		return false
	}
	if len(s.Kinds) > 0 && !slices.Contains(s.Kinds, ev.Kind) {
		return false
	}
	if len(s.CustomIDs) > 0 && !slices.Contains(s.CustomIDs, ev.CustomID) {
		return false
	}
	return true
}

type subscription struct {
	scope Scope
	ch    chan Event
}

// Waiter is the suspension point of the workflow engine: a session parks on
// Wait until the dispatcher delivers the next event matching its scope, or
// the deadline expires. Subscriptions are one-shot; events that do not match
// any subscription are left for the dispatcher's routing table.
type Waiter struct {
	mu   sync.Mutex
	subs []*subscription
}

func NewWaiter() *Waiter {
	return &Waiter{}
}

// Deliver offers an event to suspended sessions. It reports whether a
// session claimed the event. At most one subscription consumes it.
func (w *Waiter) Deliver(ev Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subs {
		if sub.scope.matches(ev) {
			w.subs = slices.Delete(w.subs, i, i+1)
			sub.ch <- ev
			return true
		}
	}
	return false
}

// Wait blocks until an event matching scope is delivered, the timeout
// elapses, or ctx is cancelled. Expiry yields ErrAbandoned.
func (w *Waiter) Wait(ctx context.Context, scope Scope, timeout time.Duration) (Event, error) {
	sub := &subscription{scope: scope, ch: make(chan Event, 1)}
	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-sub.ch:
		return ev, nil
	case <-timer.C:
		w.remove(sub)
		// Deliver may have claimed the subscription in the same instant the
		// timer fired; a buffered event wins over expiry.
		select {
		case ev := <-sub.ch:
			return ev, nil
		default:
		}
		return Event{}, ErrAbandoned
	case <-ctx.Done():
		w.remove(sub)
		return Event{}, ctx.Err()
	}
}

func (w *Waiter) remove(sub *subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := slices.Index(w.subs, sub); i >= 0 {
		w.subs = slices.Delete(w.subs, i, i+1)
	}
}

// Pending returns the number of parked subscriptions.
func (w *Waiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
