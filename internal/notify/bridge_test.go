package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intransparency/msgcenter/internal/bus"
	"github.com/intransparency/msgcenter/internal/store"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title+": "+body)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBridgeForwardsUnreadEvents(t *testing.T) {
	b := bus.New()
	notifier := &fakeNotifier{}
	br := NewBridge(b, notifier, nil)
	br.Start(context.Background())
	defer br.Stop()

	b.Publish(bus.Event{
		Kind: bus.KindUnreadIncrease,
		Payload: store.UnreadNotice{
			ConversationID: "c1",
			SenderName:     "Bob",
			Preview:        "job offer",
			Unread:         1,
		},
	})

	waitFor(t, func() bool { return notifier.count() == 1 }, "notifier never called")

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if notifier.calls[0] != "New message from Bob: job offer" {
		t.Errorf("call = %q", notifier.calls[0])
	}
}

func TestBridgeWithoutNotifierIsNoOp(t *testing.T) {
	b := bus.New()
	br := NewBridge(b, nil, nil)
	br.Start(context.Background())
	defer br.Stop()

	// Must not panic with no notifier installed.
	b.Publish(bus.Event{
		Kind:    bus.KindUnreadIncrease,
		Payload: store.UnreadNotice{ConversationID: "c1"},
	})
	time.Sleep(10 * time.Millisecond)
}

func TestBridgeIgnoresOtherEvents(t *testing.T) {
	b := bus.New()
	notifier := &fakeNotifier{}
	br := NewBridge(b, notifier, nil)
	br.Start(context.Background())
	defer br.Stop()

	b.Publish(bus.Event{Kind: bus.KindStoreUpdated})
	b.Publish(bus.Event{Kind: bus.KindUnreadIncrease, Payload: "wrong type"})
	time.Sleep(10 * time.Millisecond)

	if notifier.count() != 0 {
		t.Errorf("notifier called %d times, want 0", notifier.count())
	}
}

func TestBridgeSurvivesNotifierError(t *testing.T) {
	b := bus.New()
	notifier := &fakeNotifier{err: errors.New("dbus unavailable")}
	br := NewBridge(b, notifier, nil)
	br.Start(context.Background())
	defer br.Stop()

	b.Publish(bus.Event{Kind: bus.KindUnreadIncrease, Payload: store.UnreadNotice{SenderName: "A"}})
	b.Publish(bus.Event{Kind: bus.KindUnreadIncrease, Payload: store.UnreadNotice{SenderName: "B"}})

	waitFor(t, func() bool { return notifier.count() == 2 }, "bridge stopped after notifier error")
}
