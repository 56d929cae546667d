// Package notify bridges unread events to an external notification
// surface. The store knows nothing about whether anyone listens; with
// no notifier installed the bridge is a graceful no-op.
package notify

import (
	"context"
	"fmt"

	"github.com/intransparency/msgcenter/internal/bus"
	"github.com/intransparency/msgcenter/internal/store"
	"go.uber.org/zap"
)

// Notifier delivers one user-visible notification.
type Notifier interface {
	Notify(title, body string) error
}

// Bridge subscribes to unread events on the bus and forwards them to
// the notifier.
type Bridge struct {
	bus      *bus.Bus
	notifier Notifier
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewBridge creates a bridge. notifier may be nil.
func NewBridge(b *bus.Bus, notifier Notifier, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{bus: b, notifier: notifier, logger: logger}
}

// Start subscribes to conversation events on the bus.
func (br *Bridge) Start(ctx context.Context) {
	ctx, br.cancel = context.WithCancel(ctx)
	sub := br.bus.Subscribe("conversation.", 64)

	go func() {
		defer sub.Cancel()
		for {
			select {
			case evt := <-sub.C:
				br.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the bridge.
func (br *Bridge) Stop() {
	if br.cancel != nil {
		br.cancel()
	}
}

func (br *Bridge) handleEvent(evt bus.Event) {
	if evt.Kind != bus.KindUnreadIncrease {
		return
	}
	notice, ok := evt.Payload.(store.UnreadNotice)
	if !ok {
		return
	}
	if br.notifier == nil {
		return
	}
	title := fmt.Sprintf("New message from %s", notice.SenderName)
	if err := br.notifier.Notify(title, notice.Preview); err != nil {
		br.logger.Warn("notification failed", zap.Error(err),
			zap.String("conversation", notice.ConversationID))
	}
}
