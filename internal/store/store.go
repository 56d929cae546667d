// Package store is the single source of truth for conversation,
// message and unread state. Inbound frames and user intents both land
// here; the UI only ever renders snapshots taken from this store.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/intransparency/msgcenter/internal/bus"
	"github.com/intransparency/msgcenter/internal/session"
	"github.com/intransparency/msgcenter/internal/wire"
	"go.uber.org/zap"
)

// Sender is the outbound half of the transport channel. Send reports
// whether the frame was written; the store never queues frames while
// disconnected, it fails the dependent entry instead.
type Sender interface {
	Send(*wire.Frame) bool
}

// Store owns the mutable snapshot and serializes every mutation.
type Store struct {
	mu     sync.RWMutex
	state  *State
	sender Sender
	bus    *bus.Bus
	logger *zap.Logger
	self   session.Identity
	now    func() int64
}

// New creates a store for the given identity.
func New(self session.Identity, sender Sender, b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:  NewState(self.UserID),
		sender: sender,
		bus:    b,
		logger: logger,
		self:   self,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// HandleFrame applies one inbound frame. Malformed payloads are
// dropped with a diagnostic and never corrupt the snapshot.
func (st *Store) HandleFrame(f *wire.Frame) {
	switch f.Type {
	case wire.TypeConversationsList:
		convs, err := f.Conversations()
		if err != nil {
			st.logger.Warn("bad conversations list", zap.Error(err))
			return
		}
		st.mu.Lock()
		applyConversationsList(st.state, convs)
		st.mu.Unlock()
		st.publishUpdated()

	case wire.TypeConversationMessages:
		msgs, err := f.Messages()
		if err != nil {
			st.logger.Warn("bad conversation messages", zap.Error(err))
			return
		}
		st.mu.Lock()
		applyConversationMessages(st.state, msgs)
		st.mu.Unlock()
		st.publishUpdated()

	case wire.TypeNewMessage:
		wm, err := f.NewMessage()
		if err != nil {
			st.logger.Warn("bad new message", zap.Error(err))
			return
		}
		m := fromWireMessage(*wm)
		st.mu.Lock()
		increased := applyNewMessage(st.state, m)
		var notice UnreadNotice
		if increased {
			notice = UnreadNotice{
				ConversationID: m.ConversationID,
				SenderName:     m.SenderName,
				Preview:        truncate(m.Body, 100),
				Unread:         st.state.Conversations[m.ConversationID].UnreadCount,
			}
		}
		st.mu.Unlock()
		if increased {
			st.bus.Publish(bus.Event{Kind: bus.KindUnreadIncrease, Payload: notice})
		}
		st.publishUpdated()

	case wire.TypeMessageRead:
		p, err := f.MessageRead()
		if err != nil {
			st.logger.Warn("bad message read", zap.Error(err))
			return
		}
		st.mu.Lock()
		applyMessageRead(st.state, p.ConversationID, p.MessageIDs)
		st.mu.Unlock()
		st.publishUpdated()

	default:
		st.logger.Warn("ignoring unexpected frame", zap.String("type", string(f.Type)))
	}
}

// HandleOpen runs when the channel becomes open. The first open pulls
// the initial conversation list; a resumed open additionally re-fetches
// the active thread so events missed during the gap are merged back in.
func (st *Store) HandleOpen(resumed bool) {
	if resumed {
		st.ReconcileOnResync()
		return
	}
	st.requestConversations()
}

// ReconcileOnResync re-requests authoritative state after a connection
// gap. The responses merge idempotently by message id, which closes any
// holes without duplicating what arrived live.
func (st *Store) ReconcileOnResync() {
	st.requestConversations()

	st.mu.RLock()
	active := st.state.ActiveID
	st.mu.RUnlock()
	if active != "" {
		st.requestMessages(active)
	}
}

// SelectConversation makes a conversation active, optimistically zeroes
// its unread count, asks the server to mark it read and fetches its
// history.
func (st *Store) SelectConversation(convID string) {
	st.mu.Lock()
	applySelect(st.state, convID)
	st.mu.Unlock()

	st.sendFrame(wire.TypeMarkRead, wire.MarkReadPayload{ConversationID: convID})
	st.requestMessages(convID)
	st.publishUpdated()
}

// ComposeAndSend creates an optimistic pending entry and forwards the
// message. An empty body after trimming is rejected with no side
// effects. If the channel cannot write the frame the entry is marked
// failed immediately; retry is a user action, never a timer.
func (st *Store) ComposeAndSend(convID, body string) bool {
	body = strings.TrimSpace(body)
	if convID == "" || body == "" {
		return false
	}

	st.mu.Lock()
	entry := appendPending(st.state, convID, body, st.self.Name, st.self.Role, st.now())
	st.mu.Unlock()

	st.deliver(entry)
	st.publishUpdated()
	return true
}

// RetryMessage re-sends a failed outbox entry. The entry moves back to
// pending with a fresh timestamp so it sorts at its new send position.
func (st *Store) RetryMessage(convID, msgID string) bool {
	st.mu.Lock()
	entry, ok := failedEntry(st.state, convID, msgID)
	if !ok {
		st.mu.Unlock()
		return false
	}
	removeMessage(st.state, convID, msgID)
	entry = appendPending(st.state, convID, entry.Body, entry.SenderName, entry.SenderRole, st.now())
	st.mu.Unlock()

	st.deliver(entry)
	st.publishUpdated()
	return true
}

func (st *Store) deliver(entry Message) {
	frame, err := wire.NewFrame(wire.TypeSendMessage, wire.SendMessagePayload{
		ConversationID: entry.ConversationID,
		Content:        entry.Body,
		SenderID:       st.self.UserID,
		SenderName:     st.self.Name,
		SenderType:     st.self.Role,
	})
	if err != nil {
		st.logger.Error("encode send message", zap.Error(err))
		st.failEntry(entry)
		return
	}
	if !st.sender.Send(frame) {
		st.logger.Warn("send rejected, channel not open",
			zap.String("conversation", entry.ConversationID))
		st.failEntry(entry)
	}
}

func (st *Store) failEntry(entry Message) {
	st.mu.Lock()
	markDelivery(st.state, entry.ConversationID, entry.ID, DeliveryFailed)
	st.mu.Unlock()
	st.bus.Publish(bus.Event{Kind: bus.KindSendFailed, Payload: entry.ID})
}

func (st *Store) requestConversations() {
	st.sendFrame(wire.TypeGetConversations, wire.GetConversationsPayload{UserID: st.self.UserID})
}

func (st *Store) requestMessages(convID string) {
	st.sendFrame(wire.TypeGetMessages, wire.GetMessagesPayload{ConversationID: convID})
}

func (st *Store) sendFrame(frameType wire.FrameType, payload any) {
	frame, err := wire.NewFrame(frameType, payload)
	if err != nil {
		st.logger.Error("encode frame", zap.Error(err), zap.String("type", string(frameType)))
		return
	}
	if !st.sender.Send(frame) {
		st.logger.Warn("frame not sent, channel not open", zap.String("type", string(frameType)))
	}
}

func (st *Store) publishUpdated() {
	st.bus.Publish(bus.Event{Kind: bus.KindStoreUpdated})
}

// Conversations returns a snapshot of all conversations sorted by most
// recent activity first.
func (st *Store) Conversations() []Conversation {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Conversation, 0, len(st.state.Conversations))
	for _, c := range st.state.Conversations {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity != out[j].LastActivity {
			return out[i].LastActivity > out[j].LastActivity
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Conversation returns a snapshot of one conversation.
func (st *Store) Conversation(convID string) (Conversation, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	c, ok := st.state.Conversations[convID]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}

// Messages returns a snapshot of a conversation's thread in timestamp
// order.
func (st *Store) Messages(convID string) []Message {
	st.mu.RLock()
	defer st.mu.RUnlock()
	list := st.state.Messages[convID]
	out := make([]Message, len(list))
	copy(out, list)
	return out
}

// ActiveID returns the currently selected conversation id.
func (st *Store) ActiveID() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.ActiveID
}

// TotalUnread sums the unread counters across all conversations.
func (st *Store) TotalUnread() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	total := 0
	for _, c := range st.state.Conversations {
		total += c.UnreadCount
	}
	return total
}

// SelfID returns the local user id.
func (st *Store) SelfID() string {
	return st.self.UserID
}
