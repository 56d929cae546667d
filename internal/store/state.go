package store

import (
	"sort"

	"github.com/intransparency/msgcenter/internal/wire"
)

// State is the normalized snapshot of every conversation. All apply
// functions below are deterministic and idempotent: they touch nothing
// but the snapshot, so ordering and merge behavior are unit-testable
// without a live transport.
type State struct {
	Conversations map[string]*Conversation
	Messages      map[string][]Message // per conversation, sorted by (timestamp, id)
	ActiveID      string
	SelfID        string
}

// NewState creates an empty snapshot for the given local user.
func NewState(selfID string) *State {
	return &State{
		Conversations: make(map[string]*Conversation),
		Messages:      make(map[string][]Message),
		SelfID:        selfID,
	}
}

// ensureConversation returns the conversation, creating a stub when a
// message references an id the list sync has not reported yet. Dropping
// such messages would lose data during the list/message race.
func ensureConversation(s *State, id string) *Conversation {
	if c, ok := s.Conversations[id]; ok {
		return c
	}
	c := &Conversation{ID: id, Kind: "direct", Stub: true}
	s.Conversations[id] = c
	return c
}

// upsertMessage inserts a message at its (timestamp, id) position or
// merges it into an existing row with the same id. Returns true only
// when a new row was inserted, so re-applying the same message is a
// no-op for every counter derived from it.
func upsertMessage(s *State, m Message) bool {
	list := s.Messages[m.ConversationID]
	for i := range list {
		if list[i].ID == m.ID {
			if m.Read {
				list[i].Read = true
			}
			if m.Delivery != "" {
				list[i].Delivery = m.Delivery
			}
			if m.Body != "" {
				list[i].Body = m.Body
			}
			touchLastMessage(s, m.ConversationID)
			return false
		}
	}

	idx := sort.Search(len(list), func(i int) bool {
		if list[i].Timestamp != m.Timestamp {
			return list[i].Timestamp > m.Timestamp
		}
		return list[i].ID > m.ID
	})
	list = append(list, Message{})
	copy(list[idx+1:], list[idx:])
	list[idx] = m
	s.Messages[m.ConversationID] = list

	touchLastMessage(s, m.ConversationID)
	return true
}

// removeMessage deletes a message row by id. Used when a server echo
// replaces a local pending entry.
func removeMessage(s *State, convID, msgID string) {
	list := s.Messages[convID]
	for i := range list {
		if list[i].ID == msgID {
			s.Messages[convID] = append(list[:i], list[i+1:]...)
			touchLastMessage(s, convID)
			return
		}
	}
}

func touchLastMessage(s *State, convID string) {
	conv, ok := s.Conversations[convID]
	if !ok {
		return
	}
	list := s.Messages[convID]
	if len(list) == 0 {
		return
	}
	last := list[len(list)-1]
	conv.LastMessage = &last
	conv.LastActivity = last.Timestamp
}

// applyNewMessage ingests one NEW_MESSAGE. Returns whether the unread
// count of a non-active conversation increased.
func applyNewMessage(s *State, m Message) bool {
	conv := ensureConversation(s, m.ConversationID)
	m.FromMe = m.SenderID == s.SelfID

	if m.FromMe {
		// Server echo of a message we sent: reconcile the optimistic
		// pending entry instead of adding a duplicate row.
		if localID := matchPending(s, m.ConversationID, m.Body); localID != "" {
			removeMessage(s, m.ConversationID, localID)
		}
		m.Delivery = DeliverySent
	}

	inserted := upsertMessage(s, m)
	if inserted && !m.FromMe && s.ActiveID != m.ConversationID {
		conv.UnreadCount++
		return true
	}
	return false
}

// applyConversationsList merges an authoritative conversation list.
// Conversations absent from the list are kept; archival is the
// server's concern and nothing is deleted locally.
func applyConversationsList(s *State, convs []wire.Conversation) {
	for _, wc := range convs {
		conv := ensureConversation(s, wc.ID)
		conv.Participants = fromWireParticipants(wc.Participants)
		if wc.Type != "" {
			conv.Kind = wc.Type
		}
		conv.Subject = wc.Subject
		conv.Stub = false
		if s.ActiveID == wc.ID {
			conv.UnreadCount = 0
		} else {
			conv.UnreadCount = max(wc.UnreadCount, 0)
		}
		if wc.LastMessage != nil {
			lm := fromWireMessage(*wc.LastMessage)
			lm.FromMe = lm.SenderID == s.SelfID
			if lm.Timestamp >= conv.LastActivity {
				conv.LastMessage = &lm
				conv.LastActivity = lm.Timestamp
			}
		}
	}
}

// applyConversationMessages merges a history fetch by message id.
// Local pending and failed rows survive the merge; a row for a message
// we sent reconciles its pending entry exactly like a live echo.
func applyConversationMessages(s *State, msgs []wire.Message) {
	for _, wm := range msgs {
		m := fromWireMessage(wm)
		if m.ID == "" || m.ConversationID == "" {
			continue
		}
		ensureConversation(s, m.ConversationID)
		m.FromMe = m.SenderID == s.SelfID
		if m.FromMe {
			if localID := matchPending(s, m.ConversationID, m.Body); localID != "" {
				removeMessage(s, m.ConversationID, localID)
			}
			m.Delivery = DeliverySent
		}
		upsertMessage(s, m)
	}
}

// applyMessageRead marks the listed messages read and settles the
// unread counter, clamped at zero.
func applyMessageRead(s *State, convID string, msgIDs []string) {
	conv, ok := s.Conversations[convID]
	if !ok {
		return
	}
	ids := make(map[string]bool, len(msgIDs))
	for _, id := range msgIDs {
		ids[id] = true
	}
	settled := 0
	list := s.Messages[convID]
	for i := range list {
		if ids[list[i].ID] && !list[i].Read {
			list[i].Read = true
			if !list[i].FromMe {
				settled++
			}
		}
	}
	conv.UnreadCount = max(conv.UnreadCount-settled, 0)
}

// applySelect makes a conversation active and resets its unread count.
func applySelect(s *State, convID string) {
	s.ActiveID = convID
	if conv, ok := s.Conversations[convID]; ok {
		conv.UnreadCount = 0
	}
}
