package store

import "github.com/google/uuid"

// localIDPrefix marks optimistic rows whose id was assigned by this
// client rather than the server.
const localIDPrefix = "local-"

func newLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// appendPending adds an optimistic outbox entry to the thread. The
// entry stays visible as pending until the server echoes it back or
// the send is reported failed.
func appendPending(s *State, convID, body string, senderName, senderRole string, ts int64) Message {
	ensureConversation(s, convID)
	m := Message{
		ID:             newLocalID(),
		ConversationID: convID,
		SenderID:       s.SelfID,
		SenderName:     senderName,
		SenderRole:     senderRole,
		Body:           body,
		Timestamp:      ts,
		FromMe:         true,
		Delivery:       DeliveryPending,
	}
	upsertMessage(s, m)
	return m
}

// matchPending finds the oldest pending entry in a conversation with
// the given body. Echo matching is by sender, conversation and content
// because the server assigns the permanent id only on its side.
func matchPending(s *State, convID, body string) string {
	for _, m := range s.Messages[convID] {
		if m.FromMe && m.Delivery == DeliveryPending && m.Body == body {
			return m.ID
		}
	}
	return ""
}

// markDelivery sets the delivery state of a local entry. Returns false
// if the message is unknown.
func markDelivery(s *State, convID, msgID, delivery string) bool {
	list := s.Messages[convID]
	for i := range list {
		if list[i].ID == msgID {
			list[i].Delivery = delivery
			return true
		}
	}
	return false
}

// failedEntry returns a failed outbox entry by id, if present.
func failedEntry(s *State, convID, msgID string) (Message, bool) {
	for _, m := range s.Messages[convID] {
		if m.ID == msgID && m.FromMe && m.Delivery == DeliveryFailed {
			return m, true
		}
	}
	return Message{}, false
}
