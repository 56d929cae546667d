package store

import "github.com/intransparency/msgcenter/internal/wire"

// Delivery states for locally originated messages. Remote messages
// carry an empty delivery state.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Participant is one member of a conversation.
type Participant struct {
	ID     string
	Name   string
	Role   string // student, recruiter, university, admin
	Avatar string
}

// Message is one entry in a conversation thread.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	SenderRole     string
	Body           string
	Timestamp      int64
	Read           bool
	FromMe         bool
	Delivery       string
}

// Conversation is a normalized conversation summary.
type Conversation struct {
	ID           string
	Participants []Participant
	Kind         string // direct or group
	Subject      string
	LastMessage  *Message
	UnreadCount  int
	LastActivity int64
	// Stub marks a conversation created from a NEW_MESSAGE that
	// referenced an id the list sync had not reported yet. Participants
	// are backfilled by the next CONVERSATIONS_LIST.
	Stub bool
}

// Title returns the human-readable name for a conversation: the
// subject if set, otherwise the participant names excluding selfID.
func (c *Conversation) Title(selfID string) string {
	if c.Subject != "" {
		return c.Subject
	}
	name := ""
	for _, p := range c.Participants {
		if p.ID == selfID {
			continue
		}
		if name != "" {
			name += ", "
		}
		name += p.Name
	}
	if name == "" {
		return c.ID
	}
	return name
}

// UnreadNotice is the payload published when a conversation's unread
// count increases; the notification bridge consumes it.
type UnreadNotice struct {
	ConversationID string
	SenderName     string
	Preview        string
	Unread         int
}

func fromWireMessage(m wire.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderRole:     m.SenderType,
		Body:           m.Content,
		Timestamp:      m.Timestamp,
		Read:           m.Read,
	}
}

func fromWireParticipants(ps []wire.Participant) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, Participant{ID: p.ID, Name: p.Name, Role: p.Type, Avatar: p.Avatar})
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
