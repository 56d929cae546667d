package wire

import (
	"encoding/json"
	"fmt"
)

// Participant identifies one member of a conversation.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"` // student, recruiter, university, admin
	Avatar string `json:"avatar,omitempty"`
}

// Message is a chat message as the server represents it.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	SenderType     string `json:"senderType"`
	Timestamp      int64  `json:"timestamp"`
	Read           bool   `json:"read"`
}

// Conversation is a conversation summary as the server represents it.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	UnreadCount  int           `json:"unreadCount"`
	Type         string        `json:"type"` // direct or group
	Subject      string        `json:"subject,omitempty"`
}

// GetConversationsPayload requests the conversation list for a user.
type GetConversationsPayload struct {
	UserID string `json:"userId"`
}

// GetMessagesPayload requests the message history of one conversation.
type GetMessagesPayload struct {
	ConversationID string `json:"conversationId"`
}

// SendMessagePayload carries a composed message to the server.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	SenderType     string `json:"senderType"`
}

// MarkReadPayload asks the server to mark a conversation read.
type MarkReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// MessageReadPayload reports which messages were marked read.
type MessageReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// Conversations decodes a CONVERSATIONS_LIST payload.
func (f *Frame) Conversations() ([]Conversation, error) {
	if f.Type != TypeConversationsList {
		return nil, fmt.Errorf("frame type %s is not %s", f.Type, TypeConversationsList)
	}
	var convs []Conversation
	if err := json.Unmarshal(f.Data, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

// Messages decodes a CONVERSATION_MESSAGES payload.
func (f *Frame) Messages() ([]Message, error) {
	if f.Type != TypeConversationMessages {
		return nil, fmt.Errorf("frame type %s is not %s", f.Type, TypeConversationMessages)
	}
	var msgs []Message
	if err := json.Unmarshal(f.Data, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// NewMessage decodes a NEW_MESSAGE payload.
func (f *Frame) NewMessage() (*Message, error) {
	if f.Type != TypeNewMessage {
		return nil, fmt.Errorf("frame type %s is not %s", f.Type, TypeNewMessage)
	}
	var msg Message
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		return nil, fmt.Errorf("decode new message: %w", err)
	}
	if msg.ID == "" || msg.ConversationID == "" {
		return nil, fmt.Errorf("decode new message: missing id or conversationId")
	}
	return &msg, nil
}

// MessageRead decodes a MESSAGE_READ payload.
func (f *Frame) MessageRead() (*MessageReadPayload, error) {
	if f.Type != TypeMessageRead {
		return nil, fmt.Errorf("frame type %s is not %s", f.Type, TypeMessageRead)
	}
	var p MessageReadPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		return nil, fmt.Errorf("decode message read: %w", err)
	}
	return &p, nil
}
