// Package wire defines the JSON frames exchanged with the message server.
package wire

import (
	"encoding/json"
	"fmt"
)

// FrameType identifies the type of a frame.
type FrameType string

const (
	// Client -> Server
	TypeGetConversations FrameType = "GET_CONVERSATIONS"
	TypeGetMessages      FrameType = "GET_MESSAGES"
	TypeSendMessage      FrameType = "SEND_MESSAGE"
	TypeMarkRead         FrameType = "MARK_READ"

	// Server -> Client
	TypeConversationsList    FrameType = "CONVERSATIONS_LIST"
	TypeConversationMessages FrameType = "CONVERSATION_MESSAGES"
	TypeNewMessage           FrameType = "NEW_MESSAGE"
	TypeMessageRead          FrameType = "MESSAGE_READ"
)

// Frame wraps every message on the wire with a type field.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(frameType FrameType, data any) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", frameType, err)
	}
	return &Frame{Type: frameType, Data: raw}, nil
}

// Encode serializes the frame to JSON bytes.
func (f *Frame) Encode() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// Decode parses raw bytes into a frame. Frames without a type field are
// rejected; unknown payload fields are preserved in Data and ignored by
// the typed accessors.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("decode frame: missing type field")
	}
	return &f, nil
}
