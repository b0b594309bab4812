package core

import (
	"encoding/json"
	"fmt"
)

// MessageType classifies a Message on the wire.
type MessageType string

const (
	// MessageTypeRequest asks the destination agent to process the content.
	MessageTypeRequest MessageType = "REQUEST"
	// MessageTypeResponse carries the result of a previously sent request.
	MessageTypeResponse MessageType = "RESPONSE"
	// MessageTypeAck tells the sender the destination finished its part
	// without forwarding content any further (phased and chat collaboration).
	MessageTypeAck MessageType = "ACK"
	// MessageTypeEvent carries an out-of-band notification.
	MessageTypeEvent MessageType = "EVENT"
)

// Valid reports whether t is one of the defined message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeRequest, MessageTypeResponse, MessageTypeAck, MessageTypeEvent:
		return true
	}
	return false
}

// Message is the envelope agents exchange. It is immutable once sent; Sender
// is stamped by the sending runtime just before dispatch.
type Message struct {
	Sender      string      `json:"sender"`
	ContextName string      `json:"context_name"`
	ChatID      string      `json:"chat_id,omitempty"`
	Type        MessageType `json:"type"`
	Content     string      `json:"content"`
}

// EncodeMessage serializes a message for the wire. All fields, including the
// type enum, round-trip losslessly through DecodeMessage.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage deserializes a wire payload produced by EncodeMessage.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type != "" && !msg.Type.Valid() {
		return Message{}, fmt.Errorf("decode message: unknown type %q", msg.Type)
	}
	return msg, nil
}

// Chat history roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model-requested invocation of a named tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object of named parameters
}

// ChatMessage is one role-tagged record of a conversation history.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}
