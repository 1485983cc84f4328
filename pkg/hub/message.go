package hub

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/websocket/v2"
)

// MessageType is the websocket frame kind a message is written as.
type MessageType int

const (
	JSONMessage   MessageType = iota // Text frame holding JSON
	BinaryMessage                    // Binary frame, e.g. a JPEG preview
)

// Message is one outbound frame.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps already encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// EncodeJSON marshals v into a JSON message.
func EncodeJSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("hub: encode %T: %w", v, err)
	}
	return NewJSONMessage(data), nil
}

// frameType maps the message to its websocket opcode.
func (m Message) frameType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
