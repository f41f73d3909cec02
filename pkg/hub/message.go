// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "github.com/teslashibe/go-breathe/pkg/protocol"

// Message is one pre-encoded text frame queued for clients
type Message struct {
	Type protocol.MessageType
	Data []byte
}

// Encode serializes a protocol message for broadcast
func Encode(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msg.Type, Data: data}, nil
}
