// Package protocol defines the WebSocket message types exchanged between the
// companion engine and its clients (sensor producers, renderers, dashboards).
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Engine messages
	TypeVision      MessageType = "vision"      // Face-derived affect sample
	TypeVoice       MessageType = "voice"       // Voice/chat-derived affect sample
	TypeTag         MessageType = "tag"         // Named emotion tag
	TypeGesture     MessageType = "gesture"     // Head gesture
	TypeSpeaking    MessageType = "speaking"    // Speech output state and level
	TypeInteraction MessageType = "interaction" // Explicit user input
	TypeMovement    MessageType = "movement"    // Body-language modifier
	TypeOverride    MessageType = "override"    // Timed emotion override

	// Engine → Client messages
	TypeParams MessageType = "params" // Animation parameters for one tick
	TypeHaptic MessageType = "haptic" // Haptic cue
	TypeStatus MessageType = "status" // Live status
	TypeError  MessageType = "error"  // Rejected inbound message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Engine Message Types
// =============================================================================

// VisionData is one face-analysis sample. Arousal is bipolar as produced by
// the classifier and is normalised by the adapter.
type VisionData struct {
	Valence    float64 `json:"valence"`    // [-1, 1]
	Arousal    float64 `json:"arousal"`    // [-1, 1]
	Attention  float64 `json:"attention"`  // [0, 1], becomes focus
	Confidence float64 `json:"confidence"` // [0, 1], 0 means unknown
}

// VoiceData is one voice or chat emotion sample.
type VoiceData struct {
	Valence    float64 `json:"valence"`    // [-1, 1]
	Arousal    float64 `json:"arousal"`    // [0, 1]
	Focus      float64 `json:"focus"`      // [0, 1]
	Confidence float64 `json:"confidence"` // [0, 1], 0 means unknown
}

// TagData carries an emotion tag name such as "HAPPY".
type TagData struct {
	Tag string `json:"tag"`
}

// GestureData carries a gesture name: nod, shake, winkLeft, winkRight.
type GestureData struct {
	Gesture string `json:"gesture"`
}

// SpeakingData reports speech output state.
type SpeakingData struct {
	Speaking bool    `json:"speaking"`
	Level    float64 `json:"level"` // [0, 1]
}

// MovementData carries a movement name: idle, bounce, shake, energetic, calm.
type MovementData struct {
	Movement string `json:"movement"`
}

// =============================================================================
// Engine → Client Message Types
// =============================================================================

// ParamsData is one tick of animation output.
type ParamsData struct {
	Seq      uint64        `json:"seq"`
	Params   affect.Params `json:"params"`
	Tag      affect.Tag    `json:"tag"`
	Speaking bool          `json:"speaking"`
	Blinking bool          `json:"blinking"`
}

// ErrorData explains why an inbound message was rejected.
type ErrorData struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
