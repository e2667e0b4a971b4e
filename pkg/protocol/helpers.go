package protocol

import (
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/haptics"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewVisionMessage creates a vision sample message
func NewVisionMessage(valence, arousal, attention, confidence float64) (*Message, error) {
	return NewMessage(TypeVision, VisionData{
		Valence:    valence,
		Arousal:    arousal,
		Attention:  attention,
		Confidence: confidence,
	})
}

// NewTagMessage creates an emotion tag message
func NewTagMessage(tag string) (*Message, error) {
	return NewMessage(TypeTag, TagData{Tag: tag})
}

// NewSpeakingMessage creates a speaking state message
func NewSpeakingMessage(speaking bool, level float64) (*Message, error) {
	return NewMessage(TypeSpeaking, SpeakingData{Speaking: speaking, Level: level})
}

// NewParamsMessage creates an animation parameter message
func NewParamsMessage(seq uint64, p affect.Params, tag affect.Tag, speaking, blinking bool) (*Message, error) {
	return NewMessage(TypeParams, ParamsData{
		Seq:      seq,
		Params:   p,
		Tag:      tag,
		Speaking: speaking,
		Blinking: blinking,
	})
}

// NewHapticMessage wraps a haptic event
func NewHapticMessage(ev haptics.Event) (*Message, error) {
	return NewMessage(TypeHaptic, ev)
}

// NewErrorMessage reports a rejected inbound message
func NewErrorMessage(t MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Type: t, Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response to a ping
func NewPongMessage(ping PingData) (*Message, error) {
	now := time.Now().UnixMilli()
	return NewMessage(TypePong, PongData{
		ID:        ping.ID,
		PingTS:    ping.Timestamp,
		PongTS:    now,
		LatencyMs: now - ping.Timestamp,
	})
}

// =============================================================================
// Helper functions for extracting data
// =============================================================================

// GetVisionData extracts VisionData from a message
func (m *Message) GetVisionData() (*VisionData, error) {
	var data VisionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetVoiceData extracts VoiceData from a message
func (m *Message) GetVoiceData() (*VoiceData, error) {
	var data VoiceData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTagData extracts TagData from a message
func (m *Message) GetTagData() (*TagData, error) {
	var data TagData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGestureData extracts GestureData from a message
func (m *Message) GetGestureData() (*GestureData, error) {
	var data GestureData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakingData extracts SpeakingData from a message
func (m *Message) GetSpeakingData() (*SpeakingData, error) {
	var data SpeakingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMovementData extracts MovementData from a message
func (m *Message) GetMovementData() (*MovementData, error) {
	var data MovementData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetParamsData extracts ParamsData from a message
func (m *Message) GetParamsData() (*ParamsData, error) {
	var data ParamsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts PingData from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts PongData from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
