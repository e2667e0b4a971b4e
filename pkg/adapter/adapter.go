// Package adapter converts producer-specific samples and wire messages into
// engine signals.
package adapter

import (
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// ErrUnsupported is returned by Dispatch for message types that carry no signal.
var ErrUnsupported = errors.New("unsupported message type")

// Sink is the engine's inbound surface.
type Sink interface {
	IngestVisionPulse(p affect.Pulse) error
	IngestVoicePulse(p affect.Pulse) error
	IngestEmotionTag(name string) error
	IngestGesture(g affect.Gesture) error
	NotifySpeakingState(speaking bool, level float64) error
	NotifyUserInteraction() error
	SetOverride(tag affect.Tag) error
	ApplyMovement(m affect.Movement) error
}

// VisionSample is a face-analysis result. Arousal is bipolar.
type VisionSample struct {
	Valence    float64 // [-1, 1]
	Arousal    float64 // [-1, 1]
	Attention  float64 // [0, 1]
	Confidence float64 // [0, 1]; 0 means the producer does not report one
}

// Pulse converts the sample, pulling it toward neutral in proportion to
// how unsure the producer is.
func (s VisionSample) Pulse() (affect.Pulse, error) {
	if err := finite(s.Valence, s.Arousal, s.Attention, s.Confidence); err != nil {
		return affect.Pulse{}, fmt.Errorf("vision sample: %w", err)
	}
	p := affect.NewPulse(s.Valence, (affect.Clamp(s.Arousal, -1, 1)+1)/2, s.Attention)
	return weigh(p, s.Confidence), nil
}

// VoiceSample is a voice or chat classifier result. Arousal is unipolar.
type VoiceSample struct {
	Valence    float64 // [-1, 1]
	Arousal    float64 // [0, 1]
	Focus      float64 // [0, 1]
	Confidence float64 // [0, 1]; 0 means the producer does not report one
}

// Pulse converts the sample, confidence-weighted like VisionSample.
func (s VoiceSample) Pulse() (affect.Pulse, error) {
	if err := finite(s.Valence, s.Arousal, s.Focus, s.Confidence); err != nil {
		return affect.Pulse{}, fmt.Errorf("voice sample: %w", err)
	}
	return weigh(affect.NewPulse(s.Valence, s.Arousal, s.Focus), s.Confidence), nil
}

func weigh(p affect.Pulse, confidence float64) affect.Pulse {
	if confidence <= 0 {
		return p
	}
	return affect.NeutralPulse().Lerp(p, affect.Clamp(confidence, 0, 1))
}

func finite(vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", affect.ErrInvalidSignal)
		}
	}
	return nil
}

// Dispatch decodes msg and forwards it to s. Ping and outbound types return
// ErrUnsupported; callers answer pings themselves.
func Dispatch(s Sink, msg *protocol.Message) error {
	switch msg.Type {
	case protocol.TypeVision:
		d, err := msg.GetVisionData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		p, err := VisionSample(*d).Pulse()
		if err != nil {
			return err
		}
		return s.IngestVisionPulse(p)

	case protocol.TypeVoice:
		d, err := msg.GetVoiceData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		p, err := VoiceSample(*d).Pulse()
		if err != nil {
			return err
		}
		return s.IngestVoicePulse(p)

	case protocol.TypeTag:
		d, err := msg.GetTagData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		return s.IngestEmotionTag(d.Tag)

	case protocol.TypeOverride:
		d, err := msg.GetTagData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		tag, err := affect.ParseTag(d.Tag)
		if err != nil {
			return err
		}
		return s.SetOverride(tag)

	case protocol.TypeGesture:
		d, err := msg.GetGestureData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		g, err := affect.ParseGesture(d.Gesture)
		if err != nil {
			return err
		}
		return s.IngestGesture(g)

	case protocol.TypeSpeaking:
		d, err := msg.GetSpeakingData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		return s.NotifySpeakingState(d.Speaking, d.Level)

	case protocol.TypeInteraction:
		return s.NotifyUserInteraction()

	case protocol.TypeMovement:
		d, err := msg.GetMovementData()
		if err != nil {
			return invalid(msg.Type, err)
		}
		m, err := affect.ParseMovement(d.Movement)
		if err != nil {
			return err
		}
		return s.ApplyMovement(m)

	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, msg.Type)
	}
}

func invalid(t protocol.MessageType, err error) error {
	return fmt.Errorf("%w: %s payload: %v", affect.ErrInvalidSignal, t, err)
}
