package adapter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

type recorder struct {
	vision   []affect.Pulse
	voice    []affect.Pulse
	tags     []string
	gestures []affect.Gesture
	speaking []float64
	touches  int
	override []affect.Tag
	moves    []affect.Movement
}

func (r *recorder) IngestVisionPulse(p affect.Pulse) error {
	r.vision = append(r.vision, p)
	return nil
}

func (r *recorder) IngestVoicePulse(p affect.Pulse) error {
	r.voice = append(r.voice, p)
	return nil
}

func (r *recorder) IngestEmotionTag(name string) error {
	r.tags = append(r.tags, name)
	return nil
}

func (r *recorder) IngestGesture(g affect.Gesture) error {
	r.gestures = append(r.gestures, g)
	return nil
}

func (r *recorder) NotifySpeakingState(speaking bool, level float64) error {
	if !speaking {
		level = -1
	}
	r.speaking = append(r.speaking, level)
	return nil
}

func (r *recorder) NotifyUserInteraction() error {
	r.touches++
	return nil
}

func (r *recorder) SetOverride(tag affect.Tag) error {
	r.override = append(r.override, tag)
	return nil
}

func (r *recorder) ApplyMovement(m affect.Movement) error {
	r.moves = append(r.moves, m)
	return nil
}

func TestVisionSampleNormalisesArousal(t *testing.T) {
	tests := []struct {
		name    string
		sample  VisionSample
		arousal float64
		focus   float64
	}{
		{"calm", VisionSample{Arousal: -1, Attention: 0.2}, 0, 0.2},
		{"mid", VisionSample{Arousal: 0, Attention: 0.5}, 0.5, 0.5},
		{"excited", VisionSample{Arousal: 1, Attention: 1}, 1, 1},
		{"out of range", VisionSample{Arousal: 3, Attention: 2}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.sample.Pulse()
			require.NoError(t, err)
			assert.InDelta(t, tt.arousal, p.Arousal, 1e-9)
			assert.InDelta(t, tt.focus, p.Focus, 1e-9)
		})
	}
}

func TestConfidenceWeighting(t *testing.T) {
	full, err := VoiceSample{Valence: 1, Arousal: 1, Focus: 1}.Pulse()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, full.Valence, 1e-9)

	half, err := VoiceSample{Valence: 1, Arousal: 1, Focus: 1, Confidence: 0.5}.Pulse()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, half.Valence, 1e-9)
	assert.InDelta(t, 0.75, half.Arousal, 1e-9)
	assert.InDelta(t, 0.75, half.Focus, 1e-9)

	v, err := VisionSample{Valence: -1, Arousal: 1, Attention: 1, Confidence: 0.25}.Pulse()
	require.NoError(t, err)
	assert.InDelta(t, -0.25, v.Valence, 1e-9)
}

func TestSampleRejectsNonFinite(t *testing.T) {
	_, err := VisionSample{Valence: math.NaN()}.Pulse()
	assert.ErrorIs(t, err, affect.ErrInvalidSignal)

	_, err = VoiceSample{Confidence: math.Inf(1)}.Pulse()
	assert.ErrorIs(t, err, affect.ErrInvalidSignal)
}

func mustMessage(t *testing.T, typ protocol.MessageType, data any) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(typ, data)
	require.NoError(t, err)
	return msg
}

func TestDispatch(t *testing.T) {
	r := &recorder{}

	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeVision, protocol.VisionData{Valence: 0.4, Arousal: 0, Attention: 0.9})))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeVoice, protocol.VoiceData{Valence: -0.2, Arousal: 0.3, Focus: 0.4})))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeTag, protocol.TagData{Tag: "happy"})))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeOverride, protocol.TagData{Tag: "ANGRY"})))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeGesture, protocol.GestureData{Gesture: "nod"})))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeSpeaking, protocol.SpeakingData{Speaking: true, Level: 0.6})))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeInteraction, nil)))
	require.NoError(t, Dispatch(r, mustMessage(t, protocol.TypeMovement, protocol.MovementData{Movement: "bounce"})))

	require.Len(t, r.vision, 1)
	assert.InDelta(t, 0.5, r.vision[0].Arousal, 1e-9)
	assert.InDelta(t, 0.9, r.vision[0].Focus, 1e-9)
	require.Len(t, r.voice, 1)
	assert.InDelta(t, -0.2, r.voice[0].Valence, 1e-9)
	assert.Equal(t, []string{"happy"}, r.tags)
	assert.Equal(t, []affect.Tag{affect.TagAngry}, r.override)
	assert.Equal(t, []affect.Gesture{affect.GestureNod}, r.gestures)
	assert.Equal(t, []float64{0.6}, r.speaking)
	assert.Equal(t, 1, r.touches)
	assert.Equal(t, []affect.Movement{affect.MovementBounce}, r.moves)
}

func TestDispatchErrors(t *testing.T) {
	r := &recorder{}

	err := Dispatch(r, mustMessage(t, protocol.TypeGesture, protocol.GestureData{Gesture: "wave"}))
	assert.ErrorIs(t, err, affect.ErrInvalidSignal)

	err = Dispatch(r, mustMessage(t, protocol.TypeMovement, protocol.MovementData{Movement: "moonwalk"}))
	assert.ErrorIs(t, err, affect.ErrUnknownMovement)

	err = Dispatch(r, mustMessage(t, protocol.TypeOverride, protocol.TagData{Tag: "bored"}))
	assert.ErrorIs(t, err, affect.ErrUnknownTag)

	err = Dispatch(r, &protocol.Message{Type: protocol.TypeVision, Data: []byte(`"nope"`)})
	assert.ErrorIs(t, err, affect.ErrInvalidSignal)

	err = Dispatch(r, mustMessage(t, protocol.TypePing, protocol.PingData{ID: "x"}))
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.Empty(t, r.gestures)
	assert.Empty(t, r.moves)
	assert.Empty(t, r.override)
	assert.Empty(t, r.vision)
}
