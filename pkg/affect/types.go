// Package affect defines the emotional data model shared by the companion engine.
//
// A Pulse is an instantaneous affect sample from a sensor, Mood is the slow
// long-term disposition, and PAD is the Pleasure-Arousal-Dominance state the
// avatar is rendered from. Params is the animation parameter set handed to the
// renderer every tick.
//
// Constructors and With* helpers clamp on write, so stored values are always
// inside their declared ranges.
package affect

import (
	"fmt"
	"math"
	"time"
)

// Gesture is a discrete head gesture carried by a pulse.
type Gesture int

const (
	// GestureNone means the pulse carries no gesture.
	GestureNone Gesture = iota
	// GestureNod is a "yes" nod.
	GestureNod
	// GestureShake is a "no" head shake.
	GestureShake
	// GestureWinkLeft is a left-eye wink.
	GestureWinkLeft
	// GestureWinkRight is a right-eye wink.
	GestureWinkRight
)

// String returns the wire name of the gesture.
func (g Gesture) String() string {
	switch g {
	case GestureNone:
		return "none"
	case GestureNod:
		return "nod"
	case GestureShake:
		return "shake"
	case GestureWinkLeft:
		return "winkLeft"
	case GestureWinkRight:
		return "winkRight"
	default:
		return "unknown"
	}
}

// ParseGesture converts a wire name into a Gesture.
func ParseGesture(s string) (Gesture, error) {
	switch s {
	case "", "none":
		return GestureNone, nil
	case "nod":
		return GestureNod, nil
	case "shake":
		return GestureShake, nil
	case "winkLeft", "wink_left":
		return GestureWinkLeft, nil
	case "winkRight", "wink_right":
		return GestureWinkRight, nil
	default:
		return GestureNone, fmt.Errorf("%w: gesture %q", ErrInvalidSignal, s)
	}
}

// Source identifies the producer of a pulse.
type Source string

const (
	SourceVision   Source = "vision"
	SourceVoice    Source = "voice"
	SourceGesture  Source = "gesture"
	SourceIdleTalk Source = "idle_talk"
)

// Pulse is one instantaneous affect sample.
type Pulse struct {
	// Valence is negative-to-positive feeling, [-1, 1].
	Valence float64 `json:"valence"`

	// Arousal is calm-to-excited, [0, 1]. Bipolar producers are normalised
	// by the signal adapters before a pulse is built.
	Arousal float64 `json:"arousal"`

	// Focus is how attentive the subject is, [0, 1].
	Focus float64 `json:"focus"`

	// Gesture is set for gesture pulses, which bypass smoothing.
	Gesture Gesture `json:"gesture,omitempty"`
}

// NeutralPulse is the resting pulse the fusion stage starts from.
func NeutralPulse() Pulse {
	return Pulse{Valence: 0, Arousal: 0.5, Focus: 0.5}
}

// NewPulse builds a pulse with every field clamped to its range.
func NewPulse(valence, arousal, focus float64) Pulse {
	return Pulse{
		Valence: Clamp(valence, -1, 1),
		Arousal: Clamp(arousal, 0, 1),
		Focus:   Clamp(focus, 0, 1),
	}
}

// Validate rejects non-finite or out-of-range pulses.
func (p Pulse) Validate() error {
	switch {
	case !finite(p.Valence), !finite(p.Arousal), !finite(p.Focus):
		return fmt.Errorf("%w: non-finite pulse %+v", ErrInvalidSignal, p)
	case p.Valence < -1 || p.Valence > 1:
		return fmt.Errorf("%w: valence %.3f outside [-1,1]", ErrInvalidSignal, p.Valence)
	case p.Arousal < 0 || p.Arousal > 1:
		return fmt.Errorf("%w: arousal %.3f outside [0,1]", ErrInvalidSignal, p.Arousal)
	case p.Focus < 0 || p.Focus > 1:
		return fmt.Errorf("%w: focus %.3f outside [0,1]", ErrInvalidSignal, p.Focus)
	case p.Gesture < GestureNone || p.Gesture > GestureWinkRight:
		return fmt.Errorf("%w: gesture %d", ErrInvalidSignal, p.Gesture)
	}
	return nil
}

// Lerp moves p toward q by t, clamping the result. The gesture is not blended.
func (p Pulse) Lerp(q Pulse, t float64) Pulse {
	return NewPulse(
		Lerp(p.Valence, q.Valence, t),
		Lerp(p.Arousal, q.Arousal, t),
		Lerp(p.Focus, q.Focus, t),
	)
}

// Mood is the long-term disposition. It only moves in small increments.
type Mood struct {
	Mood   float64 `json:"mood"`   // [-1, 1]
	Energy float64 `json:"energy"` // [0, 1]
	Trust  float64 `json:"trust"`  // [0, 1]
}

// DefaultMood is the disposition of a fresh install.
func DefaultMood() Mood {
	return Mood{Mood: 0.1, Energy: 0.5, Trust: 0.5}
}

// NewMood builds a mood with every field clamped.
func NewMood(mood, energy, trust float64) Mood {
	return Mood{
		Mood:   Clamp(mood, -1, 1),
		Energy: Clamp(energy, 0, 1),
		Trust:  Clamp(trust, 0, 1),
	}
}

// Nudge returns the mood shifted by the given deltas, clamped.
func (m Mood) Nudge(dMood, dEnergy, dTrust float64) Mood {
	return NewMood(m.Mood+dMood, m.Energy+dEnergy, m.Trust+dTrust)
}

// PAD is a point in Pleasure-Arousal-Dominance space. Each axis is [-1, 1].
type PAD struct {
	Pleasure  float64 `json:"pleasure"`
	Arousal   float64 `json:"arousal"`
	Dominance float64 `json:"dominance"`
}

// NewPAD builds a PAD value with every axis clamped.
func NewPAD(pleasure, arousal, dominance float64) PAD {
	return PAD{
		Pleasure:  Clamp(pleasure, -1, 1),
		Arousal:   Clamp(arousal, -1, 1),
		Dominance: Clamp(dominance, -1, 1),
	}
}

// Lerp moves p toward q by t, clamping the result.
func (p PAD) Lerp(q PAD, t float64) PAD {
	return NewPAD(
		Lerp(p.Pleasure, q.Pleasure, t),
		Lerp(p.Arousal, q.Arousal, t),
		Lerp(p.Dominance, q.Dominance, t),
	)
}

// Distance is the Euclidean distance between two PAD points.
func (p PAD) Distance(q PAD) float64 {
	dp := p.Pleasure - q.Pleasure
	da := p.Arousal - q.Arousal
	dd := p.Dominance - q.Dominance
	return math.Sqrt(dp*dp + da*da + dd*dd)
}

// Finite reports whether every axis is a finite number.
func (p PAD) Finite() bool {
	return finite(p.Pleasure) && finite(p.Arousal) && finite(p.Dominance)
}

// Params is the animation parameter set consumed by the renderer.
type Params struct {
	EyeOpen    float64 `json:"eye_open"`    // [0, 1]
	BrowRaise  float64 `json:"brow_raise"`  // [0, 1]
	MouthSmile float64 `json:"mouth_smile"` // [-1, 1], negative is a frown
	MouthOpen  float64 `json:"mouth_open"`  // [0, 1]
	HeadTilt   float64 `json:"head_tilt"`   // [-1, 1]
	Glow       float64 `json:"glow"`        // [0, 1]
	ColorHue   float64 `json:"color_hue"`   // degrees, [0, 360)
	GazeX      float64 `json:"gaze_x"`      // [-1, 1]
	GazeY      float64 `json:"gaze_y"`      // [-1, 1]
}

// Clamped returns p with every field forced into its range.
func (p Params) Clamped() Params {
	return Params{
		EyeOpen:    Clamp(p.EyeOpen, 0, 1),
		BrowRaise:  Clamp(p.BrowRaise, 0, 1),
		MouthSmile: Clamp(p.MouthSmile, -1, 1),
		MouthOpen:  Clamp(p.MouthOpen, 0, 1),
		HeadTilt:   Clamp(p.HeadTilt, -1, 1),
		Glow:       Clamp(p.Glow, 0, 1),
		ColorHue:   WrapHue(p.ColorHue),
		GazeX:      Clamp(p.GazeX, -1, 1),
		GazeY:      Clamp(p.GazeY, -1, 1),
	}
}

// Finite reports whether every field is a finite number.
func (p Params) Finite() bool {
	for _, v := range []float64{p.EyeOpen, p.BrowRaise, p.MouthSmile, p.MouthOpen,
		p.HeadTilt, p.Glow, p.ColorHue, p.GazeX, p.GazeY} {
		if !finite(v) {
			return false
		}
	}
	return true
}

// Override is a timed emotional state that supersedes the fused pulse.
type Override struct {
	ID        string    `json:"id"`
	Tag       Tag       `json:"tag"`
	Pulse     Pulse     `json:"pulse"`
	SetAt     time.Time `json:"set_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the override still applies at now.
func (o Override) Active(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}

// Personality is a static trait vector. It only shapes idle-talk prompts.
type Personality struct {
	Warmth      float64 `json:"warmth"`
	Playfulness float64 `json:"playfulness"`
	Curiosity   float64 `json:"curiosity"`
}

// DefaultPersonality is the trait vector of a fresh install.
func DefaultPersonality() Personality {
	return Personality{Warmth: 0.7, Playfulness: 0.6, Curiosity: 0.6}
}

// Clamped returns the personality with every trait in [0, 1].
func (p Personality) Clamped() Personality {
	return Personality{
		Warmth:      Clamp(p.Warmth, 0, 1),
		Playfulness: Clamp(p.Playfulness, 0, 1),
		Curiosity:   Clamp(p.Curiosity, 0, 1),
	}
}

// Utterance is a parsed line from the chat collaborator.
type Utterance struct {
	Text     string   `json:"text"`
	Tag      Tag      `json:"tag"`
	Movement Movement `json:"movement"`
}
