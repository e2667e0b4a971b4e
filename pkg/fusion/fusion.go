// Package fusion merges independently arriving affect pulses into one
// smoothed short-term pulse and applies their slow effect on Mood.
package fusion

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// Config holds the tunable fusion parameters.
type Config struct {
	// Alpha is the exponential smoothing factor applied per ingested pulse.
	Alpha float64 `koanf:"alpha"`

	// EnergyGain scales arousal into Mood.Energy per pulse.
	EnergyGain float64 `koanf:"energy_gain"`

	// MoodGain scales valence into Mood.Mood per pulse.
	MoodGain float64 `koanf:"mood_gain"`

	// TrustGain is added to (nod) or removed from (shake) Mood.Trust.
	TrustGain float64 `koanf:"trust_gain"`

	// StrongThreshold is the |valence| or arousal above which a pulse counts
	// as a strong emotion.
	StrongThreshold float64 `koanf:"strong_threshold"`
}

// DefaultConfig returns the recommended fusion parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:           0.12,
		EnergyGain:      0.01,
		MoodGain:        0.01,
		TrustGain:       0.02,
		StrongThreshold: 0.8,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("fusion: alpha %.3f must be in (0,1]", c.Alpha)
	}
	if c.EnergyGain < 0 || c.MoodGain < 0 || c.TrustGain < 0 {
		return fmt.Errorf("fusion: gains must be non-negative")
	}
	if c.StrongThreshold <= 0 || c.StrongThreshold > 1 {
		return fmt.Errorf("fusion: strong threshold %.3f must be in (0,1]", c.StrongThreshold)
	}
	return nil
}

// Result describes what an ingested pulse asks the engine to do next.
type Result struct {
	// Strong is set when the raw pulse crossed the strong-emotion threshold.
	Strong bool

	// Gesture is set for gesture pulses; the engine turns it into an
	// override and a haptic cue.
	Gesture affect.Gesture

	// OverrideTag is the tag the gesture requests. Valid only with Gesture.
	OverrideTag affect.Tag

	// MoodChanged is set when Mood moved.
	MoodChanged bool
}

// Fuser holds the fused pulse and the long-term mood.
// It is owned by the engine goroutine and is not safe for concurrent use.
type Fuser struct {
	cfg  Config
	held affect.Pulse
	mood affect.Mood
}

// New creates a fuser starting from the neutral pulse and the given mood.
func New(cfg Config, mood affect.Mood) *Fuser {
	return &Fuser{
		cfg:  cfg,
		held: affect.NeutralPulse(),
		mood: affect.NewMood(mood.Mood, mood.Energy, mood.Trust),
	}
}

// Ingest applies one pulse. Each call is an independent smoothing step, so the
// most recent pulse has the most influence. Invalid pulses are rejected and
// leave all state untouched.
func (f *Fuser) Ingest(p affect.Pulse, src affect.Source) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("fusion: %s pulse: %w", src, err)
	}

	var res Result
	if p.Gesture != affect.GestureNone {
		tag, _ := affect.TagForGesture(p.Gesture)
		res.Gesture = p.Gesture
		res.OverrideTag = tag
		res.MoodChanged = f.nudgeTrust(p.Gesture)
		return res, nil
	}

	f.held = f.held.Lerp(p, f.cfg.Alpha)

	before := f.mood
	f.mood = f.mood.Nudge(p.Valence*f.cfg.MoodGain, p.Arousal*f.cfg.EnergyGain, 0)
	res.MoodChanged = f.mood != before

	res.Strong = math.Abs(p.Valence) > f.cfg.StrongThreshold || p.Arousal > f.cfg.StrongThreshold
	return res, nil
}

func (f *Fuser) nudgeTrust(g affect.Gesture) bool {
	before := f.mood
	switch g {
	case affect.GestureNod:
		f.mood = f.mood.Nudge(0, 0, f.cfg.TrustGain)
	case affect.GestureShake:
		f.mood = f.mood.Nudge(0, 0, -f.cfg.TrustGain)
	}
	return f.mood != before
}

// Held returns the current fused pulse.
func (f *Fuser) Held() affect.Pulse {
	return f.held
}

// Mood returns the current long-term mood.
func (f *Fuser) Mood() affect.Mood {
	return f.mood
}

// SetMood replaces the mood, clamping it. Used for restore and explicit reset.
func (f *Fuser) SetMood(m affect.Mood) {
	f.mood = affect.NewMood(m.Mood, m.Energy, m.Trust)
}

// Reset returns the fused pulse to neutral without touching mood.
func (f *Fuser) Reset() {
	f.held = affect.NeutralPulse()
}
