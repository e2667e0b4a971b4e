// Package animation maps PAD state and behaviour overlays onto the renderer
// parameter set.
package animation

import (
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// Base mapping constants.
const (
	smileGain = 0.9

	browBase      = 0.35
	browArousal   = 0.35
	browDominance = 0.15
	browSadness   = 0.15

	tiltPleasure  = 0.2
	tiltDominance = 0.25

	eyeBase    = 0.75
	eyeArousal = 0.25

	glowBase     = 0.45
	glowArousal  = 0.3
	glowPleasure = 0.15

	hueSad   = 220.0 // blue at P = -1
	hueHappy = 45.0  // amber at P = +1
	hueAngry = -5.0  // red

	breathFreqBase = 0.2
	breathFreqGain = 0.3
	breathAmpBase  = 0.04
	breathAmpGain  = 0.08

	gazeDamping = 0.6
)

// Config holds the mapper smoothing parameters.
type Config struct {
	NominalTick  time.Duration `koanf:"nominal_tick"`
	Alpha        float64       `koanf:"alpha"`
	LipSyncAlpha float64       `koanf:"lip_sync_alpha"`
	TiltTau      time.Duration `koanf:"tilt_tau"`
}

// DefaultConfig returns the recommended mapper parameters.
func DefaultConfig() Config {
	return Config{
		NominalTick:  50 * time.Millisecond,
		Alpha:        0.1,
		LipSyncAlpha: 0.3,
		TiltTau:      300 * time.Millisecond,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.NominalTick <= 0 {
		return fmt.Errorf("animation: nominal tick must be positive")
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("animation: alpha %.3f must be in (0,1]", c.Alpha)
	}
	if c.LipSyncAlpha <= 0 || c.LipSyncAlpha > 1 {
		return fmt.Errorf("animation: lip sync alpha %.3f must be in (0,1]", c.LipSyncAlpha)
	}
	if c.TiltTau <= 0 {
		return fmt.Errorf("animation: tilt tau must be positive")
	}
	return nil
}

// Input is everything the mapper reads for one tick.
type Input struct {
	PAD      affect.PAD
	Blinking bool
	GazeX    float64
	GazeY    float64
	Speaking bool
	Level    float64 // audio level, [0, 1]
	Impulse  float64 // head tilt impulse started this tick
}

// Base computes the unsmoothed parameters for a PAD point. MouthOpen and
// gaze are left at zero; they come from overlays.
func Base(p affect.PAD) affect.Params {
	a01 := (p.Arousal + 1) / 2
	sad := math.Max(0, -p.Pleasure)
	return affect.Params{
		EyeOpen:    eyeBase + eyeArousal*p.Arousal,
		BrowRaise:  browBase + browArousal*p.Arousal - browDominance*p.Dominance + browSadness*sad,
		MouthSmile: smileGain * p.Pleasure,
		HeadTilt:   tiltPleasure*p.Pleasure - tiltDominance*p.Dominance,
		Glow:       glowBase + glowArousal*a01 + glowPleasure*p.Pleasure,
		ColorHue:   baseHue(p),
	}.Clamped()
}

// baseHue returns the hue in unwrapped degrees, in [hueAngry, hueSad].
func baseHue(p affect.PAD) float64 {
	h := affect.Lerp(hueSad, hueHappy, (p.Pleasure+1)/2)
	anger := affect.Clamp(2*math.Max(0, -p.Pleasure)*math.Max(0, p.Arousal), 0, 1)
	return affect.Lerp(h, hueAngry, anger)
}

// Mapper turns per-tick input into smoothed parameters. It has no
// randomness of its own; gaze targets arrive already drawn.
type Mapper struct {
	cfg Config

	started bool
	smooth  affect.Params
	hue     float64 // unwrapped
	tilt    float64 // decaying impulse
	phase   float64 // breathing, radians
}

// New creates a mapper.
func New(cfg Config) *Mapper {
	return &Mapper{cfg: cfg}
}

// Update advances the mapper by dt and returns the clamped parameters.
func (m *Mapper) Update(in Input, dt time.Duration) affect.Params {
	base := Base(in.PAD)
	hue := baseHue(in.PAD)

	if dt < 0 {
		dt = 0
	}
	ratio := float64(dt) / float64(m.cfg.NominalTick)

	m.tilt *= math.Exp(-float64(dt) / float64(m.cfg.TiltTau))
	m.tilt += in.Impulse

	scale := 1 - gazeDamping*(in.PAD.Dominance+1)/2
	target := base
	target.HeadTilt = affect.Clamp(base.HeadTilt+m.tilt, -1, 1)
	target.GazeX = in.GazeX * scale
	target.GazeY = in.GazeY * scale
	if in.Speaking {
		target.MouthOpen = affect.Clamp(in.Level, 0, 1)
	}

	if !m.started {
		m.started = true
		m.smooth = target
		m.smooth.MouthOpen = 0
		m.hue = hue
	}

	k := affect.Blend(m.cfg.Alpha, ratio)
	lip := affect.Blend(m.cfg.LipSyncAlpha, ratio)

	m.smooth.EyeOpen = affect.Lerp(m.smooth.EyeOpen, target.EyeOpen, k)
	m.smooth.BrowRaise = affect.Lerp(m.smooth.BrowRaise, target.BrowRaise, k)
	m.smooth.MouthSmile = affect.Lerp(m.smooth.MouthSmile, target.MouthSmile, k)
	m.smooth.HeadTilt = affect.Lerp(m.smooth.HeadTilt, target.HeadTilt, k)
	m.smooth.Glow = affect.Lerp(m.smooth.Glow, target.Glow, k)
	m.smooth.GazeX = affect.Lerp(m.smooth.GazeX, target.GazeX, k)
	m.smooth.GazeY = affect.Lerp(m.smooth.GazeY, target.GazeY, k)
	m.smooth.MouthOpen = affect.Lerp(m.smooth.MouthOpen, target.MouthOpen, lip)
	m.hue = affect.Lerp(m.hue, hue, k)

	a01 := (in.PAD.Arousal + 1) / 2
	freq := breathFreqBase + breathFreqGain*a01
	amp := breathAmpBase + breathAmpGain*a01
	m.phase = math.Mod(m.phase+2*math.Pi*freq*dt.Seconds(), 2*math.Pi)

	out := m.smooth
	out.ColorHue = m.hue
	out.Glow += amp * math.Sin(m.phase)
	if in.Blinking {
		out.EyeOpen = 0
	}
	return out.Clamped()
}

// Reset forgets smoothing state; the next Update snaps to its target.
func (m *Mapper) Reset() {
	*m = Mapper{cfg: m.cfg}
}
