// Package pad owns the current/target Pleasure-Arousal-Dominance pair and
// converges the current value toward the target every tick.
package pad

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// Config holds the tunable state machine parameters.
type Config struct {
	// Speed is the fraction of the remaining distance covered per NominalTick.
	Speed float64 `koanf:"speed"`

	// NominalTick is the step Speed is expressed against.
	NominalTick time.Duration `koanf:"nominal_tick"`

	// Epsilon is the distance below which current counts as converged.
	Epsilon float64 `koanf:"epsilon"`

	// Pulse contribution weights on top of the tag anchor.
	PleasureWeight  float64 `koanf:"pleasure_weight"`
	ArousalWeight   float64 `koanf:"arousal_weight"`
	DominanceWeight float64 `koanf:"dominance_weight"`
}

// DefaultConfig returns the recommended state machine parameters.
func DefaultConfig() Config {
	return Config{
		Speed:           0.05,
		NominalTick:     50 * time.Millisecond,
		Epsilon:         0.01,
		PleasureWeight:  0.5,
		ArousalWeight:   0.6,
		DominanceWeight: 0.4,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Speed <= 0 || c.Speed > 1 {
		return fmt.Errorf("pad: speed %.3f must be in (0,1]", c.Speed)
	}
	if c.NominalTick <= 0 {
		return fmt.Errorf("pad: nominal tick must be positive")
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("pad: epsilon must be positive")
	}
	return nil
}

// Movement modifier constants.
const (
	bounceBias    = 0.2
	energeticBias = 0.35
	calmBias      = -0.35
	tiltImpulse   = 0.35
)

// Impulse is a one-shot head tilt requested by a movement modifier.
// It is rendered by the mapper and never becomes part of PAD state.
type Impulse struct {
	HeadTilt float64
}

// Machine is the PAD state machine. It is owned by the engine goroutine.
type Machine struct {
	cfg Config

	anchorTag affect.Tag
	anchor    affect.PAD
	pulse     affect.Pulse
	bias      float64

	target  affect.PAD
	current affect.PAD
}

// New creates a machine resting at NEUTRAL.
func New(cfg Config) *Machine {
	m := &Machine{
		cfg:       cfg,
		anchorTag: affect.TagNeutral,
		anchor:    affect.PADFor(affect.TagNeutral),
		pulse:     affect.NeutralPulse(),
	}
	m.recompute()
	m.current = m.target
	return m
}

// SetTarget moves the anchor to the tag's PAD coordinates and clears any
// movement bias. It reports whether the anchor tag changed.
func (m *Machine) SetTarget(tag affect.Tag) bool {
	changed := tag != m.anchorTag
	m.anchorTag = tag
	m.anchor = affect.PADFor(tag)
	m.bias = 0
	m.recompute()
	return changed
}

// SetPulse feeds the effective pulse of this tick into the target.
func (m *Machine) SetPulse(p affect.Pulse) {
	m.pulse = p
	m.recompute()
}

// ApplyMovement perturbs target arousal and returns any head tilt impulse.
func (m *Machine) ApplyMovement(mv affect.Movement) Impulse {
	var imp Impulse
	switch mv {
	case affect.MovementBounce:
		m.bias = bounceBias
		imp.HeadTilt = tiltImpulse
	case affect.MovementShake:
		imp.HeadTilt = -tiltImpulse
	case affect.MovementEnergetic:
		m.bias = energeticBias
	case affect.MovementCalm:
		m.bias = calmBias
	case affect.MovementIdle:
		m.bias = 0
	}
	m.recompute()
	return imp
}

func (m *Machine) recompute() {
	neutral := affect.NeutralPulse()
	m.target = affect.NewPAD(
		m.anchor.Pleasure+m.cfg.PleasureWeight*m.pulse.Valence,
		m.anchor.Arousal+m.cfg.ArousalWeight*(m.pulse.Arousal-neutral.Arousal)+m.bias,
		m.anchor.Dominance+m.cfg.DominanceWeight*(m.pulse.Focus-neutral.Focus),
	)
}

// Tick advances current toward target. The step is proportional to dt so the
// convergence rate does not depend on the tick rate.
func (m *Machine) Tick(dt time.Duration) {
	if dt <= 0 {
		return
	}
	t := m.cfg.Speed * float64(dt) / float64(m.cfg.NominalTick)
	if t >= 1 {
		m.current = m.target
		return
	}
	m.current = m.current.Lerp(m.target, t)
}

// Current returns the rendered PAD value.
func (m *Machine) Current() affect.PAD {
	return m.current
}

// Target returns the goal PAD value.
func (m *Machine) Target() affect.PAD {
	return m.target
}

// Tag returns the current anchor tag.
func (m *Machine) Tag() affect.Tag {
	return m.anchorTag
}

// Converged reports whether current is within epsilon of target.
func (m *Machine) Converged() bool {
	return m.current.Distance(m.target) < m.cfg.Epsilon
}

// Reset snaps both current and target back to NEUTRAL with a neutral pulse.
// Only used to recover from an invariant violation.
func (m *Machine) Reset() {
	m.anchorTag = affect.TagNeutral
	m.anchor = affect.PADFor(affect.TagNeutral)
	m.pulse = affect.NeutralPulse()
	m.bias = 0
	m.recompute()
	m.current = m.target
}
