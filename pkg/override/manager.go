// Package override manages the single timed emotional override that
// temporarily dominates the fused pulse.
package override

import (
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-companion/pkg/affect"
)

// DefaultDuration is how long an override dominates before it expires.
const DefaultDuration = 3 * time.Second

// Manager holds at most one override. Expiry is a deadline checked by the
// owner on every tick, never a timer callback.
type Manager struct {
	duration time.Duration
	active   *affect.Override
}

// NewManager creates a manager whose overrides last for duration.
func NewManager(duration time.Duration) *Manager {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Manager{duration: duration}
}

// Set replaces any override with the tag's table pulse and restarts the expiry.
func (m *Manager) Set(tag affect.Tag, now time.Time) affect.Override {
	return m.SetPulse(tag, affect.PulseFor(tag), now)
}

// SetPulse replaces any override with an explicit pulse.
func (m *Manager) SetPulse(tag affect.Tag, p affect.Pulse, now time.Time) affect.Override {
	o := affect.Override{
		ID:        uuid.NewString(),
		Tag:       tag,
		Pulse:     affect.NewPulse(p.Valence, p.Arousal, p.Focus),
		SetAt:     now,
		ExpiresAt: now.Add(m.duration),
	}
	m.active = &o
	return o
}

// Expire clears the override once now reaches its deadline.
// It reports whether an override was cleared.
func (m *Manager) Expire(now time.Time) bool {
	if m.active == nil || m.active.Active(now) {
		return false
	}
	m.active = nil
	return true
}

// Clear drops any override immediately.
func (m *Manager) Clear() {
	m.active = nil
}

// Active returns the override in force at now, if any.
func (m *Manager) Active(now time.Time) (affect.Override, bool) {
	if m.active == nil || !m.active.Active(now) {
		return affect.Override{}, false
	}
	return *m.active, true
}

// Effective returns the pulse that should drive presentation at now: the
// override pulse while one is active, the fused pulse otherwise.
func (m *Manager) Effective(fused affect.Pulse, now time.Time) (affect.Pulse, bool) {
	if o, ok := m.Active(now); ok {
		return o.Pulse, true
	}
	return fused, false
}

// Valid reports whether the held override is internally consistent.
func (m *Manager) Valid() bool {
	if m.active == nil {
		return true
	}
	return !m.active.ExpiresAt.Before(m.active.SetAt) && m.active.Pulse.Validate() == nil
}
