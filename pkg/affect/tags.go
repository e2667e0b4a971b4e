package affect

import (
	"fmt"
	"strings"
)

// Tag is a named emotion from the closed set the chat and voice classifiers emit.
type Tag int

const (
	TagNeutral Tag = iota
	TagHappy
	TagSad
	TagAngry
	TagSurprised
	TagExcited
	TagCalm
)

var tagNames = [...]string{
	TagNeutral:   "NEUTRAL",
	TagHappy:     "HAPPY",
	TagSad:       "SAD",
	TagAngry:     "ANGRY",
	TagSurprised: "SURPRISED",
	TagExcited:   "EXCITED",
	TagCalm:      "CALM",
}

// Tags lists every tag in declaration order.
func Tags() []Tag {
	return []Tag{TagNeutral, TagHappy, TagSad, TagAngry, TagSurprised, TagExcited, TagCalm}
}

// String returns the canonical upper-case name.
func (t Tag) String() string {
	if t < TagNeutral || int(t) >= len(tagNames) {
		return "NEUTRAL"
	}
	return tagNames[t]
}

// Valid reports whether t is one of the declared tags.
func (t Tag) Valid() bool {
	return t >= TagNeutral && int(t) < len(tagNames)
}

// ParseTag maps a tag name (case-insensitive) onto the closed set.
// Unknown names yield TagNeutral together with ErrUnknownTag so the caller
// can log the typo instead of silently falling through.
func ParseTag(s string) (Tag, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range tagNames {
		if n == name {
			return Tag(i), nil
		}
	}
	return TagNeutral, fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	tag, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = tag
	return nil
}

// PADFor returns the PAD anchor for a tag.
func PADFor(t Tag) PAD {
	if p, ok := padTable[t]; ok {
		return p
	}
	return padTable[TagNeutral]
}

// PulseFor returns the override pulse for a tag.
func PulseFor(t Tag) Pulse {
	if p, ok := pulseTable[t]; ok {
		return p
	}
	return pulseTable[TagNeutral]
}

// Movement is a body-language modifier that perturbs arousal or tilts the head.
type Movement int

const (
	MovementIdle Movement = iota
	MovementBounce
	MovementShake
	MovementEnergetic
	MovementCalm
)

var movementNames = [...]string{
	MovementIdle:      "idle",
	MovementBounce:    "bounce",
	MovementShake:     "shake",
	MovementEnergetic: "energetic",
	MovementCalm:      "calm",
}

// String returns the lower-case movement name.
func (m Movement) String() string {
	if m < MovementIdle || int(m) >= len(movementNames) {
		return "idle"
	}
	return movementNames[m]
}

// Valid reports whether m is one of the declared movements.
func (m Movement) Valid() bool {
	return m >= MovementIdle && int(m) < len(movementNames)
}

// ParseMovement maps a movement name (case-insensitive) onto the enum.
func ParseMovement(s string) (Movement, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return MovementIdle, nil
	}
	for i, n := range movementNames {
		if n == name {
			return Movement(i), nil
		}
	}
	return MovementIdle, fmt.Errorf("%w: %q", ErrUnknownMovement, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Movement) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Movement) UnmarshalText(b []byte) error {
	mv, err := ParseMovement(string(b))
	if err != nil {
		return err
	}
	*m = mv
	return nil
}
