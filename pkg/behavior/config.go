package behavior

import (
	"fmt"
	"time"
)

// Config holds the autonomous behaviour tunables.
type Config struct {
	NominalTick time.Duration `koanf:"nominal_tick"`

	// BlinkChance is the probability of a blink per NominalTick once the
	// minimum interval has passed.
	BlinkChance      float64       `koanf:"blink_chance"`
	BlinkMinInterval time.Duration `koanf:"blink_min_interval"`
	BlinkDuration    time.Duration `koanf:"blink_duration"`

	SaccadeMin time.Duration `koanf:"saccade_min"`
	SaccadeMax time.Duration `koanf:"saccade_max"`
	// SaccadeCenter is the probability a saccade returns to centre.
	SaccadeCenter float64 `koanf:"saccade_center"`
	// SaccadeRange bounds off-centre gaze offsets on both axes.
	SaccadeRange float64 `koanf:"saccade_range"`

	// IdleTalkAfter is the quiet period before an idle line is requested.
	IdleTalkAfter time.Duration `koanf:"idle_talk_after"`
	IdleTalk      bool          `koanf:"idle_talk"`
}

// DefaultConfig returns the recommended behaviour parameters.
func DefaultConfig() Config {
	return Config{
		NominalTick:      50 * time.Millisecond,
		BlinkChance:      0.02,
		BlinkMinInterval: 3 * time.Second,
		BlinkDuration:    150 * time.Millisecond,
		SaccadeMin:       300 * time.Millisecond,
		SaccadeMax:       2 * time.Second,
		SaccadeCenter:    0.7,
		SaccadeRange:     0.35,
		IdleTalkAfter:    5 * time.Second,
		IdleTalk:         true,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.NominalTick <= 0 {
		return fmt.Errorf("behavior: nominal tick must be positive")
	}
	if c.BlinkChance < 0 || c.BlinkChance > 1 {
		return fmt.Errorf("behavior: blink chance %.3f must be in [0,1]", c.BlinkChance)
	}
	if c.BlinkDuration <= 0 || c.BlinkDuration > c.BlinkMinInterval {
		return fmt.Errorf("behavior: blink duration must be positive and shorter than the minimum interval")
	}
	if c.SaccadeMin <= 0 || c.SaccadeMax < c.SaccadeMin {
		return fmt.Errorf("behavior: saccade interval [%s,%s] is invalid", c.SaccadeMin, c.SaccadeMax)
	}
	if c.SaccadeCenter < 0 || c.SaccadeCenter > 1 {
		return fmt.Errorf("behavior: saccade centre chance must be in [0,1]")
	}
	if c.SaccadeRange < 0 || c.SaccadeRange > 1 {
		return fmt.Errorf("behavior: saccade range must be in [0,1]")
	}
	if c.IdleTalkAfter <= 0 {
		return fmt.Errorf("behavior: idle talk threshold must be positive")
	}
	return nil
}
