package engine

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-companion/pkg/animation"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/fusion"
	"github.com/teslashibe/go-companion/pkg/override"
	"github.com/teslashibe/go-companion/pkg/pad"
)

// Config holds the engine configuration.
type Config struct {
	// TickRate is the owner loop period (50ms = 20Hz).
	TickRate time.Duration `koanf:"tick_rate"`

	// MailboxSize bounds the inbound signal queue.
	MailboxSize int `koanf:"mailbox_size"`

	// DispatchQueue bounds the async side-effect queue.
	DispatchQueue int `koanf:"dispatch_queue"`

	// StatusInterval is the minimum gap between live-status publishes.
	StatusInterval time.Duration `koanf:"status_interval"`

	// MoodSaveInterval coalesces mood writes.
	MoodSaveInterval time.Duration `koanf:"mood_save_interval"`

	// SpeakingTimeout ends the speaking state when no level update arrives.
	SpeakingTimeout time.Duration `koanf:"speaking_timeout"`

	// IdleTalkTimeout bounds one idle line fetch.
	IdleTalkTimeout time.Duration `koanf:"idle_talk_timeout"`

	// IOTimeout bounds each dispatched side effect.
	IOTimeout time.Duration `koanf:"io_timeout"`

	// OverrideDuration is how long a tag override dominates.
	OverrideDuration time.Duration `koanf:"override_duration"`

	// Debug panics on internal invariant violations instead of recovering.
	Debug bool `koanf:"debug"`

	Fusion    fusion.Config    `koanf:"fusion"`
	PAD       pad.Config       `koanf:"pad"`
	Behavior  behavior.Config  `koanf:"behavior"`
	Animation animation.Config `koanf:"animation"`
}

// DefaultConfig returns the recommended engine configuration.
func DefaultConfig() Config {
	return Config{
		TickRate:         50 * time.Millisecond,
		MailboxSize:      256,
		DispatchQueue:    64,
		StatusInterval:   500 * time.Millisecond,
		MoodSaveInterval: 5 * time.Second,
		SpeakingTimeout:  500 * time.Millisecond,
		IdleTalkTimeout:  20 * time.Second,
		IOTimeout:        5 * time.Second,
		OverrideDuration: override.DefaultDuration,
		Fusion:           fusion.DefaultConfig(),
		PAD:              pad.DefaultConfig(),
		Behavior:         behavior.DefaultConfig(),
		Animation:        animation.DefaultConfig(),
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("engine: tick rate must be positive")
	}
	if c.MailboxSize <= 0 {
		return fmt.Errorf("engine: mailbox size must be positive")
	}
	if c.DispatchQueue <= 0 {
		return fmt.Errorf("engine: dispatch queue must be positive")
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("engine: status interval must be positive")
	}
	if c.OverrideDuration <= 0 {
		return fmt.Errorf("engine: override duration must be positive")
	}
	if c.SpeakingTimeout <= 0 || c.IdleTalkTimeout <= 0 || c.IOTimeout <= 0 {
		return fmt.Errorf("engine: timeouts must be positive")
	}
	if err := c.Fusion.Validate(); err != nil {
		return err
	}
	if err := c.PAD.Validate(); err != nil {
		return err
	}
	if err := c.Behavior.Validate(); err != nil {
		return err
	}
	return c.Animation.Validate()
}
