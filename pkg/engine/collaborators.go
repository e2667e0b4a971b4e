package engine

import (
	"context"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// Renderer receives every published snapshot on the owner goroutine.
// Render must not block.
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Snapshot)

// Render calls f.
func (f RendererFunc) Render(s Snapshot) { f(s) }

// StatusPublisher receives the throttled live status.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, s Status) error
}

// Store persists mood and personality.
type Store interface {
	LoadMood(ctx context.Context) (affect.Mood, error)
	SaveMood(ctx context.Context, m affect.Mood) error
	LoadPersonality(ctx context.Context) (affect.Personality, error)
}

// IdlePrompt describes the state an idle line should fit.
type IdlePrompt struct {
	RequestID   string
	Personality affect.Personality
	Mood        affect.Mood
	Tag         affect.Tag
	PAD         affect.PAD
}

// LineSource produces idle-talk lines.
type LineSource interface {
	IdleLine(ctx context.Context, p IdlePrompt) (affect.Utterance, error)
}

// Speaker voices an utterance.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
