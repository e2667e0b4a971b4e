package chat

import (
	"context"
	"sync"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
)

// Mock is a LineSource that replays canned lines.
type Mock struct {
	// LineFunc overrides the canned lines when set.
	LineFunc func(ctx context.Context, p engine.IdlePrompt) (affect.Utterance, error)

	// Lines are parsed with ParseLine and returned round-robin.
	Lines []string

	mu      sync.Mutex
	next    int
	prompts []engine.IdlePrompt
}

// NewMock creates a mock with a few friendly lines.
func NewMock() *Mock {
	return &Mock{Lines: []string{
		"[HAPPY:bounce] Hey, are you still there?",
		"[CALM] It's nice and quiet in here.",
		"[SURPRISED] Oh! I just had a thought.",
	}}
}

// IdleLine implements engine.LineSource.
func (m *Mock) IdleLine(ctx context.Context, p engine.IdlePrompt) (affect.Utterance, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	fn := m.LineFunc
	var line string
	if fn == nil {
		if len(m.Lines) == 0 {
			m.mu.Unlock()
			return affect.Utterance{}, ErrEmptyLine
		}
		line = m.Lines[m.next%len(m.Lines)]
		m.next++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, p)
	}
	if err := ctx.Err(); err != nil {
		return affect.Utterance{}, err
	}
	u, _, err := ParseLine(line)
	return u, err
}

// Prompts returns the prompts received so far.
func (m *Mock) Prompts() []engine.IdlePrompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.IdlePrompt(nil), m.prompts...)
}
