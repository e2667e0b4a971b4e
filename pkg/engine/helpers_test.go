package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/haptics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const tick = 50 * time.Millisecond

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(i int) time.Time { return t0.Add(time.Duration(i) * tick) }

type hapticRecorder struct {
	mu     sync.Mutex
	events []haptics.Event
}

func (r *hapticRecorder) Emit(_ context.Context, ev haptics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *hapticRecorder) count(k haptics.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

func (r *hapticRecorder) ofKind(k haptics.Kind) []haptics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []haptics.Event
	for _, ev := range r.events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

type memStore struct {
	mu          sync.Mutex
	mood        *affect.Mood
	personality *affect.Personality
	saves       []affect.Mood
}

func (s *memStore) LoadMood(context.Context) (affect.Mood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mood == nil {
		return affect.Mood{}, context.DeadlineExceeded
	}
	return *s.mood, nil
}

func (s *memStore) SaveMood(_ context.Context, m affect.Mood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, m)
	return nil
}

func (s *memStore) LoadPersonality(context.Context) (affect.Personality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.personality == nil {
		return affect.Personality{}, context.DeadlineExceeded
	}
	return *s.personality, nil
}

func (s *memStore) lastSave() (affect.Mood, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return affect.Mood{}, 0
	}
	return s.saves[len(s.saves)-1], len(s.saves)
}

// lineSource answers idle prompts with reply, or blocks until cancelled
// when block is set.
type lineSource struct {
	mu      sync.Mutex
	calls   int
	block   bool
	reply   affect.Utterance
	prompts []IdlePrompt
}

func (l *lineSource) IdleLine(ctx context.Context, p IdlePrompt) (affect.Utterance, error) {
	l.mu.Lock()
	l.calls++
	l.prompts = append(l.prompts, p)
	block := l.block
	l.mu.Unlock()
	if block {
		<-ctx.Done()
		return affect.Utterance{}, ctx.Err()
	}
	return l.reply, nil
}

func (l *lineSource) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type speakerRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (s *speakerRecorder) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *speakerRecorder) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (s *statusRecorder) PublishStatus(_ context.Context, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
	return nil
}

func newTestEngine(t *testing.T, mutate func(*Config), deps Deps) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(11, 13))
	}
	if deps.Session == "" {
		deps.Session = "test"
	}
	e, err := New(context.Background(), cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}
