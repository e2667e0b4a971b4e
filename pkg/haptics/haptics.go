// Package haptics defines the haptic cue events emitted by the engine and
// the sinks that deliver them.
package haptics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// Kind names a haptic cue.
type Kind string

const (
	KindStrongEmotion Kind = "strongEmotion"
	KindMoodChange    Kind = "moodChange"
	KindSuccess       Kind = "success"
	KindError         Kind = "error"
)

// Event is one haptic cue. Target is set on mood changes and holds the
// PAD anchor being moved to.
type Event struct {
	Kind      Kind        `json:"kind"`
	Intensity float64     `json:"intensity"`
	Reason    string      `json:"reason,omitempty"`
	Target    *affect.PAD `json:"target,omitempty"`
	At        time.Time   `json:"at"`
}

// Sink delivers haptic events. Emit may block; callers run it off the tick.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs the event at debug level.
func (s LogSink) Emit(_ context.Context, ev Event) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Debug("haptic", "kind", ev.Kind, "intensity", ev.Intensity, "reason", ev.Reason)
	return nil
}

// Broadcaster is anything that can fan a JSON value out to clients.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

// BroadcastSink forwards events to connected clients wrapped by Wrap.
type BroadcastSink struct {
	Target Broadcaster
	// Wrap builds the wire value for an event. Nil sends the event as is.
	Wrap func(Event) (any, error)
}

// Emit broadcasts the event.
func (s BroadcastSink) Emit(_ context.Context, ev Event) error {
	var v any = ev
	if s.Wrap != nil {
		w, err := s.Wrap(ev)
		if err != nil {
			return err
		}
		v = w
	}
	return s.Target.BroadcastJSON(v)
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

// Emit delivers ev to all sinks, even when some fail.
func (m Multi) Emit(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

// Emit does nothing.
func (Nop) Emit(context.Context, Event) error { return nil }
