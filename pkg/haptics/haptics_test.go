package haptics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ got []any }

func (r *recorder) BroadcastJSON(v any) error {
	r.got = append(r.got, v)
	return nil
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	var hits int
	boom := errors.New("boom")
	m := Multi{
		SinkFunc(func(context.Context, Event) error { hits++; return boom }),
		SinkFunc(func(context.Context, Event) error { hits++; return nil }),
	}
	err := m.Emit(context.Background(), Event{Kind: KindSuccess})
	assert.Equal(t, 2, hits)
	assert.ErrorIs(t, err, boom)
}

func TestBroadcastSinkWraps(t *testing.T) {
	r := &recorder{}
	s := BroadcastSink{Target: r, Wrap: func(ev Event) (any, error) {
		return map[string]any{"type": "haptic", "data": ev}, nil
	}}
	ev := Event{Kind: KindStrongEmotion, Intensity: 1, At: time.Unix(1, 0)}
	require.NoError(t, s.Emit(context.Background(), ev))
	require.Len(t, r.got, 1)
	assert.Equal(t, ev, r.got[0].(map[string]any)["data"])
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, LogSink{Logger: l}.Emit(context.Background(), Event{Kind: KindMoodChange}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "moodChange", rec["kind"])
}
