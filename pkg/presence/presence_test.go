package presence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/haptics"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:           "127.0.0.1",
		Port:           -1, // Random port
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 2048,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestPublishStatus(t *testing.T) {
	server := startTestNATSServer(t)
	nc, closeConn, err := Connect(server.ClientURL(), "test", nil)
	require.NoError(t, err)
	defer closeConn()

	sub, err := nc.SubscribeSync("companion.s1.>")
	require.NoError(t, err)

	p := NewPublisher(nc, "s1", nil)
	st := engine.Status{Session: "s1", Seq: 42, Tag: affect.TagHappy, Mood: affect.DefaultMood()}
	require.NoError(t, p.PublishStatus(context.Background(), st))
	require.NoError(t, p.Emit(context.Background(), haptics.Event{Kind: haptics.KindMoodChange, Intensity: 0.3}))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "companion.s1.status", msg.Subject)
	var got engine.Status
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, uint64(42), got.Seq)
	assert.Equal(t, affect.TagHappy, got.Tag)

	msg, err = sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, HapticSubject("s1"), msg.Subject)
	var ev haptics.Event
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, haptics.KindMoodChange, ev.Kind)
}

func TestPublishAfterClose(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	nc.Close()

	p := NewPublisher(nc, "s1", nil)
	assert.Error(t, p.PublishStatus(context.Background(), engine.Status{}))
}

func TestPublishCancelled(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewPublisher(nc, "s1", nil).PublishStatus(ctx, engine.Status{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNop(t *testing.T) {
	var p engine.StatusPublisher = Nop{}
	assert.NoError(t, p.PublishStatus(context.Background(), engine.Status{}))

	var _ engine.StatusPublisher = (*Publisher)(nil)
	var _ haptics.Sink = (*Publisher)(nil)
}
