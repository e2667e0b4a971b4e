package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/haptics"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h, cancel
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func TestBroadcastTopics(t *testing.T) {
	h, _ := startHub(t)

	all := NewClient(h, nil, nil, nil)
	haptic := NewClient(h, nil, NewTopics(protocol.TypeHaptic), nil)
	require.NotNil(t, all)
	require.NotNil(t, haptic)
	assert.Equal(t, 2, h.ClientCount())

	params, err := protocol.NewParamsMessage(1, affect.Params{}, affect.TagHappy, false, false)
	require.NoError(t, err)
	require.NoError(t, h.BroadcastJSON(params))

	hm, err := protocol.NewHapticMessage(hapticEvent())
	require.NoError(t, err)
	require.NoError(t, h.BroadcastJSON(hm))

	assert.Equal(t, protocol.TypeParams, recv(t, all).Kind)
	assert.Equal(t, protocol.TypeHaptic, recv(t, all).Kind)

	got := recv(t, haptic)
	assert.Equal(t, protocol.TypeHaptic, got.Kind)
	var msg protocol.Message
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, protocol.TypeHaptic, msg.Type)
	assert.Empty(t, haptic.send)
}

func TestUnregisterAndShutdown(t *testing.T) {
	h, cancel := startHub(t)

	a := NewClient(h, nil, nil, nil)
	b := NewClient(h, nil, nil, nil)
	h.unregister <- a
	_, ok := <-a.send
	assert.False(t, ok)
	assert.Equal(t, 1, h.ClientCount())

	cancel()
	<-h.Done()
	_, ok = <-b.send
	assert.False(t, ok)
	assert.Zero(t, h.ClientCount())
	assert.False(t, h.IsRunning())
	assert.Nil(t, NewClient(h, nil, nil, nil), "registering after shutdown")
}

func TestSlowClientDropped(t *testing.T) {
	h, _ := startHub(t)
	c := NewClient(h, nil, nil, nil)

	for i := 0; i < cap(c.send)+1; i++ {
		h.Broadcast(Message{Data: []byte("x")})
		time.Sleep(50 * time.Microsecond)
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := New("idle", nil) // not running
	for i := 0; i < 300; i++ {
		h.Broadcast(Message{Data: []byte("x")})
	}
	assert.Equal(t, uint64(300-cap(h.broadcast)), h.Dropped())
}

func TestReplyOnlyToRegistered(t *testing.T) {
	h, _ := startHub(t)
	c := NewClient(h, nil, nil, nil)

	c.reply([]byte("pong"))
	assert.Equal(t, "pong", string(recv(t, c).Data))

	h.unregister <- c
	<-c.send
	c.reply([]byte("late"))
}

func TestNewClientVisibleOnReturn(t *testing.T) {
	h, _ := startHub(t)
	for i := 1; i <= 200; i++ {
		c := NewClient(h, nil, nil, nil)
		require.NotNil(t, c)
		require.Equal(t, i, h.ClientCount(), "client %d not registered on return", i)
	}
}

func TestRenderer(t *testing.T) {
	h, _ := startHub(t)
	r := Renderer{Hub: h}

	r.Render(engine.Snapshot{Seq: 1})
	assert.Empty(t, h.broadcast, "no clients, nothing encoded")

	c := NewClient(h, nil, nil, nil)
	r.Render(engine.Snapshot{Seq: 9, Tag: affect.TagSad, Params: affect.Params{EyeOpen: 1}})

	var msg protocol.Message
	require.NoError(t, json.Unmarshal(recv(t, c).Data, &msg))
	data, err := msg.GetParamsData()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), data.Seq)
	assert.Equal(t, affect.TagSad, data.Tag)
	assert.Equal(t, 1.0, data.Params.EyeOpen)

	var _ engine.Renderer = r
}

func hapticEvent() haptics.Event {
	return haptics.Event{Kind: haptics.KindSuccess, Intensity: 0.6}
}
