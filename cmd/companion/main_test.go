package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

func TestParseScript(t *testing.T) {
	events, err := parseScript(strings.NewReader(defaultScript))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, protocol.TypeVision, events[0].Type)

	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Tick, events[i].Tick, "built-in script is ordered")
	}
}

func TestParseScript_Errors(t *testing.T) {
	_, err := parseScript(strings.NewReader(`{"tick": 1}`))
	assert.Error(t, err)

	_, err = parseScript(strings.NewReader("not json"))
	assert.ErrorContains(t, err, "line 1")

	events, err := parseScript(strings.NewReader("# comment\n\n{\"tick\": 3, \"type\": \"interaction\"}\n"))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestParseScript_SortsByTick(t *testing.T) {
	events, err := parseScript(strings.NewReader(`{"tick": 50, "type": "tag", "data": {"tag": "SAD"}}
{"tick": 5, "type": "interaction"}
{"tick": 50, "type": "gesture", "data": {"gesture": "nod"}}
{"tick": 20, "type": "tag", "data": {"tag": "HAPPY"}}`))
	require.NoError(t, err)
	require.Len(t, events, 4)

	var ticks []int
	for _, ev := range events {
		ticks = append(ticks, ev.Tick)
	}
	assert.Equal(t, []int{5, 20, 50, 50}, ticks)
	assert.Equal(t, protocol.TypeTag, events[2].Type, "same-tick events keep file order")
	assert.Equal(t, protocol.TypeGesture, events[3].Type)
}

func TestSimulate_OutOfOrderScriptAppliesOnTime(t *testing.T) {
	frames := runSim(t, `{"tick": 30, "type": "interaction"}
{"tick": 2, "type": "override", "data": {"tag": "SURPRISED"}}`, 10, 1)
	assert.False(t, frames[1].Override)
	assert.True(t, frames[2].Override, "override at tick 2 is not held back by a later line")
}

func runSim(t *testing.T, script string, ticks int, seed uint64) []frame {
	t.Helper()
	events, err := parseScript(strings.NewReader(script))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, simulate(context.Background(), engine.DefaultConfig(), events, ticks, 1, seed, &out))

	var frames []frame
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var f frame
		require.NoError(t, json.Unmarshal(sc.Bytes(), &f))
		frames = append(frames, f)
	}
	require.Len(t, frames, ticks)
	return frames
}

func TestSimulate_Deterministic(t *testing.T) {
	a := runSim(t, defaultScript, 200, 7)
	b := runSim(t, defaultScript, 200, 7)
	assert.Equal(t, a, b)
}

func TestSimulate_TagReachesOutput(t *testing.T) {
	frames := runSim(t, `{"tick": 0, "type": "tag", "data": {"tag": "HAPPY"}}`, 40, 1)

	assert.True(t, frames[0].Override)
	last := frames[len(frames)-1]
	assert.Greater(t, last.PAD.Pleasure, frames[0].PAD.Pleasure)
	assert.Equal(t, uint64(40), last.Seq)
}

func TestSimulate_RejectedEventsDoNotStopTheRun(t *testing.T) {
	frames := runSim(t, `{"tick": 2, "type": "gesture", "data": {"gesture": "wave"}}
{"tick": 3, "type": "unknown"}`, 10, 1)
	assert.Len(t, frames, 10)
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "companion "+Version)
}
