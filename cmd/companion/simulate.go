package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/adapter"
	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/protocol"
	"github.com/teslashibe/go-companion/pkg/store"
)

// scriptEvent is one line of a simulation script:
//
//	{"tick": 20, "type": "vision", "data": {"valence": 0.8, "arousal": 0.6}}
type scriptEvent struct {
	Tick int                  `json:"tick"`
	Type protocol.MessageType `json:"type"`
	Data json.RawMessage      `json:"data,omitempty"`
}

const defaultScript = `
{"tick": 10, "type": "vision", "data": {"valence": 0.8, "arousal": 0.4, "attention": 0.9}}
{"tick": 11, "type": "vision", "data": {"valence": 0.9, "arousal": 0.5, "attention": 0.9}}
{"tick": 40, "type": "tag", "data": {"tag": "HAPPY"}}
{"tick": 80, "type": "speaking", "data": {"speaking": true, "level": 0.7}}
{"tick": 85, "type": "speaking", "data": {"speaking": true, "level": 0.3}}
{"tick": 90, "type": "speaking", "data": {"speaking": true, "level": 0.8}}
{"tick": 95, "type": "speaking", "data": {"speaking": false, "level": 0}}
{"tick": 120, "type": "gesture", "data": {"gesture": "shake"}}
{"tick": 160, "type": "override", "data": {"tag": "SURPRISED"}}
{"tick": 170, "type": "movement", "data": {"movement": "bounce"}}
{"tick": 240, "type": "voice", "data": {"valence": -0.6, "arousal": 0.3, "focus": 0.4, "confidence": 0.8}}
`

// frame is the compact per-tick output line.
type frame struct {
	Seq      uint64        `json:"seq"`
	T        float64       `json:"t"`
	Tag      affect.Tag    `json:"tag"`
	PAD      affect.PAD    `json:"pad"`
	Mood     affect.Mood   `json:"mood"`
	Params   affect.Params `json:"params"`
	Override bool          `json:"override"`
	Speaking bool          `json:"speaking"`
	Blinking bool          `json:"blinking"`
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		ticks      int
		every      int
		seed       uint64
		scriptPath string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted headless session and print snapshots as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = strings.NewReader(defaultScript)
			if scriptPath != "" {
				f, err := os.Open(scriptPath)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			events, err := parseScript(r)
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), opts.cfg.Engine, events, ticks, every, seed, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 300, "number of ticks to run")
	cmd.Flags().IntVar(&every, "every", 10, "print every n-th tick")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed for autonomous behaviours")
	cmd.Flags().StringVar(&scriptPath, "script", "", "JSON-lines event script (default: built-in demo)")
	return cmd
}

func parseScript(r io.Reader) ([]scriptEvent, error) {
	var events []scriptEvent
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ev scriptEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("script line %d: %w", line, err)
		}
		if ev.Type == "" || ev.Tick < 0 {
			return nil, fmt.Errorf("script line %d: need a type and a non-negative tick", line)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// Lines may be out of order; same-tick events keep their file order.
	sort.SliceStable(events, func(i, j int) bool { return events[i].Tick < events[j].Tick })
	return events, nil
}

// simulate drives the engine on a virtual clock so output depends only on
// the script and the seed. Idle talk is off: it needs a live line source.
func simulate(ctx context.Context, cfg engine.Config, events []scriptEvent, ticks, every int, seed uint64, out io.Writer) error {
	if every <= 0 {
		every = 1
	}
	cfg.Behavior.IdleTalk = false

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start

	eng, err := engine.New(ctx, cfg, engine.Deps{
		Store:   store.NewRepository(store.NewMemory()),
		Logger:  log.L(),
		Rand:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Now:     func() time.Time { return now },
		Session: "simulation",
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	enc := json.NewEncoder(out)
	next := 0

	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for next < len(events) && events[next].Tick <= i {
			ev := events[next]
			next++
			if err := adapter.Dispatch(eng, &protocol.Message{Type: ev.Type, Data: ev.Data}); err != nil {
				log.Warn("script event rejected", "tick", ev.Tick, "type", ev.Type, "error", err)
			}
		}

		now = start.Add(time.Duration(i) * cfg.TickRate)
		snap := eng.Step(now)
		if i%every != 0 && i != ticks-1 {
			continue
		}
		if err := enc.Encode(frame{
			Seq:      snap.Seq,
			T:        now.Sub(start).Seconds(),
			Tag:      snap.Tag,
			PAD:      snap.PAD,
			Mood:     snap.Mood,
			Params:   snap.Params,
			Override: snap.Override != nil,
			Speaking: snap.Speaking,
			Blinking: snap.Blinking,
		}); err != nil {
			return err
		}
	}
	return nil
}
