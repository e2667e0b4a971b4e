package animation

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-companion/pkg/affect"
)

const tick = 50 * time.Millisecond

func TestBaseNeutral(t *testing.T) {
	p := Base(affect.PAD{})
	assert.InDelta(t, 0, p.MouthSmile, 1e-9)
	assert.InDelta(t, 0.35, p.BrowRaise, 1e-9)
	assert.InDelta(t, 0, p.HeadTilt, 1e-9)
	assert.InDelta(t, 0.75, p.EyeOpen, 1e-9)
	assert.InDelta(t, 0.6, p.Glow, 1e-9)
	assert.InDelta(t, 132.5, p.ColorHue, 1e-9)
}

func TestBaseHue(t *testing.T) {
	tests := []struct {
		name string
		pad  affect.PAD
		want float64
	}{
		{"sad is blue", affect.PAD{Pleasure: -1}, 220},
		{"happy is amber", affect.PAD{Pleasure: 1, Arousal: 1}, 45},
		{"angry", affect.PADFor(affect.TagAngry), 25.4},
		{"rage wraps to red", affect.PAD{Pleasure: -1, Arousal: 1}, 355},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Base(tt.pad).ColorHue, 1e-9)
		})
	}
}

func TestSmileFollowsPleasure(t *testing.T) {
	assert.InDelta(t, 0.72, Base(affect.PADFor(affect.TagHappy)).MouthSmile, 1e-9)
	assert.Less(t, Base(affect.PADFor(affect.TagSad)).MouthSmile, 0.0)
	assert.Greater(t,
		Base(affect.PAD{Pleasure: -0.5}).BrowRaise,
		Base(affect.PAD{Pleasure: 0.5}).BrowRaise)
}

func TestBlinkForcesEyesClosed(t *testing.T) {
	m := New(DefaultConfig())
	in := Input{PAD: affect.PAD{}}
	m.Update(in, tick)

	in.Blinking = true
	assert.Equal(t, 0.0, m.Update(in, tick).EyeOpen)

	in.Blinking = false
	assert.InDelta(t, 0.75, m.Update(in, tick).EyeOpen, 1e-6)
}

func TestLipSyncRiseAndDecay(t *testing.T) {
	m := New(DefaultConfig())
	in := Input{Speaking: true, Level: 0.7}

	var p affect.Params
	for i := 0; i < 3; i++ {
		p = m.Update(in, tick)
	}
	assert.Greater(t, p.MouthOpen, 0.4)

	for i := 0; i < 17; i++ {
		p = m.Update(in, tick)
	}
	assert.InDelta(t, 0.7, p.MouthOpen, 0.01)

	in.Speaking = false
	for i := 0; i < 20; i++ {
		p = m.Update(in, tick)
	}
	assert.Less(t, p.MouthOpen, 0.01)
}

func TestSmoothingIsTimeProportional(t *testing.T) {
	in := Input{PAD: affect.PAD{}}
	happy := Input{PAD: affect.PADFor(affect.TagHappy)}

	a := New(DefaultConfig())
	a.Update(in, tick)
	a.Update(happy, tick)
	pa := a.Update(happy, tick)

	b := New(DefaultConfig())
	b.Update(in, tick)
	pb := b.Update(happy, 2*tick)

	assert.InDelta(t, pa.MouthSmile, pb.MouthSmile, 1e-9)
	assert.InDelta(t, pa.BrowRaise, pb.BrowRaise, 1e-9)
}

func TestTiltImpulseDecays(t *testing.T) {
	m := New(DefaultConfig())
	m.Update(Input{}, tick)
	first := m.Update(Input{Impulse: 0.35}, tick).HeadTilt
	assert.Greater(t, first, 0.0)

	var last float64
	for i := 0; i < 200; i++ {
		last = m.Update(Input{}, tick).HeadTilt
	}
	assert.InDelta(t, 0, last, 1e-3)
}

func TestGazeDampedByDominance(t *testing.T) {
	m := New(DefaultConfig())
	in := Input{PAD: affect.PAD{Dominance: 1}, GazeX: 0.35, GazeY: -0.35}
	var p affect.Params
	for i := 0; i < 300; i++ {
		p = m.Update(in, tick)
	}
	assert.InDelta(t, 0.14, p.GazeX, 1e-3)
	assert.InDelta(t, -0.14, p.GazeY, 1e-3)
}

func TestBreathingOscillatesGlow(t *testing.T) {
	m := New(DefaultConfig())
	lo, hi := 1.0, 0.0
	for i := 0; i < 200; i++ {
		g := m.Update(Input{}, tick).Glow
		lo = min(lo, g)
		hi = max(hi, g)
	}
	assert.Greater(t, hi-lo, 0.05)
}

func TestOutputAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	m := New(DefaultConfig())
	for i := 0; i < 5000; i++ {
		in := Input{
			PAD:      affect.NewPAD(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1),
			Blinking: rng.IntN(10) == 0,
			GazeX:    rng.Float64()*2 - 1,
			GazeY:    rng.Float64()*2 - 1,
			Speaking: rng.IntN(2) == 0,
			Level:    rng.Float64(),
		}
		if rng.IntN(20) == 0 {
			in.Impulse = 0.35
		}
		p := m.Update(in, time.Duration(rng.IntN(200))*time.Millisecond)
		require.True(t, p.Finite())
		require.Equal(t, p, p.Clamped())
	}
}

func TestDeterministic(t *testing.T) {
	run := func() affect.Params {
		m := New(DefaultConfig())
		var p affect.Params
		for i := 0; i < 100; i++ {
			p = m.Update(Input{PAD: affect.PADFor(affect.TagExcited), Speaking: i%3 == 0, Level: 0.5}, tick)
		}
		return p
	}
	assert.Equal(t, run(), run())
}
