// Package speech turns synthesized speech into lip-sync signals and talks to
// the local text-to-speech server.
package speech

import (
	"math"
	"sync"
)

// Audio analysis constants.
const (
	SampleRate = 24000 // analysis rate; other rates are resampled
	FrameMS    = 20    // RMS window
	HopMS      = 10    // analysis step
	FrameSize  = SampleRate * FrameMS / 1000
	HopSize    = SampleRate * HopMS / 1000

	// Voice activity hysteresis, dBFS.
	VADOnThreshold  = -35.0
	VADOffThreshold = -45.0
	VADAttackMS     = 40
	VADReleaseMS    = 250

	// Envelope follower.
	EnvFollowGain = 0.65
	EnvAttackMS   = 50
	EnvReleaseMS  = 250

	// Loudness mapping onto [0, 1].
	LevelDBLow    = -46.0
	LevelDBHigh   = -18.0
	LoudnessGamma = 0.9
	SensDBOffset  = 4.0

	// DefaultReportMS is how often the meter reports, matching the engine tick.
	DefaultReportMS = 50
)

var (
	vadAttackHops  = max(1, VADAttackMS/HopMS)
	vadReleaseHops = max(1, VADReleaseMS/HopMS)
	envAttackHops  = max(1, EnvAttackMS/HopMS)
	envReleaseHops = max(1, EnvReleaseMS/HopMS)
)

// LevelFunc receives the voice activity state and a mouth level in [0, 1].
// engine.Engine.NotifySpeakingState has a compatible shape.
type LevelFunc func(speaking bool, level float64) error

// Meter measures speech loudness and reports it at a fixed cadence.
type Meter struct {
	mu     sync.Mutex
	report LevelFunc
	every  int // hops per report

	samples []float64
	hops    int

	vadOn    bool
	vadAbove int
	vadBelow int

	env     float64
	envUp   int
	envDown int

	level float64
}

// NewMeter creates a meter that reports every reportMS milliseconds of
// audio. reportMS <= 0 selects DefaultReportMS.
func NewMeter(report LevelFunc, reportMS int) *Meter {
	if reportMS <= 0 {
		reportMS = DefaultReportMS
	}
	return &Meter{
		report:  report,
		every:   max(1, reportMS/HopMS),
		samples: make([]float64, 0, FrameSize*2),
	}
}

// Reset clears the analysis state.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = m.samples[:0]
	m.hops = 0
	m.vadOn = false
	m.vadAbove = 0
	m.vadBelow = 0
	m.env = 0
	m.envUp = 0
	m.envDown = 0
	m.level = 0
}

// Level returns the most recent level and voice activity state.
func (m *Meter) Level() (speaking bool, level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vadOn, m.level
}

// Feed analyses int16 PCM at sampleRate.
func (m *Meter) Feed(samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s) / 32768.0
	}
	return m.feed(floats, sampleRate)
}

// FeedFloat32 analyses normalised float32 PCM at sampleRate.
func (m *Meter) FeedFloat32(samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s)
	}
	return m.feed(floats, sampleRate)
}

// Silence reports a final not-speaking state, used when playback ends.
func (m *Meter) Silence() error {
	m.Reset()
	if m.report == nil {
		return nil
	}
	return m.report(false, 0)
}

func (m *Meter) feed(floats []float64, sampleRate int) error {
	m.mu.Lock()
	if sampleRate != SampleRate {
		floats = resampleLinear(floats, sampleRate, SampleRate)
	}
	m.samples = append(m.samples, floats...)

	var (
		due      bool
		speaking bool
		level    float64
	)
	for len(m.samples) >= HopSize {
		m.processHop()
		m.hops++
		if m.hops%m.every == 0 {
			due, speaking, level = true, m.vadOn, m.level
		}
	}
	m.mu.Unlock()

	if due && m.report != nil {
		return m.report(speaking, level)
	}
	return nil
}

func (m *Meter) processHop() {
	frame := m.samples[:min(len(m.samples), FrameSize)]
	db := rmsDBFS(frame)
	m.samples = m.samples[HopSize:]

	switch {
	case db >= VADOnThreshold:
		m.vadAbove++
		m.vadBelow = 0
		if !m.vadOn && m.vadAbove >= vadAttackHops {
			m.vadOn = true
		}
	case db <= VADOffThreshold:
		m.vadBelow++
		m.vadAbove = 0
		if m.vadOn && m.vadBelow >= vadReleaseHops {
			m.vadOn = false
		}
	}

	var target float64
	if m.vadOn {
		m.envUp = min(envAttackHops, m.envUp+1)
		m.envDown = 0
		target = float64(m.envUp) / float64(envAttackHops)
	} else {
		m.envDown = min(envReleaseHops, m.envDown+1)
		m.envUp = 0
		target = 1 - float64(m.envDown)/float64(envReleaseHops)
	}
	m.env = clamp(m.env+EnvFollowGain*(target-m.env), 0, 1)
	m.level = clamp(loudness(db)*m.env, 0, 1)
}

func rmsDBFS(samples []float64) float64 {
	if len(samples) == 0 {
		return -100.0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum/float64(len(samples)) + 1e-12)
	return 20.0 * math.Log10(rms+1e-12)
}

func loudness(db float64) float64 {
	t := clamp((db+SensDBOffset-LevelDBLow)/(LevelDBHigh-LevelDBLow), 0, 1)
	return math.Pow(t, LoudnessGamma)
}

func resampleLinear(samples []float64, srIn, srOut int) []float64 {
	if srIn <= 0 || srIn == srOut || len(samples) == 0 {
		return samples
	}
	nOut := int(math.Round(float64(len(samples)) * float64(srOut) / float64(srIn)))
	if nOut <= 1 {
		return nil
	}
	out := make([]float64, nOut)
	for i := range out {
		t := float64(i) / float64(nOut-1) * float64(len(samples)-1)
		idx := int(t)
		frac := t - float64(idx)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
		} else {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
