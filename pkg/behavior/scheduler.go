// Package behavior runs the autonomous avatar behaviours: blinking, gaze
// saccades and idle talk. Every behaviour is a deadline checked on the
// owner's tick, never a timer of its own.
package behavior

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-companion/pkg/affect"
)

// IdleRequest asks the owner to fetch and speak an idle line.
type IdleRequest struct {
	ID string
	At time.Time
}

// State is what the behaviours contribute to one tick.
type State struct {
	Blinking   bool
	BlinkStart bool
	GazeX      float64
	GazeY      float64
	Saccade    bool
	Idle       *IdleRequest
}

// Scheduler owns the behaviour timers. It is not safe for concurrent use.
type Scheduler struct {
	cfg Config
	rng *rand.Rand

	started bool

	blinking   bool
	blinked    bool
	blinkStart time.Time

	gazeX, gazeY float64
	nextSaccade  time.Time

	quietSince time.Time
	inFlight   string
}

// New creates a scheduler drawing from rng. A nil rng gets a fixed seed.
func New(cfg Config, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &Scheduler{cfg: cfg, rng: rng}
}

// Tick advances every behaviour to now. dt is the real time since the
// previous tick and scales the blink probability.
func (s *Scheduler) Tick(now time.Time, dt time.Duration, speaking bool) State {
	if !s.started {
		s.started = true
		s.quietSince = now
		s.nextSaccade = now.Add(s.saccadeDelay())
	}

	var st State
	st.BlinkStart = s.tickBlink(now, dt)
	st.Blinking = s.blinking
	st.Saccade = s.tickSaccade(now)
	st.GazeX, st.GazeY = s.gazeX, s.gazeY
	st.Idle = s.tickIdle(now, speaking)
	return st
}

func (s *Scheduler) tickBlink(now time.Time, dt time.Duration) bool {
	if s.blinking {
		if now.Before(s.blinkStart.Add(s.cfg.BlinkDuration)) {
			return false
		}
		s.blinking = false
	}
	if s.blinked && now.Sub(s.blinkStart) < s.cfg.BlinkMinInterval {
		return false
	}
	if dt <= 0 {
		return false
	}
	ratio := float64(dt) / float64(s.cfg.NominalTick)
	p := 1 - math.Pow(1-s.cfg.BlinkChance, ratio)
	if s.rng.Float64() >= p {
		return false
	}
	s.blinking = true
	s.blinked = true
	s.blinkStart = now
	return true
}

func (s *Scheduler) tickSaccade(now time.Time) bool {
	if now.Before(s.nextSaccade) {
		return false
	}
	if s.rng.Float64() < s.cfg.SaccadeCenter {
		s.gazeX, s.gazeY = 0, 0
	} else {
		r := s.cfg.SaccadeRange
		s.gazeX = affect.Clamp((s.rng.Float64()*2-1)*r, -1, 1)
		s.gazeY = affect.Clamp((s.rng.Float64()*2-1)*r, -1, 1)
	}
	s.nextSaccade = now.Add(s.saccadeDelay())
	return true
}

func (s *Scheduler) saccadeDelay() time.Duration {
	span := s.cfg.SaccadeMax - s.cfg.SaccadeMin
	if span <= 0 {
		return s.cfg.SaccadeMin
	}
	return s.cfg.SaccadeMin + time.Duration(s.rng.Int64N(int64(span)+1))
}

func (s *Scheduler) tickIdle(now time.Time, speaking bool) *IdleRequest {
	if speaking {
		s.quietSince = now
		return nil
	}
	if !s.cfg.IdleTalk || s.inFlight != "" || now.Sub(s.quietSince) < s.cfg.IdleTalkAfter {
		return nil
	}
	req := &IdleRequest{ID: uuid.NewString(), At: now}
	s.inFlight = req.ID
	s.quietSince = now
	return req
}

// Interaction records a user interaction at now. It returns the ID of an
// idle request that was in flight and must be cancelled, or "".
func (s *Scheduler) Interaction(now time.Time) string {
	s.quietSince = now
	id := s.inFlight
	s.inFlight = ""
	return id
}

// IdleDone settles an idle request. It reports false when the request was
// cancelled or superseded and its result must be discarded.
func (s *Scheduler) IdleDone(id string, now time.Time) bool {
	if id == "" || id != s.inFlight {
		return false
	}
	s.inFlight = ""
	s.quietSince = now
	return true
}

// InFlight returns the pending idle request ID, if any.
func (s *Scheduler) InFlight() string { return s.inFlight }

// Blinking reports whether a blink is in progress.
func (s *Scheduler) Blinking() bool { return s.blinking }

// Valid reports whether the blink state is consistent at now.
func (s *Scheduler) Valid(now time.Time) bool {
	if !s.blinking {
		return true
	}
	return !now.Before(s.blinkStart) && !now.After(s.blinkStart.Add(s.cfg.BlinkDuration))
}

// Reset clears every timer. The next Tick starts fresh.
func (s *Scheduler) Reset() {
	*s = Scheduler{cfg: s.cfg, rng: s.rng}
}
