package engine

import (
	"math"
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/haptics"
)

// signal is one mailbox entry. apply runs on the owner goroutine at the
// start of the tick that drains it.
type signal interface {
	kind() string
	apply(e *Engine, now time.Time)
}

type pulseSignal struct {
	pulse  affect.Pulse
	source affect.Source
}

func (s pulseSignal) kind() string { return string(s.source) }

func (s pulseSignal) apply(e *Engine, now time.Time) {
	res, err := e.fuser.Ingest(s.pulse, s.source)
	if err != nil {
		e.reject(s.kind(), err)
		return
	}
	if res.MoodChanged {
		e.moodDirty = true
	}

	if res.Gesture != affect.GestureNone {
		e.setOverride(res.OverrideTag, now)
		kind := haptics.KindSuccess
		if res.Gesture == affect.GestureShake {
			kind = haptics.KindError
		}
		e.emit(haptics.Event{Kind: kind, Intensity: 0.6, Reason: res.Gesture.String(), At: now})
		e.interaction(now)
		return
	}

	if res.Strong {
		e.emit(haptics.Event{
			Kind:      haptics.KindStrongEmotion,
			Intensity: math.Max(math.Abs(s.pulse.Valence), s.pulse.Arousal),
			Reason:    string(s.source),
			At:        now,
		})
	}
}

type tagSignal struct {
	tag affect.Tag
}

func (tagSignal) kind() string { return "tag" }

func (s tagSignal) apply(e *Engine, now time.Time) {
	e.baseTag = s.tag
	e.setOverride(s.tag, now)
}

type overrideSignal struct {
	tag affect.Tag
}

func (overrideSignal) kind() string { return "override" }

func (s overrideSignal) apply(e *Engine, now time.Time) {
	e.setOverride(s.tag, now)
}

type speakingSignal struct {
	speaking bool
	level    float64
}

func (speakingSignal) kind() string { return "speaking" }

func (s speakingSignal) apply(e *Engine, now time.Time) {
	e.speaking = s.speaking
	e.level = 0
	if s.speaking {
		e.level = s.level
	}
	e.lastSpeech = now
}

type interactionSignal struct{}

func (interactionSignal) kind() string { return "interaction" }

func (interactionSignal) apply(e *Engine, now time.Time) {
	e.interaction(now)
}

type movementSignal struct {
	movement affect.Movement
}

func (movementSignal) kind() string { return "movement" }

func (s movementSignal) apply(e *Engine, _ time.Time) {
	e.impulse += e.pad.ApplyMovement(s.movement).HeadTilt
}

type resetMoodSignal struct{}

func (resetMoodSignal) kind() string { return "reset_mood" }

func (resetMoodSignal) apply(e *Engine, now time.Time) {
	e.fuser.SetMood(affect.DefaultMood())
	e.moodDirty = true
	e.lastMoodSave = time.Time{}
	e.emit(haptics.Event{Kind: haptics.KindMoodChange, Intensity: 0.3, Reason: "reset", At: now})
}

type idleResultSignal struct {
	id        string
	utterance affect.Utterance
	err       error
}

func (idleResultSignal) kind() string { return "idle_result" }

func (s idleResultSignal) apply(e *Engine, now time.Time) {
	if s.id == e.idleID {
		e.idleCancel()
		e.idleCancel = nil
		e.idleID = ""
	}
	if !e.sched.IdleDone(s.id, now) {
		e.log.Debug("discarding stale idle line", "request_id", s.id)
		return
	}
	if s.err != nil {
		e.stats.idleFailures.Add(1)
		e.metrics.IdleTalk.WithLabelValues("failed").Inc()
		e.log.Warn("idle talk failed", "request_id", s.id, "error", s.err)
		return
	}

	u := s.utterance
	e.setOverride(u.Tag, now)
	e.impulse += e.pad.ApplyMovement(u.Movement).HeadTilt
	e.metrics.IdleTalk.WithLabelValues("spoken").Inc()
	e.log.Info("idle talk", "request_id", s.id, "tag", u.Tag, "movement", u.Movement, "text", u.Text)
	e.speak(u.Text)
}
