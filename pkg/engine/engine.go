// Package engine runs the companion's affect loop. A single owner goroutine
// holds all mutable state and advances it at a fixed rate:
//
//	drain mailbox → expire override → fuse → PAD → behaviours → map → publish
//
// Producers only enqueue signals through the thread-safe Ingest and Notify
// methods. Consumers read immutable Snapshots via Latest or Subscribe.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/animation"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/fusion"
	"github.com/teslashibe/go-companion/pkg/haptics"
	"github.com/teslashibe/go-companion/pkg/override"
	"github.com/teslashibe/go-companion/pkg/pad"
)

// Deps are the engine's injected collaborators. Every field is optional.
type Deps struct {
	Store    Store
	Haptics  haptics.Sink
	Renderer Renderer
	Status   StatusPublisher
	Lines    LineSource
	Speaker  Speaker

	Logger   *slog.Logger
	Registry prometheus.Registerer

	// Rand feeds the autonomous behaviours. Nil seeds from the clock.
	Rand *rand.Rand
	// Now is the clock used by Run. Nil means time.Now.
	Now func() time.Time
	// Session identifies this engine in published status. Empty gets a UUID.
	Session string
}

// Engine is the affect engine.
type Engine struct {
	cfg     Config
	deps    Deps
	log     *slog.Logger
	metrics *Metrics
	session string
	now     func() time.Time

	mailbox  chan signal
	dispatch *dispatcher
	limiter  *rate.Limiter

	lifecycle sync.Mutex
	closed    atomic.Bool
	running   atomic.Bool
	done      chan struct{}
	runWG     sync.WaitGroup
	bg        sync.WaitGroup
	bgCtx     context.Context
	bgCancel  context.CancelFunc

	latest atomic.Pointer[Snapshot]
	subs   subscribers
	stats  counters

	// Owner state. Only touched with owner held.
	owner        sync.Mutex
	fuser        *fusion.Fuser
	pad          *pad.Machine
	sched        *behavior.Scheduler
	over         *override.Manager
	mapper       *animation.Mapper
	personality  affect.Personality
	baseTag      affect.Tag
	lastTick     time.Time
	speaking     bool
	level        float64
	lastSpeech   time.Time
	impulse      float64
	moodDirty    bool
	lastMoodSave time.Time
	idleID       string
	idleCancel   context.CancelFunc
	seq          uint64
}

// New builds an engine. Mood and personality are read once from the store;
// a missing or unreadable entry falls back to the defaults.
func New(ctx context.Context, cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session := deps.Session
	if session == "" {
		session = uuid.NewString()
	}
	logger = logger.With("component", "engine", "session", session)

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	rng := deps.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>32))
	}
	if deps.Lines == nil {
		cfg.Behavior.IdleTalk = false
	}

	mood, personality := loadState(ctx, deps.Store, logger)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:         cfg,
		deps:        deps,
		log:         logger,
		metrics:     NewMetrics(deps.Registry),
		session:     session,
		now:         now,
		mailbox:     make(chan signal, cfg.MailboxSize),
		dispatch:    newDispatcher(cfg.DispatchQueue, cfg.IOTimeout, logger),
		limiter:     rate.NewLimiter(rate.Every(cfg.StatusInterval), 1),
		done:        make(chan struct{}),
		bgCtx:       bgCtx,
		bgCancel:    bgCancel,
		fuser:       fusion.New(cfg.Fusion, mood),
		pad:         pad.New(cfg.PAD),
		sched:       behavior.New(cfg.Behavior, rng),
		over:        override.NewManager(cfg.OverrideDuration),
		mapper:      animation.New(cfg.Animation),
		personality: personality,
		baseTag:     affect.TagNeutral,
	}
	e.dispatch.onDrop = func(string) { e.stats.asyncDropped.Add(1) }
	e.dispatch.onFail = func(name string, _ error) {
		e.stats.asyncFailures.Add(1)
		e.metrics.AsyncFailures.WithLabelValues(name).Inc()
	}
	return e, nil
}

func loadState(ctx context.Context, st Store, log *slog.Logger) (affect.Mood, affect.Personality) {
	mood, personality := affect.DefaultMood(), affect.DefaultPersonality()
	if st == nil {
		return mood, personality
	}
	if m, err := st.LoadMood(ctx); err == nil {
		mood = m
	} else {
		log.Info("using default mood", "reason", err)
	}
	if p, err := st.LoadPersonality(ctx); err == nil {
		personality = p.Clamped()
	} else {
		log.Info("using default personality", "reason", err)
	}
	return mood, personality
}

// Session returns the engine's session ID.
func (e *Engine) Session() string { return e.session }

// Personality returns the trait vector read at construction.
func (e *Engine) Personality() affect.Personality { return e.personality }

// Run drives Step from a ticker until ctx is done or Close is called.
func (e *Engine) Run(ctx context.Context) error {
	e.lifecycle.Lock()
	if e.closed.Load() {
		e.lifecycle.Unlock()
		return ErrClosed
	}
	if !e.running.CompareAndSwap(false, true) {
		e.lifecycle.Unlock()
		return errors.New("engine: already running")
	}
	e.runWG.Add(1)
	e.lifecycle.Unlock()
	defer func() {
		e.running.Store(false)
		e.runWG.Done()
	}()

	ticker := time.NewTicker(e.cfg.TickRate)
	defer ticker.Stop()

	e.log.Info("engine started", "rate_hz", 1/e.cfg.TickRate.Seconds())
	defer e.log.Info("engine stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		case <-ticker.C:
			e.Step(e.now())
		}
	}
}

// Close stops the loop, cancels background work, runs the queued side
// effects, flushes a pending mood write and waits for every goroutine the
// engine started.
func (e *Engine) Close() error {
	e.lifecycle.Lock()
	if e.closed.Swap(true) {
		e.lifecycle.Unlock()
		return nil
	}
	close(e.done)
	e.lifecycle.Unlock()

	e.runWG.Wait()
	e.bgCancel()
	e.bg.Wait()
	e.dispatch.stop()

	var err error
	e.owner.Lock()
	if e.idleCancel != nil {
		e.idleCancel()
		e.idleCancel = nil
	}
	if e.moodDirty && e.deps.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.IOTimeout)
		if err = e.deps.Store.SaveMood(ctx, e.fuser.Mood()); err == nil {
			e.moodDirty = false
			e.stats.moodSave.Add(1)
		}
		cancel()
	}
	e.owner.Unlock()

	e.subs.closeAll()
	if err != nil {
		return fmt.Errorf("engine: final mood save: %w", err)
	}
	return nil
}

// Step runs one tick at now and returns the published snapshot. Run calls it
// from the ticker; tests and the simulate command call it directly with a
// synthetic clock. Time never runs backwards: an earlier now is treated as
// the previous tick time.
func (e *Engine) Step(now time.Time) Snapshot {
	e.owner.Lock()
	defer e.owner.Unlock()
	start := time.Now()

	var dt time.Duration
	if !e.lastTick.IsZero() {
		if now.Before(e.lastTick) {
			now = e.lastTick
		}
		dt = now.Sub(e.lastTick)
	}
	e.lastTick = now

	e.drain(now)

	if e.over.Expire(now) {
		e.log.Debug("override expired")
	}
	if e.speaking && now.Sub(e.lastSpeech) > e.cfg.SpeakingTimeout {
		e.speaking = false
		e.level = 0
	}

	fused := e.fuser.Held()
	effective, active := e.over.Effective(fused, now)
	tag := e.baseTag
	var current *affect.Override
	if o, ok := e.over.Active(now); ok && active {
		tag = o.Tag
		current = &o
	}
	e.retarget(tag, now)
	e.pad.SetPulse(effective)
	e.pad.Tick(dt)

	st := e.sched.Tick(now, dt, e.speaking)
	if st.BlinkStart {
		e.stats.blinks.Add(1)
		e.metrics.Blinks.Inc()
	}
	if st.Idle != nil {
		e.startIdleTalk(*st.Idle)
	}

	params := e.mapper.Update(animation.Input{
		PAD:      e.pad.Current(),
		Blinking: st.Blinking,
		GazeX:    st.GazeX,
		GazeY:    st.GazeY,
		Speaking: e.speaking,
		Level:    e.level,
		Impulse:  e.impulse,
	}, dt)
	e.impulse = 0

	if what := e.violation(now, params); what != "" {
		params = e.resetAfterViolation(what)
		current = nil
		effective = e.fuser.Held()
		fused = effective
		st.Blinking = false
	}

	e.maybeSaveMood(now)

	e.seq++
	snap := Snapshot{
		Seq:      e.seq,
		At:       now,
		Session:  e.session,
		Params:   params,
		PAD:      e.pad.Current(),
		Target:   e.pad.Target(),
		Tag:      e.pad.Tag(),
		Mood:     e.fuser.Mood(),
		Pulse:    effective,
		Fused:    fused,
		Override: current,
		Speaking: e.speaking,
		Blinking: st.Blinking,
	}
	e.publish(now, snap)

	e.stats.ticks.Add(1)
	e.metrics.Ticks.Inc()
	e.metrics.TickDuration.Observe(time.Since(start).Seconds())
	return snap
}

// drain applies every signal queued before the tick started. Signals that
// arrive meanwhile wait for the next tick.
func (e *Engine) drain(now time.Time) {
	n := len(e.mailbox)
	for i := 0; i < n; i++ {
		sig := <-e.mailbox
		sig.apply(e, now)
		e.stats.signals.Add(1)
		e.metrics.Signals.WithLabelValues(sig.kind()).Inc()
	}
}

func (e *Engine) retarget(tag affect.Tag, now time.Time) {
	if tag == e.pad.Tag() {
		return
	}
	from, to := affect.PADFor(e.pad.Tag()), affect.PADFor(tag)
	e.pad.SetTarget(tag)
	e.emit(haptics.Event{
		Kind:      haptics.KindMoodChange,
		Intensity: affect.Clamp(from.Distance(to)/2, 0, 1),
		Reason:    tag.String(),
		Target:    &to,
		At:        now,
	})
}

func (e *Engine) setOverride(tag affect.Tag, now time.Time) {
	o := e.over.Set(tag, now)
	e.stats.overrides.Add(1)
	e.metrics.Overrides.WithLabelValues(tag.String()).Inc()
	e.log.Debug("override set", "id", o.ID, "tag", tag, "expires_at", o.ExpiresAt)
	e.retarget(tag, now)
}

func (e *Engine) interaction(now time.Time) {
	id := e.sched.Interaction(now)
	if id == "" {
		return
	}
	if id == e.idleID && e.idleCancel != nil {
		e.idleCancel()
	}
	e.idleCancel = nil
	e.idleID = ""
	e.stats.idleCancelled.Add(1)
	e.metrics.IdleTalk.WithLabelValues("cancelled").Inc()
	e.log.Debug("idle talk cancelled by interaction", "request_id", id)
}

func (e *Engine) startIdleTalk(req behavior.IdleRequest) {
	prompt := IdlePrompt{
		RequestID:   req.ID,
		Personality: e.personality,
		Mood:        e.fuser.Mood(),
		Tag:         e.pad.Tag(),
		PAD:         e.pad.Current(),
	}
	ctx, cancel := context.WithTimeout(e.bgCtx, e.cfg.IdleTalkTimeout)
	e.idleID = req.ID
	e.idleCancel = cancel
	e.stats.idleRequests.Add(1)
	e.metrics.IdleTalk.WithLabelValues("requested").Inc()
	e.log.Debug("requesting idle line", "request_id", req.ID)

	lines := e.deps.Lines
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		u, err := lines.IdleLine(ctx, prompt)
		e.deliver(idleResultSignal{id: req.ID, utterance: u, err: err})
	}()
}

func (e *Engine) speak(text string) {
	if e.deps.Speaker == nil || text == "" {
		return
	}
	speaker := e.deps.Speaker
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		ctx, cancel := context.WithTimeout(e.bgCtx, e.cfg.IdleTalkTimeout)
		defer cancel()
		if err := speaker.Speak(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
			e.stats.asyncFailures.Add(1)
			e.metrics.AsyncFailures.WithLabelValues("speak").Inc()
			e.log.Warn("speak failed", "error", err)
		}
	}()
}

// deliver hands an async result back to the owner. Unlike producer signals
// it waits for room, so results are never lost while the engine is open.
func (e *Engine) deliver(sig signal) {
	select {
	case e.mailbox <- sig:
	case <-e.done:
	}
}

func (e *Engine) emit(ev haptics.Event) {
	sink := e.deps.Haptics
	if sink == nil {
		return
	}
	e.dispatch.submit("haptic", func(ctx context.Context) error {
		return sink.Emit(ctx, ev)
	})
}

func (e *Engine) maybeSaveMood(now time.Time) {
	if !e.moodDirty || e.deps.Store == nil {
		return
	}
	if !e.lastMoodSave.IsZero() && now.Sub(e.lastMoodSave) < e.cfg.MoodSaveInterval {
		return
	}
	m := e.fuser.Mood()
	st := e.deps.Store
	if e.dispatch.submit("save_mood", func(ctx context.Context) error {
		return st.SaveMood(ctx, m)
	}) {
		e.moodDirty = false
		e.lastMoodSave = now
		e.stats.moodSave.Add(1)
	}
}

func (e *Engine) publish(now time.Time, snap Snapshot) {
	e.latest.Store(&snap)
	e.subs.publish(snap)
	if e.deps.Renderer != nil {
		e.deps.Renderer.Render(snap)
	}
	e.metrics.observe(snap)

	if e.deps.Status == nil || !e.limiter.AllowN(now, 1) {
		return
	}
	pub, status := e.deps.Status, snap.Status()
	if e.dispatch.submit("publish_status", func(ctx context.Context) error {
		return pub.PublishStatus(ctx, status)
	}) {
		e.stats.statusUpdates.Add(1)
	}
}

// violation returns a description of the first broken invariant, or "".
func (e *Engine) violation(now time.Time, p affect.Params) string {
	switch {
	case !e.pad.Current().Finite(), !e.pad.Target().Finite():
		return "non-finite PAD"
	case !p.Finite():
		return "non-finite params"
	case !e.over.Valid():
		return "override expires before it was set"
	case !e.sched.Valid(now):
		return "blink outlived its deadline"
	}
	return ""
}

// resetAfterViolation handles a broken invariant. In debug it panics; otherwise it falls
// back to NEUTRAL with no override and recomputes the params.
func (e *Engine) resetAfterViolation(what string) affect.Params {
	e.stats.violations.Add(1)
	if e.cfg.Debug {
		panic("engine: invariant violated: " + what)
	}
	e.log.Error("invariant violated, resetting to neutral", "violation", what)

	e.pad.Reset()
	e.over.Clear()
	e.fuser.Reset()
	e.mapper.Reset()
	e.sched.Reset()
	if e.idleCancel != nil {
		e.idleCancel()
		e.idleCancel = nil
	}
	e.idleID = ""
	e.baseTag = affect.TagNeutral
	e.speaking = false
	e.level = 0
	e.impulse = 0
	return e.mapper.Update(animation.Input{PAD: e.pad.Current()}, 0)
}

// enqueue hands a producer signal to the owner without blocking.
func (e *Engine) enqueue(sig signal) error {
	if e.closed.Load() {
		return ErrClosed
	}
	select {
	case e.mailbox <- sig:
		return nil
	default:
		e.stats.dropped.Add(1)
		e.metrics.Dropped.Inc()
		e.log.Warn("mailbox full, dropping signal", "kind", sig.kind())
		return ErrMailboxFull
	}
}

func (e *Engine) reject(kind string, err error) {
	e.stats.rejected.Add(1)
	e.metrics.Rejected.WithLabelValues(kind).Inc()
	e.log.Warn("rejected signal", "kind", kind, "error", err)
}

// IngestVisionPulse queues a pulse from face analysis.
func (e *Engine) IngestVisionPulse(p affect.Pulse) error {
	return e.ingestPulse(p, affect.SourceVision)
}

// IngestVoicePulse queues a pulse from voice or chat emotion analysis.
func (e *Engine) IngestVoicePulse(p affect.Pulse) error {
	return e.ingestPulse(p, affect.SourceVoice)
}

func (e *Engine) ingestPulse(p affect.Pulse, src affect.Source) error {
	if err := p.Validate(); err != nil {
		e.reject(string(src), err)
		return fmt.Errorf("engine: %s pulse: %w", src, err)
	}
	return e.enqueue(pulseSignal{pulse: p, source: src})
}

// IngestEmotionTag queues a named emotion. It retargets the PAD anchor and
// starts an override. An unknown name is applied as NEUTRAL and reported
// with affect.ErrUnknownTag.
func (e *Engine) IngestEmotionTag(name string) error {
	tag, perr := affect.ParseTag(name)
	if perr != nil {
		e.log.Warn("unknown emotion tag, using NEUTRAL", "tag", name)
	}
	if err := e.enqueue(tagSignal{tag: tag}); err != nil {
		return err
	}
	if perr != nil {
		return fmt.Errorf("engine: %w", perr)
	}
	return nil
}

// IngestGesture queues a head gesture. Gestures bypass smoothing and start
// an override plus a haptic cue.
func (e *Engine) IngestGesture(g affect.Gesture) error {
	if g == affect.GestureNone {
		err := fmt.Errorf("%w: empty gesture", affect.ErrInvalidSignal)
		e.reject(string(affect.SourceGesture), err)
		return err
	}
	p := affect.NeutralPulse()
	p.Gesture = g
	return e.ingestPulse(p, affect.SourceGesture)
}

// NotifySpeakingState reports whether the avatar is speaking and the current
// audio level in [0, 1]. Levels outside the range are clamped.
func (e *Engine) NotifySpeakingState(speaking bool, level float64) error {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		err := fmt.Errorf("%w: audio level %v", affect.ErrInvalidSignal, level)
		e.reject("speaking", err)
		return err
	}
	return e.enqueue(speakingSignal{speaking: speaking, level: affect.Clamp(level, 0, 1)})
}

// NotifyUserInteraction resets the idle timer and cancels a pending idle line.
func (e *Engine) NotifyUserInteraction() error {
	return e.enqueue(interactionSignal{})
}

// SetOverride starts a timed override without moving the PAD anchor.
func (e *Engine) SetOverride(tag affect.Tag) error {
	if !tag.Valid() {
		err := fmt.Errorf("%w: tag %d", affect.ErrInvalidSignal, tag)
		e.reject("override", err)
		return err
	}
	return e.enqueue(overrideSignal{tag: tag})
}

// ApplyMovement queues a body-language modifier.
func (e *Engine) ApplyMovement(m affect.Movement) error {
	if !m.Valid() {
		err := fmt.Errorf("%w: movement %d", affect.ErrInvalidSignal, m)
		e.reject("movement", err)
		return err
	}
	return e.enqueue(movementSignal{movement: m})
}

// ResetMood restores the default mood. This is the only way mood is reset.
func (e *Engine) ResetMood() error {
	return e.enqueue(resetMoodSignal{})
}

// Latest returns the most recent snapshot. ok is false before the first tick.
func (e *Engine) Latest() (Snapshot, bool) {
	s := e.latest.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Subscribe returns a channel that always holds the newest snapshot not yet
// read; slow readers skip intermediate ticks. cancel releases the channel.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	id, ch := e.subs.add()
	if e.closed.Load() {
		e.subs.remove(id)
	}
	return ch, func() { e.subs.remove(id) }
}

// Stats returns the cumulative counters.
func (e *Engine) Stats() Stats {
	c := &e.stats
	return Stats{
		Ticks:          c.ticks.Load(),
		Signals:        c.signals.Load(),
		Rejected:       c.rejected.Load(),
		Dropped:        c.dropped.Load(),
		Overrides:      c.overrides.Load(),
		Blinks:         c.blinks.Load(),
		IdleRequests:   c.idleRequests.Load(),
		IdleCancelled:  c.idleCancelled.Load(),
		IdleFailures:   c.idleFailures.Load(),
		AsyncDropped:   c.asyncDropped.Load(),
		AsyncFailures:  c.asyncFailures.Load(),
		AsyncPending:   e.dispatch.pending(),
		Violations:     c.violations.Load(),
		StatusUpdates:  c.statusUpdates.Load(),
		MoodSaves:      c.moodSave.Load(),
		Subscribers:    e.subs.count(),
		MailboxPending: len(e.mailbox),
	}
}
