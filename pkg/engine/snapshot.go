package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// Snapshot is the immutable state published at the end of a tick.
type Snapshot struct {
	Seq      uint64           `json:"seq"`
	At       time.Time        `json:"at"`
	Session  string           `json:"session"`
	Params   affect.Params    `json:"params"`
	PAD      affect.PAD       `json:"pad"`
	Target   affect.PAD       `json:"target"`
	Tag      affect.Tag       `json:"tag"`
	Mood     affect.Mood      `json:"mood"`
	Pulse    affect.Pulse     `json:"pulse"`
	Fused    affect.Pulse     `json:"fused"`
	Override *affect.Override `json:"override,omitempty"`
	Speaking bool             `json:"speaking"`
	Blinking bool             `json:"blinking"`
}

// Status is the reduced view sent to the live-status publisher.
type Status struct {
	Session  string        `json:"session"`
	Seq      uint64        `json:"seq"`
	At       time.Time     `json:"at"`
	Tag      affect.Tag    `json:"tag"`
	Mood     affect.Mood   `json:"mood"`
	PAD      affect.PAD    `json:"pad"`
	Params   affect.Params `json:"params"`
	Speaking bool          `json:"speaking"`
}

// Status reduces the snapshot for presence publishing.
func (s Snapshot) Status() Status {
	return Status{
		Session:  s.Session,
		Seq:      s.Seq,
		At:       s.At,
		Tag:      s.Tag,
		Mood:     s.Mood,
		PAD:      s.PAD,
		Params:   s.Params,
		Speaking: s.Speaking,
	}
}

// Stats are cumulative engine counters.
type Stats struct {
	Ticks          uint64 `json:"ticks"`
	Signals        uint64 `json:"signals"`
	Rejected       uint64 `json:"rejected"`
	Dropped        uint64 `json:"dropped"`
	Overrides      uint64 `json:"overrides"`
	Blinks         uint64 `json:"blinks"`
	IdleRequests   uint64 `json:"idle_requests"`
	IdleCancelled  uint64 `json:"idle_cancelled"`
	IdleFailures   uint64 `json:"idle_failures"`
	AsyncDropped   uint64 `json:"async_dropped"`
	AsyncFailures  uint64 `json:"async_failures"`
	AsyncPending   int    `json:"async_pending"`
	Violations     uint64 `json:"violations"`
	StatusUpdates  uint64 `json:"status_updates"`
	MoodSaves      uint64 `json:"mood_saves"`
	Subscribers    int    `json:"subscribers"`
	MailboxPending int    `json:"mailbox_pending"`
}

type counters struct {
	ticks, signals, rejected, dropped   atomic.Uint64
	overrides, blinks                   atomic.Uint64
	idleRequests, idleCancelled         atomic.Uint64
	idleFailures                        atomic.Uint64
	asyncDropped, asyncFailures         atomic.Uint64
	violations, statusUpdates, moodSave atomic.Uint64
}

// subscribers fans snapshots out with latest-wins semantics.
type subscribers struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Snapshot
}

func (s *subscribers) add() (int, chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]chan Snapshot)
	}
	s.next++
	ch := make(chan Snapshot, 1)
	s.subs[s.next] = ch
	return s.next, ch
}

func (s *subscribers) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *subscribers) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the stale snapshot the reader has not taken yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *subscribers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
