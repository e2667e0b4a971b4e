package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// job is one fire-and-forget side effect.
type job struct {
	name string
	fn   func(ctx context.Context) error
}

// dispatcher runs side effects on a single worker so the tick never blocks.
// When the queue is full new jobs are dropped.
type dispatcher struct {
	jobs    chan job
	timeout time.Duration
	log     *slog.Logger

	onDrop func(name string)
	onFail func(name string, err error)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func newDispatcher(size int, timeout time.Duration, log *slog.Logger) *dispatcher {
	d := &dispatcher{
		jobs:    make(chan job, size),
		timeout: timeout,
		log:     log,
		onDrop:  func(string) {},
		onFail:  func(string, error) {},
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.exec(j)
	}
}

func (d *dispatcher) exec(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := j.fn(ctx); err != nil {
		d.log.Warn("async task failed", "task", j.name, "error", err)
		d.onFail(j.name, err)
	}
}

// submit queues fn. It reports false when the job was dropped.
func (d *dispatcher) submit(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.jobs <- job{name: name, fn: fn}:
		return true
	default:
		d.log.Warn("async queue full, dropping task", "task", name)
		d.onDrop(name)
		return false
	}
}

// stop refuses new jobs, lets the worker finish the queue and waits for it.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// pending returns the number of queued jobs.
func (d *dispatcher) pending() int {
	return len(d.jobs)
}
