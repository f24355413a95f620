// Package poller runs a fetch function on a fixed interval with deterministic
// pause and resume.
//
// A Poller fetches immediately when it becomes active and then once per
// interval. Pause cancels the schedule and any in-flight fetch and waits for
// the loop to exit, so once Pause returns no fetch is running and none is
// queued. Ticks that fire while paused are dropped, never buffered. Resume
// starts over with an immediate fetch.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a Poller.
type State string

const (
	StateActive  State = "active"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// ErrStopped is returned by Start on a poller that has been stopped.
var ErrStopped = errors.New("poller stopped")

// FetchFunc performs one poll. The context is canceled when the poller is
// paused or stopped.
type FetchFunc func(ctx context.Context) error

// Option configures a Poller.
type Option func(*Poller)

// WithOnPause registers a hook that runs after the loop has exited on every
// active to paused transition.
func WithOnPause(fn func()) Option {
	return func(p *Poller) { p.onPause = fn }
}

// WithOnFetch registers a hook that observes every completed fetch with its
// duration and error.
func WithOnFetch(fn func(d time.Duration, err error)) Option {
	return func(p *Poller) { p.onFetch = fn }
}

// Poller owns one polling goroutine at a time.
//
// Start, Pause, Resume and Stop are serialized. They must not be called from
// inside the FetchFunc.
type Poller struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	onPause  func()
	onFetch  func(time.Duration, error)

	lifecycle sync.Mutex

	mu      sync.Mutex
	state   State
	started bool
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	refresh chan struct{}

	syncOnce sync.Once
	synced   chan struct{}
}

// New creates a paused Poller. Call Start to begin polling.
func New(name string, interval time.Duration, fetch FetchFunc, opts ...Option) *Poller {
	p := &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		state:    StatePaused,
		refresh:  make(chan struct{}, 1),
		synced:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the poller name.
func (p *Poller) Name() string { return p.name }

// Interval returns the poll interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start makes the poller active. ctx bounds every later Resume as well.
// Starting an active poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateStopped:
		return ErrStopped
	case StateActive:
		return nil
	}
	p.started = true
	p.parent = ctx
	p.launchLocked()
	slog.Info("poller started", "poller", p.name, "interval", p.interval)
	return nil
}

// Pause stops the schedule and waits for any in-flight fetch to return.
// Pausing a poller that is not active is a no-op.
func (p *Poller) Pause() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if !p.halt(StatePaused) {
		return
	}
	slog.Info("poller paused", "poller", p.name)
	if p.onPause != nil {
		p.onPause()
	}
}

// Resume makes a paused poller active again with an immediate fetch. It is a
// no-op when the poller is active, stopped or was never started.
func (p *Poller) Resume() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePaused || !p.started {
		return
	}
	p.launchLocked()
	slog.Info("poller resumed", "poller", p.name)
}

// Refresh requests one fetch ahead of schedule. Requests are coalesced and
// ignored while the poller is not active.
func (p *Poller) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateActive {
		return
	}
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Stop halts the poller for good.
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.halt(StateStopped)
	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()
}

// WaitForSync blocks until the first fetch completes or the context is canceled.
func (p *Poller) WaitForSync(ctx context.Context) error {
	select {
	case <-p.synced:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// halt cancels the running loop, waits for it and moves to next. It reports
// whether the poller was active.
func (p *Poller) halt(next State) bool {
	p.mu.Lock()
	if p.state != StateActive {
		p.mu.Unlock()
		return false
	}
	p.state = next
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	return true
}

func (p *Poller) launchLocked() {
	// Drop refresh requests left over from the previous run.
	select {
	case <-p.refresh:
	default:
	}

	ctx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = StateActive
	go p.run(ctx, p.done)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)
	p.syncOnce.Do(func() { close(p.synced) })

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		case <-p.refresh:
			p.tick(ctx)
			ticker.Reset(p.interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := p.fetch(ctx)
	d := time.Since(start)
	if p.onFetch != nil {
		p.onFetch(d, err)
	}
	if err != nil && ctx.Err() == nil {
		slog.Warn("poll failed", "poller", p.name, "error", err)
		return
	}
	slog.Debug("poll complete", "poller", p.name, "duration", d)
}
