// Package clock provides the local whole-second ticker that extrapolates a
// running timer between two authoritative status fetches.
package clock

import (
	"sync"
	"time"
)

// Source is a repeating interval, satisfied by a wrapped *time.Ticker.
type Source interface {
	C() <-chan time.Time
	Stop()
}

// SourceFunc creates a Source firing every d.
type SourceFunc func(d time.Duration) Source

type timeSource struct {
	t *time.Ticker
}

func (s timeSource) C() <-chan time.Time { return s.t.C }
func (s timeSource) Stop()               { s.t.Stop() }

// NewTimeSource is the default SourceFunc backed by time.NewTicker.
func NewTimeSource(d time.Duration) Source {
	return timeSource{t: time.NewTicker(d)}
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithSource replaces the interval source.
func WithSource(fn SourceFunc) Option {
	return func(t *Ticker) {
		t.newSource = fn
	}
}

// Ticker counts whole seconds while armed.
//
// A Ticker owns at most one live interval. Stop is synchronous: once it
// returns, ticks still queued on the old interval are dropped.
type Ticker struct {
	mu        sync.Mutex
	seconds   int64
	running   bool
	gen       uint64
	halt      chan struct{}
	listeners []func(int64)
	newSource SourceFunc
}

// New creates a stopped ticker at zero.
func New(opts ...Option) *Ticker {
	t := &Ticker{newSource: NewTimeSource}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start arms the one-second interval. It is a no-op when already running.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.gen++
	t.halt = make(chan struct{})

	go t.loop(t.newSource(time.Second), t.halt, t.gen)
}

// Stop disarms the interval. Any partial second is discarded.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.halt)
	t.halt = nil
}

// Reset zeroes the counter without changing the running state.
func (t *Ticker) Reset() {
	t.mu.Lock()
	t.seconds = 0
	t.mu.Unlock()
}

// Seconds returns the seconds counted since the last Reset.
func (t *Ticker) Seconds() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seconds
}

// Running reports whether the interval is armed.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// OnTick registers fn to be called with the new count after every tick.
// Listeners run on the ticker goroutine and must not block.
func (t *Ticker) OnTick(fn func(seconds int64)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Ticker) loop(src Source, halt <-chan struct{}, gen uint64) {
	defer src.Stop()

	for {
		select {
		case <-halt:
			return
		case <-src.C():
			t.advance(gen)
		}
	}
}

func (t *Ticker) advance(gen uint64) {
	t.mu.Lock()
	// A tick racing Stop (or a Stop/Start pair) belongs to a dead interval.
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.seconds++
	seconds := t.seconds
	listeners := append(([]func(int64))(nil), t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(seconds)
	}
}
