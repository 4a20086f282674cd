// Package optimistic holds the locally-intended timer state shown while a
// start or stop request is in flight.
package optimistic

import (
	"context"
	"sync"
)

// Reporter receives failed actions. Implementations must not block.
type Reporter interface {
	Report(err error)
}

// Action is a state-mutating network call.
type Action func(ctx context.Context) error

// Controller owns the optimistic running flag.
//
// The flag is either unset (defer to the authoritative status) or holds the
// intent of the most recently issued action. It is cleared when that action
// settles, whether it succeeded, failed or panicked.
type Controller struct {
	reporter Reporter

	mu       sync.Mutex
	set      bool
	running  bool
	seq      uint64
	inflight int
}

// New creates a controller. reporter may be nil.
func New(reporter Reporter) *Controller {
	return &Controller{reporter: reporter}
}

// PerformStart shows the timer as running while action is in flight.
func (c *Controller) PerformStart(ctx context.Context, action Action) error {
	return c.Perform(ctx, true, action)
}

// PerformStop shows the timer as stopped while action is in flight.
func (c *Controller) PerformStop(ctx context.Context, action Action) error {
	return c.Perform(ctx, false, action)
}

// Perform sets the flag to target, runs action and clears the flag again.
// Failures are reported and returned; they are never retried.
func (c *Controller) Perform(ctx context.Context, target bool, action Action) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.set = true
	c.running = target
	c.inflight++
	c.mu.Unlock()

	defer c.settle(seq)

	if err := action(ctx); err != nil {
		if c.reporter != nil {
			c.reporter.Report(err)
		}
		return err
	}
	return nil
}

func (c *Controller) settle(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight--
	// An older action settling must not wipe the intent of a newer one.
	if seq == c.seq {
		c.set = false
		c.running = false
	}
}

// Flag returns the optimistic value and whether one is pending.
func (c *Controller) Flag() (running, pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running, c.set
}

// Effective resolves the running state to display.
func (c *Controller) Effective(authoritative bool) bool {
	if running, pending := c.Flag(); pending {
		return running
	}
	return authoritative
}

// InFlight returns the number of unsettled actions.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}
