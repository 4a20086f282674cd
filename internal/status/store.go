// Package status holds the last authoritative timer status fetched from the
// backend and notifies subscribers when it changes.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"

	"github.com/fentz26/teamtimer/internal/models"
)

// Fetcher retrieves the authoritative timer status.
type Fetcher interface {
	TimerStatus(ctx context.Context) (*models.TimerStatus, error)
}

// Listener is called with the previous and the new status after a change.
type Listener func(prev, next models.TimerStatus)

// maxStaleDiscards bounds how many consecutive decreasing-duration responses
// for the same log are dropped before the server value is taken as is.
const maxStaleDiscards = 3

// Store is the single shared timer status. All writes go through Refresh.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu      sync.RWMutex
	current models.TimerStatus
	loaded  bool

	// issued is the sequence handed to the latest refresh; applied is the
	// sequence of the refresh whose result is current.
	issued  uint64
	applied uint64

	// epoch counts start/stop/edit mutations; appliedEpoch is the epoch the
	// current status was requested under.
	epoch        uint64
	appliedEpoch uint64
	discarded    int

	applyHooks []Listener
	listeners  map[int]Listener
	nextID    int

	// notifyMu serializes apply+notify so listeners see changes in order.
	notifyMu sync.Mutex
}

// New creates an empty store. A nil logger falls back to slog.Default.
func New(f Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fetcher:   f,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Get returns a copy of the current status.
func (s *Store) Get() models.TimerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// View calls fn with the current status while holding the read lock, so
// state kept in step by an OnApply hook can be read as a consistent pair.
// fn must not call back into the store.
func (s *Store) View(fn func(models.TimerStatus)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.current.Clone())
}

// Loaded reports whether at least one refresh succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// MarkMutation records that a timer mutation was issued. A status fetched
// after this point may legitimately report a smaller duration.
func (s *Store) MarkMutation() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

// OnApply registers fn to run while a changed status is being applied,
// before any reader can observe it. fn must be fast and must not call back
// into the store.
func (s *Store) OnApply(fn Listener) {
	s.mu.Lock()
	s.applyHooks = append(s.applyHooks, fn)
	s.mu.Unlock()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Refresh fetches the status once and replaces the stored value.
//
// On error the previous status is kept and the error is returned. Responses
// that arrive out of issue order, or that report the same running log going
// backwards without an intervening mutation, are discarded; in that case the
// current status is returned with a nil error. A log id change always
// applies, and a decreasing value repeated maxStaleDiscards times in a row
// is taken as authoritative.
func (s *Store) Refresh(ctx context.Context) (models.TimerStatus, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	epoch := s.epoch
	s.mu.Unlock()

	fetched, err := s.fetcher.TimerStatus(ctx)
	if err != nil {
		return s.Get(), fmt.Errorf("refresh timer status: %w", err)
	}
	if fetched == nil {
		fetched = &models.TimerStatus{}
	}
	next := fetched.Clone()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.current.Clone()

	if seq < s.applied {
		s.mu.Unlock()
		s.logger.Debug("discarding out-of-order timer status", "seq", seq, "applied", s.applied)
		return prev, nil
	}
	if s.loaded && prev.Running && next.Running && sameLog(prev, next) &&
		next.Duration < prev.Duration && s.epoch == s.appliedEpoch &&
		s.discarded < maxStaleDiscards {
		s.discarded++
		s.mu.Unlock()
		s.logger.Debug("discarding timer status with decreasing duration",
			"prev", prev.Duration, "next", next.Duration, "discarded", s.discarded)
		return prev, nil
	}

	changed := !s.loaded || !cmp.Equal(prev, next)
	s.current = next
	s.loaded = true
	s.applied = seq
	s.appliedEpoch = epoch
	s.discarded = 0

	if changed {
		for _, fn := range s.applyHooks {
			fn(prev, next.Clone())
		}
	}

	var listeners []Listener
	if changed {
		ids := make([]int, 0, len(s.listeners))
		for id := range s.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			listeners = append(listeners, s.listeners[id])
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next.Clone())
	}
	return next.Clone(), nil
}

func sameLog(a, b models.TimerStatus) bool {
	return a.LastLog != nil && b.LastLog != nil && a.LastLog.ID == b.LastLog.ID
}
