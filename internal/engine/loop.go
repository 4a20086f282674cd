package engine

import (
	"time"
)

// Start begins the poll loop. The first status and statistics refresh runs
// immediately.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx.Err() != nil {
		return ErrStopped
	}
	if e.started {
		return nil
	}
	e.started = true

	e.wg.Add(1)
	go e.pollLoop()
	e.log.Info("engine started", "session", e.id,
		"poll_interval", e.config.PollInterval, "stats_interval", e.config.StatsInterval)
	return nil
}

// Stop cancels the poll loop, waits for it and stops the ticker.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	e.ticker.Stop()

	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.mu.Unlock()
	e.log.Info("engine stopped", "session", e.id)
}

// pollLoop refreshes the status and the statistics on their intervals.
func (e *Engine) pollLoop() {
	defer e.wg.Done()

	e.pollStatus()
	e.pollStatistics()

	statusTicker := time.NewTicker(e.config.PollInterval)
	defer statusTicker.Stop()
	statsTicker := time.NewTicker(e.config.StatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-statusTicker.C:
			e.pollStatus()
		case <-statsTicker.C:
			e.pollStatistics()
		}
	}
}

// pollStatus refreshes the status. Failures keep the previous status.
func (e *Engine) pollStatus() {
	if _, err := e.RefreshStatus(e.ctx); err != nil && e.ctx.Err() == nil {
		e.log.Warn("timer status refresh failed", "error", err)
	}
}

func (e *Engine) pollStatistics() {
	if err := e.RefreshStatistics(e.ctx); err != nil && e.ctx.Err() == nil {
		e.log.Warn("statistics refresh failed", "error", err)
	}
}
