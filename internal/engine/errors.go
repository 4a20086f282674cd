package engine

import "errors"

// Sentinel errors for engine operations.
var (
	ErrNotLoaded    = errors.New("timer status not loaded yet")
	ErrInvalidScope = errors.New("invalid statistic scope")
	ErrStopped      = errors.New("engine stopped")
)
