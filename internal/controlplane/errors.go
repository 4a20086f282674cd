package controlplane

import (
	"errors"
	"net/http"

	"github.com/fentz26/teamtimer/internal/engine"
	"github.com/fentz26/teamtimer/internal/gauzy"
	"github.com/fentz26/teamtimer/internal/teamswitch"
)

// Sentinel errors for control plane operations.
var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrMissingTeam = errors.New("team_id is required")
	ErrNoJournal   = errors.New("journal is not available")
)

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	var apiErr *gauzy.APIError
	switch {
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrMissingTeam), errors.Is(err, engine.ErrInvalidScope):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotLoaded), errors.Is(err, teamswitch.ErrSwitchAborted):
		return http.StatusConflict
	case errors.Is(err, gauzy.ErrUnauthorized), errors.Is(err, gauzy.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNoJournal), errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
