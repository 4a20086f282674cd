package gauzy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for Gauzy API calls.
var (
	ErrUnauthorized = errors.New("gauzy: unauthorized")
	ErrNotFound     = errors.New("gauzy: not found")
	ErrNoSession    = errors.New("gauzy: missing session facts")
)

// APIError is a non-2xx response from the Gauzy API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("gauzy API error (%d) %s %s: %s", e.StatusCode, e.Method, e.Path, body)
}

// Is lets errors.Is match ErrUnauthorized and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
