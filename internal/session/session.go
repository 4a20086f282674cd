// Package session holds the authentication facts the engine consumes.
//
// Logging in is handled elsewhere; this package only reads and updates the
// credentials file written by the web login flow.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fentz26/teamtimer/internal/models"
)

// ErrIncomplete is returned by Validate when a required fact is missing.
var ErrIncomplete = errors.New("session is incomplete")

// Manager handles the credentials file.
type Manager struct {
	path  string
	facts models.Session
	mu    sync.RWMutex
}

// Load reads the credentials file at path.
func Load(path string) (*Manager, error) {
	m := &Manager{path: path}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMemory creates a manager that is not backed by a file.
func NewMemory(facts models.Session) *Manager {
	return &Manager{facts: facts}
}

// Facts returns a copy of the current session facts.
func (m *Manager) Facts() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.facts
}

// ActiveTeam returns the id of the active team.
func (m *Manager) ActiveTeam() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.facts.ActiveTeamID
}

// SetActiveTeam changes the active team and persists it.
func (m *Manager) SetActiveTeam(teamID string) error {
	m.mu.Lock()
	prev := m.facts.ActiveTeamID
	m.facts.ActiveTeamID = teamID
	m.mu.Unlock()

	if err := m.save(); err != nil {
		m.mu.Lock()
		m.facts.ActiveTeamID = prev
		m.mu.Unlock()
		return fmt.Errorf("failed to save active team: %w", err)
	}
	return nil
}

// Validate checks that the facts needed to call the API are present.
func (m *Manager) Validate() error {
	f := m.Facts()
	var missing []string
	if f.Token == "" {
		missing = append(missing, "token")
	}
	if f.TenantID == "" {
		missing = append(missing, "tenantId")
	}
	if f.OrganizationID == "" {
		missing = append(missing, "organizationId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}
	return nil
}

// Path returns the credentials file path, or "" for in-memory sessions.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	var facts models.Session
	if err := json.Unmarshal(data, &facts); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}

	m.mu.Lock()
	m.facts = facts
	m.mu.Unlock()
	return nil
}

func (m *Manager) save() error {
	if m.path == "" {
		return nil
	}

	m.mu.RLock()
	data, err := json.MarshalIndent(m.facts, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0600)
}
