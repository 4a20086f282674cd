// Package assign adds the tracking employee to the members of the task their
// running timer belongs to.
package assign

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fentz26/teamtimer/internal/models"
)

// TaskUpdater is the task mutation API.
type TaskUpdater interface {
	UpdateTaskMembers(ctx context.Context, taskID string, members []models.Employee) (*models.Task, error)
}

// Input is one evaluation of the current state.
type Input struct {
	Status   models.TimerStatus
	Task     *models.Task
	Employee *models.Employee
}

type pair struct {
	taskID     string
	employeeID string
}

// Coordinator issues at most one membership update per (task, employee) pair.
type Coordinator struct {
	updater TaskUpdater
	log     *slog.Logger

	mu      sync.Mutex
	armed   bool
	claimed map[pair]bool
	calls   int
}

// New creates a coordinator. It ignores evaluations until Arm is called.
func New(updater TaskUpdater, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		updater: updater,
		log:     logger,
		claimed: make(map[pair]bool),
	}
}

// Arm opens the first-load gate.
func (c *Coordinator) Arm() {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
}

// Armed reports whether the first-load gate is open.
func (c *Coordinator) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Evaluate assigns the active task to the employee when every precondition
// holds. Unmet preconditions are not errors.
func (c *Coordinator) Evaluate(ctx context.Context, in Input) (bool, error) {
	if !in.Status.Running || in.Task == nil || in.Task.ID == "" ||
		in.Employee == nil || in.Employee.ID == "" {
		return false, nil
	}
	// The status may have moved on to another task since the task was loaded.
	if active := in.Status.ActiveTaskID(); active != "" && active != in.Task.ID {
		return false, nil
	}

	key := pair{taskID: in.Task.ID, employeeID: in.Employee.ID}

	c.mu.Lock()
	if !c.armed || c.claimed[key] {
		c.mu.Unlock()
		return false, nil
	}
	c.claimed[key] = true
	if in.Task.HasMember(in.Employee.ID) {
		c.mu.Unlock()
		return false, nil
	}
	c.calls++
	c.mu.Unlock()

	members := make([]models.Employee, 0, len(in.Task.Members)+1)
	members = append(members, in.Task.Members...)
	members = append(members, *in.Employee)

	if _, err := c.updater.UpdateTaskMembers(ctx, in.Task.ID, members); err != nil {
		return false, fmt.Errorf("assign task %s to %s: %w", in.Task.ID, in.Employee.ID, err)
	}
	c.log.Info("assigned active task", "task", in.Task.ID, "employee", in.Employee.ID)
	return true, nil
}

// Calls returns how many membership updates were issued.
func (c *Coordinator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
