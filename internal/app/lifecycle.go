package app

import (
	"fmt"
	"sync"

	"leaudio/internal/logger"
)

// State is the bootstrap state of the application.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateAborted
	StateExited
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateAborted:
		return "aborted"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Lifecycle guards the transitions NotStarted -> Running -> Exited and
// NotStarted -> Aborted. A loop that fails to start also ends Aborted.
// Nothing ever returns to NotStarted.
type Lifecycle struct {
	mu     sync.Mutex
	state  State
	logger logger.Logger
}

func NewLifecycle(log logger.Logger) *Lifecycle {
	return &Lifecycle{
		state:  StateNotStarted,
		logger: log,
	}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

func (l *Lifecycle) transition(from, to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != from {
		return false
	}
	l.state = to
	l.logger.Debug("Lifecycle", "state changed", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	return true
}

func (l *Lifecycle) MarkRunning() bool {
	return l.transition(StateNotStarted, StateRunning)
}

func (l *Lifecycle) MarkAborted() bool {
	return l.transition(StateNotStarted, StateAborted) || l.transition(StateRunning, StateAborted)
}

func (l *Lifecycle) MarkExited() bool {
	return l.transition(StateRunning, StateExited)
}
