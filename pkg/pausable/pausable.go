// Package pausable implements an operator-controlled circuit breaker for
// value-moving entry points.
package pausable

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnauthorized  = errors.New("pausable: caller is not the operator")
	ErrAlreadyPaused = errors.New("pausable: already paused")
	ErrNotPaused     = errors.New("pausable: not paused")
	ErrPaused        = errors.New("pausable: paused")
)

// State is the gate's position
type State uint8

const (
	Active State = iota
	Paused
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*s = Active
	case "paused":
		*s = Paused
	default:
		return fmt.Errorf("unknown pause state %q", b)
	}
	return nil
}

// Gate holds the pause flag. Guarded calls hold the read side for their
// whole duration; transitions take the write side.
type Gate struct {
	mu       sync.RWMutex
	operator common.Address
	state    State
}

// New creates an Active gate owned by operator
func New(operator common.Address) *Gate {
	return &Gate{operator: operator, state: Active}
}

// Operator returns the only identity allowed to pause and unpause
func (g *Gate) Operator() common.Address {
	return g.operator
}

// State returns the current state
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Paused reports whether the gate is Paused
func (g *Gate) Paused() bool {
	return g.State() == Paused
}

// Pause moves Active -> Paused
func (g *Gate) Pause(caller common.Address) error {
	return g.transition(caller, Active, Paused, ErrAlreadyPaused)
}

// Unpause moves Paused -> Active
func (g *Gate) Unpause(caller common.Address) error {
	return g.transition(caller, Paused, Active, ErrNotPaused)
}

func (g *Gate) transition(caller common.Address, from, to State, wrongState error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.operator {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	if g.state != from {
		return wrongState
	}
	g.state = to
	return nil
}

// WhenNotPaused runs fn only if the gate is Active. No transition can
// happen while fn runs.
func (g *Gate) WhenNotPaused(fn func() error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.state == Paused {
		return ErrPaused
	}
	return fn()
}

// Restore sets the state without an operator check. It is meant for
// reloading persisted state, never for serving requests.
func (g *Gate) Restore(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}
