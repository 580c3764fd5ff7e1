package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/askroom/internal/domain"
)

var (
	ErrNothingStaged     = errors.New("no action staged")
	ErrConfirmInProgress = errors.New("confirmation in progress")
)

type State int

const (
	Idle State = iota
	Staged
	Confirming
)

func (s State) String() string {
	switch s {
	case Staged:
		return "staged"
	case Confirming:
		return "confirming"
	default:
		return "idle"
	}
}

// Executor performs the store mutation behind a confirmed action.
type Executor interface {
	EndRoom(ctx context.Context) error
	DeleteQuestion(ctx context.Context, id domain.QuestionID) error
}

// Outcome tells the caller what to do after a successful confirm.
type Outcome struct {
	Action     Action
	NavigateTo string
}

// Gate holds at most one pending destructive action. Staging again replaces
// the pending action; nothing runs until Confirm.
type Gate struct {
	exec Executor

	mu      sync.Mutex
	state   State
	pending Action
}

func NewGate(exec Executor) *Gate {
	return &Gate{exec: exec}
}

func (g *Gate) Stage(a Action) error {
	if a == nil {
		return ErrUnknownOperation
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Confirming {
		return ErrConfirmInProgress
	}
	g.pending = a
	g.state = Staged
	return nil
}

func (g *Gate) Pending() (Action, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending, g.state == Staged
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Cancel discards the pending action. It reports whether one was discarded.
func (g *Gate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Staged {
		return false
	}
	g.pending = nil
	g.state = Idle
	return true
}

// Confirm runs the pending action once and returns the gate to Idle whether
// or not the mutation succeeded. A failed mutation is returned wrapped.
func (g *Gate) Confirm(ctx context.Context) (Outcome, error) {
	g.mu.Lock()
	switch g.state {
	case Idle:
		g.mu.Unlock()
		return Outcome{}, ErrNothingStaged
	case Confirming:
		g.mu.Unlock()
		return Outcome{}, ErrConfirmInProgress
	}
	action := g.pending
	g.state = Confirming
	g.mu.Unlock()

	err := action.execute(ctx, g.exec)

	g.mu.Lock()
	g.pending = nil
	g.state = Idle
	g.mu.Unlock()

	out := Outcome{Action: action}
	if err != nil {
		return out, fmt.Errorf("%s: %w", action.Operation(), err)
	}
	if action.Operation() == OpEndRoom {
		out.NavigateTo = "/"
	}
	return out, nil
}
