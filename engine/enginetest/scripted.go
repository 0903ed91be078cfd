// Package enginetest provides an in-memory engine.Solver for tests.
package enginetest

import (
	"context"
	"sync"

	"c4bridge/engine"
	"c4bridge/types"
)

// Step is one scripted engine answer.
type Step struct {
	Reply engine.Reply
	Err   error
}

// Move is a Step answering with a 0-based column.
func Move(col int) Step {
	return Step{Reply: engine.Reply{Column: col}}
}

// Fail is a Step answering with err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Scripted replays its steps in order and records every request.
// When the script runs out it answers with engine.ErrNoMove.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []string
	resets   int
	closed   bool
}

var _ engine.Solver = (*Scripted)(nil)

// NewScripted returns a solver answering with steps.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Solve records seq and returns the next scripted step.
func (s *Scripted) Solve(ctx context.Context, seq types.Sequence) (engine.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return engine.Reply{}, engine.ErrUnavailable
	}
	s.requests = append(s.requests, seq.String())
	if err := ctx.Err(); err != nil {
		return engine.Reply{}, err
	}
	if len(s.steps) == 0 {
		return engine.Reply{}, engine.ErrNoMove
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Reply, step.Err
}

// Reset counts new games.
func (s *Scripted) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return nil
}

// Close marks the solver closed; later calls fail with engine.ErrUnavailable.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Requests returns the sequences sent so far.
func (s *Scripted) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Resets returns how many times Reset was called.
func (s *Scripted) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Closed reports whether Close was called.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
