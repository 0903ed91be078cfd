// Package engine defines the interface to the external Connect Four solving engine.
package engine

import (
	"context"
	"errors"
	"time"

	"c4bridge/types"
)

var (
	// ErrNoMove is returned when the engine produced no usable best move.
	ErrNoMove = errors.New("engine returned no move")
	// ErrTimeoutSentinel is returned when the engine reported its own search timeout.
	// It wraps ErrNoMove.
	ErrTimeoutSentinel = errors.Join(ErrNoMove, errors.New("engine search timed out"))
	// ErrUnavailable is returned when the engine process is missing or has died.
	ErrUnavailable = errors.New("engine unavailable")
)

// TimeoutColumn is the 1-based column the engine answers with when its own search times out.
const TimeoutColumn = 9

// Reply is the engine's answer to one sequence.
type Reply struct {
	// Column is the best move, 0-based.
	Column int
	// ElapsedMs is the solve time the engine reported, if any.
	ElapsedMs *float64
	// Score is the position score the engine reported, if any.
	Score *int
	// Nodes is the explored node count the engine reported, if any.
	Nodes *int64
	// Solved echoes the sequence the engine says it solved, e.g. "4453, 4 moves".
	Solved string
}

// Solver answers best-move requests for a move sequence.
// Implementations are not required to be safe for concurrent use.
type Solver interface {
	// Solve sends seq to the engine and waits for its best move.
	Solve(ctx context.Context, seq types.Sequence) (Reply, error)

	// Reset is called when a new game starts on this solver.
	Reset(ctx context.Context) error

	// Close shuts down the engine.
	Close() error
}

// Config holds the settings for launching an engine process.
type Config struct {
	Path             string        // Engine binary
	Args             []string      // Arguments, "-f" selects best-move mode
	Dir              string        // Working directory, the engine loads its opening book relative to it
	MaxLines         int           // Lines read per request before giving up
	Timeout          time.Duration // Wall clock budget per request
	RespawnOnNewGame bool          // Restart the process on every new game instead of reusing it
}

// DefaultConfig returns a reasonable default configuration.
func DefaultConfig() Config {
	return Config{
		Path:     "./bin/main",
		Args:     []string{"-f"},
		MaxLines: 100,
		Timeout:  10 * time.Second,
	}
}
