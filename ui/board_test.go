package ui

import (
	"context"
	"testing"

	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"c4bridge/config"
	"c4bridge/engine"
	"c4bridge/engine/enginetest"
	"c4bridge/service"
	"c4bridge/types"
)

// heldSolver blocks every Solve until release is closed.
type heldSolver struct {
	*enginetest.Scripted
	entered chan struct{}
	release chan struct{}
}

func (h *heldSolver) Solve(ctx context.Context, seq types.Sequence) (engine.Reply, error) {
	h.entered <- struct{}{}
	<-h.release
	return h.Scripted.Solve(ctx, seq)
}

func newTestBoard(t *testing.T) *BoardUI {
	t.Helper()
	cfg := config.DefaultConfig
	return NewBoard(tview.NewApplication(), &cfg, tview.NewTextView())
}

func TestBoardRestartDuringEngineTurn(t *testing.T) {
	held := &heldSolver{
		Scripted: enginetest.NewScripted(enginetest.Move(3)),
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	t.Cleanup(func() { close(held.release) })
	oldSvc := service.New(service.NewRegistry(func(string) engine.Solver { return held }, zerolog.Nop()))

	b := newTestBoard(t)
	first, err := NewGame(oldSvc, "terminal", types.PlayerTwo, "", "c4bridge")
	require.NoError(t, err)
	b.Start(first)
	<-held.entered
	require.True(t, b.thinking, "the engine opens the first game")

	b.Close()
	require.False(t, b.thinking)

	second, _ := newTestGame(t, types.PlayerOne, "", enginetest.Move(3))
	b.Start(second)
	require.False(t, b.thinking, "the new game starts on the human's turn")

	b.Drop(2)
	moves := second.State().Moves
	require.NotEmpty(t, moves, "drops are accepted in the new game")
	require.Equal(t, Placed{Row: types.Rows - 1, Col: 2, Player: types.PlayerOne}, moves[0])
}

func TestBoardMoveSelection(t *testing.T) {
	b := newTestBoard(t)
	require.Equal(t, 3, b.SelectedColumn())
	for i := 0; i < 10; i++ {
		b.MoveSelection(1)
	}
	require.Equal(t, types.Cols-1, b.SelectedColumn())
	for i := 0; i < 10; i++ {
		b.MoveSelection(-1)
	}
	require.Equal(t, 0, b.SelectedColumn())
}
