package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"c4bridge/position"
	"c4bridge/record"
	"c4bridge/service"
	"c4bridge/types"
)

var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrGameFinished = errors.New("game is over")
	ErrColumnFull   = errors.New("column is full")
)

// Placed is one piece dropped during a terminal game.
type Placed struct {
	Row, Col int
	Player   types.Player
}

// State is a copy of a game's visible state for drawing.
type State struct {
	Board        types.Board
	Human        types.Player
	Turn         types.Player
	Moves        []Placed
	Finished     bool
	Outcome      string
	LastSource   string
	LastSequence string
	LastElapsed  *float64
}

// LastMove returns the most recent piece, if any.
func (s State) LastMove() (Placed, bool) {
	if len(s.Moves) == 0 {
		return Placed{}, false
	}
	return s.Moves[len(s.Moves)-1], true
}

// Game is a terminal game between a human and the engine, played through the move service.
type Game struct {
	svc     *service.Service
	session string

	mu       sync.Mutex
	state    State
	newGame  bool
	rec      *record.GameRecord
	recFails bool
}

// NewGame starts a game on the given service session. When archiveDir is set the game is
// recorded there as it is played.
func NewGame(svc *service.Service, session string, human types.Player, archiveDir, engineName string) (*Game, error) {
	if !human.Valid() {
		return nil, fmt.Errorf("invalid side %d", human)
	}
	g := &Game{
		svc:     svc,
		session: session,
		newGame: true,
		state: State{
			Human: human,
			Turn:  types.PlayerOne,
		},
	}
	if archiveDir != "" {
		one, two := "You", engineName
		if human == types.PlayerTwo {
			one, two = engineName, "You"
		}
		rec, err := record.NewGameRecord(archiveDir, one, two)
		if err != nil {
			return nil, err
		}
		g.rec = rec
	}
	return g, nil
}

// State returns a copy of the game state.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.state
	s.Moves = append([]Placed(nil), g.state.Moves...)
	return s
}

// IsMyTurn reports whether the human is to move.
func (g *Game) IsMyTurn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.state.Finished && g.state.Turn == g.state.Human
}

// Finished reports whether the game is over.
func (g *Game) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Finished
}

// Play drops the human's piece in col.
func (g *Game) Play(col int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Finished {
		return ErrGameFinished
	}
	if g.state.Turn != g.state.Human {
		return ErrNotYourTurn
	}
	return g.place(col, g.state.Human)
}

// EngineMove asks the service for the engine's move and plays it.
func (g *Game) EngineMove(ctx context.Context) (int, error) {
	g.mu.Lock()
	if g.state.Finished {
		g.mu.Unlock()
		return -1, ErrGameFinished
	}
	side := g.state.Human.Other()
	if g.state.Turn != side {
		g.mu.Unlock()
		return -1, ErrNotYourTurn
	}
	isNew := g.newGame
	req := service.Request{
		SessionID:     g.session,
		Board:         g.state.Board.Grid(),
		CurrentPlayer: int(side),
		ValidMoves:    g.state.Board.LegalColumns(),
		IsNewGame:     &isNew,
	}
	g.mu.Unlock()

	d, err := g.svc.Move(ctx, req)
	if err != nil {
		return -1, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.newGame = false
	g.state.LastSource = d.Source
	g.state.LastSequence = d.Sequence
	g.state.LastElapsed = d.ElapsedMs
	if err := g.place(d.Move, side); err != nil {
		return -1, err
	}
	return d.Move, d.Err
}

// place drops p's piece in col. Callers hold g.mu.
func (g *Game) place(col int, p types.Player) error {
	row := g.state.Board.Drop(col, p)
	if row < 0 {
		return fmt.Errorf("%w: %d", ErrColumnFull, col+1)
	}
	g.state.Moves = append(g.state.Moves, Placed{Row: row, Col: col, Player: p})
	g.state.Turn = p.Other()
	g.record(func(r *record.GameRecord) error { return r.AddMove(col, p) })

	switch w := position.Winner(&g.state.Board); {
	case w == types.PlayerOne:
		g.finish("Red wins")
	case w == types.PlayerTwo:
		g.finish("Yellow wins")
	case g.state.Board.IsFull():
		g.finish("Draw")
	}
	return nil
}

func (g *Game) finish(outcome string) {
	g.state.Finished = true
	g.state.Outcome = outcome
	g.record(func(r *record.GameRecord) error { return r.SetResult(outcome) })
}

// Undo takes back moves up to and including the human's last one.
// It reports whether anything was undone.
func (g *Game) Undo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Turn != g.state.Human && !g.state.Finished {
		return false
	}
	humanMoved := false
	for _, m := range g.state.Moves {
		if m.Player == g.state.Human {
			humanMoved = true
			break
		}
	}
	if !humanMoved {
		return false
	}

	n := 0
	for len(g.state.Moves) > 0 {
		last := g.state.Moves[len(g.state.Moves)-1]
		g.state.Moves = g.state.Moves[:len(g.state.Moves)-1]
		g.state.Board[last.Row][last.Col] = types.Empty
		n++
		if last.Player == g.state.Human {
			break
		}
	}
	g.state.Turn = g.state.Human
	g.state.Finished = false
	g.state.Outcome = ""
	g.record(func(r *record.GameRecord) error {
		if err := r.UndoMoves(n); err != nil {
			return err
		}
		return r.SetResult("?")
	})
	return true
}

// record applies fn to the game record, giving up on the record after the first failure.
func (g *Game) record(fn func(*record.GameRecord) error) {
	if g.rec == nil || g.recFails {
		return
	}
	if err := fn(g.rec); err != nil {
		g.recFails = true
	}
}

// RecordPath returns the file the game is recorded to, if any.
func (g *Game) RecordPath() string {
	if g.rec == nil {
		return ""
	}
	return g.rec.FilePath
}

// Close finishes the record.
func (g *Game) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rec == nil {
		return nil
	}
	return g.rec.Close()
}
