// Package ui is the terminal front end: a Connect Four board to play against the engine,
// a setup form and a browser for archived games.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"c4bridge/config"
	"c4bridge/types"
)

// BoardUI draws a game and turns key presses into moves.
type BoardUI struct {
	Box       *tview.Box
	game      *Game
	hint      *tview.TextView
	cfg       *config.Config
	selCol    int
	thinking  bool
	status    string
	app       *tview.Application
	styles    []tcell.Color
	infoPanel *GameInfoPanel
	focusMode bool
	timeout   time.Duration
}

// ToggleFocusMode toggles focus mode and returns the new state.
func (b *BoardUI) ToggleFocusMode() bool {
	b.focusMode = !b.focusMode
	b.refreshHint()
	return b.focusMode
}

// SetFocusMode sets focus mode to the given state.
func (b *BoardUI) SetFocusMode(enabled bool) {
	b.focusMode = enabled
	b.refreshHint()
}

// MoveSelection moves the column cursor by h, stopping at the edges.
func (b *BoardUI) MoveSelection(h int) {
	if b.selCol+h < 0 || b.selCol+h >= types.Cols {
		return
	}
	b.selCol += h
}

// SelectedColumn returns the column under the cursor.
func (b *BoardUI) SelectedColumn() int {
	return b.selCol
}

func NewBoard(app *tview.Application, c *config.Config, hint *tview.TextView) *BoardUI {
	board := &BoardUI{
		Box:     tview.NewBox(),
		hint:    hint,
		app:     app,
		selCol:  types.Cols / 2,
		timeout: time.Duration(c.Engine.TimeoutMs)*time.Millisecond + 5*time.Second,
	}
	board.SetConfig(c)
	board.Box.SetDrawFunc(board.draw)
	return board
}

// 2 characters per cell, a cursor row on top and column numbers below.
func (b *BoardUI) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if b.game == nil {
		return x, y, 1, 1
	}
	s := b.game.State()
	left, top := x+2, y+1
	last, hasLast := s.LastMove()

	cursorStyle := tcell.StyleDefault.Foreground(b.styles[4])
	if b.cfg.Theme.DrawCursorBackground {
		cursorStyle = cursorStyle.Background(b.styles[5])
	}
	if !s.Finished && !b.thinking {
		screen.SetContent(left+b.selCol*2, top-1, b.cfg.Theme.Symbols.Cursor, nil, cursorStyle)
	}

	for row := 0; row < types.Rows; row++ {
		for col := 0; col < types.Cols; col++ {
			bg := b.styles[0]
			if hasLast && last.Row == row && last.Col == col && b.cfg.Theme.DrawLastPlayedBackground {
				bg = b.styles[6]
			}
			style := tcell.StyleDefault.Background(bg)
			r := b.cfg.Theme.Symbols.Hole
			switch s.Board[row][col] {
			case types.PlayerOne:
				r = b.cfg.Theme.Symbols.Piece
				style = style.Foreground(b.styles[2])
			case types.PlayerTwo:
				r = b.cfg.Theme.Symbols.Piece
				style = style.Foreground(b.styles[3])
			default:
				style = style.Foreground(b.styles[1])
			}
			screen.SetContent(left+col*2, top+row, r, nil, style)
			screen.SetContent(left+col*2+1, top+row, ' ', nil, tcell.StyleDefault.Background(b.styles[0]))
		}
	}

	for col := 0; col < types.Cols; col++ {
		style := tcell.StyleDefault
		if col == b.selCol {
			style = style.Background(b.styles[5])
		}
		screen.SetContent(left+col*2, top+types.Rows, rune('1'+col), nil, style)
	}
	return x, y, types.Cols*2 + 2, types.Rows + 2
}

// Start attaches a new game and lets the engine open if it moves first.
func (b *BoardUI) Start(g *Game) {
	if b.game != nil {
		b.game.Close()
	}
	b.game = g
	b.thinking = false
	b.status = ""
	b.selCol = types.Cols / 2
	if b.infoPanel != nil {
		b.infoPanel.SetGame(g)
	}
	b.refreshHint()
	b.askEngine()
}

// Drop plays the human's move in col and hands the turn to the engine.
func (b *BoardUI) Drop(col int) {
	if b.game == nil || b.thinking {
		return
	}
	if err := b.game.Play(col); err != nil {
		b.status = err.Error()
		b.refreshHint()
		return
	}
	b.status = ""
	b.refreshHint()
	b.askEngine()
}

// Undo takes back the last exchange.
func (b *BoardUI) Undo() {
	if b.game == nil || b.thinking {
		return
	}
	if b.game.Undo() {
		b.status = "move taken back"
	}
	b.refreshHint()
}

func (b *BoardUI) askEngine() {
	g := b.game
	if g == nil || g.Finished() || g.IsMyTurn() {
		return
	}
	b.thinking = true
	b.refreshHint()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		col, err := g.EngineMove(ctx)
		b.app.QueueUpdateDraw(func() {
			if g != b.game {
				return
			}
			b.thinking = false
			switch {
			case col < 0 && err != nil:
				b.status = "engine failed: " + err.Error()
			case err != nil:
				b.status = fmt.Sprintf("engine fell back to column %d", col+1)
			default:
				b.status = ""
			}
			b.refreshHint()
		})
	}()
}

// Close finishes the current game. A reply still pending for it is dropped when it arrives.
func (b *BoardUI) Close() {
	if b.game == nil {
		return
	}
	b.game.Close()
	b.game = nil
	b.thinking = false
}

func (b *BoardUI) SetConfig(c *config.Config) {
	b.styles = []tcell.Color{
		tcell.PaletteColor(c.Theme.Colors.BoardColor),    // 0
		tcell.PaletteColor(c.Theme.Colors.HoleColor),     // 1
		tcell.PaletteColor(c.Theme.Colors.PlayerOne),     // 2
		tcell.PaletteColor(c.Theme.Colors.PlayerTwo),     // 3
		tcell.PaletteColor(c.Theme.Colors.CursorColorFG), // 4
		tcell.PaletteColor(c.Theme.Colors.CursorColorBG), // 5
		tcell.PaletteColor(c.Theme.Colors.LastPlayedBG),  // 6
	}
	b.cfg = c
}

func (b *BoardUI) refreshHint() {
	if b.infoPanel != nil {
		b.infoPanel.Refresh()
	}

	if b.focusMode {
		b.hint.SetText("  f to toggle")
		return
	}
	if b.game == nil {
		b.hint.SetText("")
		return
	}

	var statusLine, turnLine, controlsLine string
	s := b.game.State()
	if s.Finished {
		statusLine = "───────── Game Complete ─────────\n"
		turnLine = fmt.Sprintf("  Result: %s\n", s.Outcome)
		controlsLine = "  u undo   q · return to menu"
	} else {
		if b.status != "" {
			statusLine = "  " + b.status + "\n"
		}
		if b.thinking {
			turnLine = "  ◌ Thinking...\n"
		} else {
			turnLine = fmt.Sprintf("  ● Your move (%s)\n", sideName(s.Human))
		}
		controlsLine = "  h/l ←→ move   ⏎ drop   1-7 column   u undo   f focus   q quit"
	}
	b.hint.SetText(statusLine + turnLine + controlsLine)
}

func sideName(p types.Player) string {
	if p == types.PlayerTwo {
		return "Yellow"
	}
	return "Red"
}
