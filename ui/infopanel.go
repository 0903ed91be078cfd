package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"c4bridge/types"
)

// GameInfoPanel displays game information and move history alongside the board.
type GameInfoPanel struct {
	box  *tview.TextView
	game *Game
}

// NewGameInfoPanel creates a new game info panel.
func NewGameInfoPanel() *GameInfoPanel {
	panel := &GameInfoPanel{
		box: tview.NewTextView(),
	}

	panel.box.SetDynamicColors(true)
	panel.box.SetBorder(false)
	panel.box.SetTextAlign(tview.AlignLeft)

	return panel
}

// Box returns the underlying tview component.
func (p *GameInfoPanel) Box() *tview.TextView {
	return p.box
}

// SetGame points the panel at g.
func (p *GameInfoPanel) SetGame(g *Game) {
	p.game = g
	p.Refresh()
}

// Refresh redraws the panel text from the game state.
func (p *GameInfoPanel) Refresh() {
	if p.game == nil {
		p.box.SetText("")
		return
	}
	p.box.SetText(infoText(p.game.State()))
}

func infoText(s State) string {
	var b strings.Builder

	b.WriteString("[white::b]Game Info[-:-:-]\n")
	b.WriteString("[dimgray]──────────────────────[-:-:-]\n")
	fmt.Fprintf(&b, "[white]You:[-:-:-] %s\n", sideName(s.Human))
	fmt.Fprintf(&b, "[white]Move:[-:-:-] %d\n", len(s.Moves))

	if s.LastSource != "" {
		b.WriteString("\n[white::b]Engine[-:-:-]\n")
		b.WriteString("[dimgray]──────────────────────[-:-:-]\n")
		fmt.Fprintf(&b, "[white]Source:[-:-:-] %s\n", s.LastSource)
		if s.LastElapsed != nil {
			fmt.Fprintf(&b, "[white]Time:[-:-:-] %.1f ms\n", *s.LastElapsed)
		}
		seq := s.LastSequence
		if seq == "" {
			seq = "(empty)"
		}
		if len(seq) > 20 {
			seq = "…" + seq[len(seq)-19:]
		}
		fmt.Fprintf(&b, "[white]Seq:[-:-:-] %s\n", seq)
	}

	if len(s.Moves) > 0 {
		b.WriteString("\n[white::b]Moves[-:-:-]\n")
		b.WriteString("[dimgray]──────────────────────[-:-:-]\n")

		maxVisible := 12
		start := 0
		if len(s.Moves) > maxVisible {
			start = len(s.Moves) - maxVisible
		}
		for i := start; i < len(s.Moves); i++ {
			m := s.Moves[i]
			side := "[red]R[-]"
			if m.Player == types.PlayerTwo {
				side = "[yellow]Y[-]"
			}
			marker := " "
			if i == len(s.Moves)-1 {
				marker = "[white]>[-]"
			}
			fmt.Fprintf(&b, "%s[dimgray]%3d.[-] %s %d\n", marker, i+1, side, m.Col+1)
		}
		if start > 0 {
			fmt.Fprintf(&b, "[dimgray]  ··· %d earlier[-]\n", start)
		}
	}

	return b.String()
}

// CreateGameLayout creates the main game layout with board and side panel.
func CreateGameLayout(board *BoardUI, hint *tview.TextView) *tview.Flex {
	gameFrame := tview.NewFlex()
	RebuildNormalLayout(gameFrame, board, hint)
	return gameFrame
}

// CreateCenteredForm creates a centered container for the setup screen.
func CreateCenteredForm(form *tview.Flex, maxWidth int) *tview.Flex {
	centered := tview.NewFlex().SetDirection(tview.FlexColumn)
	centered.AddItem(nil, 0, 1, false)
	centered.AddItem(form, maxWidth, 0, true)
	centered.AddItem(nil, 0, 1, false)
	return centered
}

// RebuildNormalLayout lays out the board, the info panel and the hint.
func RebuildNormalLayout(gameFrame *tview.Flex, board *BoardUI, hint *tview.TextView) {
	gameFrame.Clear()

	infoPanel := NewGameInfoPanel()
	board.infoPanel = infoPanel
	if board.game != nil {
		infoPanel.SetGame(board.game)
	}

	boardRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	boardRow.AddItem(board.Box, 0, 1, true)
	boardRow.AddItem(infoPanel.Box(), 26, 0, false)

	gameFrame.SetDirection(tview.FlexRow)
	gameFrame.AddItem(boardRow, 0, 1, true)
	gameFrame.AddItem(hint, 3, 0, false)
}

// BuildFocusLayout shows only the centered board.
func BuildFocusLayout(gameFrame *tview.Flex, board *BoardUI) {
	gameFrame.Clear()

	boardWidth := types.Cols*2 + 2
	boardHeight := types.Rows + 2

	gameFrame.SetDirection(tview.FlexRow)
	gameFrame.AddItem(nil, 0, 1, false)

	centerRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	centerRow.AddItem(nil, 0, 1, false)
	centerRow.AddItem(board.Box, boardWidth, 0, true)
	centerRow.AddItem(nil, 0, 1, false)

	gameFrame.AddItem(centerRow, boardHeight, 0, true)
	gameFrame.AddItem(nil, 0, 1, false)
}
