package ui

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"c4bridge/record"
	"c4bridge/types"
)

// HistoryBrowserUI provides a screen for browsing archived games.
type HistoryBrowserUI struct {
	flex     *tview.Flex
	gameList *tview.List
	preview  *tview.Box
	hint     *tview.TextView
	dir      string
	games    []record.GameInfo
	boards   map[int]types.Board // cached final positions
	selected int
	onDone   func()
}

// NewHistoryBrowser creates a history browser over the records in dir.
func NewHistoryBrowser(dir string, onDone func()) *HistoryBrowserUI {
	hb := &HistoryBrowserUI{
		dir:    dir,
		onDone: onDone,
		boards: make(map[int]types.Board),
	}

	hb.gameList = tview.NewList()
	hb.gameList.SetBorder(true)
	hb.gameList.SetTitle(" Game History ")
	hb.gameList.ShowSecondaryText(false)
	hb.gameList.SetHighlightFullLine(true)
	hb.gameList.SetMainTextStyle(tcell.StyleDefault.Foreground(MenuColors.Label))
	hb.gameList.SetSelectedStyle(tcell.StyleDefault.
		Foreground(MenuColors.ButtonText).
		Background(MenuColors.ButtonFocus))

	hb.preview = tview.NewBox()
	hb.preview.SetBorder(true)
	hb.preview.SetTitle(" Preview ")
	hb.preview.SetDrawFunc(hb.drawPreview)

	hb.hint = tview.NewTextView()
	hb.hint.SetDynamicColors(true)
	hb.hint.SetBorder(false)
	hb.hint.SetText("  [dimgray]d[-] delete  [dimgray]q[-] back")

	hb.gameList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		hb.selected = index
	})
	hb.gameList.SetInputCapture(hb.handleInput)

	topRow := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(hb.gameList, 38, 0, true).
		AddItem(hb.preview, 0, 1, false)

	hb.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, true).
		AddItem(hb.hint, 1, 0, false)

	hb.loadGames()
	return hb
}

// Flex returns the flex container for this UI.
func (hb *HistoryBrowserUI) Flex() *tview.Flex {
	return hb.flex
}

// Refresh reloads the game list from disk.
func (hb *HistoryBrowserUI) Refresh() {
	hb.boards = make(map[int]types.Board)
	hb.loadGames()
}

func (hb *HistoryBrowserUI) loadGames() {
	hb.gameList.Clear()
	hb.games = nil
	hb.selected = 0

	games, err := record.ListGames(hb.dir)
	if err != nil || len(games) == 0 {
		hb.gameList.AddItem("[dimgray]No games found[-]", "", 0, nil)
		return
	}

	hb.games = games
	for _, g := range games {
		hb.gameList.AddItem(gameLabel(g), "", 0, nil)
	}
}

func gameLabel(g record.GameInfo) string {
	result := g.Result
	if result == "" || result == "?" {
		result = "..."
	}
	return fmt.Sprintf("%s  %2d moves  %s", g.Date, g.MoveCount, result)
}

func (hb *HistoryBrowserUI) handleInput(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		if hb.onDone != nil {
			hb.onDone()
		}
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			if hb.onDone != nil {
				hb.onDone()
			}
			return nil
		case 'd':
			hb.deleteSelected()
			return nil
		}
	}
	return event
}

func (hb *HistoryBrowserUI) deleteSelected() {
	if hb.selected < 0 || hb.selected >= len(hb.games) {
		return
	}
	os.Remove(hb.games[hb.selected].FilePath)
	hb.Refresh()
}

// drawPreview renders the final position and the game metadata.
func (hb *HistoryBrowserUI) drawPreview(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if hb.selected < 0 || hb.selected >= len(hb.games) {
		return x, y, width, height
	}
	game := hb.games[hb.selected]

	board, ok := hb.boards[hb.selected]
	if !ok {
		b, _, err := record.ReplayToEnd(game.FilePath)
		if err != nil {
			return x, y, width, height
		}
		board = b
		hb.boards[hb.selected] = board
	}

	startX, startY := x+2, y+1
	if width < types.Cols*2+4 || height < types.Rows+7 {
		return x, y, width, height
	}

	emptyStyle := tcell.StyleDefault.Foreground(MenuColors.Empty)
	redStyle := tcell.StyleDefault.Foreground(MenuColors.Red).Bold(true)
	yellowStyle := tcell.StyleDefault.Foreground(MenuColors.Yellow).Bold(true)
	for row := 0; row < types.Rows; row++ {
		for col := 0; col < types.Cols; col++ {
			ch, style := '·', emptyStyle
			switch board[row][col] {
			case types.PlayerOne:
				ch, style = '●', redStyle
			case types.PlayerTwo:
				ch, style = '●', yellowStyle
			}
			screen.SetContent(startX+col*2, startY+row, ch, nil, style)
		}
	}

	infoY := startY + types.Rows + 1
	dimStyle := tcell.StyleDefault.Foreground(MenuColors.Hint)
	drawText(screen, startX, infoY, fmt.Sprintf("%d moves", game.MoveCount), dimStyle)
	infoY++
	drawText(screen, startX, infoY, fmt.Sprintf("R: %s", game.PlayerOne), dimStyle)
	infoY++
	drawText(screen, startX, infoY, fmt.Sprintf("Y: %s", game.PlayerTwo), dimStyle)
	infoY++
	result := game.Result
	if result == "" || result == "?" {
		result = "Unfinished"
	}
	drawText(screen, startX, infoY, fmt.Sprintf("Result: %s", result), tcell.StyleDefault.Foreground(MenuColors.Result))

	return x, y, width, height
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, ch := range []rune(text) {
		screen.SetContent(x+i, y, ch, nil, style)
	}
}
