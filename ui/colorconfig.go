package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"c4bridge/config"
	"c4bridge/types"
)

// ColorConfigUI lets the player pick the board and hole colors with a live preview.
type ColorConfigUI struct {
	flex      *tview.Flex
	colorList *tview.List
	preview   *tview.Box
	cfg       *config.Config
	onDone    func()

	selectedBoardColor int
	selectedHoleColor  int
	editingHoles       bool
}

type paletteEntry struct {
	code int
	name string
}

var boardColors = []paletteEntry{
	{19, "Blue"},
	{18, "Dark Blue"},
	{17, "Navy Blue"},
	{20, "Royal Blue"},
	{25, "Steel Blue"},
	{24, "Dark Cyan"},
	{23, "Teal"},
	{22, "Dark Green"},
	{54, "Purple"},
	{94, "Saddle Brown"},
	{236, "Dark Gray"},
	{240, "Gray"},
	{16, "Black"},
}

var holeColors = []paletteEntry{
	{236, "Dark Gray"},
	{238, "Charcoal"},
	{240, "Gray"},
	{244, "Medium Gray"},
	{250, "Light Gray"},
	{255, "White"},
	{16, "Black"},
	{17, "Navy Blue"},
}

// NewColorConfig creates the color screen. Choices are saved to the config file.
func NewColorConfig(cfg *config.Config, onDone func()) *ColorConfigUI {
	cc := &ColorConfigUI{
		cfg:                cfg,
		onDone:             onDone,
		selectedBoardColor: cfg.Theme.Colors.BoardColor,
		selectedHoleColor:  cfg.Theme.Colors.HoleColor,
	}

	cc.colorList = tview.NewList()
	cc.colorList.SetBorder(true)
	cc.colorList.ShowSecondaryText(false)
	cc.populateColorList()

	cc.colorList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if c, ok := cc.entry(index); ok {
			if cc.editingHoles {
				cc.selectedHoleColor = c.code
			} else {
				cc.selectedBoardColor = c.code
			}
		}
	})

	cc.colorList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if _, ok := cc.entry(index); !ok {
			return
		}
		if cc.editingHoles {
			cc.cfg.Theme.Colors.HoleColor = cc.selectedHoleColor
			cc.cfg.Save()
			cc.editingHoles = false
			cc.populateColorList()
			return
		}
		cc.cfg.Theme.Colors.BoardColor = cc.selectedBoardColor
		cc.cfg.Save()
		onDone()
	})

	cc.preview = tview.NewBox()
	cc.preview.SetBorder(true)
	cc.preview.SetTitle(" Board Preview ")
	cc.preview.SetDrawFunc(cc.drawPreview)

	cc.flex = tview.NewFlex().
		AddItem(cc.colorList, 30, 0, true).
		AddItem(cc.preview, 0, 1, false)

	return cc
}

func (cc *ColorConfigUI) palette() []paletteEntry {
	if cc.editingHoles {
		return holeColors
	}
	return boardColors
}

func (cc *ColorConfigUI) entry(index int) (paletteEntry, bool) {
	p := cc.palette()
	if index < 0 || index >= len(p) {
		return paletteEntry{}, false
	}
	return p[index], true
}

func (cc *ColorConfigUI) populateColorList() {
	cc.colorList.Clear()

	current := cc.selectedBoardColor
	cc.colorList.SetTitle(" Board Color (Tab: holes) ")
	if cc.editingHoles {
		current = cc.selectedHoleColor
		cc.colorList.SetTitle(" Hole Color (Tab: board) ")
	}
	for i, c := range cc.palette() {
		cc.colorList.AddItem(fmt.Sprintf("[#%06x]████[-] %s (%d)",
			tcell.PaletteColor(c.code).Hex(), c.name, c.code),
			"", rune('a'+i), nil)
		if c.code == current {
			cc.colorList.SetCurrentItem(i)
		}
	}
}

// previewBoard is a short opening shown in the preview.
var previewBoard = func() types.Board {
	var b types.Board
	for i, col := range []int{3, 3, 2, 4, 4, 2} {
		b.Drop(col, types.Player(i%2+1))
	}
	return b
}()

func (cc *ColorConfigUI) drawPreview(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if width < types.Cols*2+6 || height < types.Rows+5 {
		return x, y, width, height
	}

	bg := tcell.PaletteColor(cc.selectedBoardColor)
	holeStyle := tcell.StyleDefault.Background(bg).Foreground(tcell.PaletteColor(cc.selectedHoleColor))
	oneStyle := tcell.StyleDefault.Background(bg).Foreground(tcell.PaletteColor(cc.cfg.Theme.Colors.PlayerOne))
	twoStyle := tcell.StyleDefault.Background(bg).Foreground(tcell.PaletteColor(cc.cfg.Theme.Colors.PlayerTwo))
	sym := cc.cfg.Theme.Symbols

	startX, startY := x+2, y+1
	for row := 0; row < types.Rows; row++ {
		screen.SetContent(startX, startY+row, ' ', nil, holeStyle)
		for col := 0; col < types.Cols; col++ {
			ch, style := sym.Hole, holeStyle
			switch previewBoard[row][col] {
			case types.PlayerOne:
				ch, style = sym.Piece, oneStyle
			case types.PlayerTwo:
				ch, style = sym.Piece, twoStyle
			}
			screen.SetContent(startX+1+col*2, startY+row, ch, nil, style)
			screen.SetContent(startX+2+col*2, startY+row, ' ', nil, holeStyle)
		}
	}

	info := fmt.Sprintf("Board: %d  Holes: %d", cc.selectedBoardColor, cc.selectedHoleColor)
	for i, ch := range info {
		if startX+i < x+width-1 {
			screen.SetContent(startX+i, startY+types.Rows+1, ch, nil, tcell.StyleDefault)
		}
	}

	return x, y, width, height
}

// Flex returns the flex container for this UI.
func (cc *ColorConfigUI) Flex() *tview.Flex {
	return cc.flex
}

// SetInputCapture sets the input capture for the color list.
func (cc *ColorConfigUI) SetInputCapture(capture func(event *tcell.EventKey) *tcell.EventKey) {
	cc.colorList.SetInputCapture(capture)
}

// ToggleMode switches between board and hole color editing.
func (cc *ColorConfigUI) ToggleMode() {
	cc.editingHoles = !cc.editingHoles
	cc.populateColorList()
}
