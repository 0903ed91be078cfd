package ui

import "github.com/gdamore/tcell/v2"

// MenuColors is the palette shared by the setup form and the history browser.
var MenuColors = struct {
	Label       tcell.Color
	Hint        tcell.Color
	ButtonBG    tcell.Color
	ButtonFocus tcell.Color
	ButtonText  tcell.Color
	Empty       tcell.Color
	Red         tcell.Color
	Yellow      tcell.Color
	Result      tcell.Color
}{
	Label:       tcell.PaletteColor(250),
	Hint:        tcell.PaletteColor(245),
	ButtonBG:    tcell.PaletteColor(60),
	ButtonFocus: tcell.PaletteColor(109),
	ButtonText:  tcell.PaletteColor(255),
	Empty:       tcell.PaletteColor(240),
	Red:         tcell.PaletteColor(196),
	Yellow:      tcell.PaletteColor(226),
	Result:      tcell.PaletteColor(109),
}
