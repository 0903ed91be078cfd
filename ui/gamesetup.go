package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"c4bridge/types"
)

// GameSettings is what the setup form collects.
type GameSettings struct {
	Human      types.Player
	EnginePath string
}

// GameSetupUI provides a form for configuring a new game.
type GameSetupUI struct {
	form     *tview.Form
	flex     *tview.Flex
	settings GameSettings
}

// NewGameSetup creates a new game setup form.
func NewGameSetup(defaults GameSettings, onStart func(GameSettings), onCancel func(), onHistory func(), onColors func()) *GameSetupUI {
	setup := &GameSetupUI{settings: defaults}
	if !setup.settings.Human.Valid() {
		setup.settings.Human = types.PlayerOne
	}

	sides := []string{"Red (play first)", "Yellow (play second)"}

	form := tview.NewForm()

	form.AddDropDown("Your Side", sides, int(setup.settings.Human)-1, func(option string, index int) {
		setup.settings.Human = types.Player(index + 1)
	})

	form.AddInputField("Engine", defaults.EnginePath, 32, nil, func(text string) {
		setup.settings.EnginePath = strings.TrimSpace(text)
	})

	form.AddButton("Start Game", func() {
		onStart(setup.settings)
	})

	form.AddButton("History", func() {
		if onHistory != nil {
			onHistory()
		}
	})

	form.AddButton("Colors", func() {
		if onColors != nil {
			onColors()
		}
	})

	form.AddButton("Quit", func() {
		onCancel()
	})

	form.SetBorder(true)
	form.SetTitle(" New Game ")
	form.SetTitleAlign(tview.AlignCenter)
	form.SetButtonBackgroundColor(MenuColors.ButtonBG)
	form.SetButtonTextColor(MenuColors.ButtonText)

	helpText := tview.NewTextView().
		SetText("Tab/Shift+Tab: navigate fields  |  Arrow keys: change dropdown  |  Enter: confirm").
		SetTextAlign(tview.AlignCenter)
	helpText.SetTextColor(MenuColors.Hint)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(helpText, 1, 0, false)

	setup.form = form
	setup.flex = flex
	return setup
}

// Form returns the flex container with form and help text.
func (s *GameSetupUI) Form() *tview.Flex {
	return s.flex
}

// SetInputCapture sets the input capture function for the form.
func (s *GameSetupUI) SetInputCapture(capture func(event *tcell.EventKey) *tcell.EventKey) {
	s.form.SetInputCapture(capture)
}
