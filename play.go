package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"c4bridge/config"
	"c4bridge/engine/solver"
	"c4bridge/service"
	"c4bridge/ui"
)

const logFile = "c4bridge/play.log"

// terminal holds the screens of the -play mode.
type terminal struct {
	cfg      *config.Config
	log      zerolog.Logger
	app      *tview.Application
	pages    *tview.Pages
	board    *ui.BoardUI
	frame    *tview.Flex
	hint     *tview.TextView
	history  *ui.HistoryBrowserUI
	svc      *service.Service
	settings ui.GameSettings
}

// play runs the terminal front end. The terminal belongs to tview, so logs go to a file.
func play(cfg *config.Config) error {
	human, err := sideFromFlag(*flagSide)
	if err != nil {
		return err
	}

	log := zerolog.Nop()
	if path, err := xdg.CacheFile(logFile); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			defer f.Close()
			logCfg := cfg.Log
			logCfg.Pretty = false
			log = newLogger(logCfg, f)
		}
	}

	t := &terminal{
		cfg:      cfg,
		log:      log,
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		settings: ui.GameSettings{Human: human, EnginePath: cfg.Engine.Path},
	}
	defer t.closeService()
	t.pages.SetBorder(true).SetTitle(" ● c4bridge ")

	t.hint = tview.NewTextView()
	t.hint.SetBorder(true)
	t.hint.SetBorderPadding(0, 0, 1, 1)
	t.hint.SetTitle(" Status ")
	t.hint.SetTitleAlign(tview.AlignLeft)
	t.board = ui.NewBoard(t.app, cfg, t.hint)
	t.frame = ui.CreateGameLayout(t.board, t.hint)
	t.board.Box.SetInputCapture(t.boardKeys)

	setup := ui.NewGameSetup(t.settings,
		t.startGame,
		func() { t.app.Stop() },
		func() {
			t.history.Refresh()
			t.pages.SwitchToPage("history")
		},
		func() { t.pages.SwitchToPage("colors") },
	)
	colors := ui.NewColorConfig(cfg, func() {
		t.board.SetConfig(cfg)
		t.pages.SwitchToPage("setup")
	})
	colors.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEsc, event.Key() == tcell.KeyRune && event.Rune() == 'q':
			t.pages.SwitchToPage("setup")
			return nil
		case event.Key() == tcell.KeyTab:
			colors.ToggleMode()
			return nil
		}
		return event
	})
	t.history = ui.NewHistoryBrowser(cfg.Archive.Dir, func() {
		t.pages.SwitchToPage("setup")
	})

	quickStart := *flagSide != "" || *flagFocus
	t.pages.AddPage("setup", ui.CreateCenteredForm(setup.Form(), 60), true, !quickStart)
	t.pages.AddPage("gameview", t.frame, true, quickStart)
	t.pages.AddPage("history", t.history.Flex(), true, false)
	t.pages.AddPage("colors", colors.Flex(), true, false)

	if quickStart {
		t.startGame(t.settings)
		if *flagFocus {
			t.board.SetFocusMode(true)
			ui.BuildFocusLayout(t.frame, t.board)
		}
	}

	return t.app.SetRoot(t.pages, true).Run()
}

func (t *terminal) boardKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		t.board.MoveSelection(-1)
		return nil
	case tcell.KeyRight:
		t.board.MoveSelection(1)
		return nil
	case tcell.KeyEnter:
		t.board.Drop(t.board.SelectedColumn())
		return nil
	case tcell.KeyRune:
		r := event.Rune()
		switch {
		case r >= '1' && r <= '7':
			t.board.Drop(int(r - '1'))
		case r == 'h':
			t.board.MoveSelection(-1)
		case r == 'l':
			t.board.MoveSelection(1)
		case r == ' ':
			t.board.Drop(t.board.SelectedColumn())
		case r == 'u':
			t.board.Undo()
		case r == 'f':
			if t.board.ToggleFocusMode() {
				ui.BuildFocusLayout(t.frame, t.board)
			} else {
				ui.RebuildNormalLayout(t.frame, t.board, t.hint)
			}
		case r == 'q':
			t.board.Close()
			t.pages.SwitchToPage("setup")
		default:
			return event
		}
		return nil
	}
	return event
}

// startGame starts a fresh service for the chosen engine and a new game on it.
func (t *terminal) startGame(settings ui.GameSettings) {
	t.settings = settings
	ecfg := t.cfg.Engine.Solver()
	if settings.EnginePath != "" {
		ecfg.Path = settings.EnginePath
	}
	if err := solver.Check(ecfg.Path); err != nil {
		t.showError(fmt.Errorf("engine %q not found", ecfg.Path))
		return
	}

	t.board.Close()
	t.closeService()
	// The game records itself, so the service does not archive.
	t.svc = service.New(service.NewRegistry(solverFactory(ecfg, t.log), t.log), service.WithLogger(t.log))

	archiveDir := ""
	if t.cfg.Archive.Enabled {
		archiveDir = t.cfg.Archive.Dir
	}
	g, err := ui.NewGame(t.svc, service.DefaultSession, settings.Human, archiveDir, filepath.Base(ecfg.Path))
	if err != nil {
		t.showError(err)
		return
	}
	t.board.Start(g)
	t.pages.SwitchToPage("gameview")
}

func (t *terminal) closeService() {
	if t.svc == nil {
		return
	}
	if err := t.svc.Close(); err != nil {
		t.log.Warn().Err(err).Msg("closing engine")
	}
	t.svc = nil
}

func (t *terminal) showError(err error) {
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Failed to start game:\n%s", err.Error())).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			t.pages.RemovePage("error")
		})
	t.pages.AddPage("error", modal, true, true)
}
