package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"c4bridge/engine"
)

var DefaultConfig Config
var DefaultTheme Theme

func init() {
	DefaultTheme = Theme{
		DrawCursorBackground:     true,
		DrawLastPlayedBackground: true,
		Colors: ConfigColors{
			BoardColor:    19,
			HoleColor:     236,
			PlayerOne:     196,
			PlayerTwo:     226,
			CursorColorFG: 2,
			CursorColorBG: 4,
			LastPlayedBG:  2,
		},
		Symbols: ConfigSymbols{
			Piece:  '●',
			Hole:   '○',
			Cursor: '▼',
		},
	}

	eng := engine.DefaultConfig()
	DefaultConfig = Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ShutdownSec:  5,
			MaxBodyBytes: 1 << 16,
		},
		Engine: EngineConfig{
			Path:      eng.Path,
			Args:      eng.Args,
			MaxLines:  eng.MaxLines,
			TimeoutMs: int(eng.Timeout.Milliseconds()),
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Archive: ArchiveConfig{
			Enabled:    true,
			Dir:        filepath.Join(xdg.DataHome, "c4bridge", "games"),
			PlayerName: "c4bridge",
		},
		Theme: DefaultTheme,
	}
}
