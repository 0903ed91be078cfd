package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"c4bridge/engine"
)

var (
	cfgFile = "c4bridge/config.json"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("Config error: %s", e.err)
}

type ConfigColors struct {
	BoardColor    int `json:"board"`
	HoleColor     int `json:"hole"`
	PlayerOne     int `json:"player_one"`
	PlayerTwo     int `json:"player_two"`
	CursorColorFG int `json:"cursor_fg"`
	CursorColorBG int `json:"cursor_bg"`
	LastPlayedBG  int `json:"last_played_bg"`
}

type ConfigSymbols struct {
	Piece  rune `json:"piece"`
	Hole   rune `json:"hole"`
	Cursor rune `json:"cursor"`
}

type Theme struct {
	DrawCursorBackground     bool          `json:"draw_cursor_bg"`
	DrawLastPlayedBackground bool          `json:"draw_last_played_bg"`
	Colors                   ConfigColors  `json:"colors"`
	Symbols                  ConfigSymbols `json:"symbols"`
}

// EngineConfig holds the solver process settings.
type EngineConfig struct {
	Path             string   `json:"path"`
	Args             []string `json:"args"`
	Dir              string   `json:"dir"`
	MaxLines         int      `json:"max_lines"`
	TimeoutMs        int      `json:"timeout_ms"`
	RespawnOnNewGame bool     `json:"respawn_on_new_game"`
}

// Solver converts the file settings to the engine package's form.
func (e EngineConfig) Solver() engine.Config {
	return engine.Config{
		Path:             e.Path,
		Args:             e.Args,
		Dir:              e.Dir,
		MaxLines:         e.MaxLines,
		Timeout:          time.Duration(e.TimeoutMs) * time.Millisecond,
		RespawnOnNewGame: e.RespawnOnNewGame,
	}
}

type ServerConfig struct {
	Addr          string `json:"addr"`
	ShutdownSec   int    `json:"shutdown_sec"`
	MaxBodyBytes  int64  `json:"max_body_bytes"`
	SpectatorFeed bool   `json:"spectator_feed"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// ArchiveConfig controls where finished games are written.
type ArchiveConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
	// Name recorded for our side; the opponent is recorded as "opponent".
	PlayerName string `json:"player_name"`
}

type Config struct {
	Server  ServerConfig  `json:"server"`
	Engine  EngineConfig  `json:"engine"`
	Log     LogConfig     `json:"log"`
	Archive ArchiveConfig `json:"archive"`
	Theme   Theme         `json:"theme"`
}

// InitConfig loads the user's config file from the XDG config directories,
// falling back to DefaultConfig when there is none.
func InitConfig() (*Config, error) {
	config := defaults()
	absPath, err := xdg.SearchConfigFile(cfgFile)
	if err == nil {
		if err := readCfgFile(absPath, &config); err != nil {
			return nil, err
		}
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads the config file at path on top of DefaultConfig.
func Load(path string) (*Config, error) {
	config := defaults()
	if err := readCfgFile(path, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// defaults copies DefaultConfig so decoding never writes into its slices.
func defaults() Config {
	c := DefaultConfig
	c.Engine.Args = append([]string(nil), DefaultConfig.Engine.Args...)
	return c
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &InvalidConfig{"server.addr must be set"}
	}
	if c.Engine.Path == "" {
		return &InvalidConfig{"engine.path must be set"}
	}
	if c.Engine.MaxLines <= 0 {
		return &InvalidConfig{"engine.max_lines must be positive"}
	}
	if c.Engine.TimeoutMs <= 0 {
		return &InvalidConfig{"engine.timeout_ms must be positive"}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return &InvalidConfig{fmt.Sprintf("log.level: %v", err)}
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		return &InvalidConfig{"archive.dir must be set when the archive is enabled"}
	}
	for _, r := range []rune{c.Theme.Symbols.Piece, c.Theme.Symbols.Hole, c.Theme.Symbols.Cursor} {
		if r < 32 || (r >= 127 && r <= 159) {
			return &InvalidConfig{"Unicode characters 1-31 and 127-159 are not allowed"}
		}
	}
	return nil
}

// Save writes c to the user's XDG config file.
func (c *Config) Save() error {
	absPath, err := xdg.ConfigFile(cfgFile)
	if err != nil {
		return err
	}
	return saveCfgFile(absPath, c, 0664)
}

func saveCfgFile(filePath string, a interface{}, perm fs.FileMode) error {
	jsonData, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, perm)
}

func readCfgFile(filePath string, a interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return &InvalidConfig{fmt.Sprintf("%s: %v", filePath, err)}
	}
	return nil
}
