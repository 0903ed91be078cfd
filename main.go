// c4bridge answers Connect Four move requests over HTTP by asking an external solving engine,
// and can also be played against directly in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"c4bridge/config"
	"c4bridge/engine"
	"c4bridge/engine/solver"
	"c4bridge/server"
	"c4bridge/service"
	"c4bridge/types"
)

// Version is set at build time via ldflags
var Version = "dev"

// Command-line flags
var (
	flagConfig   = flag.String("config", "", "Config file (default: XDG config dir)")
	flagAddr     = flag.String("addr", "", "Listen address, overrides the config")
	flagEngine   = flag.String("engine", "", "Engine binary, overrides the config")
	flagPlay     = flag.Bool("play", false, "Play against the engine in the terminal")
	flagSide     = flag.String("side", "", "Side to play with -play (red or yellow)")
	flagFocus    = flag.Bool("focus", false, "Start in focus mode (fullscreen board)")
	flagLogLevel = flag.String("log-level", "", "Log level, overrides the config")
	flagVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Printf("c4bridge %s\n", Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(1)
	}

	if *flagPlay {
		err = play(cfg)
	} else {
		err = serve(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "c4bridge: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *flagConfig != "" {
		cfg, err = config.Load(*flagConfig)
	} else {
		cfg, err = config.InitConfig()
	}
	if err != nil {
		return nil, err
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagEngine != "" {
		cfg.Engine.Path = *flagEngine
	}
	if *flagLogLevel != "" {
		cfg.Log.Level = *flagLogLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig, out *os.File) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func solverFactory(ecfg engine.Config, logger zerolog.Logger) service.SolverFactory {
	return func(sessionID string) engine.Solver {
		return solver.NewProcess(ecfg, logger.With().Str("session", sessionID).Logger())
	}
}

// serve runs the HTTP bridge until SIGINT or SIGTERM.
func serve(cfg *config.Config) error {
	log := newLogger(cfg.Log, os.Stderr)

	ecfg := cfg.Engine.Solver()
	if err := solver.Check(ecfg.Path); err != nil {
		// Requests still get fallback moves while the engine is missing.
		log.Warn().Err(err).Str("path", ecfg.Path).Msg("engine binary not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *server.Hub
	opts := []service.Option{service.WithLogger(log)}
	if cfg.Archive.Enabled {
		opts = append(opts, service.WithArchive(cfg.Archive.Dir, cfg.Archive.PlayerName))
	}
	if cfg.Server.SpectatorFeed {
		hub = server.NewHub(log)
		opts = append(opts, service.WithObserver(hub.Publish))
	}

	registry := service.NewRegistry(solverFactory(ecfg, log), log)
	svc := service.New(registry, opts...)

	srv := server.New(svc, hub, log,
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithShutdownTimeout(time.Duration(cfg.Server.ShutdownSec)*time.Second),
	)
	runErr := srv.Run(ctx, cfg.Server.Addr)
	if err := svc.Close(); err != nil {
		log.Warn().Err(err).Msg("closing engines")
	}
	return runErr
}

// sideFromFlag maps -side to a player, defaulting to red.
func sideFromFlag(s string) (types.Player, error) {
	switch s {
	case "", "red", "r", "1":
		return types.PlayerOne, nil
	case "yellow", "y", "2":
		return types.PlayerTwo, nil
	}
	return types.Empty, errors.New("side must be red or yellow")
}
