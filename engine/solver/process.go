package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"c4bridge/engine"
	"c4bridge/types"
)

// closeGrace is how long Close waits for the engine to exit after its input is closed.
const closeGrace = 2 * time.Second

// Process runs the engine binary as a child process and implements engine.Solver.
// The process is started lazily and restarted after it dies or stalls.
type Process struct {
	cfg engine.Config
	log zerolog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	client *Client
	exited chan struct{}
}

var _ engine.Solver = (*Process)(nil)

// NewProcess creates an engine process handle. Nothing is started until Start or Solve.
func NewProcess(cfg engine.Config, logger zerolog.Logger) *Process {
	return &Process{
		cfg: cfg,
		log: logger.With().Str("component", "engine").Logger(),
	}
}

// Check verifies that the engine binary can be found.
func Check(path string) error {
	_, err := exec.LookPath(path)
	return err
}

// Start launches the engine process if it is not running. Nothing is spawned once ctx is done.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.startLocked()
}

func (p *Process) startLocked() error {
	if p.client != nil {
		return nil
	}

	cmd := exec.Command(p.cfg.Path, p.cfg.Args...)
	cmd.Dir = p.cfg.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %w", engine.ErrUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %w", engine.ErrUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %w", engine.ErrUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %w", engine.ErrUnavailable, p.cfg.Path, err)
	}

	client := NewClient(stdin, stdout,
		WithMaxLines(p.cfg.MaxLines),
		WithTimeout(p.cfg.Timeout),
		WithLogger(p.log),
	)

	var stderrDone sync.WaitGroup
	stderrDone.Add(1)
	go func() {
		defer stderrDone.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			p.log.Debug().Str("line", scanner.Text()).Msg("engine stderr")
		}
	}()

	// Wait closes the pipes, so it must only run once both readers are finished.
	exited := make(chan struct{})
	pid := cmd.Process.Pid
	go func() {
		<-client.Done()
		stderrDone.Wait()
		err := cmd.Wait()
		p.log.Info().Int("pid", pid).AnErr("exit", err).Msg("engine exited")
		close(exited)
	}()

	p.cmd = cmd
	p.stdin = stdin
	p.client = client
	p.exited = exited
	p.log.Info().Int("pid", pid).Str("path", p.cfg.Path).Strs("args", p.cfg.Args).Msg("engine started")
	return nil
}

// Solve sends seq to the engine. A process that died or stalled is restarted on the next call.
func (p *Process) Solve(ctx context.Context, seq types.Sequence) (engine.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.Broken() != nil {
		p.log.Warn().Err(p.client.Broken()).Msg("restarting broken engine")
		p.stopLocked()
	}
	if err := p.startLocked(); err != nil {
		return engine.Reply{}, err
	}

	start := time.Now()
	reply, err := p.client.Solve(ctx, seq)
	event := p.log.Debug()
	if err != nil {
		event = p.log.Warn().Err(err)
	}
	event.Str("sequence", seq.String()).Dur("took", time.Since(start)).Int("column", reply.Column+1).Msg("solve")
	return reply, err
}

// Reset prepares the engine for a new game. The process is only restarted when the
// configuration asks for it; otherwise it is reused.
func (p *Process) Reset(ctx context.Context) error {
	if !p.cfg.RespawnOnNewGame {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.startLocked()
}

// Close shuts down the engine process.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// stopLocked closes the engine input, waits briefly for it to exit and kills it otherwise.
func (p *Process) stopLocked() {
	if p.client == nil {
		return
	}
	p.stdin.Close()
	p.client.Close()
	select {
	case <-p.exited:
	case <-time.After(closeGrace):
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.log.Warn().Err(err).Msg("failed to kill engine")
		}
		<-p.exited
	}
	p.cmd = nil
	p.stdin = nil
	p.client = nil
	p.exited = nil
}
