// Package service answers move requests for Connect Four games played by an outside client.
//
// Each request carries a full board snapshot. The service keeps a per-session ledger of the moves
// that produced it, asks the engine for the best reply to that sequence and degrades to a legal
// fallback move whenever the ledger, the board or the engine cannot be trusted.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"c4bridge/ledger"
	"c4bridge/position"
	"c4bridge/record"
	"c4bridge/types"
)

var (
	// ErrNoLegalMoves is returned when the request offers no valid move. No move can be answered.
	ErrNoLegalMoves = errors.New("no valid moves available")
	// ErrGameOver is attached to decisions made on a board that is already won or full.
	ErrGameOver = errors.New("game is already over")
	// ErrIllegalEngineMove is attached when the engine suggested a column the client does not allow.
	ErrIllegalEngineMove = errors.New("engine move is not a valid move")
	// ErrBadRequest wraps malformed snapshots and players.
	ErrBadRequest = errors.New("bad request")
)

// Decision sources.
const (
	SourceEngine   = "engine"
	SourceFallback = "fallback"
)

// Request is one move request from the client.
type Request struct {
	SessionID     string
	Board         [][]int
	CurrentPlayer int
	ValidMoves    []int
	// IsNewGame overrides the board based new game detection when set.
	IsNewGame *bool
}

// Decision is the answer to a Request.
type Decision struct {
	SessionID string
	// Move is the 0-based column to play.
	Move int
	// Source is SourceEngine or SourceFallback.
	Source string
	// Sequence is the move sequence sent to the engine, if any.
	Sequence  string
	ElapsedMs *float64
	// Err explains a fallback. It is informational; the move is still valid.
	Err error
}

// Event is published to observers after every answered request.
type Event struct {
	SessionID     string      `json:"session_id"`
	Board         types.Board `json:"board"`
	CurrentPlayer int         `json:"current_player"`
	Move          int         `json:"move"`
	Source        string      `json:"source"`
	Sequence      string      `json:"sequence"`
	ElapsedMs     *float64    `json:"elapsed_ms,omitempty"`
	Error         string      `json:"error,omitempty"`
	At            time.Time   `json:"at"`
}

// Observer receives events. It is called synchronously and must not block.
type Observer func(Event)

// Option configures a Service.
type Option func(*Service)

// WithArchive writes finished games to dir, naming our side name.
func WithArchive(dir, name string) Option {
	return func(s *Service) {
		s.archiveDir = dir
		s.playerName = name
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.log = logger.With().Str("component", "service").Logger() }
}

// WithSeed makes fallback choices reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Service) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithObserver registers an observer for answered requests.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// Service answers move requests.
type Service struct {
	sessions   *Registry
	archiveDir string
	playerName string
	observers  []Observer
	log        zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New returns a service drawing sessions from sessions.
func New(sessions *Registry, opts ...Option) *Service {
	s := &Service{
		sessions:   sessions,
		playerName: "c4bridge",
		log:        zerolog.Nop(),
		rng:        rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns the session registry.
func (s *Service) Sessions() *Registry {
	return s.sessions
}

// Move answers req. The only error is ErrNoLegalMoves (or a closed registry); every other problem
// is reported in Decision.Err alongside a valid fallback move.
func (s *Service) Move(ctx context.Context, req Request) (Decision, error) {
	sess, err := s.sessions.get(req.SessionID)
	if err != nil {
		return Decision{}, err
	}
	log := sess.log

	if len(req.ValidMoves) == 0 {
		sess.mu.Lock()
		sess.ledger.Reset()
		if err := sess.solver.Reset(ctx); err != nil {
			log.Warn().Err(err).Msg("engine reset failed")
		}
		sess.mu.Unlock()
		log.Warn().Msg("no valid moves, starting a new game")
		return Decision{}, ErrNoLegalMoves
	}

	sess.mu.Lock()
	start := time.Now()
	d, board := s.decide(ctx, sess, req)
	sess.moves++
	sess.lastUsed = time.Now()
	sess.mu.Unlock()

	d.SessionID = sess.ID
	event := log.Info()
	if d.Err != nil {
		event = log.Warn().AnErr("reason", d.Err)
	}
	event.
		Int("move", d.Move).
		Str("source", d.Source).
		Str("sequence", d.Sequence).
		Dur("took", time.Since(start)).
		Msg("move answered")

	s.publish(d, board, req.CurrentPlayer)
	return d, nil
}

// decide runs with the session locked. A panic anywhere below becomes a first-valid-move fallback.
func (s *Service) decide(ctx context.Context, sess *Session, req Request) (d Decision, board types.Board) {
	defer func() {
		if r := recover(); r != nil {
			sess.log.Error().Interface("panic", r).Msg("recovered while deciding a move")
			sess.ledger.Reset()
			d = firstValid(req, fmt.Errorf("internal error: %v", r))
		}
	}()

	board, err := types.BoardFromGrid(req.Board)
	if err != nil {
		return firstValid(req, fmt.Errorf("%w: %w", ErrBadRequest, err)), board
	}
	mover := types.Player(req.CurrentPlayer)
	if !mover.Valid() {
		return firstValid(req, fmt.Errorf("%w: current player %d", ErrBadRequest, req.CurrentPlayer)), board
	}
	if !position.IsGravityConsistent(&board) {
		return firstValid(req, position.ErrInvalidBoard), board
	}

	if position.GameOver(&board) {
		if sess.finished == nil || !sess.finished.Equal(&board) {
			// Pick up the final opponent move so the archived game is complete.
			det, err := sess.ledger.HandleSnapshot(board, ledger.Continuing)
			if err == nil || det.Duplicate() {
				s.archive(sess, &board)
			} else {
				s.archiveRebuilt(sess, &board)
			}
			final := board
			sess.finished = &final
		}
		s.newGame(ctx, sess)
		return firstValid(req, ErrGameOver), board
	}

	t := ledger.DecideTransition(&board, req.IsNewGame, mover)
	if t != ledger.Continuing {
		if len(sess.ledger.Sequence()) > 0 {
			mirror := sess.ledger.Mirror()
			s.archive(sess, &mirror)
		}
		s.newGame(ctx, sess)
	}

	det, err := sess.ledger.HandleSnapshot(board, t)
	// A repeated snapshot leaves the tracked sequence valid.
	if err != nil && !(t == ledger.Continuing && det.Duplicate()) {
		if err := s.resync(sess, &board, mover); err != nil {
			return firstValid(req, err), board
		}
	}

	return s.solve(ctx, sess, req, mover), board
}

// resync rebuilds the ledger from the board alone.
func (s *Service) resync(sess *Session, board *types.Board, mover types.Player) error {
	first := position.FirstMover(board, mover)
	seq, err := position.ReconstructFrom(board, first)
	if errors.Is(err, position.ErrReconstructionFailed) {
		// The colours do not fit the side to move; any history is better than none.
		sess.log.Warn().Str("mover", mover.String()).Msg("no history with the expected opener")
		seq, first, err = position.Reconstruct(board)
	}
	if err != nil {
		sess.ledger.Reset()
		return err
	}
	sess.ledger.Resync(*board, seq, first)
	return nil
}

func (s *Service) solve(ctx context.Context, sess *Session, req Request, mover types.Player) Decision {
	seq := sess.ledger.Sequence()
	reply, err := sess.solver.Solve(ctx, seq)

	d := Decision{
		Move:      reply.Column,
		Source:    SourceEngine,
		Sequence:  seq.String(),
		ElapsedMs: reply.ElapsedMs,
	}
	switch {
	case err != nil:
		d.Move = s.randomValid(req.ValidMoves)
		d.Source = SourceFallback
		d.Err = err
	case !contains(req.ValidMoves, reply.Column):
		d.Move = s.randomValid(req.ValidMoves)
		d.Source = SourceFallback
		d.Err = fmt.Errorf("%w: column %d not in %v", ErrIllegalEngineMove, reply.Column, req.ValidMoves)
	}

	if err := sess.ledger.AddOurMove(d.Move, mover); err != nil {
		sess.log.Warn().Err(err).Msg("ledger out of step with the client, next request will resync")
	}
	return d
}

func (s *Service) newGame(ctx context.Context, sess *Session) {
	sess.ledger.Reset()
	if err := sess.solver.Reset(ctx); err != nil {
		sess.log.Warn().Err(err).Msg("engine reset failed")
	}
	sess.log.Info().Msg("new game")
}

func (s *Service) archive(sess *Session, final *types.Board) {
	if s.archiveDir == "" {
		return
	}
	seq := sess.ledger.Sequence()
	if len(seq) == 0 {
		return
	}
	path, err := record.Archive(s.archiveDir, seq, sess.ledger.First(), s.playerName, "opponent", record.ResultFor(final))
	if err != nil {
		sess.log.Error().Err(err).Msg("failed to archive game")
		return
	}
	sess.log.Info().Str("path", path).Str("sequence", seq.String()).Msg("game archived")
}

// archiveRebuilt archives a finished board whose history the ledger lost.
func (s *Service) archiveRebuilt(sess *Session, final *types.Board) {
	if s.archiveDir == "" {
		return
	}
	seq, first, err := position.Reconstruct(final)
	if err != nil {
		sess.log.Warn().Err(err).Msg("finished game not archived")
		return
	}
	sess.ledger.Resync(*final, seq, first)
	s.archive(sess, final)
}

func (s *Service) publish(d Decision, board types.Board, player int) {
	if len(s.observers) == 0 {
		return
	}
	e := Event{
		SessionID:     d.SessionID,
		Board:         board,
		CurrentPlayer: player,
		Move:          d.Move,
		Source:        d.Source,
		Sequence:      d.Sequence,
		ElapsedMs:     d.ElapsedMs,
		At:            time.Now(),
	}
	if d.Err != nil {
		e.Error = d.Err.Error()
	}
	for _, o := range s.observers {
		o(e)
	}
}

// Close shuts down every session.
func (s *Service) Close() error {
	return s.sessions.CloseAll()
}
