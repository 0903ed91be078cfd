package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"c4bridge/engine"
	"c4bridge/ledger"
	"c4bridge/types"
)

// DefaultSession is used when a request names no session.
const DefaultSession = "default"

// ErrUnknownSession is returned when closing a session that does not exist.
var ErrUnknownSession = errors.New("unknown session")

// SolverFactory starts the engine for a new session.
type SolverFactory func(sessionID string) engine.Solver

// Session is one tracked game with its own ledger and engine.
// Requests on a session are serialized by its mutex.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	ledger   *ledger.Ledger
	solver   engine.Solver
	lastUsed time.Time
	moves    int
	// finished is the last game-over board archived, so repeats are not archived twice.
	finished *types.Board
	log      zerolog.Logger
}

// SessionInfo is a snapshot of a session for listings.
type SessionInfo struct {
	ID       string    `json:"session_id"`
	Created  time.Time `json:"created"`
	LastUsed time.Time `json:"last_used"`
	Sequence string    `json:"sequence"`
	Moves    int       `json:"moves_answered"`
}

func (s *Session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:       s.ID,
		Created:  s.Created,
		LastUsed: s.lastUsed,
		Sequence: s.ledger.Sequence().String(),
		Moves:    s.moves,
	}
}

// Registry owns the sessions of a service.
type Registry struct {
	newSolver SolverFactory
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewRegistry returns an empty registry starting engines with newSolver.
func NewRegistry(newSolver SolverFactory, logger zerolog.Logger) *Registry {
	return &Registry{
		newSolver: newSolver,
		log:       logger,
		sessions:  make(map[string]*Session),
	}
}

// Create starts a session under a fresh id and returns the id.
func (r *Registry) Create() (string, error) {
	id := uuid.NewString()
	if _, err := r.get(id); err != nil {
		return "", err
	}
	return id, nil
}

// get returns the session for id, creating it on first use.
func (r *Registry) get(id string) (*Session, error) {
	if id == "" {
		id = DefaultSession
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("%w: registry closed", engine.ErrUnavailable)
	}
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	log := r.log.With().Str("session", id).Logger()
	now := time.Now()
	s := &Session{
		ID:       id,
		Created:  now,
		ledger:   ledger.New(log),
		solver:   r.newSolver(id),
		lastUsed: now,
		log:      log,
	}
	r.sessions[id] = s
	log.Info().Msg("session created")
	return s, nil
}

// Close ends the session id and shuts down its engine.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info().Msg("session closed")
	return s.solver.Close()
}

// CloseAll ends every session. The registry refuses new sessions afterwards.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.closed = true
	r.mu.Unlock()

	var errs []error
	for id, s := range sessions {
		s.mu.Lock()
		if err := s.solver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// List describes the open sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Created.Before(infos[j].Created) })
	return infos
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
