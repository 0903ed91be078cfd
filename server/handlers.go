package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"c4bridge/engine"
	"c4bridge/service"
)

type moveRequest struct {
	Board         [][]int `json:"board"`
	CurrentPlayer int     `json:"current_player"`
	ValidMoves    []int   `json:"valid_moves"`
	IsNewGame     *bool   `json:"is_new_game,omitempty"`
	SessionID     string  `json:"session_id,omitempty"`
}

type moveResponse struct {
	Move int `json:"move"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is running"})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var payload moveRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("invalid move payload")
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	d, err := s.svc.Move(r.Context(), service.Request{
		SessionID:     payload.SessionID,
		Board:         payload.Board,
		CurrentPlayer: payload.CurrentPlayer,
		ValidMoves:    payload.ValidMoves,
		IsNewGame:     payload.IsNewGame,
	})
	switch {
	case errors.Is(err, service.ErrNoLegalMoves):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, engine.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("X-Move-Source", d.Source)
	writeJSON(w, http.StatusOK, moveResponse{Move: d.Move})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Sessions().List())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.Sessions().Create()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.svc.Sessions().Close(id)
	switch {
	case errors.Is(err, service.ErrUnknownSession):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		hlog.FromRequest(r).Warn().Err(err).Str("session", id).Msg("engine did not close cleanly")
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
