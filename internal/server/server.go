// Package server exposes the match engine over HTTP and pushes role-filtered
// state to websocket viewers on every mutation.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mafiad/internal/coordinator"
	"mafiad/internal/mafia"
	"mafiad/internal/registry"
)

// Server is the HTTP server.
type Server struct {
	mux         *http.ServeMux
	registry    *registry.Registry
	coordinator *coordinator.Coordinator
	hub         *Hub
}

// New creates a server with all routes. The hub must already be installed
// as the registry's notifier.
func New(reg *registry.Registry, coord *coordinator.Coordinator, hub *Hub) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		registry:    reg,
		coordinator: coord,
		hub:         hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/matches", s.handleListMatches)
	s.mux.HandleFunc("POST /api/matches", s.handleCreateMatch)
	s.mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	s.mux.HandleFunc("DELETE /api/matches/{id}", s.handleDeleteMatch)
	s.mux.HandleFunc("POST /api/matches/{id}/start", s.handleStartMatch)
	s.mux.HandleFunc("POST /api/matches/{id}/actions", s.handleSubmitAction)
	s.mux.HandleFunc("POST /api/matches/{id}/votes", s.handleSubmitVote)
	s.mux.HandleFunc("POST /api/matches/{id}/chat", s.handleSubmitChat)
	s.mux.HandleFunc("POST /api/matches/{id}/advance", s.handleAdvanceToVoting)
	s.mux.HandleFunc("GET /api/matches/{id}/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	ids, err := s.registry.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"matches": ids})
}

type createMatchRequest struct {
	PlayerCount       int                `json:"playerCount"`
	Roles             map[mafia.Role]int `json:"roles"`
	PlayerName        string             `json:"playerName"`
	RevealRoleOnDeath *bool              `json:"revealRoleOnDeath"`
}

type createMatchResponse struct {
	MatchID string     `json:"matchId"`
	YouID   string     `json:"youId"`
	View    mafia.View `json:"view"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	settings := mafia.DefaultSettings()
	if req.PlayerCount != 0 || len(req.Roles) != 0 {
		settings.PlayerCount = req.PlayerCount
		settings.Roles = req.Roles
	}
	settings.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.RevealRoleOnDeath != nil {
		settings.RevealRoleOnDeath = *req.RevealRoleOnDeath
	}

	m, err := s.registry.Create(settings)
	if err != nil {
		writeError(w, err)
		return
	}
	human := m.Human()
	writeJSON(w, http.StatusCreated, createMatchResponse{
		MatchID: m.ID,
		YouID:   human.ID,
		View:    m.ViewFor(human.ID),
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ViewFor(s.viewerID(r, m)))
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.coordinator.Start(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ViewFor(s.viewerID(r, m)))
}

type actionRequest struct {
	ActorID  string           `json:"actorId"`
	Kind     mafia.ActionKind `json:"kind"`
	TargetID string           `json:"targetId"`
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.coordinator.SubmitNightAction(r.PathValue("id"), req.ActorID, req.Kind, req.TargetID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type voteRequest struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"` // empty = abstain
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.coordinator.SubmitVote(r.PathValue("id"), req.VoterID, req.TargetID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type chatRequest struct {
	ActorID string `json:"actorId"`
	Text    string `json:"text"`
}

func (s *Server) handleSubmitChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.coordinator.SubmitChat(r.PathValue("id"), req.ActorID, req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleAdvanceToVoting(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.AdvanceToVoting(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voting"})
}

// viewerID resolves the requesting viewer, defaulting to the human seat.
func (s *Server) viewerID(r *http.Request, m *mafia.Match) string {
	if v := r.URL.Query().Get("viewer"); v != "" {
		return v
	}
	if human := m.Human(); human != nil {
		return human.ID
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, mafia.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, mafia.ErrPersistence):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
