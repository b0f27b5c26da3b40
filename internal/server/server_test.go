package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mafiad/internal/coordinator"
	"mafiad/internal/mafia"
	"mafiad/internal/oracle"
	"mafiad/internal/registry"
	"mafiad/internal/storage"
)

// idleClient never answers; the adapter's fallback keeps matches moving.
type idleClient struct{}

func (idleClient) Decide(_ context.Context, req oracle.Request) (oracle.Response, error) {
	return oracle.Response{Abstain: true}, nil
}

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := registry.New(store)
	hub := NewHub()
	reg.SetNotifier(hub)
	coord := coordinator.New(reg, oracle.NewAdapter(idleClient{}, time.Second))
	return New(reg, coord, hub), reg
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func createMatch(t *testing.T, s *Server) createMatchResponse {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/matches", map[string]any{"playerName": "Alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body)
	}
	var resp createMatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp
}

func TestCreateMatch(t *testing.T) {
	s, _ := newTestServer(t)

	resp := createMatch(t, s)
	if resp.MatchID == "" || resp.YouID == "" {
		t.Fatalf("create response incomplete: %+v", resp)
	}
	if resp.View.Phase != mafia.PhasePregame {
		t.Fatalf("new match must be pregame, got %s", resp.View.Phase)
	}
	if len(resp.View.Participants) != 7 {
		t.Fatalf("default table seats 7, got %d", len(resp.View.Participants))
	}
	if resp.View.You == nil || resp.View.You.Role == "" {
		t.Fatal("creator must see their own role")
	}
	var you *mafia.ParticipantView
	for i := range resp.View.Participants {
		if resp.View.Participants[i].You {
			you = &resp.View.Participants[i]
		}
	}
	if you == nil || you.ID != resp.YouID || you.Name != "Alice" {
		t.Fatalf("human seat mislabeled: %+v", you)
	}
}

func TestCreateMatchInvalidSettings(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/matches", map[string]any{
		"playerCount": 2,
		"roles":       map[string]int{"mafia": 1, "villager": 1},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
	}
}

func TestCreateMatchBadBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/matches", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetMatchDefaultsToHumanViewer(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/matches/"+created.MatchID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	var view mafia.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.You == nil {
		t.Fatal("default viewer is the human seat")
	}
}

func TestGetMatchSpectator(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodGet, "/api/matches/"+created.MatchID+"?viewer=nobody", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	var view mafia.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.You != nil {
		t.Fatal("spectators have no private view")
	}
	for _, p := range view.Participants {
		if p.Role != "" {
			t.Fatalf("spectators see no roles in a live match, %s leaked %s", p.Name, p.Role)
		}
	}
}

func TestGetMatchNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/matches/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStartMatch(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/matches/"+created.MatchID+"/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start: status %d, body %s", w.Code, w.Body)
	}
	var view mafia.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Phase != mafia.PhaseNight || view.Day != 1 {
		t.Fatalf("start opens night one, got %s day %d", view.Phase, view.Day)
	}

	again := doJSON(t, s, http.MethodPost, "/api/matches/"+created.MatchID+"/start", nil)
	if again.Code != http.StatusBadRequest {
		t.Fatalf("double start should 400, got %d", again.Code)
	}
}

func TestSubmitActionWrongPhase(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/matches/"+created.MatchID+"/actions", actionRequest{
		ActorID:  created.YouID,
		Kind:     mafia.ActionKill,
		TargetID: created.YouID,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pregame action should 400, got %d: %s", w.Code, w.Body)
	}
}

func TestSubmitVoteWrongPhase(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/matches/"+created.MatchID+"/votes", voteRequest{
		VoterID: created.YouID,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pregame vote should 400, got %d: %s", w.Code, w.Body)
	}
}

func TestAdvanceWrongPhase(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/matches/"+created.MatchID+"/advance", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pregame advance should 400, got %d: %s", w.Code, w.Body)
	}
}

func TestDeleteMatch(t *testing.T) {
	s, _ := newTestServer(t)
	created := createMatch(t, s)

	w := doJSON(t, s, http.MethodDelete, "/api/matches/"+created.MatchID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/matches/"+created.MatchID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted match should 404, got %d", w.Code)
	}
	if w := doJSON(t, s, http.MethodDelete, "/api/matches/"+created.MatchID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete should 404, got %d", w.Code)
	}
}

func TestListMatches(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/matches", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var body struct {
		Matches []string `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Matches) != 0 {
		t.Fatalf("fresh server lists nothing, got %v", body.Matches)
	}

	created := createMatch(t, s)
	w = doJSON(t, s, http.MethodGet, "/api/matches", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Matches) != 1 || body.Matches[0] != created.MatchID {
		t.Fatalf("expected [%s], got %v", created.MatchID, body.Matches)
	}
}
