package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mafiad/internal/mafia"
)

func completionServer(t *testing.T, content string, record *chatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if record != nil {
			if err := json.NewDecoder(r.Body).Decode(record); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIDecideTarget(t *testing.T) {
	var recorded chatCompletionRequest
	srv := completionServer(t, `{"target_id": "p6"}`, &recorded)
	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})

	req := Request{
		ActorName: "Player 2",
		Kind:      KindNightAction,
		Role:      mafia.RoleMafia,
		Action:    mafia.ActionKill,
		Day:       1,
		Targets:   []Target{{ID: "p6", Name: "Player 6"}},
	}
	resp, err := client.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if resp.TargetID != "p6" || resp.Abstain {
		t.Fatalf("unexpected response %+v", resp)
	}
	if recorded.Model != "test-model" {
		t.Fatalf("model not forwarded, got %q", recorded.Model)
	}
	if recorded.ResponseFormat == nil || recorded.ResponseFormat.Type != "json_object" {
		t.Fatal("JSON response format must be requested")
	}
	if len(recorded.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(recorded.Messages))
	}
	user := recorded.Messages[1].Content
	if !strings.Contains(user, "Player 6 (id p6)") {
		t.Fatalf("prompt missing target listing: %s", user)
	}
}

func TestOpenAIDecideAbstain(t *testing.T) {
	srv := completionServer(t, `{"target_id": null}`, nil)
	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})

	resp, err := client.Decide(context.Background(), Request{Kind: KindVote})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !resp.Abstain {
		t.Fatalf("null target means abstain, got %+v", resp)
	}
}

func TestOpenAIDecideChat(t *testing.T) {
	srv := completionServer(t, `{"message": "I trust nobody."}`, nil)
	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})

	resp, err := client.Decide(context.Background(), Request{Kind: KindChat})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if resp.Message != "I trust nobody." {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.Abstain {
		t.Fatal("a chat answer without target is not an abstention")
	}
}

func TestOpenAIDecideMalformedContent(t *testing.T) {
	srv := completionServer(t, `not json at all`, nil)
	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})

	if _, err := client.Decide(context.Background(), Request{Kind: KindVote}); err == nil {
		t.Fatal("malformed decision JSON must error")
	}
}

func TestOpenAIDecideHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	client := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})

	if _, err := client.Decide(context.Background(), Request{Kind: KindVote}); err == nil {
		t.Fatal("non-200 status must error")
	}
}

func TestPromptCarriesPrivateNotes(t *testing.T) {
	p := prompt(Request{
		ActorName: "Player 4",
		Kind:      KindChat,
		Role:      mafia.RoleDetective,
		Persona:   "paranoid",
		Day:       2,
		Notes:     []string{"Investigation: Player 2 is MAFIA."},
		Log:       []string{"The night passed peacefully. No one was killed."},
	})
	for _, want := range []string{"paranoid", "Investigation: Player 2 is MAFIA.", "passed peacefully", "Do not reveal your role"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}
