package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIConfig configures the chat-completions endpoint and HTTP behavior.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAI asks an OpenAI-compatible chat-completions endpoint for decisions.
// Responses are requested as JSON objects so they parse deterministically.
type OpenAI struct {
	cfg OpenAIConfig
}

// NewOpenAI builds a client, filling in defaults for base URL, model, and
// HTTP client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &OpenAI{cfg: cfg}
}

type chatCompletionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// decision is the JSON shape the model is asked to produce.
type decision struct {
	TargetID *string `json:"target_id"`
	Message  string  `json:"message,omitempty"`
}

// Decide issues one chat-completions call and parses the JSON answer.
func (o *OpenAI) Decide(ctx context.Context, req Request) (Response, error) {
	body := chatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an AI player in a game of Mafia. Answer only with the requested JSON object."},
			{Role: "user", Content: prompt(req)},
		},
		Temperature:    0.7,
		MaxTokens:      120,
		ResponseFormat: &respFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(o.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	httpResp, err := o.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("completion call: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("read completion response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("completion call status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return Response{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("completion returned no choices")
	}

	var d decision
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &d); err != nil {
		return Response{}, fmt.Errorf("decode decision JSON: %w", err)
	}

	resp := Response{Message: d.Message}
	if d.TargetID != nil {
		resp.TargetID = *d.TargetID
	} else if req.Kind != KindChat {
		resp.Abstain = true
	}
	return resp, nil
}

// prompt renders the bounded context bundle into the user message.
func prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, playing Mafia. Your role: %s.\n", req.ActorName, req.Role)
	if req.Persona != "" {
		fmt.Fprintf(&b, "Your persona: %s. Stay in character.\n", req.Persona)
	}
	fmt.Fprintf(&b, "Day %d.\n", req.Day)

	if len(req.Notes) > 0 {
		b.WriteString("\nYour private knowledge:\n")
		for _, note := range req.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}
	if len(req.Log) > 0 {
		b.WriteString("\nRecent announcements:\n")
		for _, line := range req.Log {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	if len(req.Chat) > 0 {
		b.WriteString("\nRecent discussion:\n")
		for _, line := range req.Chat {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	switch req.Kind {
	case KindNightAction:
		fmt.Fprintf(&b, "\nChoose your %s target from:\n", req.Action)
		for _, t := range req.Targets {
			fmt.Fprintf(&b, "- %s (id %s)\n", t.Name, t.ID)
		}
		b.WriteString(`Respond only with JSON: {"target_id": "<id>"}`)
	case KindVote:
		b.WriteString("\nVote to eliminate one of:\n")
		for _, t := range req.Targets {
			fmt.Fprintf(&b, "- %s (id %s)\n", t.Name, t.ID)
		}
		b.WriteString(`Respond only with JSON: {"target_id": "<id>"} or {"target_id": null} to abstain.`)
	case KindChat:
		b.WriteString("\nContribute one short discussion message (1-2 sentences). Express suspicion, defend yourself, or ask a question. Do not reveal your role.\n")
		b.WriteString(`Respond only with JSON: {"message": "<your message>"}`)
	}
	return b.String()
}
