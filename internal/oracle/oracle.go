// Package oracle turns match snapshots into decision requests for an
// external policy source and validates what comes back. The adapter never
// fails a phase: transport errors, timeouts, and malformed answers all
// degrade to a uniform-random legal choice.
package oracle

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"mafiad/internal/mafia"
)

// Kind selects which decision is being requested.
type Kind string

const (
	KindNightAction Kind = "night_action"
	KindVote        Kind = "vote"
	KindChat        Kind = "chat"
)

// Target is one legal choice presented to the oracle.
type Target struct {
	ID   string
	Name string
}

// Request is the bounded context bundle for one decision. It carries only
// what the actor is allowed to know.
type Request struct {
	MatchID      string
	ActorID      string
	ActorName    string
	Kind         Kind
	Role         mafia.Role
	Action       mafia.ActionKind // set for night actions
	Persona      string
	Day          int
	Log          []string // recent public announcements
	Chat         []string // recent rendered chat lines
	Notes        []string // private memory: allies, investigations, saves
	Targets      []Target
	AllowAbstain bool
}

// Response is the oracle's raw answer before validation.
type Response struct {
	TargetID string
	Abstain  bool
	Message  string
}

// Client is the external policy source. Calls must be safe to retry.
type Client interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// Choice is a validated decision, possibly a degraded fallback.
type Choice struct {
	TargetID string
	Abstain  bool
	Message  string
	Degraded bool
}

// Adapter wraps a Client with a per-call timeout, one retry, and the
// random-legal-choice fallback.
type Adapter struct {
	client  Client
	timeout time.Duration
}

// NewAdapter builds an adapter around the given client.
func NewAdapter(client Client, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{client: client, timeout: timeout}
}

// Decide requests one decision for an actor. It never returns an error:
// after a failed attempt and one retry it falls back to a uniform-random
// legal choice and logs the degraded decision.
func (a *Adapter) Decide(ctx context.Context, m *mafia.Match, actorID string, kind Kind) Choice {
	req, err := BuildRequest(m, actorID, kind)
	if err != nil {
		log.Printf("oracle: match %s actor %s: %v; using fallback", m.ID, actorID, err)
		return fallback(Request{Kind: kind})
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		resp, err := a.client.Decide(callCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		choice, err := validate(req, resp)
		if err != nil {
			lastErr = err
			continue
		}
		return choice
	}

	log.Printf("oracle: degraded decision for match %s actor %s (%s): %v", m.ID, actorID, kind, lastErr)
	return fallback(req)
}

// BuildRequest assembles the context bundle for one actor and decision kind.
func BuildRequest(m *mafia.Match, actorID string, kind Kind) (Request, error) {
	actor := m.Participant(actorID)
	if actor == nil {
		return Request{}, fmt.Errorf("%w: participant %s", mafia.ErrNotFound, actorID)
	}
	req := Request{
		MatchID:   m.ID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Kind:      kind,
		Role:      actor.Role,
		Persona:   actor.Persona,
		Day:       m.Day,
		Log:       tail(m.Log, 10),
		Chat:      renderChat(m.Chat, 10),
		Notes:     privateNotes(m, actor),
	}

	switch kind {
	case KindNightAction:
		action, ok := actor.Role.NightAction()
		if !ok {
			return Request{}, fmt.Errorf("%w: %s has no night action", mafia.ErrRoleMismatch, actor.Role)
		}
		req.Action = action
		req.Targets = legalNightTargets(m, actor, action)
	case KindVote:
		req.AllowAbstain = true
		for _, p := range m.Alive() {
			if p.ID != actor.ID {
				req.Targets = append(req.Targets, Target{ID: p.ID, Name: p.Name})
			}
		}
	case KindChat:
		// no targets
	default:
		return Request{}, fmt.Errorf("unknown decision kind %q", kind)
	}
	return req, nil
}

func legalNightTargets(m *mafia.Match, actor *mafia.Participant, action mafia.ActionKind) []Target {
	var out []Target
	for _, p := range m.Alive() {
		switch action {
		case mafia.ActionKill:
			// the team does not kill its own
			if p.Role == mafia.RoleMafia {
				continue
			}
		case mafia.ActionInvestigate:
			if p.ID == actor.ID {
				continue
			}
		case mafia.ActionProtect:
			// self-protection is allowed
		}
		out = append(out, Target{ID: p.ID, Name: p.Name})
	}
	return out
}

func privateNotes(m *mafia.Match, actor *mafia.Participant) []string {
	var notes []string
	switch actor.Role {
	case mafia.RoleMafia:
		var allies []string
		for _, p := range m.Participants {
			if p.Role == mafia.RoleMafia && p.ID != actor.ID && p.Alive() {
				allies = append(allies, p.Name)
			}
		}
		if len(allies) > 0 {
			notes = append(notes, "Your mafia allies (do not reveal): "+strings.Join(allies, ", "))
		}
	case mafia.RoleDetective:
		for targetID, isMafia := range actor.Investigations {
			target := m.Participant(targetID)
			if target == nil {
				continue
			}
			verdict := "innocent"
			if isMafia {
				verdict = "MAFIA"
			}
			notes = append(notes, fmt.Sprintf("Investigation: %s is %s.", target.Name, verdict))
		}
	case mafia.RoleDoctor:
		if actor.LastProtection != nil {
			target := m.Participant(actor.LastProtection.TargetID)
			if target != nil {
				if actor.LastProtection.Saved {
					notes = append(notes, fmt.Sprintf("Last night you saved %s from the mafia.", target.Name))
				} else {
					notes = append(notes, fmt.Sprintf("Last night you protected %s.", target.Name))
				}
			}
		}
	}
	return notes
}

// validate checks the raw response against the request's legal choices.
func validate(req Request, resp Response) (Choice, error) {
	switch req.Kind {
	case KindChat:
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			return Choice{}, fmt.Errorf("empty chat message")
		}
		return Choice{Message: msg}, nil
	case KindVote:
		if resp.Abstain {
			return Choice{Abstain: true}, nil
		}
	case KindNightAction:
		if resp.Abstain {
			return Choice{}, fmt.Errorf("night action cannot abstain")
		}
	}
	for _, t := range req.Targets {
		if t.ID == resp.TargetID {
			return Choice{TargetID: t.ID}, nil
		}
	}
	return Choice{}, fmt.Errorf("target %q is not a legal choice", resp.TargetID)
}

// fallback picks a uniform-random legal choice.
func fallback(req Request) Choice {
	switch req.Kind {
	case KindChat:
		return Choice{Message: "I'm still thinking about last night.", Degraded: true}
	default:
		if len(req.Targets) == 0 {
			return Choice{Abstain: true, Degraded: true}
		}
		t := req.Targets[rand.IntN(len(req.Targets))]
		return Choice{TargetID: t.ID, Degraded: true}
	}
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func renderChat(msgs []mafia.ChatMessage, n int) []string {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, fmt.Sprintf("%s: %s", msg.AuthorName, msg.Text))
	}
	return out
}
