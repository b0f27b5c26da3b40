// Package coordinator drives the phase state machine. All transitions and
// submissions fold through the registry's per-match critical section, so a
// human submission racing the last AI decision still resolves exactly once.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mafiad/internal/engine"
	"mafiad/internal/mafia"
	"mafiad/internal/oracle"
	"mafiad/internal/registry"
)

// errNotReady aborts a guarded transition whose trigger condition no longer
// holds; the losing side of an advance race lands here and backs off.
var errNotReady = errors.New("transition not ready")

// Coordinator owns phase transitions for every match in the registry.
type Coordinator struct {
	registry *registry.Registry
	oracle   *oracle.Adapter
}

// New builds a coordinator.
func New(reg *registry.Registry, adapter *oracle.Adapter) *Coordinator {
	return &Coordinator{registry: reg, oracle: adapter}
}

// Start moves a match from PREGAME to the first NIGHT and fans out AI
// night-action decisions.
func (c *Coordinator) Start(id string) (*mafia.Match, error) {
	m, err := c.registry.Mutate(id, func(m *mafia.Match) error {
		if m.Phase != mafia.PhasePregame {
			return fmt.Errorf("%w: match already started", mafia.ErrWrongPhase)
		}
		m.Phase = mafia.PhaseNight
		m.Day = 1
		m.ClearNightActions()
		m.AddLog("Night falls. Day 1.")
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.dispatchNightDecisions(m)
	return m, nil
}

// SubmitNightAction records a secret night action. When the ledger turns
// complete the match advances to day automatically.
func (c *Coordinator) SubmitNightAction(matchID, actorID string, kind mafia.ActionKind, targetID string) error {
	m, err := c.registry.Mutate(matchID, func(m *mafia.Match) error {
		return m.RecordNightAction(actorID, kind, targetID)
	})
	if err != nil {
		return err
	}
	if m.Phase == mafia.PhaseNight && m.AllNightActionsIn() {
		return c.advanceToDay(matchID)
	}
	return nil
}

// SubmitVote records a ballot; an empty targetID abstains. When the
// electorate is complete the vote resolves automatically.
func (c *Coordinator) SubmitVote(matchID, voterID, targetID string) error {
	m, err := c.registry.Mutate(matchID, func(m *mafia.Match) error {
		return m.RecordVote(voterID, targetID)
	})
	if err != nil {
		return err
	}
	if m.Phase == mafia.PhaseVoting && m.AllVotesIn() {
		return c.processVoting(matchID)
	}
	return nil
}

// SubmitChat appends a discussion message during the day phase.
func (c *Coordinator) SubmitChat(matchID, actorID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("chat message must not be empty")
	}
	_, err := c.registry.Mutate(matchID, func(m *mafia.Match) error {
		if m.Phase != mafia.PhaseDay {
			return fmt.Errorf("%w: chat only during day, not %s", mafia.ErrWrongPhase, m.Phase)
		}
		actor := m.Participant(actorID)
		if actor == nil {
			return fmt.Errorf("%w: participant %s", mafia.ErrNotFound, actorID)
		}
		if !actor.Alive() {
			return fmt.Errorf("%w: %s", mafia.ErrActorDead, actor.Name)
		}
		m.Chat = append(m.Chat, mafia.ChatMessage{
			AuthorID:   actor.ID,
			AuthorName: actor.Name,
			Text:       text,
			Day:        m.Day,
			SentAt:     time.Now().UTC(),
		})
		return nil
	})
	return err
}

// AdvanceToVoting ends the discussion window: DAY to VOTING, then fans out
// AI vote decisions.
func (c *Coordinator) AdvanceToVoting(id string) error {
	m, err := c.registry.Mutate(id, func(m *mafia.Match) error {
		if m.Phase != mafia.PhaseDay {
			return fmt.Errorf("%w: voting starts from day, not %s", mafia.ErrWrongPhase, m.Phase)
		}
		m.Phase = mafia.PhaseVoting
		m.ClearVotes()
		m.AddLog("Discussion ended. Time to vote.")
		return nil
	})
	if err != nil {
		return err
	}
	c.dispatchVoteDecisions(m)
	return nil
}

// advanceToDay resolves the night, checks the win condition, and either
// finishes the match or opens the day discussion. Guarded so that only one
// of two racing callers performs the transition.
func (c *Coordinator) advanceToDay(id string) error {
	m, err := c.registry.Mutate(id, func(m *mafia.Match) error {
		if m.Phase != mafia.PhaseNight || !m.AllNightActionsIn() {
			return errNotReady
		}
		engine.ResolveNight(m)
		if engine.CheckWin(m) {
			m.Phase = mafia.PhaseGameover
			return nil
		}
		m.Phase = mafia.PhaseDay
		m.AddLog(fmt.Sprintf("Day %d. Discuss and decide who to eliminate.", m.Day))
		return nil
	})
	if errors.Is(err, errNotReady) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.Phase == mafia.PhaseDay {
		c.dispatchChatLines(m)
	}
	return nil
}

// processVoting resolves a complete vote, checks the win condition, and
// loops back into the next night when the match is still undecided.
func (c *Coordinator) processVoting(id string) error {
	m, err := c.registry.Mutate(id, func(m *mafia.Match) error {
		if m.Phase != mafia.PhaseVoting || !m.AllVotesIn() {
			return errNotReady
		}
		engine.ResolveVotes(m)
		if engine.CheckWin(m) {
			m.Phase = mafia.PhaseGameover
		}
		return nil
	})
	if errors.Is(err, errNotReady) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.Phase == mafia.PhaseGameover {
		return nil
	}
	return c.advanceToNight(id)
}

// advanceToNight opens the next night after a resolved vote.
func (c *Coordinator) advanceToNight(id string) error {
	m, err := c.registry.Mutate(id, func(m *mafia.Match) error {
		if m.Phase != mafia.PhaseVoting {
			return errNotReady
		}
		m.Day++
		m.Phase = mafia.PhaseNight
		m.ClearNightActions()
		m.AddLog(fmt.Sprintf("Night falls. Day %d.", m.Day))
		return nil
	})
	if errors.Is(err, errNotReady) {
		return nil
	}
	if err != nil {
		return err
	}
	c.dispatchNightDecisions(m)
	return nil
}

// dispatchNightDecisions requests a night action from the oracle for every
// living AI night actor, concurrently. Each result folds back in through
// the serialized submission path; results for deleted matches are dropped.
func (c *Coordinator) dispatchNightDecisions(m *mafia.Match) {
	for _, p := range m.NightActors() {
		if p.Human {
			continue
		}
		kind, _ := p.Role.NightAction()
		go func(actorID string, kind mafia.ActionKind) {
			choice := c.oracle.Decide(context.Background(), m, actorID, oracle.KindNightAction)
			if choice.TargetID == "" {
				log.Printf("coordinator: match %s actor %s: no legal night target", m.ID, actorID)
				return
			}
			if err := c.SubmitNightAction(m.ID, actorID, kind, choice.TargetID); err != nil && !discardable(err) {
				log.Printf("coordinator: match %s actor %s: record night action: %v", m.ID, actorID, err)
			}
		}(p.ID, kind)
	}
}

// dispatchVoteDecisions requests a ballot from the oracle for every living
// AI participant, concurrently.
func (c *Coordinator) dispatchVoteDecisions(m *mafia.Match) {
	for _, p := range m.Alive() {
		if p.Human {
			continue
		}
		go func(voterID string) {
			choice := c.oracle.Decide(context.Background(), m, voterID, oracle.KindVote)
			if err := c.SubmitVote(m.ID, voterID, choice.TargetID); err != nil && !discardable(err) {
				log.Printf("coordinator: match %s voter %s: record vote: %v", m.ID, voterID, err)
			}
		}(p.ID)
	}
}

// dispatchChatLines asks every living AI participant for one discussion
// line on entry to the day phase.
func (c *Coordinator) dispatchChatLines(m *mafia.Match) {
	for _, p := range m.Alive() {
		if p.Human {
			continue
		}
		go func(actorID string) {
			choice := c.oracle.Decide(context.Background(), m, actorID, oracle.KindChat)
			if choice.Message == "" {
				return
			}
			if err := c.SubmitChat(m.ID, actorID, choice.Message); err != nil && !discardable(err) {
				log.Printf("coordinator: match %s actor %s: record chat: %v", m.ID, actorID, err)
			}
		}(p.ID)
	}
}

// discardable reports whether a fold error just means the world moved on:
// the match was deleted or the phase already rolled past this decision.
func discardable(err error) bool {
	return errors.Is(err, mafia.ErrNotFound) || errors.Is(err, mafia.ErrWrongPhase)
}
