package mafia

import (
	"fmt"
	"time"
)

// Action ledger: per-phase record of secret night actions and votes.
// Validation happens up front so a rejected submission leaves the match
// untouched. Resubmission by the same actor in the same phase overwrites
// the prior entry.

// RecordNightAction validates and records one night action.
func (m *Match) RecordNightAction(actorID string, kind ActionKind, targetID string) error {
	if m.Phase != PhaseNight {
		return fmt.Errorf("%w: night actions only during night, not %s", ErrWrongPhase, m.Phase)
	}
	actor := m.Participant(actorID)
	if actor == nil {
		return fmt.Errorf("%w: participant %s", ErrNotFound, actorID)
	}
	if !actor.Alive() {
		return fmt.Errorf("%w: %s", ErrActorDead, actor.Name)
	}
	capable, ok := actor.Role.NightAction()
	if !ok || capable != kind {
		return fmt.Errorf("%w: %s cannot %s", ErrRoleMismatch, actor.Role, kind)
	}
	target := m.Participant(targetID)
	if target == nil {
		return fmt.Errorf("%w: target %s not in match", ErrInvalidTarget, targetID)
	}
	if !target.Alive() {
		return fmt.Errorf("%w: %s is dead", ErrInvalidTarget, target.Name)
	}
	if kind == ActionKill && actorID == targetID {
		return fmt.Errorf("%w: cannot target self with a kill", ErrInvalidTarget)
	}

	m.ActionSeq++
	m.NightActions[actorID] = NightAction{
		ActorID:     actorID,
		Kind:        kind,
		TargetID:    targetID,
		Seq:         m.ActionSeq,
		SubmittedAt: time.Now().UTC(),
	}
	return nil
}

// RecordVote validates and records one ballot. An empty targetID abstains.
func (m *Match) RecordVote(voterID, targetID string) error {
	if m.Phase != PhaseVoting {
		return fmt.Errorf("%w: votes only during voting, not %s", ErrWrongPhase, m.Phase)
	}
	voter := m.Participant(voterID)
	if voter == nil {
		return fmt.Errorf("%w: participant %s", ErrNotFound, voterID)
	}
	if !voter.Alive() {
		return fmt.Errorf("%w: %s", ErrActorDead, voter.Name)
	}
	if targetID != "" {
		target := m.Participant(targetID)
		if target == nil {
			return fmt.Errorf("%w: target %s not in match", ErrInvalidTarget, targetID)
		}
		if !target.Alive() {
			return fmt.Errorf("%w: %s is dead", ErrInvalidTarget, target.Name)
		}
	}

	m.Votes[voterID] = Vote{
		VoterID:     voterID,
		TargetID:    targetID,
		SubmittedAt: time.Now().UTC(),
	}
	return nil
}

// NightActors returns the living participants whose role acts at night.
func (m *Match) NightActors() []*Participant {
	var out []*Participant
	for _, p := range m.Alive() {
		if _, ok := p.Role.NightAction(); ok {
			out = append(out, p)
		}
	}
	return out
}

// AllNightActionsIn reports whether every eligible night actor has acted.
// An eliminated actor is never counted as pending.
func (m *Match) AllNightActionsIn() bool {
	for _, p := range m.NightActors() {
		if _, ok := m.NightActions[p.ID]; !ok {
			return false
		}
	}
	return true
}

// AllVotesIn reports whether every living participant has voted or abstained.
func (m *Match) AllVotesIn() bool {
	for _, p := range m.Alive() {
		if _, ok := m.Votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// ClearNightActions drops the night ledger for a fresh night.
func (m *Match) ClearNightActions() {
	m.NightActions = make(map[string]NightAction)
}

// ClearVotes drops the vote ledger for a fresh voting round.
func (m *Match) ClearVotes() {
	m.Votes = make(map[string]Vote)
}
