// Package engine resolves complete night-action sets and vote tallies into
// deaths, saves, investigation results, and log announcements. Functions
// here are pure over the match they are handed: no persistence, no fan-out.
package engine

import (
	"fmt"

	"mafiad/internal/mafia"
)

// ResolveNight applies the full night ledger: picks the mafia kill target,
// negates it on a doctor save, records investigation results privately, and
// announces the result. The night ledger is cleared afterwards.
func ResolveNight(m *mafia.Match) {
	killTarget := killTargetID(m)

	protected := make(map[string]bool)
	for _, action := range m.NightActions {
		if action.Kind == mafia.ActionProtect {
			protected[action.TargetID] = true
		}
	}

	for _, action := range m.NightActions {
		switch action.Kind {
		case mafia.ActionInvestigate:
			detective := m.Participant(action.ActorID)
			target := m.Participant(action.TargetID)
			if detective == nil || target == nil {
				continue
			}
			result := mafia.Investigation{
				TargetID: target.ID,
				Mafia:    target.Role == mafia.RoleMafia,
			}
			detective.LastInvestigation = &result
			if detective.Investigations == nil {
				detective.Investigations = make(map[string]bool)
			}
			detective.Investigations[target.ID] = result.Mafia
		case mafia.ActionProtect:
			doctor := m.Participant(action.ActorID)
			if doctor == nil {
				continue
			}
			doctor.LastProtection = &mafia.Protection{
				TargetID: action.TargetID,
				Saved:    killTarget != "" && action.TargetID == killTarget,
			}
		}
	}

	if killTarget != "" && !protected[killTarget] {
		victim := m.Participant(killTarget)
		victim.Status = mafia.StatusDead
		if m.Settings.RevealRoleOnDeath {
			m.AddLog(fmt.Sprintf("Night fell, and tragedy struck. %s was killed. They were a %s.", victim.Name, victim.Role))
		} else {
			m.AddLog(fmt.Sprintf("Night fell, and tragedy struck. %s was killed.", victim.Name))
		}
	} else {
		m.AddLog("The night passed peacefully. No one was killed.")
	}

	m.ClearNightActions()
}

// killTargetID picks the mafia team's kill target. When several mafia
// submitted different targets, the earliest submission wins.
func killTargetID(m *mafia.Match) string {
	target := ""
	bestSeq := 0
	for _, action := range m.NightActions {
		if action.Kind != mafia.ActionKill {
			continue
		}
		if target == "" || action.Seq < bestSeq {
			target = action.TargetID
			bestSeq = action.Seq
		}
	}
	return target
}

// ResolveVotes tallies the vote ledger and eliminates the unique top target.
// Abstentions count toward participation but not toward any tally. A tie for
// the top count eliminates no one; that is a result, not an error. The vote
// ledger is cleared afterwards.
func ResolveVotes(m *mafia.Match) {
	counts := make(map[string]int)
	for _, vote := range m.Votes {
		if vote.Abstain() {
			continue
		}
		counts[vote.TargetID]++
	}

	lynched := ""
	top := 0
	tied := false
	for targetID, n := range counts {
		switch {
		case n > top:
			lynched, top, tied = targetID, n, false
		case n == top:
			tied = true
		}
	}

	if lynched != "" && !tied {
		victim := m.Participant(lynched)
		victim.Status = mafia.StatusDead
		if m.Settings.RevealRoleOnDeath {
			m.AddLog(fmt.Sprintf("%s was lynched. They were a %s.", victim.Name, victim.Role))
		} else {
			m.AddLog(fmt.Sprintf("%s was lynched.", victim.Name))
		}
	} else {
		m.AddLog("The vote resulted in a tie or no votes were cast. No one was lynched.")
	}

	m.ClearVotes()
}

// CheckWin evaluates the win condition against the live role composition and
// reports whether the match is decided. Re-evaluating an unchanged match
// never flips a previously unset outcome: the outcome derives only from the
// participants' current status.
func CheckWin(m *mafia.Match) bool {
	if m.Outcome != mafia.OutcomeUnset {
		return true
	}
	mafiaAlive, innocentsAlive := m.AliveCounts()
	switch {
	case mafiaAlive == 0:
		m.Outcome = mafia.OutcomeInnocentsWin
		m.AddLog("Game Over: All Mafia have been eliminated. Innocents win!")
		return true
	case mafiaAlive >= innocentsAlive:
		m.Outcome = mafia.OutcomeMafiaWin
		m.AddLog("Game Over: Mafia outnumber or equal Innocents. Mafia win!")
		return true
	}
	return false
}
