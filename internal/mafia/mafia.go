// Package mafia holds the match data model: participants, phases, the
// per-phase action ledger, and the role-filtered views shipped to clients.
package mafia

// Role is a participant's hidden role.
type Role string

const (
	RoleMafia     Role = "mafia"
	RoleDetective Role = "detective"
	RoleDoctor    Role = "doctor"
	RoleVillager  Role = "villager"
)

// Innocent reports whether the role belongs to the innocent faction.
func (r Role) Innocent() bool {
	return r != RoleMafia
}

// NightAction returns the night action the role performs, if any.
func (r Role) NightAction() (ActionKind, bool) {
	switch r {
	case RoleMafia:
		return ActionKill, true
	case RoleDetective:
		return ActionInvestigate, true
	case RoleDoctor:
		return ActionProtect, true
	}
	return "", false
}

// Status is a participant's liveness.
type Status string

const (
	StatusAlive Status = "alive"
	StatusDead  Status = "dead"
)

// Phase is the current stage of a match.
type Phase string

const (
	PhasePregame  Phase = "pregame"
	PhaseNight    Phase = "night"
	PhaseDay      Phase = "day"
	PhaseVoting   Phase = "voting"
	PhaseGameover Phase = "gameover"
)

// ActionKind tags a night action.
type ActionKind string

const (
	ActionKill        ActionKind = "kill"
	ActionInvestigate ActionKind = "investigate"
	ActionProtect     ActionKind = "protect"
)

// Outcome is the decided result of a match. Empty until a faction wins.
type Outcome string

const (
	OutcomeUnset        Outcome = ""
	OutcomeInnocentsWin Outcome = "innocents"
	OutcomeMafiaWin     Outcome = "mafia"
)
