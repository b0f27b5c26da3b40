package mafia

import "fmt"

// Settings configures a new match. Role counts are fixed at creation and
// never change afterwards.
type Settings struct {
	PlayerCount       int          `json:"playerCount"`
	Roles             map[Role]int `json:"roles"`
	PlayerName        string       `json:"playerName,omitempty"`
	RevealRoleOnDeath bool         `json:"revealRoleOnDeath"`
}

// DefaultSettings is the seven-seat configuration from the original game.
func DefaultSettings() Settings {
	return Settings{
		PlayerCount: 7,
		Roles: map[Role]int{
			RoleMafia:     2,
			RoleDetective: 1,
			RoleDoctor:    1,
			RoleVillager:  3,
		},
		RevealRoleOnDeath: true,
	}
}

// Validate rejects settings whose role counts cannot produce a playable
// match. Wraps ErrInvalidSettings.
func (s Settings) Validate() error {
	if s.PlayerCount < 3 {
		return fmt.Errorf("%w: player count %d below minimum of 3", ErrInvalidSettings, s.PlayerCount)
	}
	total := 0
	for role, count := range s.Roles {
		switch role {
		case RoleMafia, RoleDetective, RoleDoctor, RoleVillager:
		default:
			return fmt.Errorf("%w: unknown role %q", ErrInvalidSettings, role)
		}
		if count < 0 {
			return fmt.Errorf("%w: negative count for role %q", ErrInvalidSettings, role)
		}
		total += count
	}
	if total != s.PlayerCount {
		return fmt.Errorf("%w: role counts sum to %d, want %d", ErrInvalidSettings, total, s.PlayerCount)
	}
	if s.Roles[RoleMafia] < 1 {
		return fmt.Errorf("%w: at least one mafia required", ErrInvalidSettings)
	}
	if s.Roles[RoleMafia] >= s.PlayerCount {
		return fmt.Errorf("%w: at least one innocent required", ErrInvalidSettings)
	}
	return nil
}

// RoleList expands the distribution into a flat, unshuffled role slice.
func (s Settings) RoleList() []Role {
	roles := make([]Role, 0, s.PlayerCount)
	for _, role := range []Role{RoleMafia, RoleDetective, RoleDoctor, RoleVillager} {
		for i := 0; i < s.Roles[role]; i++ {
			roles = append(roles, role)
		}
	}
	return roles
}
