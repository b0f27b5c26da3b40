package mafia

import "time"

// testMatch builds the seven-seat fixture used across the package tests:
// one human villager, two mafia, a detective, a doctor, two more villagers.
func testMatch() *Match {
	now := time.Now().UTC()
	m := &Match{
		ID:       "m1",
		Settings: DefaultSettings(),
		Phase:    PhasePregame,
		Day:      1,
		Participants: []*Participant{
			{ID: "p1", Name: "You", Role: RoleVillager, Status: StatusAlive, Human: true},
			{ID: "p2", Name: "Player 2", Role: RoleMafia, Status: StatusAlive, Persona: "quiet"},
			{ID: "p3", Name: "Player 3", Role: RoleMafia, Status: StatusAlive, Persona: "aggressive"},
			{ID: "p4", Name: "Player 4", Role: RoleDetective, Status: StatusAlive, Persona: "logical"},
			{ID: "p5", Name: "Player 5", Role: RoleDoctor, Status: StatusAlive, Persona: "paranoid"},
			{ID: "p6", Name: "Player 6", Role: RoleVillager, Status: StatusAlive, Persona: "talkative"},
			{ID: "p7", Name: "Player 7", Role: RoleVillager, Status: StatusAlive, Persona: "deceptive"},
		},
		NightActions: make(map[string]NightAction),
		Votes:        make(map[string]Vote),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return m
}
