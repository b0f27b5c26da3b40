package mafia

// Role-filtered views. The store always persists the full match; anything
// shipped to a viewer goes through ViewFor so one participant's private
// fields never reach another participant.

// ParticipantView is the public slice of one participant. Role is set only
// when the viewer is allowed to know it.
type ParticipantView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Human  bool   `json:"human"`
	Role   Role   `json:"role,omitempty"`
	You    bool   `json:"you,omitempty"`
}

// PrivateView is the viewer's own secret state.
type PrivateView struct {
	Role              Role            `json:"role"`
	LastInvestigation *Investigation  `json:"lastInvestigation,omitempty"`
	Investigations    map[string]bool `json:"investigations,omitempty"`
	LastProtection    *Protection     `json:"lastProtection,omitempty"`
	PendingAction     bool            `json:"pendingAction"`
	PendingVote       bool            `json:"pendingVote"`
}

// View is the match as one viewer is allowed to see it.
type View struct {
	ID           string            `json:"id"`
	Phase        Phase             `json:"phase"`
	Day          int               `json:"day"`
	Outcome      Outcome           `json:"outcome,omitempty"`
	Log          []string          `json:"log"`
	Chat         []ChatMessage     `json:"chat"`
	Participants []ParticipantView `json:"participants"`
	You          *PrivateView      `json:"you,omitempty"`
}

// ViewFor builds the role-filtered view for viewerID. An unknown viewer id
// gets the public spectator view.
func (m *Match) ViewFor(viewerID string) View {
	viewer := m.Participant(viewerID)
	v := View{
		ID:      m.ID,
		Phase:   m.Phase,
		Day:     m.Day,
		Outcome: m.Outcome,
		Log:     m.Log,
		Chat:    m.Chat,
	}
	for _, p := range m.Participants {
		pv := ParticipantView{
			ID:     p.ID,
			Name:   p.Name,
			Status: p.Status,
			Human:  p.Human,
		}
		if viewer != nil && p.ID == viewer.ID {
			pv.You = true
		}
		if m.roleVisible(viewer, p) {
			pv.Role = p.Role
		}
		v.Participants = append(v.Participants, pv)
	}
	if viewer != nil {
		priv := &PrivateView{Role: viewer.Role}
		switch viewer.Role {
		case RoleDetective:
			priv.LastInvestigation = viewer.LastInvestigation
			priv.Investigations = viewer.Investigations
		case RoleDoctor:
			priv.LastProtection = viewer.LastProtection
		}
		if viewer.Alive() {
			if _, acts := viewer.Role.NightAction(); acts && m.Phase == PhaseNight {
				_, submitted := m.NightActions[viewer.ID]
				priv.PendingAction = !submitted
			}
			if m.Phase == PhaseVoting {
				_, voted := m.Votes[viewer.ID]
				priv.PendingVote = !voted
			}
		}
		v.You = priv
	}
	return v
}

// roleVisible decides whether viewer may see p's role: always their own,
// fellow mafia see each other, dead roles per the reveal setting, and
// everything once the match is over.
func (m *Match) roleVisible(viewer, p *Participant) bool {
	if m.Phase == PhaseGameover {
		return true
	}
	if viewer == nil {
		return !p.Alive() && m.Settings.RevealRoleOnDeath
	}
	if p.ID == viewer.ID {
		return true
	}
	if viewer.Role == RoleMafia && p.Role == RoleMafia {
		return true
	}
	return !p.Alive() && m.Settings.RevealRoleOnDeath
}
