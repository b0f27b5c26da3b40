package mafia

import (
	"encoding/json"
	"fmt"
	"time"
)

// Investigation is a detective's private result for one target.
type Investigation struct {
	TargetID string `json:"targetId"`
	Mafia    bool   `json:"mafia"`
}

// Protection is a doctor's private record of their last protection attempt.
type Protection struct {
	TargetID string `json:"targetId"`
	Saved    bool   `json:"saved"`
}

// Participant is one seat in a match.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Status  Status `json:"status"`
	Human   bool   `json:"human"`
	Persona string `json:"persona,omitempty"`

	// Role-private fields. Never shipped to other participants' views;
	// filtering happens at the fan-out boundary, not here.
	LastInvestigation *Investigation  `json:"lastInvestigation,omitempty"`
	Investigations    map[string]bool `json:"investigations,omitempty"`
	LastProtection    *Protection     `json:"lastProtection,omitempty"`
}

// Alive reports whether the participant can still act.
func (p *Participant) Alive() bool {
	return p.Status == StatusAlive
}

// NightAction is one submitted secret action. Seq preserves submission order
// within a night; the mafia kill tie-break prefers the lowest Seq.
type NightAction struct {
	ActorID     string     `json:"actorId"`
	Kind        ActionKind `json:"kind"`
	TargetID    string     `json:"targetId"`
	Seq         int        `json:"seq"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

// Vote is one ballot. An empty TargetID is an abstention.
type Vote struct {
	VoterID     string    `json:"voterId"`
	TargetID    string    `json:"targetId,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Abstain reports whether the vote names no target.
func (v Vote) Abstain() bool { return v.TargetID == "" }

// ChatMessage is one line of the day-discussion transcript.
type ChatMessage struct {
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	Day        int       `json:"day"`
	SentAt     time.Time `json:"sentAt"`
}

// Match is one complete play-through. All mutation goes through the
// registry's per-match critical section; Match itself carries no lock.
type Match struct {
	ID           string                 `json:"id"`
	Settings     Settings               `json:"settings"`
	Participants []*Participant         `json:"participants"`
	Phase        Phase                  `json:"phase"`
	Day          int                    `json:"day"`
	Log          []string               `json:"log"`
	Chat         []ChatMessage          `json:"chat"`
	NightActions map[string]NightAction `json:"nightActions"`
	Votes        map[string]Vote        `json:"votes"`
	Outcome      Outcome                `json:"outcome,omitempty"`
	ActionSeq    int                    `json:"actionSeq"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// Participant returns the participant with the given id, or nil.
func (m *Match) Participant(id string) *Participant {
	for _, p := range m.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Human returns the match's human participant.
func (m *Match) Human() *Participant {
	for _, p := range m.Participants {
		if p.Human {
			return p
		}
	}
	return nil
}

// Alive returns all living participants in seat order.
func (m *Match) Alive() []*Participant {
	var out []*Participant
	for _, p := range m.Participants {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// AliveCounts returns the living mafia and innocent counts.
func (m *Match) AliveCounts() (mafia, innocents int) {
	for _, p := range m.Participants {
		if !p.Alive() {
			continue
		}
		if p.Role == RoleMafia {
			mafia++
		} else {
			innocents++
		}
	}
	return mafia, innocents
}

// AddLog appends a timestamped event to the public match log.
func (m *Match) AddLog(event string) {
	stamp := time.Now().UTC().Format("2006-01-02 15:04:05")
	m.Log = append(m.Log, fmt.Sprintf("[%s] %s", stamp, event))
}

// Snapshot serializes the full match, private fields included. The store
// persists snapshots verbatim; only the fan-out layer filters.
func (m *Match) Snapshot() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal match %s: %w", m.ID, err)
	}
	return data, nil
}

// FromSnapshot reconstructs a match from a stored snapshot.
func FromSnapshot(data []byte) (*Match, error) {
	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal match snapshot: %w", err)
	}
	if m.NightActions == nil {
		m.NightActions = make(map[string]NightAction)
	}
	if m.Votes == nil {
		m.Votes = make(map[string]Vote)
	}
	return &m, nil
}

// Clone deep-copies the match via its snapshot encoding.
func (m *Match) Clone() *Match {
	data, err := m.Snapshot()
	if err != nil {
		panic(fmt.Sprintf("clone match %s: %v", m.ID, err))
	}
	c, err := FromSnapshot(data)
	if err != nil {
		panic(fmt.Sprintf("clone match %s: %v", m.ID, err))
	}
	return c
}
