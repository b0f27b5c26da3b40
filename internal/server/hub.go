package server

import (
	"encoding/json"
	"sync"

	"mafiad/internal/mafia"
)

// Viewer is one registered websocket connection watching a match.
type Viewer struct {
	ID   string
	Send chan []byte // outbound messages
}

// Hub fans serialized state out to every viewer registered for a match.
// Each viewer gets their own role-filtered view; private fields of other
// participants never leave this boundary. Hub implements registry.Notifier.
type Hub struct {
	mu      sync.Mutex
	viewers map[string]map[*Viewer]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{viewers: make(map[string]map[*Viewer]struct{})}
}

// Register adds a viewer for a match and returns its handle.
func (h *Hub) Register(matchID, viewerID string) *Viewer {
	v := &Viewer{
		ID:   viewerID,
		Send: make(chan []byte, 64),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[matchID] == nil {
		h.viewers[matchID] = make(map[*Viewer]struct{})
	}
	h.viewers[matchID][v] = struct{}{}
	return v
}

// Unregister removes a viewer and closes its send channel.
func (h *Hub) Unregister(matchID string, v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.viewers[matchID]
	if !ok {
		return
	}
	if _, ok := set[v]; !ok {
		return
	}
	delete(set, v)
	close(v.Send)
	if len(set) == 0 {
		delete(h.viewers, matchID)
	}
}

// MatchChanged pushes the new state to every viewer of the match. The lock
// is held across the sends: Unregister closes Send under the same lock, so a
// viewer can never be closed out from under an in-flight broadcast. Sends
// are non-blocking, so holding the lock here never stalls on a slow viewer.
func (h *Hub) MatchChanged(m *mafia.Match) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers[m.ID] {
		payload, err := json.Marshal(m.ViewFor(v.ID))
		if err != nil {
			continue
		}
		msg, err := json.Marshal(WSMessage{Type: "state", Payload: payload})
		if err != nil {
			continue
		}
		select {
		case v.Send <- msg:
		default:
			// drop message if buffer full
		}
	}
}
