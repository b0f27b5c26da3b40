package server

import (
	"encoding/json"
	"log"
	"net/http"

	"nhooyr.io/websocket"

	"mafiad/internal/mafia"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsActionPayload struct {
	Kind     mafia.ActionKind `json:"kind"`
	TargetID string           `json:"targetId"`
}

type wsVotePayload struct {
	TargetID string `json:"targetId"` // empty = abstain
}

type wsChatPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	m, err := s.registry.Get(matchID)
	if err != nil {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	viewerID := s.viewerID(r, m)
	v := s.hub.Register(matchID, viewerID)
	defer s.hub.Unregister(matchID, v)

	// Initial state so the viewer doesn't wait for the next mutation.
	if payload, err := json.Marshal(m.ViewFor(viewerID)); err == nil {
		sendWSMsg(v.Send, "state", json.RawMessage(payload))
	}

	// Writer goroutine: send messages from the channel to the websocket
	go func() {
		for msg := range v.Send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop: viewers submit actions for their own seat only
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSError(v.Send, "invalid message")
			continue
		}
		s.handleWSMessage(matchID, viewerID, v.Send, msg)
	}

	log.Printf("viewer %s disconnected from match %s", viewerID, matchID)
}

func (s *Server) handleWSMessage(matchID, viewerID string, send chan []byte, msg WSMessage) {
	switch msg.Type {
	case "action":
		var p wsActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sendWSError(send, "invalid action payload")
			return
		}
		if err := s.coordinator.SubmitNightAction(matchID, viewerID, p.Kind, p.TargetID); err != nil {
			sendWSError(send, err.Error())
		}
	case "vote":
		var p wsVotePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sendWSError(send, "invalid vote payload")
			return
		}
		if err := s.coordinator.SubmitVote(matchID, viewerID, p.TargetID); err != nil {
			sendWSError(send, err.Error())
		}
	case "chat":
		var p wsChatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sendWSError(send, "invalid chat payload")
			return
		}
		if err := s.coordinator.SubmitChat(matchID, viewerID, p.Text); err != nil {
			sendWSError(send, err.Error())
		}
	default:
		sendWSError(send, "unknown message type: "+msg.Type)
	}
}

func sendWSMsg(send chan []byte, msgType string, payload any) {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	select {
	case send <- msg:
	default:
	}
}

func sendWSError(send chan []byte, message string) {
	sendWSMsg(send, "error", errorPayload{Message: message})
}
