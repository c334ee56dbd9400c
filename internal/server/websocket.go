package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Broadcaster is the outbound fanout the engine publishes through. The
// production implementation is the websocket hub; tests substitute a recorder.
type Broadcaster interface {
	SendToRoom(roomID, kind string, payload any)
	SendToRoomExcept(roomID, exceptParticipantID, kind string, payload any)
	SendToParticipant(participantID, kind string, payload any)
}

// ChatHook lets the engine reach into the chat layer without owning it. The
// only crossing today is the FinalResults unmute sweep.
type ChatHook interface {
	UnmuteAll(roomID string)
}

// wsHub tracks one connection per participant, grouped by room. Connections
// double as the participant's liveness signal: a read error is a departure.
type wsHub struct {
	mu           sync.Mutex
	rooms        map[string]map[*websocket.Conn]string
	participants map[string]*websocket.Conn
}

func newWSHub() *wsHub {
	return &wsHub{
		rooms:        make(map[string]map[*websocket.Conn]string),
		participants: make(map[string]*websocket.Conn),
	}
}

func (h *wsHub) Add(roomID, participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[*websocket.Conn]string)
		h.rooms[roomID] = room
	}
	room[conn] = participantID
	if participantID != "" {
		if prev, ok := h.participants[participantID]; ok && prev != conn {
			_ = prev.Close()
			delete(room, prev)
		}
		h.participants[participantID] = conn
	}
}

func (h *wsHub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	if room == nil {
		return
	}
	if participantID, ok := room[conn]; ok && participantID != "" {
		if h.participants[participantID] == conn {
			delete(h.participants, participantID)
		}
	}
	delete(room, conn)
	_ = conn.Close()
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// Disconnect force-closes a single participant's connection, used on kicks.
func (h *wsHub) Disconnect(roomID, participantID string) {
	h.mu.Lock()
	conn := h.participants[participantID]
	h.mu.Unlock()
	if conn != nil {
		h.Remove(roomID, conn)
	}
}

// CloseRoom drops every connection in the room. Called from teardown after
// the game-ended broadcast went out.
func (h *wsHub) CloseRoom(roomID string) {
	h.mu.Lock()
	room := h.rooms[roomID]
	delete(h.rooms, roomID)
	conns := make([]*websocket.Conn, 0, len(room))
	for conn, participantID := range room {
		if participantID != "" && h.participants[participantID] == conn {
			delete(h.participants, participantID)
		}
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *wsHub) SendToRoom(roomID, kind string, payload any) {
	h.mu.Lock()
	room := h.rooms[roomID]
	conns := make([]*websocket.Conn, 0, len(room))
	for conn := range room {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	h.write(roomID, conns, kind, payload)
}

func (h *wsHub) SendToRoomExcept(roomID, exceptParticipantID, kind string, payload any) {
	h.mu.Lock()
	room := h.rooms[roomID]
	conns := make([]*websocket.Conn, 0, len(room))
	for conn, participantID := range room {
		if participantID == exceptParticipantID {
			continue
		}
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	h.write(roomID, conns, kind, payload)
}

func (h *wsHub) SendToParticipant(participantID, kind string, payload any) {
	h.mu.Lock()
	conn := h.participants[participantID]
	h.mu.Unlock()
	if conn == nil {
		return
	}
	data, err := json.Marshal(Envelope{Kind: kind, Payload: payload})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) write(roomID string, conns []*websocket.Conn, kind string, payload any) {
	data, err := json.Marshal(Envelope{Kind: kind, Payload: payload})
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(roomID, conn)
		}
	}
}

var roomUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebsocket attaches a client to its room's fanout. The connection is
// keyed by the participant id handed out at join time; an anonymous spectator
// connection still receives the room broadcasts.
func (s *Server) handleWebsocket(c *gin.Context) {
	roomID := c.Param("roomID")
	if !s.store.Exists(roomID) {
		c.Status(http.StatusNotFound)
		return
	}
	participantID := c.Query("participant_id")
	conn, err := roomUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s participant_id=%s remote=%s", roomID, participantID, c.Request.RemoteAddr)
	s.ws.Add(roomID, participantID, conn)
	s.store.WithGame(roomID, func(game *Game) {
		s.ws.Send(conn, Envelope{Kind: "snapshot", Payload: snapshot(game)})
	})
	go s.readWS(roomID, participantID, conn)
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// readWS drains the connection until it errors, then treats the closure as
// the participant leaving the room.
func (s *Server) readWS(roomID, participantID string, conn *websocket.Conn) {
	defer func() {
		s.ws.Remove(roomID, conn)
		if participantID != "" {
			s.RemoveParticipant(roomID, participantID)
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_id=%s participant_id=%s error=%v", roomID, participantID, err)
			return
		}
	}
}

// hubChat is the default ChatHook. Mute state proper lives on the aggregate;
// the hook's job is telling the room the sweep happened.
type hubChat struct {
	hub *wsHub
}

func (c *hubChat) UnmuteAll(roomID string) {
	c.hub.SendToRoom(roomID, eventSystemMessage, map[string]any{
		"message": "all participants unmuted",
	})
}
