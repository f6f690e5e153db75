package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// session wraps one websocket connection. gorilla/websocket allows a single
// concurrent writer per connection, so every write goes through the session
// mutex.
type session struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	userID int64 // 0 until the connection binds a user
}

func (s *session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Hub manages active WebSocket sessions keyed by connection id, with a
// secondary index by user id, and provides the fan-out primitives the event
// router needs.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[int64]map[string]*session
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		byUser:   make(map[int64]map[string]*session),
	}
}

// Register adds a connection under the given connection id. The user index
// is populated later, on BindUser.
func (h *Hub) Register(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[connID] = &session{conn: conn}
}

// BindUser associates the connection with a user id so user-targeted
// broadcasts reach it.
func (h *Hub) BindUser(connID string, userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[connID]
	if !ok {
		return
	}
	if s.userID != 0 {
		h.removeFromUserIndex(connID, s.userID)
	}
	s.userID = userID
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[string]*session)
	}
	h.byUser[userID][connID] = s
}

// Unregister removes the connection and its user index entry.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[connID]
	if !ok {
		return
	}
	delete(h.sessions, connID)
	if s.userID != 0 {
		h.removeFromUserIndex(connID, s.userID)
	}
}

func (h *Hub) removeFromUserIndex(connID string, userID int64) {
	if conns, ok := h.byUser[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.byUser, userID)
		}
	}
}

// Send delivers the payload to a single connection.
func (h *Hub) Send(connID string, v any) {
	h.mu.RLock()
	s, ok := h.sessions[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.send(v); err != nil {
		s.conn.Close()
		// actual removal happens when the read loop exits
	}
}

// BroadcastAll sends the payload to every connected session.
func (h *Hub) BroadcastAll(v any) {
	for _, s := range h.snapshot() {
		if err := s.send(v); err != nil {
			s.conn.Close()
		}
	}
}

// BroadcastToUsers sends the payload to all sessions of the given users.
func (h *Hub) BroadcastToUsers(userIDs []int64, v any) {
	h.BroadcastToUsersExcept(userIDs, "", v)
}

// BroadcastToUsersExcept sends the payload to all sessions of the given
// users, skipping the named connection (typically the event's originator).
func (h *Hub) BroadcastToUsersExcept(userIDs []int64, exceptConnID string, v any) {
	h.mu.RLock()
	var targets []*session
	for _, uid := range userIDs {
		for connID, s := range h.byUser[uid] {
			if connID == exceptConnID {
				continue
			}
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.send(v); err != nil {
			s.conn.Close()
		}
	}
}

// CloseAll force-closes every connection; used on shutdown. Read loops exit
// with an error and run their usual disconnect cleanup.
func (h *Hub) CloseAll() {
	for _, s := range h.snapshot() {
		s.conn.Close()
	}
}

func (h *Hub) snapshot() []*session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}
