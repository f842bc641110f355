package server

import (
	"sync"

	"github.com/coder/websocket"
)

// Binding records which room and session a live connection speaks for.
// Seats are never cached here; they are resolved against the room on
// every command so a reconnect cannot leave a stale seat behind.
type Binding struct {
	RoomID    string
	SessionID string
}

// ConnectionManager tracks live websocket connections and their room
// bindings.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
	bindings    map[string]Binding
	bySession   map[string]string
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		bindings:    make(map[string]Binding),
		bySession:   make(map[string]string),
	}
}

func (cm *ConnectionManager) Add(connID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[connID] = conn
}

func (cm *ConnectionManager) Remove(connID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if b, ok := cm.bindings[connID]; ok {
		if cm.bySession[b.SessionID] == connID {
			delete(cm.bySession, b.SessionID)
		}
		delete(cm.bindings, connID)
	}
	delete(cm.connections, connID)
}

func (cm *ConnectionManager) Get(connID string) (*websocket.Conn, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conn, ok := cm.connections[connID]
	return conn, ok
}

// Bind attaches a connection to a room session. A session rebinding to a
// new connection displaces the old one.
func (cm *ConnectionManager) Bind(connID, roomID, sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, ok := cm.bySession[sessionID]; ok && old != connID {
		delete(cm.bindings, old)
	}
	cm.bindings[connID] = Binding{RoomID: roomID, SessionID: sessionID}
	cm.bySession[sessionID] = connID
}

func (cm *ConnectionManager) GetBinding(connID string) (Binding, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	b, ok := cm.bindings[connID]
	return b, ok
}

func (cm *ConnectionManager) ConnBySession(sessionID string) (*websocket.Conn, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connID, ok := cm.bySession[sessionID]
	if !ok {
		return nil, false
	}
	conn, ok := cm.connections[connID]
	return conn, ok
}

// UnbindRoom clears every binding into roomID without closing the
// connections. Used when a room is destroyed.
func (cm *ConnectionManager) UnbindRoom(roomID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for connID, b := range cm.bindings {
		if b.RoomID == roomID {
			delete(cm.bindings, connID)
			if cm.bySession[b.SessionID] == connID {
				delete(cm.bySession, b.SessionID)
			}
		}
	}
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return len(cm.connections)
}
