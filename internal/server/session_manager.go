package server

import (
	"sync"
)

// SessionInfo links a durable player session to its room.
type SessionInfo struct {
	SessionID  string
	RoomID     string
	PlayerName string
}

// SessionManager tracks durable sessions across reconnects.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*SessionInfo
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*SessionInfo),
	}
}

func (sm *SessionManager) Store(sessionID, roomID, playerName string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessions[sessionID] = &SessionInfo{
		SessionID:  sessionID,
		RoomID:     roomID,
		PlayerName: playerName,
	}
}

func (sm *SessionManager) Get(sessionID string) (*SessionInfo, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	info, ok := sm.sessions[sessionID]
	return info, ok
}

func (sm *SessionManager) Remove(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, sessionID)
}

// RemoveByRoom drops every session bound to roomID. Used when a room is
// destroyed.
func (sm *SessionManager) RemoveByRoom(roomID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, info := range sm.sessions {
		if info.RoomID == roomID {
			delete(sm.sessions, id)
		}
	}
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}
