package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"

	"lupaus-server/internal/lupaus"
)

// RoomEntry pairs a room with its mutex. Room is not internally
// synchronized; callers must hold mu across every read or write of
// Game, including taking snapshots.
type RoomEntry struct {
	mu           sync.Mutex
	Game         *lupaus.Room
	PasswordHash string
	CreatedAt    time.Time
}

func (e *RoomEntry) Lock()   { e.mu.Lock() }
func (e *RoomEntry) Unlock() { e.mu.Unlock() }

func (e *RoomEntry) HasPassword() bool {
	return e.PasswordHash != ""
}

// CheckPassword verifies a join attempt against the room's hash.
// Rooms without a password accept anything.
func (e *RoomEntry) CheckPassword(password string) error {
	if e.PasswordHash == "" {
		return nil
	}

	match, err := argon2id.ComparePasswordAndHash(password, e.PasswordHash)
	if err != nil {
		return errors.New("BAD_PASSWORD: Password verification failed")
	}
	if !match {
		return errors.New("BAD_PASSWORD: Wrong room password")
	}
	return nil
}

// RoomRegistry owns the set of live rooms keyed by room key.
type RoomRegistry struct {
	mu       sync.RWMutex
	rooms    map[string]*RoomEntry
	usedKeys map[string]bool
	log      zerolog.Logger
}

func NewRoomRegistry(logger zerolog.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:    make(map[string]*RoomEntry),
		usedKeys: make(map[string]bool),
		log:      logger,
	}
}

// Create makes a room under a freshly generated key.
func (rr *RoomRegistry) Create(roomName, password string, cfg lupaus.Config) (*RoomEntry, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	roomKey := GenerateRoomKey(rr.usedKeys)
	entry, err := rr.newEntry(roomKey, roomName, password, cfg)
	if err != nil {
		return nil, err
	}

	rr.log.Info().Str("room", roomKey).Str("name", roomName).Msg("room created")
	return entry, nil
}

// GetOrCreate returns the room under roomKey, creating a fresh one when
// the key is unclaimed. Rooms created this way take the key as their name
// and the supplied password as theirs.
func (rr *RoomRegistry) GetOrCreate(roomKey, password string, cfg lupaus.Config) (*RoomEntry, bool, error) {
	roomKey = NormalizeRoomKey(roomKey)
	if err := ValidateRoomKey(roomKey); err != nil {
		return nil, false, err
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	if entry, ok := rr.rooms[roomKey]; ok {
		return entry, false, nil
	}

	entry, err := rr.newEntry(roomKey, roomKey, password, cfg)
	if err != nil {
		return nil, false, err
	}

	rr.log.Info().Str("room", roomKey).Msg("room created on first join")
	return entry, true, nil
}

// newEntry builds and registers a room. Caller holds rr.mu.
func (rr *RoomRegistry) newEntry(roomKey, roomName, password string, cfg lupaus.Config) (*RoomEntry, error) {
	passwordHash := ""
	if password != "" {
		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return nil, errors.New("INTERNAL_ERROR: Failed to hash room password")
		}
		passwordHash = hash
	}

	entry := &RoomEntry{
		Game:         lupaus.NewRoom(roomKey, roomName, cfg, rr.log),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}

	rr.rooms[roomKey] = entry
	rr.usedKeys[roomKey] = true
	return entry, nil
}

func (rr *RoomRegistry) Get(roomKey string) (*RoomEntry, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	entry, ok := rr.rooms[NormalizeRoomKey(roomKey)]
	return entry, ok
}

// Remove destroys a room, stopping any timers it still holds. Safe to
// call for a key that was already removed.
func (rr *RoomRegistry) Remove(roomKey string) {
	roomKey = NormalizeRoomKey(roomKey)

	rr.mu.Lock()
	entry, ok := rr.rooms[roomKey]
	if ok {
		delete(rr.rooms, roomKey)
		delete(rr.usedKeys, roomKey)
	}
	rr.mu.Unlock()

	if !ok {
		return
	}

	entry.Lock()
	entry.Game.StopAllTimers()
	entry.Unlock()

	rr.log.Info().Str("room", roomKey).Msg("room removed")
}

func (rr *RoomRegistry) Count() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return len(rr.rooms)
}

// List summarizes every live room for the lobby browser.
func (rr *RoomRegistry) List() []RoomSummary {
	rr.mu.RLock()
	entries := make(map[string]*RoomEntry, len(rr.rooms))
	for key, entry := range rr.rooms {
		entries[key] = entry
	}
	rr.mu.RUnlock()

	summaries := make([]RoomSummary, 0, len(entries))
	for key, entry := range entries {
		entry.Lock()
		summaries = append(summaries, RoomSummary{
			RoomKey:     key,
			RoomName:    entry.Game.Name,
			PlayerCount: len(entry.Game.Players),
			MinPlayers:  entry.Game.Config.MinPlayers,
			MaxPlayers:  entry.Game.Config.MaxPlayers,
			GameStarted: entry.Game.GameStarted,
			HasPassword: entry.HasPassword(),
		})
		entry.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RoomKey < summaries[j].RoomKey
	})
	return summaries
}
