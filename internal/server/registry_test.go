package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupaus-server/internal/lupaus"
)

func testRoomConfig() lupaus.Config {
	return lupaus.Config{
		MinPlayers: 3,
		MaxPlayers: 5,
		StartCards: 5,
	}
}

func TestRegistryCreate(t *testing.T) {
	rr := NewRoomRegistry(zerolog.Nop())

	entry, err := rr.Create("Friday game", "", testRoomConfig())
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, 6, len(entry.Game.ID))
	assert.Equal(t, "Friday game", entry.Game.Name)
	assert.False(t, entry.HasPassword())
	assert.Equal(t, 1, rr.Count())

	got, ok := rr.Get(entry.Game.ID)
	assert.True(t, ok)
	assert.Same(t, entry, got)
}

func TestRegistryGetOrCreate(t *testing.T) {
	rr := NewRoomRegistry(zerolog.Nop())

	entry, created, err := rr.GetOrCreate("lupaus", "", testRoomConfig())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "LUPAUS", entry.Game.ID)

	again, created, err := rr.GetOrCreate("LUPAUS", "", testRoomConfig())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, entry, again)

	assert.Equal(t, 1, rr.Count())
}

func TestRegistryGetOrCreateRejectsBadKey(t *testing.T) {
	rr := NewRoomRegistry(zerolog.Nop())

	_, _, err := rr.GetOrCreate("AB1", "", testRoomConfig())
	assert.Error(t, err)
	assert.Equal(t, 0, rr.Count())
}

func TestRegistryPassword(t *testing.T) {
	rr := NewRoomRegistry(zerolog.Nop())

	entry, err := rr.Create("Secret table", "hunter2", testRoomConfig())
	require.NoError(t, err)

	assert.True(t, entry.HasPassword())
	assert.NoError(t, entry.CheckPassword("hunter2"))
	assert.Error(t, entry.CheckPassword("wrong"))

	open, err := rr.Create("Open table", "", testRoomConfig())
	require.NoError(t, err)
	assert.NoError(t, open.CheckPassword("anything"))
}

func TestRegistryRemove(t *testing.T) {
	rr := NewRoomRegistry(zerolog.Nop())

	entry, err := rr.Create("Short lived", "", testRoomConfig())
	require.NoError(t, err)

	key := entry.Game.ID
	rr.Remove(key)

	_, ok := rr.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, rr.Count())

	// Removing again is a no-op.
	rr.Remove(key)
}

func TestRegistryList(t *testing.T) {
	rr := NewRoomRegistry(zerolog.Nop())

	a, err := rr.Create("Alpha", "pw", testRoomConfig())
	require.NoError(t, err)
	_, err = rr.Create("Beta", "", testRoomConfig())
	require.NoError(t, err)

	a.Lock()
	_, err = a.Game.AddPlayer("Alice", "")
	a.Unlock()
	require.NoError(t, err)

	summaries := rr.List()
	require.Len(t, summaries, 2)

	byName := make(map[string]RoomSummary)
	for _, s := range summaries {
		byName[s.RoomName] = s
	}

	assert.Equal(t, 1, byName["Alpha"].PlayerCount)
	assert.True(t, byName["Alpha"].HasPassword)
	assert.Equal(t, 0, byName["Beta"].PlayerCount)
	assert.False(t, byName["Beta"].GameStarted)
	assert.Equal(t, 3, byName["Beta"].MinPlayers)
	assert.Equal(t, 5, byName["Beta"].MaxPlayers)

	// Sorted by key for a stable lobby listing.
	for i := 1; i < len(summaries); i++ {
		assert.Less(t, summaries[i-1].RoomKey, summaries[i].RoomKey)
	}
}
