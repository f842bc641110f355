package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionManagerStoreAndRetrieve(t *testing.T) {
	sm := NewSessionManager()

	sm.Store("session-123", "ABCDEF", "Alice")

	info, ok := sm.Get("session-123")
	assert.True(t, ok)
	assert.Equal(t, "ABCDEF", info.RoomID)
	assert.Equal(t, "Alice", info.PlayerName)
}

func TestSessionManagerGetMissing(t *testing.T) {
	sm := NewSessionManager()

	_, ok := sm.Get("no-such-session")
	assert.False(t, ok)
}

func TestSessionManagerRemove(t *testing.T) {
	sm := NewSessionManager()

	sm.Store("temp", "ABCDEF", "Bob")
	sm.Remove("temp")

	_, ok := sm.Get("temp")
	assert.False(t, ok)
	assert.Equal(t, 0, sm.Count())
}

func TestSessionManagerRemoveByRoom(t *testing.T) {
	sm := NewSessionManager()

	sm.Store("a", "ROOMAA", "Alice")
	sm.Store("b", "ROOMAA", "Bob")
	sm.Store("c", "ROOMBB", "Carol")

	sm.RemoveByRoom("ROOMAA")

	_, ok := sm.Get("a")
	assert.False(t, ok)
	_, ok = sm.Get("b")
	assert.False(t, ok)
	_, ok = sm.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 1, sm.Count())
}

func TestSessionManagerConcurrentAccess(t *testing.T) {
	sm := NewSessionManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n)
			sm.Store(id, "ABCDEF", fmt.Sprintf("Player%d", n))
			_, ok := sm.Get(id)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, sm.Count())
}
