package server

import (
	"errors"
	"math/rand"
	"strings"
)

const roomKeyLength = 6

// GenerateRoomKey returns a fresh room key not present in usedKeys.
func GenerateRoomKey(usedKeys map[string]bool) string {
	for {
		key := make([]byte, roomKeyLength)
		for i := range key {
			key[i] = 'A' + byte(rand.Intn(26))
		}
		roomKey := string(key)

		if !usedKeys[roomKey] {
			return roomKey
		}
	}
}

func ValidateRoomKey(key string) error {
	if len(key) != roomKeyLength {
		return errors.New("INVALID_ROOM_KEY: Room key must be exactly 6 characters")
	}

	for _, ch := range strings.ToUpper(key) {
		if ch < 'A' || ch > 'Z' {
			return errors.New("INVALID_ROOM_KEY: Room key must contain only letters A-Z")
		}
	}
	return nil
}

func NormalizeRoomKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
