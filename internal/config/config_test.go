package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupaus-server/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Game.MinPlayers)
	assert.Equal(t, 5, cfg.Game.MaxPlayers)
	assert.Equal(t, 10, cfg.Game.StartCards)
	assert.Equal(t, 2*time.Second, cfg.Game.SettlementDelay)
	assert.Equal(t, 120*time.Second, cfg.Game.GracePeriod)
	assert.Equal(t, 20, cfg.Limits.Burst)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LUPAUS_SERVER_PORT", "8080")
	t.Setenv("LUPAUS_GAME_GRACE_PERIOD", "30s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Game.GracePeriod)
}

func TestLoadRejectsOversizedDeal(t *testing.T) {
	// 5 players at 13 cards would need 65 cards.
	t.Setenv("LUPAUS_GAME_START_CARDS", "13")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deck")
}

func TestLoadRejectsBadSeatBounds(t *testing.T) {
	t.Setenv("LUPAUS_GAME_MIN_PLAYERS", "6")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("LUPAUS_GAME_MIN_PLAYERS", "1")
	_, err = config.Load()
	require.Error(t, err)
}

func TestLoadRejectsZeroStartCards(t *testing.T) {
	t.Setenv("LUPAUS_GAME_START_CARDS", "0")

	_, err := config.Load()
	require.Error(t, err)
}
