// Package config loads server configuration with viper. Every setting has a
// sensible default and can be overridden through LUPAUS_* environment
// variables; a local .env file is picked up automatically.
package config

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// Config holds all server configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	Limits LimitsConfig `mapstructure:"limits"`
}

// ServerConfig holds HTTP/WebSocket listener configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GameConfig holds the room defaults and the two timing windows of the game
// loop: the pause before a full trick is cleared, and how long a dropped
// player's seat is held.
type GameConfig struct {
	MinPlayers      int           `mapstructure:"min_players"`
	MaxPlayers      int           `mapstructure:"max_players"`
	StartCards      int           `mapstructure:"start_cards"`
	OneCardBlind    bool          `mapstructure:"one_card_blind"`
	SettlementDelay time.Duration `mapstructure:"settlement_delay"`
	GracePeriod     time.Duration `mapstructure:"grace_period"`
}

// LimitsConfig holds per-connection rate limiting.
type LimitsConfig struct {
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Load reads configuration: defaults first, then LUPAUS_* env overrides
// (e.g. LUPAUS_SERVER_PORT, LUPAUS_GAME_GRACE_PERIOD).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.max_players", 5)
	v.SetDefault("game.start_cards", 10)
	v.SetDefault("game.one_card_blind", false)
	v.SetDefault("game.settlement_delay", 2*time.Second)
	v.SetDefault("game.grace_period", 120*time.Second)
	v.SetDefault("limits.messages_per_second", 10.0)
	v.SetDefault("limits.burst", 20)

	v.SetEnvPrefix("LUPAUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Game.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects game parameters a 52-card deck cannot serve.
func (g GameConfig) validate() error {
	if g.StartCards < 1 {
		return fmt.Errorf("game.start_cards must be at least 1, got %d", g.StartCards)
	}
	if g.MinPlayers < 2 || g.MinPlayers > g.MaxPlayers {
		return fmt.Errorf("game.min_players/max_players out of order: %d..%d", g.MinPlayers, g.MaxPlayers)
	}
	if needed := g.MaxPlayers * g.StartCards; needed > 52 {
		return fmt.Errorf("game.max_players (%d) times game.start_cards (%d) needs %d cards, the deck has 52",
			g.MaxPlayers, g.StartCards, needed)
	}
	return nil
}
