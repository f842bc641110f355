package lupaus

import (
	"sort"
	"time"

	"lupaus-server/internal/game"
)

// Snapshot is the public projection of a room, safe to broadcast to every
// seat. Hands never appear here; each seat gets its own via HandForPlayer.
type Snapshot struct {
	RoomID             string               `json:"roomId"`
	RoomName           string               `json:"roomName"`
	Players            []PlayerView         `json:"players"`
	GameStarted        bool                 `json:"gameStarted"`
	Phase              Phase                `json:"phase"`
	CurrentRound       int                  `json:"currentRound"`
	CardsThisRound     int                  `json:"cardsThisRound"`
	DealerIndex        int                  `json:"dealerIndex"`
	CurrentPlayerIndex int                  `json:"currentPlayerIndex"`
	Bids               []*int               `json:"bids"`
	TricksWon          []int                `json:"tricks"`
	CurrentTrick       []Play               `json:"currentTrick"`
	LeadSuit           *game.Suit           `json:"leadSuit"`
	ForbiddenBid       *int                 `json:"forbiddenBid,omitempty"`
	OneCardBlind       bool                 `json:"oneCardBlind"`
	Scores             [][]RoundScore       `json:"scores"`
	MinPlayers         int                  `json:"minPlayers"`
	MaxPlayers         int                  `json:"maxPlayers"`
	IsPaused           bool                 `json:"isPaused"`
	PauseReason        string               `json:"pauseReason"`
	Disconnected       []DisconnectedPlayer `json:"disconnectedPlayers"`
}

type PlayerView struct {
	PlayerName  string `json:"playerName"`
	PlayerIndex int    `json:"playerIndex"`
	Ready       bool   `json:"ready"`
	Connected   bool   `json:"connected"`
}

type DisconnectedPlayer struct {
	PlayerIndex   int    `json:"playerIndex"`
	PlayerName    string `json:"playerName"`
	RemainingSecs int    `json:"remainingSecs"`
}

// Snapshot builds the public room view. Two calls without an intervening
// mutation yield the same output, except the remaining grace seconds, which
// count down in wall time.
func (r *Room) Snapshot() Snapshot {
	players := make([]PlayerView, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerView{
			PlayerName:  p.Name,
			PlayerIndex: p.Index,
			Ready:       p.Ready,
			Connected:   p.Connected,
		}
	}

	bids := make([]*int, len(r.Bids))
	copy(bids, r.Bids)

	trick := make([]Play, len(r.CurrentTrick))
	copy(trick, r.CurrentTrick)

	scores := make([][]RoundScore, len(r.scores))
	copy(scores, r.scores)

	var forbidden *int
	if f := r.CurrentForbiddenBid(); f >= 0 {
		forbidden = &f
	}

	disconnected := make([]DisconnectedPlayer, 0, len(r.Disconnected))
	for index, info := range r.Disconnected {
		remaining := r.Config.GracePeriod - time.Since(info.DisconnectedAt)
		if remaining < 0 {
			remaining = 0
		}
		disconnected = append(disconnected, DisconnectedPlayer{
			PlayerIndex:   index,
			PlayerName:    info.PlayerName,
			RemainingSecs: int(remaining / time.Second),
		})
	}
	sort.Slice(disconnected, func(a, b int) bool {
		return disconnected[a].PlayerIndex < disconnected[b].PlayerIndex
	})

	return Snapshot{
		RoomID:             r.ID,
		RoomName:           r.Name,
		Players:            players,
		GameStarted:        r.GameStarted,
		Phase:              r.Phase,
		CurrentRound:       r.CurrentRound,
		CardsThisRound:     r.CardsThisRound,
		DealerIndex:        r.DealerIndex,
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		Bids:               bids,
		TricksWon:          append([]int{}, r.TricksWon...),
		CurrentTrick:       trick,
		LeadSuit:           r.LeadSuit,
		ForbiddenBid:       forbidden,
		OneCardBlind:       r.Config.OneCardBlind,
		Scores:             scores,
		MinPlayers:         r.Config.MinPlayers,
		MaxPlayers:         r.Config.MaxPlayers,
		IsPaused:           r.Paused,
		PauseReason:        r.PauseReason,
		Disconnected:       disconnected,
	}
}
