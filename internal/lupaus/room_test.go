package lupaus

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lupaus-server/internal/game"
)

func testConfig() Config {
	return Config{
		MinPlayers:  3,
		MaxPlayers:  5,
		StartCards:  5,
		GracePeriod: 120 * time.Second,
	}
}

func newTestRoom(t *testing.T, players int) *Room {
	t.Helper()
	r := NewRoom("TEST01", "Test room", testConfig(), zerolog.Nop())
	for i := 0; i < players; i++ {
		_, err := r.AddPlayer(fmt.Sprintf("Player%d", i+1), "")
		require.NoError(t, err)
	}
	return r
}

// bidOut submits a bid for every seat in bidding order, dodging the hook rule.
func bidOut(t *testing.T, r *Room) {
	t.Helper()
	n := len(r.Players)
	for i := 0; i < n; i++ {
		seat := (r.DealerIndex + i) % n
		bid := 0
		if i == n-1 && r.CurrentForbiddenBid() == 0 {
			bid = 1
		}
		require.NoError(t, r.SubmitBid(seat, bid))
	}
}

// playOut plays the round to completion, each seat playing its first legal
// card and tricks settling immediately.
func playOut(t *testing.T, r *Room) {
	t.Helper()
	for r.Phase == PhasePlaying {
		seat := r.CurrentPlayerIndex
		hand := append([]game.Card{}, r.hands[seat]...)

		played := false
		for _, card := range hand {
			complete, err := r.PlayCard(seat, card)
			if err != nil {
				continue
			}
			played = true
			if complete {
				_, err := r.CompleteTrick()
				require.NoError(t, err)
			}
			break
		}
		require.True(t, played, "seat %d had no legal play", seat)
	}
}

func TestAddPlayer(t *testing.T) {
	r := newTestRoom(t, 0)

	p1, err := r.AddPlayer("Aino", "")
	require.NoError(t, err)
	assert.Equal(t, 0, p1.Index)
	assert.NotEmpty(t, p1.SessionID, "a session id should be allocated when none is supplied")

	p2, err := r.AddPlayer("Berit", "my-session")
	require.NoError(t, err)
	assert.Equal(t, 1, p2.Index)
	assert.Equal(t, "my-session", p2.SessionID)
}

func TestAddPlayerRoomFull(t *testing.T) {
	r := newTestRoom(t, 5)

	_, err := r.AddPlayer("TooMany", "")
	assert.ErrorContains(t, err, "ROOM_FULL")
}

func TestAddPlayerAfterStart(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	_, err := r.AddPlayer("Latecomer", "")
	assert.ErrorContains(t, err, "GAME_ALREADY_STARTED")
}

func TestRemovePlayerBeforeStartCompactsSeats(t *testing.T) {
	r := newTestRoom(t, 4)

	result := r.RemovePlayer(r.Players[1].SessionID)
	require.True(t, result.Found)
	assert.False(t, result.WasInGame)
	assert.Equal(t, "Player2", result.PlayerName)

	require.Len(t, r.Players, 3)
	for i, p := range r.Players {
		assert.Equal(t, i, p.Index, "seat indices must stay dense")
	}
}

func TestStartGame(t *testing.T) {
	for n := 3; n <= 5; n++ {
		r := newTestRoom(t, n)

		require.True(t, r.StartGame(), "%d players should be a valid game", n)
		assert.Equal(t, PhaseBidding, r.Phase)
		assert.Equal(t, 1, r.CurrentRound)
		assert.Equal(t, 5, r.CardsThisRound)
		assert.GreaterOrEqual(t, r.DealerIndex, 0)
		assert.Less(t, r.DealerIndex, n)
		assert.Equal(t, r.DealerIndex, r.CurrentPlayerIndex, "the dealer bids first")

		for i := 0; i < n; i++ {
			assert.Len(t, r.HandForPlayer(i), 5)
		}
	}
}

func TestStartGameTooFewPlayers(t *testing.T) {
	r := newTestRoom(t, 2)
	assert.False(t, r.StartGame())
	assert.Equal(t, PhaseWaiting, r.Phase)
}

func TestBiddingTurnOrder(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	dealer := r.DealerIndex
	outOfTurn := (dealer + 1) % 3

	err := r.SubmitBid(outOfTurn, 0)
	assert.ErrorContains(t, err, "NOT_YOUR_TURN")

	require.NoError(t, r.SubmitBid(dealer, 2))

	err = r.SubmitBid(dealer, 1)
	assert.ErrorContains(t, err, "ALREADY_BID")
}

func TestHookRuleInRoom(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	dealer := r.DealerIndex
	require.NoError(t, r.SubmitBid(dealer, 1))
	require.NoError(t, r.SubmitBid((dealer+1)%3, 2))

	// 5 cards, prior bids sum to 3: the last bidder may not bid 2.
	assert.Equal(t, 2, r.CurrentForbiddenBid())
	err := r.SubmitBid((dealer+2)%3, 2)
	assert.ErrorContains(t, err, "FORBIDDEN_BID")

	require.NoError(t, r.SubmitBid((dealer+2)%3, 3))
	assert.Equal(t, PhasePlaying, r.Phase, "play begins once every seat has bid")
}

func TestHighestBidLeadsFirstTrick(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	dealer := r.DealerIndex
	bids := map[int]int{dealer: 1, (dealer + 1) % 3: 4, (dealer + 2) % 3: 1}
	for i := 0; i < 3; i++ {
		seat := (dealer + i) % 3
		require.NoError(t, r.SubmitBid(seat, bids[seat]))
	}

	assert.Equal(t, PhasePlaying, r.Phase)
	assert.Equal(t, (dealer+1)%3, r.CurrentPlayerIndex, "the highest bidder leads")
}

// Tied highest bids: the first occurrence in seat order leads.
func TestStartingLeaderTieBreak(t *testing.T) {
	r := newTestRoom(t, 3)
	r.GameStarted = true
	r.Phase = PhaseBidding
	r.CurrentRound = 1
	r.CardsThisRound = 5
	r.DealerIndex = 0
	r.CurrentPlayerIndex = 0
	r.Bids = make([]*int, 3)
	r.TricksWon = make([]int, 3)
	r.hands = game.Deal(3, 5)

	require.NoError(t, r.SubmitBid(0, 3))
	require.NoError(t, r.SubmitBid(1, 3))
	require.NoError(t, r.SubmitBid(2, 1))

	assert.Equal(t, PhasePlaying, r.Phase)
	assert.Equal(t, 0, r.CurrentPlayerIndex, "seat 0 bid the max first and leads")
}

func playingRoom(t *testing.T) *Room {
	t.Helper()
	r := newTestRoom(t, 3)
	r.GameStarted = true
	r.Phase = PhasePlaying
	r.CurrentRound = 1
	r.CardsThisRound = 2
	r.DealerIndex = 0
	r.CurrentPlayerIndex = 0
	bids := []int{1, 0, 0}
	r.Bids = make([]*int, 3)
	for i := range bids {
		r.Bids[i] = &bids[i]
	}
	r.TricksWon = make([]int, 3)
	r.hands = [][]game.Card{
		{{Suit: game.Spades, Rank: game.Seven}, {Suit: game.Hearts, Rank: game.Two}},
		{{Suit: game.Spades, Rank: game.King}, {Suit: game.Hearts, Rank: game.Three}},
		{{Suit: game.Spades, Rank: game.Ace}, {Suit: game.Hearts, Rank: game.Four}},
	}
	return r
}

func TestPlayCardFollowSuit(t *testing.T) {
	r := playingRoom(t)

	complete, err := r.PlayCard(0, game.Card{Suit: game.Spades, Rank: game.Seven})
	require.NoError(t, err)
	assert.False(t, complete)
	require.NotNil(t, r.LeadSuit)
	assert.Equal(t, game.Spades, *r.LeadSuit)

	// Seat 1 holds a spade and must play it.
	_, err = r.PlayCard(1, game.Card{Suit: game.Hearts, Rank: game.Three})
	assert.ErrorContains(t, err, "MUST_FOLLOW_SUIT")

	_, err = r.PlayCard(1, game.Card{Suit: game.Spades, Rank: game.King})
	require.NoError(t, err)
}

func TestPlayCardRejections(t *testing.T) {
	r := playingRoom(t)

	_, err := r.PlayCard(1, game.Card{Suit: game.Spades, Rank: game.King})
	assert.ErrorContains(t, err, "NOT_YOUR_TURN")

	_, err = r.PlayCard(0, game.Card{Suit: game.Clubs, Rank: game.Nine})
	assert.ErrorContains(t, err, "CARD_NOT_HELD")

	r.Phase = PhaseBidding
	_, err = r.PlayCard(0, game.Card{Suit: game.Spades, Rank: game.Seven})
	assert.ErrorContains(t, err, "NOT_PLAYING")
}

func TestSettlementLock(t *testing.T) {
	r := playingRoom(t)

	_, err := r.PlayCard(0, game.Card{Suit: game.Spades, Rank: game.Seven})
	require.NoError(t, err)
	_, err = r.PlayCard(1, game.Card{Suit: game.Spades, Rank: game.King})
	require.NoError(t, err)

	complete, err := r.PlayCard(2, game.Card{Suit: game.Spades, Rank: game.Ace})
	require.NoError(t, err)
	require.True(t, complete)

	// The trick is full: the turn has not advanced and every play is
	// rejected until settlement, including the eventual winner's.
	_, err = r.PlayCard(2, game.Card{Suit: game.Hearts, Rank: game.Four})
	assert.ErrorContains(t, err, "TRICK_SETTLING")

	result, err := r.CompleteTrick()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Winner, "the Ace of Spades takes the trick")
	assert.False(t, result.RoundComplete)
	assert.Equal(t, 2, r.CurrentPlayerIndex, "the winner leads the next trick")
	assert.Equal(t, 1, r.TricksWon[2])
	assert.Nil(t, r.LeadSuit)
	assert.Empty(t, r.CurrentTrick)

	// Lock released: the winner can lead again.
	_, err = r.PlayCard(2, game.Card{Suit: game.Hearts, Rank: game.Four})
	assert.NoError(t, err)
}

func TestCompleteTrickIncomplete(t *testing.T) {
	r := playingRoom(t)

	_, err := r.CompleteTrick()
	assert.ErrorContains(t, err, "TRICK_INCOMPLETE")
}

func TestRoundCompletion(t *testing.T) {
	r := playingRoom(t)

	// Trick 1: all spades, the Ace takes it.
	_, err := r.PlayCard(0, game.Card{Suit: game.Spades, Rank: game.Seven})
	require.NoError(t, err)
	_, err = r.PlayCard(1, game.Card{Suit: game.Spades, Rank: game.King})
	require.NoError(t, err)
	_, err = r.PlayCard(2, game.Card{Suit: game.Spades, Rank: game.Ace})
	require.NoError(t, err)
	_, err = r.CompleteTrick()
	require.NoError(t, err)

	// Trick 2: seat 2 leads hearts, everyone follows.
	_, err = r.PlayCard(2, game.Card{Suit: game.Hearts, Rank: game.Four})
	require.NoError(t, err)
	_, err = r.PlayCard(0, game.Card{Suit: game.Hearts, Rank: game.Two})
	require.NoError(t, err)
	complete, err := r.PlayCard(1, game.Card{Suit: game.Hearts, Rank: game.Three})
	require.NoError(t, err)
	require.True(t, complete)

	result, err := r.CompleteTrick()
	require.NoError(t, err)
	assert.True(t, result.RoundComplete)
	assert.Equal(t, PhaseResults, r.Phase)

	// Bids were 1/0/0, tricks 0/0/2: only seat 1 hit its bid.
	assert.Equal(t, 0, r.scores[0][0].Points)
	assert.Equal(t, 10, r.scores[1][0].Points)
	assert.Equal(t, 0, r.scores[2][0].Points)
}

func TestFullGameCadence(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	var cadence []int
	for {
		cadence = append(cadence, r.CardsThisRound)
		bidOut(t, r)
		playOut(t, r)
		require.Equal(t, PhaseResults, r.Phase)
		started, err := r.NextRound()
		require.NoError(t, err)
		if !started {
			break
		}
	}

	assert.Equal(t, []int{5, 4, 3, 2, 1, 2, 3, 4, 5}, cadence)
	assert.Equal(t, PhaseFinished, r.Phase)

	final := r.FinalScores()
	require.Len(t, final, 3)
	for i := 1; i < len(final); i++ {
		assert.GreaterOrEqual(t, final[i-1].Total, final[i].Total, "ranking must be descending")
	}
	for _, fs := range final {
		assert.Len(t, fs.Rounds, 9)
	}
}

func TestDealerRotates(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	firstDealer := r.DealerIndex
	bidOut(t, r)
	playOut(t, r)
	started, err := r.NextRound()
	require.NoError(t, err)
	require.True(t, started)

	assert.Equal(t, (firstDealer+1)%3, r.DealerIndex)
	assert.Equal(t, r.DealerIndex, r.CurrentPlayerIndex, "the new dealer bids first")
}

func TestNextRoundOnlyAfterResults(t *testing.T) {
	r := newTestRoom(t, 1)

	started, err := r.NextRound()
	assert.ErrorContains(t, err, "NOT_RESULTS")
	assert.False(t, started)
	assert.Equal(t, PhaseWaiting, r.Phase)
	assert.False(t, r.GameStarted)
	assert.Nil(t, r.Bids)

	// The room is untouched, so late joiners still get verdicts.
	late, err := r.AddPlayer("Late", "")
	require.NoError(t, err)
	assert.ErrorContains(t, r.SubmitBid(late.Index, 0), "NOT_BIDDING")

	r2 := newTestRoom(t, 3)
	require.True(t, r2.StartGame())
	_, err = r2.NextRound()
	assert.ErrorContains(t, err, "NOT_RESULTS")
	assert.Equal(t, PhaseBidding, r2.Phase)
	assert.Equal(t, 1, r2.CurrentRound)
}

func TestSubmitBidSeatOutOfRange(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	assert.ErrorContains(t, r.SubmitBid(3, 0), "INVALID_SEAT")
	assert.ErrorContains(t, r.SubmitBid(-1, 0), "INVALID_SEAT")
}

func TestDisconnectPausesGame(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	seat := r.CurrentPlayerIndex
	session := r.Players[seat].SessionID
	handBefore := append([]game.Card{}, r.HandForPlayer(seat)...)

	result := r.RemovePlayer(session)
	require.True(t, result.Found)
	assert.True(t, result.WasInGame)
	assert.True(t, result.Paused)
	assert.True(t, r.Paused)
	assert.Len(t, r.Players, 3, "an in-game seat is not compacted")
	assert.Contains(t, r.Disconnected, seat)

	// Reconnect restores the seat untouched: same hand, still their turn.
	rec, err := r.ReconnectBySession(session)
	require.NoError(t, err)
	assert.True(t, rec.WasDisconnected)
	assert.Equal(t, seat, rec.PlayerIndex)
	assert.False(t, r.Paused)
	assert.Equal(t, handBefore, r.HandForPlayer(seat))
	assert.Equal(t, seat, r.CurrentPlayerIndex)
}

func TestReconnectBySessionWithoutDisconnect(t *testing.T) {
	r := newTestRoom(t, 3)

	rec, err := r.ReconnectBySession(r.Players[1].SessionID)
	require.NoError(t, err)
	assert.False(t, rec.WasDisconnected)
	assert.Equal(t, 1, rec.PlayerIndex)

	_, err = r.ReconnectBySession("no-such-session")
	assert.ErrorContains(t, err, "SESSION_NOT_FOUND")
}

func TestReconnectByIndexFallback(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	seat := 1
	session := r.Players[seat].SessionID
	require.True(t, r.RemovePlayer(session).WasInGame)

	found, ok := r.DisconnectedByName("Player2")
	require.True(t, ok)
	assert.Equal(t, seat, found)

	rec, err := r.ReconnectByIndex(seat, "fresh-session")
	require.NoError(t, err)
	assert.True(t, rec.WasDisconnected)
	assert.Equal(t, "fresh-session", r.Players[seat].SessionID)
	assert.False(t, r.Paused)
}

func TestReconnectByIndexOutOfRange(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())
	require.True(t, r.RemovePlayer(r.Players[2].SessionID).WasInGame)

	_, err := r.ReconnectByIndex(5, "fresh-session")
	assert.ErrorContains(t, err, "NOT_DISCONNECTED")
	_, err = r.ReconnectByIndex(-1, "fresh-session")
	assert.ErrorContains(t, err, "NOT_DISCONNECTED")
}

func TestPausedCompactionRemapsDisconnectTable(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	// Seat 2 drops mid-game: the room pauses with its entry keyed at 2.
	require.True(t, r.RemovePlayer(r.Players[2].SessionID).WasInGame)
	require.Contains(t, r.Disconnected, 2)

	// Seat 1 drops while paused and is compacted out; the pending entry
	// follows the shifted seat.
	result := r.RemovePlayer(r.Players[1].SessionID)
	require.True(t, result.Found)
	assert.False(t, result.WasInGame)
	require.Len(t, r.Players, 2)

	assert.NotContains(t, r.Disconnected, 2)
	require.Contains(t, r.Disconnected, 1)

	found, ok := r.DisconnectedByName("Player3")
	require.True(t, ok)
	assert.Equal(t, 1, found)

	rec, err := r.ReconnectByIndex(found, "fresh-session")
	require.NoError(t, err)
	assert.Equal(t, "Player3", rec.PlayerName)
	assert.False(t, r.Paused)
}

func TestPausedCompactionDropsVacatedSeatEntry(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	session := r.Players[2].SessionID
	require.True(t, r.RemovePlayer(session).WasInGame)
	fired := make(chan struct{}, 1)
	r.ArmGraceTimer(2, 20*time.Millisecond, func() { fired <- struct{}{} })

	// The disconnected seat itself is then removed for good.
	result := r.RemovePlayer(session)
	require.True(t, result.Found)
	require.Len(t, r.Players, 2)

	assert.Empty(t, r.Disconnected)
	assert.False(t, r.Paused)

	select {
	case <-fired:
		t.Fatal("grace timer fired for a vacated seat")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestGraceTimerCancelledOnReconnect(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	session := r.Players[0].SessionID
	require.True(t, r.RemovePlayer(session).WasInGame)

	fired := make(chan struct{}, 1)
	r.ArmGraceTimer(0, 20*time.Millisecond, func() { fired <- struct{}{} })

	_, err := r.ReconnectBySession(session)
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("grace timer fired after reconnect")
	case <-time.After(60 * time.Millisecond):
	}
	assert.NotEqual(t, PhaseAborted, r.Phase)
}

func TestReconnectTimeoutAbortsRoom(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	require.True(t, r.RemovePlayer(r.Players[0].SessionID).WasInGame)
	// A second pending seat, timer armed: the abort must cancel it too.
	r.Players[1].Connected = false
	r.Disconnected[1] = &DisconnectInfo{PlayerName: "Player2", DisconnectedAt: time.Now()}
	fired := make(chan struct{}, 1)
	r.ArmGraceTimer(1, time.Hour, func() { fired <- struct{}{} })

	reason, ok := r.HandleReconnectTimeout(0)
	require.True(t, ok)
	assert.Contains(t, reason, "Player1")
	assert.Equal(t, PhaseAborted, r.Phase)
	assert.Empty(t, r.Disconnected, "the whole disconnect table is cleared")

	select {
	case <-fired:
		t.Fatal("the other seat's timer should have been stopped")
	case <-time.After(30 * time.Millisecond):
	}

	// A late call for a seat no longer tracked is a no-op.
	_, ok = r.HandleReconnectTimeout(1)
	assert.False(t, ok)
}

func TestSnapshotIdempotent(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	first := r.Snapshot()
	second := r.Snapshot()
	assert.Equal(t, first, second)
}

func TestSnapshotOmitsHands(t *testing.T) {
	r := newTestRoom(t, 4)
	require.True(t, r.StartGame())

	snap := r.Snapshot()
	assert.Equal(t, PhaseBidding, snap.Phase)
	assert.Len(t, snap.Players, 4)
	assert.Len(t, snap.Bids, 4)
	for _, b := range snap.Bids {
		assert.Nil(t, b, "no bids placed yet")
	}
	assert.Nil(t, snap.LeadSuit)
	assert.Nil(t, snap.ForbiddenBid)
}

func TestSnapshotForbiddenBidForLastBidder(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())

	dealer := r.DealerIndex
	require.NoError(t, r.SubmitBid(dealer, 1))
	require.NoError(t, r.SubmitBid((dealer+1)%3, 2))

	snap := r.Snapshot()
	require.NotNil(t, snap.ForbiddenBid)
	assert.Equal(t, 2, *snap.ForbiddenBid)
}

func TestReset(t *testing.T) {
	r := newTestRoom(t, 3)
	require.True(t, r.StartGame())
	bidOut(t, r)
	playOut(t, r)

	r.Reset()

	assert.Equal(t, PhaseWaiting, r.Phase)
	assert.False(t, r.GameStarted)
	assert.Equal(t, 0, r.CurrentRound)
	assert.Len(t, r.Players, 3)
	for i := range r.Players {
		assert.Empty(t, r.scores[i])
	}
}

func TestPlayerStatistics(t *testing.T) {
	r := newTestRoom(t, 3)
	r.scores[0] = []RoundScore{
		{Success: true, Points: 11},
		{Success: true, Points: 12},
	}

	stats := r.PlayerStatistics(0)
	assert.Equal(t, 2, stats.RoundsPlayed)
	assert.Equal(t, 23, stats.TotalPoints)
	assert.Equal(t, "100.0", stats.SuccessRatePercent)
}
