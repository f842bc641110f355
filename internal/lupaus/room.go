package lupaus

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lupaus-server/internal/game"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseResults  Phase = "results"
	PhaseFinished Phase = "finished"
	PhaseAborted  Phase = "aborted"
)

// Config holds the per-room game parameters.
type Config struct {
	MinPlayers   int
	MaxPlayers   int
	StartCards   int
	OneCardBlind bool
	GracePeriod  time.Duration
}

// Player is one seat in a room. Index stays dense: seats are re-indexed when
// a player leaves before the game starts. Connected is false while the seat
// is waiting out a reconnection grace period.
type Player struct {
	SessionID string `json:"-"`
	Name      string `json:"playerName"`
	Index     int    `json:"playerIndex"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"-"`
}

// DisconnectInfo tracks a seat waiting for its player to return.
type DisconnectInfo struct {
	PlayerName     string
	DisconnectedAt time.Time
	timer          *time.Timer
}

// Room is the authoritative state of one game. It is not internally
// synchronized: the owner must serialize all calls against a single room.
// The trick-settlement lock (trickSettling) is game state, not a mutex; it
// rejects plays while a completed trick is being shown before resolution.
type Room struct {
	ID     string
	Name   string
	Config Config

	Players     []*Player
	GameStarted bool
	Phase       Phase

	CurrentRound       int
	CardsThisRound     int
	DealerIndex        int
	CurrentPlayerIndex int

	Bids         []*int
	TricksWon    []int
	CurrentTrick []Play
	LeadSuit     *game.Suit

	Paused       bool
	PauseReason  string
	Disconnected map[int]*DisconnectInfo

	hands         [][]game.Card
	scores        [][]RoundScore
	trickSettling bool

	log zerolog.Logger
}

func NewRoom(id, name string, cfg Config, logger zerolog.Logger) *Room {
	return &Room{
		ID:             id,
		Name:           name,
		Config:         cfg,
		Players:        make([]*Player, 0, cfg.MaxPlayers),
		Phase:          PhaseWaiting,
		CardsThisRound: cfg.StartCards,
		Disconnected:   make(map[int]*DisconnectInfo),
		log:            logger.With().Str("room", id).Logger(),
	}
}

// ---------------------------------------------------------------------------
// Seats

// AddPlayer seats a new player on the next free index. A fresh session id is
// allocated when the client does not supply one.
func (r *Room) AddPlayer(name, sessionID string) (*Player, error) {
	if len(r.Players) >= r.Config.MaxPlayers {
		return nil, errors.New("ROOM_FULL: The room is full")
	}
	if r.GameStarted {
		return nil, errors.New("GAME_ALREADY_STARTED: The game has already started")
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	player := &Player{
		SessionID: sessionID,
		Name:      name,
		Index:     len(r.Players),
		Connected: true,
	}
	r.Players = append(r.Players, player)
	r.scores = append(r.scores, []RoundScore{})

	return player, nil
}

// RemoveResult reports what RemovePlayer did with the vacated seat.
type RemoveResult struct {
	Found       bool
	WasInGame   bool
	PlayerIndex int
	PlayerName  string
	Paused      bool
}

// RemovePlayer handles a seat losing its connection. Before the game starts,
// or while the room is already paused, the seat is vacated for good and the
// remaining seats re-indexed. During an unpaused game the seat is kept at its
// index, the room pauses and the seat enters the disconnect table so the
// player can return within the grace period.
func (r *Room) RemovePlayer(sessionID string) RemoveResult {
	player, ok := r.PlayerBySession(sessionID)
	if !ok {
		return RemoveResult{}
	}
	index := player.Index

	if r.GameStarted && !r.Paused {
		r.log.Warn().Str("player", player.Name).Int("seat", index).
			Msg("Player dropped mid-game, starting grace period")

		player.Connected = false
		r.Disconnected[index] = &DisconnectInfo{
			PlayerName:     player.Name,
			DisconnectedAt: time.Now(),
		}
		r.PauseGame(fmt.Sprintf("%s disconnected, waiting for them to return", player.Name))

		return RemoveResult{
			Found:       true,
			WasInGame:   true,
			PlayerIndex: index,
			PlayerName:  player.Name,
			Paused:      true,
		}
	}

	r.Players = append(r.Players[:index], r.Players[index+1:]...)
	r.scores = append(r.scores[:index], r.scores[index+1:]...)
	for i, p := range r.Players {
		p.Index = i
	}

	// Keep the disconnect table keyed by the re-indexed seats: entries above
	// the vacated seat shift down, an entry for the vacated seat itself goes
	// away with its timer.
	if len(r.Disconnected) > 0 {
		remapped := make(map[int]*DisconnectInfo, len(r.Disconnected))
		for seat, info := range r.Disconnected {
			switch {
			case seat == index:
				if info.timer != nil {
					info.timer.Stop()
				}
			case seat > index:
				remapped[seat-1] = info
			default:
				remapped[seat] = info
			}
		}
		r.Disconnected = remapped

		if r.Paused && len(r.Disconnected) == 0 {
			r.ResumeGame()
		}
	}

	return RemoveResult{Found: true, PlayerIndex: index, PlayerName: player.Name}
}

func (r *Room) PlayerBySession(sessionID string) (*Player, bool) {
	for _, p := range r.Players {
		if p.SessionID == sessionID {
			return p, true
		}
	}
	return nil, false
}

// DisconnectedByName finds a disconnected seat by player name, for the
// reconnect fallback when the session id does not match.
func (r *Room) DisconnectedByName(name string) (int, bool) {
	for index, info := range r.Disconnected {
		if info.PlayerName == name {
			return index, true
		}
	}
	return -1, false
}

// ---------------------------------------------------------------------------
// Reconnection

// ReconnectResult describes a successful reconnect.
type ReconnectResult struct {
	PlayerIndex     int
	PlayerName      string
	WasDisconnected bool
}

// ReconnectBySession reattaches the player with the given session id. When
// the seat was disconnected its grace timer is stopped; the room resumes once
// no seats remain disconnected. A player whose seat was never disconnected
// is simply rebound.
func (r *Room) ReconnectBySession(sessionID string) (ReconnectResult, error) {
	player, ok := r.PlayerBySession(sessionID)
	if !ok {
		return ReconnectResult{}, errors.New("SESSION_NOT_FOUND: No player with that session id")
	}

	result := ReconnectResult{PlayerIndex: player.Index, PlayerName: player.Name}
	player.Connected = true

	info, wasDisconnected := r.Disconnected[player.Index]
	if !wasDisconnected {
		return result, nil
	}

	if info.timer != nil {
		info.timer.Stop()
	}
	delete(r.Disconnected, player.Index)
	result.WasDisconnected = true

	r.log.Info().Str("player", player.Name).Int("seat", player.Index).
		Msg("Player reconnected")

	if len(r.Disconnected) == 0 {
		r.ResumeGame()
	}
	return result, nil
}

// ReconnectByIndex reattaches a specific disconnected seat. Used when the
// session id did not match but the seat's recorded name matches the
// rejoining player.
func (r *Room) ReconnectByIndex(index int, sessionID string) (ReconnectResult, error) {
	if index < 0 || index >= len(r.Players) {
		return ReconnectResult{}, errors.New("NOT_DISCONNECTED: No disconnected player on that seat")
	}
	info, ok := r.Disconnected[index]
	if !ok {
		return ReconnectResult{}, errors.New("NOT_DISCONNECTED: No disconnected player on that seat")
	}

	player := r.Players[index]
	player.SessionID = sessionID
	player.Connected = true

	if info.timer != nil {
		info.timer.Stop()
	}
	delete(r.Disconnected, index)

	r.log.Info().Str("player", info.PlayerName).Int("seat", index).
		Msg("Player reconnected by name fallback")

	if len(r.Disconnected) == 0 {
		r.ResumeGame()
	}

	return ReconnectResult{
		PlayerIndex:     index,
		PlayerName:      info.PlayerName,
		WasDisconnected: true,
	}, nil
}

// ArmGraceTimer schedules onExpire for a disconnected seat. The timer is
// stopped by a successful reconnect, by HandleReconnectTimeout, or by
// StopAllTimers when the room is destroyed through another path.
func (r *Room) ArmGraceTimer(index int, d time.Duration, onExpire func()) {
	info, ok := r.Disconnected[index]
	if !ok {
		return
	}
	info.timer = time.AfterFunc(d, onExpire)
}

// HandleReconnectTimeout is called when a seat's grace timer fires without
// recovery. It terminates the whole room: every other pending timer is
// stopped, the disconnect table cleared and the phase set to aborted, even if
// other seats had reconnected earlier.
func (r *Room) HandleReconnectTimeout(index int) (reason string, ok bool) {
	info, ok := r.Disconnected[index]
	if !ok {
		return "", false
	}

	r.log.Warn().Str("player", info.PlayerName).Int("seat", index).
		Msg("Grace period expired, aborting game")

	for _, other := range r.Disconnected {
		if other.timer != nil {
			other.timer.Stop()
		}
	}
	r.Disconnected = make(map[int]*DisconnectInfo)

	reason = fmt.Sprintf("Game aborted: %s did not return in time", info.PlayerName)
	r.Phase = PhaseAborted
	r.PauseReason = reason
	return reason, true
}

// StopAllTimers cancels every pending grace timer. Called when the room is
// destroyed so no timer can fire against a dead room.
func (r *Room) StopAllTimers() {
	for _, info := range r.Disconnected {
		if info.timer != nil {
			info.timer.Stop()
		}
	}
}

func (r *Room) PauseGame(reason string) {
	r.Paused = true
	r.PauseReason = reason
	r.log.Info().Str("reason", reason).Msg("Game paused")
}

func (r *Room) ResumeGame() {
	r.Paused = false
	r.PauseReason = ""
	r.log.Info().Msg("Game resumed")
}

// ---------------------------------------------------------------------------
// Game lifecycle

func (r *Room) CanStartGame() bool {
	return IsValidPlayerCount(len(r.Players), r.Config.MinPlayers, r.Config.MaxPlayers) &&
		!r.GameStarted
}

// StartGame picks a random starting dealer and begins round 1.
func (r *Room) StartGame() bool {
	if !r.CanStartGame() {
		return false
	}

	r.GameStarted = true
	r.DealerIndex = rand.Intn(len(r.Players))
	r.log.Info().Str("dealer", r.Players[r.DealerIndex].Name).Int("seat", r.DealerIndex).
		Msg("Game started, dealer picked at random")

	r.startNewRound()
	return true
}

// startNewRound advances the round counter, deals fresh hands and opens
// bidding with the dealer. The dealer seat rotates by one from round 2 on.
func (r *Room) startNewRound() {
	r.CurrentRound++
	r.CardsThisRound = CardsForRound(r.CurrentRound, r.Config.StartCards)

	if r.CurrentRound > 2*r.Config.StartCards-1 {
		r.Phase = PhaseFinished
		return
	}

	n := len(r.Players)
	r.Bids = make([]*int, n)
	r.TricksWon = make([]int, n)
	r.CurrentTrick = nil
	r.LeadSuit = nil
	r.trickSettling = false

	r.hands = game.Deal(n, r.CardsThisRound)

	if r.CurrentRound != 1 {
		r.DealerIndex = (r.DealerIndex + 1) % n
	}
	r.CurrentPlayerIndex = r.DealerIndex
	r.Phase = PhaseBidding

	r.log.Info().Int("round", r.CurrentRound).Int("cards", r.CardsThisRound).
		Str("dealer", r.Players[r.DealerIndex].Name).
		Msg("Round started, bidding opens with the dealer")
}

// NextRound starts the next round, or finishes the game once the down-then-up
// sequence is complete. Returns false when the game is over; the caller then
// fetches the final scores. Only a completed round can be advanced from.
func (r *Room) NextRound() (bool, error) {
	if r.Phase != PhaseResults && r.Phase != PhaseFinished {
		return false, errors.New("NOT_RESULTS: No completed round to advance from")
	}
	if IsGameFinished(r.CurrentRound, r.Config.StartCards) {
		r.Phase = PhaseFinished
		return false, nil
	}
	r.startNewRound()
	return true, nil
}

// Reset returns a finished room to the waiting phase so the same seats can
// play again.
func (r *Room) Reset() {
	r.GameStarted = false
	r.CurrentRound = 0
	r.CardsThisRound = r.Config.StartCards
	r.DealerIndex = 0
	r.CurrentPlayerIndex = 0
	r.Bids = nil
	r.TricksWon = nil
	r.CurrentTrick = nil
	r.LeadSuit = nil
	r.hands = nil
	r.trickSettling = false
	r.Phase = PhaseWaiting

	r.scores = make([][]RoundScore, len(r.Players))
	for i := range r.scores {
		r.scores[i] = []RoundScore{}
	}
	for _, p := range r.Players {
		p.Ready = false
	}
}

// ---------------------------------------------------------------------------
// Bidding

// SubmitBid records a seat's bid. Bidding proceeds seat by seat starting at
// the dealer; the last bidder is subject to the hook rule. Once every seat
// has bid, play begins.
func (r *Room) SubmitBid(index, bid int) error {
	if r.Phase != PhaseBidding {
		return errors.New("NOT_BIDDING: Not the bidding phase")
	}
	if index < 0 || index >= len(r.Bids) {
		return errors.New("INVALID_SEAT: No such seat in this round")
	}
	if r.Bids[index] != nil {
		return errors.New("ALREADY_BID: You have already bid this round")
	}

	priorBids := r.placedBids()
	expected := (r.DealerIndex + len(priorBids)) % len(r.Players)
	if index != expected {
		return errors.New("NOT_YOUR_TURN: It is not your turn to bid")
	}

	isLastBidder := len(priorBids) == len(r.Players)-1
	if err := ValidateBid(bid, r.CardsThisRound, priorBids, isLastBidder); err != nil {
		return err
	}

	b := bid
	r.Bids[index] = &b

	if len(r.placedBids()) == len(r.Players) {
		r.startPlaying()
	}
	return nil
}

// placedBids returns the submitted bids in bidding order (seat order from the
// dealer equals the order slots fill in, so filtering seat order suffices).
func (r *Room) placedBids() []int {
	bids := make([]int, 0, len(r.Bids))
	for _, b := range r.Bids {
		if b != nil {
			bids = append(bids, *b)
		}
	}
	return bids
}

// CurrentForbiddenBid returns the bid the hook rule denies the last bidder,
// or -1 when bidding is not at the last seat or every value is open.
func (r *Room) CurrentForbiddenBid() int {
	if r.Phase != PhaseBidding {
		return -1
	}
	prior := r.placedBids()
	if len(prior) != len(r.Players)-1 {
		return -1
	}
	return ForbiddenBid(prior, r.CardsThisRound)
}

// startPlaying opens the play phase. The seat with the highest bid leads; on
// a tie the first occurrence of the max in seat order leads.
func (r *Room) startPlaying() {
	r.Phase = PhasePlaying

	maxBid, starter := -1, 0
	for i, b := range r.Bids {
		if *b > maxBid {
			maxBid = *b
			starter = i
		}
	}
	r.CurrentPlayerIndex = starter

	r.CurrentTrick = nil
	r.LeadSuit = nil
	r.trickSettling = false

	r.log.Info().Int("highestBid", maxBid).Str("leader", r.Players[starter].Name).
		Msg("Bidding complete, play begins")
}

// ---------------------------------------------------------------------------
// Playing

// PlayCard validates and applies one card play. When the play completes the
// trick the settlement lock engages and the turn does not advance; the caller
// schedules CompleteTrick after the settlement delay.
func (r *Room) PlayCard(index int, card game.Card) (trickComplete bool, err error) {
	if r.Phase != PhasePlaying {
		return false, errors.New("NOT_PLAYING: Not the playing phase")
	}
	if r.trickSettling {
		return false, errors.New("TRICK_SETTLING: Wait a moment, the trick is being resolved")
	}
	if index != r.CurrentPlayerIndex {
		return false, errors.New("NOT_YOUR_TURN: It is not your turn")
	}

	hand := r.hands[index]
	cardIndex := -1
	for i, c := range hand {
		if c == card {
			cardIndex = i
			break
		}
	}
	if cardIndex == -1 {
		return false, errors.New("CARD_NOT_HELD: You do not hold that card")
	}

	if err := CanPlayCard(card, hand, r.LeadSuit); err != nil {
		return false, err
	}

	r.hands[index] = append(hand[:cardIndex], hand[cardIndex+1:]...)

	if len(r.CurrentTrick) == 0 {
		suit := card.Suit
		r.LeadSuit = &suit
	}
	r.CurrentTrick = append(r.CurrentTrick, Play{PlayerIndex: index, Card: card})

	if len(r.CurrentTrick) == len(r.Players) {
		r.trickSettling = true
		return true, nil
	}

	r.CurrentPlayerIndex = (r.CurrentPlayerIndex + 1) % len(r.Players)
	return false, nil
}

// TrickResult describes a settled trick.
type TrickResult struct {
	Winner         int
	CompletedTrick []Play
	RoundComplete  bool
}

// CompleteTrick resolves the completed trick: the winner takes it and leads
// next, and the settlement lock releases. When hands are empty the round is
// finalized and the phase moves to results.
func (r *Room) CompleteTrick() (TrickResult, error) {
	if len(r.CurrentTrick) != len(r.Players) {
		return TrickResult{}, errors.New("TRICK_INCOMPLETE: The trick is not complete")
	}

	winner := TrickWinner(r.CurrentTrick, r.LeadSuit)
	r.TricksWon[winner]++
	r.CurrentPlayerIndex = winner

	result := TrickResult{
		Winner:         winner,
		CompletedTrick: r.CurrentTrick,
	}

	r.CurrentTrick = nil
	r.LeadSuit = nil
	r.trickSettling = false

	// Seat 0's empty hand stands in for all hands: PlayCard removes exactly
	// one card per seat per trick, so sizes stay symmetric. The full scan is
	// a tripwire for that invariant.
	if len(r.hands[0]) == 0 {
		for i, hand := range r.hands {
			if len(hand) != 0 {
				r.log.Error().Int("seat", i).Int("cards", len(hand)).
					Msg("Hand sizes out of sync at round end")
			}
		}
		r.finishRound()
		result.RoundComplete = true
	}

	return result, nil
}

// finishRound scores the round for every seat and shows the results.
func (r *Room) finishRound() {
	r.Phase = PhaseResults

	bids := make([]int, len(r.Bids))
	for i, b := range r.Bids {
		bids[i] = *b
	}

	results := RoundResults(bids, r.TricksWon, r.CurrentRound)
	for i, entry := range results {
		r.scores[i] = append(r.scores[i], entry)
	}

	r.log.Info().Int("round", r.CurrentRound).Msg("Round finished")
}

// ---------------------------------------------------------------------------
// Scores

func (r *Room) FinalScores() []FinalScore {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return CalcFinalScores(names, r.scores)
}

func (r *Room) PlayerStatistics(index int) Statistics {
	return CalcStatistics(r.scores[index])
}

// HandForPlayer returns the private hand view for one seat.
func (r *Room) HandForPlayer(index int) []game.Card {
	if index < 0 || index >= len(r.hands) {
		return []game.Card{}
	}
	return r.hands[index]
}
