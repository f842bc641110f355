package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"lupaus-server/internal/lupaus"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/rooms", s.roomsHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"rooms":       s.registry.Count(),
		"connections": s.connections.Count(),
		"sessions":    s.sessions.Count(),
	}
	s.writeJSON(w, resp)
}

func (s *Server) roomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, RoomListResponse{Rooms: s.registry.List()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	s.log.Info().Str("conn", connectionID).Msg("New connection")
	s.connections.Add(connectionID, socket)
	defer func() {
		s.handleDisconnect(connectionID)
		s.connections.Remove(connectionID)
		s.limiter.RemoveConnection(connectionID)
		s.log.Info().Str("conn", connectionID).Msg("Connection closed")
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			s.log.Debug().Str("conn", connectionID).Err(err).Msg("Read error")
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if !s.limiter.Allow(connectionID) {
			s.sendError(socket, ctx, "Too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		s.log.Debug().Str("conn", connectionID).Str("type", msg.Type).Msg("Message")

		switch msg.Type {
		case MsgPing:
			s.sendMessage(socket, ctx, ServerMessage{Type: EventPong, Payload: struct{}{}})

		case MsgCreateRoom:
			s.handleCreateRoom(socket, ctx, connectionID, msg.Payload)

		case MsgJoinGame:
			s.handleJoinGame(socket, ctx, connectionID, msg.Payload, false)

		case MsgReconnectGame:
			s.handleJoinGame(socket, ctx, connectionID, msg.Payload, true)

		case MsgGetRoomList:
			s.sendMessage(socket, ctx, ServerMessage{
				Type:    EventRoomList,
				Payload: RoomListResponse{Rooms: s.registry.List()},
			})

		case MsgStartGame:
			s.handleStartGame(socket, ctx, connectionID)

		case MsgSubmitBid:
			s.handleSubmitBid(socket, ctx, connectionID, msg.Payload)

		case MsgPlayCard:
			s.handlePlayCard(socket, ctx, connectionID, msg.Payload)

		case MsgNextRound:
			s.handleNextRound(socket, ctx, connectionID)

		case MsgGetFinalScores:
			s.handleGetFinalScores(socket, ctx, connectionID)

		default:
			s.sendError(socket, ctx, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}
}

// ---------------------------------------------------------------------------
// Room entry and membership

func (s *Server) handleCreateRoom(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid createRoom payload")
		return
	}

	playerName := strings.TrimSpace(req.PlayerName)
	if playerName == "" {
		s.sendError(socket, ctx, "Player name is required")
		return
	}

	roomName := strings.TrimSpace(req.RoomName)
	if roomName == "" {
		roomName = fmt.Sprintf("%s's room", playerName)
	}

	entry, err := s.registry.Create(roomName, req.Password, s.roomConfig(req.MinSeats, req.MaxSeats))
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	entry.Lock()
	player, err := entry.Game.AddPlayer(playerName, req.SessionID)
	if err != nil {
		entry.Unlock()
		s.sendError(socket, ctx, err.Error())
		return
	}
	roomKey := entry.Game.ID
	snapshot := entry.Game.Snapshot()
	entry.Unlock()

	s.sessions.Store(player.SessionID, roomKey, player.Name)
	s.connections.Bind(connectionID, roomKey, player.SessionID)

	s.sendMessage(socket, ctx, ServerMessage{
		Type: EventRoomCreated,
		Payload: RoomCreatedResponse{
			RoomKey:     roomKey,
			RoomName:    roomName,
			PlayerIndex: player.Index,
			SessionID:   player.SessionID,
		},
	})
	s.sendMessage(socket, ctx, ServerMessage{Type: EventGameStateUpdate, Payload: snapshot})
}

// handleJoinGame serves both joinGame and reconnectGame. Recovery is tried
// first by session id, then by matching a disconnected seat's name; when
// neither matches the request falls through to a normal join.
func (s *Server) handleJoinGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage, isReconnect bool) {
	var req JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendJoinError(socket, ctx, isReconnect, "Invalid join payload")
		return
	}

	playerName := strings.TrimSpace(req.PlayerName)
	if playerName == "" {
		s.sendJoinError(socket, ctx, isReconnect, "Player name is required")
		return
	}
	if strings.TrimSpace(req.RoomKey) == "" {
		s.sendJoinError(socket, ctx, isReconnect, "Room key is required")
		return
	}

	entry, created, err := s.registry.GetOrCreate(req.RoomKey, req.Password, s.roomConfig(0, 0))
	if err != nil {
		s.sendJoinError(socket, ctx, isReconnect, err.Error())
		return
	}

	entry.Lock()
	defer entry.Unlock()

	room := entry.Game
	roomKey := room.ID

	// Recovery by session id.
	if req.SessionID != "" {
		if res, err := room.ReconnectBySession(req.SessionID); err == nil {
			s.finishReconnect(socket, ctx, connectionID, entry, res, req.SessionID)
			return
		}
	}

	// Recovery by name against a disconnected seat.
	if seat, ok := room.DisconnectedByName(playerName); ok {
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		if res, err := room.ReconnectByIndex(seat, sessionID); err == nil {
			s.finishReconnect(socket, ctx, connectionID, entry, res, sessionID)
			return
		}
	}

	// Fresh join.
	if !created {
		if err := entry.CheckPassword(req.Password); err != nil {
			s.sendJoinError(socket, ctx, isReconnect, err.Error())
			return
		}
	}

	player, err := room.AddPlayer(playerName, req.SessionID)
	if err != nil {
		s.sendJoinError(socket, ctx, isReconnect, err.Error())
		return
	}

	s.sessions.Store(player.SessionID, roomKey, player.Name)
	s.connections.Bind(connectionID, roomKey, player.SessionID)

	s.sendMessage(socket, ctx, ServerMessage{
		Type: EventJoinSuccess,
		Payload: JoinSuccessResponse{
			PlayerIndex: player.Index,
			PlayerName:  player.Name,
			RoomKey:     roomKey,
			SessionID:   player.SessionID,
		},
	})
	s.broadcastToRoom(ctx, entry, EventGameStateUpdate, room.Snapshot())
}

// finishReconnect completes either recovery path. Caller holds the entry
// lock.
func (s *Server) finishReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, entry *RoomEntry, res lupaus.ReconnectResult, sessionID string) {
	room := entry.Game
	roomKey := room.ID

	s.sessions.Store(sessionID, roomKey, res.PlayerName)
	s.connections.Bind(connectionID, roomKey, sessionID)

	s.sendMessage(socket, ctx, ServerMessage{
		Type: EventReconnected,
		Payload: ReconnectedResponse{
			PlayerIndex: res.PlayerIndex,
			PlayerName:  res.PlayerName,
			RoomKey:     roomKey,
			SessionID:   sessionID,
			Message:     fmt.Sprintf("Welcome back, %s", res.PlayerName),
		},
	})

	if room.GameStarted {
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    EventReceiveHand,
			Payload: room.HandForPlayer(res.PlayerIndex),
		})
	}

	if res.WasDisconnected {
		s.broadcastToRoom(ctx, entry, EventPlayerReconnected, PlayerReconnectedNotification{
			PlayerIndex: res.PlayerIndex,
			PlayerName:  res.PlayerName,
			IsPaused:    room.Paused,
		})
	}
	s.broadcastToRoom(ctx, entry, EventGameStateUpdate, room.Snapshot())
}

// handleDisconnect runs when a websocket drops. A seated player in a live
// game keeps their seat behind a grace timer; anyone else is removed
// outright.
func (s *Server) handleDisconnect(connectionID string) {
	binding, ok := s.connections.GetBinding(connectionID)
	if !ok {
		return
	}

	entry, ok := s.registry.Get(binding.RoomID)
	if !ok {
		return
	}

	ctx := context.Background()

	entry.Lock()
	result := entry.Game.RemovePlayer(binding.SessionID)
	if !result.Found {
		entry.Unlock()
		return
	}

	if result.WasInGame && result.Paused {
		entry.Game.ArmGraceTimer(result.PlayerIndex, s.cfg.Game.GracePeriod, func() {
			s.handleGraceTimeout(binding.RoomID, result.PlayerIndex)
		})

		s.broadcastToRoom(ctx, entry, EventPlayerDisconnected, PlayerDisconnectedNotification{
			PlayerIndex:    result.PlayerIndex,
			PlayerName:     result.PlayerName,
			TimeoutSeconds: int(s.cfg.Game.GracePeriod.Seconds()),
		})
		s.broadcastToRoom(ctx, entry, EventGameStateUpdate, entry.Game.Snapshot())
		entry.Unlock()
		return
	}

	empty := len(entry.Game.Players) == 0
	if !empty {
		s.broadcastToRoom(ctx, entry, EventPlayerLeft, PlayerLeftNotification{
			PlayerIndex: result.PlayerIndex,
			PlayerName:  result.PlayerName,
		})
		s.broadcastToRoom(ctx, entry, EventGameStateUpdate, entry.Game.Snapshot())
	}
	entry.Unlock()

	s.sessions.Remove(binding.SessionID)
	if empty {
		s.destroyRoom(binding.RoomID)
	}
}

// ---------------------------------------------------------------------------
// Game flow

func (s *Server) handleStartGame(socket *websocket.Conn, ctx context.Context, connectionID string) {
	entry, _, ok := s.resolveSeat(socket, ctx, connectionID)
	if !ok {
		return
	}

	entry.Lock()
	defer entry.Unlock()

	room := entry.Game
	if room.GameStarted {
		s.sendError(socket, ctx, "GAME_ALREADY_STARTED: The game has already started")
		return
	}
	if !room.StartGame() {
		s.sendError(socket, ctx, fmt.Sprintf("NOT_ENOUGH_PLAYERS: Need at least %d players to start", room.Config.MinPlayers))
		return
	}

	s.broadcastToRoom(ctx, entry, EventGameStarted, struct{}{})
	s.broadcastToRoom(ctx, entry, EventGameStateUpdate, room.Snapshot())
	s.sendHands(ctx, entry)
}

func (s *Server) handleSubmitBid(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req SubmitBidRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid submitBid payload")
		return
	}

	entry, seat, ok := s.resolveSeat(socket, ctx, connectionID)
	if !ok {
		return
	}

	entry.Lock()
	defer entry.Unlock()

	if err := entry.Game.SubmitBid(seat, req.Bid); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastToRoom(ctx, entry, EventGameStateUpdate, entry.Game.Snapshot())
}

func (s *Server) handlePlayCard(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req PlayCardRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid playCard payload")
		return
	}

	entry, seat, ok := s.resolveSeat(socket, ctx, connectionID)
	if !ok {
		return
	}

	entry.Lock()
	defer entry.Unlock()

	room := entry.Game
	trickComplete, err := room.PlayCard(seat, req.Card)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastToRoom(ctx, entry, EventGameStateUpdate, room.Snapshot())
	s.sendHands(ctx, entry)

	if trickComplete {
		roomKey := room.ID
		time.AfterFunc(s.cfg.Game.SettlementDelay, func() {
			s.settleTrick(roomKey)
		})
	}
}

// settleTrick fires after the settlement delay. The room is re-resolved
// through the registry so a destroyed or already-settled room is a no-op.
func (s *Server) settleTrick(roomKey string) {
	entry, ok := s.registry.Get(roomKey)
	if !ok {
		return
	}

	ctx := context.Background()

	entry.Lock()
	defer entry.Unlock()

	room := entry.Game
	if room.Phase != lupaus.PhasePlaying {
		return
	}

	result, err := room.CompleteTrick()
	if err != nil {
		return
	}

	s.log.Debug().Str("room", roomKey).Int("winner", result.Winner).
		Bool("roundComplete", result.RoundComplete).Msg("Trick settled")

	s.broadcastToRoom(ctx, entry, EventGameStateUpdate, room.Snapshot())
}

func (s *Server) handleNextRound(socket *websocket.Conn, ctx context.Context, connectionID string) {
	entry, _, ok := s.resolveSeat(socket, ctx, connectionID)
	if !ok {
		return
	}

	entry.Lock()
	room := entry.Game
	roomKey := room.ID

	started, err := room.NextRound()
	if err != nil {
		entry.Unlock()
		s.sendError(socket, ctx, err.Error())
		return
	}

	if started {
		s.broadcastToRoom(ctx, entry, EventGameStateUpdate, room.Snapshot())
		s.sendHands(ctx, entry)
		entry.Unlock()
		return
	}

	// Round sequence exhausted: deliver the final table and retire the room.
	s.broadcastToRoom(ctx, entry, EventGameFinished, GameFinishedNotification{
		FinalScores: room.FinalScores(),
	})
	entry.Unlock()

	s.destroyRoom(roomKey)
}

func (s *Server) handleGetFinalScores(socket *websocket.Conn, ctx context.Context, connectionID string) {
	entry, _, ok := s.resolveSeat(socket, ctx, connectionID)
	if !ok {
		return
	}

	entry.Lock()
	scores := entry.Game.FinalScores()
	entry.Unlock()

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    EventGameFinished,
		Payload: GameFinishedNotification{FinalScores: scores},
	})
}

// handleGraceTimeout is the grace timer callback. It re-resolves the room
// and no-ops when the seat recovered or the room is already gone.
func (s *Server) handleGraceTimeout(roomKey string, seat int) {
	entry, ok := s.registry.Get(roomKey)
	if !ok {
		return
	}

	ctx := context.Background()

	entry.Lock()
	reason, expired := entry.Game.HandleReconnectTimeout(seat)
	if !expired {
		entry.Unlock()
		return
	}
	s.broadcastToRoom(ctx, entry, EventGameAborted, GameAbortedNotification{Reason: reason})
	entry.Unlock()

	s.destroyRoom(roomKey)
}

// ---------------------------------------------------------------------------
// Helpers

// resolveSeat maps a connection back to its room and current seat index.
// Seats are looked up by session on every command, never cached, so a
// reconnect elsewhere cannot act through a stale seat here.
func (s *Server) resolveSeat(socket *websocket.Conn, ctx context.Context, connectionID string) (*RoomEntry, int, bool) {
	binding, ok := s.connections.GetBinding(connectionID)
	if !ok {
		s.sendError(socket, ctx, "NOT_IN_ROOM: Join a room first")
		return nil, -1, false
	}

	entry, ok := s.registry.Get(binding.RoomID)
	if !ok {
		s.sendError(socket, ctx, "ROOM_NOT_FOUND: The room no longer exists")
		return nil, -1, false
	}

	entry.Lock()
	player, ok := entry.Game.PlayerBySession(binding.SessionID)
	entry.Unlock()
	if !ok {
		s.sendError(socket, ctx, "NOT_IN_ROOM: You are not seated in this room")
		return nil, -1, false
	}

	return entry, player.Index, true
}

// destroyRoom removes a room and everything pointing at it.
func (s *Server) destroyRoom(roomKey string) {
	s.sessions.RemoveByRoom(roomKey)
	s.connections.UnbindRoom(roomKey)
	s.registry.Remove(roomKey)
}

// broadcastToRoom sends an event to every connected player in the room.
// Caller holds the entry lock.
func (s *Server) broadcastToRoom(ctx context.Context, entry *RoomEntry, msgType string, payload interface{}) {
	msg := ServerMessage{Type: msgType, Payload: payload}
	for _, player := range entry.Game.Players {
		if !player.Connected {
			continue
		}
		conn, ok := s.connections.ConnBySession(player.SessionID)
		if !ok {
			continue
		}
		if err := s.sendMessage(conn, ctx, msg); err != nil {
			s.log.Warn().Str("player", player.Name).Err(err).Msg("Broadcast failed")
		}
	}
}

// sendHands unicasts each seated player their private hand. Caller holds
// the entry lock.
func (s *Server) sendHands(ctx context.Context, entry *RoomEntry) {
	for _, player := range entry.Game.Players {
		if !player.Connected {
			continue
		}
		conn, ok := s.connections.ConnBySession(player.SessionID)
		if !ok {
			continue
		}
		msg := ServerMessage{
			Type:    EventReceiveHand,
			Payload: entry.Game.HandForPlayer(player.Index),
		}
		if err := s.sendMessage(conn, ctx, msg); err != nil {
			s.log.Warn().Str("player", player.Name).Err(err).Msg("Failed to send hand")
		}
	}
}

func (s *Server) roomConfig(minPlayers, maxPlayers int) lupaus.Config {
	cfg := lupaus.Config{
		MinPlayers:   s.cfg.Game.MinPlayers,
		MaxPlayers:   s.cfg.Game.MaxPlayers,
		StartCards:   s.cfg.Game.StartCards,
		OneCardBlind: s.cfg.Game.OneCardBlind,
		GracePeriod:  s.cfg.Game.GracePeriod,
	}
	if minPlayers >= s.cfg.Game.MinPlayers && minPlayers <= s.cfg.Game.MaxPlayers {
		cfg.MinPlayers = minPlayers
	}
	if maxPlayers >= cfg.MinPlayers && maxPlayers <= s.cfg.Game.MaxPlayers {
		cfg.MaxPlayers = maxPlayers
	}
	return cfg
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return socket.Write(writeCtx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    EventError,
		Payload: ErrorResponse{Message: msg},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to send error message")
	}
}

func (s *Server) sendJoinError(socket *websocket.Conn, ctx context.Context, isReconnect bool, msg string) {
	eventType := EventJoinError
	if isReconnect {
		eventType = EventReconnectFailed
	}
	err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    eventType,
		Payload: ErrorResponse{Message: msg},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to send join error")
	}
}

