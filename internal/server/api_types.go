package server

import (
	"lupaus-server/internal/game"
	"lupaus-server/internal/lupaus"
)

// Command payloads.

type CreateRoomRequest struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
	MinSeats   int    `json:"minSeats,omitempty"`
	MaxSeats   int    `json:"maxSeats,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

type JoinGameRequest struct {
	PlayerName string `json:"playerName"`
	RoomKey    string `json:"roomKey"`
	SessionID  string `json:"sessionId,omitempty"`
	Password   string `json:"password,omitempty"`
}

type SubmitBidRequest struct {
	Bid int `json:"bid"`
}

type PlayCardRequest struct {
	Card game.Card `json:"card"`
}

// Event payloads.

type RoomCreatedResponse struct {
	RoomKey     string `json:"roomKey"`
	RoomName    string `json:"roomName"`
	PlayerIndex int    `json:"playerIndex"`
	SessionID   string `json:"sessionId"`
}

type JoinSuccessResponse struct {
	PlayerIndex int    `json:"playerIndex"`
	PlayerName  string `json:"playerName"`
	RoomKey     string `json:"roomKey"`
	SessionID   string `json:"sessionId"`
}

type ReconnectedResponse struct {
	PlayerIndex int    `json:"playerIndex"`
	PlayerName  string `json:"playerName"`
	RoomKey     string `json:"roomKey"`
	SessionID   string `json:"sessionId"`
	Message     string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type PlayerDisconnectedNotification struct {
	PlayerIndex    int    `json:"playerIndex"`
	PlayerName     string `json:"playerName"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type PlayerReconnectedNotification struct {
	PlayerIndex int    `json:"playerIndex"`
	PlayerName  string `json:"playerName"`
	IsPaused    bool   `json:"isPaused"`
}

type PlayerLeftNotification struct {
	PlayerIndex int    `json:"playerIndex"`
	PlayerName  string `json:"playerName"`
}

type GameAbortedNotification struct {
	Reason string `json:"reason"`
}

type GameFinishedNotification struct {
	FinalScores []lupaus.FinalScore `json:"finalScores"`
}

type RoomSummary struct {
	RoomKey     string `json:"roomKey"`
	RoomName    string `json:"roomName"`
	PlayerCount int    `json:"playerCount"`
	MinPlayers  int    `json:"minPlayers"`
	MaxPlayers  int    `json:"maxPlayers"`
	GameStarted bool   `json:"gameStarted"`
	HasPassword bool   `json:"hasPassword"`
}

type RoomListResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}
