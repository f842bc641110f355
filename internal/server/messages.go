package server

import "encoding/json"

// ClientMessage is the envelope for every command a client sends.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the envelope for every event the server emits.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Client command types.
const (
	MsgCreateRoom     = "createRoom"
	MsgJoinGame       = "joinGame"
	MsgReconnectGame  = "reconnectGame"
	MsgGetRoomList    = "getRoomList"
	MsgStartGame      = "startGame"
	MsgSubmitBid      = "submitBid"
	MsgPlayCard       = "playCard"
	MsgNextRound      = "nextRound"
	MsgGetFinalScores = "getFinalScores"
	MsgPing           = "ping"
)

// Server event types.
const (
	EventRoomCreated        = "roomCreated"
	EventJoinSuccess        = "joinSuccess"
	EventJoinError          = "joinError"
	EventReconnected        = "reconnected"
	EventReconnectFailed    = "reconnectFailed"
	EventGameStarted        = "gameStarted"
	EventGameStateUpdate    = "gameStateUpdate"
	EventReceiveHand        = "receiveHand"
	EventPlayerDisconnected = "playerDisconnected"
	EventPlayerReconnected  = "playerReconnected"
	EventPlayerLeft         = "playerLeft"
	EventGameAborted        = "gameAborted"
	EventGameFinished       = "gameFinished"
	EventRoomList           = "roomList"
	EventError              = "error"
	EventPong               = "pong"
)
