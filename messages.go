package main

import (
	"encoding/json"
)

// Every websocket frame, in either direction, is an envelope. Request-style
// events are answered with a "<type>-result" envelope sent only to the
// requesting client; everything else is broadcast to the room.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newEnvelope(msgType string, v any) envelope {
	if v == nil {
		return envelope{Type: msgType}
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic("marshal " + msgType + ": " + err.Error())
	}
	return envelope{Type: msgType, Payload: b}
}

// ---- Requests (client → server) ----

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// Used by every event whose payload is just a room code: start-game,
// report-word, player-timeout, leave-room, player-back-to-room,
// check-player-in-room, get-room-info.
type roomRequest struct {
	RoomCode string `json:"roomCode"`
}

type submitWordRequest struct {
	RoomCode string `json:"roomCode"`
	Word     string `json:"word"`
}

type voteReportRequest struct {
	RoomCode string `json:"roomCode"`
	Vote     bool   `json:"vote"`
}

type sendMessageRequest struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
}

// ---- Results (server → requesting client) ----

type createRoomResult struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode,omitempty"`
}

type joinRoomResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Room    *roomSnapshot `json:"room,omitempty"`
	IsHost  bool          `json:"isHost,omitempty"`
}

type roomSnapshot struct {
	Players  []playerInfo  `json:"players"`
	Messages []chatMessage `json:"messages"`
	HostID   string        `json:"hostId"`
}

type checkPlayerResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type roomInfoResult struct {
	Success         bool         `json:"success"`
	Message         string       `json:"message,omitempty"`
	Players         []playerInfo `json:"players,omitempty"`
	CurrentPlayerID string       `json:"currentPlayerId,omitempty"`
	IsPlaying       bool         `json:"isPlaying,omitempty"`
	CurrentWord     string       `json:"currentWord,omitempty"`
}

// ---- Broadcasts (server → room) ----

type playerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LoseCount int    `json:"loseCount"`
}

type chatMessage struct {
	ID         int64  `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
}

type roundStartedBroadcast struct {
	CurrentPlayerID string       `json:"currentPlayerId"`
	TurnOrder       []playerInfo `json:"turnOrder"`
}

type nextPlayerBroadcast struct {
	CurrentPlayerID string       `json:"currentPlayerId"`
	NextPlayerID    string       `json:"nextPlayerId"`
	NextPlayerName  string       `json:"nextPlayerName"`
	TimeRemaining   int          `json:"timeRemaining"`
	TurnOrder       []playerInfo `json:"turnOrder"`
}

type timerUpdateBroadcast struct {
	TimeRemaining int `json:"timeRemaining"`
}

type wordUpdateBroadcast struct {
	Word     string `json:"word"`
	PlayerID string `json:"playerId"`
}

type playerLostBroadcast struct {
	PlayerID string   `json:"playerId"`
	Reason   string   `json:"reason"`
	Losers   []string `json:"losers"`
}

type roundEndedBroadcast struct {
	Losers   []string     `json:"losers"`
	Rankings []playerInfo `json:"rankings"`
}

type report struct {
	PlayerID string `json:"playerId"`
	Vote     bool   `json:"vote"`
}

// Shared by dispute-started and dispute-update.
type disputeBroadcast struct {
	Reports []report `json:"reports"`
	Word    string   `json:"word"`
}

type disputeFinishedBroadcast struct {
	Accepted bool `json:"accepted"`
}

type hostChangedBroadcast struct {
	NewHostID   string `json:"newHostId"`
	NewHostName string `json:"newHostName"`
	Message     string `json:"message"`
}

type playerLeftBroadcast struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

type playerBackBroadcast struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

type simpleMessage struct {
	Message string `json:"message"`
}

func errorEnvelope(msg string) envelope {
	return newEnvelope("error-message", simpleMessage{Message: msg})
}
