// Wordcrush word-chain game
//
// Players share a room identified by a short code and take turns submitting
// a word (or phrase) whose first word matches the last word of the previous
// submission. A countdown runs per turn; letting it expire, breaking the
// chain, or having your word voted down by the other players costs you the
// round. Rankings are kept across rounds by lose count.
//
// Features:
// - One websocket endpoint; requests carry the room code, the server keeps
//   a registry of live rooms
// - Rooms are destroyed when the last player leaves, or reaped when idle
// - First player to join a room becomes host; host migrates on departure
// - Per-turn countdown with once-a-second updates pushed to all players
// - Word legitimacy is decided socially: any player can report the current
//   word and a majority vote rejects it
// - Players must return to the lobby before the host can start a new round
// - Per-room chat log, capped message length
// - In-browser QR button to share a room, backed by go-qrcode

package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	_ "embed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one websocket connection. The player identifier is transient:
// it lives exactly as long as the connection, and a reconnect is a new
// player.
type client struct {
	conn     *websocket.Conn
	send     chan envelope
	done     chan struct{}
	playerID string
}

// trySend queues an envelope for the write pump without ever blocking a
// room handler. A client too slow to drain its buffer gets its connection
// closed; the read pump then runs the normal disconnect path.
func (c *client) trySend(env envelope) bool {
	select {
	case <-c.done:
		return false
	case c.send <- env:
		return true
	default:
		if c.conn != nil {
			_ = c.conn.Close()
		}
		return false
	}
}

func (c *client) writePump() {
	defer func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}()

	for {
		select {
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) readPump(mgr *roomManager) {
	defer func() {
		close(c.done)
		mgr.dropClient(c)
		_ = c.conn.Close()
	}()

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}

		c.handleEnvelope(mgr, env)
	}
}

func (c *client) handleEnvelope(mgr *roomManager, env envelope) {
	switch env.Type {
	case "create-room":
		r := mgr.createRoom()
		c.trySend(newEnvelope("create-room-result", createRoomResult{
			Success:  true,
			RoomCode: r.code,
		}))

	case "join-room":
		var req joinRoomRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" || strings.TrimSpace(req.PlayerName) == "" {
			c.trySend(newEnvelope("join-room-result", joinRoomResult{
				Success: false,
				Message: "a room code and a player name are required",
			}))
			return
		}
		r, ok := mgr.get(req.RoomCode)
		if !ok {
			c.trySend(newEnvelope("join-room-result", joinRoomResult{
				Success: false,
				Message: errRoomNotFound.Error(),
			}))
			return
		}
		r.post(evJoin{c: c, name: strings.TrimSpace(req.PlayerName)})

	case "check-player-in-room":
		var req roomRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" {
			c.trySend(newEnvelope("check-player-in-room-result", checkPlayerResult{
				Success: false,
				Message: "a room code is required",
			}))
			return
		}
		r, ok := mgr.get(req.RoomCode)
		if !ok {
			c.trySend(newEnvelope("check-player-in-room-result", checkPlayerResult{
				Success: false,
				Message: errRoomNotFound.Error(),
			}))
			return
		}
		if !r.hasPlayer(c.playerID) {
			c.trySend(newEnvelope("check-player-in-room-result", checkPlayerResult{
				Success: false,
				Message: "you are not in this room",
			}))
			return
		}
		c.trySend(newEnvelope("check-player-in-room-result", checkPlayerResult{Success: true}))

	case "get-room-info":
		var req roomRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" {
			c.trySend(newEnvelope("get-room-info-result", roomInfoResult{
				Success: false,
				Message: "a room code is required",
			}))
			return
		}
		r, ok := mgr.get(req.RoomCode)
		if !ok {
			c.trySend(newEnvelope("get-room-info-result", roomInfoResult{
				Success: false,
				Message: errRoomNotFound.Error(),
			}))
			return
		}
		c.trySend(newEnvelope("get-room-info-result", r.info()))

	case "start-game", "submit-word", "report-word", "vote-report",
		"player-timeout", "leave-room", "player-back-to-room", "send-message":
		c.dispatchRoomEvent(mgr, env)

	default:
		c.trySend(errorEnvelope("unknown event type: " + env.Type))
	}
}

// dispatchRoomEvent decodes a fire-and-forget event and posts it to the
// target room's mailbox. Per the propagation policy, a missing room is a
// silent no-op for these; a malformed payload earns the sender a private
// error.
func (c *client) dispatchRoomEvent(mgr *roomManager, env envelope) {
	var (
		code string
		ev   roomEvent
	)

	switch env.Type {
	case "submit-word":
		var req submitWordRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" {
			c.trySend(errorEnvelope("malformed " + env.Type + " payload"))
			return
		}
		code = req.RoomCode
		ev = evSubmitWord{c: c, word: strings.TrimSpace(req.Word)}

	case "vote-report":
		var req voteReportRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" {
			c.trySend(errorEnvelope("malformed " + env.Type + " payload"))
			return
		}
		code = req.RoomCode
		ev = evVoteReport{c: c, vote: req.Vote}

	case "send-message":
		var req sendMessageRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" {
			c.trySend(errorEnvelope("malformed " + env.Type + " payload"))
			return
		}
		code = req.RoomCode
		ev = evChat{c: c, text: req.Message}

	default:
		var req roomRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil || req.RoomCode == "" {
			c.trySend(errorEnvelope("malformed " + env.Type + " payload"))
			return
		}
		code = req.RoomCode

		switch env.Type {
		case "start-game":
			ev = evStartGame{c: c}
		case "report-word":
			ev = evReportWord{c: c}
		case "player-timeout":
			ev = evPlayerTimeout{c: c}
		case "leave-room":
			ev = evLeaveRoom{c: c}
		case "player-back-to-room":
			ev = evBackToRoom{c: c}
		}
	}

	r, ok := mgr.get(code)
	if !ok {
		return
	}
	r.post(ev)
}

func serveWS(mgr *roomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			sugar.Debugf("upgrade error: %v", err)
			return
		}

		c := &client{
			conn:     conn,
			send:     make(chan envelope, 32),
			done:     make(chan struct{}),
			playerID: uuid.NewString(),
		}

		sugar.Debugf("client %s connected from %s", c.playerID, realIP(r))

		go c.writePump()
		c.readPump(mgr)
	}
}

// roomExistsHandler lets the client probe for a room before attempting to
// join it.
func roomExistsHandler(cfg *Config, mgr *roomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		_, ok := mgr.get(ps.ByName("code"))

		w.Header().Set("Content-Type", "application/json")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(map[string]bool{"exists": ok})
	}
}

// qrHandler generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static client ----

//go:embed wordchain/index.html
var indexHTML []byte

//go:embed wordchain/app.css
var wordchainCSS []byte

//go:embed wordchain/app.js
var wordchainJS []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		_, _ = w.Write(wordchainCSS)
	}
}

func getJsHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		_, _ = w.Write(wordchainJS)
	}
}

// registerWordchainGame sets up routes so that:
//   - $path             → HTML client
//   - $path/:code       → HTML client with the room code prefilled
//   - $path/:code/qr    → PNG QR code for that room's URL
//   - /ws               → the game websocket (room code travels in events)
//   - /api/rooms/:code  → room existence probe
func registerWordchainGame(cfg *Config, path string, mux *httprouter.Router) {
	mgr := newRoomManager(cfg)

	mux.GET(cfg.prefix+path, getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:code", getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)

	mux.GET(cfg.prefix+"/assets/wordchain/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/wordchain/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+"/ws", serveWS(mgr))

	mux.GET(cfg.prefix+"/api/rooms/:code", roomExistsHandler(cfg, mgr))
}
