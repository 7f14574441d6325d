package main

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

const maxMessageLength = 100

type player struct {
	id        string
	name      string
	loseCount int
}

// gameState is the per-round state of a room. It is only ever touched with
// the room mutex held, by events drained from the room mailbox.
type gameState struct {
	isPlaying        bool
	currentWord      string
	currentPlayerID  string
	lastWordPlayerID string
	turnOrder        []string
	turnIndex        int
	losers           []string
	reports          []report
	timer            *turnTimer
	timerToken       int64
}

// Events posted to a room's mailbox. Each is handled to completion,
// including all broadcasts, before the next one is taken.
type roomEvent any

type evJoin struct {
	c    *client
	name string
}

type evDisconnect struct{ c *client }

type evLeaveRoom struct{ c *client }

type evStartGame struct{ c *client }

type evSubmitWord struct {
	c    *client
	word string
}

type evReportWord struct{ c *client }

type evVoteReport struct {
	c    *client
	vote bool
}

type evPlayerTimeout struct{ c *client }

type evBackToRoom struct{ c *client }

type evChat struct {
	c    *client
	text string
}

type evTimerTick struct {
	token     int64
	remaining int
}

type evTimerExpired struct{ token int64 }

// room is an isolated game session. All mutation happens on the mailbox
// goroutine; the mutex exists so read-only HTTP/request handlers, the
// reaper, and tests can observe state safely.
type room struct {
	code string
	cfg  *Config
	mgr  *roomManager

	mu         sync.RWMutex
	clients    map[*client]bool
	players    []*player
	hostID     string
	messages   []chatMessage
	ready      map[string]bool
	game       gameState
	lastActive time.Time

	events chan roomEvent
	done   chan struct{}
	closed bool
}

func newRoom(code string, cfg *Config, mgr *roomManager) *room {
	return &room{
		code:       code,
		cfg:        cfg,
		mgr:        mgr,
		clients:    make(map[*client]bool),
		messages:   []chatMessage{},
		ready:      make(map[string]bool),
		lastActive: time.Now(),
		events:     make(chan roomEvent, 64),
		done:       make(chan struct{}),
	}
}

func (r *room) run() {
	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-r.done:
			return
		}
	}
}

func (r *room) dispatch(ev roomEvent) {
	switch ev := ev.(type) {
	case evJoin:
		r.handleJoin(ev.c, ev.name)
	case evDisconnect:
		r.handleLeave(ev.c, true)
	case evLeaveRoom:
		r.handleLeave(ev.c, false)
	case evStartGame:
		r.handleStartGame(ev.c)
	case evSubmitWord:
		r.handleSubmitWord(ev.c, ev.word)
	case evReportWord:
		r.handleReportWord(ev.c)
	case evVoteReport:
		r.handleVoteReport(ev.c, ev.vote)
	case evPlayerTimeout:
		r.handlePlayerTimeout(ev.c)
	case evBackToRoom:
		r.handleBackToRoom(ev.c)
	case evChat:
		r.handleChat(ev.c, ev.text)
	case evTimerTick:
		r.handleTimerTick(ev)
	case evTimerExpired:
		r.handleTimerExpired(ev)
	}
}

// post delivers an event to the room mailbox, unless the room has already
// been destroyed.
func (r *room) post(ev roomEvent) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

// close tears the room down: cancels any armed timer, disconnects all
// remaining clients, and stops the mailbox goroutine.
func (r *room) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.cancelTimerLocked()
	for c := range r.clients {
		delete(r.clients, c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
	r.mu.Unlock()

	close(r.done)
}

// ---- Presence ----

func (r *room) handleJoin(c *client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if existing := r.playerByIDLocked(c.playerID); existing != nil {
		// The same connection identifier rejoining before its disconnect
		// was observed: idempotent.
		r.clients[c] = true
		if !r.game.isPlaying {
			r.ready[c.playerID] = true
		}
		r.sendLocked(c, newEnvelope("join-room-result", joinRoomResult{
			Success: true,
			Room:    r.snapshotLocked(),
			IsHost:  c.playerID == r.hostID,
		}))
		return
	}

	p := &player{id: c.playerID, name: name}
	r.players = append(r.players, p)
	r.clients[c] = true

	// First joiner becomes host.
	if r.hostID == "" {
		r.hostID = p.id
	}

	// A player joining between rounds can never block the next round.
	if !r.game.isPlaying {
		r.ready[p.id] = true
	}

	gameMetrics.connectedPlayers.Inc()
	sugar.Infof("player %q (%s) joined room %s", name, p.id, r.code)

	r.sendLocked(c, newEnvelope("join-room-result", joinRoomResult{
		Success: true,
		Room:    r.snapshotLocked(),
		IsHost:  p.id == r.hostID,
	}))
	r.broadcastLocked(newEnvelope("players-update", r.playerListLocked()))
	r.broadcastLocked(newEnvelope("messages-update", r.messages))
}

func (r *room) handleLeave(c *client, disconnected bool) {
	r.mu.Lock()

	r.lastActive = time.Now()
	delete(r.clients, c)

	idx := -1
	for i, p := range r.players {
		if p.id == c.playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return
	}

	name := r.players[idx].name
	wasHost := r.hostID == c.playerID
	wasCurrent := r.game.isPlaying && r.game.currentPlayerID == c.playerID

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.ready, c.playerID)
	gameMetrics.connectedPlayers.Dec()

	if disconnected {
		sugar.Infof("player %q (%s) disconnected from room %s", name, c.playerID, r.code)
	} else {
		sugar.Infof("player %q (%s) left room %s", name, c.playerID, r.code)
	}

	if len(r.players) == 0 {
		r.cancelTimerLocked()
		r.mu.Unlock()
		r.mgr.remove(r.code)
		return
	}

	if wasHost {
		newHost := r.players[0]
		r.hostID = newHost.id
		r.broadcastLocked(newEnvelope("host-changed", hostChangedBroadcast{
			NewHostID:   newHost.id,
			NewHostName: newHost.name,
			Message:     fmt.Sprintf("%s (the previous host) left. %s is the new host.", name, newHost.name),
		}))
	} else {
		r.broadcastLocked(newEnvelope("player-left", playerLeftBroadcast{
			PlayerID:   c.playerID,
			PlayerName: name,
			Message:    fmt.Sprintf("%s left the room.", name),
		}))
	}

	r.broadcastLocked(newEnvelope("players-update", r.playerListLocked()))

	// Departing mid-turn hands the turn to the next eligible player. The
	// timer is cancelled first so the stale countdown cannot fire. If the
	// departure leaves fewer than two eligible players, there is no game
	// left and the round ends.
	if r.game.isPlaying {
		if r.eligibleCountLocked() < 2 {
			r.endRoundLocked()
		} else if wasCurrent {
			r.cancelTimerLocked()
			r.advanceTurnLocked()
		}
	}

	r.mu.Unlock()
}

func (r *room) handleBackToRoom(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	p := r.playerByIDLocked(c.playerID)
	if p == nil {
		return
	}

	r.ready[p.id] = true

	r.broadcastLocked(newEnvelope("player-back", playerBackBroadcast{
		PlayerID:   p.id,
		PlayerName: p.name,
		Message:    fmt.Sprintf("%s returned to the lobby.", p.name),
	}))

	if r.readyCoversAllLocked() {
		r.sendToPlayerLocked(r.hostID, newEnvelope("all-players-back", simpleMessage{
			Message: "All players are back in the lobby. You can start a new round.",
		}))
	}
}

func (r *room) handleStartGame(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if err := r.canStartRoundLocked(c.playerID); err != nil {
		if err == errPlayersNotReady {
			missing := r.missingPlayersLocked()
			r.sendLocked(c, errorEnvelope(fmt.Sprintf("%s: waiting for %s", err, joinNames(missing))))
			for _, p := range missing {
				r.sendToPlayerLocked(p.id, errorEnvelope("Return to the lobby so a new round can start."))
			}
			return
		}
		r.sendLocked(c, errorEnvelope(err.Error()))
		return
	}

	r.startRoundLocked()
}

// canStartRoundLocked checks every precondition for a new round; the first
// failure wins.
func (r *room) canStartRoundLocked(requesterID string) error {
	switch {
	case requesterID != r.hostID:
		return errNotHost
	case len(r.players) < 2:
		return errInsufficientPlayers
	case r.game.isPlaying:
		return errAlreadyInProgress
	case !r.readyCoversAllLocked():
		return errPlayersNotReady
	}
	return nil
}

func (r *room) handleChat(c *client, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	p := r.playerByIDLocked(c.playerID)
	if p == nil || text == "" {
		return
	}

	if len(text) > maxMessageLength {
		text = text[:maxMessageLength]
	}

	msg := chatMessage{
		ID:         time.Now().UnixMilli(),
		SenderID:   p.id,
		SenderName: p.name,
		Text:       text,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	r.messages = append(r.messages, msg)

	r.broadcastLocked(newEnvelope("new-message", msg))
}

// ---- Locked helpers ----

func (r *room) playerByIDLocked(id string) *player {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *room) playerListLocked() []playerInfo {
	list := make([]playerInfo, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, playerInfo{ID: p.id, Name: p.name, LoseCount: p.loseCount})
	}
	return list
}

func (r *room) snapshotLocked() *roomSnapshot {
	return &roomSnapshot{
		Players:  r.playerListLocked(),
		Messages: r.messages,
		HostID:   r.hostID,
	}
}

func (r *room) readyCoversAllLocked() bool {
	for _, p := range r.players {
		if !r.ready[p.id] {
			return false
		}
	}
	return true
}

func (r *room) missingPlayersLocked() []*player {
	var missing []*player
	for _, p := range r.players {
		if !r.ready[p.id] {
			missing = append(missing, p)
		}
	}
	return missing
}

func (r *room) sendLocked(c *client, env envelope) {
	if !c.trySend(env) {
		delete(r.clients, c)
	}
}

func (r *room) sendToPlayerLocked(playerID string, env envelope) {
	for c := range r.clients {
		if c.playerID == playerID {
			r.sendLocked(c, env)
		}
	}
}

func (r *room) broadcastLocked(env envelope) {
	for c := range r.clients {
		r.sendLocked(c, env)
	}
}

// ---- Read-only views for request-style events and HTTP handlers ----

func (r *room) hasPlayer(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerByIDLocked(id) != nil
}

func (r *room) info() roomInfoResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return roomInfoResult{
		Success:         true,
		Players:         r.playerListLocked(),
		CurrentPlayerID: r.game.currentPlayerID,
		IsPlaying:       r.game.isPlaying,
		CurrentWord:     r.game.currentWord,
	}
}

func joinNames(players []*player) string {
	out := ""
	for i, p := range players {
		if i > 0 {
			out += ", "
		}
		out += p.name
	}
	return out
}

// ---- Room registry ----

// roomManager owns every live room, keyed by code. Rooms are destroyed when
// their last player leaves, or by the reaper once idle for too long.
type roomManager struct {
	cfg   *Config
	mu    sync.Mutex
	rooms map[string]*room
}

func newRoomManager(cfg *Config) *roomManager {
	m := &roomManager{
		cfg:   cfg,
		rooms: make(map[string]*room),
	}
	if cfg.sessionTimeout > 0 {
		go m.reaperLoop()
	}
	return m
}

func (m *roomManager) createRoom() *room {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.newRoomCodeLocked()
	r := newRoom(code, m.cfg, m)
	m.rooms[code] = r
	go r.run()

	gameMetrics.activeRooms.Set(float64(len(m.rooms)))
	sugar.Infof("room %s created", code)

	return r
}

func (m *roomManager) get(code string) (*room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	return r, ok
}

func (m *roomManager) remove(code string) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
		gameMetrics.activeRooms.Set(float64(len(m.rooms)))
	}
	m.mu.Unlock()

	if ok {
		r.close()
		sugar.Infof("room %s destroyed", code)
	}
}

// newRoomCodeLocked generates a crypto-random 6-character room code and
// ensures it doesn't collide with a live room.
func (m *roomManager) newRoomCodeLocked() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}

// dropClient routes a dead connection to every room; the room the player
// was in handles the departure, the rest no-op.
func (m *roomManager) dropClient(c *client) {
	m.mu.Lock()
	rooms := make([]*room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	for _, r := range rooms {
		r.post(evDisconnect{c: c})
	}
}

// reaperLoop periodically destroys rooms that have been idle longer than
// the configured session timeout.
func (m *roomManager) reaperLoop() {
	ticker := time.NewTicker(m.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-m.cfg.sessionTimeout)

		m.mu.Lock()
		var stale []string
		for code, r := range m.rooms {
			r.mu.RLock()
			last := r.lastActive
			r.mu.RUnlock()

			if last.Before(cutoff) {
				stale = append(stale, code)
			}
		}
		m.mu.Unlock()

		for _, code := range stale {
			sugar.Infof("room %s idle since session timeout, reaping", code)
			m.remove(code)
		}
	}
}
