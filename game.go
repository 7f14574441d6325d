package main

import (
	"crypto/rand"
	"fmt"
	"sort"
	"time"
)

// Metric labels for elimination reasons.
const (
	elimTimeout     = "timeout"
	elimInvalidWord = "invalid_word"
	elimRejected    = "word_rejected"
)

// turnTimer is the countdown for a single turn. The goroutine behind it
// only posts tick/expiry events into the room mailbox; the handlers compare
// the token against the currently armed timer and drop anything stale, so a
// countdown can never mutate a turn it no longer owns.
type turnTimer struct {
	token int64
	stop  chan struct{}
}

// startRoundLocked begins a fresh round: shuffled turn order, cleared
// losers and reports, first player on the clock.
func (r *room) startRoundLocked() {
	g := &r.game

	g.isPlaying = true
	g.currentWord = ""
	g.lastWordPlayerID = ""
	g.losers = nil
	g.reports = nil
	r.ready = make(map[string]bool)

	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.id)
	}
	shuffle(ids)

	g.turnOrder = ids
	g.turnIndex = 0
	g.currentPlayerID = ids[0]

	sugar.Infof("round started in room %s with %d players, first up %s", r.code, len(ids), g.currentPlayerID)

	r.broadcastLocked(newEnvelope("round-started", roundStartedBroadcast{
		CurrentPlayerID: g.currentPlayerID,
		TurnOrder:       r.turnOrderInfoLocked(),
	}))
	r.broadcastNextPlayerLocked()
	r.armTimerLocked()
}

// advanceTurnLocked hands the turn to the next eligible player in the
// shuffled order, wrapping around and skipping anyone eliminated or gone.
// With fewer than two eligible players left there is no game to play, so
// the round ends instead.
//
// Callers that end a turn early must cancel the active timer before
// calling this.
func (r *room) advanceTurnLocked() {
	g := &r.game

	if !g.isPlaying {
		return
	}

	if r.eligibleCountLocked() < 2 {
		r.endRoundLocked()
		return
	}

	n := len(g.turnOrder)
	for i := 1; i <= n; i++ {
		idx := (g.turnIndex + i) % n
		if !r.eligibleLocked(g.turnOrder[idx]) {
			continue
		}
		g.turnIndex = idx
		g.currentPlayerID = g.turnOrder[idx]
		break
	}

	g.reports = nil

	r.broadcastNextPlayerLocked()
	r.armTimerLocked()
}

func (r *room) handleSubmitWord(c *client, word string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	g := &r.game
	if !g.isPlaying {
		return
	}

	if g.currentPlayerID != c.playerID {
		r.sendLocked(c, errorEnvelope(errNotYourTurn.Error()))
		return
	}

	if word == "" || len(word) > 200 {
		r.sendLocked(c, errorEnvelope("submitted word must be between 1 and 200 characters"))
		return
	}

	if g.currentWord != "" && !continues(g.currentWord, word) {
		link := lastToken(g.currentWord)
		reason := fmt.Sprintf("%s: %q does not start with %q", errInvalidWordContinuation, word, link)

		// One trigger, two observable facets: the private explanation and
		// the public elimination.
		r.sendLocked(c, errorEnvelope(reason))
		r.eliminateLocked(c.playerID, reason, elimInvalidWord)
		return
	}

	r.cancelTimerLocked()

	g.currentWord = word
	g.lastWordPlayerID = c.playerID
	gameMetrics.wordsSubmitted.Inc()

	r.broadcastLocked(newEnvelope("word-update", wordUpdateBroadcast{
		Word:     word,
		PlayerID: c.playerID,
	}))

	r.advanceTurnLocked()
}

// handlePlayerTimeout lets a client declare its own countdown expired. The
// server timer is authoritative, but the event is honored for clients whose
// local countdown runs ahead.
func (r *room) handlePlayerTimeout(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if !r.game.isPlaying || r.playerByIDLocked(c.playerID) == nil {
		return
	}

	r.eliminateLocked(c.playerID, "ran out of time", elimTimeout)
}

// eliminateLocked charges a loss to playerID and, since a round ends on the
// first elimination, finishes the round.
func (r *room) eliminateLocked(playerID, reason, metricLabel string) {
	g := &r.game

	if !g.isPlaying {
		return
	}

	r.cancelTimerLocked()

	if p := r.playerByIDLocked(playerID); p != nil {
		p.loseCount++
	}

	found := false
	for _, id := range g.losers {
		if id == playerID {
			found = true
			break
		}
	}
	if !found {
		g.losers = append(g.losers, playerID)
	}

	gameMetrics.eliminations.WithLabelValues(metricLabel).Inc()
	sugar.Infof("player %s lost in room %s: %s", playerID, r.code, reason)

	r.broadcastLocked(newEnvelope("player-lost", playerLostBroadcast{
		PlayerID: playerID,
		Reason:   reason,
		Losers:   append([]string(nil), g.losers...),
	}))

	r.endRoundLocked()
}

// endRoundLocked finishes the round and publishes rankings by ascending
// loseCount. Losers stay recorded until the next round starts.
func (r *room) endRoundLocked() {
	g := &r.game

	r.cancelTimerLocked()

	g.isPlaying = false
	g.currentPlayerID = ""
	g.reports = nil
	r.ready = make(map[string]bool)

	rankings := r.playerListLocked()
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].LoseCount < rankings[j].LoseCount
	})

	sugar.Infof("round ended in room %s, losers: %v", r.code, g.losers)

	r.broadcastLocked(newEnvelope("players-update", r.playerListLocked()))
	r.broadcastLocked(newEnvelope("round-ended", roundEndedBroadcast{
		Losers:   append([]string(nil), g.losers...),
		Rankings: rankings,
	}))
}

// ---- Turn timer ----

// armTimerLocked starts the countdown for the current turn. Any previous
// timer is cancelled first, so at most one is ever live per room.
func (r *room) armTimerLocked() {
	r.cancelTimerLocked()

	g := &r.game
	g.timerToken++
	t := &turnTimer{token: g.timerToken, stop: make(chan struct{})}
	g.timer = t

	go r.runTurnTimer(t, int(r.cfg.turnDuration/time.Second))
}

func (r *room) cancelTimerLocked() {
	if r.game.timer != nil {
		close(r.game.timer.stop)
		r.game.timer = nil
	}
}

func (r *room) runTurnTimer(t *turnTimer, seconds int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				r.post(evTimerExpired{token: t.token})
				return
			}
			r.post(evTimerTick{token: t.token, remaining: remaining})
		}
	}
}

func (r *room) handleTimerTick(ev evTimerTick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game.timer == nil || r.game.timer.token != ev.token {
		return
	}

	r.broadcastLocked(newEnvelope("timer-update", timerUpdateBroadcast{
		TimeRemaining: ev.remaining,
	}))
}

func (r *room) handleTimerExpired(ev evTimerExpired) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A countdown that lost the race against a word submission, dispute
	// outcome, or departure was already cancelled; its token no longer
	// matches and it must not eliminate anyone.
	if r.game.timer == nil || r.game.timer.token != ev.token {
		return
	}

	r.eliminateLocked(r.game.currentPlayerID, "ran out of time", elimTimeout)
}

// ---- Helpers ----

// eligibleLocked reports whether id may still take turns this round: a
// current member and not yet eliminated. turnOrder keeps eliminated and
// departed ids so indices stay meaningful; they are skipped, not removed.
func (r *room) eligibleLocked(id string) bool {
	if r.playerByIDLocked(id) == nil {
		return false
	}
	for _, loser := range r.game.losers {
		if loser == id {
			return false
		}
	}
	return true
}

func (r *room) eligibleCountLocked() int {
	count := 0
	for _, id := range r.game.turnOrder {
		if r.eligibleLocked(id) {
			count++
		}
	}
	return count
}

func (r *room) turnOrderInfoLocked() []playerInfo {
	order := make([]playerInfo, 0, len(r.game.turnOrder))
	for _, id := range r.game.turnOrder {
		if !r.eligibleLocked(id) {
			continue
		}
		p := r.playerByIDLocked(id)
		order = append(order, playerInfo{ID: p.id, Name: p.name, LoseCount: p.loseCount})
	}
	return order
}

// broadcastNextPlayerLocked announces whose turn it is, including the
// player after that for UI lookahead.
func (r *room) broadcastNextPlayerLocked() {
	g := &r.game

	nextID, nextName := r.lookaheadLocked()

	r.broadcastLocked(newEnvelope("next-player", nextPlayerBroadcast{
		CurrentPlayerID: g.currentPlayerID,
		NextPlayerID:    nextID,
		NextPlayerName:  nextName,
		TimeRemaining:   int(r.cfg.turnDuration / time.Second),
		TurnOrder:       r.turnOrderInfoLocked(),
	}))
}

func (r *room) lookaheadLocked() (string, string) {
	g := &r.game

	n := len(g.turnOrder)
	for i := 1; i <= n; i++ {
		id := g.turnOrder[(g.turnIndex+i)%n]
		if !r.eligibleLocked(id) {
			continue
		}
		return id, r.playerByIDLocked(id).name
	}
	return "", ""
}

// shuffle is a Fisher-Yates shuffle backed by crypto/rand.
func shuffle(ids []string) {
	for i := len(ids) - 1; i > 0; i-- {
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			continue
		}
		j := int(b[0]) % (i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}
