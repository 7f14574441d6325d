package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundStartShufflesAllPlayers(t *testing.T) {
	_, r, clients := newTestRoom(t, 4)

	startRound(t, r, clients[0])

	r.mu.RLock()
	defer r.mu.RUnlock()

	g := &r.game
	require.Len(t, g.turnOrder, 4)
	assert.Equal(t, g.turnOrder[0], g.currentPlayerID)
	assert.NotNil(t, g.timer)
	assert.Empty(t, g.currentWord)
	assert.Empty(t, g.losers)

	// The order is a permutation of the room's players.
	seen := make(map[string]bool)
	for _, id := range g.turnOrder {
		assert.NotNil(t, r.playerByIDLocked(id))
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSubmitWordAdvancesTurn(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])
	first := currentClient(r, clients)

	r.handleSubmitWord(first, "apple pie")

	r.mu.RLock()
	defer r.mu.RUnlock()

	g := &r.game
	assert.Equal(t, "apple pie", g.currentWord)
	assert.Equal(t, first.playerID, g.lastWordPlayerID)
	assert.NotEqual(t, first.playerID, g.currentPlayerID)
	assert.True(t, g.isPlaying)
	require.NotNil(t, g.timer, "the next turn gets its own countdown")
}

func TestSubmitWordOutOfTurnIsRejected(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])

	r.mu.RLock()
	currentID := r.game.currentPlayerID
	r.mu.RUnlock()

	var bystander *client
	for _, c := range clients {
		if c.playerID != currentID {
			bystander = c
			break
		}
	}
	drain(bystander)

	r.handleSubmitWord(bystander, "sneaky word")

	env, ok := lastOfType(drain(bystander), "error-message")
	require.True(t, ok)
	assert.Equal(t, errNotYourTurn.Error(), decodePayload[simpleMessage](t, env).Message)

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.game.currentWord)
	assert.Equal(t, currentID, r.game.currentPlayerID)
}

func TestBrokenChainEliminatesAndEndsRound(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])

	first := currentClient(r, clients)
	r.handleSubmitWord(first, "apple")

	second := currentClient(r, clients)
	drain(second)
	r.handleSubmitWord(second, "elephant")

	r.mu.RLock()
	defer r.mu.RUnlock()

	g := &r.game
	assert.False(t, g.isPlaying, "the round ends on the first elimination")
	assert.Contains(t, g.losers, second.playerID)
	assert.Equal(t, 1, r.playerByIDLocked(second.playerID).loseCount)
	assert.Equal(t, 0, r.playerByIDLocked(first.playerID).loseCount)

	envs := drain(second)
	env, ok := lastOfType(envs, "error-message")
	require.True(t, ok)
	assert.Contains(t, decodePayload[simpleMessage](t, env).Message, `"apple"`)

	env, ok = lastOfType(envs, "player-lost")
	require.True(t, ok)
	lost := decodePayload[playerLostBroadcast](t, env)
	assert.Equal(t, second.playerID, lost.PlayerID)
	assert.Equal(t, []string{second.playerID}, lost.Losers)
}

func TestChainLinkIsCaseInsensitive(t *testing.T) {
	_, r, clients := newTestRoom(t, 2)

	startRound(t, r, clients[0])

	first := currentClient(r, clients)
	r.handleSubmitWord(first, "New York")

	second := currentClient(r, clients)
	r.handleSubmitWord(second, "york minster")

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.True(t, r.game.isPlaying)
	assert.Equal(t, "york minster", r.game.currentWord)
}

func TestRoundEndedRankingsSortByLosses(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)
	host := clients[0]

	startRound(t, r, host)
	loser := currentClient(r, clients)
	r.handlePlayerTimeout(loser)

	env, ok := lastOfType(drain(clients[1]), "round-ended")
	require.True(t, ok)

	ended := decodePayload[roundEndedBroadcast](t, env)
	assert.Equal(t, []string{loser.playerID}, ended.Losers)
	require.Len(t, ended.Rankings, 3)
	assert.Equal(t, loser.playerID, ended.Rankings[2].ID, "the loser ranks last")
	assert.Equal(t, 1, ended.Rankings[2].LoseCount)
	assert.Equal(t, 0, ended.Rankings[0].LoseCount)
}

func TestTimerExpiryEliminatesCurrentPlayer(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])
	cur := currentClient(r, clients)

	r.mu.RLock()
	token := r.game.timer.token
	r.mu.RUnlock()

	r.handleTimerExpired(evTimerExpired{token: token})

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.False(t, r.game.isPlaying)
	assert.Contains(t, r.game.losers, cur.playerID)
	assert.Nil(t, r.game.timer)
}

func TestStaleTimerEventsAreDropped(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])

	r.mu.RLock()
	staleToken := r.game.timer.token
	r.mu.RUnlock()

	// A word submission cancels the countdown and arms a new one.
	first := currentClient(r, clients)
	r.handleSubmitWord(first, "apple")

	for _, c := range clients {
		drain(c)
	}

	r.handleTimerExpired(evTimerExpired{token: staleToken})
	r.handleTimerTick(evTimerTick{token: staleToken, remaining: 3})

	r.mu.RLock()
	playing := r.game.isPlaying
	losers := len(r.game.losers)
	liveToken := r.game.timer.token
	r.mu.RUnlock()

	assert.True(t, playing, "a cancelled countdown must not end the turn")
	assert.Zero(t, losers)
	assert.Greater(t, liveToken, staleToken)

	for _, c := range clients {
		_, ok := lastOfType(drain(c), "timer-update")
		assert.False(t, ok, "stale ticks must not be broadcast")
	}
}

func TestAdvanceTurnSkipsDepartedPlayers(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])

	// Someone who is not on the clock leaves mid-round.
	r.mu.RLock()
	currentID := r.game.currentPlayerID
	r.mu.RUnlock()

	var leaver *client
	for _, c := range clients {
		if c.playerID != currentID {
			leaver = c
			break
		}
	}
	r.handleLeave(leaver, false)

	cur := currentClient(r, clients)
	r.handleSubmitWord(cur, "apple")

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Two players remain, so play continues, and the departed player can
	// never be handed the turn.
	assert.True(t, r.game.isPlaying)
	assert.NotEqual(t, leaver.playerID, r.game.currentPlayerID)
}

func TestRoundWithTooFewPlayersEnds(t *testing.T) {
	_, r, clients := newTestRoom(t, 2)

	startRound(t, r, clients[0])

	cur := currentClient(r, clients)
	var other *client
	for _, c := range clients {
		if c != cur {
			other = c
		}
	}
	r.handleLeave(other, true)

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.False(t, r.game.isPlaying, "one player alone cannot keep a round going")
}

func TestNextPlayerBroadcastCarriesLookahead(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)

	startRound(t, r, clients[0])

	env, ok := lastOfType(drain(clients[0]), "next-player")
	require.True(t, ok)

	next := decodePayload[nextPlayerBroadcast](t, env)
	assert.NotEmpty(t, next.CurrentPlayerID)
	assert.NotEmpty(t, next.NextPlayerID)
	assert.NotEqual(t, next.CurrentPlayerID, next.NextPlayerID)
	assert.Equal(t, 30, next.TimeRemaining)
	assert.Len(t, next.TurnOrder, 3)
}
