package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitOneWord starts a round and has the first player submit a word, so
// the turn has already moved on when the dispute opens.
func submitOneWord(t *testing.T, r *room, clients []*client, word string) *client {
	t.Helper()

	startRound(t, r, clients[0])
	submitter := currentClient(r, clients)
	r.handleSubmitWord(submitter, word)

	r.mu.RLock()
	defer r.mu.RUnlock()
	require.Equal(t, word, r.game.currentWord)
	require.Equal(t, submitter.playerID, r.game.lastWordPlayerID)

	return submitter
}

func TestReportOpensDispute(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)
	submitOneWord(t, r, clients, "xyzzy")

	reporter := currentClient(r, clients)
	for _, c := range clients {
		drain(c)
	}

	r.handleReportWord(reporter)

	for _, c := range clients {
		env, ok := lastOfType(drain(c), "dispute-started")
		require.True(t, ok)

		d := decodePayload[disputeBroadcast](t, env)
		assert.Equal(t, "xyzzy", d.Word)
		require.Len(t, d.Reports, 1)
		assert.Equal(t, reporter.playerID, d.Reports[0].PlayerID)
		assert.True(t, d.Reports[0].Vote)
	}

	// One yes out of three is not a majority; the dispute stays open.
	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.True(t, r.game.isPlaying)
	assert.Len(t, r.game.reports, 1)
}

func TestMajorityRejectionChargesSubmitter(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)
	submitter := submitOneWord(t, r, clients, "xyzzy")

	var others []*client
	for _, c := range clients {
		if c != submitter {
			others = append(others, c)
		}
	}

	r.handleReportWord(others[0])
	for _, c := range clients {
		drain(c)
	}

	// Second yes makes it 2 of 3: strict majority, resolved immediately.
	r.handleVoteReport(others[1], true)

	r.mu.RLock()
	playing := r.game.isPlaying
	losers := append([]string(nil), r.game.losers...)
	loseCount := r.playerByIDLocked(submitter.playerID).loseCount
	r.mu.RUnlock()

	assert.False(t, playing)
	assert.Equal(t, []string{submitter.playerID}, losers)
	assert.Equal(t, 1, loseCount, "the loss lands on whoever submitted the word, not whoever holds the turn")

	envs := drain(others[0])
	env, ok := lastOfType(envs, "dispute-finished")
	require.True(t, ok)
	assert.False(t, decodePayload[disputeFinishedBroadcast](t, env).Accepted)

	env, ok = lastOfType(envs, "player-lost")
	require.True(t, ok)
	assert.Equal(t, submitter.playerID, decodePayload[playerLostBroadcast](t, env).PlayerID)
}

func TestDisputeDismissedWhenVotesFallShort(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)
	submitOneWord(t, r, clients, "xyzzy")

	r.handleReportWord(clients[0])
	r.handleVoteReport(clients[1], false)

	for _, c := range clients {
		drain(c)
	}

	// Everyone has now voted: 1 yes, 2 no. The word stands and play
	// continues with a clean slate for the next dispute.
	r.handleVoteReport(clients[2], false)

	r.mu.RLock()
	playing := r.game.isPlaying
	reports := len(r.game.reports)
	losers := len(r.game.losers)
	r.mu.RUnlock()

	assert.True(t, playing)
	assert.Zero(t, reports)
	assert.Zero(t, losers)

	env, ok := lastOfType(drain(clients[0]), "dispute-finished")
	require.True(t, ok)
	assert.True(t, decodePayload[disputeFinishedBroadcast](t, env).Accepted)
}

func TestRevoteReplacesEarlierVote(t *testing.T) {
	_, r, clients := newTestRoom(t, 4)
	submitOneWord(t, r, clients, "xyzzy")

	r.handleReportWord(clients[0])
	r.handleVoteReport(clients[0], false)

	r.mu.RLock()
	defer r.mu.RUnlock()

	require.Len(t, r.game.reports, 1)
	assert.Equal(t, clients[0].playerID, r.game.reports[0].PlayerID)
	assert.False(t, r.game.reports[0].Vote)
	assert.True(t, r.game.isPlaying)
}

func TestTieGoesAgainstTheWord(t *testing.T) {
	_, r, clients := newTestRoom(t, 2)
	submitter := submitOneWord(t, r, clients, "xyzzy")

	var other *client
	for _, c := range clients {
		if c != submitter {
			other = c
		}
	}

	r.handleReportWord(other)

	r.mu.RLock()
	playing := r.game.isPlaying
	r.mu.RUnlock()
	require.True(t, playing, "one yes of two voters is not yet decisive")

	// The submitter defends the word: 1-1 with all votes in. A tie rejects.
	r.handleVoteReport(submitter, false)

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.False(t, r.game.isPlaying)
	assert.Contains(t, r.game.losers, submitter.playerID)
}

func TestReportsClearWhenTurnAdvances(t *testing.T) {
	_, r, clients := newTestRoom(t, 3)
	submitOneWord(t, r, clients, "apple")

	reporter := currentClient(r, clients)
	r.handleReportWord(reporter)

	r.mu.RLock()
	require.Len(t, r.game.reports, 1)
	r.mu.RUnlock()

	// The player on the clock answers the chain instead of the dispute.
	r.handleSubmitWord(reporter, "apple tart")

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.game.reports, "a dispute never outlives the word it was about")
}

func TestDisputeEventsIgnoredOutsideRounds(t *testing.T) {
	_, r, clients := newTestRoom(t, 2)

	r.handleReportWord(clients[0])
	r.handleVoteReport(clients[1], true)

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.game.reports)
	assert.Empty(t, r.game.losers)
}
