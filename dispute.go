package main

import (
	"time"
)

// Peer dispute over the word currently on the table. Votes live in
// gameState.reports: at most one entry per player, latest vote wins.
// Reports are wiped whenever the turn advances or the round ends, so a
// dispute always refers to the word that was current when it was opened.

// handleReportWord opens a dispute (or re-broadcasts the tally if the
// reporter already has a vote down). Reporting counts as a yes vote.
func (r *room) handleReportWord(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	g := &r.game
	if !g.isPlaying || r.playerByIDLocked(c.playerID) == nil {
		return
	}

	exists := false
	for _, rep := range g.reports {
		if rep.PlayerID == c.playerID {
			exists = true
			break
		}
	}
	if !exists {
		g.reports = append(g.reports, report{PlayerID: c.playerID, Vote: true})
	}

	sugar.Debugf("player %s reported word %q in room %s", c.playerID, g.currentWord, r.code)

	r.broadcastLocked(newEnvelope("dispute-started", disputeBroadcast{
		Reports: append([]report(nil), g.reports...),
		Word:    g.currentWord,
	}))
}

// handleVoteReport records (or replaces) the caller's vote and checks
// whether the dispute can be resolved.
func (r *room) handleVoteReport(c *client, vote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	g := &r.game
	if !g.isPlaying || r.playerByIDLocked(c.playerID) == nil {
		return
	}

	updated := false
	for i := range g.reports {
		if g.reports[i].PlayerID == c.playerID {
			g.reports[i].Vote = vote
			updated = true
			break
		}
	}
	if !updated {
		g.reports = append(g.reports, report{PlayerID: c.playerID, Vote: vote})
	}

	r.broadcastLocked(newEnvelope("dispute-update", disputeBroadcast{
		Reports: append([]report(nil), g.reports...),
		Word:    g.currentWord,
	}))

	r.resolveDisputeLocked()
}

// resolveDisputeLocked decides the dispute once everyone has voted or a
// strict majority says yes. At that point a tie goes against the word: the
// submitter of the disputed word is charged with the loss, even if the turn
// has already moved on past them.
func (r *room) resolveDisputeLocked() {
	g := &r.game

	totalPlayers := len(r.players)
	totalVotes := len(g.reports)
	yesVotes := 0
	for _, rep := range g.reports {
		if rep.Vote {
			yesVotes++
		}
	}

	if totalVotes != totalPlayers && yesVotes*2 <= totalPlayers {
		return
	}

	if yesVotes*2 >= totalPlayers {
		target := g.lastWordPlayerID
		if target == "" {
			target = g.currentPlayerID
		}

		gameMetrics.disputesResolved.WithLabelValues("rejected").Inc()
		sugar.Infof("word %q rejected by vote in room %s (%d/%d yes)", g.currentWord, r.code, yesVotes, totalVotes)

		r.broadcastLocked(newEnvelope("dispute-finished", disputeFinishedBroadcast{Accepted: false}))
		r.eliminateLocked(target, "word rejected by majority", elimRejected)
		return
	}

	g.reports = nil
	gameMetrics.disputesResolved.WithLabelValues("accepted").Inc()
	sugar.Infof("word %q upheld by vote in room %s (%d/%d yes)", g.currentWord, r.code, yesVotes, totalVotes)

	r.broadcastLocked(newEnvelope("dispute-finished", disputeFinishedBroadcast{Accepted: true}))
}
