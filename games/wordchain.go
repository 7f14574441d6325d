package games

// Players join a room by six-character code; the first to join is the host
// When the host starts a round, turn order is shuffled and the first player submits any word or phrase
// Each following submission must begin with the last word of the previous one (case-insensitive)
// A countdown runs per turn; failing to submit in time, or submitting a word that breaks the chain, loses you the round
// Any player can report the current word; the room then votes, and a majority "reject" charges the loss to whoever submitted it
// The round ends as soon as someone loses; standings are ranked by fewest losses across rounds

// Display formats:
// - Current word large and centered, countdown beside the turn indicator
// - Player list with loss counts, current player highlighted
// - Chat column alongside the game panel

// Implementation details:
// - One websocket endpoint; every event carries the room code
// - Players are identified per-connection; a reconnect is a new player
// - Host migrates to the earliest-joined remaining player on departure
// - Rooms are destroyed when the last player leaves, or reaped once idle

// How to play
// - Create a room (or follow a shared link/QR code) and pick a name
// - Host starts the round once at least two players have joined
// - On your turn, type a word or phrase starting with the last word shown
// - Between rounds, everyone returns to the lobby before the host can start again
