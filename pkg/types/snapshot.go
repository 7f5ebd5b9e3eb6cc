package types

// Server -> Client
//
// Ack:
//   {"type": "ack", "ack": n, "success": true, "roomCode": string, "gameState": GameState}
//   {"type": "ack", "ack": n, "success": false, "error": string}
//
// Push (every member of the room, after each successful change):
//   {"type": PushPlayersUpdated | PushGameStarted | PushAllWordsSubmitted | PushGameStateUpdate,
//    "gameState": GameState}
//   {"type": PushTimerUpdate, "timeLeft": seconds}
//
// GameState:
//   roomCode: string
//   players: [{name, id, is_host, connected}]
//   hostId: string
//   gamePhase: "in-lobby" | "pre-game-configs" | "collecting-words" | "round-start" |
//              "turn-ready" | "turn-active" | "turn-end" | "round-end" | "game-over" | "paused"
//   pausedGamePhase: string // set while paused
//   gameConfig: {teams, wordsPerPlayer, turnSeconds, numPlayers, numPlayersWithSubmittedWords}
//   playerLookup: { [name]: {team, wordsSubmitted} }
//   teamLookup: { [team]: {members, score} }
//   wordPool: string[]
//   activeGame: {rounds, currentRound, teamOrder, currentTeamIndex, clueGiverRotation,
//                currentClueGiver, currentWord?, wordsRemaining, wordsGuessedThisTurn,
//                skipsThisTurn, turnDuration, turnTimeLeft, carriedTimeLeft?, scores,
//                wordsCorrect, skipPenalties, hostAdjustments, turnHistory}
//   Fields marked ? are omitted when unset.
const (
	PushAck               = "ack"
	PushPlayersUpdated    = "update-players"
	PushGameStarted       = "game-started"
	PushAllWordsSubmitted = "all-words-submitted"
	PushGameStateUpdate   = "game-state-update"
	PushTimerUpdate       = "timer-update"
)
