// Package types names the events of the fishybowl websocket protocol so other
// Go programs (bots, load tools) can speak it.
package types

// Client -> Server
//
// Every frame is {"event": string, "ack": number, "args": [...]}.
// The server answers each frame with exactly one ack frame carrying the
// same "ack" number.
//
// create-room:        [playerName]
// join-room:          [{roomCode, playerName}]
// start-game:         [roomCode]                       host
// submit-game-config: [roomCode, {teams: [{name, players: string[]}],
//                      wordsPerPlayer, turnSeconds?}]  host
// submit-words:       [roomCode, playerName, string[]] each player once
// start-round:        [roomCode]                       host
// start-turn:         [roomCode]                       clue giver
// word-guessed:       [roomCode]                       clue giver
// skip-word:          [roomCode]                       clue giver
// adjust-score:       [roomCode, teamName, delta]      host
// next-turn:          [roomCode]                       host
// next-round:         [roomCode]                       host
// play-again:         [roomCode]                       host
const (
	EventCreateRoom       = "create-room"
	EventJoinRoom         = "join-room"
	EventStartGame        = "start-game"
	EventSubmitGameConfig = "submit-game-config"
	EventSubmitWords      = "submit-words"
	EventStartRound       = "start-round"
	EventStartTurn        = "start-turn"
	EventWordGuessed      = "word-guessed"
	EventSkipWord         = "skip-word"
	EventAdjustScore      = "adjust-score"
	EventNextTurn         = "next-turn"
	EventNextRound        = "next-round"
	EventPlayAgain        = "play-again"
)
