package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrGameInProgress       = errors.New("game already in progress")
	ErrNameTaken            = errors.New("player name already taken")
	ErrAlreadyInRoom        = errors.New("already in this room")
	ErrUnknownConnection    = errors.New("connection is not in this room")
	ErrNotHost              = errors.New("only the host can do that")
	ErrNotClueGiver         = errors.New("only the clue giver can do that")
	ErrNoActiveWord         = errors.New("no active word")
	ErrOnlyOneWordRemaining = errors.New("only one word remaining")
	ErrWrongPhase           = errors.New("action not allowed in current phase")
	ErrGamePaused           = errors.New("game is paused")
	ErrInvalidConfig        = errors.New("invalid game configuration")
	ErrWrongWordCount       = errors.New("wrong number of words")
	ErrAlreadySubmitted     = errors.New("words already submitted")
	ErrNotYourPlayer        = errors.New("player name does not match connection")
	ErrUnknownPlayer        = errors.New("player is not part of this game")
	ErrUnknownTeam          = errors.New("unknown team")
	ErrUnsupportedCommand   = errors.New("unsupported command")
)

type Phase string

const (
	PhaseLobby           Phase = "in-lobby"
	PhasePreGameConfigs  Phase = "pre-game-configs"
	PhaseCollectingWords Phase = "collecting-words"
	PhaseRoundStart      Phase = "round-start"
	PhaseTurnReady       Phase = "turn-ready"
	PhaseTurnActive      Phase = "turn-active"
	PhaseTurnEnd         Phase = "turn-end"
	PhaseRoundEnd        Phase = "round-end"
	PhaseGameOver        Phase = "game-over"
	PhasePaused          Phase = "paused"
)

// Gameplay reports whether a disconnect in p pauses the room instead of
// removing the player.
func (p Phase) Gameplay() bool {
	switch p {
	case PhaseLobby, PhasePreGameConfigs:
		return false
	}
	return true
}

const DefaultTurnSeconds = 60

type Player struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	IsHost    bool   `json:"is_host"`
	Connected bool   `json:"connected"`
}

type TeamConfig struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

type GameConfig struct {
	Teams                        []TeamConfig `json:"teams"`
	WordsPerPlayer               int          `json:"wordsPerPlayer"`
	TurnSeconds                  int          `json:"turnSeconds"`
	NumPlayers                   int          `json:"numPlayers"`
	NumPlayersWithSubmittedWords int          `json:"numPlayersWithSubmittedWords"`
}

type PlayerEntry struct {
	Team           string   `json:"team"`
	WordsSubmitted bool     `json:"wordsSubmitted"`
	SubmittedWords []string `json:"submittedWords,omitempty"`
}

type TeamEntry struct {
	Members []string `json:"members"`
	Score   int      `json:"score"`
}

type Room struct {
	Code        string                 `json:"roomCode"`
	Players     []Player               `json:"players"`
	HostID      string                 `json:"hostId"`
	Phase       Phase                  `json:"gamePhase"`
	PausedPhase Phase                  `json:"pausedGamePhase,omitempty"`
	Config      *GameConfig            `json:"gameConfig,omitempty"`
	PlayerIndex map[string]PlayerEntry `json:"playerLookup,omitempty"`
	TeamIndex   map[string]TeamEntry   `json:"teamLookup,omitempty"`
	WordPool    []string               `json:"wordPool,omitempty"`
	Game        *ActiveGame            `json:"activeGame,omitempty"`

	turnSeconds int
	rng         *rand.Rand
}

type CommandType string

const (
	CmdStartGame    CommandType = "start-game"
	CmdSubmitConfig CommandType = "submit-game-config"
	CmdSubmitWords  CommandType = "submit-words"
	CmdStartRound   CommandType = "start-round"
	CmdStartTurn    CommandType = "start-turn"
	CmdWordGuessed  CommandType = "word-guessed"
	CmdSkipWord     CommandType = "skip-word"
	CmdAdjustScore  CommandType = "adjust-score"
	CmdNextTurn     CommandType = "next-turn"
	CmdNextRound    CommandType = "next-round"
	CmdPlayAgain    CommandType = "play-again"
)

// Command is one player action. ConnID identifies the caller; the remaining
// fields are only read by the command types that need them.
type Command struct {
	Type       CommandType
	ConnID     string
	PlayerName string
	Config     *GameConfig
	Words      []string
	Team       string
	Delta      int
}

type EventType string

const (
	EvtPlayersUpdated    EventType = "update-players"
	EvtGameStarted       EventType = "game-started"
	EvtAllWordsSubmitted EventType = "all-words-submitted"
	EvtStateUpdate       EventType = "game-state-update"
	EvtTimerUpdate       EventType = "timer-update"
)

type TimerEffect int

const (
	TimerNone TimerEffect = iota
	TimerStart
	TimerStop
)

// Outcome tells the room actor what to do after a successful mutation.
type Outcome struct {
	Event    EventType
	Timer    TimerEffect
	GameOver bool
}

func stateUpdate() Outcome { return Outcome{Event: EvtStateUpdate} }

/*
	start-game          in-lobby         -> pre-game-configs
	submit-game-config  pre-game-configs -> collecting-words
	submit-words        collecting-words -> round-start (last submission)
	start-round         round-start      -> turn-ready
	start-turn          turn-ready       -> turn-active | round-end
	word-guessed        turn-active      -> turn-active | round-end
	skip-word           turn-active      -> turn-active
	next-turn           turn-end         -> turn-ready
	next-round          round-end        -> round-start | game-over
	play-again          game-over        -> in-lobby
*/

// Apply validates cmd against r and, only if it is legal, mutates r.
// A returned error guarantees r is unchanged.
func Apply(r *Room, cmd Command) (Outcome, error) {
	if r.Phase == PhasePaused && cmd.Type != CmdAdjustScore {
		return Outcome{}, ErrGamePaused
	}

	switch cmd.Type {
	case CmdStartGame:
		if err := r.requireHost(cmd.ConnID, PhaseLobby); err != nil {
			return Outcome{}, err
		}
		r.Phase = PhasePreGameConfigs
		return Outcome{Event: EvtGameStarted}, nil

	case CmdSubmitConfig:
		if err := r.requireHost(cmd.ConnID, PhasePreGameConfigs); err != nil {
			return Outcome{}, err
		}
		if err := r.validateConfig(cmd.Config); err != nil {
			return Outcome{}, err
		}
		r.applyConfig(cmd.Config)
		return Outcome{Event: EvtGameStarted}, nil

	case CmdSubmitWords:
		return r.submitWords(cmd)

	case CmdStartRound:
		if err := r.requireHost(cmd.ConnID, PhaseRoundStart); err != nil {
			return Outcome{}, err
		}
		r.Phase = PhaseTurnReady
		return stateUpdate(), nil

	case CmdStartTurn:
		if err := r.requireClueGiver(cmd.ConnID, PhaseTurnReady); err != nil {
			return Outcome{}, err
		}
		return r.startTurn(), nil

	case CmdWordGuessed:
		if err := r.requireClueGiver(cmd.ConnID, PhaseTurnActive); err != nil {
			return Outcome{}, err
		}
		if r.Game.CurrentWord == "" {
			return Outcome{}, ErrNoActiveWord
		}
		return r.wordGuessed(), nil

	case CmdSkipWord:
		if err := r.requireClueGiver(cmd.ConnID, PhaseTurnActive); err != nil {
			return Outcome{}, err
		}
		if r.Game.CurrentWord == "" {
			return Outcome{}, ErrNoActiveWord
		}
		if len(r.Game.WordsRemaining) == 0 {
			return Outcome{}, ErrOnlyOneWordRemaining
		}
		r.skipWord()
		return stateUpdate(), nil

	case CmdAdjustScore:
		if !r.isHost(cmd.ConnID) {
			return Outcome{}, ErrNotHost
		}
		if r.Game == nil {
			return Outcome{}, fmt.Errorf("%w: %s", ErrWrongPhase, r.Phase)
		}
		if _, ok := r.TeamIndex[cmd.Team]; !ok {
			return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownTeam, cmd.Team)
		}
		r.adjustScore(cmd.Team, cmd.Delta)
		return stateUpdate(), nil

	case CmdNextTurn:
		if err := r.requireHost(cmd.ConnID, PhaseTurnEnd); err != nil {
			return Outcome{}, err
		}
		r.nextTurn()
		return stateUpdate(), nil

	case CmdNextRound:
		if err := r.requireHost(cmd.ConnID, PhaseRoundEnd); err != nil {
			return Outcome{}, err
		}
		return r.nextRound(), nil

	case CmdPlayAgain:
		if err := r.requireHost(cmd.ConnID, PhaseGameOver); err != nil {
			return Outcome{}, err
		}
		r.resetToLobby()
		return Outcome{Event: EvtStateUpdate, Timer: TimerStop}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Type)
	}
}

// Tick advances the turn countdown by one second. ok is false when the room
// is not in an active turn and the tick must be ignored.
func Tick(r *Room) (out Outcome, ok bool) {
	if r.Phase != PhaseTurnActive || r.Game == nil {
		return Outcome{}, false
	}
	g := r.Game
	g.TurnTimeLeft--
	if g.TurnTimeLeft > 0 {
		return Outcome{Event: EvtTimerUpdate}, true
	}
	g.TurnTimeLeft = 0
	r.expireTurn()
	return Outcome{Event: EvtStateUpdate, Timer: TimerStop}, true
}

func (r *Room) requireHost(connID string, phase Phase) error {
	if !r.isHost(connID) {
		return ErrNotHost
	}
	if r.Phase != phase {
		return fmt.Errorf("%w: %s", ErrWrongPhase, r.Phase)
	}
	return nil
}

func (r *Room) requireClueGiver(connID string, phase Phase) error {
	if r.Phase != phase || r.Game == nil {
		return fmt.Errorf("%w: %s", ErrWrongPhase, r.Phase)
	}
	p, ok := r.playerByConn(connID)
	if !ok || p.Name != r.Game.CurrentClueGiver {
		return ErrNotClueGiver
	}
	return nil
}

func (r *Room) isHost(connID string) bool {
	return connID != "" && r.HostID == connID
}
