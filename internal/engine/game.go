package engine

import (
	"fmt"
	"strings"
)

const NumRounds = 3

type Round struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Rounds = [NumRounds]Round{
	{Number: 1, Name: "Describe It", Description: "Use any words you like to get your team to say the word, except the word itself."},
	{Number: 2, Name: "One Word", Description: "You may say exactly one word per clue. Choose it well."},
	{Number: 3, Name: "Act It Out", Description: "No words at all. Act, gesture and mime until your team gets it."},
}

type TurnSummary struct {
	Round        int    `json:"round"`
	Team         string `json:"team"`
	ClueGiver    string `json:"clueGiver"`
	WordsGuessed int    `json:"wordsGuessed"`
	Skips        int    `json:"skips"`
}

type ActiveGame struct {
	Rounds               []Round          `json:"rounds"`
	CurrentRound         int              `json:"currentRound"`
	TeamOrder            []string         `json:"teamOrder"`
	CurrentTeamIndex     int              `json:"currentTeamIndex"`
	ClueGiverRotation    map[string]int   `json:"clueGiverRotation"`
	CurrentClueGiver     string           `json:"currentClueGiver"`
	CurrentWord          string           `json:"currentWord,omitempty"`
	WordsRemaining       []string         `json:"wordsRemaining"`
	WordsGuessedThisTurn []string         `json:"wordsGuessedThisTurn"`
	SkipsThisTurn        int              `json:"skipsThisTurn"`
	TurnDuration         int              `json:"turnDuration"`
	TurnTimeLeft         int              `json:"turnTimeLeft"`
	CarriedTimeLeft      int              `json:"carriedTimeLeft,omitempty"`
	Scores               map[string][]int `json:"scores"`
	WordsCorrect         map[string][]int `json:"wordsCorrect"`
	SkipPenalties        map[string][]int `json:"skipPenalties"`
	HostAdjustments      map[string]int   `json:"hostAdjustments"`
	TurnHistory          []TurnSummary    `json:"turnHistory"`
}

func (g *ActiveGame) currentTeam() string {
	return g.TeamOrder[g.CurrentTeamIndex]
}

// TotalScore is the sum of a team's round scores plus its host adjustments.
func (g *ActiveGame) TotalScore(team string) int {
	total := g.HostAdjustments[team]
	for _, s := range g.Scores[team] {
		total += s
	}
	return total
}

func (r *Room) validateConfig(cfg *GameConfig) error {
	if cfg == nil || len(cfg.Teams) == 0 {
		return fmt.Errorf("%w: at least one team is required", ErrInvalidConfig)
	}
	if cfg.WordsPerPlayer < 1 {
		return fmt.Errorf("%w: words per player must be at least 1", ErrInvalidConfig)
	}
	if cfg.TurnSeconds < 0 {
		return fmt.Errorf("%w: turn length cannot be negative", ErrInvalidConfig)
	}

	teams := make(map[string]bool, len(cfg.Teams))
	assigned := make(map[string]bool)
	for _, t := range cfg.Teams {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("%w: team name is empty", ErrInvalidConfig)
		}
		if teams[name] {
			return fmt.Errorf("%w: duplicate team %q", ErrInvalidConfig, name)
		}
		teams[name] = true
		if len(t.Players) == 0 {
			return fmt.Errorf("%w: team %q has no players", ErrInvalidConfig, name)
		}
		for _, p := range t.Players {
			if _, ok := r.playerByName(p); !ok {
				return fmt.Errorf("%w: %q is not in the room", ErrInvalidConfig, p)
			}
			if assigned[p] {
				return fmt.Errorf("%w: %q is on more than one team", ErrInvalidConfig, p)
			}
			assigned[p] = true
		}
	}
	for _, p := range r.Players {
		if !assigned[p.Name] {
			return fmt.Errorf("%w: %q is not on a team", ErrInvalidConfig, p.Name)
		}
	}
	return nil
}

func (r *Room) applyConfig(in *GameConfig) {
	cfg := &GameConfig{
		Teams:          make([]TeamConfig, 0, len(in.Teams)),
		WordsPerPlayer: in.WordsPerPlayer,
		TurnSeconds:    in.TurnSeconds,
	}
	if cfg.TurnSeconds == 0 {
		cfg.TurnSeconds = r.defaultTurnSeconds()
	}

	r.PlayerIndex = make(map[string]PlayerEntry)
	r.TeamIndex = make(map[string]TeamEntry)
	for _, t := range in.Teams {
		name := strings.TrimSpace(t.Name)
		members := append([]string(nil), t.Players...)
		cfg.Teams = append(cfg.Teams, TeamConfig{Name: name, Players: members})
		for _, p := range members {
			r.PlayerIndex[p] = PlayerEntry{Team: name}
		}
		r.TeamIndex[name] = TeamEntry{Members: append([]string(nil), members...)}
		cfg.NumPlayers += len(members)
	}

	r.Config = cfg
	r.WordPool = []string{}
	r.Phase = PhaseCollectingWords
}

func (r *Room) submitWords(cmd Command) (Outcome, error) {
	if r.Phase != PhaseCollectingWords {
		return Outcome{}, fmt.Errorf("%w: %s", ErrWrongPhase, r.Phase)
	}
	caller, ok := r.playerByConn(cmd.ConnID)
	if !ok {
		return Outcome{}, ErrUnknownConnection
	}
	name := cmd.PlayerName
	if name == "" {
		name = caller.Name
	}
	if name != caller.Name {
		return Outcome{}, ErrNotYourPlayer
	}
	entry, ok := r.PlayerIndex[name]
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if entry.WordsSubmitted {
		return Outcome{}, ErrAlreadySubmitted
	}
	words, err := cleanWords(cmd.Words, r.Config.WordsPerPlayer)
	if err != nil {
		return Outcome{}, err
	}

	r.WordPool = append(r.WordPool, words...)
	entry.WordsSubmitted = true
	entry.SubmittedWords = words
	r.PlayerIndex[name] = entry
	r.Config.NumPlayersWithSubmittedWords++

	if r.Config.NumPlayersWithSubmittedWords < r.Config.NumPlayers {
		return stateUpdate(), nil
	}
	r.startGame()
	return Outcome{Event: EvtAllWordsSubmitted}, nil
}

func cleanWords(in []string, want int) ([]string, error) {
	if len(in) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongWordCount, len(in), want)
	}
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		if w == "" {
			return nil, fmt.Errorf("%w: blank word", ErrWrongWordCount)
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *Room) startGame() {
	g := &ActiveGame{
		Rounds:               Rounds[:],
		CurrentRound:         1,
		TeamOrder:            make([]string, 0, len(r.Config.Teams)),
		ClueGiverRotation:    make(map[string]int),
		WordsRemaining:       r.shuffled(r.WordPool),
		WordsGuessedThisTurn: []string{},
		TurnDuration:         r.Config.TurnSeconds,
		Scores:               make(map[string][]int),
		WordsCorrect:         make(map[string][]int),
		SkipPenalties:        make(map[string][]int),
		HostAdjustments:      make(map[string]int),
		TurnHistory:          []TurnSummary{},
	}
	for _, t := range r.Config.Teams {
		g.TeamOrder = append(g.TeamOrder, t.Name)
		g.ClueGiverRotation[t.Name] = 0
		g.Scores[t.Name] = make([]int, NumRounds)
		g.WordsCorrect[t.Name] = make([]int, NumRounds)
		g.SkipPenalties[t.Name] = make([]int, NumRounds)
		g.HostAdjustments[t.Name] = 0

		te := r.TeamIndex[t.Name]
		te.Score = 0
		r.TeamIndex[t.Name] = te
	}
	r.Game = g
	g.CurrentClueGiver = r.clueGiverFor(g.currentTeam())
	r.Phase = PhaseRoundStart
}

func (r *Room) clueGiverFor(team string) string {
	members := r.TeamIndex[team].Members
	if len(members) == 0 {
		return ""
	}
	return members[r.Game.ClueGiverRotation[team]%len(members)]
}

func (r *Room) rotateClueGiver(team string) {
	r.Game.ClueGiverRotation[team]++
}

func (r *Room) startTurn() Outcome {
	g := r.Game
	if len(g.WordsRemaining) == 0 {
		r.Phase = PhaseRoundEnd
		return stateUpdate()
	}
	g.CurrentWord = g.popWord()
	g.WordsGuessedThisTurn = []string{}
	g.SkipsThisTurn = 0
	g.TurnTimeLeft = g.TurnDuration
	if g.CarriedTimeLeft > 0 {
		g.TurnTimeLeft = g.CarriedTimeLeft
	}
	g.CarriedTimeLeft = 0
	r.Phase = PhaseTurnActive
	return Outcome{Event: EvtStateUpdate, Timer: TimerStart}
}

func (r *Room) score(team string, delta int) {
	g := r.Game
	g.Scores[team][g.CurrentRound-1] += delta
	te := r.TeamIndex[team]
	te.Score += delta
	r.TeamIndex[team] = te
}

func (r *Room) wordGuessed() Outcome {
	g := r.Game
	team := g.currentTeam()
	r.score(team, 1)
	g.WordsCorrect[team][g.CurrentRound-1]++
	g.WordsGuessedThisTurn = append(g.WordsGuessedThisTurn, g.CurrentWord)

	// The bowl passes to the next teammate after every correct guess.
	r.rotateClueGiver(team)
	g.CurrentClueGiver = r.clueGiverFor(team)

	if len(g.WordsRemaining) > 0 {
		g.CurrentWord = g.popWord()
		return stateUpdate()
	}

	g.recordTurn()
	g.CurrentWord = ""
	g.CarriedTimeLeft = 0
	if g.CurrentRound < NumRounds && g.TurnTimeLeft > 0 {
		g.CarriedTimeLeft = g.TurnTimeLeft
	}
	r.Phase = PhaseRoundEnd
	return Outcome{Event: EvtStateUpdate, Timer: TimerStop}
}

func (r *Room) skipWord() {
	g := r.Game
	team := g.currentTeam()
	r.score(team, -1)
	g.SkipPenalties[team][g.CurrentRound-1]++
	g.SkipsThisTurn++

	skipped := g.CurrentWord
	g.CurrentWord = g.popWord()
	g.WordsRemaining = insertAt(g.WordsRemaining, r.intN(len(g.WordsRemaining)+1), skipped)
}

func (r *Room) expireTurn() {
	g := r.Game
	g.recordTurn()
	if g.CurrentWord != "" {
		g.WordsRemaining = insertAt(g.WordsRemaining, 0, g.CurrentWord)
		g.CurrentWord = ""
	}
	r.Phase = PhaseTurnEnd
}

func (g *ActiveGame) recordTurn() {
	g.TurnHistory = append(g.TurnHistory, TurnSummary{
		Round:        g.CurrentRound,
		Team:         g.currentTeam(),
		ClueGiver:    g.CurrentClueGiver,
		WordsGuessed: len(g.WordsGuessedThisTurn),
		Skips:        g.SkipsThisTurn,
	})
}

func (r *Room) adjustScore(team string, delta int) {
	r.Game.HostAdjustments[team] += delta
	te := r.TeamIndex[team]
	te.Score += delta
	r.TeamIndex[team] = te
}

func (r *Room) nextTurn() {
	g := r.Game
	r.rotateClueGiver(g.currentTeam())
	g.CurrentTeamIndex = (g.CurrentTeamIndex + 1) % len(g.TeamOrder)
	g.CurrentClueGiver = r.clueGiverFor(g.currentTeam())
	g.CurrentWord = ""
	g.WordsGuessedThisTurn = []string{}
	g.SkipsThisTurn = 0
	r.Phase = PhaseTurnReady
}

func (r *Room) nextRound() Outcome {
	g := r.Game
	if g.CurrentRound >= NumRounds {
		r.Phase = PhaseGameOver
		return Outcome{Event: EvtStateUpdate, GameOver: true}
	}

	r.rotateClueGiver(g.currentTeam())
	g.CurrentRound++
	g.WordsRemaining = r.shuffled(r.WordPool)
	if g.CarriedTimeLeft == 0 {
		g.CurrentTeamIndex = (g.CurrentTeamIndex + 1) % len(g.TeamOrder)
	}
	g.CurrentClueGiver = r.clueGiverFor(g.currentTeam())
	g.CurrentWord = ""
	g.WordsGuessedThisTurn = []string{}
	g.SkipsThisTurn = 0
	r.Phase = PhaseRoundStart
	return stateUpdate()
}

func (r *Room) resetToLobby() {
	r.Game = nil
	r.Config = nil
	r.PlayerIndex = nil
	r.TeamIndex = nil
	r.WordPool = nil
	r.PausedPhase = ""
	r.Phase = PhaseLobby
}
