package engine

import "maps"

// Clone returns a deep copy that shares nothing mutable with r, so it can be
// handed to other goroutines while r keeps changing.
func (r *Room) Clone() *Room {
	c := &Room{
		Code:        r.Code,
		Players:     append([]Player(nil), r.Players...),
		HostID:      r.HostID,
		Phase:       r.Phase,
		PausedPhase: r.PausedPhase,
		WordPool:    cloneStrings(r.WordPool),
	}
	if r.Config != nil {
		cfg := *r.Config
		cfg.Teams = make([]TeamConfig, len(r.Config.Teams))
		for i, t := range r.Config.Teams {
			cfg.Teams[i] = TeamConfig{Name: t.Name, Players: cloneStrings(t.Players)}
		}
		c.Config = &cfg
	}
	if r.PlayerIndex != nil {
		c.PlayerIndex = make(map[string]PlayerEntry, len(r.PlayerIndex))
		for k, v := range r.PlayerIndex {
			v.SubmittedWords = cloneStrings(v.SubmittedWords)
			c.PlayerIndex[k] = v
		}
	}
	if r.TeamIndex != nil {
		c.TeamIndex = make(map[string]TeamEntry, len(r.TeamIndex))
		for k, v := range r.TeamIndex {
			v.Members = cloneStrings(v.Members)
			c.TeamIndex[k] = v
		}
	}
	if r.Game != nil {
		c.Game = r.Game.clone()
	}
	return c
}

func (g *ActiveGame) clone() *ActiveGame {
	c := *g
	c.Rounds = append([]Round(nil), g.Rounds...)
	c.TeamOrder = cloneStrings(g.TeamOrder)
	c.ClueGiverRotation = maps.Clone(g.ClueGiverRotation)
	c.WordsRemaining = cloneStrings(g.WordsRemaining)
	c.WordsGuessedThisTurn = cloneStrings(g.WordsGuessedThisTurn)
	c.Scores = cloneIntSlices(g.Scores)
	c.WordsCorrect = cloneIntSlices(g.WordsCorrect)
	c.SkipPenalties = cloneIntSlices(g.SkipPenalties)
	c.HostAdjustments = maps.Clone(g.HostAdjustments)
	c.TurnHistory = append([]TurnSummary(nil), g.TurnHistory...)
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneIntSlices(m map[string][]int) map[string][]int {
	out := make(map[string][]int, len(m))
	for k, v := range m {
		out[k] = append([]int(nil), v...)
	}
	return out
}
