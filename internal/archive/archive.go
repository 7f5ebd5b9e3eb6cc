// Package archive keeps a record of finished games. Rooms hand a summary to a
// Recorder when they reach game-over; recording happens off the room goroutine.
package archive

import (
	"context"
	"time"

	"github.com/connor-ruff/fishybowl/internal/engine"
)

type TeamResult struct {
	Name          string
	Members       []string
	RoundScores   []int
	WordsCorrect  []int
	SkipPenalties []int
	Adjustment    int
	Total         int
}

type GameSummary struct {
	RoomCode   string
	Teams      []TeamResult
	Turns      []engine.TurnSummary
	FinishedAt time.Time
}

// Recorder accepts summaries without blocking the caller.
type Recorder interface {
	Record(GameSummary)
	Close(ctx context.Context) error
}

// Nop discards every summary. Used when no database is configured.
type Nop struct{}

func (Nop) Record(GameSummary)          {}
func (Nop) Close(context.Context) error { return nil }

// Summarize copies the final standings out of a room. The room must have an
// active game.
func Summarize(r *engine.Room, at time.Time) GameSummary {
	g := r.Game
	s := GameSummary{
		RoomCode:   r.Code,
		Turns:      append([]engine.TurnSummary(nil), g.TurnHistory...),
		FinishedAt: at,
	}
	for _, name := range g.TeamOrder {
		s.Teams = append(s.Teams, TeamResult{
			Name:          name,
			Members:       append([]string(nil), r.TeamIndex[name].Members...),
			RoundScores:   append([]int(nil), g.Scores[name]...),
			WordsCorrect:  append([]int(nil), g.WordsCorrect[name]...),
			SkipPenalties: append([]int(nil), g.SkipPenalties[name]...),
			Adjustment:    g.HostAdjustments[name],
			Total:         g.TotalScore(name),
		})
	}
	return s
}

// Winners returns the names of the teams sharing the highest total.
func (s GameSummary) Winners() []string {
	var out []string
	best := 0
	for i, t := range s.Teams {
		switch {
		case i == 0 || t.Total > best:
			best = t.Total
			out = []string{t.Name}
		case t.Total == best:
			out = append(out, t.Name)
		}
	}
	return out
}
