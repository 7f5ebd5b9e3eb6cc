package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Option func(*Room)

// WithRand makes word shuffling deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) { r.rng = rng }
}

// WithTurnSeconds sets the turn length used when a config does not name one.
func WithTurnSeconds(s int) Option {
	return func(r *Room) { r.turnSeconds = s }
}

// NewRoom creates a lobby with hostName as its only, connected, host player.
func NewRoom(code, hostName, connID string, opts ...Option) *Room {
	r := &Room{
		Code:    code,
		Players: []Player{{Name: hostName, ID: connID, IsHost: true, Connected: true}},
		HostID:  connID,
		Phase:   PhaseLobby,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join adds a new player in the lobby, or reattaches a disconnected player
// with the same name in any phase. Reattaching the last missing player of a
// paused room resumes it. A connection can hold only one player per room.
func Join(r *Room, name, connID string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if r.HasConnection(connID) {
		return Outcome{}, ErrAlreadyInRoom
	}
	if i, ok := r.indexByName(name); ok {
		p := &r.Players[i]
		if p.Connected {
			return Outcome{}, fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
		p.ID = connID
		p.Connected = true
		if p.IsHost {
			r.HostID = connID
		}
		return r.maybeResume(), nil
	}

	if r.Phase != PhaseLobby {
		return Outcome{}, ErrGameInProgress
	}
	r.Players = append(r.Players, Player{Name: name, ID: connID, Connected: true})
	return Outcome{Event: EvtPlayersUpdated}, nil
}

func (r *Room) maybeResume() Outcome {
	out := Outcome{Event: EvtPlayersUpdated}
	if r.Phase != PhasePaused || !r.allConnected() {
		return out
	}
	r.Phase = r.PausedPhase
	r.PausedPhase = ""
	if r.Phase == PhaseTurnActive {
		out.Timer = TimerStart
	}
	return out
}

// Disconnect handles the loss of connID. Before gameplay the player is
// removed and the host re-elected; during gameplay the room pauses and keeps
// the player's record for a rejoin.
func Disconnect(r *Room, connID string) (Outcome, error) {
	i, ok := r.indexByConn(connID)
	if !ok {
		return Outcome{}, ErrUnknownConnection
	}

	if !r.Phase.Gameplay() {
		wasHost := r.Players[i].IsHost
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		if wasHost {
			r.HostID = ""
			if len(r.Players) > 0 {
				r.Players[0].IsHost = true
				r.HostID = r.Players[0].ID
			}
		}
		return Outcome{Event: EvtPlayersUpdated}, nil
	}

	r.Players[i].Connected = false
	out := Outcome{Event: EvtPlayersUpdated}
	if r.Phase != PhasePaused {
		r.PausedPhase = r.Phase
		r.Phase = PhasePaused
		out.Timer = TimerStop
	}
	return out, nil
}

// Empty reports whether the room should be destroyed.
func (r *Room) Empty() bool {
	return len(r.Players) == 0 && r.Phase != PhasePaused
}

func (r *Room) allConnected() bool {
	for _, p := range r.Players {
		if !p.Connected {
			return false
		}
	}
	return true
}

func (r *Room) indexByName(name string) (int, bool) {
	for i, p := range r.Players {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (r *Room) indexByConn(connID string) (int, bool) {
	for i, p := range r.Players {
		if p.ID == connID && p.Connected {
			return i, true
		}
	}
	return -1, false
}

func (r *Room) playerByName(name string) (Player, bool) {
	i, ok := r.indexByName(name)
	if !ok {
		return Player{}, false
	}
	return r.Players[i], true
}

func (r *Room) playerByConn(connID string) (Player, bool) {
	i, ok := r.indexByConn(connID)
	if !ok {
		return Player{}, false
	}
	return r.Players[i], true
}

// HasConnection reports whether connID is a connected player of the room.
func (r *Room) HasConnection(connID string) bool {
	_, ok := r.indexByConn(connID)
	return ok
}
