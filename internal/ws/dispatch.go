package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/connor-ruff/fishybowl/internal/engine"
	"github.com/connor-ruff/fishybowl/internal/hub"
	"github.com/connor-ruff/fishybowl/internal/lobby"
	"github.com/connor-ruff/fishybowl/internal/types"
	proto "github.com/connor-ruff/fishybowl/pkg/types"
)

var (
	ErrBadFrame     = errors.New("malformed message")
	ErrBadArgs      = errors.New("bad arguments")
	ErrUnknownEvent = errors.New("unknown event")
	ErrRateLimited  = errors.New("too many requests")
)

const (
	EvtCreateRoom = proto.EventCreateRoom
	EvtJoinRoom   = proto.EventJoinRoom
)

// roomOnly lists the actions whose only argument is the room code.
var roomOnly = map[string]engine.CommandType{
	proto.EventStartGame:   engine.CmdStartGame,
	proto.EventStartRound:  engine.CmdStartRound,
	proto.EventStartTurn:   engine.CmdStartTurn,
	proto.EventWordGuessed: engine.CmdWordGuessed,
	proto.EventSkipWord:    engine.CmdSkipWord,
	proto.EventNextTurn:    engine.CmdNextTurn,
	proto.EventNextRound:   engine.CmdNextRound,
	proto.EventPlayAgain:   engine.CmdPlayAgain,
}

// Rooms is the part of the hub a connection needs.
type Rooms interface {
	CreateRoom(ctx context.Context, hostName, connID string, outbox chan lobby.Envelope) (hub.Created, error)
	Get(ctx context.Context, code string) (*lobby.Lobby, error)
}

// handle decodes one frame and answers it.
func (s *session) handle(ctx context.Context, data []byte) types.AckFrame {
	var f types.ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return types.Fail(nil, ErrBadFrame)
	}
	if err := types.Validate(f); err != nil {
		return types.Fail(f.Ack, err)
	}
	if !s.limiter.Allow() {
		return types.Fail(f.Ack, ErrRateLimited)
	}

	room, err := s.dispatch(ctx, f)
	if err != nil {
		if errors.Is(err, lobby.ErrClosed) {
			err = hub.ErrRoomNotFound
		}
		return types.Fail(f.Ack, err)
	}
	return types.OK(f.Ack, room)
}

func (s *session) dispatch(ctx context.Context, f types.ClientFrame) (*engine.Room, error) {
	switch f.Event {
	case EvtCreateRoom:
		var req types.CreateRoomRequest
		if err := decodeArgs(f.Args, &req.PlayerName); err != nil {
			return nil, err
		}
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if err := types.Validate(req); err != nil {
			return nil, err
		}
		return s.createRoom(ctx, req.PlayerName)

	case EvtJoinRoom:
		var req types.JoinRoomRequest
		if err := decodeArgs(f.Args, &req); err != nil {
			return nil, err
		}
		req.RoomCode = hub.NormalizeCode(req.RoomCode)
		req.PlayerName = strings.TrimSpace(req.PlayerName)
		if err := types.Validate(req); err != nil {
			return nil, err
		}
		return s.joinRoom(ctx, req.RoomCode, req.PlayerName)

	case proto.EventSubmitGameConfig:
		var req types.GameConfigRequest
		if err := decodeArgs(f.Args, &req.RoomCode, &req); err != nil {
			return nil, err
		}
		if err := types.Validate(req); err != nil {
			return nil, err
		}
		return s.act(ctx, req.RoomCode, engine.Command{Type: engine.CmdSubmitConfig, Config: req.ToEngine()})

	case proto.EventSubmitWords:
		var req types.SubmitWordsRequest
		if err := decodeArgs(f.Args, &req.RoomCode, &req.PlayerName, &req.Words); err != nil {
			return nil, err
		}
		if err := types.Validate(req); err != nil {
			return nil, err
		}
		return s.act(ctx, req.RoomCode, engine.Command{Type: engine.CmdSubmitWords, PlayerName: req.PlayerName, Words: req.Words})

	case proto.EventAdjustScore:
		var req types.AdjustScoreRequest
		if err := decodeArgs(f.Args, &req.RoomCode, &req.Team, &req.Delta); err != nil {
			return nil, err
		}
		if err := types.Validate(req); err != nil {
			return nil, err
		}
		return s.act(ctx, req.RoomCode, engine.Command{Type: engine.CmdAdjustScore, Team: req.Team, Delta: req.Delta})
	}

	typ, ok := roomOnly[f.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	var req types.RoomRequest
	if err := decodeArgs(f.Args, &req.RoomCode); err != nil {
		return nil, err
	}
	if err := types.Validate(req); err != nil {
		return nil, err
	}
	return s.act(ctx, req.RoomCode, engine.Command{Type: typ})
}

func (s *session) act(ctx context.Context, code string, cmd engine.Command) (*engine.Room, error) {
	lb, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	cmd.ConnID = s.id
	res := lb.Do(ctx, cmd)
	return res.Room, res.Err
}

// decodeArgs unmarshals the leading positional args into dst in order.
func decodeArgs(args []json.RawMessage, dst ...any) error {
	if len(args) < len(dst) {
		return fmt.Errorf("%w: want %d, got %d", ErrBadArgs, len(dst), len(args))
	}
	for i, d := range dst {
		if err := json.Unmarshal(args[i], d); err != nil {
			return fmt.Errorf("%w: argument %d: %v", ErrBadArgs, i, err)
		}
	}
	return nil
}
