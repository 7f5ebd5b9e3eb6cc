// Package types holds the websocket wire format.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/connor-ruff/fishybowl/internal/engine"
	"github.com/connor-ruff/fishybowl/internal/hub"
	proto "github.com/connor-ruff/fishybowl/pkg/types"
)

// ClientFrame is one request. Args are positional, their meaning depends on
// Event.
type ClientFrame struct {
	Event string            `json:"event" validate:"required"`
	Ack   *int              `json:"ack,omitempty"`
	Args  []json.RawMessage `json:"args"`
}

type CreateRoomRequest struct {
	PlayerName string `json:"playerName" validate:"required,max=32"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode" validate:"required,len=4,alphanum"`
	PlayerName string `json:"playerName" validate:"required,max=32"`
}

// RoomRequest is the argument list of every action that only names the room.
type RoomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,len=4,alphanum"`
}

type TeamRequest struct {
	Name    string   `json:"name" validate:"required,max=32"`
	Players []string `json:"players" validate:"required,min=1,dive,required"`
}

type GameConfigRequest struct {
	RoomCode       string        `json:"roomCode" validate:"required,len=4,alphanum"`
	Teams          []TeamRequest `json:"teams" validate:"required,min=1,dive"`
	WordsPerPlayer int           `json:"wordsPerPlayer" validate:"min=1,max=20"`
	TurnSeconds    int           `json:"turnSeconds" validate:"omitempty,min=5,max=600"`
}

type SubmitWordsRequest struct {
	RoomCode   string   `json:"roomCode" validate:"required,len=4,alphanum"`
	PlayerName string   `json:"playerName" validate:"required,max=32"`
	Words      []string `json:"words" validate:"required,min=1,max=20,dive,required,max=64"`
}

type AdjustScoreRequest struct {
	RoomCode string `json:"roomCode" validate:"required,len=4,alphanum"`
	Team     string `json:"teamName" validate:"required"`
	Delta    int    `json:"delta" validate:"min=-100,max=100"`
}

// ToEngine converts the request into the engine's config type.
func (r GameConfigRequest) ToEngine() *engine.GameConfig {
	cfg := &engine.GameConfig{WordsPerPlayer: r.WordsPerPlayer, TurnSeconds: r.TurnSeconds}
	for _, t := range r.Teams {
		cfg.Teams = append(cfg.Teams, engine.TeamConfig{Name: t.Name, Players: t.Players})
	}
	return cfg
}

const TypeAck = proto.PushAck

// AckFrame answers the request carrying the same ack number.
type AckFrame struct {
	Type      string       `json:"type"`
	Ack       *int         `json:"ack,omitempty"`
	Success   bool         `json:"success"`
	RoomCode  string       `json:"roomCode,omitempty"`
	GameState *engine.Room `json:"gameState,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// PushFrame is a room broadcast.
type PushFrame struct {
	Type      string       `json:"type"`
	GameState *engine.Room `json:"gameState,omitempty"`
	TimeLeft  *int         `json:"timeLeft,omitempty"`
}

func OK(ack *int, room *engine.Room) AckFrame {
	return AckFrame{Type: TypeAck, Ack: ack, Success: true, RoomCode: room.Code, GameState: room}
}

func Fail(ack *int, err error) AckFrame {
	return AckFrame{Type: TypeAck, Ack: ack, Error: Message(err)}
}

// clientMessages holds the exact text the browser client matches on.
var clientMessages = []struct {
	err error
	msg string
}{
	{hub.ErrRoomNotFound, "Room not found"},
	{engine.ErrNoActiveWord, "No active word"},
	{engine.ErrOnlyOneWordRemaining, "Only one word remaining"},
}

// Message is the error text sent to clients.
func Message(err error) string {
	for _, m := range clientMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrInvalidRequest wraps every schema violation.
var ErrInvalidRequest = errors.New("invalid request")

// Validate checks v against its struct tags and reports the first violation
// by its JSON field name.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			return fmt.Errorf("%w: %s failed %s=%s", ErrInvalidRequest, field, fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %s failed %s", ErrInvalidRequest, field, fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}
