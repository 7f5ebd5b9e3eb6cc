package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connor-ruff/fishybowl/internal/engine"
	"github.com/connor-ruff/fishybowl/internal/hub"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{"join ok", JoinRoomRequest{RoomCode: "AB12", PlayerName: "Alice"}, ""},
		{"join missing name", JoinRoomRequest{RoomCode: "AB12"}, "playerName failed required"},
		{"join short code", JoinRoomRequest{RoomCode: "AB1", PlayerName: "Alice"}, "roomCode failed len=4"},
		{"config ok", GameConfigRequest{
			RoomCode:       "AB12",
			Teams:          []TeamRequest{{Name: "Red", Players: []string{"Alice"}}},
			WordsPerPlayer: 3,
		}, ""},
		{"config no teams", GameConfigRequest{RoomCode: "AB12", WordsPerPlayer: 3}, "teams failed required"},
		{"config blank player", GameConfigRequest{
			RoomCode:       "AB12",
			Teams:          []TeamRequest{{Name: "Red", Players: []string{""}}},
			WordsPerPlayer: 3,
		}, "teams[0].players[0] failed required"},
		{"config short turn", GameConfigRequest{
			RoomCode:       "AB12",
			Teams:          []TeamRequest{{Name: "Red", Players: []string{"Alice"}}},
			WordsPerPlayer: 3,
			TurnSeconds:    2,
		}, "turnSeconds failed min=5"},
		{"words blank", SubmitWordsRequest{RoomCode: "AB12", PlayerName: "Alice", Words: []string{"a", ""}}, "words[1] failed required"},
		{"adjust too large", AdjustScoreRequest{RoomCode: "AB12", Team: "Red", Delta: 1000}, "delta failed max=100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGameConfigRequest_ToEngine(t *testing.T) {
	req := GameConfigRequest{
		Teams:          []TeamRequest{{Name: "Red", Players: []string{"Alice"}}, {Name: "Blue", Players: []string{"Bob"}}},
		WordsPerPlayer: 2,
		TurnSeconds:    45,
	}
	cfg := req.ToEngine()
	assert.Equal(t, 2, cfg.WordsPerPlayer)
	assert.Equal(t, 45, cfg.TurnSeconds)
	assert.Equal(t, []engine.TeamConfig{{Name: "Red", Players: []string{"Alice"}}, {Name: "Blue", Players: []string{"Bob"}}}, cfg.Teams)
}

func TestAckFrameJSON(t *testing.T) {
	ack := 7
	room := engine.NewRoom("ABCD", "Alice", "c1")

	b, err := json.Marshal(OK(&ack, room))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "ack", got["type"])
	assert.Equal(t, float64(7), got["ack"])
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "ABCD", got["roomCode"])
	assert.Equal(t, "in-lobby", got["gameState"].(map[string]any)["gamePhase"])

	b, err = json.Marshal(Fail(nil, engine.ErrNoActiveWord))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ack","success":false,"error":"No active word"}`, string(b))
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{hub.ErrRoomNotFound, "Room not found"},
		{fmt.Errorf("lookup: %w", hub.ErrRoomNotFound), "Room not found"},
		{engine.ErrNoActiveWord, "No active word"},
		{engine.ErrOnlyOneWordRemaining, "Only one word remaining"},
		{engine.ErrNotHost, "only the host can do that"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
	assert.Equal(t, "room not found", hub.ErrRoomNotFound.Error())
}
