package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/connor-ruff/fishybowl/internal/engine"
	"github.com/connor-ruff/fishybowl/internal/lobby"
	"github.com/connor-ruff/fishybowl/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

// Conn is the part of *websocket.Conn a session writes to.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// membership is the session's subscription to one room.
type membership struct {
	lobby  *lobby.Lobby
	outbox chan lobby.Envelope
	// leaving is closed when the session itself ends the membership.
	leaving chan struct{}
}

// session is one websocket connection. Only the reader goroutine touches
// member; the forwarder goroutine only reads its own membership.
type session struct {
	id      string
	conn    Conn
	rooms   Rooms
	limiter *rate.Limiter
	log     *zap.Logger
	ctx     context.Context
	member  *membership
}

func newSession(ctx context.Context, id string, conn Conn, rooms Rooms, limiter *rate.Limiter, log *zap.Logger) *session {
	return &session{
		id:      id,
		conn:    conn,
		rooms:   rooms,
		limiter: limiter,
		log:     log.With(zap.String("conn", id)),
		ctx:     ctx,
	}
}

func (s *session) createRoom(ctx context.Context, name string) (*engine.Room, error) {
	outbox := make(chan lobby.Envelope, outboxSize)
	created, err := s.rooms.CreateRoom(ctx, name, s.id, outbox)
	if err != nil {
		return nil, err
	}
	s.leave()
	s.subscribe(created.Lobby, outbox)
	return created.Room, nil
}

// joinRoom leaves the current room only once the new room has accepted the
// player, so a rejected join changes nothing.
func (s *session) joinRoom(ctx context.Context, code, name string) (*engine.Room, error) {
	lb, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	outbox := make(chan lobby.Envelope, outboxSize)
	res := lb.Join(ctx, name, s.id, outbox)
	if res.Err != nil {
		return nil, res.Err
	}
	s.leave()
	s.subscribe(lb, outbox)
	return res.Room, nil
}

func (s *session) subscribe(lb *lobby.Lobby, outbox chan lobby.Envelope) {
	m := &membership{lobby: lb, outbox: outbox, leaving: make(chan struct{})}
	s.member = m
	go s.forward(m)
}

// leave ends the current membership, if any.
func (s *session) leave() {
	m := s.member
	if m == nil {
		return
	}
	s.member = nil
	close(m.leaving)
	m.lobby.Leave(s.id)
}

// forward writes the room's pushes until the room closes the outbox. A close
// the session did not ask for means the room dropped us as too slow or shut
// down, so the connection is closed too.
func (s *session) forward(m *membership) {
	for env := range m.outbox {
		if err := s.writeJSON(pushFrame(env)); err != nil {
			s.log.Debug("push failed", zap.Error(err))
		}
	}
	select {
	case <-m.leaving:
	default:
		s.log.Info("room closed subscription", zap.String("room", m.lobby.Code()))
		_ = s.conn.Close(websocket.StatusTryAgainLater, "room subscription closed")
	}
}

func pushFrame(env lobby.Envelope) types.PushFrame {
	if env.Event == engine.EvtTimerUpdate {
		left := env.TimeLeft
		return types.PushFrame{Type: string(env.Event), TimeLeft: &left}
	}
	return types.PushFrame{Type: string(env.Event), GameState: env.Room}
}

func (s *session) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, payload)
}
