// Package hub owns the map from room code to room goroutine.
package hub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/connor-ruff/fishybowl/internal/archive"
	"github.com/connor-ruff/fishybowl/internal/engine"
	"github.com/connor-ruff/fishybowl/internal/lobby"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNoFreeCode   = errors.New("no free room code")
	ErrHubClosed    = errors.New("hub closed")
)

const maxCodeAttempts = 1000

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	HostName string
	ConnID   string
	Outbox   chan lobby.Envelope
	Reply    chan Created
}

// Created answers CreateRoom. Room is the snapshot taken before the room
// goroutine started.
type Created struct {
	Lobby *lobby.Lobby
	Room  *engine.Room
	Err   error
}

type GetRoom struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveRoom drops Code from the map if it still points at Lobby.
type RemoveRoom struct {
	Code  string
	Lobby *lobby.Lobby
}

type CountRooms struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (CountRooms) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Timers      lobby.Timers
	Archive     archive.Recorder
	Log         *zap.Logger
	TurnSeconds int
	// Codes generates candidate room codes. Defaults to GenerateCode.
	Codes func() (string, error)
}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*lobby.Lobby
	opts  Options
	log   *zap.Logger
	ctx   context.Context
	// cancel stops every room goroutine, they all derive from ctx.
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Codes == nil {
		opts.Codes = GenerateCode
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*lobby.Lobby),
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			clear(h.rooms)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create(msg)

			case GetRoom:
				msg.Reply <- h.rooms[NormalizeCode(msg.Code)] // May be nil

			case RemoveRoom:
				if h.rooms[msg.Code] == msg.Lobby {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case CountRooms:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.log.Info("hub shutting down", zap.Int("rooms", len(h.rooms)))
				clear(h.rooms)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(msg CreateRoom) Created {
	code, err := h.freeCode()
	if err != nil {
		return Created{Err: err}
	}

	room := engine.NewRoom(code, msg.HostName, msg.ConnID, engine.WithTurnSeconds(h.opts.TurnSeconds))
	snap := room.Clone()
	lb := lobby.New(h.ctx, room, msg.Outbox, lobby.Deps{
		Timers:  h.opts.Timers,
		Archive: h.opts.Archive,
		Log:     h.opts.Log,
		OnEmpty: h.onEmpty,
	})
	h.rooms[code] = lb
	h.log.Info("room created", zap.String("room", code), zap.String("host", msg.HostName), zap.Int("rooms", len(h.rooms)))
	return Created{Lobby: lb, Room: snap}
}

func (h *Hub) freeCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := h.opts.Codes()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code = NormalizeCode(code)
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", code))
	}
	return "", ErrNoFreeCode
}

// onEmpty runs on the room goroutine, so it must not wait on the hub.
func (h *Hub) onEmpty(code string, l *lobby.Lobby) {
	go h.send(context.Background(), RemoveRoom{Code: code, Lobby: l})
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateRoom registers a new room with hostName as its only player and
// subscribes outbox for the host.
func (h *Hub) CreateRoom(ctx context.Context, hostName, connID string, outbox chan lobby.Envelope) (Created, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateRoom{HostName: hostName, ConnID: connID, Outbox: outbox, Reply: reply}); err != nil {
		return Created{}, err
	}
	select {
	case c := <-reply:
		return c, c.Err
	case <-h.ctx.Done():
		return Created{}, ErrHubClosed
	case <-ctx.Done():
		return Created{}, ctx.Err()
	}
}

// Get looks up a room by code, ignoring case.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, ErrRoomNotFound
		}
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountRooms{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, ErrHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Shutdown stops the hub and every room it owns.
func (h *Hub) Shutdown() {
	_ = h.send(context.Background(), ShutdownHub{})
}
