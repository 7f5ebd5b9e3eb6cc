// Package lobby runs one goroutine per room. The goroutine owns the room state;
// everything else talks to it through its inbox.
package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/connor-ruff/fishybowl/internal/archive"
	"github.com/connor-ruff/fishybowl/internal/engine"
)

// ErrClosed is returned when the room has shut down.
var ErrClosed = errors.New("room closed")

type Msg interface{ isLobbyMsg() }

// Action applies one player command.
type Action struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Action) isLobbyMsg() {}

// Join adds or reattaches a player and subscribes Outbox to the room.
type Join struct {
	Name   string
	ConnID string
	Outbox chan Envelope
	Reply  chan Result
}

func (Join) isLobbyMsg() {}

// Leave unsubscribes ConnID and disconnects its player.
type Leave struct{ ConnID string }

func (Leave) isLobbyMsg() {}

// TimerFired is one tick of the turn countdown started at generation Gen.
type TimerFired struct{ Gen int }

func (TimerFired) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Envelope is one push to a subscriber. Room is nil for timer updates.
type Envelope struct {
	Event    engine.EventType
	Version  int
	Room     *engine.Room
	TimeLeft int
}

// Result answers an Action or a Join. Room is the snapshot that was
// broadcast, nil when Err is set.
type Result struct {
	Version int
	Room    *engine.Room
	Err     error
}

type View struct {
	Version    int
	NumClients int
	TimerGen   int
	Room       *engine.Room
}

// Timers starts and stops the countdown for a room code.
type Timers interface {
	Start(code string, fire func())
	Stop(code string)
}

type Deps struct {
	Timers  Timers
	Archive archive.Recorder
	Log     *zap.Logger
	// OnEmpty is called from the room goroutine right before it exits because
	// the last player left.
	OnEmpty func(code string, l *Lobby)
	Now     func() time.Time
}

type Lobby struct {
	code    string
	inbox   chan Msg
	room    *engine.Room
	version int
	gen     int
	clients map[string]chan Envelope
	deps    Deps
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New starts the goroutine for room. hostOutbox, if not nil, is subscribed
// for the room's creator.
func New(parent context.Context, room *engine.Room, hostOutbox chan Envelope, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Archive == nil {
		deps.Archive = archive.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	l := &Lobby{
		code:    room.Code,
		inbox:   make(chan Msg, 64),
		room:    room,
		clients: make(map[string]chan Envelope),
		deps:    deps,
		log:     deps.Log.With(zap.String("room", room.Code)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if hostOutbox != nil {
		l.clients[room.HostID] = hostOutbox
	}

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Inbox exposes the raw inbox. Callers that may outlive the room should use
// the helper methods instead, which give up once the room is gone.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed when the room goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Action:
				msg.Reply <- l.apply(msg.Cmd)

			case Join:
				msg.Reply <- l.join(msg)

			case Leave:
				l.leave(msg.ConnID)
				if l.room.Empty() {
					l.log.Info("room empty, closing")
					l.shutdown()
					if l.deps.OnEmpty != nil {
						l.deps.OnEmpty(l.code, l)
					}
					return
				}

			case TimerFired:
				l.tick(msg.Gen)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					TimerGen:   l.gen,
					Room:       l.room.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) Result {
	out, err := engine.Apply(l.room, cmd)
	if err != nil {
		l.log.Debug("action rejected", zap.String("action", string(cmd.Type)), zap.Error(err))
		return Result{Err: err}
	}
	l.log.Debug("action applied", zap.String("action", string(cmd.Type)), zap.String("phase", string(l.room.Phase)))
	return l.commit(out)
}

func (l *Lobby) join(msg Join) Result {
	out, err := engine.Join(l.room, msg.Name, msg.ConnID)
	if err != nil {
		return Result{Err: err}
	}
	if msg.Outbox != nil {
		l.clients[msg.ConnID] = msg.Outbox
	}
	l.log.Info("player joined", zap.String("player", msg.Name), zap.String("phase", string(l.room.Phase)))
	return l.commit(out)
}

func (l *Lobby) leave(connID string) {
	if ch, ok := l.clients[connID]; ok {
		close(ch)
		delete(l.clients, connID)
	}
	out, err := engine.Disconnect(l.room, connID)
	if err != nil {
		return
	}
	l.log.Info("player disconnected", zap.String("conn", connID), zap.String("phase", string(l.room.Phase)))
	l.commit(out)
}

func (l *Lobby) tick(gen int) {
	if gen != l.gen {
		return
	}
	out, ok := engine.Tick(l.room)
	if !ok {
		return
	}
	if out.Event == engine.EvtTimerUpdate {
		l.broadcast(Envelope{Event: out.Event, Version: l.version, TimeLeft: l.room.Game.TurnTimeLeft})
		return
	}
	l.commit(out)
}

// commit runs the side effects of a successful mutation and returns the
// snapshot that was broadcast.
func (l *Lobby) commit(out engine.Outcome) Result {
	switch out.Timer {
	case engine.TimerStart:
		l.startTimer()
	case engine.TimerStop:
		l.stopTimer()
	}

	l.version++
	snap := l.room.Clone()
	l.broadcast(Envelope{Event: out.Event, Version: l.version, Room: snap})

	if out.GameOver {
		l.log.Info("game over")
		l.deps.Archive.Record(archive.Summarize(l.room, l.deps.Now()))
	}
	return Result{Version: l.version, Room: snap}
}

func (l *Lobby) startTimer() {
	if l.deps.Timers == nil {
		return
	}
	l.gen++
	gen := l.gen
	l.deps.Timers.Start(l.code, func() { l.post(TimerFired{Gen: gen}) })
}

func (l *Lobby) stopTimer() {
	l.gen++
	if l.deps.Timers != nil {
		l.deps.Timers.Stop(l.code)
	}
}

func (l *Lobby) post(m Msg) {
	select {
	case l.inbox <- m:
	case <-l.done:
	}
}

func (l *Lobby) shutdown() {
	l.stopTimer()
	for id, ch := range l.clients {
		close(ch)
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(env Envelope) {
	for id, ch := range l.clients {
		select {
		case ch <- env:
		default:
			l.log.Warn("dropping slow client", zap.String("conn", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Do applies cmd and waits for the result.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) Result {
	reply := make(chan Result, 1)
	return l.request(ctx, Action{Cmd: cmd, Reply: reply}, reply)
}

// Join subscribes outbox and adds name to the room under connID.
func (l *Lobby) Join(ctx context.Context, name, connID string, outbox chan Envelope) Result {
	reply := make(chan Result, 1)
	return l.request(ctx, Join{Name: name, ConnID: connID, Outbox: outbox, Reply: reply}, reply)
}

func (l *Lobby) request(ctx context.Context, m Msg, reply chan Result) Result {
	select {
	case l.inbox <- m:
	case <-l.done:
		return Result{Err: ErrClosed}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
	select {
	case res := <-reply:
		return res
	case <-l.done:
		// The reply is buffered before the loop exits.
		select {
		case res := <-reply:
			return res
		default:
			return Result{Err: ErrClosed}
		}
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Leave disconnects connID. It does not wait for the room to process it.
func (l *Lobby) Leave(connID string) {
	l.post(Leave{ConnID: connID})
}

// State returns a snapshot of the room.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
