package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connor-ruff/fishybowl/internal/archive"
	"github.com/connor-ruff/fishybowl/internal/engine"
)

const wait = 200 * time.Millisecond

// helper: receive one envelope with a timeout so tests never hang
func recvEnvelope(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return env
	case <-time.After(wait):
		t.Fatalf("timed out waiting for envelope")
		return Envelope{}
	}
}

func recvNoEnvelope(t *testing.T, ch <-chan Envelope) {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no envelope, got %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func drain(ch <-chan Envelope) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// fakeTimers records the fire func of each started countdown so tests can
// tick it by hand.
type fakeTimers struct {
	mu     sync.Mutex
	fire   map[string]func()
	starts int
	stops  int
}

func newFakeTimers() *fakeTimers { return &fakeTimers{fire: make(map[string]func())} }

func (f *fakeTimers) Start(code string, fire func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fire[code] = fire
	f.starts++
}

func (f *fakeTimers) Stop(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fire, code)
	f.stops++
}

func (f *fakeTimers) current(t *testing.T, code string) func() {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.fire[code]
	require.True(t, ok, "no timer running for %s", code)
	return fn
}

func (f *fakeTimers) running(code string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.fire[code]
	return ok
}

type recorder struct{ got chan archive.GameSummary }

func (r recorder) Record(s archive.GameSummary)      { r.got <- s }
func (r recorder) Close(ctx context.Context) error { return nil }

type harness struct {
	l      *Lobby
	timers *fakeTimers
	alice  chan Envelope
	bob    chan Envelope
}

func newHarness(t *testing.T, deps Deps) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{timers: newFakeTimers(), alice: make(chan Envelope, 64), bob: make(chan Envelope, 64)}
	if deps.Timers == nil {
		deps.Timers = h.timers
	}
	room := engine.NewRoom("ABCD", "Alice", "alice")
	h.l = New(ctx, room, h.alice, deps)

	res := h.l.Join(ctx, "Bob", "bob", h.bob)
	require.NoError(t, res.Err)
	return h
}

func (h *harness) do(t *testing.T, cmd engine.Command) Result {
	t.Helper()
	res := h.l.Do(context.Background(), cmd)
	require.NoError(t, res.Err, "command %s", cmd.Type)
	return res
}

var connOf = map[string]string{"Alice": "alice", "Bob": "bob"}

// toTurnActive plays Alice (Red) and Bob (Blue) into Alice's first turn.
func (h *harness) toTurnActive(t *testing.T, turnSeconds int) Result {
	t.Helper()
	h.do(t, engine.Command{Type: engine.CmdStartGame, ConnID: "alice"})
	h.do(t, engine.Command{Type: engine.CmdSubmitConfig, ConnID: "alice", Config: &engine.GameConfig{
		Teams:          []engine.TeamConfig{{Name: "Red", Players: []string{"Alice"}}, {Name: "Blue", Players: []string{"Bob"}}},
		WordsPerPlayer: 1,
		TurnSeconds:    turnSeconds,
	}})
	h.do(t, engine.Command{Type: engine.CmdSubmitWords, ConnID: "alice", PlayerName: "Alice", Words: []string{"apple"}})
	h.do(t, engine.Command{Type: engine.CmdSubmitWords, ConnID: "bob", PlayerName: "Bob", Words: []string{"banana"}})
	h.do(t, engine.Command{Type: engine.CmdStartRound, ConnID: "alice"})
	res := h.do(t, engine.Command{Type: engine.CmdStartTurn, ConnID: "alice"})
	require.Equal(t, engine.PhaseTurnActive, res.Room.Phase)
	return res
}

func (h *harness) state(t *testing.T) View {
	t.Helper()
	v, err := h.l.State(context.Background())
	require.NoError(t, err)
	return v
}

func TestLobby_JoinBroadcastsAndAcks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := make(chan Envelope, 4)
	l := New(ctx, engine.NewRoom("ABCD", "Alice", "alice"), alice, Deps{})

	bob := make(chan Envelope, 4)
	res := l.Join(ctx, "Bob", "bob", bob)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Version)
	require.Len(t, res.Room.Players, 2)

	for _, ch := range []chan Envelope{alice, bob} {
		env := recvEnvelope(t, ch)
		assert.Equal(t, engine.EvtPlayersUpdated, env.Event)
		assert.Equal(t, 1, env.Version)
		assert.Len(t, env.Room.Players, 2)
	}

	res = l.Join(ctx, "Bob", "other", make(chan Envelope, 1))
	require.ErrorIs(t, res.Err, engine.ErrNameTaken)
	recvNoEnvelope(t, alice)
	v, err := l.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v.NumClients)
}

func TestLobby_ActionBroadcastsSameSnapshotAsAck(t *testing.T) {
	h := newHarness(t, Deps{})
	drain(h.alice)
	drain(h.bob)

	res := h.do(t, engine.Command{Type: engine.CmdStartGame, ConnID: "alice"})
	env := recvEnvelope(t, h.bob)
	assert.Equal(t, engine.EvtGameStarted, env.Event)
	assert.Equal(t, res.Version, env.Version)
	assert.Equal(t, res.Room, env.Room)
	assert.Equal(t, engine.PhasePreGameConfigs, env.Room.Phase)
}

func TestLobby_RejectedActionDoesNotBroadcast(t *testing.T) {
	h := newHarness(t, Deps{})
	drain(h.alice)
	before := h.state(t).Version

	res := h.l.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, ConnID: "bob"})
	require.ErrorIs(t, res.Err, engine.ErrNotHost)
	assert.Nil(t, res.Room)

	recvNoEnvelope(t, h.alice)
	v := h.state(t)
	assert.Equal(t, before, v.Version)
	assert.Equal(t, engine.PhaseLobby, v.Room.Phase)
}

func TestLobby_TimerCountsDownAndExpires(t *testing.T) {
	h := newHarness(t, Deps{})
	h.toTurnActive(t, 2)
	require.True(t, h.timers.running("ABCD"))
	drain(h.bob)

	tick := h.timers.current(t, "ABCD")
	tick()
	env := recvEnvelope(t, h.bob)
	assert.Equal(t, engine.EvtTimerUpdate, env.Event)
	assert.Equal(t, 1, env.TimeLeft)
	assert.Nil(t, env.Room)

	tick()
	env = recvEnvelope(t, h.bob)
	assert.Equal(t, engine.EvtStateUpdate, env.Event)
	require.NotNil(t, env.Room)
	assert.Equal(t, engine.PhaseTurnEnd, env.Room.Phase)
	assert.Equal(t, 0, env.Room.Game.TurnTimeLeft)
	assert.False(t, h.timers.running("ABCD"))

	tick()
	recvNoEnvelope(t, h.bob)
}

func TestLobby_StaleTickIsDropped(t *testing.T) {
	h := newHarness(t, Deps{})
	h.toTurnActive(t, 30)
	stale := h.timers.current(t, "ABCD")

	h.l.Leave("bob")
	require.Eventually(t, func() bool { return !h.timers.running("ABCD") }, time.Second, 5*time.Millisecond)
	v := h.state(t)
	assert.Equal(t, engine.PhasePaused, v.Room.Phase)

	bob := make(chan Envelope, 16)
	res := h.l.Join(context.Background(), "Bob", "bob-2", bob)
	require.NoError(t, res.Err)
	assert.Equal(t, engine.PhaseTurnActive, res.Room.Phase)
	require.True(t, h.timers.running("ABCD"))
	drain(bob)

	stale()
	recvNoEnvelope(t, bob)
	assert.Equal(t, 30, h.state(t).Room.Game.TurnTimeLeft)

	h.timers.current(t, "ABCD")()
	env := recvEnvelope(t, bob)
	assert.Equal(t, 29, env.TimeLeft)
}

func TestLobby_LeaveClosesOutbox(t *testing.T) {
	h := newHarness(t, Deps{})
	h.l.Leave("bob")

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-h.bob:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)

	v := h.state(t)
	assert.Len(t, v.Room.Players, 1)
	assert.Equal(t, 1, v.NumClients)
}

func TestLobby_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := make(chan Envelope)
	l := New(ctx, engine.NewRoom("ABCD", "Alice", "alice"), slow, Deps{})
	require.NoError(t, l.Join(ctx, "Bob", "bob", make(chan Envelope, 4)).Err)

	v, err := l.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.NumClients)
	_, ok := <-slow
	assert.False(t, ok, "slow client outbox should be closed")
}

func TestLobby_LastLeaveClosesRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emptied := make(chan string, 1)
	l := New(ctx, engine.NewRoom("ABCD", "Alice", "alice"), nil, Deps{
		OnEmpty: func(code string, _ *Lobby) { emptied <- code },
	})
	l.Leave("alice")

	select {
	case code := <-emptied:
		assert.Equal(t, "ABCD", code)
	case <-time.After(wait):
		t.Fatal("OnEmpty not called")
	}
	<-l.Done()

	res := l.Do(ctx, engine.Command{Type: engine.CmdStartGame, ConnID: "alice"})
	require.ErrorIs(t, res.Err, ErrClosed)
	_, err := l.State(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestLobby_PausedRoomStaysOpenWithoutPlayersConnected(t *testing.T) {
	h := newHarness(t, Deps{})
	h.toTurnActive(t, 30)

	h.l.Leave("alice")
	h.l.Leave("bob")
	v := h.state(t)
	assert.Equal(t, engine.PhasePaused, v.Room.Phase)
	assert.Zero(t, v.NumClients)

	res := h.l.Join(context.Background(), "Alice", "alice-2", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, engine.PhasePaused, res.Room.Phase)
}

func TestLobby_GameOverIsArchived(t *testing.T) {
	rec := recorder{got: make(chan archive.GameSummary, 1)}
	finished := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	h := newHarness(t, Deps{Archive: rec, Now: func() time.Time { return finished }})
	res := h.toTurnActive(t, 60)

	for round := 1; round <= engine.NumRounds; round++ {
		if round > 1 {
			h.do(t, engine.Command{Type: engine.CmdStartRound, ConnID: "alice"})
			res = h.do(t, engine.Command{Type: engine.CmdStartTurn, ConnID: connOf[res.Room.Game.CurrentClueGiver]})
		}
		for res.Room.Phase == engine.PhaseTurnActive {
			res = h.do(t, engine.Command{Type: engine.CmdWordGuessed, ConnID: connOf[res.Room.Game.CurrentClueGiver]})
		}
		require.Equal(t, engine.PhaseRoundEnd, res.Room.Phase)
		res = h.do(t, engine.Command{Type: engine.CmdNextRound, ConnID: "alice"})
	}
	require.Equal(t, engine.PhaseGameOver, res.Room.Phase)

	select {
	case s := <-rec.got:
		assert.Equal(t, "ABCD", s.RoomCode)
		assert.Equal(t, finished, s.FinishedAt)
		require.Len(t, s.Teams, 2)
		assert.Equal(t, 6, s.Teams[0].Total+s.Teams[1].Total)
	case <-time.After(wait):
		t.Fatal("game was not archived")
	}
}

func TestLobby_ShutdownClosesSubscribers(t *testing.T) {
	h := newHarness(t, Deps{})
	h.l.Inbox() <- Shutdown{}
	<-h.l.Done()

	for _, ch := range []chan Envelope{h.alice, h.bob} {
		drain(ch)
		_, ok := <-ch
		assert.False(t, ok)
	}
}
