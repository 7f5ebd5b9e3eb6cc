package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTickers hands out tickers the test fires by hand.
type manualTickers struct {
	mu      sync.Mutex
	chans   []chan time.Time
	stopped []bool
}

func (m *manualTickers) new(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time)
	i := len(m.chans)
	m.chans = append(m.chans, ch)
	m.stopped = append(m.stopped, false)
	return ch, func() {
		m.mu.Lock()
		m.stopped[i] = true
		m.mu.Unlock()
	}
}

func (m *manualTickers) fire(t *testing.T, i int) {
	t.Helper()
	m.mu.Lock()
	ch := m.chans[i]
	m.mu.Unlock()
	select {
	case ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("ticker %d not being read", i)
	}
}

func (m *manualTickers) isStopped(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped[i]
}

func TestRegistry_StartFiresOnTick(t *testing.T) {
	tickers := &manualTickers{}
	r := NewRegistry(WithTicker(tickers.new))

	fired := make(chan struct{}, 4)
	r.Start("ABCD", func() { fired <- struct{}{} })
	assert.True(t, r.Active("ABCD"))

	tickers.fire(t, 0)
	tickers.fire(t, 0)
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i)
		}
	}
	r.Stop("ABCD")
}

func TestRegistry_StartReplacesExisting(t *testing.T) {
	tickers := &manualTickers{}
	r := NewRegistry(WithTicker(tickers.new))

	var first, second atomic.Int32
	r.Start("ABCD", func() { first.Add(1) })
	r.Start("ABCD", func() { second.Add(1) })

	require.Eventually(t, func() bool { return tickers.isStopped(0) }, time.Second, 5*time.Millisecond)
	tickers.fire(t, 1)
	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, first.Load())
	r.Stop("ABCD")
}

func TestRegistry_StopIsIdempotent(t *testing.T) {
	tickers := &manualTickers{}
	r := NewRegistry(WithTicker(tickers.new))

	r.Stop("NONE")
	r.Start("ABCD", func() {})
	r.Stop("ABCD")
	r.Stop("ABCD")

	assert.False(t, r.Active("ABCD"))
	require.Eventually(t, func() bool { return tickers.isStopped(0) }, time.Second, 5*time.Millisecond)
}

func TestRegistry_RoomsAreIndependent(t *testing.T) {
	tickers := &manualTickers{}
	r := NewRegistry(WithTicker(tickers.new))

	r.Start("AAAA", func() {})
	r.Start("BBBB", func() {})
	r.Stop("AAAA")

	assert.False(t, r.Active("AAAA"))
	assert.True(t, r.Active("BBBB"))
	r.StopAll()
	assert.False(t, r.Active("BBBB"))
}

func TestRegistry_RealTicker(t *testing.T) {
	r := NewRegistry(WithPeriod(10 * time.Millisecond))
	var n atomic.Int32
	r.Start("ABCD", func() { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	r.Stop("ABCD")
}
