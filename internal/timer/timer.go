// Package timer runs the per-room turn countdowns. Timers are only reachable
// through a Registry and are looked up by room code.
package timer

import (
	"sync"
	"time"
)

// TickerFunc returns a channel that fires every d and a func that stops it.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Registry struct {
	mu        sync.Mutex
	period    time.Duration
	newTicker TickerFunc
	timers    map[string]chan struct{}
}

type Option func(*Registry)

func WithTicker(fn TickerFunc) Option {
	return func(r *Registry) { r.newTicker = fn }
}

func WithPeriod(d time.Duration) Option {
	return func(r *Registry) { r.period = d }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		period:    time.Second,
		newTicker: realTicker,
		timers:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start replaces any timer running for code with a new one that calls fire
// once per period until stopped.
func (r *Registry) Start(code string, fire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked(code)
	stop := make(chan struct{})
	r.timers[code] = stop

	ticks, stopTicker := r.newTicker(r.period)
	go func() {
		defer stopTicker()
		for {
			select {
			case <-stop:
				return
			case <-ticks:
				select {
				case <-stop:
					return
				default:
				}
				fire()
			}
		}
	}()
}

// Stop cancels the timer for code. Stopping a room without a timer is a no-op.
func (r *Registry) Stop(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(code)
}

func (r *Registry) stopLocked(code string) {
	if stop, ok := r.timers[code]; ok {
		close(stop)
		delete(r.timers, code)
	}
}

func (r *Registry) Active(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[code]
	return ok
}

// StopAll cancels every running timer.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code := range r.timers {
		r.stopLocked(code)
	}
}
