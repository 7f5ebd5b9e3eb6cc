package archive

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const insertTimeout = 5 * time.Second

// Queue is a Recorder that writes summaries to a Store from a single worker
// goroutine. A full queue drops the summary.
type Queue struct {
	store Store
	log   *zap.Logger

	mu     sync.Mutex
	closed bool
	items  chan GameSummary
	done   chan struct{}
}

func NewQueue(store Store, size int, log *zap.Logger) *Queue {
	q := &Queue{
		store: store,
		log:   log,
		items: make(chan GameSummary, size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Record(s GameSummary) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Warn("archive closed, dropping game", zap.String("room", s.RoomCode))
		return
	}
	select {
	case q.items <- s:
	default:
		q.log.Warn("archive queue full, dropping game", zap.String("room", s.RoomCode))
	}
}

// Close stops accepting summaries and waits for queued ones to be written.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for s := range q.items {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		rec := toRecord(s)
		if err := q.store.Insert(ctx, rec); err != nil {
			q.log.Error("archive insert failed", zap.String("room", s.RoomCode), zap.Error(err))
		} else {
			q.log.Info("game archived", zap.String("room", s.RoomCode), zap.Stringer("id", rec.PublicID))
		}
		cancel()
	}
}
