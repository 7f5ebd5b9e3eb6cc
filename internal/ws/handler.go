package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const pingInterval = 20 * time.Second

type Options struct {
	// OriginPatterns are passed to websocket.Accept. Empty means same origin only.
	OriginPatterns   []string
	ActionsPerSecond float64
}

func Handler(rooms Rooms, log *zap.Logger, opts Options) http.HandlerFunc {
	if opts.ActionsPerSecond <= 0 {
		opts.ActionsPerSecond = 10
	}
	burst := max(1, int(opts.ActionsPerSecond*2))

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := newSession(ctx, uuid.NewString(), conn, rooms, rate.NewLimiter(rate.Limit(opts.ActionsPerSecond), burst), log)
		s.log.Debug("client connected", zap.String("remote", r.RemoteAddr))
		defer s.leave()

		go keepAlive(ctx, conn)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					s.log.Debug("client closed")
				default:
					s.log.Debug("read failed", zap.Error(err))
				}
				return
			}

			ack := s.handle(ctx, data)
			if err := s.writeJSON(ack); err != nil {
				s.log.Debug("ack write failed", zap.Error(err))
				return
			}
		}
	}
}

// keepAlive pings until ctx ends so dead peers are noticed while the room is
// idle. A failed ping closes the connection, which ends the reader loop.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
