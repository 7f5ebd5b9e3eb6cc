package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/connor-ruff/fishybowl/internal/engine"
	"github.com/connor-ruff/fishybowl/internal/hub"
	"github.com/connor-ruff/fishybowl/internal/lobby"
	"github.com/connor-ruff/fishybowl/internal/types"
)

const lookupTimeout = 2 * time.Second

// RoomStore is what the HTTP handlers read from.
type RoomStore interface {
	Get(ctx context.Context, code string) (*lobby.Lobby, error)
	Count(ctx context.Context) (int, error)
}

type roomView struct {
	Version int          `json:"version"`
	Clients int          `json:"clients"`
	Room    *engine.Room `json:"gameState"`
}

func GetRoom(h RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()

		lb, err := h.Get(ctx, chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := lb.State(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roomView{Version: v.Version, Clients: v.NumClients, Room: v.Room})
	}
}

func Healthz(h RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()

		n, err := h.Count(ctx)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": n})
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound), errors.Is(err, lobby.ErrClosed):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": types.Message(hub.ErrRoomNotFound)})
	case errors.Is(err, hub.ErrHubClosed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request with zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
