package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/connor-ruff/fishybowl/internal/hub"
	"github.com/connor-ruff/fishybowl/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, wsOpts ws.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(h))
	r.Get("/rooms/{code}", GetRoom(h))
	r.Get("/ws", ws.Handler(h, log, wsOpts))
	return r
}
