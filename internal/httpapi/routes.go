package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ti4-draft-backend/internal/hub"
	"github.com/DoyleJ11/ti4-draft-backend/internal/logging"
	"github.com/DoyleJ11/ti4-draft-backend/internal/session"
	"github.com/DoyleJ11/ti4-draft-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, gate session.AdminGate, wsOpts ws.Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz(h))
	r.Get("/ws", ws.Handler(h, wsOpts))

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", CreateDraft(h))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetDraft(h, gate))
			r.Post("/intents", PostIntent(h, gate))
			r.Get("/replay", Replay(h))
		})
	})
	return r
}
