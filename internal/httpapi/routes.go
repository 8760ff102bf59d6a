package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/hub"
	"github.com/scrumline/poker-backend/internal/store"
	"github.com/scrumline/poker-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/api/join", JoinRoom(st, log))
	r.Post("/api/teams", CreateTeam(st, log))
	r.Get("/api/teams", ListTeams(st))
	r.Post("/api/teams/{id}/join", JoinTeam(st))
	r.Delete("/api/teams/{id}/members/{memberID}", RemoveMember(st, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, st, log))
	return r
}
