package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	gameHandler "github.com/arcwright/gamemaster/internal/handler/game"
	gameService "github.com/arcwright/gamemaster/internal/service/game"
	"github.com/arcwright/gamemaster/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(coordinator *gameService.Coordinator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		gameHandler.New(coordinator, nil).RegisterRoutes(api)
	})

	return r
}
