package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/strayworks/bracketbot/handlers"
	"github.com/strayworks/bracketbot/middleware"
	"github.com/strayworks/bracketbot/services"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Bracket    *handlers.BracketHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, authService services.AuthService) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/staff-login", h.Auth.StaffLogin)

	router.Route("/guilds/{guildID}", func(r chi.Router) {
		// Public reads and player-facing actions.
		r.Get("/tournament", h.Tournament.Get)
		r.Get("/teams", h.Team.List)
		r.Get("/bracket", h.Bracket.GetProjection)
		r.Get("/bracket/image", h.Bracket.GetImage)
		r.Get("/ws", h.WebSocket.Serve)

		r.Post("/teams", h.Team.Register)
		r.Post("/teams/{teamName}/ready", h.Team.SetReady)
		r.Post("/matches/{matchID}/result", h.Bracket.RecordResult)

		// Staff-only lifecycle management.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStaff(authService))

			r.Post("/tournament", h.Tournament.Create)
			r.Patch("/tournament", h.Tournament.UpdateSettings)
			r.Post("/tournament/queue", h.Tournament.SetQueueStatus)
			r.Delete("/tournament", h.Tournament.Delete)

			r.Post("/bracket/start", h.Bracket.Start)
			r.Post("/bracket/reset", h.Tournament.ResetBracket)

			r.Delete("/teams/{teamName}", h.Team.Disband)
		})
	})

	return router
}
