package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/team-space/handlers"
	"github.com/Dosada05/team-space/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Config struct {
	Logger         *slog.Logger
	Resolver       middleware.IdentityResolver
	AllowedOrigins []string
}

func SetupRoutes(
	router chi.Router,
	cfg Config,
	teamHandler *handlers.TeamHandler,
	webSocketHandler *handlers.WebSocketHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.ClientPrincipalHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.Resolver, cfg.Logger)

	router.Get("/health", healthHandler.Health)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Route("/api", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.CreateTeam)
			r.Get("/my-teams", teamHandler.GetMyTeams)
			r.Post("/join", teamHandler.JoinTeam)

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", teamHandler.GetTeamByID)
				r.Delete("/", teamHandler.DeleteTeam)
				r.Put("/logo", teamHandler.UploadTeamLogo)

				r.Post("/invite-token", teamHandler.GenerateInviteToken)
				r.Post("/invite-token/email", teamHandler.SendInviteEmail)

				r.Route("/members", func(r chi.Router) {
					r.Get("/pending", teamHandler.GetPendingMembers)
					r.Post("/{memberID}/approve", teamHandler.ApproveMember)
					r.Post("/{memberID}/reject", teamHandler.RejectMember)
				})
			})
		})
	})

	router.With(authenticate).Get("/ws/teams/{teamID}", webSocketHandler.ServeWs)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"the requested resource could not be found"}` + "\n"))
	})
}
