package routes

import (
	"net/http"

	"github.com/Dosada05/club-events/docs"
	"github.com/Dosada05/club-events/handlers"
	"github.com/Dosada05/club-events/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret      string
	APIKeyHash     string
	AllowedOrigins []string
}

type Handlers struct {
	Brackets  *handlers.BracketHandler
	Events    *handlers.EventHandler
	Clubs     *handlers.ClubHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, opts Options, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.APIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/doc.json", docs.SpecHandler)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Публичные маршруты для чтения
	router.Get("/clubs/{clubID}/recent-winners", h.Clubs.RecentWinnersHandler)
	router.Get("/events/{eventID}/trophies", h.Clubs.EventTrophiesHandler)
	router.Get("/participants/{participantID}/badges", h.Clubs.ParticipantBadgesHandler)
	router.Get("/ws/events/{eventID}", h.WebSocket.ServeWs)

	router.Route("/admin/events/{eventID}", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))
		r.Use(middleware.RequireRole(middleware.RoleAdmin))

		r.Post("/bracket/link", h.Brackets.LinkHandler)
		r.Post("/bracket/repair", h.Brackets.RepairHandler)
		r.Post("/completion/replay", h.Events.ReplayHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.ServiceAuth(opts.JWTSecret, opts.APIKeyHash))
		r.Use(middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin))

		r.Post("/internal/status-changes", h.Events.StatusChangeHandler)
	})
}
