package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jphacks/os-2518/internal/config"
	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/realtime"
	"github.com/jphacks/os-2518/internal/security"
	"github.com/jphacks/os-2518/internal/service"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, repos domain.Repositories, registry *realtime.Registry, tokens *security.TokenService) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	fanout := service.NewFanout(repos.Notifications, registry)
	matchSvc := service.NewMatchService(repos.Matches, repos.Messages, fanout)
	msgSvc := service.NewMessageService(matchSvc, repos.Matches, repos.Messages, fanout)
	schSvc := service.NewScheduleService(matchSvc, repos.Matches, repos.Schedules, fanout)
	notifSvc := service.NewNotificationService(repos.Notifications, fanout)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName + " API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(AuthMiddleware(tokens))

		// Matches
		r.Route("/matches", func(r chi.Router) {
			r.Post("/", handleCreateMatch(matchSvc))
			r.Get("/", handleListMatches(matchSvc))
			r.Get("/{matchID}", handleGetMatch(matchSvc))
			r.Post("/{matchID}/accept", handleAcceptMatch(matchSvc))
			r.Post("/{matchID}/reject", handleRejectMatch(matchSvc))

			// Messages live under their match
			r.Get("/{matchID}/messages", handleListMessages(msgSvc))
			r.Post("/{matchID}/messages", handleCreateMessage(msgSvc))
			r.Post("/{matchID}/messages/read", handleMarkAllMessagesRead(msgSvc))

			// Schedule proposals live under their match
			r.Post("/{matchID}/schedules", handleCreateSchedule(schSvc))
		})

		// Messages
		r.Post("/messages/{messageID}/read", handleMarkMessageRead(msgSvc))

		// Schedules
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", handleListSchedules(schSvc))
			r.Post("/{scheduleID}/accept", handleAcceptSchedule(schSvc))
			r.Post("/{scheduleID}/cancel", handleCancelSchedule(schSvc))
		})

		// Notifications
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", handleListNotifications(notifSvc))
			r.Post("/{notificationID}/read", handleMarkNotificationRead(notifSvc))
		})
	})

	// Long-lived push channels stay outside the timeout middleware.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))
		r.Get("/api/events/stream", realtime.MakeSSEHandler(registry, CurrentUserID, cfg.KeepAliveInterval))
	})

	// WebSocket endpoint authenticates via its own token extraction so
	// browser clients can pass the token as a subprotocol.
	r.Get("/ws", realtime.MakeWSHandler(registry, tokens, cfg.CORSOrigins, cfg.KeepAliveInterval))

	return r
}
