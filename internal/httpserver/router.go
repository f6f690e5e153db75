package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sockchat/internal/config"
	"sockchat/internal/service"
	"sockchat/internal/store/sqlite"
	"sockchat/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and
// the websocket coordinator.
func NewRouter(cfg *config.Config, db *sql.DB, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	// Services
	userSvc := service.NewUserService(userRepo)
	msgSvc := service.NewMessageService(msgRepo, userRepo, cfg.DefaultRoom, cfg.HistoryLimit)

	// Websocket coordinator
	registry := ws.NewRegistry(userSvc)
	rooms := ws.NewRoomTable(cfg.DefaultRoom)
	typing := ws.NewTypingSet()
	eventRouter := ws.NewEventRouter(hub, registry, rooms, typing, msgSvc)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"sockchat server is running","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/messages", handleListMessages(msgSvc))
		r.Get("/users", handleListOnlineUsers(userSvc))
		r.Post("/upload", handleUpload(cfg))
		r.Get("/uploads/{filename}", handleServeUpload(cfg))
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, eventRouter, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
