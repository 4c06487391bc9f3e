package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/courierhq/courier/internal/config"
	"github.com/courierhq/courier/internal/database"
	"github.com/courierhq/courier/internal/repository/postgres"
	"github.com/courierhq/courier/internal/service"
	"github.com/courierhq/courier/internal/transport/http/handlers"
	"github.com/courierhq/courier/internal/transport/http/middleware"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	// Database
	pool, err := database.Connect(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()
	log.Info().Msg("connected to database")

	// Store
	store := postgres.NewStore(pool)
	repos := store.Repositories()

	// Services
	authService := service.NewAuthService(repos.Users, cfg.JWTSecret)
	notificationService := service.NewNotificationService(repos)
	messageService := service.NewMessageService(repos, store, notificationService)
	conversationService := service.NewConversationService(repos, store)
	userService := service.NewUserService(repos, store)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	conversationHandler := handlers.NewConversationHandler(conversationService, messageService, log)
	messageHandler := handlers.NewMessageHandler(messageService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	userHandler := handlers.NewUserHandler(userService, log)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(conversationHandler.Create)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(conversationHandler.List)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(conversationHandler.ListMessages)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(conversationHandler.SendMessage)))

	// Protected - Messages
	mux.Handle("PATCH /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Edit)))
	mux.Handle("POST /api/v1/messages/{id}/mark-read", auth(http.HandlerFunc(messageHandler.MarkRead)))
	mux.Handle("GET /api/v1/messages/{id}/history", auth(http.HandlerFunc(messageHandler.History)))
	mux.Handle("GET /api/v1/messages/unread", auth(http.HandlerFunc(messageHandler.Unread)))

	// Protected - Notifications
	mux.Handle("GET /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/v1/notifications/{id}/mark-read", auth(http.HandlerFunc(notificationHandler.MarkRead)))
	mux.Handle("POST /api/v1/notifications/mark-all-read", auth(http.HandlerFunc(notificationHandler.MarkAllRead)))
	mux.Handle("DELETE /api/v1/notifications/read", auth(http.HandlerFunc(notificationHandler.DeleteAllRead)))

	// Protected - Users
	mux.Handle("GET /api/v1/users/me", auth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("DELETE /api/v1/users/me", auth(http.HandlerFunc(userHandler.DeleteMe)))

	handler := middleware.CORS(middleware.RequestLogger(log)(mux))

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("starting server")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
