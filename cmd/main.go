// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/eventure/eventure/internal/auth"
	"github.com/eventure/eventure/internal/config"
	"github.com/eventure/eventure/internal/database"
	"github.com/eventure/eventure/internal/handler"
	"github.com/eventure/eventure/internal/logger"
	"github.com/eventure/eventure/internal/report"
	"github.com/eventure/eventure/internal/repository"
	"github.com/eventure/eventure/internal/service"
	"github.com/eventure/eventure/internal/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	pool, err := database.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	userRepo := repository.NewUserRepository(pool, cfg.Database.Timeout)
	eventRepo := repository.NewEventRepository(pool, cfg.Database.Timeout)

	tokens := token.NewManager(cfg.JWT.Secret)
	google := auth.NewGoogleVerifier(auth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		AuthURL:      cfg.Google.AuthURL,
		TokenURL:     cfg.Google.TokenURL,
		JWKSURL:      cfg.Google.JWKSURL,
		Issuer:       cfg.Google.Issuer,
	})
	reports := report.NewGeminiClient(cfg.Report.Endpoint, cfg.Report.Model, cfg.Report.APIKey)

	identitySvc := service.NewIdentityService(userRepo, tokens, google, logger)
	eventSvc := service.NewEventService(eventRepo, reports, logger)

	userHandler := handler.NewUserHandler(identitySvc, cfg.Frontend.Origin)
	eventHandler := handler.NewEventHandler(eventSvc)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(handler.CORS(cfg.Frontend.Origin))

	r.Get("/health", handler.HealthCheck)

	r.Route("/user", func(r chi.Router) {
		r.Post("/signup", userHandler.SignUp)
		r.Post("/signin", userHandler.SignIn)
		r.Get("/auth/google", userHandler.GoogleAuth)
		r.Get("/auth/google/callback", userHandler.GoogleCallback)
		r.With(handler.Authenticate(tokens)).Get("/me", userHandler.Me)
	})

	r.Route("/event", func(r chi.Router) {
		r.Post("/add", eventHandler.Create)
		r.Get("/get", eventHandler.List)
		r.Put("/update/{id}", eventHandler.Update)
		r.Delete("/delete/{id}", eventHandler.Delete)

		r.Group(func(r chi.Router) {
			r.Use(handler.Authenticate(tokens))
			r.Post("/register/{id}", eventHandler.Register)
			r.Post("/report/{id}", eventHandler.Report)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
