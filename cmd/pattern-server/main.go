package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-pattern/pkg/simplepattern/api"
	"github.com/tendant/simple-pattern/pkg/simplepattern/config"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, err := serverConfig.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	var handlerOpts []api.HandlerOption
	if serverConfig.JWTSecret != "" {
		handlerOpts = append(handlerOpts, api.WithTokenAuth(jwtauth.New("HS256", []byte(serverConfig.JWTSecret), nil)))
	}
	patternHandler := api.NewPatternHandler(svc, handlerOpts...)

	var apiKeyMiddleware func(http.Handler) http.Handler
	if serverConfig.APIKeySHA256 != "" {
		apiKeyMiddleware, err = middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{
				"key1": serverConfig.APIKeySHA256,
			},
		})
		if err != nil {
			slog.Error("Failed initialize API Key middleware", "err", err)
			os.Exit(1)
		}
	}

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		if apiKeyMiddleware != nil {
			r.Use(apiKeyMiddleware)
		}
		r.Mount("/patterns", patternHandler.Routes())
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           h2c.NewHandler(server.R, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Simple Pattern Server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"default_storage", serverConfig.DefaultStorageBackend,
			"jwt_auth", serverConfig.JWTSecret != "",
			"api_key_auth", apiKeyMiddleware != nil)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}
