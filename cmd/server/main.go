package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/nvalden/discsync/internal/catalog"
	"github.com/nvalden/discsync/internal/config"
	"github.com/nvalden/discsync/internal/downloader"
	"github.com/nvalden/discsync/internal/engine"
	"github.com/nvalden/discsync/internal/handlers"
	"github.com/nvalden/discsync/internal/logger"
	"github.com/nvalden/discsync/internal/store"
)

func main() {
	// A missing .env is fine, the environment may carry everything.
	_ = godotenv.Load()

	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Authenticate against the catalog before serving anything; a bad
	// session credential should refuse startup, not fail the first sync.
	client := catalog.New(cfg.ARL, appLogger)
	loginCtx, cancelLogin := context.WithTimeout(context.Background(), time.Minute)
	if err := client.Login(loginCtx); err != nil {
		cancelLogin()
		appLogger.Error("Catalog login failed", "error", err)
		os.Exit(1)
	}
	cancelLogin()

	// Initialize Engine
	eng := engine.New(client, downloader.New(client, appLogger), db, appLogger)

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Routes
	h := handlers.NewHandler(eng, db, cfg, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
