package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadcrm/internal/config"
	"leadcrm/internal/database"
	"leadcrm/internal/server"
	"leadcrm/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 60 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	log.SetPrefix("[API] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(); err != nil {
		log.Fatal(err)
	}
	log.Println("Server shutdown complete")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := validateSecret(cfg.Auth.SecretKey); err != nil {
		return err
	}
	log.Printf("Starting %s v%s (debug=%v)", cfg.App.Name, cfg.App.Version, cfg.App.Debug)

	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db := database.GetDB()
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}
	}()

	leads := services.NewLeadService(db, cfg, services.NewEmailService(&cfg.Email))
	samplePath, err := leads.EnsureSample()
	if err != nil {
		return fmt.Errorf("failed to prepare sample file: %w", err)
	}
	log.Printf("Sample import template: %s", samplePath)

	srv := server.New(cfg, leads, services.NewAuthService(db), services.NewHealthService(db, cfg.App.Name))
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port),
		Handler:      srv.Root(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     log.New(os.Stderr, "[HTTP] ", log.LstdFlags),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Serving %s on %s", cfg.App.BasePath, httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Println("Shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
		return httpServer.Close()
	}
	return nil
}

// validateSecret refuses to sign tokens with the placeholder or a short key
func validateSecret(secret string) error {
	if secret == "" || secret == "your-secret-key-change-in-production" {
		return errors.New("SECRET_KEY must be set and changed from default value")
	}
	if len(secret) < 32 {
		return errors.New("SECRET_KEY must be at least 32 characters")
	}
	return nil
}
