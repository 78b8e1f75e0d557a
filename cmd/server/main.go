package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kevinren1128/montecarlo-engine/internal/config"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/optimization"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/simulation"
	"github.com/kevinren1128/montecarlo-engine/internal/server"
	"github.com/kevinren1128/montecarlo-engine/internal/task"
	"github.com/kevinren1128/montecarlo-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Int("workers", cfg.Workers).
		Msg("Starting Monte Carlo engine")

	// Build services
	simService := simulation.NewService(log, cfg.Workers)
	optService := optimization.NewService(log, simService, cfg.Workers)
	taskManager := task.NewManager(log)

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Sim:     simService,
		Opt:     optService,
		Tasks:   taskManager,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
