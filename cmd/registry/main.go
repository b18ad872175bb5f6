package main

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/Galjente/gpm-nodejs/internal/config"
	"github.com/Galjente/gpm-nodejs/internal/server"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	cfg := config.LoadServer()

	// Create storage directory if it doesn't exist
	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		logger.Fatal("failed to create storage directory", "error", err)
	}

	r := mux.NewRouter()
	server.RegisterRoutes(r, cfg, logger)

	logger.Info("registry server starting", "port", cfg.Port, "storage", cfg.StoragePath)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
}
