// Package main provides the entry point for the caskdb key-value store
// application. It initializes the logger, loads configuration, opens the
// storage engine, and starts the command-line interface.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/caskdb/caskdb/internal/cli"
	"github.com/caskdb/caskdb/internal/config"
	"github.com/caskdb/caskdb/internal/engine"
)

func main() {
	// Initialize structured logger
	// Use JSON handler for production, or TextHandler for development
	slogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo, // Change to LevelDebug for verbose logging
	})
	logger := slog.New(slogHandler)
	slog.SetDefault(logger)

	// Load configuration
	slog.Info("main: loading configuration")
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("main: failed to load configuration", "error", err)
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.Info("main: configuration loaded successfully",
		"dir_path", cfg.DIR_PATH,
		"data_file_size", cfg.DATA_FILE_SIZE,
		"sync_writes", cfg.SYNC_WRITES,
		"index_type", cfg.INDEX_TYPE,
	)

	options, err := cfg.ToOptions()
	if err != nil {
		slog.Error("main: invalid configuration", "error", err)
		log.Fatalf("Invalid config: %v", err)
	}

	// Open the storage engine
	db, err := engine.Open(options)
	if err != nil {
		slog.Error("main: failed to open database", "error", err)
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("main: error closing database", "error", err)
		}
	}()

	slog.Info("main: caskdb started successfully")

	// Start CLI handler
	cliHandler := cli.NewHandler(db)
	if err := cliHandler.Run(); err != nil {
		slog.Error("main: CLI handler error", "error", err)
		log.Fatalf("CLI error: %v", err)
	}
}
