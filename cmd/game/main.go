package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tatianab/branching-scenes/internal/config"
	"github.com/tatianab/branching-scenes/internal/engine"
	"github.com/tatianab/branching-scenes/internal/narrator"
	"github.com/tatianab/branching-scenes/internal/scene"
	"github.com/tatianab/branching-scenes/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	lib, err := scene.LoadDir(cfg.SceneDir)
	if err != nil {
		fmt.Printf("Error loading scenes: %v\n", err)
		os.Exit(1)
	}
	sceneID := cfg.SceneID
	if sceneID == "" {
		ids := lib.IDs()
		if len(ids) == 0 {
			fmt.Printf("No scenes found in %s\n", cfg.SceneDir)
			os.Exit(1)
		}
		sceneID = ids[0]
	}

	nar, err := narrator.New(ctx, cfg, logger)
	if err != nil {
		fmt.Printf("Error creating narrator: %v\n", err)
		os.Exit(1)
	}
	defer nar.Close()

	eng := engine.New(lib, nar, engine.Options{
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     cfg.Timeout,
		Window:      cfg.Window,
		Logger:      logger,
	})
	session, err := eng.StartSession(sceneID)
	if err != nil {
		fmt.Printf("Error starting scene %q: %v\n", sceneID, err)
		os.Exit(1)
	}
	logger.Info("session started", "session", session.ID(), "scene", sceneID, "narrator", cfg.Provider)

	if err := tui.Run(session, cfg.SaveDir); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
