// Command simulate_game plays a scene end to end with a second model acting
// as the player, printing every event and the world state after it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/branching-scenes/internal/config"
	"github.com/tatianab/branching-scenes/internal/engine"
	"github.com/tatianab/branching-scenes/internal/narrator"
	"github.com/tatianab/branching-scenes/internal/scene"
	"github.com/tatianab/branching-scenes/internal/world"
	"google.golang.org/api/option"
)

const (
	maxTurns = 12
	follow   = "FOLLOW"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatalf("GEMINI_API_KEY is needed for the player model")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	lib, err := scene.LoadDir(cfg.SceneDir)
	if err != nil {
		log.Fatalf("Failed to load scenes: %v", err)
	}
	sceneID := cfg.SceneID
	if sceneID == "" && len(lib.IDs()) > 0 {
		sceneID = lib.IDs()[0]
	}

	// The narrator fills in the story once the player leaves the book.
	nar, err := narrator.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create narrator: %v", err)
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
		log.Fatalf("Failed to start scene %q: %v", sceneID, err)
	}

	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(cfg.GeminiModel)

	g := session.Scene()
	fmt.Printf("Scene: %s\n%s\n\n", g.Title(), strings.TrimSpace(g.Synopsis()))

	var history []string
	for turn := 1; turn <= maxTurns && !session.IsSceneComplete(); turn++ {
		fmt.Printf("--- Turn %d ---\n", turn)

		action := getPlayerAction(ctx, playerModel, session, history)
		if action == follow {
			fmt.Println("Player follows the story.")
			action = ""
		} else {
			fmt.Printf("Player Action: %s\n", action)
		}

		e, err := session.Submit(ctx, action)
		var gerr *engine.GenerationError
		switch {
		case errors.As(err, &gerr):
			fmt.Printf("The narrator could not make that happen after %d attempts: %v\n\n", gerr.Attempts, err)
			history = append(history, fmt.Sprintf("Tried: %s (nothing happened)", action))
			continue
		case errors.Is(err, engine.ErrSceneComplete):
			fmt.Println("The book has nothing more to tell.")
			continue
		case err != nil:
			log.Fatalf("Session failed: %v", err)
		}

		tag := "book"
		if !e.Canonical {
			tag = "generated"
		}
		fmt.Printf("[%s, %s] %s\n", tag, e.Room, strings.TrimSpace(e.Description))
		entries := session.Timeline()
		changes := entries[len(entries)-1].Changes
		for _, name := range slices.Sorted(maps.Keys(changes)) {
			fmt.Printf("Effect: %s %s -> %s\n", name, changes[name].From, changes[name].To)
		}
		printState(session.CurrentWorldState())
		fmt.Println()

		line := strings.TrimSpace(e.Description)
		if action != "" {
			line = fmt.Sprintf("You: %s\nThen: %s", action, line)
		}
		history = append(history, line)
	}

	if session.Diverged() {
		fmt.Println("Game Ended: the story left the book.")
	} else {
		fmt.Println("Game Ended: the story stayed on the book.")
	}
	name := "sim-" + session.ID()
	if err := session.Transcript().Save(cfg.SaveDir, name); err != nil {
		log.Fatalf("Failed to save transcript: %v", err)
	}
	fmt.Printf("Transcript saved to %s/%s\n", cfg.SaveDir, name)
}

func printState(snap world.Snapshot) {
	var vars []string
	for _, name := range slices.Sorted(maps.Keys(snap.Vars)) {
		vars = append(vars, fmt.Sprintf("%s=%s", name, snap.Vars[name]))
	}
	fmt.Printf("Room=%s, Present=%v, %s\n", snap.Room, snap.Present, strings.Join(vars, ", "))
}

func getPlayerAction(ctx context.Context, model *genai.GenerativeModel, session *engine.Session, history []string) string {
	snap := session.CurrentWorldState()
	room, _ := session.Scene().Room(snap.Room)

	prompt := fmt.Sprintf(`You are playing through a scene from a book, and you may change how it goes.
Scene: %s
Current Location: %s. %s
Characters here: %v

What happened so far:
%s

Either reply with the single word %s to let the story continue as written,
or describe what your character does instead. Stay within the world's logic.
Return ONLY the word or the action, no extra commentary.`,
		session.Scene().Title(),
		room.Name, room.Description,
		snap.Present,
		strings.Join(history, "\n"),
		follow,
	)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return follow
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return follow
	}
	action := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if strings.EqualFold(strings.Trim(action, ".!"), follow) {
		return follow
	}
	return action
}
