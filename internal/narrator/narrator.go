// Package narrator turns engine requests into prompts for a hosted language
// model and parses the model's YAML answers back into candidate events.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/tatianab/branching-scenes/internal/config"
	"github.com/tatianab/branching-scenes/internal/engine"
)

var errNoContent = errors.New("no content returned from model")

// backend sends one prompt to a model and returns its text reply.
type backend interface {
	complete(ctx context.Context, prompt string) (string, error)
	name() string
	close() error
}

// Narrator implements engine.Generator and engine.Suggester on top of a
// language model.
type Narrator struct {
	backend backend
	logger  *slog.Logger
}

var (
	_ engine.Generator = (*Narrator)(nil)
	_ engine.Suggester = (*Narrator)(nil)
)

// New builds the narrator selected by cfg.Provider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Narrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		b, err = newGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.ProviderOpenAI:
		b = newOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unknown narrator provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &Narrator{backend: b, logger: logger.With("narrator", b.name())}, nil
}

func (n *Narrator) Close() error {
	return n.backend.close()
}

func (n *Narrator) Generate(ctx context.Context, req engine.Request) (engine.Candidate, error) {
	text, err := n.ask(ctx, generateEventTmpl, req)
	if err != nil {
		return engine.Candidate{}, err
	}
	return parseCandidate(text)
}

func (n *Narrator) Suggest(ctx context.Context, req engine.Request) ([]string, error) {
	text, err := n.ask(ctx, suggestActionsTmpl, req)
	if err != nil {
		return nil, err
	}
	return parseSuggestions(text)
}

func (n *Narrator) ask(ctx context.Context, tmpl *template.Template, req engine.Request) (string, error) {
	prompt, err := render(tmpl, req)
	if err != nil {
		return "", err
	}
	n.logger.Debug("prompt", "template", tmpl.Name(), "attempt", req.Attempt, "bytes", len(prompt))
	text, err := n.backend.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	n.logger.Debug("reply", "template", tmpl.Name(), "text", text)
	return text, nil
}
