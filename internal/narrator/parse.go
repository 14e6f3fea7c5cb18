package narrator

import (
	"fmt"
	"strings"

	"github.com/tatianab/branching-scenes/internal/engine"
	"github.com/tatianab/branching-scenes/internal/models"
	"gopkg.in/yaml.v3"
)

// cleanYAML strips the Markdown fence models like to wrap around YAML, along
// with any chatter before or after it.
func cleanYAML(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
		text = strings.TrimPrefix(text, "yaml")
		text = strings.TrimPrefix(text, "yml")
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	return strings.TrimSpace(text)
}

type candidateYAML struct {
	Description  string             `yaml:"description"`
	Room         string             `yaml:"room"`
	Participants []string           `yaml:"participants"`
	Delta        models.Delta       `yaml:"delta"`
	Introduces   []models.Character `yaml:"introduces"`
	Departures   []string           `yaml:"departures"`
	Concludes    bool               `yaml:"concludes"`

	// Some models fall back to a list of "name: value" strings.
	ChangedVariables []string `yaml:"changed_variables"`
}

func parseCandidate(text string) (engine.Candidate, error) {
	clean := cleanYAML(text)
	var raw candidateYAML
	if err := yaml.Unmarshal([]byte(clean), &raw); err != nil {
		return engine.Candidate{}, fmt.Errorf("failed to parse event YAML: %v\nOutput was: %s", err, clean)
	}

	delta := raw.Delta.Clone()
	if delta == nil {
		delta = make(models.Delta)
	}
	for _, line := range raw.ChangedVariables {
		name, v, err := models.ParseAssignment(line)
		if err != nil {
			return engine.Candidate{}, fmt.Errorf("changed_variables: %w", err)
		}
		if _, ok := delta[name]; !ok {
			delta[name] = models.Set(v)
		}
	}
	if len(delta) == 0 {
		delta = nil
	}

	return engine.Candidate{
		Description:  strings.TrimSpace(raw.Description),
		Room:         strings.TrimSpace(raw.Room),
		Participants: raw.Participants,
		Delta:        delta,
		Introduces:   raw.Introduces,
		Departures:   raw.Departures,
		Concludes:    raw.Concludes,
	}, nil
}

func parseSuggestions(text string) ([]string, error) {
	clean := cleanYAML(text)
	var raw struct {
		Actions []string `yaml:"actions"`
	}
	if err := yaml.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions YAML: %v\nOutput was: %s", err, clean)
	}
	var out []string
	for _, a := range raw.Actions {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out, nil
}
