package models

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const transcriptFile = "transcript.yaml"

// TranscriptEntry is one committed event as the player experienced it.
type TranscriptEntry struct {
	Index        int               `yaml:"index"`
	EventID      string            `yaml:"event_id"`
	Room         string            `yaml:"room"`
	Canonical    bool              `yaml:"canonical"`
	Cause        string            `yaml:"cause,omitempty"`
	Description  string            `yaml:"description"`
	Participants []string          `yaml:"participants,omitempty"`
	Changes      map[string]Change `yaml:"changes,omitempty"`
}

// Transcript is a write-only record of a playthrough. It is not a save file:
// sessions cannot be resumed from it.
type Transcript struct {
	Scene    string            `yaml:"scene"`
	Title    string            `yaml:"title"`
	Diverged bool              `yaml:"diverged"`
	Entries  []TranscriptEntry `yaml:"entries"`
	Final    map[string]Value  `yaml:"final"`
}

// Save writes the transcript to dir/name/transcript.yaml.
func (t *Transcript) Save(dir, name string) error {
	target := filepath.Join(dir, name)
	if err := os.MkdirAll(target, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(target, transcriptFile), data, 0644)
}

// ListTranscripts returns the names of saved transcripts under dir.
func ListTranscripts(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), transcriptFile)); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
