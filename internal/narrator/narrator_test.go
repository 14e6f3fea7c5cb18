package narrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/tatianab/branching-scenes/internal/engine"
	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

func TestCleanYAML(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare", "a: 1\n", "a: 1"},
		{"fenced", "```yaml\na: 1\n```", "a: 1"},
		{"fenced no lang", "```\na: 1\n```", "a: 1"},
		{"chatter", "Sure! Here you go:\n```yaml\na: 1\n```\nEnjoy.", "a: 1"},
		{"unterminated", "```yaml\na: 1\n", "a: 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanYAML(tt.in); got != tt.want {
				t.Errorf("cleanYAML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCandidate(t *testing.T) {
	text := "```yaml\n" + `description: |
  Kael slips past the guard.
room: armory
participants: [kael, imre]
delta:
  alarm: true
  casualties: +1
introduces:
  - id: vex
    name: Vex
    description: A nervous quartermaster.
departures: [imre]
concludes: false
` + "```"
	c, err := parseCandidate(text)
	if err != nil {
		t.Fatal(err)
	}
	if c.Description != "Kael slips past the guard." {
		t.Errorf("Description = %q", c.Description)
	}
	if c.Room != "armory" {
		t.Errorf("Room = %q", c.Room)
	}
	if !slices.Equal(c.Participants, []string{"kael", "imre"}) {
		t.Errorf("Participants = %v", c.Participants)
	}
	if got := c.Delta["alarm"]; got != models.Set(models.BoolValue(true)) {
		t.Errorf("alarm = %v", got)
	}
	if got := c.Delta["casualties"]; got != models.Add(1) {
		t.Errorf("casualties = %v", got)
	}
	if len(c.Introduces) != 1 || c.Introduces[0].ID != "vex" {
		t.Errorf("Introduces = %+v", c.Introduces)
	}
	if !slices.Equal(c.Departures, []string{"imre"}) {
		t.Errorf("Departures = %v", c.Departures)
	}
}

func TestParseCandidateChangedVariables(t *testing.T) {
	text := `description: The alarm sounds.
room: hangar
delta:
  alarm: false
changed_variables:
  - "alarm: true"
  - "oren_stance: hostile"
`
	c, err := parseCandidate(text)
	if err != nil {
		t.Fatal(err)
	}
	// delta wins over the list form
	if got := c.Delta["alarm"]; got != models.Set(models.BoolValue(false)) {
		t.Errorf("alarm = %v", got)
	}
	if got := c.Delta["oren_stance"]; got != models.Set(models.EnumValue("hostile")) {
		t.Errorf("oren_stance = %v", got)
	}
}

func TestParseCandidateErrors(t *testing.T) {
	for _, text := range []string{
		"description: [unterminated",
		"description: x\nchanged_variables: [\"no colon\"]",
	} {
		if _, err := parseCandidate(text); err == nil {
			t.Errorf("parseCandidate(%q) succeeded", text)
		}
	}
}

func TestParseSuggestions(t *testing.T) {
	got, err := parseSuggestions("```yaml\nactions:\n  - Run.\n  - \"  \"\n  - Hide.\n```")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Run.", "Hide."}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func testRequest() engine.Request {
	return engine.Request{
		SceneTitle: "Boarding",
		Synopsis:   "A ship is taken.",
		Room: models.Room{
			ID: "hangar", Name: "Hangar", Description: "Cold and loud.",
			ImagePrompt: "a dim hangar lit by warning lamps",
			Exits: map[models.Direction]string{models.North: "spine", models.East: "armory"},
		},
		Neighbours: []models.Room{{ID: "armory", Name: "Armory"}, {ID: "spine", Name: "Spine"}},
		Canon:      []models.Event{{ID: "e1", Description: "The doors open."}},
		Route:      []string{"hangar", "armory", "bridge"},
		Recent: []models.Event{{
			ID: "e1", Room: "hangar", Description: "The doors open.",
			Delta: models.Delta{"alarm": models.Set(models.BoolValue(true))},
		}},
		State: world.Snapshot{
			Room:    "hangar",
			Present: []string{"kael"},
			Vars:    map[string]models.Value{"alarm": models.BoolValue(true)},
		},
		Variables: []models.Variable{
			{Name: "alarm", Type: models.TypeBool},
			{Name: "stance", Type: models.TypeEnum, Options: []string{"calm", "hostile"}, Initial: models.EnumValue("calm")},
		},
		Cast:       []models.Character{{ID: "kael", Name: "Kael"}},
		Action:     "Seal the doors",
		Attempt:    2,
		Rejections: []string{"unknown room \"moon\""},
	}
}

func TestRenderGenerateEvent(t *testing.T) {
	prompt, err := render(generateEventTmpl, testRequest())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Boarding",
		"Hangar (hangar)",
		"- east: armory\n- north: spine",
		"What it looks like: a dim hangar lit by warning lamps",
		"route through the scene: hangar -> armory -> bridge",
		"PLAYER ACTION: Seal the doors",
		"one of calm, hostile",
		"- kael: Kael.",
		"{alarm true}",
		`unknown room "moon"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q:\n%s", want, prompt)
		}
	}
}

func TestRenderFollow(t *testing.T) {
	req := testRequest()
	req.Action = ""
	req.Rejections = nil
	prompt, err := render(generateEventTmpl, req)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(prompt, "PLAYER ACTION") || strings.Contains(prompt, "were rejected") {
		t.Errorf("unexpected sections in prompt:\n%s", prompt)
	}
	req.Room.ImagePrompt = ""
	req.Route = nil
	prompt, err = render(generateEventTmpl, req)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(prompt, "What it looks like") || !strings.Contains(prompt, "route through the scene: (unknown)") {
		t.Errorf("room without image or route:\n%s", prompt)
	}
	if !strings.Contains(prompt, "The player waits.") {
		t.Errorf("prompt does not continue the story:\n%s", prompt)
	}
}

type fakeBackend struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeBackend) complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}
func (f *fakeBackend) name() string { return "fake" }
func (f *fakeBackend) close() error { return nil }

func newTestNarrator(b backend) *Narrator {
	return &Narrator{backend: b, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestNarratorGenerate(t *testing.T) {
	b := &fakeBackend{reply: "description: Doors shut.\nroom: hangar\n"}
	n := newTestNarrator(b)
	c, err := n.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if c.Description != "Doors shut." || c.Room != "hangar" {
		t.Errorf("got %+v", c)
	}
	if len(b.prompts) != 1 || !strings.Contains(b.prompts[0], "Seal the doors") {
		t.Errorf("prompts = %q", b.prompts)
	}
}

func TestNarratorSuggest(t *testing.T) {
	n := newTestNarrator(&fakeBackend{reply: "actions: [Run., Hide.]"})
	got, err := n.Suggest(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %v", got)
	}
}

func TestNarratorBackendError(t *testing.T) {
	boom := errors.New("boom")
	n := newTestNarrator(&fakeBackend{err: boom})
	if _, err := n.Generate(context.Background(), testRequest()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
