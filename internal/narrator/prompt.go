package narrator

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/tatianab/branching-scenes/internal/engine"
)

//go:embed prompts/generate_event.txt
var generateEventPrompt string

//go:embed prompts/suggest_actions.txt
var suggestActionsPrompt string

var (
	generateEventTmpl  = template.Must(template.New("generate_event").Parse(generateEventPrompt))
	suggestActionsTmpl = template.Must(template.New("suggest_actions").Parse(suggestActionsPrompt))
)

type promptData struct {
	SceneTitle      string
	Synopsis        string
	Room            string
	RoomDescription string
	ImagePrompt     string
	Exits           string
	Canon           string
	Route           string
	Present         string
	Cast            string
	Variables       string
	Recent          string
	Action          string
	Rejections      string
}

func newPromptData(req engine.Request) promptData {
	d := promptData{
		SceneTitle:      req.SceneTitle,
		Synopsis:        strings.TrimSpace(req.Synopsis),
		Room:            fmt.Sprintf("%s (%s)", req.Room.Name, req.Room.ID),
		RoomDescription: req.Room.Description,
		ImagePrompt:     strings.TrimSpace(req.Room.ImagePrompt),
		Route:           "(unknown)",
		Present:         "(nobody)",
		Action:          req.Action,
	}
	if len(req.Route) > 0 {
		d.Route = strings.Join(req.Route, " -> ")
	}
	if len(req.State.Present) > 0 {
		d.Present = strings.Join(req.State.Present, ", ")
	}

	var b strings.Builder
	for _, dir := range slices.Sorted(maps.Keys(req.Room.Exits)) {
		fmt.Fprintf(&b, "- %s: %s\n", dir, req.Room.Exits[dir])
	}
	for _, n := range req.Neighbours {
		fmt.Fprintf(&b, "  %s is %s: %s\n", n.ID, n.Name, n.Description)
	}
	d.Exits = orNone(b.String())

	b.Reset()
	for _, e := range req.Canon {
		fmt.Fprintf(&b, "- %s\n", e.Description)
	}
	d.Canon = orNone(b.String())

	b.Reset()
	for _, c := range req.Cast {
		fmt.Fprintf(&b, "- %s: %s. %s\n", c.ID, c.Name, c.Description)
	}
	d.Cast = orNone(b.String())

	b.Reset()
	for _, v := range req.Variables {
		fmt.Fprintf(&b, "- %s (%s", v.Name, v.Type)
		if len(v.Options) > 0 {
			fmt.Fprintf(&b, ": one of %s", strings.Join(v.Options, ", "))
		}
		fmt.Fprintf(&b, ") = %s", req.State.Vars[v.Name])
		if v.Description != "" {
			fmt.Fprintf(&b, "  # %s", v.Description)
		}
		b.WriteString("\n")
	}
	d.Variables = orNone(b.String())

	b.Reset()
	for _, e := range req.Recent {
		fmt.Fprintf(&b, "- [%s] %s", e.Room, strings.TrimSpace(e.Description))
		if e.Cause != "" {
			fmt.Fprintf(&b, " (player: %s)", e.Cause)
		}
		if len(e.Delta) > 0 {
			var parts []string
			for _, name := range e.Delta.Names() {
				parts = append(parts, fmt.Sprintf("%s %s", name, e.Delta[name]))
			}
			fmt.Fprintf(&b, " {%s}", strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
	d.Recent = orNone(b.String())

	b.Reset()
	for _, r := range req.Rejections {
		fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(r, "\n", "; "))
	}
	d.Rejections = b.String()
	return d
}

func orNone(s string) string {
	if s == "" {
		return "(none)\n"
	}
	return s
}

func render(tmpl *template.Template, req engine.Request) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newPromptData(req)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
