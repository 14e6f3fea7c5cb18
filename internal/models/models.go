package models

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Variable is a story-relevant fact tracked across a playthrough.
type Variable struct {
	Name        string   `yaml:"name"`
	Type        VarType  `yaml:"type"`
	Initial     Value    `yaml:"initial"`
	Options     []string `yaml:"options,omitempty"` // allowed enum values; empty means any
	Description string   `yaml:"description,omitempty"`
}

// UnmarshalYAML accepts either the full mapping form or the "name: value"
// shorthand, in which case the type is inferred from the value.
func (v *Variable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		name, val, err := ParseAssignment(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*v = Variable{Name: name, Type: val.Type, Initial: val}
		return nil
	}

	type plain Variable
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = Variable(p)
	if v.Type == "" {
		v.Type = v.Initial.Type
	}
	if v.Initial.IsZero() {
		v.Initial = v.zero()
	}
	return nil
}

func (v Variable) zero() Value {
	switch v.Type {
	case TypeNumber:
		return NumberValue(0)
	case TypeBool:
		return BoolValue(false)
	case TypeEnum:
		if len(v.Options) > 0 {
			return EnumValue(v.Options[0])
		}
		return EnumValue("")
	}
	return Value{}
}

// Accepts reports whether val can be stored in v.
func (v Variable) Accepts(val Value) bool {
	if val.Type != v.Type {
		return false
	}
	if v.Type == TypeEnum && len(v.Options) > 0 {
		return slices.Contains(v.Options, val.Text)
	}
	return true
}

// Character is someone who can take part in events.
type Character struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Direction names an exit out of a room.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

// Room is a location in a scene. Events lists the canonical events that take
// place in the room in story order; it is filled in when the scene is loaded.
type Room struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	ImagePrompt string               `yaml:"image_prompt,omitempty"`
	Exits       map[Direction]string `yaml:"exits,omitempty"`
	Events      []string             `yaml:"-"`
}

// Connects reports whether an exit leads from r to the room with the given id.
func (r Room) Connects(to string) bool {
	for _, id := range r.Exits {
		if id == to {
			return true
		}
	}
	return false
}

// Event is something that happens in a room. Canonical events come from the
// scene definition; generated events are produced when the player deviates.
// Both are immutable once created.
type Event struct {
	ID           string      `yaml:"id"`
	Room         string      `yaml:"room"`
	Participants []string    `yaml:"participants,omitempty"`
	Description  string      `yaml:"description"`
	Delta        Delta       `yaml:"delta,omitempty"`
	Departures   []string    `yaml:"departures,omitempty"`
	Introduces   []Character `yaml:"introduces,omitempty"`
	Canonical    bool        `yaml:"canonical,omitempty"`
	Cause        string      `yaml:"cause,omitempty"`     // player action that produced a generated event
	Concludes    bool        `yaml:"concludes,omitempty"` // generated event that closes the scene
}

// Clone returns a copy of e that shares no slices or maps with it.
func (e Event) Clone() Event {
	e.Participants = slices.Clone(e.Participants)
	e.Departures = slices.Clone(e.Departures)
	e.Introduces = slices.Clone(e.Introduces)
	e.Delta = e.Delta.Clone()
	return e
}
