package models

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Op is the kind of change an Effect makes to a variable.
type Op string

const (
	OpSet Op = "set"
	OpAdd Op = "add"
)

// Effect is a single variable change: replace the value, or add a signed
// amount to a number.
type Effect struct {
	Op    Op
	Value Value
}

func Set(v Value) Effect { return Effect{Op: OpSet, Value: v} }
func Add(n int) Effect { return Effect{Op: OpAdd, Value: NumberValue(n)} }

func (e Effect) String() string {
	if e.Op == OpAdd {
		return fmt.Sprintf("%+d", e.Value.Int)
	}
	return e.Value.String()
}

// UnmarshalYAML accepts a plain scalar (set), a scalar written with an
// explicit sign such as +1 or "-2" (add), or a {set: v} / {add: n} mapping.
func (e *Effect) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if n, ok := relative(node); ok {
			*e = Add(n)
			return nil
		}
		val, err := scalarValue(node)
		if err != nil {
			return err
		}
		*e = Set(val)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Set *yaml.Node `yaml:"set"`
			Add *int       `yaml:"add"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		switch {
		case raw.Set != nil && raw.Add != nil:
			return fmt.Errorf("line %d: effect has both set and add", node.Line)
		case raw.Add != nil:
			*e = Add(*raw.Add)
			return nil
		case raw.Set != nil:
			val, err := scalarValue(raw.Set)
			if err != nil {
				return err
			}
			*e = Set(val)
			return nil
		}
		return fmt.Errorf("line %d: effect needs set or add", node.Line)
	}
	return fmt.Errorf("line %d: malformed effect", node.Line)
}

func (e Effect) MarshalYAML() (any, error) {
	if e.Op == OpAdd {
		return fmt.Sprintf("%+d", e.Value.Int), nil
	}
	return e.Value.MarshalYAML()
}

func relative(node *yaml.Node) (int, bool) {
	s := node.Value
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	if tag := node.ShortTag(); tag != "!!int" && tag != "!!str" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Delta maps variable names to the effect an event has on them.
type Delta map[string]Effect

// Names returns the variable names in d in sorted order.
func (d Delta) Names() []string {
	return slices.Sorted(maps.Keys(d))
}

func (d Delta) Clone() Delta {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Change records a variable's value before and after an event.
type Change struct {
	From Value `yaml:"from"`
	To   Value `yaml:"to"`
}
