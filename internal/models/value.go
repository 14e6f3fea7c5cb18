package models

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// VarType is the declared type of a tracked story variable.
type VarType string

const (
	TypeNumber VarType = "number"
	TypeBool   VarType = "bool"
	TypeEnum   VarType = "enum"
)

// Valid reports whether t is one of the supported variable types.
func (t VarType) Valid() bool {
	switch t {
	case TypeNumber, TypeBool, TypeEnum:
		return true
	}
	return false
}

// Value is a typed scalar held by a story variable.
// The zero Value has no type and is never stored in world state.
type Value struct {
	Type VarType
	Int  int
	Flag bool
	Text string
}

func NumberValue(n int) Value { return Value{Type: TypeNumber, Int: n} }
func BoolValue(b bool) Value { return Value{Type: TypeBool, Flag: b} }
func EnumValue(s string) Value { return Value{Type: TypeEnum, Text: s} }
func (v Value) IsZero() bool { return v.Type == "" }
func (v Value) Equal(o Value) bool { return v == o }

func (v Value) String() string {
	switch v.Type {
	case TypeNumber:
		return strconv.Itoa(v.Int)
	case TypeBool:
		return strconv.FormatBool(v.Flag)
	case TypeEnum:
		return v.Text
	}
	return "<unset>"
}

// UnmarshalYAML decodes a scalar by its resolved YAML tag.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	val, err := scalarValue(node)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	switch v.Type {
	case TypeNumber:
		return v.Int, nil
	case TypeBool:
		return v.Flag, nil
	case TypeEnum:
		return v.Text, nil
	}
	return nil, fmt.Errorf("cannot marshal untyped value")
}

func scalarValue(node *yaml.Node) (Value, error) {
	if node.Kind != yaml.ScalarNode {
		return Value{}, fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!int":
		var n int
		if err := node.Decode(&n); err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case "!!str":
		return EnumValue(node.Value), nil
	}
	return Value{}, fmt.Errorf("line %d: unsupported value %q", node.Line, node.Value)
}
