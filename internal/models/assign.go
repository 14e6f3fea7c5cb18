package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAssignment parses a "name: value" pair. The value becomes a number if
// it is an integer, a bool if it reads true or false in any case, and an
// enum string otherwise. Surrounding double quotes are dropped.
func ParseAssignment(s string) (string, Value, error) {
	key, raw, ok := strings.Cut(s, ":")
	if !ok {
		return "", Value{}, fmt.Errorf("assignment %q has no ':'", s)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", Value{}, fmt.Errorf("assignment %q has no name", s)
	}
	raw = strings.Trim(strings.TrimSpace(raw), `"`)

	if n, err := strconv.Atoi(raw); err == nil {
		return key, NumberValue(n), nil
	}
	switch strings.ToLower(raw) {
	case "true":
		return key, BoolValue(true), nil
	case "false":
		return key, BoolValue(false), nil
	}
	return key, EnumValue(raw), nil
}

// ParseAssignments parses one assignment per line, skipping blank lines.
func ParseAssignments(text string) (map[string]Value, error) {
	out := make(map[string]Value)
	for line := range strings.Lines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, val, err := ParseAssignment(line)
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}
