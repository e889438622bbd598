package config

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// FlexBool is a boolean type that can be unmarshalled from a boolean, a string, or a number.
type FlexBool bool

// UnmarshalYAML implements the yaml.Unmarshaler interface for FlexBool.
func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*fb = FlexBool(b)
	case "!!str":
		b, err := strconv.ParseBool(value.Value)
		if err != nil {
			return fmt.Errorf("cannot unmarshal string %q into FlexBool", value.Value)
		}
		*fb = FlexBool(b)
	case "!!int":
		i, err := strconv.Atoi(value.Value)
		if err != nil {
			return err
		}
		*fb = FlexBool(i != 0)
	case "!!float":
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return err
		}
		*fb = FlexBool(f != 0)
	default:
		return fmt.Errorf("cannot unmarshal %s into FlexBool", value.Tag)
	}
	return nil
}

// Toggle is a runtime-mutable boolean switch safe for concurrent use.
// It backs the live-trading on/off flag, which operators may flip while
// the bot is running.
type Toggle struct {
	v atomic.Bool
}

// NewToggle creates a Toggle with the given initial state.
func NewToggle(initial bool) *Toggle {
	t := &Toggle{}
	t.v.Store(initial)
	return t
}

// Enabled reports the current state.
func (t *Toggle) Enabled() bool {
	return t.v.Load()
}

// Set updates the state.
func (t *Toggle) Set(enabled bool) {
	t.v.Store(enabled)
}
