package actions

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Routine holds the entire routine definition from the YAML file
type Routine struct {
	RoutineName string       `yaml:"routine_name"`
	Description string       `yaml:"description,omitempty"`
	Steps       []ActionStep `yaml:"steps"`
}

// withTimeout wraps an ActionStep with a per-step timeout
type withTimeout struct {
	Action  ActionStep
	Timeout time.Duration
}

func (a *withTimeout) Validate(ab *ActionBuilder) error {
	return a.Action.Validate(ab)
}

func (a *withTimeout) Build(ab *ActionBuilder) *ActionBuilder {
	ab = a.Action.Build(ab)
	if len(ab.steps) > 0 {
		ab.steps[len(ab.steps)-1].timeout = a.Timeout
	}
	return ab
}

// UnmarshalYAML maps each step to its concrete type using the 'action' field
func (r *Routine) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if name, ok := raw["routine_name"].(string); ok {
		r.RoutineName = name
	}
	if desc, ok := raw["description"].(string); ok {
		r.Description = desc
	}

	steps, err := unmarshalNestedActions(raw["steps"])
	if err != nil {
		return err
	}
	r.Steps = steps
	return nil
}

func normalizeActionName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := actionRegistry[name]; ok {
		return name
	}
	// Accept "TapImage" and "tapimage" for "tap_image"
	compact := strings.ReplaceAll(name, "_", "")
	for registered := range actionRegistry {
		if strings.ReplaceAll(registered, "_", "") == compact {
			return registered
		}
	}
	return name
}

// unmarshalNestedActions converts a raw YAML list into concrete ActionSteps
func unmarshalNestedActions(stepsRaw interface{}) ([]ActionStep, error) {
	if stepsRaw == nil {
		return nil, nil
	}

	stepsSlice, ok := stepsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("'steps' field must be a list")
	}

	steps := make([]ActionStep, len(stepsSlice))
	for i, raw := range stepsSlice {
		rawStep, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("step %d: must be a map/object", i+1)
		}

		actionType, ok := rawStep["action"].(string)
		if !ok || actionType == "" {
			return nil, fmt.Errorf("step %d: missing or invalid 'action' field", i+1)
		}

		stepType, found := actionRegistry[normalizeActionName(actionType)]
		if !found {
			return nil, fmt.Errorf("step %d: unknown action type '%s' (available types: %v)", i+1, actionType, getRegisteredActions())
		}

		var timeout time.Duration
		if timeoutMs, ok := rawStep["timeout_ms"].(int); ok {
			timeout = time.Duration(timeoutMs) * time.Millisecond
		}
		delete(rawStep, "action")
		delete(rawStep, "timeout_ms")

		action := reflect.New(stepType).Interface().(ActionStep)

		// Marshal the raw map back to YAML, then unmarshal it into the concrete struct
		stepBytes, err := yaml.Marshal(rawStep)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): error marshaling raw step: %w", i+1, actionType, err)
		}
		if err := yaml.Unmarshal(stepBytes, action); err != nil {
			return nil, fmt.Errorf("step %d (%s): error unmarshaling into %T: %w", i+1, actionType, action, err)
		}

		if timeout > 0 {
			steps[i] = &withTimeout{Action: action, Timeout: timeout}
		} else {
			steps[i] = action
		}
	}

	return steps, nil
}
