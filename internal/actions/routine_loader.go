package actions

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed routines/*.yaml
var builtinRoutines embed.FS

type RoutineLoader struct {
	sprites SpriteChecker // Optional: for build-time validation
}

func NewRoutineLoader() *RoutineLoader {
	return &RoutineLoader{}
}

// WithSprites sets the sprite registry for build-time validation
func (rl *RoutineLoader) WithSprites(sprites SpriteChecker) *RoutineLoader {
	rl.sprites = sprites
	return rl
}

// LoadFromFile reads a YAML file, validates all actions, and builds the
// executable ActionBuilder
func (rl *RoutineLoader) LoadFromFile(path string) (*ActionBuilder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routine file %s: %w", path, err)
	}
	return rl.LoadFromBytes(data)
}

// LoadBuiltin loads one of the routines shipped with the binary, e.g. "story"
func (rl *RoutineLoader) LoadBuiltin(name string) (*ActionBuilder, error) {
	data, err := builtinRoutines.ReadFile("routines/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown built-in routine %q: %w", name, err)
	}
	return rl.LoadFromBytes(data)
}

// LoadFromBytes parses and builds a routine from YAML data
func (rl *RoutineLoader) LoadFromBytes(data []byte) (*ActionBuilder, error) {
	var routine Routine
	if err := yaml.Unmarshal(data, &routine); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routine YAML: %w", err)
	}
	if len(routine.Steps) == 0 {
		return nil, fmt.Errorf("routine '%s' has no steps", routine.RoutineName)
	}

	ab := NewActionBuilder()
	ab.name = routine.RoutineName
	if rl.sprites != nil {
		ab.WithSprites(rl.sprites)
	}

	for i, action := range routine.Steps {
		// Fails fast on invalid configuration
		if err := action.Validate(ab); err != nil {
			return nil, fmt.Errorf("routine '%s' step %d validation failed: %w", routine.RoutineName, i+1, err)
		}
		ab = action.Build(ab)
	}

	return ab, nil
}
