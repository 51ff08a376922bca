package actions

import (
	"fmt"
	"strings"
)

// IfVariable runs Steps when a variable matches, otherwise Else.
// equals compares the interpolated value; not_empty checks for a non-blank value.
type IfVariable struct {
	Variable string       `yaml:"variable"`
	Equals   *string      `yaml:"equals,omitempty"`
	NotEmpty bool         `yaml:"not_empty,omitempty"`
	Steps    []ActionStep `yaml:"steps"`
	Else     []ActionStep `yaml:"else,omitempty"`
}

// UnmarshalYAML handles the polymorphic nested steps
func (a *IfVariable) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if name, ok := raw["variable"].(string); ok {
		a.Variable = name
	}
	if equals, ok := raw["equals"]; ok && equals != nil {
		s := fmt.Sprint(equals)
		a.Equals = &s
	}
	if notEmpty, ok := raw["not_empty"].(bool); ok {
		a.NotEmpty = notEmpty
	}

	var err error
	if a.Steps, err = unmarshalNestedActions(raw["steps"]); err != nil {
		return fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if a.Else, err = unmarshalNestedActions(raw["else"]); err != nil {
		return fmt.Errorf("failed to unmarshal else steps: %w", err)
	}
	return nil
}

func (a *IfVariable) Validate(ab *ActionBuilder) error {
	if a.Variable == "" {
		return fmt.Errorf("variable is required")
	}
	if a.Equals == nil && !a.NotEmpty {
		return fmt.Errorf("if_variable (%s) needs equals or not_empty", a.Variable)
	}
	if a.Equals != nil && a.NotEmpty {
		return fmt.Errorf("if_variable (%s) cannot use both equals and not_empty", a.Variable)
	}
	if len(a.Steps) == 0 && len(a.Else) == 0 {
		return fmt.Errorf("if_variable (%s) has no steps", a.Variable)
	}

	for i, action := range a.Steps {
		if err := action.Validate(ab); err != nil {
			return fmt.Errorf("if_variable (%s) -> step %d: %w", a.Variable, i+1, err)
		}
	}
	for i, action := range a.Else {
		if err := action.Validate(ab); err != nil {
			return fmt.Errorf("if_variable (%s) -> else step %d: %w", a.Variable, i+1, err)
		}
	}
	return nil
}

func (a *IfVariable) matches(bot BotInterface) bool {
	value, _ := bot.Variables().Get(a.Variable)
	if a.NotEmpty {
		return strings.TrimSpace(value) != ""
	}
	return value == *a.Equals
}

func (a *IfVariable) Build(ab *ActionBuilder) *ActionBuilder {
	issue := a.Validate(ab)
	var then, otherwise []Step
	if issue == nil {
		then = ab.buildSteps(a.Steps)
		otherwise = ab.buildSteps(a.Else)
	}

	return ab.add(Step{
		name: fmt.Sprintf("IfVariable (%s)", a.Variable),
		execute: func(bot BotInterface) error {
			branch, label := otherwise, "else"
			if a.matches(bot) {
				branch, label = then, "then"
			}
			if len(branch) == 0 {
				return nil
			}
			return runSteps(bot.Context(), fmt.Sprintf("if %s/%s", a.Variable, label), branch, bot)
		},
		issue: issue,
	})
}
