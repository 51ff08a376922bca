package actions

import (
	"fmt"
	"strconv"
)

// FindImage waits for a sprite to appear.
// With set_variable the result is stored as "true"/"false" and a miss is not a failure.
type FindImage struct {
	SpriteTarget `yaml:",inline"`
	Optional     bool   `yaml:"optional,omitempty"`
	Remember     string `yaml:"remember,omitempty"`     // Store the found region under this name
	SetVariable  string `yaml:"set_variable,omitempty"` // Store "true" or "false"
}

func (a *FindImage) Validate(ab *ActionBuilder) error {
	return a.SpriteTarget.validate(ab)
}

func (a *FindImage) Build(ab *ActionBuilder) *ActionBuilder {
	return ab.add(Step{
		name: fmt.Sprintf("FindImage (%s)", a.Sprite),
		execute: func(bot BotInterface) error {
			outcome, err := a.locate(bot)
			if err != nil {
				return err
			}

			if a.SetVariable != "" {
				bot.Variables().Set(a.SetVariable, strconv.FormatBool(outcome.Found))
			}
			if !outcome.Found {
				if a.Optional || a.SetVariable != "" {
					bot.Logger().Infof("Sprite %s not found, continuing", a.Sprite)
					return nil
				}
				return outcome.Err()
			}

			if a.Remember != "" {
				bot.Regions().Remember(a.Remember, outcome.Region)
			}
			return nil
		},
		issue: a.Validate(ab),
	})
}
