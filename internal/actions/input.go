package actions

import "fmt"

// InputText types interpolated text into the focused field
type InputText struct {
	Text      string `yaml:"text"`
	SkipEmpty bool   `yaml:"skip_empty,omitempty"` // Do nothing when the text resolves to ""
}

func (a *InputText) Validate(ab *ActionBuilder) error {
	if a.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

func (a *InputText) Build(ab *ActionBuilder) *ActionBuilder {
	return ab.add(Step{
		name: "InputText",
		execute: func(bot BotInterface) error {
			text, err := InterpolateString(a.Text, bot)
			if err != nil {
				return err
			}
			if text == "" && a.SkipEmpty {
				return nil
			}
			return bot.Device().InputText(bot.Context(), text)
		},
		issue: a.Validate(ab),
	})
}
