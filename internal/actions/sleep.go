package actions

import (
	"fmt"
	"time"
)

type Sleep struct {
	Duration int `yaml:"duration"` // milliseconds
}

func (a *Sleep) Validate(ab *ActionBuilder) error {
	if a.Duration <= 0 {
		return fmt.Errorf("duration (%d) must be greater than 0", a.Duration)
	}
	return nil
}

func (a *Sleep) Build(ab *ActionBuilder) *ActionBuilder {
	return ab.add(Step{
		name: "Sleep",
		execute: func(bot BotInterface) error {
			return bot.Sleep(bot.Context(), time.Duration(a.Duration)*time.Millisecond)
		},
		issue: a.Validate(ab),
	})
}
