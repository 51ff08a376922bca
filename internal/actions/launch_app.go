package actions

import (
	"fmt"
	"time"
)

// LaunchApp starts an app, optionally force-stopping it first
type LaunchApp struct {
	Package      string `yaml:"package"`
	ForceRestart bool   `yaml:"force_restart,omitempty"`
	WaitMS       int    `yaml:"wait_ms,omitempty"` // Pause after launching
}

func (a *LaunchApp) Validate(ab *ActionBuilder) error {
	if a.Package == "" {
		return fmt.Errorf("package is required")
	}
	if a.WaitMS < 0 {
		return fmt.Errorf("wait_ms (%d) must not be negative", a.WaitMS)
	}
	return nil
}

func (a *LaunchApp) Build(ab *ActionBuilder) *ActionBuilder {
	return ab.add(Step{
		name: fmt.Sprintf("LaunchApp (%s)", a.Package),
		execute: func(bot BotInterface) error {
			pkg, err := InterpolateString(a.Package, bot)
			if err != nil {
				return err
			}

			ctx := bot.Context()
			if a.ForceRestart {
				if err := bot.Device().ForceStop(ctx, pkg); err != nil {
					return err
				}
			}
			if err := bot.Device().LaunchApp(ctx, pkg); err != nil {
				return err
			}
			if a.WaitMS > 0 {
				return bot.Sleep(ctx, time.Duration(a.WaitMS)*time.Millisecond)
			}
			return nil
		},
		issue: a.Validate(ab),
	})
}
