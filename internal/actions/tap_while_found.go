package actions

import (
	"fmt"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
)

// TapWhileFound taps a sprite until it disappears.
// The first locate uses the sprite's settings; rechecks after each tap use
// recheck_attempts and recheck_delay_ms. Never finding the sprite is not an error.
type TapWhileFound struct {
	SpriteTarget    `yaml:",inline"`
	RecheckAttempts int                  `yaml:"recheck_attempts,omitempty"` // Default: 1
	RecheckDelayMS  int                  `yaml:"recheck_delay_ms,omitempty"`
	MaxTaps         int                  `yaml:"max_taps,omitempty"` // Default: 10
	Policy          *gesture.PointPolicy `yaml:"policy,omitempty"`
	Offset          gesture.Offset       `yaml:"offset,omitempty"`
	SettleMS        *int                 `yaml:"settle_ms,omitempty"`
}

const defaultMaxTaps = 10

func (a *TapWhileFound) Validate(ab *ActionBuilder) error {
	if err := a.SpriteTarget.validate(ab); err != nil {
		return err
	}
	if a.RecheckAttempts < 0 {
		return fmt.Errorf("recheck_attempts (%d) must not be negative", a.RecheckAttempts)
	}
	if a.RecheckDelayMS < 0 {
		return fmt.Errorf("recheck_delay_ms (%d) must not be negative", a.RecheckDelayMS)
	}
	if a.MaxTaps < 0 {
		return fmt.Errorf("max_taps (%d) must not be negative", a.MaxTaps)
	}
	return validateSettle(a.SettleMS)
}

func (a *TapWhileFound) Build(ab *ActionBuilder) *ActionBuilder {
	maxTaps := a.MaxTaps
	if maxTaps == 0 {
		maxTaps = defaultMaxTaps
	}
	recheckAttempts := a.RecheckAttempts
	if recheckAttempts == 0 {
		recheckAttempts = 1
	}
	recheck := []cv.Option{
		cv.WithMaxAttempts(recheckAttempts),
		cv.WithRetryDelay(time.Duration(a.RecheckDelayMS) * time.Millisecond),
	}

	return ab.add(Step{
		name: fmt.Sprintf("TapWhileFound (%s)", a.Sprite),
		execute: func(bot BotInterface) error {
			outcome, err := a.locate(bot)
			if err != nil {
				return err
			}

			policy := policyOrDefault(bot, a.Policy)
			taps := 0
			for outcome.Found {
				if taps >= maxTaps {
					return fmt.Errorf("sprite %s still visible after %d taps", a.Sprite, maxTaps)
				}

				point := bot.Gestures().ResolvePoint(outcome.Region, policy)
				if _, err := bot.Gestures().DispatchTap(bot.Context(), point, a.Offset, settleOrDefault(a.SettleMS)); err != nil {
					return err
				}
				taps++

				outcome, err = a.locate(bot, recheck...)
				if err != nil {
					return err
				}
			}

			bot.Logger().Debugf("Sprite %s gone after %d taps", a.Sprite, taps)
			return nil
		},
		issue: a.Validate(ab),
	})
}
