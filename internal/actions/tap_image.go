package actions

import (
	"fmt"

	"jordanella.com/offer-story-go/internal/gesture"
)

// TapImage locates a sprite (or recalls a remembered region) and taps it
// count times, resolving a fresh point inside the region for every tap
type TapImage struct {
	SpriteTarget `yaml:",inline"`
	Recall       string               `yaml:"recall,omitempty"` // Use a remembered region instead of locating
	Remember     string               `yaml:"remember,omitempty"`
	Policy       *gesture.PointPolicy `yaml:"policy,omitempty"`
	Offset       gesture.Offset       `yaml:"offset,omitempty"`
	Count        int                  `yaml:"count,omitempty"` // Default: 1
	SettleMS     *int                 `yaml:"settle_ms,omitempty"`
	Optional     bool                 `yaml:"optional,omitempty"`
}

func (a *TapImage) Validate(ab *ActionBuilder) error {
	if a.Recall == "" {
		if err := a.SpriteTarget.validate(ab); err != nil {
			return err
		}
	}
	if a.Count < 0 {
		return fmt.Errorf("count (%d) must not be negative", a.Count)
	}
	return validateSettle(a.SettleMS)
}

func (a *TapImage) label() string {
	if a.Recall != "" {
		return a.Recall
	}
	return a.Sprite
}

func (a *TapImage) Build(ab *ActionBuilder) *ActionBuilder {
	count := a.Count
	if count == 0 {
		count = 1
	}

	return ab.add(Step{
		name: fmt.Sprintf("TapImage (%s)", a.label()),
		execute: func(bot BotInterface) error {
			region, err := resolveRegion(bot, a.SpriteTarget, a.Recall)
			if err != nil {
				if skippable(err, a.Optional) {
					bot.Logger().Infof("Sprite %s not found, skipping tap", a.Sprite)
					return nil
				}
				return err
			}

			if a.Remember != "" {
				bot.Regions().Remember(a.Remember, region)
			}

			policy := policyOrDefault(bot, a.Policy)
			for i := 0; i < count; i++ {
				point := bot.Gestures().ResolvePoint(region, policy)
				if _, err := bot.Gestures().DispatchTap(bot.Context(), point, a.Offset, settleOrDefault(a.SettleMS)); err != nil {
					return err
				}
			}
			return nil
		},
		issue: a.Validate(ab),
	})
}
