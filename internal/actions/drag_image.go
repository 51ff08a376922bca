package actions

import (
	"fmt"
	"time"

	"jordanella.com/offer-story-go/internal/gesture"
)

// DragImage drags from a point inside a sprite (or remembered region) by delta
type DragImage struct {
	SpriteTarget `yaml:",inline"`
	Recall       string               `yaml:"recall,omitempty"`
	Policy       *gesture.PointPolicy `yaml:"policy,omitempty"`
	Delta        gesture.Offset       `yaml:"delta"`
	DurationMS   int                  `yaml:"duration_ms"`
	SettleMS     *int                 `yaml:"settle_ms,omitempty"`
}

func (a *DragImage) Validate(ab *ActionBuilder) error {
	if a.Recall == "" {
		if err := a.SpriteTarget.validate(ab); err != nil {
			return err
		}
	}
	if a.DurationMS < 0 {
		return fmt.Errorf("duration_ms (%d) must not be negative", a.DurationMS)
	}
	if a.Delta == (gesture.Offset{}) {
		return fmt.Errorf("delta must move at least one pixel")
	}
	return validateSettle(a.SettleMS)
}

func (a *DragImage) Build(ab *ActionBuilder) *ActionBuilder {
	label := a.Sprite
	if a.Recall != "" {
		label = a.Recall
	}

	return ab.add(Step{
		name: fmt.Sprintf("DragImage (%s)", label),
		execute: func(bot BotInterface) error {
			region, err := resolveRegion(bot, a.SpriteTarget, a.Recall)
			if err != nil {
				return err
			}

			start := bot.Gestures().ResolvePoint(region, policyOrDefault(bot, a.Policy))
			duration := time.Duration(a.DurationMS) * time.Millisecond
			_, err = bot.Gestures().DispatchDrag(bot.Context(), start, a.Delta, duration, settleOrDefault(a.SettleMS))
			return err
		},
		issue: a.Validate(ab),
	})
}
