package actions

import (
	"errors"
	"fmt"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
)

// SpriteTarget names a sprite plus optional per-step locate overrides
type SpriteTarget struct {
	Sprite       string     `yaml:"sprite"`
	Confidence   *float64   `yaml:"confidence,omitempty"`   // Optional: override sprite's confidence
	MaxAttempts  *int       `yaml:"max_attempts,omitempty"` // Optional: override sprite's attempts
	RetryDelayMS *int       `yaml:"retry_delay_ms,omitempty"`
	Region       *cv.Region `yaml:"region,omitempty"` // Optional: override sprite's search region
}

func (t SpriteTarget) validate(ab *ActionBuilder) error {
	if err := ab.validateSprite(t.Sprite); err != nil {
		return err
	}
	if t.Confidence != nil && (*t.Confidence <= 0 || *t.Confidence > 1) {
		return fmt.Errorf("confidence %v must be in (0, 1]", *t.Confidence)
	}
	if t.MaxAttempts != nil && *t.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts (%d) must be at least 1", *t.MaxAttempts)
	}
	if t.RetryDelayMS != nil && *t.RetryDelayMS < 0 {
		return fmt.Errorf("retry_delay_ms (%d) must not be negative", *t.RetryDelayMS)
	}
	return nil
}

func (t SpriteTarget) options(extra ...cv.Option) []cv.Option {
	var opts []cv.Option
	if t.Confidence != nil {
		opts = append(opts, cv.WithConfidence(*t.Confidence))
	}
	if t.MaxAttempts != nil {
		opts = append(opts, cv.WithMaxAttempts(*t.MaxAttempts))
	}
	if t.RetryDelayMS != nil {
		opts = append(opts, cv.WithRetryDelay(time.Duration(*t.RetryDelayMS)*time.Millisecond))
	}
	if t.Region != nil {
		opts = append(opts, cv.WithSearchRegion(*t.Region))
	}
	return append(opts, extra...)
}

// locate runs one bounded locate for the target
func (t SpriteTarget) locate(bot BotInterface, extra ...cv.Option) (cv.Outcome, error) {
	req, err := bot.Sprites().Request(t.Sprite, t.options(extra...)...)
	if err != nil {
		return cv.Outcome{}, fmt.Errorf("failed to build locate request: %w", err)
	}
	return bot.Locator().Locate(bot.Context(), req)
}

// locateRequired returns the found region or the exhausted error
func (t SpriteTarget) locateRequired(bot BotInterface) (cv.Region, error) {
	outcome, err := t.locate(bot)
	if err != nil {
		return cv.Region{}, err
	}
	if err := outcome.Err(); err != nil {
		return cv.Region{}, err
	}
	return outcome.Region, nil
}

// resolveRegion is shared by steps that act on a sprite or a remembered region
func resolveRegion(bot BotInterface, target SpriteTarget, recall string) (cv.Region, error) {
	if recall != "" {
		return bot.Regions().Recall(recall)
	}
	return target.locateRequired(bot)
}

func skippable(err error, optional bool) bool {
	return optional && errors.Is(err, cv.ErrExhausted)
}

func policyOrDefault(bot BotInterface, p *gesture.PointPolicy) gesture.PointPolicy {
	if p != nil {
		return *p
	}
	return bot.DefaultPolicy()
}

// defaultSettle matches the pause the device needs after most taps
const defaultSettle = time.Second

func settleOrDefault(ms *int) time.Duration {
	if ms == nil {
		return defaultSettle
	}
	return time.Duration(*ms) * time.Millisecond
}

func validateSettle(ms *int) error {
	if ms != nil && *ms < 0 {
		return fmt.Errorf("settle_ms (%d) must not be negative", *ms)
	}
	return nil
}
