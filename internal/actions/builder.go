package actions

import (
	"context"
	"fmt"
	"time"
)

type ActionStep interface {
	Validate(ab *ActionBuilder) error
	Build(ab *ActionBuilder) *ActionBuilder
}

// SpriteChecker lets the builder reject unknown sprite names at load time
type SpriteChecker interface {
	Has(name string) bool
}

// ActionBuilder holds the executable steps of a routine.
// The bot is not required at build time; it is provided to Execute.
type ActionBuilder struct {
	name    string
	steps   []Step
	timeout time.Duration
	sprites SpriteChecker
}

// NewActionBuilder creates a new ActionBuilder for building reusable routines
func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{}
}

// WithSprites sets the sprite registry used for build-time validation
func (ab *ActionBuilder) WithSprites(sprites SpriteChecker) *ActionBuilder {
	ab.sprites = sprites
	return ab
}

// WithTimeout bounds the whole routine
func (ab *ActionBuilder) WithTimeout(d time.Duration) *ActionBuilder {
	ab.timeout = d
	return ab
}

// Name returns the routine name the builder was loaded from
func (ab *ActionBuilder) Name() string {
	return ab.name
}

// StepNames lists the top-level steps in order
func (ab *ActionBuilder) StepNames() []string {
	names := make([]string, len(ab.steps))
	for i, s := range ab.steps {
		names[i] = s.name
	}
	return names
}

type Step struct {
	name    string
	execute func(BotInterface) error // Bot is provided at execution time
	issue   error
	timeout time.Duration // Timeout for this specific step (0 = no timeout)
}

func (ab *ActionBuilder) add(step Step) *ActionBuilder {
	ab.steps = append(ab.steps, step)
	return ab
}

// StepError reports which step of a routine failed
type StepError struct {
	Routine string
	Index   int
	Name    string
	Err     error
}

func (e *StepError) Error() string {
	if e.Routine == "" {
		return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("routine '%s' step %d (%s) failed: %v", e.Routine, e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Execute runs the steps on the provided bot, stopping at the first failure
func (ab *ActionBuilder) Execute(bot BotInterface) error {
	ctx := bot.Context()
	if ab.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ab.timeout)
		defer cancel()
	}

	return runSteps(ctx, ab.name, ab.steps, bot)
}

func runSteps(ctx context.Context, routine string, steps []Step, bot BotInterface) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Routine: routine, Index: i + 1, Name: step.name, Err: err}
		}

		if step.issue != nil {
			return &StepError{Routine: routine, Index: i + 1, Name: step.name,
				Err: fmt.Errorf("build configuration error: %w", step.issue)}
		}

		if err := executeStep(ctx, bot, step); err != nil {
			return &StepError{Routine: routine, Index: i + 1, Name: step.name, Err: err}
		}
	}
	return nil
}

func executeStep(ctx context.Context, bot BotInterface, step Step) error {
	if step.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, step.timeout)
		defer cancel()
	}

	bot.Logger().Debugf("Running step %s", step.name)
	return step.execute(scopedBot{BotInterface: bot, ctx: ctx})
}

// scopedBot overrides the context seen by a step
type scopedBot struct {
	BotInterface
	ctx context.Context
}

func (b scopedBot) Context() context.Context { return b.ctx }

func (ab *ActionBuilder) buildSteps(actions []ActionStep) []Step {
	// Nested builders share the sprite registry for validation
	tempBuilder := NewActionBuilder()
	tempBuilder.sprites = ab.sprites

	for _, action := range actions {
		action.Build(tempBuilder)
	}
	return tempBuilder.steps
}

func (ab *ActionBuilder) validateSprite(name string) error {
	if name == "" {
		return fmt.Errorf("sprite is required")
	}
	if ab.sprites != nil && !ab.sprites.Has(name) {
		return fmt.Errorf("sprite '%s' not found in registry", name)
	}
	return nil
}
