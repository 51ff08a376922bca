package gesture

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/logging"
)

// InputChannel delivers raw input events to the device
type InputChannel interface {
	SendTap(ctx context.Context, x, y int) error
	SendDrag(ctx context.Context, x0, y0, x1, y1 int, duration time.Duration) error
}

// CommandKind identifies the gesture that was sent
type CommandKind string

const (
	KindTap  CommandKind = "tap"
	KindDrag CommandKind = "drag"
)

// IssuedCommand records exactly what was sent to the device
type IssuedCommand struct {
	Kind     CommandKind
	From     cv.Point
	To       cv.Point
	Duration time.Duration
}

func (c IssuedCommand) String() string {
	if c.Kind == KindDrag {
		return fmt.Sprintf("drag %s -> %s over %v", c.From, c.To, c.Duration)
	}
	return fmt.Sprintf("tap %s", c.From)
}

// DispatchError reports that the input channel rejected a gesture
type DispatchError struct {
	Command IssuedCommand
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch %s: %v", e.Command, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher turns located regions into device gestures.
// It sends exactly one command per call and never verifies the effect.
type Dispatcher struct {
	channel InputChannel
	sleep   cv.Sleeper
	logger  *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDispatcher creates a dispatcher seeded from the runtime source
func NewDispatcher(channel InputChannel) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		sleep:   cv.ContextSleep,
		logger:  logging.Discard(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// WithRand replaces the randomness source, typically with a seeded one
func (d *Dispatcher) WithRand(rng *rand.Rand) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng = rng
	return d
}

// WithSeed is shorthand for WithRand with a PCG source
func (d *Dispatcher) WithSeed(seed uint64) *Dispatcher {
	return d.WithRand(rand.New(rand.NewPCG(seed, seed)))
}

func (d *Dispatcher) WithSleeper(s cv.Sleeper) *Dispatcher {
	d.sleep = s
	return d
}

func (d *Dispatcher) WithLogger(logger *logging.Logger) *Dispatcher {
	d.logger = logger
	return d
}

// ResolvePoint picks the gesture point inside region
func (d *Dispatcher) ResolvePoint(region cv.Region, policy PointPolicy) cv.Point {
	if policy == Centered {
		return region.Center()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return resolve(region, policy, d.rng)
}

// DispatchTap taps point+offset, then waits settle
func (d *Dispatcher) DispatchTap(ctx context.Context, point cv.Point, offset Offset, settle time.Duration) (IssuedCommand, error) {
	target := point.Add(offset.DX, offset.DY)
	cmd := IssuedCommand{Kind: KindTap, From: target, To: target}

	if err := d.channel.SendTap(ctx, target.X, target.Y); err != nil {
		return cmd, &DispatchError{Command: cmd, Err: err}
	}
	d.logger.DebugWithContext("gesture sent", map[string]interface{}{"command": cmd.String()})

	return cmd, d.settle(ctx, settle)
}

// DispatchDrag drags from start to start+delta over duration, then waits settle
func (d *Dispatcher) DispatchDrag(ctx context.Context, start cv.Point, delta Offset, duration, settle time.Duration) (IssuedCommand, error) {
	end := start.Add(delta.DX, delta.DY)
	cmd := IssuedCommand{Kind: KindDrag, From: start, To: end, Duration: duration}

	if err := d.channel.SendDrag(ctx, start.X, start.Y, end.X, end.Y, duration); err != nil {
		return cmd, &DispatchError{Command: cmd, Err: err}
	}
	d.logger.DebugWithContext("gesture sent", map[string]interface{}{"command": cmd.String()})

	return cmd, d.settle(ctx, settle)
}

func (d *Dispatcher) settle(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	if err := d.sleep(ctx, wait); err != nil {
		return fmt.Errorf("settle wait interrupted: %w", err)
	}
	return nil
}
