package bot

import (
	"context"
	"time"

	"jordanella.com/offer-story-go/internal/actions"
	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
	"jordanella.com/offer-story-go/internal/logging"
)

// session is one routine execution on a device. Variables and remembered
// regions live only as long as the session.
type session struct {
	ctx     context.Context
	device  *Device
	vars    *actions.VariableStore
	regions *actions.RegionMemory
	logger  *logging.Logger
	sleep   cv.Sleeper
}

func newSession(ctx context.Context, device *Device, vars map[string]string, sleep cv.Sleeper, logger *logging.Logger) *session {
	return &session{
		ctx:     ctx,
		device:  device,
		vars:    actions.NewVariableStoreFrom(vars),
		regions: actions.NewRegionMemory(),
		logger:  logger,
		sleep:   sleep,
	}
}

func (s *session) Context() context.Context { return s.ctx }
func (s *session) Locator() actions.LocatorInterface { return s.device.Locator }
func (s *session) Gestures() actions.GestureInterface { return s.device.Gestures }
func (s *session) Device() actions.DeviceInterface { return s.device.Commands }
func (s *session) Sprites() actions.SpriteRegistryInterface { return s.device.Sprites }
func (s *session) Variables() actions.VariableStoreInterface { return s.vars }
func (s *session) Regions() *actions.RegionMemory { return s.regions }
func (s *session) Logger() *logging.Logger { return s.logger }
func (s *session) DefaultPolicy() gesture.PointPolicy { return s.device.Policy }
func (s *session) Sleep(ctx context.Context, d time.Duration) error { return s.sleep(ctx, d) }
