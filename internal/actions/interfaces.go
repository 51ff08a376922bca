package actions

import (
	"context"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
	"jordanella.com/offer-story-go/internal/logging"
)

// BotInterface defines the capabilities that actions need from the bot.
// Actions depend on this interface instead of a concrete session type.
type BotInterface interface {
	Context() context.Context

	Locator() LocatorInterface
	Gestures() GestureInterface
	Device() DeviceInterface
	Sprites() SpriteRegistryInterface
	Variables() VariableStoreInterface
	Regions() *RegionMemory
	Logger() *logging.Logger

	// DefaultPolicy is used by gesture steps that name no policy
	DefaultPolicy() gesture.PointPolicy

	// Sleep waits d or until ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}

// LocatorInterface is satisfied by *cv.Locator
type LocatorInterface interface {
	Locate(ctx context.Context, req cv.LocateRequest) (cv.Outcome, error)
}

// GestureInterface is satisfied by *gesture.Dispatcher
type GestureInterface interface {
	ResolvePoint(region cv.Region, policy gesture.PointPolicy) cv.Point
	DispatchTap(ctx context.Context, point cv.Point, offset gesture.Offset, settle time.Duration) (gesture.IssuedCommand, error)
	DispatchDrag(ctx context.Context, start cv.Point, delta gesture.Offset, duration, settle time.Duration) (gesture.IssuedCommand, error)
}

// DeviceInterface covers the device commands that are not gestures.
// It is satisfied by *adb.Controller.
type DeviceInterface interface {
	InputText(ctx context.Context, text string) error
	LaunchApp(ctx context.Context, packageName string) error
	ForceStop(ctx context.Context, packageName string) error
	PushMedia(ctx context.Context, localPath, folder, name string) (string, error)
	Remove(ctx context.Context, remotePath string) error
}

// SpriteRegistryInterface is satisfied by *templates.Registry
type SpriteRegistryInterface interface {
	Has(name string) bool
	Request(name string, opts ...cv.Option) (cv.LocateRequest, error)
}

// VariableStoreInterface holds routine variables
type VariableStoreInterface interface {
	Set(name string, value string)
	Get(name string) (string, bool)
	Has(name string) bool
	Delete(name string)
	GetAll() map[string]string
}
