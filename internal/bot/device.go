package bot

import (
	"context"
	"fmt"

	"jordanella.com/offer-story-go/internal/actions"
	"jordanella.com/offer-story-go/internal/adb"
	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
	"jordanella.com/offer-story-go/internal/logging"
	"jordanella.com/offer-story-go/pkg/templates"
)

// SpriteSource is the sprite lookup a device needs. *templates.Registry
// satisfies it.
type SpriteSource interface {
	actions.SpriteRegistryInterface
	List() []string
}

// Device bundles everything that talks to the phone: raw commands, screen
// capture, the locator and the gesture dispatcher
type Device struct {
	Serial   string
	Commands actions.DeviceInterface
	Screen   cv.Capturer
	Locator  actions.LocatorInterface
	Gestures actions.GestureInterface
	Sprites  SpriteSource
	Policy   gesture.PointPolicy

	// set when Connect ran `adb connect` for a network device
	disconnect func(ctx context.Context) error
}

// Connect dials the configured device and loads the sprite registry
func Connect(ctx context.Context, config *Config, logger *logging.Logger) (*Device, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	sprites := templates.NewRegistry("", config.Locator.SpriteDefaults())
	if err := sprites.LoadFromFile(config.Story.SpritesFile); err != nil {
		return nil, err
	}
	if err := sprites.PreloadAll(); err != nil {
		return nil, fmt.Errorf("failed to preload sprites: %w", err)
	}
	logger.Infof("Loaded %d sprites from %s (%d preloaded)",
		sprites.Count(), config.Story.SpritesFile, sprites.CacheStats().Loads)

	controller, err := adb.Dial(ctx, adb.Options{
		Path:   config.ADB.Path,
		Host:   config.ADB.Host,
		Port:   config.ADB.Port,
		Serial: config.ADB.Serial,
		Logger: logger.Child("adb"),
	})
	if err != nil {
		return nil, err
	}

	device, err := NewDevice(controller, sprites, config, logger)
	if err != nil {
		return nil, err
	}
	if config.ADB.Host != "" {
		device.disconnect = controller.Disconnect
	}
	return device, nil
}

// Controller is what NewDevice needs from an adb connection
type Controller interface {
	actions.DeviceInterface
	gesture.InputChannel
	cv.Capturer
	Serial() string
}

// NewDevice wires a locator and dispatcher around an existing controller
func NewDevice(controller Controller, sprites SpriteSource, config *Config, logger *logging.Logger) (*Device, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	matcher, err := config.Locator.Matcher()
	if err != nil {
		return nil, err
	}
	policy, err := config.Gestures.PointPolicy()
	if err != nil {
		return nil, err
	}

	dispatcher := gesture.NewDispatcher(controller).WithLogger(logger.Child("gesture"))
	if config.Gestures.Seed != 0 {
		dispatcher = dispatcher.WithSeed(config.Gestures.Seed)
	}

	return &Device{
		Serial:   controller.Serial(),
		Commands: controller,
		Screen:   controller,
		Locator:  cv.NewLocator(controller, matcher).WithLogger(logger.Child("locator")),
		Gestures: dispatcher,
		Sprites:  sprites,
		Policy:   policy,
	}, nil
}

// Locate runs one locate for a registered sprite with its configured settings
func (d *Device) Locate(ctx context.Context, sprite string, opts ...cv.Option) (cv.Outcome, error) {
	req, err := d.Sprites.Request(sprite, opts...)
	if err != nil {
		return cv.Outcome{}, err
	}
	return d.Locator.Locate(ctx, req)
}

// Close releases the device session. Network devices connected by Connect
// are disconnected; USB devices need nothing.
func (d *Device) Close(ctx context.Context) error {
	if d.disconnect == nil {
		return nil
	}
	return d.disconnect(ctx)
}
