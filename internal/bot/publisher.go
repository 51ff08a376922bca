package bot

import (
	"context"
	"errors"
	"strconv"

	"jordanella.com/offer-story-go/internal/actions"
	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/logging"
)

// Story is one image to publish with its link sticker
type Story struct {
	ImagePath string
	LinkURL   string
	Test      bool // run everything except the final publish tap
}

// RoutinePublisher publishes stories by running the story routine on a device
type RoutinePublisher struct {
	device  *Device
	routine *actions.ActionBuilder
	config  StoryConfig
	sleep   cv.Sleeper // waits requested by routine steps
	logger  *logging.Logger
}

// NewRoutinePublisher loads the configured routine, or the built-in story
// routine, and checks every sprite it uses against the device registry
func NewRoutinePublisher(device *Device, config StoryConfig, logger *logging.Logger) (*RoutinePublisher, error) {
	if device == nil {
		return nil, errors.New("device is nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	loader := actions.NewRoutineLoader().WithSprites(device.Sprites)
	var (
		routine *actions.ActionBuilder
		err     error
	)
	if config.Routine != "" {
		routine, err = loader.LoadFromFile(config.Routine)
	} else {
		routine, err = loader.LoadBuiltin("story")
	}
	if err != nil {
		return nil, err
	}
	if timeout := config.Timeout(); timeout > 0 {
		routine.WithTimeout(timeout)
	}

	logger.Debugf("Loaded routine '%s' with %d steps", routine.Name(), len(routine.StepNames()))
	return &RoutinePublisher{
		device:  device,
		routine: routine,
		config:  config,
		sleep:   cv.ContextSleep,
		logger:  logger,
	}, nil
}

// Variables are the routine inputs for story
func (p *RoutinePublisher) Variables(story Story) map[string]string {
	return map[string]string{
		"image_path":    story.ImagePath,
		"push_folder":   p.config.PushFolder,
		"push_name":     p.config.PushName,
		"app_package":   p.config.AppPackage,
		"link_url":      story.LinkURL,
		"link_text":     p.config.StickerText,
		"close_friends": strconv.FormatBool(p.config.CloseFriends),
		"test_call":     strconv.FormatBool(story.Test || p.config.TestCall),
	}
}

// Publish runs the routine for story and returns the first step failure
func (p *RoutinePublisher) Publish(ctx context.Context, story Story) error {
	if story.ImagePath == "" {
		return errors.New("story has no image")
	}

	p.logger.InfoWithContext("Publishing story", map[string]interface{}{
		"image":  story.ImagePath,
		"link":   story.LinkURL,
		"test":   story.Test || p.config.TestCall,
		"device": p.device.Serial,
	})

	s := newSession(ctx, p.device, p.Variables(story), p.sleep, p.logger.Child(p.routine.Name()))
	if err := p.routine.Execute(s); err != nil {
		return err
	}

	p.logger.Info("Story routine finished")
	return nil
}
