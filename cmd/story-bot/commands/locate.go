package commands

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"jordanella.com/offer-story-go/internal/bot"
	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
)

var (
	locateDebug string
	locateTap   bool
)

func init() {
	locateCmd.Flags().StringVar(&locateDebug, "debug", "", "Write the last screen capture with the match outlined to this PNG.")
	locateCmd.Flags().BoolVar(&locateTap, "tap", false, "Tap the sprite with the configured point policy when found.")
	rootCmd.AddCommand(locateCmd)
}

var locateCmd = &cobra.Command{
	Use:   "locate <sprite> [--debug <out.png>] [--tap]",
	Short: "Looks for one sprite on the connected device with its configured retries.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		device, err := bot.Connect(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDevice(ctx, device)

		var lastFrame *image.RGBA
		locator := device.Locator
		if locateDebug != "" {
			matcher, err := cfg.Locator.Matcher()
			if err != nil {
				return err
			}
			screen := cv.CapturerFunc(func(ctx context.Context) (*image.RGBA, error) {
				frame, err := device.Screen.Capture(ctx)
				if err == nil {
					lastFrame = frame
				}
				return frame, err
			})
			locator = cv.NewLocator(screen, matcher).WithLogger(logger.Child("locator"))
		}

		req, err := device.Sprites.Request(args[0])
		if err != nil {
			return err
		}
		outcome, err := locator.Locate(ctx, req)
		if err != nil {
			return err
		}

		if lastFrame != nil {
			if err := writeDebug(locateDebug, lastFrame, outcome); err != nil {
				return err
			}
		}

		if !outcome.Found {
			return outcome.Err()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s found at %s after %d attempt(s)\n", args[0], outcome.Region, outcome.Attempts)

		if locateTap {
			point := device.Gestures.ResolvePoint(outcome.Region, device.Policy)
			issued, err := device.Gestures.DispatchTap(ctx, point, gesture.Offset{}, 0)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), issued)
		}
		return nil
	},
}

func writeDebug(path string, frame *image.RGBA, outcome cv.Outcome) error {
	img := frame
	if outcome.Found {
		img = cv.DebugMatch(frame, outcome.Region)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create debug image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode debug image: %w", err)
	}
	return nil
}
