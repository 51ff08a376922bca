package adb

import (
	"context"
	"fmt"
	"image"
	"path"
	"strings"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
)

// Shell executes a shell command on the device and returns trimmed output
func (c *Controller) Shell(ctx context.Context, command string) (string, error) {
	output, err := c.run(ctx, "shell", command)
	if err != nil {
		return "", fmt.Errorf("shell command %q failed: %w", command, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Tap performs a tap at the specified coordinates
func (c *Controller) Tap(ctx context.Context, x, y int) error {
	_, err := c.Shell(ctx, fmt.Sprintf("input tap %d %d", x, y))
	return err
}

// DragAndDrop presses at (x1,y1), moves to (x2,y2) over duration and releases
func (c *Controller) DragAndDrop(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := c.Shell(ctx, fmt.Sprintf("input draganddrop %d %d %d %d %d", x1, y1, x2, y2, duration.Milliseconds()))
	return err
}

var shellEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"`", "\\`",
	"$", `\$`,
	"&", `\&`,
	"|", `\|`,
	";", `\;`,
	"<", `\<`,
	">", `\>`,
	"(", `\(`,
	")", `\)`,
	"*", `\*`,
	"~", `\~`,
	"%", `\%`,
	" ", "%s",
)

// EscapeInputText prepares text for `input text`: spaces become %s and
// shell metacharacters are backslash escaped
func EscapeInputText(text string) string {
	return shellEscaper.Replace(text)
}

// InputText types text into the focused field
func (c *Controller) InputText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	_, err := c.Shell(ctx, "input text "+EscapeInputText(text))
	return err
}

// Screencap returns the PNG bytes of the current screen
func (c *Controller) Screencap(ctx context.Context) ([]byte, error) {
	data, err := c.run(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screencap failed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("screencap returned no data")
	}
	return data, nil
}

// Capture implements cv.Capturer with a fresh screencap
func (c *Controller) Capture(ctx context.Context) (*image.RGBA, error) {
	data, err := c.Screencap(ctx)
	if err != nil {
		return nil, err
	}
	return cv.DecodeRaster(data)
}

// SendTap implements gesture.InputChannel
func (c *Controller) SendTap(ctx context.Context, x, y int) error {
	return c.Tap(ctx, x, y)
}

// SendDrag implements gesture.InputChannel
func (c *Controller) SendDrag(ctx context.Context, x0, y0, x1, y1 int, duration time.Duration) error {
	return c.DragAndDrop(ctx, x0, y0, x1, y1, duration)
}

// Push copies a file from local to device
func (c *Controller) Push(ctx context.Context, localPath, remotePath string) error {
	if _, err := c.run(ctx, "push", localPath, remotePath); err != nil {
		return fmt.Errorf("push %s to %s failed: %w", localPath, remotePath, err)
	}
	return nil
}

// ScanMedia asks the media scanner to index a pushed file so gallery
// pickers list it
func (c *Controller) ScanMedia(ctx context.Context, remotePath string) error {
	_, err := c.Shell(ctx, fmt.Sprintf("am broadcast -a android.intent.action.MEDIA_SCANNER_SCAN_FILE -d file://%s", remotePath))
	return err
}

// PushMedia pushes a file into folder under name and scans it. It returns the remote path.
func (c *Controller) PushMedia(ctx context.Context, localPath, folder, name string) (string, error) {
	remote := path.Join(folder, name)
	if _, err := c.Shell(ctx, "mkdir -p "+folder); err != nil {
		return "", err
	}
	if err := c.Push(ctx, localPath, remote); err != nil {
		return "", err
	}
	if err := c.ScanMedia(ctx, remote); err != nil {
		return "", err
	}
	return remote, nil
}

// Remove deletes a file on the device
func (c *Controller) Remove(ctx context.Context, remotePath string) error {
	_, err := c.Shell(ctx, "rm "+remotePath)
	return err
}

// ForceStop stops an application
func (c *Controller) ForceStop(ctx context.Context, packageName string) error {
	_, err := c.Shell(ctx, "am force-stop "+packageName)
	return err
}

// LaunchApp starts the package's launcher activity
func (c *Controller) LaunchApp(ctx context.Context, packageName string) error {
	_, err := c.Shell(ctx, fmt.Sprintf("monkey -p %s 1", packageName))
	return err
}

// WindowSize returns the current screen size, cached after the first probe
func (c *Controller) WindowSize(ctx context.Context) (width, height int, err error) {
	c.mu.Lock()
	w, h := c.width, c.height
	c.mu.Unlock()
	if w > 0 && h > 0 {
		return w, h, nil
	}

	output, err := c.Shell(ctx, "wm size")
	if err != nil {
		return 0, 0, err
	}

	w, h, err = parseWindowSize(output)
	if err != nil {
		return 0, 0, err
	}

	c.mu.Lock()
	c.width, c.height = w, h
	c.mu.Unlock()
	return w, h, nil
}

// parseWindowSize reads "Physical size: 1080x1920", preferring an
// "Override size" line when present
func parseWindowSize(output string) (int, int, error) {
	var w, h int
	found := false
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		var lw, lh int
		if _, err := fmt.Sscanf(line, "Override size: %dx%d", &lw, &lh); err == nil {
			return lw, lh, nil
		}
		if _, err := fmt.Sscanf(line, "Physical size: %dx%d", &lw, &lh); err == nil {
			w, h, found = lw, lh, true
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("failed to parse window size: %s", output)
	}
	return w, h, nil
}
