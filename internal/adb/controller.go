package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"jordanella.com/offer-story-go/internal/logging"
)

// ErrNoDevices is returned when adb lists no usable device
var ErrNoDevices = errors.New("no adb devices available")

// Stage identifies which step of session setup failed
type Stage string

const (
	StageDiscover Stage = "discover"
	StageConnect  Stage = "connect"
	StageProbe    Stage = "probe"
)

// ConnectionError reports a failure to establish a device session.
// Failures on a live session are plain command errors instead.
type ConnectionError struct {
	Stage  Stage
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("adb %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("adb %s failed for %s: %v", e.Stage, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Runner executes the adb binary and returns its stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s %s: %w, output: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()+stdout.String()))
	}
	return stdout.Bytes(), nil
}

// Options configures Dial
type Options struct {
	// Path is the adb binary or a folder containing it; empty searches common locations
	Path string
	// Host and Port select a network device to `adb connect` to first
	Host string
	Port int
	// Serial picks a specific device; empty uses the first online device
	Serial string

	Runner Runner
	Logger *logging.Logger
}

func (o Options) address() string {
	if o.Host == "" {
		return ""
	}
	if o.Port == 0 {
		return o.Host
	}
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// Controller is a session with one device.
// Commands are serialised so a capture never overlaps a gesture.
type Controller struct {
	path   string
	serial string
	runner Runner
	logger *logging.Logger

	mu     sync.Mutex
	width  int
	height int
}

// NewController wraps an already known device without probing it
func NewController(adbPath, serial string, runner Runner) *Controller {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Controller{
		path:   adbPath,
		serial: serial,
		runner: runner,
		logger: logging.Discard(),
	}
}

// Dial discovers, optionally connects to, and probes a device
func Dial(ctx context.Context, opts Options) (*Controller, error) {
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	adbPath := opts.Path
	if _, isExec := runner.(ExecRunner); isExec {
		found, err := FindADB(opts.Path)
		if err != nil {
			return nil, &ConnectionError{Stage: StageDiscover, Err: err}
		}
		adbPath = found
	} else if adbPath == "" {
		adbPath = "adb"
	}

	if addr := opts.address(); addr != "" {
		if err := connect(ctx, runner, adbPath, addr); err != nil {
			return nil, &ConnectionError{Stage: StageConnect, Target: addr, Err: err}
		}
		logger.Infof("Connected to %s", addr)
		if opts.Serial == "" {
			opts.Serial = addr
		}
	}

	devices, err := ListDevices(ctx, runner, adbPath)
	if err != nil {
		return nil, &ConnectionError{Stage: StageDiscover, Err: err}
	}
	device, err := pickDevice(devices, opts.Serial)
	if err != nil {
		return nil, &ConnectionError{Stage: StageDiscover, Target: opts.Serial, Err: err}
	}

	c := NewController(adbPath, device.Serial, runner)
	c.logger = logger

	w, h, err := c.WindowSize(ctx)
	if err != nil {
		return nil, &ConnectionError{Stage: StageProbe, Target: device.Serial, Err: err}
	}
	logger.InfoWithContext("Device ready", map[string]interface{}{
		"serial": device.Serial,
		"model":  device.Model,
		"size":   fmt.Sprintf("%dx%d", w, h),
	})
	return c, nil
}

func connect(ctx context.Context, runner Runner, adbPath, addr string) error {
	output, err := runner.Run(ctx, adbPath, "connect", addr)
	if err != nil {
		return err
	}

	out := strings.ToLower(string(output))
	if strings.Contains(out, "cannot") || strings.Contains(out, "failed") || !strings.Contains(out, "connected") {
		return fmt.Errorf("unexpected connect output: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

func pickDevice(devices []DeviceInfo, serial string) (DeviceInfo, error) {
	for _, d := range devices {
		if serial != "" && d.Serial != serial {
			continue
		}
		if d.State != "device" {
			if serial != "" {
				return DeviceInfo{}, fmt.Errorf("device %s is %s", d.Serial, d.State)
			}
			continue
		}
		return d, nil
	}
	if serial != "" {
		return DeviceInfo{}, fmt.Errorf("%w: %s not listed", ErrNoDevices, serial)
	}
	return DeviceInfo{}, ErrNoDevices
}

// Serial returns the device serial used for every command
func (c *Controller) Serial() string {
	return c.serial
}

// WithLogger sets the logger for device commands
func (c *Controller) WithLogger(logger *logging.Logger) *Controller {
	c.logger = logger
	return c
}

func (c *Controller) run(ctx context.Context, args ...string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := append([]string{"-s", c.serial}, args...)
	c.logger.Debugf("adb %s", strings.Join(full, " "))
	return c.runner.Run(ctx, c.path, full...)
}

// Disconnect releases a network device. It is a no-op for USB serials.
func (c *Controller) Disconnect(ctx context.Context) error {
	if !strings.Contains(c.serial, ":") {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.runner.Run(ctx, c.path, "disconnect", c.serial); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", c.serial, err)
	}
	return nil
}
