package bot

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
	"jordanella.com/offer-story-go/internal/logging"
	"jordanella.com/offer-story-go/internal/offers"
	"jordanella.com/offer-story-go/pkg/templates"
)

// Config holds every setting of a story bot run
type Config struct {
	ADB      ADBConfig
	Locator  LocatorConfig
	Gestures GestureConfig
	Offers   OffersConfig
	Scraper  ScraperConfig
	Image    ImageConfig
	Story    StoryConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ADBConfig selects the device
type ADBConfig struct {
	Path   string // adb binary or folder; empty searches PATH and common locations
	Host   string // network device to connect to first
	Port   int
	Serial string // empty picks the first online device
}

// Address is host:port of a network device, or "" when none is set
func (c ADBConfig) Address() string {
	if c.Host == "" {
		return ""
	}
	if c.Port <= 0 {
		return c.Host
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LocatorConfig holds the default locate settings and matcher tuning
type LocatorConfig struct {
	Confidence   float64
	MaxAttempts  int
	RetryDelayMS int
	Method       string // sad, ssd or ncc
	Grayscale    bool
	Pyramid      int
}

func (c LocatorConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// SpriteDefaults fills in what sprite definitions leave unset
func (c LocatorConfig) SpriteDefaults() templates.Defaults {
	return templates.Defaults{
		Confidence:  c.Confidence,
		MaxAttempts: c.MaxAttempts,
		RetryDelay:  c.RetryDelay(),
	}
}

// Matcher builds the template matcher described by the config
func (c LocatorConfig) Matcher() (*cv.TemplateMatcher, error) {
	method, err := cv.ParseMatchMethod(c.Method)
	if err != nil {
		return nil, err
	}
	return &cv.TemplateMatcher{Method: method, Grayscale: c.Grayscale, Pyramid: c.Pyramid}, nil
}

// GestureConfig controls where taps land
type GestureConfig struct {
	Policy string
	Seed   uint64 // 0 seeds from the clock
}

func (c GestureConfig) PointPolicy() (gesture.PointPolicy, error) {
	return gesture.ParsePolicy(c.Policy)
}

// OffersConfig points at the URL queue
type OffersConfig struct {
	InputFile  string
	Header     string
	Prefixes   []string
	SkipPosted bool // drop URLs the journal already has as posted
}

// Queue opens the configured queue file
func (c OffersConfig) Queue() *offers.Queue {
	q := offers.NewQueue(c.InputFile)
	if c.Header != "" {
		q.Header = c.Header
	}
	if len(c.Prefixes) > 0 {
		q.Prefixes = c.Prefixes
	}
	return q
}

// ScraperConfig tunes product page fetching
type ScraperConfig struct {
	UserAgent string
	TimeoutMS int
	Retries   int
}

func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ImageConfig locates the story template and output folders
type ImageConfig struct {
	Template    string
	Overlay     string // empty skips the price overlay
	FontRegular string // empty uses the embedded Go fonts
	FontBold    string
	OutputDir   string
	TempDir     string
}

// StoryConfig drives the publishing routine
type StoryConfig struct {
	Routine      string // routine YAML; empty uses the built-in story routine
	SpritesFile  string
	StickerText  string
	CloseFriends bool
	TestCall     bool // stop before the final publish tap
	PushFolder   string
	PushName     string
	AppPackage   string
	TimeoutMS    int // whole routine; 0 is unbounded
}

func (c StoryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// DatabaseConfig controls the post journal
type DatabaseConfig struct {
	Enabled bool
	Path    string
}

// LoggingConfig controls the run log
type LoggingConfig struct {
	Level string
	Dir   string
	File  string
}

// DefaultConfig returns the settings the bot ships with
func DefaultConfig() *Config {
	return &Config{
		ADB: ADBConfig{
			Port: 5555,
		},
		Locator: LocatorConfig{
			Confidence:   cv.DefaultConfidence,
			MaxAttempts:  cv.DefaultMaxAttempts,
			RetryDelayMS: int(cv.DefaultRetryDelay / time.Millisecond),
			Method:       "ncc",
		},
		Gestures: GestureConfig{
			Policy: "random",
		},
		Offers: OffersConfig{
			InputFile: "./offers/input.txt",
			Header:    offers.DefaultHeader,
			Prefixes:  append([]string(nil), offers.DefaultPrefixes...),
		},
		Scraper: ScraperConfig{
			TimeoutMS: 30000,
			Retries:   2,
		},
		Image: ImageConfig{
			Template:  "./resources/templates/offer-post-720x1280.png",
			Overlay:   "./resources/templates/offer-boom.png",
			OutputDir: "./temp",
			TempDir:   "./temp",
		},
		Story: StoryConfig{
			SpritesFile:  "./resources/sprites/sprites.yaml",
			StickerText:  "ver oferta",
			CloseFriends: true,
			PushFolder:   "/sdcard/adb-push-files",
			PushName:     "image.png",
			AppPackage:   "com.instagram.android",
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "./data/posts.db",
		},
		Logging: LoggingConfig{
			Level: string(logging.LogLevelInfo),
			Dir:   "./logs",
			File:  "log.log",
		},
	}
}

// Validate rejects settings no run could work with
func (c *Config) Validate() error {
	var errs []error

	if c.ADB.Port < 0 || c.ADB.Port > 65535 {
		errs = append(errs, fmt.Errorf("adb port %d out of range", c.ADB.Port))
	}

	if !(c.Locator.Confidence > 0 && c.Locator.Confidence <= 1) {
		errs = append(errs, fmt.Errorf("locator confidence %v must be within (0, 1]", c.Locator.Confidence))
	}
	if c.Locator.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("locator max_attempts %d must be at least 1", c.Locator.MaxAttempts))
	}
	if c.Locator.RetryDelayMS < 0 {
		errs = append(errs, fmt.Errorf("locator retry_delay_ms %d is negative", c.Locator.RetryDelayMS))
	}
	if c.Locator.Pyramid < 0 {
		errs = append(errs, fmt.Errorf("locator pyramid %d is negative", c.Locator.Pyramid))
	}
	if _, err := c.Locator.Matcher(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Gestures.PointPolicy(); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(c.Offers.InputFile) == "" {
		errs = append(errs, errors.New("offers input file is required"))
	}
	for _, p := range c.Offers.Prefixes {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, errors.New("offers prefixes contain an empty entry"))
			break
		}
	}

	if c.Scraper.TimeoutMS < 0 || c.Scraper.Retries < 0 {
		errs = append(errs, errors.New("scraper timeout and retries must not be negative"))
	}

	if c.Image.Template == "" {
		errs = append(errs, errors.New("image template is required"))
	}
	if c.Image.OutputDir == "" {
		errs = append(errs, errors.New("image output folder is required"))
	}

	if c.Story.SpritesFile == "" {
		errs = append(errs, errors.New("story sprites file is required"))
	}
	if c.Story.AppPackage == "" {
		errs = append(errs, errors.New("story app package is required"))
	}
	if c.Story.PushFolder == "" || c.Story.PushName == "" {
		errs = append(errs, errors.New("story push folder and name are required"))
	}
	if c.Story.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("story timeout_ms %d is negative", c.Story.TimeoutMS))
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required when the journal is enabled"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
