package cv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"jordanella.com/offer-story-go/internal/logging"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3 * time.Second
	DefaultConfidence  = 0.9
)

// LocateRequest describes one sprite to find on screen
type LocateRequest struct {
	Name         string
	Needle       *image.RGBA
	MaxAttempts  int
	RetryDelay   time.Duration
	Confidence   float64
	SearchRegion *Region
}

// Option customises a LocateRequest
type Option func(*LocateRequest)

func WithConfidence(c float64) Option {
	return func(r *LocateRequest) { r.Confidence = c }
}

func WithMaxAttempts(n int) Option {
	return func(r *LocateRequest) { r.MaxAttempts = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(r *LocateRequest) { r.RetryDelay = d }
}

// WithSearchRegion restricts matching to part of the screen. Found regions
// are still reported in full-screen coordinates.
func WithSearchRegion(region Region) Option {
	return func(r *LocateRequest) {
		r.SearchRegion = &region
	}
}

// NewLocateRequest builds a validated request with the default
// attempts, delay and confidence unless overridden
func NewLocateRequest(name string, needle *image.RGBA, opts ...Option) (LocateRequest, error) {
	req := LocateRequest{
		Name:        name,
		Needle:      needle,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		Confidence:  DefaultConfidence,
	}
	for _, opt := range opts {
		opt(&req)
	}

	if err := req.Validate(); err != nil {
		return LocateRequest{}, err
	}
	return req, nil
}

// With returns a copy of the request with opts applied
func (r LocateRequest) With(opts ...Option) LocateRequest {
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Validate checks that the request could ever succeed
func (r LocateRequest) Validate() error {
	switch {
	case r.Needle == nil || r.Needle.Bounds().Empty():
		return configError(r.Name, fmt.Errorf("%w: needle is empty", ErrInvalidImage))
	case r.MaxAttempts < 1:
		return configError(r.Name, fmt.Errorf("%w: got %d", ErrInvalidAttempts, r.MaxAttempts))
	case r.RetryDelay < 0:
		return configError(r.Name, fmt.Errorf("%w: got %v", ErrInvalidDelay, r.RetryDelay))
	case !validConfidence(r.Confidence):
		return configError(r.Name, fmt.Errorf("%w: got %v", ErrInvalidConfidence, r.Confidence))
	}

	if r.SearchRegion != nil {
		nb := r.Needle.Bounds()
		if r.SearchRegion.Empty() {
			return configError(r.Name, fmt.Errorf("%w: search region %s is empty", ErrInvalidImage, r.SearchRegion))
		}
		if nb.Dx() > r.SearchRegion.Width || nb.Dy() > r.SearchRegion.Height {
			return configError(r.Name, fmt.Errorf("%w: needle %dx%d, search region %s",
				ErrTemplateTooLarge, nb.Dx(), nb.Dy(), r.SearchRegion))
		}
	}
	return nil
}

// Outcome is the terminal state of a locate
type Outcome struct {
	Found    bool
	Region   Region
	Attempts int

	name string
}

// Err returns nil for a found outcome and an *ExhaustedError otherwise
func (o Outcome) Err() error {
	if o.Found {
		return nil
	}
	return &ExhaustedError{Name: o.name, Attempts: o.Attempts}
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Locator repeatedly captures the screen and matches a sprite until it is
// found or the attempt budget is spent
type Locator struct {
	capturer Capturer
	matcher  Matcher
	sleep    Sleeper
	logger   *logging.Logger
}

// NewLocator creates a locator. A nil matcher uses DefaultMatcher.
func NewLocator(capturer Capturer, matcher Matcher) *Locator {
	if matcher == nil {
		matcher = DefaultMatcher()
	}
	return &Locator{
		capturer: capturer,
		matcher:  matcher,
		sleep:    ContextSleep,
		logger:   logging.Discard(),
	}
}

// WithSleeper replaces the wait between attempts
func (l *Locator) WithSleeper(s Sleeper) *Locator {
	l.sleep = s
	return l
}

func (l *Locator) WithLogger(logger *logging.Logger) *Locator {
	l.logger = logger
	return l
}

// Locate runs the retry loop. A miss on every attempt is not an error: the
// returned Outcome has Found == false and Err() describes it. Errors are
// reserved for bad requests, capture failures and cancellation.
func (l *Locator) Locate(ctx context.Context, req LocateRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	for attempt := 1; attempt <= req.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, fmt.Errorf("locate %s cancelled before attempt %d: %w", req.Name, attempt, err)
		}

		frame, err := l.capturer.Capture(ctx)
		if err == nil && (frame == nil || frame.Bounds().Empty()) {
			err = fmt.Errorf("%w: empty frame", ErrInvalidImage)
		}
		if err != nil {
			return Outcome{}, &CaptureError{Name: req.Name, Attempt: attempt, Err: err}
		}

		result, err := l.matchFrame(req, frame)
		if err != nil {
			return Outcome{}, err
		}

		l.logger.DebugWithContext("locate attempt", map[string]interface{}{
			"sprite":     req.Name,
			"attempt":    attempt,
			"found":      result.Found,
			"confidence": fmt.Sprintf("%.3f", result.Confidence),
		})

		if result.Found {
			return Outcome{Found: true, Region: result.Region, Attempts: attempt, name: req.Name}, nil
		}

		if attempt < req.MaxAttempts {
			if err := l.sleep(ctx, req.RetryDelay); err != nil {
				return Outcome{}, fmt.Errorf("locate %s cancelled after attempt %d: %w", req.Name, attempt, err)
			}
		}
	}

	return Outcome{Attempts: req.MaxAttempts, name: req.Name}, nil
}

func (l *Locator) matchFrame(req LocateRequest, frame *image.RGBA) (MatchResult, error) {
	haystack := frame
	if req.SearchRegion != nil {
		rect := req.SearchRegion.Rectangle().Intersect(frame.Bounds())
		if rect.Dx() < req.Needle.Bounds().Dx() || rect.Dy() < req.Needle.Bounds().Dy() {
			return MatchResult{}, configError(req.Name, fmt.Errorf("%w: search region %s outside %dx%d screen",
				ErrTemplateTooLarge, req.SearchRegion, frame.Bounds().Dx(), frame.Bounds().Dy()))
		}
		// SubImage shares Pix, so matched coordinates stay absolute
		haystack = frame.SubImage(rect).(*image.RGBA)
	}

	result, err := l.matcher.Match(req.Needle, haystack, req.Confidence)
	if err != nil {
		var cfg *ConfigurationError
		if errors.As(err, &cfg) && cfg.Name == "" {
			return MatchResult{}, configError(req.Name, cfg.Err)
		}
		return MatchResult{}, err
	}
	return result, nil
}
