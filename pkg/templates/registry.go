package templates

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	"jordanella.com/offer-story-go/internal/cv"
)

// ErrUnknownSprite is returned for names missing from the registry
var ErrUnknownSprite = errors.New("sprite not registered")

// Sprite is a named needle image plus its locate settings.
// Zero settings fall back to the registry defaults.
type Sprite struct {
	Name        string
	Path        string
	Confidence  float64
	MaxAttempts int
	RetryDelay  time.Duration
	Region      *cv.Region
}

// SpriteDefinition represents a sprite in the YAML file
type SpriteDefinition struct {
	Name         string     `yaml:"name"`
	Path         string     `yaml:"path"`
	Confidence   float64    `yaml:"confidence,omitempty"`
	MaxAttempts  int        `yaml:"max_attempts,omitempty"`
	RetryDelayMS *int       `yaml:"retry_delay_ms,omitempty"`
	Region       *cv.Region `yaml:"region,omitempty"`
	Preload      bool       `yaml:"preload,omitempty"` // Load image at startup
}

// SpriteFile represents the structure of a sprite YAML file
type SpriteFile struct {
	Sprites []SpriteDefinition `yaml:"sprites"`
}

// Defaults fill in settings a sprite leaves unset
type Defaults struct {
	Confidence  float64
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultSettings mirrors the locator defaults
func DefaultSettings() Defaults {
	return Defaults{
		Confidence:  cv.DefaultConfidence,
		MaxAttempts: cv.DefaultMaxAttempts,
		RetryDelay:  cv.DefaultRetryDelay,
	}
}

// Registry manages sprites loaded from YAML files
type Registry struct {
	mu         sync.RWMutex
	sprites    map[string]Sprite
	delaySet   map[string]bool
	basePath   string // Base path for sprite image files
	defaults   Defaults
	imageCache *ImageCache
}

// NewRegistry creates a registry resolving image paths against basePath
func NewRegistry(basePath string, defaults Defaults) *Registry {
	return &Registry{
		sprites:    make(map[string]Sprite),
		delaySet:   make(map[string]bool),
		basePath:   basePath,
		defaults:   defaults,
		imageCache: NewImageCache(),
	}
}

// LoadFromFile loads sprites from a YAML file. Relative image paths are
// resolved against the registry base path, or the file's folder when unset.
func (r *Registry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read sprite file %s: %w", filePath, err)
	}

	base := r.basePath
	if base == "" {
		base = filepath.Dir(filePath)
	}
	return r.load(data, base)
}

// LoadFromBytes loads sprites from YAML data
func (r *Registry) LoadFromBytes(data []byte) error {
	return r.load(data, r.basePath)
}

func (r *Registry) load(data []byte, base string) error {
	var file SpriteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal sprite YAML: %w", err)
	}

	for i, def := range file.Sprites {
		if def.Name == "" {
			return fmt.Errorf("sprite %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("sprite %d (%s): path cannot be empty", i+1, def.Name)
		}

		path := def.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}

		sprite := Sprite{
			Name:        def.Name,
			Path:        path,
			Confidence:  def.Confidence,
			MaxAttempts: def.MaxAttempts,
			Region:      def.Region,
		}
		if def.RetryDelayMS != nil {
			sprite.RetryDelay = time.Duration(*def.RetryDelayMS) * time.Millisecond
		}

		if err := r.register(sprite, def.RetryDelayMS != nil); err != nil {
			return fmt.Errorf("sprite %d (%s): %w", i+1, def.Name, err)
		}

		if err := r.imageCache.Register(sprite.Name, sprite.Path, def.Preload); err != nil {
			return err
		}
	}

	return nil
}

// Register adds a sprite programmatically. A zero RetryDelay is taken as unset.
func (r *Registry) Register(sprite Sprite) error {
	if err := r.register(sprite, sprite.RetryDelay != 0); err != nil {
		return err
	}
	return r.imageCache.Register(sprite.Name, sprite.Path, false)
}

// RegisterImage adds a sprite with an in-memory needle
func (r *Registry) RegisterImage(sprite Sprite, needle *image.RGBA) error {
	if err := r.register(sprite, sprite.RetryDelay != 0); err != nil {
		return err
	}
	r.imageCache.Put(sprite.Name, needle)
	return nil
}

func (r *Registry) register(sprite Sprite, delaySet bool) error {
	if sprite.Name == "" {
		return fmt.Errorf("sprite name cannot be empty")
	}
	if sprite.Confidence < 0 || sprite.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", sprite.Confidence)
	}
	if sprite.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts %d is negative", sprite.MaxAttempts)
	}
	if sprite.RetryDelay < 0 {
		return fmt.Errorf("retry delay %v is negative", sprite.RetryDelay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sprites[sprite.Name] = sprite
	r.delaySet[sprite.Name] = delaySet
	return nil
}

// Get retrieves a sprite by name with defaults applied
func (r *Registry) Get(name string) (Sprite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sprite, ok := r.sprites[name]
	if !ok {
		return Sprite{}, false
	}

	if sprite.Confidence == 0 {
		sprite.Confidence = r.defaults.Confidence
	}
	if sprite.MaxAttempts == 0 {
		sprite.MaxAttempts = r.defaults.MaxAttempts
	}
	if !r.delaySet[name] {
		sprite.RetryDelay = r.defaults.RetryDelay
	}
	return sprite, true
}

// Has checks if a sprite exists in the registry
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sprites[name]
	return ok
}

// List returns all sprite names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sprites))
	for name := range r.sprites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of sprites in the registry
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sprites)
}

// Request builds a locate request for a sprite. opts override the
// sprite's own settings.
func (r *Registry) Request(name string, opts ...cv.Option) (cv.LocateRequest, error) {
	sprite, ok := r.Get(name)
	if !ok {
		return cv.LocateRequest{}, fmt.Errorf("%w: %s", ErrUnknownSprite, name)
	}

	needle, err := r.imageCache.Get(name)
	if err != nil {
		return cv.LocateRequest{}, err
	}

	base := []cv.Option{
		cv.WithConfidence(sprite.Confidence),
		cv.WithMaxAttempts(sprite.MaxAttempts),
		cv.WithRetryDelay(sprite.RetryDelay),
	}
	if sprite.Region != nil {
		base = append(base, cv.WithSearchRegion(*sprite.Region))
	}
	return cv.NewLocateRequest(name, needle, append(base, opts...)...)
}

// PreloadAll loads every sprite marked for preloading
func (r *Registry) PreloadAll() error {
	return r.imageCache.PreloadAll()
}

// CacheStats returns image cache statistics
func (r *Registry) CacheStats() CacheStats {
	return r.imageCache.Stats()
}
