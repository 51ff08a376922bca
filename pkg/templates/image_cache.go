package templates

import (
	"fmt"
	"image"
	"sync"

	"jordanella.com/offer-story-go/internal/cv"
)

// cachedSprite holds one lazily decoded needle
type cachedSprite struct {
	name    string
	path    string
	image   *image.RGBA  // Cached image data
	mu      sync.RWMutex // Protects image field
	preload bool         // Whether to preload image at startup
}

// ImageCache manages sprite image loading and caching
type ImageCache struct {
	sprites map[string]*cachedSprite
	mu      sync.RWMutex
	stats   CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits        int64 // Cache hits
	Misses      int64 // Cache misses (had to load)
	Loads       int64 // Total load operations
	PreloadFail int64 // Failed preloads
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		sprites: make(map[string]*cachedSprite),
	}
}

// Register adds a sprite image to the cache, loading it now if preload is set
func (ic *ImageCache) Register(name, path string, preload bool) error {
	cached := &cachedSprite{name: name, path: path, preload: preload}

	if preload {
		if err := cached.load(); err != nil {
			ic.mu.Lock()
			ic.stats.PreloadFail++
			ic.mu.Unlock()
			return fmt.Errorf("failed to preload sprite %s: %w", name, err)
		}
		ic.mu.Lock()
		ic.stats.Loads++
		ic.mu.Unlock()
	}

	ic.mu.Lock()
	ic.sprites[name] = cached
	ic.mu.Unlock()
	return nil
}

// Put stores an already decoded image
func (ic *ImageCache) Put(name string, img *image.RGBA) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.sprites[name] = &cachedSprite{name: name, image: img}
}

// Get returns the image for name, loading it on first use
func (ic *ImageCache) Get(name string) (*image.RGBA, error) {
	ic.mu.RLock()
	cached, ok := ic.sprites[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("sprite '%s' not found in cache", name)
	}

	img, loaded, err := cached.getOrLoad()
	if err != nil {
		return nil, err
	}

	ic.mu.Lock()
	if loaded {
		ic.stats.Misses++
		ic.stats.Loads++
	} else {
		ic.stats.Hits++
	}
	ic.mu.Unlock()

	return img, nil
}

// PreloadAll loads all sprites marked for preloading
func (ic *ImageCache) PreloadAll() error {
	ic.mu.RLock()
	pending := make([]*cachedSprite, 0, len(ic.sprites))
	for _, s := range ic.sprites {
		if s.preload {
			pending = append(pending, s)
		}
	}
	ic.mu.RUnlock()

	var errs []error
	for _, cached := range pending {
		err := cached.load()
		ic.mu.Lock()
		if err != nil {
			errs = append(errs, fmt.Errorf("sprite %s: %w", cached.name, err))
			ic.stats.PreloadFail++
		} else {
			ic.stats.Loads++
		}
		ic.mu.Unlock()
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to preload %d sprites: %w", len(errs), errs[0])
	}
	return nil
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

// getOrLoad returns the cached image, reporting whether it had to be decoded
func (cs *cachedSprite) getOrLoad() (*image.RGBA, bool, error) {
	// Fast path: image already loaded
	cs.mu.RLock()
	if cs.image != nil {
		defer cs.mu.RUnlock()
		return cs.image, false, nil
	}
	cs.mu.RUnlock()

	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Double-check after acquiring write lock
	if cs.image != nil {
		return cs.image, false, nil
	}

	img, err := cv.LoadRaster(cs.path)
	if err != nil {
		return nil, false, err
	}
	cs.image = img
	return img, true, nil
}

func (cs *cachedSprite) load() error {
	_, _, err := cs.getOrLoad()
	return err
}
