package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// ImageCache provides thread-safe caching of decoded frames read from disk.
//
// Entries are keyed by path and revalidated against the file's modification
// time and size on every Load, so a frame file that is overwritten in place
// (as a capture tool dropping "latest.jpg" does) is re-decoded.
//
// ImageCache is safe for concurrent use by multiple goroutines.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cacheEntry
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cacheEntry),
	}
}

// Load returns the decoded image at path, from the cache when the file has not
// changed since it was last decoded. EXIF orientation is applied for JPEGs.
func (c *ImageCache) Load(path string) (image.Image, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	e, ok := c.images[path]
	c.mu.RUnlock()
	if ok && e.modTime.Equal(stat.ModTime()) && e.size == stat.Size() {
		return e.img, nil
	}

	img, err := LoadFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = cacheEntry{img: img, modTime: stat.ModTime(), size: stat.Size()}
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// LoadFrame decodes a single frame from disk without caching.
func LoadFrame(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// IsFrameFile reports whether path has an extension LoadFrame can decode.
func IsFrameFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

// ImageInfo contains metadata about a loaded frame file.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and reports its dimensions,
// extension-derived format and file size.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
