package detector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/mj1618/swipegen/internal/metrics"
)

type cacheEntry struct {
	analysis  *Analysis
	timestamp time.Time
}

// Cached memoizes analyses of identical screenshots for a TTL. Exploration
// returns to the same root screen many times, so repeat calls are common.
type Cached struct {
	inner   Detector
	metrics *metrics.Collector

	mu      sync.Mutex
	entries map[[sha256.Size]byte]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCached wraps inner. A ttl of 0 disables caching.
func NewCached(inner Detector, ttl time.Duration, m *metrics.Collector) *Cached {
	return &Cached{
		inner:   inner,
		metrics: m,
		entries: make(map[[sha256.Size]byte]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Analyze returns a cached analysis for pixel-identical images within the
// TTL, otherwise calls the wrapped detector. Failures are not cached.
func (c *Cached) Analyze(ctx context.Context, img image.Image) (*Analysis, error) {
	if c.ttl == 0 || img == nil {
		return c.inner.Analyze(ctx, img)
	}

	key := imageKey(img)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Sub(entry.timestamp) < c.ttl {
		a := entry.analysis
		c.mu.Unlock()
		c.metrics.RecordCache(true)
		return a, nil
	}
	c.mu.Unlock()
	c.metrics.RecordCache(false)

	a, err := c.inner.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{analysis: a, timestamp: c.now()}
	c.mu.Unlock()
	return a, nil
}

// InvalidateAll clears the entire cache.
func (c *Cached) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[[sha256.Size]byte]cacheEntry)
}

func imageKey(img image.Image) [sha256.Size]byte {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	h := sha256.New()
	var size [16]byte
	binary.LittleEndian.PutUint64(size[:8], uint64(b.Dx()))
	binary.LittleEndian.PutUint64(size[8:], uint64(b.Dy()))
	h.Write(size[:])
	h.Write(rgba.Pix[:4*b.Dx()*b.Dy()])
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}
