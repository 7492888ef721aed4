package detector

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/metrics"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDetector struct {
	calls int
	err   error
}

func (c *countingDetector) Analyze(context.Context, image.Image) (*Analysis, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return Split([]model.Region{{Category: model.CategoryClickable}}), nil
}

func solid(v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestCached_HitsWithinTTL(t *testing.T) {
	inner := &countingDetector{}
	c := NewCached(inner, time.Minute, metrics.NewCollector(nil, nil))
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.Analyze(ctx, solid(10))
	require.NoError(t, err)
	_, err = c.Analyze(ctx, solid(10))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "identical pixels should hit the cache")

	_, _ = c.Analyze(ctx, solid(20))
	assert.Equal(t, 2, inner.calls, "different pixels should miss")

	now = now.Add(2 * time.Minute)
	_, _ = c.Analyze(ctx, solid(10))
	assert.Equal(t, 3, inner.calls, "expired entries should be refreshed")

	c.InvalidateAll()
	_, _ = c.Analyze(ctx, solid(10))
	assert.Equal(t, 4, inner.calls)
}

func TestCached_ZeroTTLDisables(t *testing.T) {
	inner := &countingDetector{}
	c := NewCached(inner, 0, nil)
	for i := 0; i < 3; i++ {
		_, _ = c.Analyze(context.Background(), solid(1))
	}
	assert.Equal(t, 3, inner.calls)
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingDetector{err: errors.New("boom")}
	c := NewCached(inner, time.Minute, nil)
	_, err := c.Analyze(context.Background(), solid(1))
	assert.Error(t, err)
	_, err = c.Analyze(context.Background(), solid(1))
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestImageKey_IgnoresRepresentation(t *testing.T) {
	gray := solid(128)
	rgba := image.NewRGBA(gray.Bounds())
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			rgba.Set(x, y, color.Gray{Y: 128})
		}
	}
	assert.Equal(t, imageKey(gray), imageKey(rgba))
	assert.NotEqual(t, imageKey(gray), imageKey(solid(129)))
}

func TestNew(t *testing.T) {
	cfg := config.NewDefaultConfig().Detector
	d, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &instrumented{}, d)

	cfg.CacheTTL = time.Minute
	d, err = New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, d)

	cfg.Backend = "ocr"
	_, err = New(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
