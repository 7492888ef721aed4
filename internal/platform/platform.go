package platform

import (
	"context"
	"image"
	"time"
)

// Screenshotter captures the device screen.
type Screenshotter interface {
	// WindowSize returns the display size in device pixels.
	WindowSize(ctx context.Context) (w, h int, err error)

	// Screenshot captures the current screen.
	Screenshot(ctx context.Context) (image.Image, error)
}

// Inputter simulates touch input. Coordinates are device pixels.
type Inputter interface {
	Click(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	Drag(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
}

// AppManager controls the application lifecycle.
type AppManager interface {
	// CurrentPackage returns the package owning the focused window.
	CurrentPackage(ctx context.Context) (string, error)
	AppStart(ctx context.Context, pkg string) error
	AppStop(ctx context.Context, pkg string) error
}

// Informer describes the connected device.
type Informer interface {
	DeviceInfo(ctx context.Context) (map[string]string, error)
}

// Device is everything the explorer needs from one physical input surface.
type Device interface {
	Screenshotter
	Inputter
	AppManager
	Informer
}
