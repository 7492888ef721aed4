package platform

import (
	"context"
	"fmt"
)

// Recover returns the device to a known state for pkg: if the foreground
// package is anything else, or cannot be read, pkg is launched again.
// Nothing is done when pkg is already in front.
func Recover(ctx context.Context, apps AppManager, pkg string) error {
	current, err := apps.CurrentPackage(ctx)
	if err == nil && current == pkg {
		return nil
	}
	if err := apps.AppStart(ctx, pkg); err != nil {
		return fmt.Errorf("relaunch %s: %w", pkg, err)
	}
	return nil
}
