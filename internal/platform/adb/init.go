package adb

import "github.com/mj1618/swipegen/internal/platform"

func init() {
	platform.NewProviderFunc = func(opts platform.ProviderOptions) (*platform.Provider, error) {
		c := New(opts, nil)
		return &platform.Provider{
			Screenshotter: c,
			Inputter:      c,
			AppManager:    c,
			Informer:      c,
		}, nil
	}
}
