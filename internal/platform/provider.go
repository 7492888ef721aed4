package platform

import (
	"errors"
)

// Provider bundles the capability backends for one device.
type Provider struct {
	Screenshotter Screenshotter
	Inputter      Inputter
	AppManager    AppManager
	Informer      Informer
}

// ErrUnsupported is returned when no device backend has been linked in.
var ErrUnsupported = errors.New("swipegen: no device backend registered; build with the adb backend")

// NewProviderFunc is set by backend packages via init().
// See internal/platform/adb/init.go for the adb registration.
var NewProviderFunc func(opts ProviderOptions) (*Provider, error)

// NewProvider returns a Provider from the registered backend.
func NewProvider(opts ProviderOptions) (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	return NewProviderFunc(opts)
}

type device struct {
	Screenshotter
	Inputter
	AppManager
	Informer
}

// Device joins the provider's backends into a single Device. It returns an
// error if any capability is missing.
func (p *Provider) Device() (Device, error) {
	if p.Screenshotter == nil || p.Inputter == nil || p.AppManager == nil || p.Informer == nil {
		return nil, errors.New("provider is missing a device capability")
	}
	return device{p.Screenshotter, p.Inputter, p.AppManager, p.Informer}, nil
}
