//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package capture

import "fmt"

// unsupportedBackend lets the package build where there is no X server.
// File sources still work.
type unsupportedBackend struct{}

func newBackend() platformBackend { return unsupportedBackend{} }

func (unsupportedBackend) ListMonitors() ([]MonitorInfo, error) {
	return nil, fmt.Errorf("list monitors: %w", ErrUnsupported)
}

func (unsupportedBackend) ListWindows() ([]WindowInfo, error) {
	return nil, fmt.Errorf("list windows: %w", ErrUnsupported)
}

func (unsupportedBackend) Dial() (grabber, error) {
	return nil, fmt.Errorf("live capture: %w", ErrUnsupported)
}
