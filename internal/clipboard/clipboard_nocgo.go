//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
)

var (
	initOnce       sync.Once
	initErr        error
	errNoDisplay   = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	errCGODisabled = fmt.Errorf("clipboard requires cgo: %w", ErrUnsupported)
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		initErr = errCGODisabled
	})
	return initErr
}

// WriteImage reports why the clipboard is unavailable in this build.
func WriteImage(image.Image) error { return ensureInit() }

// ReadImage reports why the clipboard is unavailable in this build.
func ReadImage() (image.Image, error) { return nil, ensureInit() }

// WriteText reports why the clipboard is unavailable in this build.
func WriteText(string) error { return ensureInit() }

// ReadText reports why the clipboard is unavailable in this build.
func ReadText() (string, error) { return "", ensureInit() }
