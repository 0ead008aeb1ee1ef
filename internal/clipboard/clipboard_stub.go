//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import (
	"fmt"
	"image"
)

// WriteImage reports ErrUnsupported.
func WriteImage(image.Image) error { return fmt.Errorf("write image: %w", ErrUnsupported) }

// ReadImage reports ErrUnsupported.
func ReadImage() (image.Image, error) { return nil, fmt.Errorf("read image: %w", ErrUnsupported) }

// WriteText reports ErrUnsupported.
func WriteText(string) error { return fmt.Errorf("write text: %w", ErrUnsupported) }

// ReadText reports ErrUnsupported.
func ReadText() (string, error) { return "", fmt.Errorf("read text: %w", ErrUnsupported) }
