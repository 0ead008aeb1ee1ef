//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package capture

import (
	"context"
	"fmt"
	"image"
)

func portalScreenshot(context.Context, bool) (*image.RGBA, error) {
	return nil, fmt.Errorf("portal screenshot: %w", ErrUnsupported)
}
