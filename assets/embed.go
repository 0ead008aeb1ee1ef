// Package assets embeds the default decorative badge stamped onto accepted
// frames.
package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
	"sync"
)

//go:embed badge.png
var badgePNG []byte

var (
	badgeOnce sync.Once
	badgeImg  image.Image
	badgeErr  error
)

// Badge returns the decoded embedded badge.
func Badge() (image.Image, error) {
	badgeOnce.Do(func() {
		badgeImg, badgeErr = png.Decode(bytes.NewReader(badgePNG))
		if badgeErr != nil {
			badgeErr = fmt.Errorf("decode embedded badge: %w", badgeErr)
		}
	})
	return badgeImg, badgeErr
}

// BadgePNG returns a copy of the raw embedded PNG bytes.
func BadgePNG() []byte {
	return append([]byte(nil), badgePNG...)
}
