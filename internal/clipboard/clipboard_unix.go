//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"
)

var (
	initOnce     sync.Once
	initErr      error
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		initErr = clipboard.Init()
	})
	return initErr
}

// read returns the clipboard contents in format f, or ErrEmpty.
func read(f clipboard.Format) ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data := clipboard.Read(f)
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return data, nil
}

func write(f clipboard.Format, data []byte) error {
	if err := ensureInit(); err != nil {
		return err
	}
	clipboard.Write(f, data)
	logrus.WithFields(logrus.Fields{
		"function": "write",
		"format":   f,
		"bytes":    len(data),
	}).Debug("clipboard written")
	return nil
}

// WriteImage publishes img as PNG.
func WriteImage(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode clipboard image: %w", err)
	}
	return write(clipboard.FmtImage, buf.Bytes())
}

// ReadImage decodes the PNG held by the clipboard.
func ReadImage() (image.Image, error) {
	data, err := read(clipboard.FmtImage)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode clipboard image: %w", err)
	}
	return img, nil
}

// WriteText publishes text.
func WriteText(text string) error {
	return write(clipboard.FmtText, []byte(text))
}

// ReadText returns the UTF-8 text held by the clipboard.
func ReadText() (string, error) {
	data, err := read(clipboard.FmtText)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(data), nil
}
