package overlay

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"

	// Decoders for badge files.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/sirupsen/logrus"
)

// ResourceLoadError reports a badge that could not be fetched or decoded.
type ResourceLoadError struct {
	Source string
	Err    error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("load badge %q: %v", e.Source, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

// maxBadgeBytes caps remote downloads.
const maxBadgeBytes = 8 << 20

// httpClient is swapped in tests.
var httpClient = http.DefaultClient

// LoadBadge decodes a badge from a local path or an http(s) URL.
func LoadBadge(ctx context.Context, source string) (image.Image, error) {
	log := logrus.WithFields(logrus.Fields{"function": "LoadBadge", "source": source})
	rc, err := openBadge(ctx, source)
	if err != nil {
		log.WithError(err).Debug("open failed")
		return nil, &ResourceLoadError{Source: source, Err: err}
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			log.WithError(cerr).Debug("close failed")
		}
	}()
	img, _, err := image.Decode(io.LimitReader(rc, maxBadgeBytes))
	if err != nil {
		return nil, &ResourceLoadError{Source: source, Err: fmt.Errorf("decode: %w", err)}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &ResourceLoadError{Source: source, Err: fmt.Errorf("empty image")}
	}
	return img, nil
}

func openBadge(ctx context.Context, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, fmt.Errorf("no source")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("http status %s", resp.Status)
		}
		return resp.Body, nil
	}
	return os.Open(source)
}
