//go:build linux || freebsd || openbsd || netbsd || dragonfly

package capture

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestPortalScreenshotOptions(t *testing.T) {
	prevToken := portalHandleToken
	portalHandleToken = func() string { return "test-token" }
	t.Cleanup(func() { portalHandleToken = prevToken })

	for _, interactive := range []bool{false, true} {
		values := portalScreenshotOptions(interactive)
		if got := boolVariant(t, values, "interactive"); got != interactive {
			t.Fatalf("interactive = %v, want %v", got, interactive)
		}
		if got := boolVariant(t, values, "modal"); got != interactive {
			t.Fatalf("modal = %v, want %v", got, interactive)
		}
		if got := stringVariant(t, values, "handle_token"); got != "test-token" {
			t.Fatalf("handle_token = %q, want %q", got, "test-token")
		}
		if len(values) != 3 {
			t.Fatalf("expected 3 options, got %d", len(values))
		}
	}
}

func TestPortalResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 6, 4))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	sig := &dbus.Signal{Body: []interface{}{uint32(0), map[string]dbus.Variant{
		"uri": dbus.MakeVariant("file://" + path),
	}}}
	img, err := portalResult(sig)
	if err != nil {
		t.Fatalf("portalResult: %v", err)
	}
	if img.Bounds().Size() != image.Pt(6, 4) {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected portal file to be removed, stat err %v", err)
	}
}

func TestPortalResultDenied(t *testing.T) {
	sig := &dbus.Signal{Body: []interface{}{uint32(1), map[string]dbus.Variant{}}}
	if _, err := portalResult(sig); !errors.Is(err, errPortalDenied) {
		t.Fatalf("expected errPortalDenied, got %v", err)
	}
}

func boolVariant(t *testing.T, values map[string]dbus.Variant, key string) bool {
	t.Helper()
	variant, ok := values[key]
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	v, ok := variant.Value().(bool)
	if !ok {
		t.Fatalf("key %q value is %T, want bool", key, variant.Value())
	}
	return v
}

func stringVariant(t *testing.T, values map[string]dbus.Variant, key string) string {
	t.Helper()
	variant, ok := values[key]
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	v, ok := variant.Value().(string)
	if !ok {
		t.Fatalf("key %q value is %T, want string", key, variant.Value())
	}
	return v
}
