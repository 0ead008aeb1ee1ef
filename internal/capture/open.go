package capture

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/media"
)

// Kind selects what Open captures.
type Kind string

const (
	KindScreen  Kind = "screen"
	KindMonitor Kind = "monitor"
	KindWindow  Kind = "window"
	KindFile    Kind = "file"
	KindPortal  Kind = "portal"
)

// Kinds lists every Kind in help order.
var Kinds = []Kind{KindScreen, KindMonitor, KindWindow, KindFile, KindPortal}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindScreen, nil
	}
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Request describes the stream to open.
type Request struct {
	Kind Kind
	// Selector picks the monitor or window, or names the file.
	Selector  string
	FrameRate float64
}

// Open returns a stream with one live video track for req. Screen and
// monitor tracks are labelled "screen:..." and window tracks "window:...".
// When X11 is unavailable screen and monitor requests fall back to a single
// portal screenshot.
func Open(ctx context.Context, req Request) (*media.Stream, error) {
	log := logrus.WithFields(logrus.Fields{
		"function": "Open",
		"kind":     req.Kind,
		"selector": req.Selector,
	})
	var (
		src   media.FrameSource
		label string
		err   error
	)
	switch req.Kind {
	case KindScreen, "":
		label = "screen:0:0"
		src, err = liveOrPortal(ctx, log, Target{}, image.Rectangle{})
	case KindMonitor:
		var mon MonitorInfo
		if mon, err = resolveMonitor(req.Selector); err == nil {
			label = fmt.Sprintf("screen:%d:%s", mon.Index, mon.Name)
			src, err = liveOrPortal(ctx, log, Target{Rect: mon.Rect}, mon.Rect)
		}
	case KindWindow:
		var win WindowInfo
		if win, err = resolveWindow(req.Selector); err == nil {
			label = fmt.Sprintf("window:%d:%s", win.ID, win.Title)
			src, err = openLive(Target{Window: win.ID})
		}
	case KindFile:
		label = "file:" + filepath.Base(req.Selector)
		src, err = OpenFileSource(req.Selector)
	case KindPortal:
		label = "screen:portal"
		src, err = NewPortalSource(ctx, true, image.Rectangle{})
	default:
		err = fmt.Errorf("unknown source %q", req.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s %q: %w", req.Kind, req.Selector, err)
	}

	track := media.NewTrack(media.KindVideo, label, media.Settings{FrameRate: req.FrameRate}, src)
	if live, ok := src.(*X11Source); ok {
		live.OnLost(track.Stop)
	}
	log.WithFields(logrus.Fields{"label": label, "size": src.Size()}).Info("source opened")
	return media.NewStream(track), nil
}

// openLive is swapped in tests.
var openLive = func(t Target) (media.FrameSource, error) {
	return NewX11Source(t)
}

func liveOrPortal(ctx context.Context, log *logrus.Entry, t Target, crop image.Rectangle) (media.FrameSource, error) {
	src, err := openLive(t)
	if err == nil {
		return src, nil
	}
	log.WithError(err).Warn("live capture unavailable, using portal screenshot")
	still, perr := NewPortalSource(ctx, false, crop)
	if perr != nil {
		return nil, fmt.Errorf("live capture: %v; portal fallback: %w", err, perr)
	}
	return still, nil
}

func resolveMonitor(selector string) (MonitorInfo, error) {
	monitors, err := ListMonitors()
	if err != nil {
		return MonitorInfo{}, err
	}
	return FindMonitor(monitors, selector)
}

func resolveWindow(selector string) (WindowInfo, error) {
	windows, err := ListWindows()
	if err != nil {
		return WindowInfo{}, err
	}
	win, err := SelectWindow(selector, windows)
	if err != nil {
		return WindowInfo{}, err
	}
	if win.Rect.Empty() {
		return WindowInfo{}, fmt.Errorf("window has empty geometry")
	}
	return win, nil
}
