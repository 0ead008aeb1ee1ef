// Package capture provides live desktop frame sources and the monitor and
// window listings used to pick one.
package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// platformBackend talks to the display server.
type platformBackend interface {
	ListMonitors() ([]MonitorInfo, error)
	ListWindows() ([]WindowInfo, error)
	Dial() (grabber, error)
}

// grabber reads pixels over one display connection.
type grabber interface {
	// Grab reads t. A zero Window means the root window.
	Grab(t Target) (*image.RGBA, error)
	Close() error
}

// Target is what a grabber reads each frame.
type Target struct {
	// Window is the X11 window id, or zero for the root window.
	Window uint32
	// Rect limits a root grab to a region in root coordinates. Empty means
	// the whole window.
	Rect image.Rectangle
}

var backend = newBackend()

var (
	// ErrUnsupported is returned by the X11 operations on platforms
	// without an X server binding.
	ErrUnsupported = errors.New("not supported on this platform")
	errNoMonitors  = errors.New("no monitors available")
	errNoWindows   = errors.New("no windows available")
)

// MonitorInfo describes an individual monitor in the display layout.
type MonitorInfo struct {
	Index   int
	Name    string
	Rect    image.Rectangle
	Primary bool
}

// WindowInfo describes a top-level window available for capture.
type WindowInfo struct {
	Index      int
	ID         uint32
	Title      string
	Class      string
	Instance   string
	PID        uint32
	Executable string
	Rect       image.Rectangle
	Monitor    int
	Active     bool
}

// ListMonitors retrieves all monitors using the platform backend.
func ListMonitors() ([]MonitorInfo, error) {
	return backend.ListMonitors()
}

// ListWindows retrieves the available top-level windows using the platform backend.
func ListWindows() ([]WindowInfo, error) {
	return backend.ListWindows()
}

// FindMonitor resolves a monitor selector against the provided list. The
// selector is empty, "primary", an index with optional '#', or part of a
// monitor name.
func FindMonitor(monitors []MonitorInfo, selector string) (MonitorInfo, error) {
	if len(monitors) == 0 {
		return MonitorInfo{}, errNoMonitors
	}
	lower := strings.ToLower(strings.TrimSpace(selector))
	switch lower {
	case "":
		return monitors[0], nil
	case "primary":
		for _, mon := range monitors {
			if mon.Primary {
				return mon, nil
			}
		}
		return monitors[0], nil
	}
	if idx, err := strconv.Atoi(strings.TrimPrefix(lower, "#")); err == nil {
		if idx < 0 || idx >= len(monitors) {
			return MonitorInfo{}, fmt.Errorf("monitor index %d out of range", idx)
		}
		return monitors[idx], nil
	}
	for _, mon := range monitors {
		if strings.Contains(strings.ToLower(mon.Name), lower) {
			return mon, nil
		}
	}
	return MonitorInfo{}, fmt.Errorf("monitor %q not found", selector)
}

// windowMatchers resolve "prefix:value" window selectors.
var windowMatchers = map[string]func(needle string, w WindowInfo) bool{
	"exec": func(n string, w WindowInfo) bool { return containsFold(w.Executable, n) },
	"class": func(n string, w WindowInfo) bool {
		return containsFold(w.Class, n) || containsFold(w.Instance, n)
	},
	"title": func(n string, w WindowInfo) bool { return containsFold(w.Title, n) },
	"name":  func(n string, w WindowInfo) bool { return containsFold(w.Title, n) },
}

// SelectWindow matches a selector string against the list of windows.
// Empty picks the active window or the topmost one. Supported forms are
// "active", "index:N", "id:ID", "pid:N", "exec:", "class:", "title:",
// "name:", a bare index, a hex id, or free text matched against title,
// executable and class.
func SelectWindow(selector string, windows []WindowInfo) (WindowInfo, error) {
	if len(windows) == 0 {
		return WindowInfo{}, errNoWindows
	}
	sel := strings.TrimSpace(selector)
	lower := strings.ToLower(sel)
	if sel == "" || lower == "active" {
		for _, win := range windows {
			if win.Active {
				return win, nil
			}
		}
		if sel == "" {
			return windows[len(windows)-1], nil
		}
		return WindowInfo{}, fmt.Errorf("no active window detected")
	}

	prefix, rest, hasPrefix := strings.Cut(sel, ":")
	prefix = strings.ToLower(prefix)
	rest = strings.TrimSpace(rest)
	if hasPrefix {
		switch prefix {
		case "index":
			return windowAt(windows, rest)
		case "id":
			return windowByID(windows, rest)
		case "pid":
			pid, err := strconv.ParseUint(rest, 10, 32)
			if err != nil {
				return WindowInfo{}, fmt.Errorf("invalid pid %q", rest)
			}
			for _, win := range windows {
				if win.PID == uint32(pid) {
					return win, nil
				}
			}
			return WindowInfo{}, fmt.Errorf("window with pid %d not found", pid)
		}
		if match, ok := windowMatchers[prefix]; ok {
			for _, win := range windows {
				if match(rest, win) {
					return win, nil
				}
			}
			return WindowInfo{}, fmt.Errorf("window with %s %q not found", prefix, rest)
		}
	}

	if _, err := strconv.Atoi(sel); err == nil {
		return windowAt(windows, sel)
	}
	if strings.HasPrefix(lower, "0x") {
		if _, err := parseWindowID(sel); err == nil {
			return windowByID(windows, sel)
		}
	}
	for _, win := range windows {
		if containsFold(win.Title, sel) || containsFold(win.Executable, sel) ||
			containsFold(win.Class, sel) || containsFold(win.Instance, sel) {
			return win, nil
		}
	}
	return WindowInfo{}, fmt.Errorf("no window matched %q", selector)
}

func windowAt(windows []WindowInfo, val string) (WindowInfo, error) {
	idx, err := strconv.Atoi(val)
	if err != nil {
		return WindowInfo{}, fmt.Errorf("invalid index %q", val)
	}
	if idx < 0 || idx >= len(windows) {
		return WindowInfo{}, fmt.Errorf("window index %d out of range", idx)
	}
	return windows[idx], nil
}

func windowByID(windows []WindowInfo, val string) (WindowInfo, error) {
	id, err := parseWindowID(val)
	if err != nil {
		return WindowInfo{}, err
	}
	for _, win := range windows {
		if win.ID == id {
			return win, nil
		}
	}
	return WindowInfo{}, fmt.Errorf("window id 0x%x not found", id)
}

func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}

func parseWindowID(val string) (uint32, error) {
	v := strings.TrimSpace(val)
	base := 10
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		v, base = v[2:], 16
	}
	parsed, err := strconv.ParseUint(v, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q", val)
	}
	return uint32(parsed), nil
}
