//go:build linux || freebsd || openbsd || netbsd || dragonfly

package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"github.com/sirupsen/logrus"
)

type x11Backend struct{}

// errWaylandRoot is returned for root grabs under Wayland, where the X root
// window only shows XWayland clients.
var errWaylandRoot = errors.New("screen capture through X11 is unavailable in a Wayland session")

func newBackend() platformBackend {
	return x11Backend{}
}

func runningOnWayland() bool {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")), "wayland") {
		return true
	}
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// display is one X connection with its default screen.
type display struct {
	conn  *xgb.Conn
	setup *xproto.SetupInfo
	root  xproto.Window
	atoms map[string]xproto.Atom
}

func openDisplay() (*display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}
	setup := xproto.Setup(conn)
	if setup == nil {
		conn.Close()
		return nil, fmt.Errorf("xproto setup unavailable")
	}
	screen := setup.DefaultScreen(conn)
	if screen == nil {
		conn.Close()
		return nil, fmt.Errorf("xproto screen unavailable")
	}
	return &display{conn: conn, setup: setup, root: screen.Root, atoms: map[string]xproto.Atom{}}, nil
}

func (x11Backend) ListMonitors() ([]MonitorInfo, error) {
	d, err := openDisplay()
	if err != nil {
		return nil, err
	}
	defer d.conn.Close()
	monitors, err := d.monitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, errNoMonitors
	}
	return monitors, nil
}

func (x11Backend) ListWindows() ([]WindowInfo, error) {
	d, err := openDisplay()
	if err != nil {
		return nil, err
	}
	defer d.conn.Close()
	monitors, _ := d.monitors()
	activeID, _ := d.activeWindow()
	windows, err := d.windows(monitors, activeID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, errNoWindows
	}
	return windows, nil
}

func (x11Backend) Dial() (grabber, error) {
	d, err := openDisplay()
	if err != nil {
		return nil, err
	}
	logrus.WithField("function", "Dial").Debug("X display opened for live capture")
	return &x11Grabber{d: d}, nil
}

// x11Grabber reads frames with GetImage over a long-lived connection.
type x11Grabber struct {
	mu sync.Mutex
	d  *display
}

func (g *x11Grabber) Grab(t Target) (*image.RGBA, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.d == nil {
		return nil, fmt.Errorf("grabber closed")
	}
	drawable := xproto.Drawable(g.d.root)
	kind := "screen"
	if t.Window == 0 && runningOnWayland() {
		return nil, errWaylandRoot
	}
	if t.Window != 0 {
		drawable = xproto.Drawable(t.Window)
		kind = "window"
	}
	geo, err := xproto.GetGeometry(g.d.conn, drawable).Reply()
	if err != nil {
		return nil, fmt.Errorf("%s geometry: %w", kind, err)
	}
	area := image.Rect(0, 0, int(geo.Width), int(geo.Height))
	if !t.Rect.Empty() {
		area = t.Rect.Intersect(area)
	}
	if area.Empty() {
		return nil, fmt.Errorf("%s has empty geometry", kind)
	}
	reply, err := xproto.GetImage(g.d.conn, xproto.ImageFormatZPixmap, drawable,
		int16(area.Min.X), int16(area.Min.Y), uint16(area.Dx()), uint16(area.Dy()), ^uint32(0)).Reply()
	if err != nil {
		return nil, fmt.Errorf("%s pixels: %w", kind, err)
	}
	return xImageToRGBA(g.d.setup, reply, area.Dx(), area.Dy(), kind)
}

func (g *x11Grabber) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.d != nil {
		g.d.conn.Close()
		g.d = nil
	}
	return nil
}

func (d *display) monitors() ([]MonitorInfo, error) {
	if err := randr.Init(d.conn); err != nil {
		return nil, fmt.Errorf("init randr: %w", err)
	}
	res, err := randr.GetScreenResources(d.conn, d.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("randr screen resources: %w", err)
	}
	var primaryOutput randr.Output
	if primary, err := randr.GetOutputPrimary(d.conn, d.root).Reply(); err == nil {
		primaryOutput = primary.Output
	}
	monitors := make([]MonitorInfo, 0, len(res.Outputs))
	for _, output := range res.Outputs {
		info, err := randr.GetOutputInfo(d.conn, output, res.ConfigTimestamp).Reply()
		if err != nil || info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(d.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		x, y := int(crtc.X), int(crtc.Y)
		monitors = append(monitors, MonitorInfo{
			Index:   len(monitors),
			Name:    strings.TrimSpace(string(info.Name)),
			Rect:    image.Rect(x, y, x+int(crtc.Width), y+int(crtc.Height)),
			Primary: output == primaryOutput,
		})
	}
	return monitors, nil
}

func (d *display) activeWindow() (uint32, error) {
	reply, err := d.property(d.root, "_NET_ACTIVE_WINDOW", xproto.AtomWindow, 1)
	if err != nil {
		return 0, err
	}
	if reply.Format != 32 || reply.ValueLen == 0 {
		return 0, fmt.Errorf("active window unavailable")
	}
	return xgb.Get32(reply.Value), nil
}

// windows lists client windows topmost first.
func (d *display) windows(monitors []MonitorInfo, activeID uint32) ([]WindowInfo, error) {
	reply, err := d.property(d.root, "_NET_CLIENT_LIST_STACKING", xproto.AtomWindow, 1<<16)
	if err != nil || reply.Format != 32 || reply.ValueLen == 0 {
		reply, err = d.property(d.root, "_NET_CLIENT_LIST", xproto.AtomWindow, 1<<16)
		if err != nil {
			return nil, err
		}
	}
	n := int(reply.ValueLen)
	windows := make([]WindowInfo, 0, n)
	for idx := n - 1; idx >= 0; idx-- {
		win := xproto.Window(xgb.Get32(reply.Value[idx*4:]))
		info, err := d.describe(win)
		if err != nil {
			continue
		}
		info.Index = len(windows)
		info.Active = info.ID == activeID
		info.Monitor = monitorForRect(info.Rect, monitors)
		windows = append(windows, info)
	}
	return windows, nil
}

func (d *display) describe(win xproto.Window) (WindowInfo, error) {
	rect, err := d.windowRect(win)
	if err != nil {
		return WindowInfo{}, err
	}
	title := d.text(win, "_NET_WM_NAME", d.atom("UTF8_STRING"))
	if title == "" {
		title = d.text(win, "WM_NAME", xproto.AtomString)
	}
	class, instance := d.class(win)
	pid := d.pid(win)
	return WindowInfo{
		ID:         uint32(win),
		Title:      title,
		Class:      class,
		Instance:   instance,
		PID:        pid,
		Executable: readExecutable(pid),
		Rect:       rect,
		Monitor:    -1,
	}, nil
}

func (d *display) windowRect(win xproto.Window) (image.Rectangle, error) {
	geo, err := xproto.GetGeometry(d.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return image.Rectangle{}, err
	}
	trans, err := xproto.TranslateCoordinates(d.conn, win, d.root, int16(geo.X), int16(geo.Y)).Reply()
	if err != nil {
		return image.Rectangle{}, err
	}
	border := int(geo.BorderWidth)
	x := int(trans.DstX) - border
	y := int(trans.DstY) - border
	return image.Rect(x, y, x+int(geo.Width)+2*border, y+int(geo.Height)+2*border), nil
}

func monitorForRect(rect image.Rectangle, monitors []MonitorInfo) int {
	if len(monitors) == 0 {
		return -1
	}
	center := image.Pt(rect.Min.X+rect.Dx()/2, rect.Min.Y+rect.Dy()/2)
	for _, mon := range monitors {
		if center.In(mon.Rect) {
			return mon.Index
		}
	}
	return monitors[0].Index
}

// atom interns name, caching the result. Zero means unknown.
func (d *display) atom(name string) xproto.Atom {
	if a, ok := d.atoms[name]; ok {
		return a
	}
	reply, err := xproto.InternAtom(d.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0
	}
	d.atoms[name] = reply.Atom
	return reply.Atom
}

func (d *display) property(win xproto.Window, name string, typ xproto.Atom, length uint32) (*xproto.GetPropertyReply, error) {
	a := d.atom(name)
	if a == 0 {
		return nil, fmt.Errorf("atom %s unavailable", name)
	}
	return xproto.GetProperty(d.conn, false, win, a, typ, 0, length).Reply()
}

func (d *display) text(win xproto.Window, name string, typ xproto.Atom) string {
	if typ == 0 {
		return ""
	}
	reply, err := d.property(win, name, typ, 1<<16)
	if err != nil || reply.ValueLen == 0 {
		return ""
	}
	return strings.TrimRight(string(reply.Value), "\x00")
}

// class returns WM_CLASS as (class, instance).
func (d *display) class(win xproto.Window) (string, string) {
	reply, err := d.property(win, "WM_CLASS", xproto.AtomString, 64)
	if err != nil || reply.ValueLen == 0 {
		return "", ""
	}
	var vals []string
	for _, p := range bytes.Split(reply.Value, []byte{0}) {
		if len(p) > 0 {
			vals = append(vals, string(p))
		}
	}
	switch len(vals) {
	case 0:
		return "", ""
	case 1:
		return vals[0], vals[0]
	}
	return vals[1], vals[0]
}

func (d *display) pid(win xproto.Window) uint32 {
	reply, err := d.property(win, "_NET_WM_PID", xproto.AtomCardinal, 1)
	if err != nil || reply.Format != 32 || reply.ValueLen == 0 {
		return 0
	}
	return xgb.Get32(reply.Value)
}

func readExecutable(pid uint32) string {
	if pid == 0 {
		return ""
	}
	proc := filepath.Join("/proc", fmt.Sprint(pid))
	if data, err := os.ReadFile(filepath.Join(proc, "comm")); err == nil {
		return strings.TrimSpace(string(data))
	}
	if exe, err := os.Readlink(filepath.Join(proc, "exe")); err == nil {
		return filepath.Base(exe)
	}
	if data, err := os.ReadFile(filepath.Join(proc, "cmdline")); err == nil {
		if first, _, _ := bytes.Cut(data, []byte{0}); len(first) > 0 {
			return filepath.Base(string(first))
		}
	}
	return ""
}
