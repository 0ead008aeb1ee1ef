// Package notify sends desktop notifications for sharing session events.
package notify

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/example/sharecrop/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventAccept fires when a selection is accepted and publishing starts.
	EventAccept Event = "accept"
	// EventCancel fires when the user cancels the selection.
	EventCancel Event = "cancel"
	// EventEnded fires when the shared source stops.
	EventEnded Event = "ended"
)

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "sharecrop",
		Events: map[Event]EventPreference{
			EventAccept: {Template: "Sharing %s"},
			EventCancel: {Template: "Sharing cancelled: %s"},
			EventEnded:  {Template: "Sharing ended: %s"},
		},
	}
}

// LoadPreferences reads configuration from environment variables.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("SHARECROP_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			eventPrefs := prefs.Events[event]
			eventPrefs.Template = v
			prefs.Events[event] = eventPrefs
		}
	}
	apply("SHARECROP_NOTIFY_ACCEPT_TEXT", EventAccept)
	apply("SHARECROP_NOTIFY_CANCEL_TEXT", EventCancel)
	apply("SHARECROP_NOTIFY_ENDED_TEXT", EventEnded)
	return prefs
}

// send is swapped in tests.
var send = platform.Notify

// Notifier sends OS-level notifications based on the configured preferences.
// A nil Notifier is valid and sends nothing.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool)}
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Accept announces that a region is being shared, with an optional preview
// of the first published frame.
func (n *Notifier) Accept(region string, img image.Image) {
	if !n.enabledFor(EventAccept) {
		return
	}
	opts := platform.Options{}
	if img != nil {
		if path, cleanup, err := createPreview(img); err != nil {
			logrus.WithField("function", "Accept").WithError(err).Warn("notification preview")
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	n.dispatch(EventAccept, region, opts)
}

// Cancel announces a cancelled selection.
func (n *Notifier) Cancel(reason string) {
	if strings.TrimSpace(reason) == "" {
		reason = "by user"
	}
	n.dispatch(EventCancel, reason, platform.Options{})
}

// Ended announces that the shared source stopped.
func (n *Notifier) Ended(label string) {
	if strings.TrimSpace(label) == "" {
		label = "source"
	}
	n.dispatch(EventEnded, label, platform.Options{Urgent: true})
}

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil {
		return false
	}
	if n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.template(event))
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	if err := send(n.prefs.Title, body, opts); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "dispatch",
			"event":    event,
		}).WithError(err).Warn("notification failed")
	}
}

func (n *Notifier) template(event Event) string {
	if n == nil {
		return ""
	}
	if pref, ok := n.prefs.Events[event]; ok {
		return pref.Template
	}
	return ""
}

// previewMaxSide bounds the longer edge of notification previews.
const previewMaxSide = 256

// thumbnail scales img down to fit previewMaxSide, keeping its aspect.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	long := max(b.Dx(), b.Dy())
	if long <= previewMaxSide {
		return img
	}
	w := max(1, b.Dx()*previewMaxSide/long)
	h := max(1, b.Dy()*previewMaxSide/long)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "sharecrop-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, thumbnail(img)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Debug("remove preview")
		}
	}
	return path, cleanup, nil
}
