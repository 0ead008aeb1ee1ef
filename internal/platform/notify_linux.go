//go:build linux

package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = notifyDest + ".Notify"
)

// Notify sends a message to the session bus notification daemon.
func Notify(title, body string, opts Options) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	call := conn.Object(notifyDest, notifyPath).CallWithContext(ctx, notifyMethod, 0,
		opts.app(), uint32(0), opts.IconPath, title, body, []string{}, hints(opts), opts.timeout())
	if call.Err != nil {
		return fmt.Errorf("%s: %w", notifyMethod, call.Err)
	}
	return nil
}

// hints maps Options onto freedesktop notification hints. Non-urgent
// messages are transient so they do not pile up in the history.
func hints(opts Options) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"desktop-entry": dbus.MakeVariant(opts.app()),
	}
	if opts.Urgent {
		h["urgency"] = dbus.MakeVariant(byte(2))
	} else {
		h["transient"] = dbus.MakeVariant(true)
	}
	return h
}
