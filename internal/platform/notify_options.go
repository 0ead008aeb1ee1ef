package platform

// DefaultAppName is reported to the notification service when Options does
// not name the sender.
const DefaultAppName = "sharecrop"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// AppName identifies the sender. Empty means DefaultAppName.
	AppName string
	// IconPath, when non-empty, points to an image file the notification center
	// should display with the notification if supported by the platform.
	IconPath string
	// Urgent asks the notification center to keep the message visible.
	Urgent bool
	// TimeoutMillis is how long the message stays up. Zero means 5000.
	TimeoutMillis int32
}

func (o Options) app() string {
	if o.AppName == "" {
		return DefaultAppName
	}
	return o.AppName
}

func (o Options) timeout() int32 {
	if o.TimeoutMillis == 0 {
		return 5000
	}
	return o.TimeoutMillis
}
