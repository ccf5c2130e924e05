package platform

import "time"

// AppName identifies the application to the host notification service.
const AppName = "Quickmark"

// DefaultTimeout is how long a notification stays visible when Options
// leaves Timeout unset.
const DefaultTimeout = 5 * time.Second

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image file shown with the
	// notification where supported.
	IconPath string
	// Timeout overrides DefaultTimeout on platforms that honour it.
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}
