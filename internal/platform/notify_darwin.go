//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Notify shows body through Notification Center. Urgent messages play the
// default alert sound.
func Notify(title, body string, opts Options) error {
	script := fmt.Sprintf("display notification %q with title %q subtitle %q", body, title, opts.app())
	if opts.Urgent {
		script += ` sound name "default"`
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.timeout())*time.Millisecond)
	defer cancel()
	if out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, out)
	}
	return nil
}
