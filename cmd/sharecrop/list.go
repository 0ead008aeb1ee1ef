package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/example/sharecrop/internal/capture"
)

type windowsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseWindowsCmd(args []string, r *root) (*windowsCmd, error) {
	fs := flag.NewFlagSet("windows", flag.ExitOnError)
	cmd := &windowsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *windowsCmd) Run() error {
	windows, err := capture.ListWindows()
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		fmt.Fprintln(os.Stdout, "no windows available")
		return nil
	}
	fmt.Fprintln(os.Stdout, "available windows (* marks the active window):")
	for _, win := range windows {
		marker := " "
		if win.Active {
			marker = "*"
		}
		fmt.Fprintf(os.Stdout, "%s %s\n", marker, formatWindowLabel(win))
	}
	fmt.Fprintln(os.Stdout, "selectors: index:<n>, id:<hex>, pid:<pid>, exec:<name>, class:<name>, title:<text>, substring match")
	return nil
}

func (c *windowsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *windowsCmd) Template() string {
	return "windows.txt"
}

func formatWindowLabel(win capture.WindowInfo) string {
	label := fmt.Sprintf("%2d: 0x%08x", win.Index, win.ID)
	if win.Title != "" {
		label += fmt.Sprintf(" %q", win.Title)
	}
	if win.Class != "" {
		label += " [" + win.Class + "]"
	}
	if win.Executable != "" {
		label += " " + win.Executable
	}
	if win.PID > 0 {
		label += fmt.Sprintf(" pid %d", win.PID)
	}
	if !win.Rect.Empty() {
		label += fmt.Sprintf(" %dx%d+%d+%d", win.Rect.Dx(), win.Rect.Dy(), win.Rect.Min.X, win.Rect.Min.Y)
	}
	return label
}

type monitorsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseMonitorsCmd(args []string, r *root) (*monitorsCmd, error) {
	fs := flag.NewFlagSet("monitors", flag.ExitOnError)
	cmd := &monitorsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *monitorsCmd) Run() error {
	monitors, err := capture.ListMonitors()
	if err != nil {
		return err
	}
	if len(monitors) == 0 {
		fmt.Fprintln(os.Stdout, "no monitors available")
		return nil
	}
	fmt.Fprintln(os.Stdout, "available monitors (* marks the primary monitor):")
	for _, m := range monitors {
		marker := " "
		if m.Primary {
			marker = "*"
		}
		fmt.Fprintf(os.Stdout, "%s #%d %-10s %dx%d+%d+%d\n", marker, m.Index, m.Name,
			m.Rect.Dx(), m.Rect.Dy(), m.Rect.Min.X, m.Rect.Min.Y)
	}
	fmt.Fprintln(os.Stdout, "selectors: primary, #<n>, <n>, name substring")
	return nil
}

func (c *monitorsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *monitorsCmd) Template() string {
	return "monitors.txt"
}
