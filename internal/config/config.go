package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/example/sharecrop/internal/theme"
)

// Compositor holds frame loop settings.
type Compositor struct {
	FrameRate     float64 // 0 uses the source track's rate
	Margin        float64
	PreviewWidth  int
	PreviewHeight int
}

// Editor holds interactive editing settings.
type Editor struct {
	MinDrag        float64
	RedactionColor string // empty uses the theme colour
	Badge          string // path or URL, empty for the embedded badge
	BadgeEnabled   bool
}

// Notify holds notification settings.
type Notify struct {
	Accept bool
	Cancel bool
	Ended  bool
}

// Config holds the application configuration.
type Config struct {
	Theme      string
	LogLevel   string
	SaveDir    string
	Compositor Compositor
	Editor     Editor
	Notify     Notify
	Themes     map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme:    "", // Default to empty to allow fallback to Env/Default
		LogLevel: "info",
		Compositor: Compositor{
			Margin:        50,
			PreviewWidth:  960,
			PreviewHeight: 540,
		},
		Editor: Editor{
			MinDrag:        3,
			BadgeEnabled:   true,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.LogLevel != "" {
		fmt.Fprintf(&sb, "log_level = %s\n", c.LogLevel)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	sb.WriteString("\n")

	sb.WriteString("[compositor]\n")
	fmt.Fprintf(&sb, "frame_rate = %s\n", formatFloat(c.Compositor.FrameRate))
	fmt.Fprintf(&sb, "margin = %s\n", formatFloat(c.Compositor.Margin))
	fmt.Fprintf(&sb, "preview_width = %d\n", c.Compositor.PreviewWidth)
	fmt.Fprintf(&sb, "preview_height = %d\n", c.Compositor.PreviewHeight)
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "min_drag = %s\n", formatFloat(c.Editor.MinDrag))
	if c.Editor.RedactionColor != "" {
		fmt.Fprintf(&sb, "redaction_color = %s\n", c.Editor.RedactionColor)
	}
	if c.Editor.Badge != "" {
		fmt.Fprintf(&sb, "badge = %s\n", c.Editor.Badge)
	}
	fmt.Fprintf(&sb, "badge_enabled = %v\n", c.Editor.BadgeEnabled)
	sb.WriteString("\n")

	// Notify section
	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "accept = %v\n", c.Notify.Accept)
	fmt.Fprintf(&sb, "cancel = %v\n", c.Notify.Cancel)
	fmt.Fprintf(&sb, "ended = %v\n", c.Notify.Ended)
	sb.WriteString("\n")

	// Themes sections
	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		sb.WriteString(c.Themes[name].String())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ThemeLoader returns a theme loader that also sees the themes defined in
// this config.
func (c *Config) ThemeLoader() *theme.Loader {
	l := theme.NewLoader()
	l.Custom = c.Themes
	return l
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
