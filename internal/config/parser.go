package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/theme"
)

// Parse reads configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	// Context for parsing
	var currentSection string
	var currentTheme *theme.Theme

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		// Handle Sections
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			currentTheme = nil

			if strings.HasPrefix(currentSection, "theme.") {
				themeName := strings.TrimPrefix(currentSection, "theme.")
				// Start with defaults so missing keys are fine
				currentTheme = theme.Default()
				currentTheme.Name = themeName
				cfg.Themes[themeName] = currentTheme
			}
			continue
		}

		// Parse Key = Value or Key: Value
		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		// Remove quotes if present
		if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
			value = value[1 : len(value)-1]
		}

		var err error
		switch {
		case currentTheme != nil:
			err = currentTheme.Set(key, value)
		case currentSection == "compositor":
			err = setCompositorField(&cfg.Compositor, key, value)
		case currentSection == "editor":
			err = setEditorField(&cfg.Editor, key, value)
		case currentSection == "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		case currentSection == "":
			err = setRootField(cfg, key, value)
		default:
			logrus.WithFields(logrus.Fields{
				"function": "Parse",
				"section":  currentSection,
				"key":      key,
			}).Debug("ignoring key in unknown section")
		}
		if err != nil {
			section := currentSection
			if section == "" {
				section = "root"
			}
			return nil, fmt.Errorf("error in section [%s]: %w", section, err)
		}
	}

	return cfg, scanner.Err()
}

func setRootField(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "theme":
		cfg.Theme = value
	case "log_level":
		if _, err := logrus.ParseLevel(value); err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		cfg.LogLevel = value
	case "save_dir":
		cfg.SaveDir = value
	}
	return nil
}

func setCompositorField(c *Compositor, key, value string) error {
	switch strings.ToLower(key) {
	case "frame_rate":
		return parseNonNegative(key, value, &c.FrameRate)
	case "margin":
		return parseNonNegative(key, value, &c.Margin)
	case "preview_width":
		return parsePositiveInt(key, value, &c.PreviewWidth)
	case "preview_height":
		return parsePositiveInt(key, value, &c.PreviewHeight)
	}
	return nil
}

func setEditorField(e *Editor, key, value string) error {
	switch strings.ToLower(key) {
	case "min_drag":
		return parseNonNegative(key, value, &e.MinDrag)
	case "redaction_color":
		if _, err := theme.ParseColor(value); err != nil {
			return fmt.Errorf("invalid color for key %s: %w", key, err)
		}
		e.RedactionColor = value
	case "badge":
		e.Badge = value
	case "badge_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for key %s: %w", key, err)
		}
		e.BadgeEnabled = b
	}
	return nil
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch strings.ToLower(key) {
	case "accept":
		n.Accept = b
	case "cancel":
		n.Cancel = b
	case "ended":
		n.Ended = b
	}
	return nil
}

func parseNonNegative(key, value string, dst *float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("invalid number for key %s: %q", key, value)
	}
	*dst = f
	return nil
}

func parsePositiveInt(key, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid size for key %s: %q", key, value)
	}
	*dst = n
	return nil
}
