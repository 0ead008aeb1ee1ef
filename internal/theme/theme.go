package theme

import (
	"image/color"
)

// Theme is the palette of the preview chrome and the published overlay.
type Theme struct {
	Name string

	// Preview
	Background      color.RGBA // Preview area outside the workspace
	WorkspaceBorder color.RGBA // Frame drawn around the workspace
	Selection       color.RGBA // Pending drag guide

	// Overlay
	Redaction    color.RGBA // Fill for committed redactions
	BadgeBacking color.RGBA // Translucent box behind the badge

	// Status bar
	StatusBackground color.RGBA
	StatusText       color.RGBA
}

// Default returns the hardcoded default theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:             "Default",
		Background:       color.RGBA{48, 48, 48, 255},
		WorkspaceBorder:  color.RGBA{0x21, 0x21, 0x21, 255},
		Selection:        color.RGBA{0, 0, 0, 255},
		Redaction:        color.RGBA{0, 0, 0, 255},
		BadgeBacking:     color.RGBA{0, 0, 0, 153},
		StatusBackground: color.RGBA{220, 220, 220, 255},
		StatusText:       color.RGBA{0, 0, 0, 255},
	}
}
