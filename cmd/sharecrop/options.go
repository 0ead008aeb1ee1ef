package main

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/assets"
	"github.com/example/sharecrop/internal/compositor"
	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/overlay"
	"github.com/example/sharecrop/internal/session"
	"github.com/example/sharecrop/internal/theme"
)

// editOptions are the knobs shared by edit and render.
type editOptions struct {
	frameRate float64
	margin    float64
	minDrag   float64
	badge     string
	noBadge   bool
}

func (r *root) defaultEditOptions() editOptions {
	return editOptions{
		frameRate: r.config.Compositor.FrameRate,
		margin:    r.config.Compositor.Margin,
		minDrag:   r.config.Editor.MinDrag,
		badge:     r.config.Editor.Badge,
		noBadge:   !r.config.Editor.BadgeEnabled,
	}
}

func (r *root) currentTheme() *theme.Theme {
	if r.activeTheme == nil {
		return theme.Default()
	}
	return r.activeTheme
}

// sessionOptions combines the theme, the config and the command flags.
func (r *root) sessionOptions(o editOptions, preview image.Point) session.Options {
	th := r.currentTheme()
	opts := session.Options{
		PreviewSize:     geom.Size{Width: float64(preview.X), Height: float64(preview.Y)},
		Margin:          o.margin,
		MinDragDistance: o.minDrag,
		RedactionColor:  th.Redaction,
		BadgeBacking:    th.BadgeBacking,
	}
	if s := r.config.Editor.RedactionColor; s != "" {
		if c, err := theme.ParseColor(s); err != nil {
			logrus.WithField("redaction_color", s).WithError(err).Warn("using theme redaction colour")
		} else {
			opts.RedactionColor = c
		}
	}
	if !o.noBadge {
		opts.Badge = badgeFunc(o.badge)
	}
	return opts
}

func (r *root) compositorOptions(o editOptions, preview image.Point) compositor.Options {
	return compositor.Options{
		FrameRate:   o.frameRate,
		Margin:      o.margin,
		PreviewSize: geom.Size{Width: float64(preview.X), Height: float64(preview.Y)},
		Theme:       r.currentTheme(),
	}
}

// badgeFunc loads source, or the embedded badge when source is empty.
func badgeFunc(source string) session.BadgeFunc {
	if source == "" {
		return func(context.Context) (image.Image, error) { return assets.Badge() }
	}
	return func(ctx context.Context) (image.Image, error) {
		return overlay.LoadBadge(ctx, source)
	}
}
