package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/capture"
	"github.com/example/sharecrop/internal/clipboard"
	"github.com/example/sharecrop/internal/compositor"
	"github.com/example/sharecrop/internal/geom"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/session"
)

// rectList collects repeated x,y,w,h flags.
type rectList []geom.Rect

func (l *rectList) String() string {
	parts := make([]string, len(*l))
	for i, r := range *l {
		parts[i] = clipboard.FormatRect(r)
	}
	return strings.Join(parts, " ")
}

func (l *rectList) Set(s string) error {
	r, err := clipboard.ParseRect(s)
	if err != nil {
		return err
	}
	*l = append(*l, r)
	return nil
}

type renderCmd struct {
	*root
	fs *flag.FlagSet

	input   string
	output  string
	copy    bool
	timeout time.Duration
	crops   rectList
	redacts rectList
	opts    editOptions
}

func (c *renderCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *renderCmd) Template() string {
	return "render.txt"
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c := &renderCmd{root: r, fs: fs, opts: r.defaultEditOptions()}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.input, "in", "", "input image")
	fs.StringVar(&c.output, "out", "", "output PNG file")
	fs.BoolVar(&c.copy, "copy", false, "copy the result to the clipboard")
	fs.Var(&c.crops, "crop", "crop rectangle x,y,w,h (repeatable)")
	fs.Var(&c.redacts, "redact", "redaction rectangle x,y,w,h (repeatable)")
	fs.DurationVar(&c.timeout, "badge-timeout", 10*time.Second, "how long to wait for a remote badge")
	fs.StringVar(&c.opts.badge, "badge", c.opts.badge, "badge image path or URL")
	fs.BoolVar(&c.opts.noBadge, "no-badge", c.opts.noBadge, "do not stamp a badge")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.input == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	if c.output == "" && !c.copy {
		return nil, fmt.Errorf("-out or -copy is required")
	}
	return c, nil
}

// render applies the edits to src and returns the composited frame.
func (c *renderCmd) render(ctx context.Context, src media.FrameSource) (image.Image, error) {
	log := logrus.WithFields(logrus.Fields{"function": "render", "input": c.input})
	sess := session.New(c.sessionOptions(c.opts, image.Point{}))
	future := sess.Begin(src)
	defer sess.Release()

	for _, r := range c.crops {
		sess.PushCrop(r)
	}
	for _, r := range c.redacts {
		sess.PushRedaction(r)
	}
	sess.Accept(ctx)
	res, err := future.Wait(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("crop", clipboard.FormatRect(res.CropRect)).Debug("edits applied")

	opts := c.compositorOptions(c.opts, image.Point{})
	opts.Lock = sess.Locker()
	loop := compositor.New(src, media.Settings{}, sess.Scene(), opts)
	defer loop.Release()
	loop.SetPreviewEnabled(false)
	if !loop.Tick() {
		return nil, fmt.Errorf("source produced no frame")
	}
	out := loop.Output()
	if out == nil {
		return nil, fmt.Errorf("no frame composited")
	}
	if out.Bounds().Empty() {
		return nil, fmt.Errorf("crop %s is empty", clipboard.FormatRect(res.CropRect))
	}
	return out, nil
}

func (c *renderCmd) Run() error {
	src, err := capture.LoadStillSource(c.input)
	if err != nil {
		return err
	}
	defer src.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	img, err := c.render(ctx, src)
	if err != nil {
		return fmt.Errorf("render %s: %w", c.input, err)
	}
	if c.output != "" {
		if err := savePNG(c.output, img); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved %s\n", c.output)
	}
	if c.copy {
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	return nil
}
