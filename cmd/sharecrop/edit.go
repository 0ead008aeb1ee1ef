package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/bridge"
	"github.com/example/sharecrop/internal/capture"
	"github.com/example/sharecrop/internal/clipboard"
	"github.com/example/sharecrop/internal/editor"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/scheduler"
	"github.com/example/sharecrop/internal/session"
	"github.com/example/sharecrop/internal/timeutil"
)

type editCmd struct {
	*root
	fs *flag.FlagSet

	source   string
	kind     capture.Kind
	selector string
	output   string
	copy     bool
	duration time.Duration
	width    int
	height   int
	opts     editOptions
}

func (c *editCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *editCmd) Template() string {
	return "edit.txt"
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	c := &editCmd{root: r, fs: fs, opts: r.defaultEditOptions()}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.source, "source", string(capture.KindScreen), "what to capture: screen, monitor, window, file or portal")
	fs.StringVar(&c.output, "out", "", "write the last published frame to this PNG file")
	fs.BoolVar(&c.copy, "copy", false, "copy the last published frame to the clipboard")
	fs.DurationVar(&c.duration, "duration", 0, "stop publishing after this long (0 runs until the source ends)")
	fs.IntVar(&c.width, "width", r.config.Compositor.PreviewWidth, "preview width in pixels")
	fs.IntVar(&c.height, "height", r.config.Compositor.PreviewHeight, "preview height in pixels")
	fs.Float64Var(&c.opts.frameRate, "fps", c.opts.frameRate, "compositing frame rate (0 uses the source rate)")
	fs.Float64Var(&c.opts.margin, "margin", c.opts.margin, "preview margin in pixels")
	fs.Float64Var(&c.opts.minDrag, "min-drag", c.opts.minDrag, "drags smaller than this many preview pixels are ignored")
	fs.StringVar(&c.opts.badge, "badge", c.opts.badge, "badge image path or URL stamped on accept")
	fs.BoolVar(&c.opts.noBadge, "no-badge", c.opts.noBadge, "do not stamp a badge on accept")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	kind, err := capture.ParseKind(c.source)
	if err != nil {
		return nil, err
	}
	c.kind = kind
	switch fs.NArg() {
	case 0:
	case 1:
		c.selector = fs.Arg(0)
	default:
		return nil, &UsageError{of: c}
	}
	if c.kind == capture.KindFile && c.selector == "" {
		return nil, fmt.Errorf("a file path is required with -source file")
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, fmt.Errorf("preview size must be positive, got %dx%d", c.width, c.height)
	}
	return c, nil
}

func (c *editCmd) previewSize() image.Point {
	return image.Pt(c.width, c.height)
}

func (c *editCmd) acquire(ctx context.Context, cons bridge.Constraints) (*media.Stream, error) {
	return capture.Open(ctx, capture.Request{
		Kind:      c.kind,
		Selector:  cons.Target,
		FrameRate: c.opts.frameRate,
	})
}

func (c *editCmd) Run() error {
	ed := editor.New(editor.Options{
		Title:     c.program,
		Size:      c.previewSize().Add(image.Pt(0, editor.StatusHeight)),
		Theme:     c.currentTheme(),
		Clipboard: editor.SystemClipboard,
	})
	var err error
	ed.Run(func() {
		err = c.run(ed, ed)
	})
	return err
}

// run shares one edited stream. Compositing is paced by host's frame
// callbacks.
func (c *editCmd) run(view bridge.View, host scheduler.Host) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logrus.WithFields(logrus.Fields{"function": "edit", "source": c.kind, "selector": c.selector})

	b := bridge.New(bridge.Options{
		Session:    c.sessionOptions(c.opts, c.previewSize()),
		Compositor: c.compositorOptions(c.opts, c.previewSize()),
		Scheduler:  scheduler.New(host, timeutil.RealClock{}),
		View:       view,
		Notifier:   c.notifier,
	})
	ic := bridge.NewInterceptor(b, c.acquire, nil)
	out, err := ic.DisplayMedia(ctx, bridge.Constraints{Video: true, Target: c.selector})
	if err != nil {
		if errors.Is(err, session.ErrCancelled) {
			log.WithError(err).Info("nothing shared")
		}
		return err
	}
	defer out.StopAll()

	track := out.VideoTracks()[0]
	pubCtx := ctx
	if c.duration > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, c.duration)
		defer cancel()
	}
	last, frames := publish(pubCtx, track, scheduler.New(nil, timeutil.RealClock{}))
	log.WithField("frames", frames).Info("sharing finished")
	return c.deliver(last)
}

// deliver writes the last frame to the requested destinations.
func (c *editCmd) deliver(img image.Image) error {
	if c.output == "" && !c.copy {
		return nil
	}
	if img == nil {
		return fmt.Errorf("no frame was published")
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

func savePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
