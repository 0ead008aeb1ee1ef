package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/sharecrop/internal/capture"
	"github.com/example/sharecrop/internal/config"
	"github.com/example/sharecrop/internal/media"
	"github.com/example/sharecrop/internal/scheduler"
)

func testRoot() *root {
	return &root{program: "sharecrop", config: config.New()}
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{200, 100, 50, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenderAppliesCropAndRedaction(t *testing.T) {
	in := writeTestPNG(t, 100, 80)
	out := filepath.Join(t.TempDir(), "out", "result.png")
	cmd, err := parseRenderCmd([]string{
		"-in", in, "-out", out, "-no-badge",
		"-crop", "10,10,50,40",
		"-redact", "10,10,5,5",
	}, testRoot())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != image.Pt(50, 40) {
		t.Fatalf("output size %v, want 50x40", got)
	}
	if r, g, b, _ := img.At(2, 2).RGBA(); r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected redacted pixel at (2,2), got %v", img.At(2, 2))
	}
	if r, _, _, _ := img.At(30, 30).RGBA(); r>>8 != 200 {
		t.Fatalf("expected source pixel at (30,30), got %v", img.At(30, 30))
	}
}

func TestRenderRejectsEmptyCrop(t *testing.T) {
	in := writeTestPNG(t, 20, 20)
	cmd, err := parseRenderCmd([]string{"-in", in, "-out", filepath.Join(t.TempDir(), "x.png"), "-no-badge", "-crop", "5,5,0,0"}, testRoot())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = cmd.Run()
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty crop error, got %v", err)
	}
}

func TestParseRenderRequiresDestination(t *testing.T) {
	_, err := parseRenderCmd([]string{"-in", "a.png"}, testRoot())
	if err == nil || !strings.Contains(err.Error(), "-out or -copy") {
		t.Fatalf("expected destination error, got %v", err)
	}
	var uerr *UsageError
	if _, err := parseRenderCmd(nil, testRoot()); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestParseEditSource(t *testing.T) {
	cmd, err := parseEditCmd([]string{"-source", "window", "title:meeting"}, testRoot())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.kind != capture.KindWindow || cmd.selector != "title:meeting" {
		t.Fatalf("unexpected %q %q", cmd.kind, cmd.selector)
	}
	if cmd.previewSize() != image.Pt(960, 540) {
		t.Fatalf("preview size %v", cmd.previewSize())
	}
	if _, err := parseEditCmd([]string{"-source", "camera"}, testRoot()); err == nil {
		t.Fatalf("expected unknown source error")
	}
	if _, err := parseEditCmd([]string{"-source", "file"}, testRoot()); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestEditDeliverRequiresFrame(t *testing.T) {
	cmd := &editCmd{root: testRoot(), output: filepath.Join(t.TempDir(), "o.png")}
	if err := cmd.deliver(nil); err == nil {
		t.Fatalf("expected error without a frame")
	}
	if err := cmd.deliver(image.NewRGBA(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := os.Stat(cmd.output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestPublishUntilTrackEnds(t *testing.T) {
	src := capture.NewStillSource(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	track := media.NewTrack(media.KindVideo, "screen:0:0", media.Settings{}, src)
	m := scheduler.NewManual()

	type result struct {
		img    image.Image
		frames int
	}
	done := make(chan result, 1)
	go func() {
		img, n := publish(context.Background(), track, m)
		done <- result{img, n}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for m.Live() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("publish never scheduled")
		}
		time.Sleep(time.Millisecond)
	}
	m.Step()
	m.Step()
	track.Stop()

	select {
	case res := <-done:
		if res.frames != 2 || res.img == nil {
			t.Fatalf("got %d frames, img %v", res.frames, res.img)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("publish did not return after the track ended")
	}
	if m.Live() != 0 {
		t.Fatalf("publish left %d tasks scheduled", m.Live())
	}
}

func TestPublishStopsOnContext(t *testing.T) {
	src := capture.NewStillSource(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	track := media.NewTrack(media.KindVideo, "file:x.png", media.Settings{}, src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img, n := publish(ctx, track, scheduler.NewManual())
	if img != nil || n != 0 {
		t.Fatalf("expected nothing published, got %d", n)
	}
}

func TestUsageRendersFlags(t *testing.T) {
	cmd, err := parseEditCmd(nil, testRoot())
	if err != nil {
		t.Fatal(err)
	}
	help := (&UsageError{of: cmd}).Error()
	for _, want := range []string{"sharecrop", "-source", "-min-drag", "title:"} {
		if !strings.Contains(help, want) {
			t.Fatalf("help missing %q:\n%s", want, help)
		}
	}
}

func TestRootDispatch(t *testing.T) {
	r := newRoot()
	var uerr *UsageError
	if err := r.Run([]string{"bogus"}); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(uerr.Error(), "render") {
		t.Fatalf("root help should list commands:\n%s", uerr.Error())
	}
}
