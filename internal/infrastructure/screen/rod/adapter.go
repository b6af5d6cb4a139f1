package rod

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mitchellh/go-homedir"
	"github.com/ysmood/gson"

	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
)

var _ output.ScreenPort = (*ScreenAdapter)(nil)

// ScreenAdapter drives a Chromium viewport as the navigator's screen.
// Coordinates exchanged with callers are screenshot pixels; the adapter maps
// them to viewport pixels when it acts.
type ScreenAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      Config
	logger   output.LoggerPort

	mu       sync.Mutex
	scale    float64
	captures int
}

type Config struct {
	Headless           bool
	NoSandbox          bool
	Width              int
	Height             int
	MaxScreenshotWidth int
	StartURL           string
	ScreenshotDir      string
	SlowMotion         time.Duration
	SettleDelay        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Headless:           false,
		NoSandbox:          true,
		Width:              1280,
		Height:             800,
		MaxScreenshotWidth: 1024,
		ScreenshotDir:      "screenshots",
		SlowMotion:         100 * time.Millisecond,
		SettleDelay:        500 * time.Millisecond,
	}
}

func NewScreenAdapter(ctx context.Context, cfg Config, logger output.LoggerPort) (*ScreenAdapter, error) {
	dir, err := homedir.Expand(cfg.ScreenshotDir)
	if err != nil {
		return nil, fmt.Errorf("expand screenshot dir: %w", err)
	}
	cfg.ScreenshotDir = dir
	if cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(cfg.ScreenshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("create screenshot dir: %w", err)
		}
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Width, cfg.Height))

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	a := &ScreenAdapter{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
		logger:   logger,
		scale:    1,
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	a.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.Width,
		Height:            cfg.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if cfg.StartURL != "" {
		if err := a.Navigate(ctx, cfg.StartURL); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Info("Screen ready",
		"viewport", entity.ScreenSize{Width: cfg.Width, Height: cfg.Height}.String(),
		"start_url", cfg.StartURL,
		"headless", cfg.Headless,
	)
	return a, nil
}

func (a *ScreenAdapter) Navigate(ctx context.Context, url string) error {
	p := a.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load failed: %w", err)
	}
	return nil
}

// Capture takes a viewport screenshot, shrinks it to MaxScreenshotWidth and
// saves it under ScreenshotDir when one is configured.
func (a *ScreenAdapter) Capture(ctx context.Context) (*entity.Observation, error) {
	raw, err := a.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	shot, scale, err := prepareScreenshot(raw, a.cfg.Width, a.cfg.MaxScreenshotWidth)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.scale = scale
	a.captures++
	n := a.captures
	a.mu.Unlock()

	ref := ""
	if a.cfg.ScreenshotDir != "" {
		ref = filepath.Join(a.cfg.ScreenshotDir, screenshotName(n, time.Now()))
		if err := os.WriteFile(ref, shot.Data, 0o644); err != nil {
			a.logger.Warn("Failed to save screenshot", "path", ref, "error", err)
			ref = ""
		}
	}

	return &entity.Observation{
		Screenshot:    shot,
		ScreenshotRef: ref,
		Mouse:         toScreenshot(a.page.Mouse.Position(), scale),
		Screen:        entity.ScreenSize{Width: shot.Width, Height: shot.Height},
	}, nil
}

// Perform executes result. NoAction and Complete do nothing.
func (a *ScreenAdapter) Perform(ctx context.Context, result entity.NavigationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	scale := a.scale
	a.mu.Unlock()

	switch action := result.Action(); action {
	case entity.ActionNoAction, entity.ActionComplete:
		return nil
	case entity.ActionClick, entity.ActionDoubleClick, entity.ActionRightClick:
		p, ok := result.Coordinates()
		if !ok {
			return fmt.Errorf("%s without coordinates", action)
		}
		button, count := mouseButton(action)
		if err := a.clickAt(toViewport(p, scale), button, count); err != nil {
			return fmt.Errorf("%s at %s failed: %w", action, p, err)
		}
	case entity.ActionType:
		if p, ok := result.Coordinates(); ok {
			if err := a.clickAt(toViewport(p, scale), proto.InputMouseButtonLeft, 1); err != nil {
				return fmt.Errorf("focus at %s failed: %w", p, err)
			}
		}
		if err := a.page.InsertText(result.TextToType()); err != nil {
			return fmt.Errorf("typing failed: %w", err)
		}
	default:
		return fmt.Errorf("unsupported action %s", action)
	}

	if a.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.SettleDelay):
		}
	}
	return nil
}

func (a *ScreenAdapter) clickAt(p proto.Point, button proto.InputMouseButton, count int) error {
	if err := a.page.Mouse.MoveTo(p); err != nil {
		return err
	}
	return a.page.Mouse.Click(button, count)
}

func (a *ScreenAdapter) Close() {
	if a.browser != nil {
		_ = a.browser.Close()
	}
	if a.launcher != nil {
		a.launcher.Kill()
		a.launcher.Cleanup()
	}
}

func mouseButton(action entity.ActionKind) (proto.InputMouseButton, int) {
	switch action {
	case entity.ActionDoubleClick:
		return proto.InputMouseButtonLeft, 2
	case entity.ActionRightClick:
		return proto.InputMouseButtonRight, 1
	case entity.ActionNoAction, entity.ActionClick, entity.ActionType, entity.ActionComplete:
		return proto.InputMouseButtonLeft, 1
	}
	return proto.InputMouseButtonLeft, 1
}

// prepareScreenshot downsizes raw to at most maxWidth and returns the factor
// from screenshot pixels to viewport pixels.
func prepareScreenshot(raw []byte, viewportWidth, maxWidth int) (entity.Screenshot, float64, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return entity.Screenshot{}, 0, fmt.Errorf("image decode failed: %w", err)
	}

	img = downscale(img, maxWidth)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(75)); err != nil {
		return entity.Screenshot{}, 0, fmt.Errorf("jpeg encode failed: %w", err)
	}

	width := img.Bounds().Dx()
	return entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  width,
		Height: img.Bounds().Dy(),
	}, scaleFactor(viewportWidth, width), nil
}

func downscale(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

func scaleFactor(viewportWidth, imageWidth int) float64 {
	if viewportWidth <= 0 || imageWidth <= 0 {
		return 1
	}
	return float64(viewportWidth) / float64(imageWidth)
}

func toViewport(p entity.Point, scale float64) proto.Point {
	return proto.Point{X: float64(p.X) * scale, Y: float64(p.Y) * scale}
}

func toScreenshot(p proto.Point, scale float64) entity.Point {
	if scale <= 0 {
		scale = 1
	}
	return entity.Point{X: int(math.Round(p.X / scale)), Y: int(math.Round(p.Y / scale))}
}

func screenshotName(n int, t time.Time) string {
	return fmt.Sprintf("capture_%04d_%s.jpg", n, t.UTC().Format("20060102T150405.000"))
}
