package di

import (
	"context"
	"fmt"
	"io"

	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/infrastructure/audit"
	"vision-navigator/internal/infrastructure/config"
	"vision-navigator/internal/infrastructure/llm/openrouter"
	"vision-navigator/internal/infrastructure/logger"
	"vision-navigator/internal/infrastructure/screen/rod"
	"vision-navigator/internal/infrastructure/userinteraction"
	"vision-navigator/internal/usecase/navigator"
	"vision-navigator/internal/usecase/retry"
)

type Container struct {
	Logger    output.LoggerPort
	Screen    output.ScreenPort
	Vision    output.VisionPort
	Audit     *audit.FileLog
	UI        output.UserInteractionPort
	Navigator *navigator.Session
}

// IO is where the console adapter reads confirmations and writes progress.
type IO struct {
	In  io.Reader
	Out io.Writer
}

func NewContainer(ctx context.Context, cfg config.Config, task string, stdio IO) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Console:  cfg.Log.Console,
		TaskName: task,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	auditLog, err := audit.NewFileLog(cfg.Audit.Path, cfg.Audit.Enabled, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	mode, err := userinteraction.ParseMode(cfg.Confirm.Mode)
	if err != nil {
		log.Close()
		return nil, err
	}
	ui := userinteraction.NewConsoleUserInteraction(stdio.In, stdio.Out, mode)

	screen, err := rod.NewScreenAdapter(ctx, ScreenConfig(cfg), log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}

	visionCfg := openrouter.DefaultConfig(cfg.Vision.APIKey, cfg.Vision.Model)
	visionCfg.BaseURL = cfg.Vision.BaseURL
	visionCfg.Temperature = cfg.Vision.Temperature
	visionCfg.RequestsPerMinute = cfg.Vision.RequestsPerMinute
	visionCfg.Timeout = cfg.Vision.Timeout
	visionCfg.LogRequests = cfg.Vision.LogRequests
	visionCfg.Logger = log
	vision := openrouter.NewVisionAdapter(visionCfg)

	session := navigator.New(vision, screen, ui, auditLog, log, NavigatorConfig(cfg))

	return &Container{
		Logger:    log,
		Screen:    screen,
		Vision:    vision,
		Audit:     auditLog,
		UI:        ui,
		Navigator: session,
	}, nil
}

// NavigatorConfig maps the loaded configuration onto the session settings.
func NavigatorConfig(cfg config.Config) navigator.Config {
	n := cfg.Navigation
	return navigator.Config{
		MaxIterations:       n.MaxIterations,
		ConfidenceThreshold: n.ConfidenceThreshold,
		CriticalKeywords:    n.CriticalKeywords,
		LoopThreshold:       n.LoopDetectionThreshold,
		LoopBufferSize:      n.LoopDetectionBufferSize,
		LoopTolerance:       n.LoopTolerancePx,
		BoundsMargin:        n.BoundsMarginPx,
		LowConfidence:       navigator.LowConfidencePolicy(n.LowConfidence),
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay(),
			Multiplier:  2,
		},
	}
}

func ScreenConfig(cfg config.Config) rod.Config {
	s := rod.DefaultConfig()
	s.Headless = cfg.Screen.Headless
	s.StartURL = cfg.Screen.StartURL
	s.Width = cfg.Screen.Width
	s.Height = cfg.Screen.Height
	s.MaxScreenshotWidth = cfg.Screen.MaxScreenshotWidth
	s.ScreenshotDir = cfg.Screen.ScreenshotDir
	return s
}

func (c *Container) Close() {
	if c.Screen != nil {
		c.Screen.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
