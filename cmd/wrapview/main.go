// Package main is the entry point for the WrapView vehicle preview.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/assets"
	"github.com/wrapstudio/wrapview/internal/config"
	"github.com/wrapstudio/wrapview/internal/design"
	"github.com/wrapstudio/wrapview/internal/engine/window"
	"github.com/wrapstudio/wrapview/internal/loader"
	"github.com/wrapstudio/wrapview/internal/logger"
	"github.com/wrapstudio/wrapview/internal/viewport"
	"github.com/wrapstudio/wrapview/internal/wrap"
)

const appTitle = "WrapView"

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== WrapView ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("fatal error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("closed normally")
}

func run(cfg *config.Config) error {
	// Window and GL context come first; everything GPU-side hangs off
	// this thread.
	win, err := window.New(window.Config{
		Title:      appTitle,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
		MSAA:       cfg.Graphics.MSAA,
	})
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Close()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("initialize OpenGL: %w", err)
	}

	ctrl, err := viewport.New(win, appTitle, cfg.Viewport.FOVDegrees, cfg.Viewport.ShowFPS)
	if err != nil {
		return fmt.Errorf("create viewport: %w", err)
	}
	defer ctrl.Close()

	// 2D design surface. A missing design file is fatal: without it
	// there is nothing to preview.
	surface, err := design.OpenFileSurface(cfg.Design.File)
	if err != nil {
		return fmt.Errorf("open design %s: %w", cfg.Design.File, err)
	}
	defer surface.Close()

	if err := ctrl.AttachDesign(surface); err != nil {
		return fmt.Errorf("synthesize design: %w", err)
	}

	// The scene load runs off the main thread: the render loop keeps the
	// window live, shows load progress, and picks up the bound graph at
	// a frame boundary. A failed load is NOT fatal — the viewport shows
	// its error state and the window stays open. Closing the window
	// cancels the load so late callbacks are dropped.
	ldr := newSceneLoader(cfg)
	ctrl.OnQuit(ldr.Cancel)
	go func() {
		if err := loadVehicle(cfg, ctrl, ldr); err != nil {
			if errors.Is(err, loader.ErrSuperseded) {
				return
			}
			logger.Warn("vehicle load failed", zap.Error(err))
			ctrl.DeliverError(previewErrorText(err))
		}
	}()

	return ctrl.Run()
}

// newSceneLoader builds the loader over the configured cache and fetch
// options. A broken cache directory degrades to uncached fetches.
func newSceneLoader(cfg *config.Config) *loader.Loader {
	var cache *assets.Cache
	if cfg.Assets.CacheDir != "" {
		var err error
		cache, err = assets.NewCache(cfg.Assets.CacheDir)
		if err != nil {
			logger.Warn("scene cache disabled", zap.Error(err))
		}
	}

	return loader.New(assets.NewFetcher(cache), loader.Options{
		VirtualPrefix: cfg.Assets.VirtualPrefix,
		RebaseURL:     cfg.Assets.RebaseURL,
		AssetVersion:  cfg.Assets.Version,
	})
}

// loadVehicle resolves, fetches, classifies and binds the configured
// model, then delivers the bound graph to the viewport's render loop.
// Runs on a load goroutine; nothing here touches GL state.
func loadVehicle(cfg *config.Config, ctrl *viewport.Controller, ldr *loader.Loader) error {
	resolver, err := assets.LoadManifest(cfg.Assets.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", cfg.Assets.ManifestPath, err)
	}

	modelID := cfg.Viewport.Model
	if modelID == "" {
		ids := resolver.IDs()
		if len(ids) == 0 {
			return errors.New("manifest lists no models")
		}
		modelID = ids[0]
	}

	graph, err := ldr.LoadModel(context.Background(), resolver, modelID, ctrl.ReportProgress)
	if err != nil {
		return err
	}

	classifications := wrap.Classify(graph)
	wrap.Bind(graph, classifications, ctrl.WrapTexture())

	ctrl.Deliver(graph)
	return nil
}

// previewErrorText maps load failures onto the short message shown in
// the viewport's error state.
func previewErrorText(err error) string {
	switch {
	case errors.Is(err, loader.ErrAssetNotFound):
		return "3D preview unavailable"
	case errors.Is(err, loader.ErrParseFailure):
		return "3D model could not be read"
	default:
		return "3D preview failed to load"
	}
}
