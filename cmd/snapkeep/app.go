package main

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/snapkeep/internal/blob"
	"github.com/cjeanneret/snapkeep/internal/config"
	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/fetch"
	"github.com/cjeanneret/snapkeep/internal/hw/camera"
	"github.com/cjeanneret/snapkeep/internal/hw/gpio"
	"github.com/cjeanneret/snapkeep/internal/hw/webcam"
	"github.com/cjeanneret/snapkeep/internal/photo"
	"github.com/cjeanneret/snapkeep/internal/storage"
)

// app is the wired object graph shared by serve and capture.
type app struct {
	cfg     *config.Config
	blobs   *blob.Registry
	files   *storage.Filesystem
	fetcher *fetch.Fetcher
	service *photo.Service
	closers []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, blobs: blob.NewRegistry()}

	debug.Step(1, "Opening storage")
	files, err := storage.New(map[storage.Directory]string{
		storage.DirData: cfg.Storage.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.files = files

	debug.Step(2, "Initializing camera")
	cam, err := a.newProviderFromConfig()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init camera: %w", err)
	}

	a.fetcher = fetch.New(a.blobs, fetch.NewHTTPClient(cfg.FetchTimeout()))
	a.service = photo.NewService(cam, a.fetcher, a.files)
	return a, nil
}

// newProviderFromConfig selects a capture provider based on configuration.
// Hardware handles it opens are released by close.
func (a *app) newProviderFromConfig() (camera.Provider, error) {
	cfg := a.cfg
	switch cfg.Camera.Type {
	case config.CameraNikonD90GPIO:
		debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
		g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, fmt.Errorf("init GPIO: %w", err)
		}
		a.closers = append(a.closers, g.Close)
		debug.Value("Focus pin", cfg.Camera.FocusPin)
		debug.Value("Shutter pin", cfg.Camera.ShutterPin)
		debug.Value("Spool dir", cfg.Camera.SpoolDir)
		shutter := camera.NewNikonD90GPIO(g, cfg.Camera.FocusPin, cfg.Camera.ShutterPin, cfg.FocusDelay(), cfg.ShutterDelay())
		return camera.NewTethered(shutter, cfg.Camera.SpoolDir, cfg.SpoolPoll(), cfg.SpoolTimeout()), nil

	case config.CameraTestPattern:
		return camera.NewTestPattern(a.blobs, cfg.Camera.WidthPx, cfg.Camera.HeightPx), nil

	case config.CameraWebcam:
		cam, err := webcam.Open(cfg.Camera.Device, cfg.Camera.WidthPx, cfg.Camera.HeightPx, a.blobs)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cam.Close)
		return cam, nil

	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// close releases hardware in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
