package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qrscanner/internal/config"
	"qrscanner/internal/logger"
	"qrscanner/internal/middleware"
	"qrscanner/internal/preview"
	"qrscanner/internal/repository/sqlite"
	"qrscanner/internal/route"
	"qrscanner/internal/service/camera"
	"qrscanner/internal/service/decoder"
	"qrscanner/internal/service/decoder/qrcode"
	"qrscanner/internal/service/result"
	"qrscanner/internal/service/sampler"
	"qrscanner/internal/service/scanner"
	"qrscanner/internal/service/storage"
	"qrscanner/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config  *config.Config
	logger  *logger.Logger
	db      *sqlite.DB
	history *storage.HistoryService
	hub     *websocket.HubService
	slot    *result.Slot
	decoder *qrcode.QRDecoder
	scanner *scanner.Scanner
	ticker  *scanner.TickerHost
	window  *preview.Window
	server  *http.Server

	wg sync.WaitGroup
}

// NewApp wires every service. ctx bounds the lifetime of the whole application.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := scanner.ParsePolicy(cfg.UpdatePolicy)
	if err != nil {
		log.Warning("%v, using %s", err, policy)
	}
	mode, err := decoder.ParseInversionMode(cfg.InversionMode)
	if err != nil {
		log.Warning("%v, using %s", err, mode)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open detection history: %w", err)
	}

	a := &App{
		config: cfg,
		logger: log,
		db:     db,
		slot:   result.NewSlot(),
	}
	a.ctx, a.cancel = context.WithCancel(ctx)

	detections := sqlite.NewDetectionRepository(db)
	a.history = storage.NewHistoryService(cfg, log, detections)
	a.hub = websocket.NewHubService(log)
	sink := result.NewSink(a.slot, log, a.hub, a.history)
	a.decoder = qrcode.NewQRDecoder(mode)

	var host scanner.Host
	if cfg.Preview {
		a.window = preview.NewWindow(a.ctx, "QR Scanner")
		host = a.window
	} else {
		a.ticker = scanner.NewTickerHost(cfg.TickInterval)
		host = a.ticker
	}

	timing := scanner.Timing{
		Overlay:   cfg.OverlayTimeout,
		Highlight: cfg.HighlightTimeout,
		Grace:     cfg.GraceWindow,
		Truncate:  cfg.DisplayTruncate,
	}
	a.scanner = scanner.New(scanner.Options{Policy: policy, Timing: timing}, a.acquire, a.decoder, sink, host, log)
	if a.window != nil {
		a.window.SetPresenter(a.scanner)
	}

	a.server = &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: route.SetupRoutes(route.Dependencies{
			Context:    a.ctx,
			Scanner:    a.scanner,
			Result:     a.slot,
			Events:     a.hub,
			Detections: detections,
			History:    a.history,
			Auth:       middleware.NewAuth(cfg.Password),
			Logger:     log,
			StaticDir:  cfg.StaticDirectory,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// acquire opens the configured camera and wraps it in a sampler.
func (a *App) acquire(ctx context.Context) (scanner.Sampler, error) {
	constraints := camera.Constraints{
		Device: a.config.CameraDevice,
		Facing: a.config.CameraFacing,
		Width:  a.config.CameraWidth,
		Height: a.config.CameraHeight,
	}

	cam, err := camera.Acquire(ctx, constraints)
	if err != nil {
		return nil, &scanner.AcquisitionError{Err: err}
	}

	w, h := cam.Granted()
	a.logger.Info("📷 Camera %d (%s) granted %dx%d, sampling %dx%d",
		constraints.Device, constraints.Facing, w, h, a.config.RasterSize, a.config.RasterSize)
	return sampler.New(cam, a.config.RasterSize, a.config.RasterSize, a.logger), nil
}

// Run starts the background services and scanning, then blocks until the
// context ends, the preview window closes or the HTTP server fails.
func (a *App) Run() error {
	a.goBackground(a.history.Run)
	a.goBackground(a.hub.Run)
	if a.ticker != nil {
		a.goBackground(a.ticker.Run)
	}

	errc := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	fmt.Printf("🚀 QR Scanner\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🔄 Policy: %s\n", a.config.UpdatePolicy)
	fmt.Printf("🗄️  History: %s\n", a.config.DatabasePath)

	go func() {
		if err := a.scanner.Start(a.ctx); err != nil {
			a.logger.Warning("Scanner did not start: %v", err)
		}
	}()

	var runErr error
	if a.window != nil {
		go func() {
			select {
			case err := <-errc:
				errc <- err
				a.cancel()
			case <-a.ctx.Done():
			}
		}()
		if err := a.window.Run(); err != nil {
			a.logger.Error("Preview window failed: %v", err)
		}
		select {
		case runErr = <-errc:
		default:
		}
	} else {
		select {
		case <-a.ctx.Done():
		case runErr = <-errc:
		}
	}

	a.shutdown()
	return runErr
}

func (a *App) goBackground(run func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		run(a.ctx)
	}()
}

func (a *App) shutdown() {
	a.logger.Info("Shutting down")
	a.scanner.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP shutdown: %v", err)
	}

	a.cancel()
	a.wg.Wait()
}

// Close releases the camera, the decoder, the database and the log files.
func (a *App) Close() {
	a.cancel()
	a.scanner.Close()
	if err := a.decoder.Close(); err != nil {
		a.logger.Warning("Failed to release decoder: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}
