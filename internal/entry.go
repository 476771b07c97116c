// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/noor/internal/api"
	"github.com/starford/noor/internal/index"
	"github.com/starford/noor/internal/mcpserver"
	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/notes"
	"github.com/starford/noor/internal/ocr"
	"github.com/starford/noor/internal/prefs"
	"github.com/starford/noor/internal/screenshots"
	"github.com/starford/noor/internal/sse"
	"github.com/starford/noor/internal/tags"
	"github.com/starford/noor/internal/worker"
)

var errConfigRequired = errors.New("config is required")

// services are the repositories every command works with.
type services struct {
	index    *index.DB
	prefs    *prefs.DB
	tags     *tags.Store
	library  *media.Library
	notes    *notes.Repository
	pipeline *screenshots.Pipeline
}

func (s *services) Close() {
	_ = s.index.Close()
	_ = s.prefs.Close()
}

func (a *application) log() *slog.Logger {
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	return a.logger
}

// open creates the directories, opens both stores, syncs the media index
// and loads the notes.
func (a *application) open(ctx context.Context) (*services, error) {
	cfg := a.config
	logger := a.log()

	for _, root := range cfg.Library.Roots {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create library root: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.Notes.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	pdb, err := prefs.Open(cfg.SQLite.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init prefs: %w", err)
	}

	if err := index.Sync(db, cfg.Library.Roots, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	tagStore := tags.New(pdb.Namespace(tags.Namespace), logger)
	lib := media.New(db, tagStore, cfg.Library.Roots, cfg.Library.Inbox, logger)

	repo, err := notes.Open(cfg.Notes.BaseDir, pdb.Namespace(notes.Namespace), logger)
	if err != nil {
		db.Close()
		pdb.Close()
		return nil, fmt.Errorf("init notes: %w", err)
	}
	loaded := repo.Load(ctx)

	tess := ocr.Tesseract{Binary: cfg.OCR.Binary, Language: cfg.OCR.Language}
	if err := tess.Available(); err != nil {
		logger.Warn("OCR engine unavailable, screenshots will not produce text",
			slog.String("error", err.Error()))
	}
	proc := ocr.NewProcessor(lib, tess, logger)
	pipe := screenshots.New(lib, repo, proc, pdb.Namespace(screenshots.Namespace), logger)

	logger.Info("Repositories ready",
		slog.Int("notes", len(loaded)),
		slog.Int("pending_ocr", pipe.PendingCount()),
		slog.String("notes_path", repo.StoragePath()))

	return &services{index: db, prefs: pdb, tags: tagStore, library: lib, notes: repo, pipeline: pipe}, nil
}

// Run starts the HTTP server, the library watcher and the background scan.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.log()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Any("library_roots", cfg.Library.Roots),
		slog.String("notes_dir", cfg.Notes.BaseDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("scan_enabled", cfg.Scan.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc.notes.OnChange(func(kind string, n models.Note) {
		broker.PublishNoteEvent(kind, n.ID)
	})
	svc.pipeline.OnChange(func(event string, data any) {
		broker.Publish(sse.Event{Type: event, Data: data})
	})

	var scanWorker *worker.ScanWorker
	deps := api.Deps{
		Library:  svc.library,
		Tags:     svc.tags,
		Notes:    svc.notes,
		Pipeline: svc.pipeline,
		Logger:   logger,
	}
	if cfg.Scan.Enabled {
		notifier := worker.NotifierFunc(func(_ context.Context, n worker.Notification) {
			logger.Info("notification",
				slog.String("title", n.Title),
				slog.String("body", n.Body),
				slog.String("priority", n.Priority))
			broker.Publish(sse.Event{Type: sse.Notification, Data: n})
		})
		scanWorker = worker.New(svc.pipeline, notifier, worker.Config{
			Period:       cfg.Scan.Interval,
			FirstRunHour: cfg.Scan.FirstRunHour,
			MaxRetries:   cfg.Scan.MaxRetries,
		}, logger)
		deps.Worker = scanWorker
	}

	handler := newHandler(cfg, svc.library, api.NewRouter(deps, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, svc.index, cfg.Library.Roots, logger, func(kind, path string) {
			broker.PublishImageEvent(kind, path)
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if scanWorker != nil {
		g.Go(func() error {
			return scanWorker.Run(gCtx)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newHandler mounts the API under /api next to the health probes and
// wraps everything in CORS when origins are configured.
func newHandler(cfg *Config, lib *media.Library, apiRouter http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !lib.Readable() {
			writeStatus(w, http.StatusServiceUnavailable, "library unreadable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", apiRouter)

	if len(cfg.CORS.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", "Last-Event-ID"},
		ExposedHeaders: []string{"ETag"},
	}).Handler(r)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// errShutdown cancels the group context so the watcher and worker stop
// together with the HTTP server.
var errShutdown = errors.New("shutdown")

// Scan runs one screenshot scan, optionally followed by processing every
// pending image.
func Scan(ctx context.Context, process bool, opts ...Option) (models.ScanResult, *models.ProcessingResult, error) {
	app, err := newApplication(opts)
	if err != nil {
		return models.ScanResult{}, nil, err
	}
	svc, err := app.open(ctx)
	if err != nil {
		return models.ScanResult{}, nil, err
	}
	defer svc.Close()

	if !process {
		return svc.pipeline.Scan(ctx), nil, nil
	}
	scan, proc := svc.pipeline.ScanAndProcess(ctx)
	return scan, &proc, nil
}

// Process runs OCR on every pending screenshot.
func Process(ctx context.Context, opts ...Option) (models.ProcessingResult, error) {
	app, err := newApplication(opts)
	if err != nil {
		return models.ProcessingResult{}, err
	}
	svc, err := app.open(ctx)
	if err != nil {
		return models.ProcessingResult{}, err
	}
	defer svc.Close()
	return svc.pipeline.ProcessPending(ctx), nil
}

// ServeMCP exposes notes, images and the screenshot pipeline over MCP on
// stdin/stdout.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := mcpserver.New(svc.notes, svc.library, svc.pipeline)
	app.log().Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
