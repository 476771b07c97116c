// Package worker runs the screenshot scan in the background: first at a
// fixed hour of the day, then on a fixed period, with retries when a scan
// reports failure.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/starford/noor/internal/l10n"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/screenshots"
)

// Result is the outcome of one background run.
type Result int

const (
	Success Result = iota
	Retry
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Scanner is the scan the worker runs.
type Scanner interface {
	Scan(ctx context.Context) models.ScanResult
}

// Priority of a notification.
const (
	PriorityDefault = "default"
	PriorityHigh    = "high"
)

// Notification is what the user is told after a background scan.
type Notification struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Priority  string    `json:"priority"`
	NewImages int       `json:"newImages"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Config controls scheduling.
type Config struct {
	Period         time.Duration // between runs, default 12h
	FirstRunHour   int           // local hour of the first run, default 8
	MaxRetries     uint          // extra attempts after a Retry result
	InitialBackoff time.Duration // first retry delay, default 30s
}

// ScanWorker schedules scans and reports their outcome.
type ScanWorker struct {
	scanner  Scanner
	notifier Notifier
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
	trigger  chan struct{}
}

// New creates a ScanWorker. Zero config fields take their defaults.
func New(scanner Scanner, notifier Notifier, cfg Config, logger *slog.Logger) *ScanWorker {
	if cfg.Period <= 0 {
		cfg.Period = 12 * time.Hour
	}
	if cfg.FirstRunHour < 0 || cfg.FirstRunHour > 23 {
		cfg.FirstRunHour = 8
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 30 * time.Second
	}
	return &ScanWorker{
		scanner:  scanner,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// RunOnce performs one scan and notifies about it. A failed scan asks for
// a retry; a panic during the scan is a Failure.
func (w *ScanWorker) RunOnce(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker: scan panicked", slog.String("error", fmt.Sprint(r)))
			result = Failure
		}
	}()

	w.logger.Debug("worker: starting background scan")
	res := w.scanner.Scan(ctx)
	w.logger.Info("worker: scan completed", slog.String("message", res.Message))

	w.notifier.Notify(ctx, BuildNotification(res, w.now()))

	if !res.Success {
		w.logger.Warn("worker: scan completed with issues", slog.String("message", res.Message))
		return Retry
	}
	return Success
}

// BuildNotification turns a scan result into the notification text.
func BuildNotification(res models.ScanResult, at time.Time) Notification {
	n := Notification{Priority: PriorityDefault, NewImages: res.NewImagesFound, CreatedAt: at}
	switch c := res.NewImagesFound; {
	case c >= screenshots.ManyThreshold:
		n.Title = l10n.Sprintf(l10n.NotifyManyTitle)
		n.Body = l10n.Sprintf(l10n.NotifyManyBody, c)
		n.Priority = PriorityHigh
	case c > 0:
		n.Title = l10n.Sprintf(l10n.NotifyNewTitle)
		n.Body = l10n.Sprintf(l10n.NotifyNewBody, c)
	default:
		n.Title = l10n.Sprintf(l10n.NotifyNoneTitle)
		n.Body = l10n.Sprintf(l10n.NotifyNoneBody)
	}
	return n
}

var (
	errRetry  = errors.New("worker: scan asked for retry")
	errFailed = errors.New("worker: scan failed")
)

// RunWithRetry runs RunOnce, retrying Retry results with exponential
// backoff up to MaxRetries extra attempts.
func (w *ScanWorker) RunWithRetry(ctx context.Context) Result {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialBackoff

	res, err := backoff.Retry(ctx, func() (Result, error) {
		switch r := w.RunOnce(ctx); r {
		case Retry:
			return r, errRetry
		case Failure:
			return r, backoff.Permanent(errFailed)
		default:
			return r, nil
		}
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(w.cfg.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.logger.Info("worker: retrying scan", slog.Duration("in", next), slog.String("reason", err.Error()))
		}),
	)
	if err != nil {
		switch {
		case errors.Is(err, errFailed):
			return Failure
		case errors.Is(err, errRetry):
			return Retry
		}
		if ctx.Err() != nil {
			return res
		}
		return Failure
	}
	return res
}

// TriggerNow asks the running worker for an immediate scan. It reports
// false when a request is already queued.
func (w *ScanWorker) TriggerNow() bool {
	select {
	case w.trigger <- struct{}{}:
		w.logger.Debug("worker: immediate scan triggered")
		return true
	default:
		return false
	}
}

// NextRun returns the next occurrence of hour:00 in now's location that is
// not before now.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if next.Before(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run schedules scans until ctx is cancelled.
func (w *ScanWorker) Run(ctx context.Context) error {
	first := NextRun(w.now(), w.cfg.FirstRunHour)
	delay := first.Sub(w.now())
	w.logger.Info("worker: started",
		slog.Time("first_run", first),
		slog.Duration("period", w.cfg.Period))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker: stopped")
			return nil
		case <-timer.C:
			res := w.RunWithRetry(ctx)
			w.logger.Info("worker: scheduled run finished", slog.String("result", res.String()))
			timer.Reset(w.cfg.Period)
		case <-w.trigger:
			res := w.RunWithRetry(ctx)
			w.logger.Info("worker: immediate run finished", slog.String("result", res.String()))
		}
	}
}
