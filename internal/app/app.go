// Package app builds the task service, its adapters and the assistant from
// the application configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskpilot/internal/ai"
	"github.com/nhle/taskpilot/internal/assistant"
	"github.com/nhle/taskpilot/internal/calendar"
	"github.com/nhle/taskpilot/internal/credential"
	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/reminder"
	"github.com/nhle/taskpilot/internal/store"
	"github.com/nhle/taskpilot/internal/tasks"
)

// App holds every wired component. Close releases the database.
type App struct {
	Config     *model.AppConfig
	Logger     *zap.Logger
	Store      *store.SQLiteStore
	Tasks      *tasks.Service
	Gateway    *ai.Gateway
	Assistant  *assistant.Engine
	Dispatcher *reminder.Dispatcher
}

type options struct {
	logger   *zap.Logger
	calendar tasks.CalendarSync
	notifier reminder.Notifier
	apiKey   func() (string, error)
}

// Option customizes New.
type Option func(*options)

// WithLogger uses l instead of building one from the logging config.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCalendar replaces the calendar adapter chosen from the config.
func WithCalendar(c tasks.CalendarSync) Option {
	return func(o *options) { o.calendar = c }
}

// WithNotifier replaces the log-based reminder notifier.
func WithNotifier(n reminder.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithAPIKey replaces the credential lookup for the AI endpoint key.
func WithAPIKey(fn func() (string, error)) Option {
	return func(o *options) { o.apiKey = fn }
}

// New opens the database, wires the adapters, loads the persisted tasks and
// registers the assistant as a change observer.
func New(ctx context.Context, cfg *model.AppConfig, opts ...Option) (*App, error) {
	o := options{apiKey: credential.AIKey}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
	}

	st, err := openStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	cal := o.calendar
	if cal == nil {
		cal = newCalendar(ctx, cfg.Calendar, logger)
	}

	scheduler := reminder.NewScheduler(st, logger)
	svc := tasks.NewService(st, cal, scheduler, cfg.Notifications.Settings(), logger)

	apiKey := ""
	if cfg.AI.Enabled {
		apiKey, err = o.apiKey()
		if err != nil {
			logger.Warn("AI key unavailable, using local fallbacks", zap.Error(err))
		}
	}
	gateway := ai.New(ai.ConfigFrom(cfg.AI, apiKey), logger)

	engine := assistant.NewEngine(gateway, svc, assistant.WithLogger(logger))
	svc.OnChange(engine.Refresh)

	notifier := o.notifier
	if notifier == nil {
		notifier = reminder.LogNotifier{Logger: logger}
	}
	interval := time.Duration(cfg.Notifications.PollIntervalSec) * time.Second
	dispatcher := reminder.NewDispatcher(st, notifier, interval, logger)

	svc.Load(ctx)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Tasks:      svc,
		Gateway:    gateway,
		Assistant:  engine,
		Dispatcher: dispatcher,
	}, nil
}

// RefreshRecommendations evaluates the loaded collection once. Loading does
// not notify observers, so a fresh process calls this before reading
// recommendations.
func (a *App) RefreshRecommendations(ctx context.Context) {
	a.Assistant.Refresh(ctx, a.Tasks.Tasks())
}

// Close stops the dispatcher and closes the database.
func (a *App) Close() error {
	a.Dispatcher.Stop()
	_ = a.Logger.Sync()
	return a.Store.Close()
}

func openStore(path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return store.NewSQLiteStore(path)
}

// newCalendar returns the Google adapter when calendar sync is enabled and
// authorized. Any setup failure degrades to the disabled adapter.
func newCalendar(ctx context.Context, cfg model.CalendarConfig, logger *zap.Logger) tasks.CalendarSync {
	if !cfg.Enabled {
		return calendar.Disabled{}
	}

	srv, err := calendar.NewService(ctx, cfg.CredentialsFile, cfg.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("calendar not authorized, run calendar-auth", zap.Error(err))
		} else {
			logger.Warn("calendar unavailable, deadlines will not be mirrored", zap.Error(err))
		}
		return calendar.Disabled{}
	}
	return calendar.NewGoogleCalendar(srv, cfg.CalendarID, logger)
}
