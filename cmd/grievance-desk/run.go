package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/api"
	"github.com/nhle/grievance-desk/internal/app"
	"github.com/nhle/grievance-desk/internal/credential"
	"github.com/nhle/grievance-desk/internal/logging"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/notify"
	"github.com/nhle/grievance-desk/internal/push"
	"github.com/nhle/grievance-desk/internal/store"
	appsync "github.com/nhle/grievance-desk/internal/sync"
)

// setup loads the configuration and builds the file logger.
func setup(opts options) (*model.AppConfig, *zap.Logger, error) {
	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openCache opens the complaint cache, creating its directory.
func openCache(path string) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return store.NewSQLiteStore(path)
}

// newAPIClient builds a REST client from the configuration.
func newAPIClient(cfg *model.AppConfig, token string, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.API.BaseURL, token,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithLogger(logger.Named("api")),
	)
}

// runDesk wires the session's collaborators and runs the terminal UI
// until the user quits.
func runDesk(opts options) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	vault, err := credential.Open()
	if err != nil {
		return err
	}
	session, err := vault.LoadSession()
	if errors.Is(err, credential.ErrNoSession) {
		return errors.New("not logged in; run `grievance-desk login` first")
	}
	if err != nil {
		return err
	}

	cache, err := openCache(cfg.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	feed := notify.New(
		notify.WithToastTTL(time.Duration(cfg.Notifications.ToastTTLSec)*time.Second),
		notify.WithLogger(logger.Named("notify")),
	)
	defer feed.Close()

	client := newAPIClient(cfg, session.Token, logger)

	poller := appsync.New(cache,
		appsync.FetchFunc(func(ctx context.Context) ([]model.Complaint, error) {
			return client.ListComplaints(ctx, session)
		}),
		time.Duration(cfg.Display.PollIntervalSec)*time.Second,
		appsync.WithLogger(logger.Named("sync")),
	)
	defer poller.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := push.New(push.ConfigFromModel(cfg.Push), feed, logger.Named("push"))
	if err := listener.Start(ctx, session.Token); err != nil {
		// The desk still works from polling alone.
		logger.Warn("push listener not started", zap.Error(err))
	}
	defer listener.Stop()

	logger.Info("desk starting",
		zap.String("email", session.Email),
		zap.String("role", string(session.Role)),
		zap.String("api", cfg.API.BaseURL),
	)

	program := tea.NewProgram(app.New(app.Deps{
		Session:  session,
		Cache:    cache,
		Notify:   feed,
		API:      client,
		Poller:   poller,
		Listener: listener,
		Logger:   logger.Named("ui"),
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running desk: %w", err)
	}
	return nil
}
