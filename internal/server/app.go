// Package server initializes and runs the goalkeeper reference server: it
// wires the document store, the change-feed hub and the HTTP API, and
// handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/server/config"
	"github.com/dmitrijs2005/goalkeeper/internal/server/feed"
	"github.com/dmitrijs2005/goalkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/goalkeeper/internal/server/store"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  store.Store
	hub    *feed.Hub
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	hub := feed.NewHub()

	var st store.Store
	if c.DatabaseDSN == "" {
		logger.Warn(context.Background(), "no database DSN configured, using in-memory store")
		st = store.NewMemory(hub)
	} else {
		pg, err := store.NewPostgres(context.Background(), c.DatabaseDSN, hub)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		st = pg
	}

	return &App{config: c, logger: logger, store: st, hub: hub}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	handler := httpapi.NewHandler(app.store, app.hub, app.logger,
		app.config.SecretKey, app.config.TokenValidityDuration)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		app.logger.Error(ctx, "http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err)
	}

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close error", "error", err)
	}

	app.logger.Info(ctx, "Server stopped")
}
