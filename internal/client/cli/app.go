// Package cli is the interactive front end: a small REPL over the sync
// engine. All reads come from the local cache; all writes go through the
// optimistic pipeline.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/goalkeeper/internal/client/auth"
	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/config"
	"github.com/dmitrijs2005/goalkeeper/internal/client/engine"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
)

type App struct {
	config  *config.Config
	auth    *auth.Client
	session *engine.Session
	logger  logging.Logger
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: slog.LevelWarn})))

	authClient := auth.NewClient(c.ServerAddr)

	newStore := func(userID string) remote.Store {
		return remote.NewHTTPStore(c.ServerAddr, authClient.Token)
	}
	newMirror := func(ctx context.Context) (*cache.Mirror, error) {
		return cache.Open(ctx, c.CacheDSN)
	}
	session := engine.NewSession(newStore, newMirror, logger)

	app := &App{
		config:  c,
		auth:    authClient,
		session: session,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
	}

	// the auth-state callback is the only thing that starts or stops a
	// session
	authClient.Subscribe(func(u *auth.User) {
		uid := ""
		if u != nil {
			uid = u.ID
		}
		if err := session.OnAuthChange(uid); err != nil {
			logger.Error(context.Background(), "session transition failed", "error", err)
		}
	})

	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.session.OnAuthChange("") }()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.auth.Current() != nil
}
