package app

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
)

// DefaultLoginTimeout bounds how long [App.Login] waits for the browser redirect.
const DefaultLoginTimeout = 5 * time.Minute

// LoginOpts tunes [App.Login].
type LoginOpts struct {
	Timeout time.Duration
	// OnPending is called once the authorize URL is known, e.g. to print it.
	OnPending func(p *session.PendingLogin)
}

// Login serves the redirect URI on the configured loopback address, starts the authorization
// flow and blocks until the redirect completes it, ctx is done or the timeout elapses.
func (a *App) Login(ctx context.Context, opts LoginOpts) (models.Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoginTimeout
	}
	addr, path, err := redirectListener(a.Config)
	if err != nil {
		return models.Session{}, err
	}

	logger := shared.WithLogger(a.Logger, "component", "callback")
	cb := server.NewCallbackHandler(a.Session, path, logger)
	srv, err := server.Listen(addr, server.NewRouter(logger, cb), logger)
	if err != nil {
		return models.Session{}, err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			a.Logger.Warn("callback server shutdown failed", "error", err)
		}
	}()

	p, err := a.Session.Login(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if opts.OnPending != nil {
		opts.OnPending(p)
	}

	wctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	s, err := cb.Wait(wctx)
	if err != nil {
		a.Session.CancelLogin(p.State)
		return s, err
	}
	return s, nil
}

// redirectListener returns the listen address and callback path for the configured redirect URI.
// The URI's own host and port win over [server] so the two cannot disagree.
func redirectListener(cfg *shared.Config) (addr, path string, err error) {
	path, err = server.CallbackPath(cfg.Spotify.RedirectURI)
	if err != nil {
		return "", "", err
	}
	u, _ := url.Parse(cfg.Spotify.RedirectURI)
	if u.Port() != "" {
		return u.Host, path, nil
	}
	if cfg.Server.Port == 0 {
		return "", "", fmt.Errorf("%w: redirect uri %q has no port", shared.ErrInvalidConfig, cfg.Spotify.RedirectURI)
	}
	return cfg.Server.Addr(), path, nil
}
