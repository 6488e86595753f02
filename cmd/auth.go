package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/app"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// printAgent stands in for the browser when --no-browser is set; the URL is printed by OnPending.
type printAgent struct{}

func (printAgent) Open(string) error { return nil }

// AuthLogin runs the PKCE flow against a loopback redirect server and stores the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if !config.HasClientID() {
		return fmt.Errorf("%w: set spotify.client_id in %s or %s", shared.ErrMissingCredentials, r.configPath, shared.EnvClientID)
	}
	if cmd.Bool("no-browser") && r.appOpts.UserAgent == nil {
		r.appOpts.UserAgent = printAgent{}
	}

	a, err := r.ensureApp(cmd)
	if err != nil {
		return err
	}
	if s := a.Restore(ctx); s.Authenticated() {
		return r.writePlain("Already signed in as %s\n", s.User.Name())
	}

	s, err := a.Login(ctx, app.LoginOpts{
		Timeout: cmd.Duration("timeout"),
		OnPending: func(p *session.PendingLogin) {
			r.writePlain("Waiting for authorization. If the browser does not open, visit:\n\n  %s\n\n", p.URL)
		},
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.logger.Info("signed in", "user", s.User.ID)
	return r.writePlain("✓ Signed in as %s\n", s.User.Name())
}

type authStatus struct {
	Status      string `json:"status"`
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Product     string `json:"product,omitempty"`
	Backend     string `json:"store_backend"`
}

// AuthStatus restores the stored credential and reports the resulting session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	a, err := r.ensureApp(cmd)
	if err != nil {
		return err
	}

	s := a.Restore(ctx)
	status := authStatus{Status: s.Status.String(), Backend: a.Config.Store.Backend}
	if s.Authenticated() {
		status.UserID = s.User.ID
		status.DisplayName = s.User.Name()
		status.Product = s.User.Product
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	if !s.Authenticated() {
		return r.writePlain("Not signed in. Run 'encore auth login'.\n")
	}
	r.writePlainHeader("Spotify Session")
	r.writePlain("User:    %s (%s)\n", status.DisplayName, status.UserID)
	if status.Product != "" {
		r.writePlain("Plan:    %s\n", status.Product)
	}
	return r.writePlain("Store:   %s\n", status.Backend)
}

// AuthLogout deletes the stored credential. It succeeds when nobody is signed in.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.ensureApp(cmd)
	if err != nil {
		return err
	}
	s := a.Restore(ctx)
	a.Logout(ctx)
	if !s.Authenticated() {
		return r.writePlain("Not signed in.\n")
	}
	return r.writePlain("Signed out %s\n", s.User.Name())
}
