// Package app wires the session core and its providers into one explicit context object.
//
// Construction order follows the dependency graph: config, logger, credential store,
// gateway, session, then the providers that read through the session's token.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/browse"
	"github.com/desertthunder/encore/internal/library"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/playback"
	"github.com/desertthunder/encore/internal/playlists"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/search"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
)

// Opts overrides parts of the graph [New] would otherwise build from Config.
type Opts struct {
	Config     *shared.Config
	Logger     *log.Logger
	Store      repositories.CredentialStore
	HTTPClient *http.Client
	Endpoint   oauth2.Endpoint
	UserAgent  session.UserAgent
	Engine     playback.Engine
}

// App owns every long-lived component. Fields are set once by [New].
type App struct {
	Config     *shared.Config
	Logger     *log.Logger
	Store      repositories.CredentialStore
	Gateway    *services.Gateway
	Spotify    *services.SpotifyService
	Authorizer *services.Authorizer
	Session    *session.Manager
	Library    *library.Aggregator
	Playlists  *playlists.Manager
	Search     *search.Coordinator
	Playback   *playback.Bridge
	Browse     *browse.Service

	db          *sql.DB
	unsubscribe func()
	closeOnce   sync.Once
}

// New builds the application graph. It performs no network calls; call [App.Restore] next.
func New(opts Opts) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	level, err := shared.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	shared.SetLogLevel(logger, level)

	a := &App{Config: cfg, Logger: logger}

	a.Store = opts.Store
	if a.Store == nil {
		if a.Store, a.db, err = OpenCredentialStore(cfg.Store); err != nil {
			return nil, err
		}
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.API.Timeout()}
	}
	a.Gateway, err = services.NewGateway(services.GatewayOpts{
		BaseURL:           cfg.API.BaseURL,
		HTTPClient:        client,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            shared.WithLogger(logger, "component", "gateway"),
	})
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.Spotify = services.NewSpotifyService(a.Gateway, cfg.Spotify.Market)

	a.Authorizer, err = services.NewAuthorizer(cfg.Spotify.ClientID, cfg.Spotify.RedirectURI, cfg.Spotify.Scopes, opts.Endpoint)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.Authorizer.WithHTTPClient(client)

	agent := opts.UserAgent
	if agent == nil {
		agent = shared.Browser{}
	}
	a.Session = session.NewManager(session.Opts{
		Store:      a.Store,
		Profiles:   a.Spotify,
		Authorizer: a.Authorizer,
		UserAgent:  agent,
		Logger:     shared.WithLogger(logger, "component", "session"),
	})
	a.Gateway.SetTokenSource(a.Session.Token)
	a.Gateway.SetUnauthorizedHandler(func(token string, err error) {
		a.Session.Expire(context.Background(), token, err)
	})

	limits := services.PageLimits{MaxPages: cfg.Library.MaxPages, MaxItems: cfg.Library.MaxItems}
	a.Library = library.New(a.Spotify, limits, shared.WithLogger(logger, "component", "library"))
	a.Playlists = playlists.New(a.Spotify, a.Session, limits, shared.WithLogger(logger, "component", "playlists"))
	a.Search = search.New(a.Spotify, search.Opts{
		Debounce: cfg.Search.Debounce(),
		Limit:    cfg.Search.Limit,
		Logger:   shared.WithLogger(logger, "component", "search"),
	})

	engine := opts.Engine
	playbackLogger := shared.WithLogger(logger, "component", "playback")
	if engine == nil {
		engine = playback.DefaultEngine(playbackLogger)
	}
	a.Playback = playback.NewBridge(engine, playbackLogger)
	a.Browse = browse.New(a.Spotify, shared.WithLogger(logger, "component", "browse"))

	a.unsubscribe = a.Session.Subscribe(a.onSession)
	return a, nil
}

// OpenCredentialStore opens the backend named by cfg. The returned database is nil unless the backend is SQLite.
func OpenCredentialStore(cfg shared.StoreConfig) (repositories.CredentialStore, *sql.DB, error) {
	switch cfg.Backend {
	case shared.BackendSQLite:
		db, err := shared.OpenStore(shared.ExpandPath(cfg.Path))
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewCredentialRepository(db, repositories.SlotAccessToken), db, nil
	case shared.BackendFile:
		return repositories.NewFileCredentialStore(shared.ExpandPath(cfg.Path), repositories.SlotAccessToken), nil, nil
	case shared.BackendMemory:
		return repositories.NewMemoryCredentialStore(""), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: store.backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// onSession clears user-scoped state when a session ends so nothing from it survives into the next one.
func (a *App) onSession(ev session.Event) {
	if !ev.SignedOut() {
		return
	}
	a.Logger.Debug("clearing user state", "event", ev.Kind)
	a.Library.Reset()
	a.Playlists.Reset()
	a.Search.Reset()
	a.Playback.Reset(context.Background())
}

// Restore validates any stored credential. It never fails.
func (a *App) Restore(ctx context.Context) models.Session {
	return a.Session.Restore(ctx)
}

// StartPlayback initializes the audio engine and mirrors its events until ctx is done.
func (a *App) StartPlayback(ctx context.Context) error {
	if a.Playback.Ready() {
		return nil
	}
	if err := a.Playback.Init(ctx); err != nil {
		return err
	}
	go a.Playback.Listen(ctx)
	return nil
}

// Logout signs out and fans the reset out to every provider.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
}

// Close releases providers, the engine and the database. It is safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		a.Search.Close()
		a.Library.Close()
		a.Playlists.Close()
		if cerr := a.Playback.Close(); cerr != nil {
			a.Logger.Warn("failed to close audio engine", "error", cerr)
			err = cerr
		}
		if cerr := a.closeDB(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
