package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
)

// ProfileFetcher validates a token by loading its profile.
type ProfileFetcher interface {
	MeWithToken(ctx context.Context, token string) (*models.UserProfile, error)
}

// TokenExchanger builds authorize URLs and trades codes for tokens.
type TokenExchanger interface {
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
}

// UserAgent opens the authorize URL for the user, usually in a browser.
type UserAgent interface {
	Open(url string) error
}

// RevokeFunc invalidates a token server-side. Spotify has no revocation endpoint, so it is optional.
type RevokeFunc func(ctx context.Context, token string) error

type EventKind int

const (
	EventRestored EventKind = iota
	EventLoggedIn
	EventLoggedOut
	EventExpired
	EventPending
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventRestored:
		return "restored"
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventExpired:
		return "expired"
	case EventPending:
		return "pending"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after a transition. Session is a snapshot of the new state.
type Event struct {
	Kind    EventKind
	Session models.Session
}

// SignedOut reports whether the event ended an authenticated session.
func (e Event) SignedOut() bool {
	return e.Kind == EventLoggedOut || e.Kind == EventExpired
}

// AuthError reports which step of sign-in failed.
type AuthError struct {
	Stage string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v: %s: %v", shared.ErrAuthFailed, e.Stage, e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{shared.ErrAuthFailed, e.Err}
}

// Sign-in stages reported in [AuthError].
const (
	StageState    = "state"
	StageRedirect = "redirect"
	StageExchange = "exchange"
	StagePersist  = "persist"
	StageProfile  = "profile"
)

var errSuperseded = errors.New("superseded by a newer session transition")

// PendingLogin is an authorization request awaiting its redirect.
type PendingLogin struct {
	State     string
	Verifier  string
	URL       string
	CreatedAt time.Time
}

// Opts configures a [Manager]. Store, Profiles and Authorizer are required.
type Opts struct {
	Store      repositories.CredentialStore
	Profiles   ProfileFetcher
	Authorizer TokenExchanger
	UserAgent  UserAgent
	Revoke     RevokeFunc
	Logger     *log.Logger
}

// Manager holds the session state and serializes its transitions.
type Manager struct {
	store      repositories.CredentialStore
	profiles   ProfileFetcher
	authorizer TokenExchanger
	agent      UserAgent
	revoke     RevokeFunc
	logger     *log.Logger

	mu         sync.RWMutex
	session    models.Session
	generation uint64
	pending    map[string]PendingLogin
	observers  shared.Observers[Event]

	// storeMu orders credential writes with the generation check that guards them.
	storeMu sync.Mutex
}

// NewManager creates a [Manager] in [models.StatusUninitialized].
func NewManager(opts Opts) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Manager{
		store:      opts.Store,
		profiles:   opts.Profiles,
		authorizer: opts.Authorizer,
		agent:      opts.UserAgent,
		revoke:     opts.Revoke,
		logger:     logger,
		session:    models.Session{Status: models.StatusUninitialized},
		pending:    map[string]PendingLogin{},
	}
}

// Session returns a snapshot of the current state.
func (m *Manager) Session() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

// Token returns the current access token, or "" when not authenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session.Status != models.StatusAuthenticated {
		return ""
	}
	return m.session.AccessToken
}

// Subscribe registers fn for transition events and returns a function that removes it.
// fn runs on the goroutine that caused the transition, outside the manager's lock.
func (m *Manager) Subscribe(fn func(Event)) func() {
	return m.observers.Subscribe(fn)
}

func (m *Manager) notify(ev Event) {
	m.observers.Notify(ev)
}

// begin starts a transition into Restoring and returns its generation. Caller holds mu.
func (m *Manager) begin() uint64 {
	m.generation++
	m.session = models.Session{Status: models.StatusRestoring}
	return m.generation
}

// settle applies s if gen is still current and notifies with kind.
func (m *Manager) settle(gen uint64, s models.Session, kind EventKind) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.logger.Debug("dropping stale session transition", "generation", gen, "current", m.generation)
		return false
	}
	m.session = s
	snapshot := s.Clone()
	m.mu.Unlock()

	m.notify(Event{Kind: kind, Session: snapshot})
	return true
}

func (m *Manager) current(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return gen == m.generation
}

// clearCredential deletes the stored token if gen is still current.
func (m *Manager) clearCredential(ctx context.Context, gen uint64) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if !m.current(gen) {
		return
	}
	if err := m.store.Delete(ctx); err != nil {
		m.logger.Error("failed to delete credential", "error", err)
	}
}

// Restore loads a persisted token and validates it against the profile endpoint.
//
// It never fails: problems are logged and leave the session Unauthenticated. The returned
// snapshot is the state after this call, which may belong to a newer transition.
func (m *Manager) Restore(ctx context.Context) models.Session {
	m.mu.Lock()
	if m.session.Status == models.StatusAuthenticated {
		s := m.session.Clone()
		m.mu.Unlock()
		return s
	}
	gen := m.begin()
	m.mu.Unlock()

	unauth := models.Session{Status: models.StatusUnauthenticated}

	token, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("failed to load credential", "error", err)
		m.clearCredential(ctx, gen)
		m.settle(gen, unauth, EventRestored)
		return m.Session()
	}
	if token == "" {
		m.logger.Debug("no stored credential")
		m.settle(gen, unauth, EventRestored)
		return m.Session()
	}

	profile, err := m.profiles.MeWithToken(ctx, token)
	if err != nil {
		m.logger.Warn("stored credential rejected", "error", err)
		m.clearCredential(ctx, gen)
		m.settle(gen, unauth, EventRestored)
		return m.Session()
	}

	if m.settle(gen, models.Session{AccessToken: token, User: profile, Status: models.StatusAuthenticated}, EventRestored) {
		m.logger.Info("session restored", "user", profile.ID)
	}
	return m.Session()
}

// Login starts the authorization flow and opens the authorize URL through the [UserAgent].
//
// Completion arrives out of band through [Manager.HandleRedirect]. A browser launch failure is
// logged; the returned URL can be shown to the user instead.
func (m *Manager) Login(ctx context.Context) (*PendingLogin, error) {
	verifier := oauth2.GenerateVerifier()
	state := shared.GenerateState()
	p := PendingLogin{
		State:     state,
		Verifier:  verifier,
		URL:       m.authorizer.AuthURL(state, verifier),
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	if m.session.Status == models.StatusAuthenticated {
		m.mu.Unlock()
		return nil, shared.ErrAlreadyAuthenticated
	}
	m.pending[state] = p
	m.begin()
	snapshot := m.session.Clone()
	m.mu.Unlock()

	m.notify(Event{Kind: EventPending, Session: snapshot})

	if m.agent != nil {
		if err := m.agent.Open(p.URL); err != nil {
			m.logger.Warn("failed to open authorization page", "error", err)
		}
	}
	return &p, nil
}

// CancelLogin abandons a pending login. If no other login is pending the session returns to Unauthenticated.
func (m *Manager) CancelLogin(state string) {
	m.mu.Lock()
	delete(m.pending, state)
	if len(m.pending) > 0 || m.session.Status != models.StatusRestoring {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.settle(gen, models.Session{Status: models.StatusUnauthenticated}, EventFailed)
}

// HandleRedirect completes a login from the redirect's query parameters.
//
// An unknown state is rejected without touching the session; an error parameter or a missing
// code fails the pending login.
func (m *Manager) HandleRedirect(ctx context.Context, query url.Values) (models.Session, error) {
	state := query.Get("state")

	m.mu.Lock()
	p, ok := m.pending[state]
	if ok {
		delete(m.pending, state)
	}
	m.mu.Unlock()

	if !ok {
		return m.Session(), &AuthError{Stage: StageState, Err: shared.ErrInvalidState}
	}

	if reason := query.Get("error"); reason != "" {
		return m.fail(ctx, m.restart(), StageRedirect, fmt.Errorf("authorization denied: %s", reason))
	}
	code := query.Get("code")
	if code == "" {
		return m.fail(ctx, m.restart(), StageRedirect, fmt.Errorf("%w: code", shared.ErrMissingArgument))
	}
	return m.CompleteLogin(ctx, code, p.Verifier)
}

func (m *Manager) restart() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin()
}

// CompleteLogin exchanges code for a token, persists it and loads the profile.
//
// Any failure deletes the stored credential, leaves the session Unauthenticated and returns an
// [*AuthError]. If a newer transition (logout, another login) began meanwhile, the result is
// discarded and the error reports the supersession.
func (m *Manager) CompleteLogin(ctx context.Context, code, verifier string) (models.Session, error) {
	gen := m.restart()

	if code == "" || verifier == "" {
		return m.fail(ctx, gen, StageExchange, fmt.Errorf("%w: code and verifier are required", shared.ErrInvalidInput))
	}

	token, err := m.authorizer.Exchange(ctx, code, verifier)
	if err != nil {
		return m.fail(ctx, gen, StageExchange, err)
	}

	m.storeMu.Lock()
	if !m.current(gen) {
		m.storeMu.Unlock()
		return m.Session(), &AuthError{Stage: StagePersist, Err: errSuperseded}
	}
	err = m.store.Save(ctx, token.AccessToken)
	m.storeMu.Unlock()
	if err != nil {
		return m.fail(ctx, gen, StagePersist, err)
	}

	profile, err := m.profiles.MeWithToken(ctx, token.AccessToken)
	if err != nil {
		return m.fail(ctx, gen, StageProfile, err)
	}

	s := models.Session{AccessToken: token.AccessToken, User: profile, Status: models.StatusAuthenticated}
	if !m.settle(gen, s, EventLoggedIn) {
		return m.Session(), &AuthError{Stage: StageProfile, Err: errSuperseded}
	}
	m.logger.Info("signed in", "user", profile.ID)
	return s.Clone(), nil
}

func (m *Manager) fail(ctx context.Context, gen uint64, stage string, err error) (models.Session, error) {
	m.logger.Warn("sign-in failed", "stage", stage, "error", err)
	m.clearCredential(ctx, gen)
	m.settle(gen, models.Session{Status: models.StatusUnauthenticated}, EventFailed)
	return m.Session(), &AuthError{Stage: stage, Err: err}
}

// Logout deletes the stored credential and clears the session.
//
// It always succeeds locally. Calling it again, or while already signed out, changes nothing
// and does not notify subscribers.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev := m.session
	m.generation++
	gen := m.generation
	m.pending = map[string]PendingLogin{}
	changed := prev.Status != models.StatusUnauthenticated
	m.session = models.Session{Status: models.StatusUnauthenticated}
	m.mu.Unlock()

	m.clearCredential(ctx, gen)

	if m.revoke != nil && prev.AccessToken != "" {
		if err := m.revoke(ctx, prev.AccessToken); err != nil {
			m.logger.Warn("token revocation failed", "error", err)
		}
	}

	if changed {
		m.logger.Info("signed out")
		m.notify(Event{Kind: EventLoggedOut, Session: models.Session{Status: models.StatusUnauthenticated}})
	}
}

// Expire ends the session after the API rejected token. A token other than the current one is ignored,
// so a late 401 from a previous session cannot sign out a newer one.
func (m *Manager) Expire(ctx context.Context, token string, cause error) {
	m.mu.Lock()
	if m.session.Status != models.StatusAuthenticated || (token != "" && token != m.session.AccessToken) {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.session = models.Session{Status: models.StatusUnauthenticated}
	m.mu.Unlock()

	m.logger.Warn("session expired", "cause", cause)
	m.clearCredential(ctx, gen)
	m.notify(Event{Kind: EventExpired, Session: models.Session{Status: models.StatusUnauthenticated}})
}
