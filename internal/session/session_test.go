package session

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
	"golang.org/x/oauth2"
)

var errRejected = errors.New("401 unauthorized")

type stubProfiles struct {
	mu      sync.Mutex
	valid   map[string]*models.UserProfile
	gates   map[string]chan struct{}
	entered chan string
	calls   int
}

func newStubProfiles(tokens ...string) *stubProfiles {
	s := &stubProfiles{valid: map[string]*models.UserProfile{}, gates: map[string]chan struct{}{}, entered: make(chan string, 8)}
	for _, tok := range tokens {
		s.valid[tok] = &models.UserProfile{ID: "user-" + tok, DisplayName: "User " + tok}
	}
	return s
}

// gate makes requests for token wait until the returned func is called.
func (s *stubProfiles) gate(token string) func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[token] = ch
	s.mu.Unlock()
	return func() { close(ch) }
}

func (s *stubProfiles) MeWithToken(ctx context.Context, token string) (*models.UserProfile, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[token]
	s.mu.Unlock()

	s.entered <- token
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.valid[token]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, errRejected
}

type stubExchanger struct {
	codes map[string]string
	err   error
}

func (s *stubExchanger) AuthURL(state, verifier string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (s *stubExchanger) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	tok, ok := s.codes[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{AccessToken: tok}, nil
}

type recordingAgent struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (a *recordingAgent) Open(u string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.urls = append(a.urls, u)
	return a.err
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fixture struct {
	mgr      *Manager
	store    *repositories.MemoryCredentialStore
	profiles *stubProfiles
	exch     *stubExchanger
	agent    *recordingAgent
	log      *eventLog
}

func newFixture(t *testing.T, stored string, validTokens ...string) *fixture {
	t.Helper()
	f := &fixture{
		store:    repositories.NewMemoryCredentialStore(stored),
		profiles: newStubProfiles(validTokens...),
		exch:     &stubExchanger{codes: map[string]string{}},
		agent:    &recordingAgent{},
		log:      &eventLog{},
	}
	f.mgr = NewManager(Opts{Store: f.store, Profiles: f.profiles, Authorizer: f.exch, UserAgent: f.agent})
	f.mgr.Subscribe(func(ev Event) {
		// User is set exactly when authenticated, in every published snapshot.
		if (ev.Session.User != nil) != (ev.Session.Status == models.StatusAuthenticated) {
			t.Errorf("inconsistent snapshot in %s event: %+v", ev.Kind, ev.Session)
		}
		f.log.record(ev)
	})
	return f
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored token", func(t *testing.T) {
		f := newFixture(t, "")
		if got := f.mgr.Session().Status; got != models.StatusUninitialized {
			t.Fatalf("initial status = %s", got)
		}

		s := f.mgr.Restore(ctx)
		if s.Status != models.StatusUnauthenticated || s.User != nil || s.AccessToken != "" {
			t.Errorf("unexpected session %+v", s)
		}
		if f.profiles.calls != 0 {
			t.Error("profile should not be requested without a token")
		}
		if kinds := f.log.kinds(); len(kinds) != 1 || kinds[0] != EventRestored {
			t.Errorf("events = %v", kinds)
		}
	})

	t.Run("valid stored token", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		s := f.mgr.Restore(ctx)

		if !s.Authenticated() || s.AccessToken != "good" || s.User.ID != "user-good" {
			t.Errorf("unexpected session %+v", s)
		}
		if f.mgr.Token() != "good" {
			t.Errorf("Token() = %q", f.mgr.Token())
		}
	})

	t.Run("rejected stored token is deleted", func(t *testing.T) {
		f := newFixture(t, "expired")
		s := f.mgr.Restore(ctx)

		if s.Status != models.StatusUnauthenticated || s.User != nil {
			t.Errorf("unexpected session %+v", s)
		}
		if f.store.Value() != "" {
			t.Errorf("credential should be deleted, still %q", f.store.Value())
		}
		if f.mgr.Token() != "" {
			t.Error("Token() should be blank")
		}
	})

	t.Run("store failure degrades to unauthenticated", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		f.store.Err = errors.New("disk gone")

		if s := f.mgr.Restore(ctx); s.Status != models.StatusUnauthenticated {
			t.Errorf("status = %s", s.Status)
		}
	})

	t.Run("already authenticated is a no-op", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		f.mgr.Restore(ctx)
		f.mgr.Restore(ctx)
		if f.profiles.calls != 1 {
			t.Errorf("expected one profile call, got %d", f.profiles.calls)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Login records pending flow and opens the agent", func(t *testing.T) {
		f := newFixture(t, "")
		f.mgr.Restore(ctx)

		p, err := f.mgr.Login(ctx)
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if p.State == "" || len(p.Verifier) < 43 {
			t.Errorf("unexpected pending login %+v", p)
		}
		if len(f.agent.urls) != 1 || !strings.Contains(f.agent.urls[0], "state="+p.State) {
			t.Errorf("agent urls = %v", f.agent.urls)
		}
		if f.mgr.Session().Status != models.StatusRestoring {
			t.Errorf("status = %s", f.mgr.Session().Status)
		}
	})

	t.Run("agent failure still returns the url", func(t *testing.T) {
		f := newFixture(t, "")
		f.agent.err = errors.New("no display")

		p, err := f.mgr.Login(ctx)
		if err != nil || p.URL == "" {
			t.Errorf("Login() = %+v, %v", p, err)
		}
	})

	t.Run("Login while authenticated", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		f.mgr.Restore(ctx)
		if _, err := f.mgr.Login(ctx); !errors.Is(err, shared.ErrAlreadyAuthenticated) {
			t.Errorf("expected ErrAlreadyAuthenticated, got %v", err)
		}
	})

	t.Run("CancelLogin returns to unauthenticated", func(t *testing.T) {
		f := newFixture(t, "")
		p, _ := f.mgr.Login(ctx)
		f.mgr.CancelLogin(p.State)
		if s := f.mgr.Session(); s.Status != models.StatusUnauthenticated {
			t.Errorf("status = %s", s.Status)
		}
	})

	t.Run("HandleRedirect success", func(t *testing.T) {
		f := newFixture(t, "", "fresh")
		f.exch.codes["abc"] = "fresh"
		p, _ := f.mgr.Login(ctx)

		s, err := f.mgr.HandleRedirect(ctx, url.Values{"code": {"abc"}, "state": {p.State}})
		if err != nil {
			t.Fatalf("HandleRedirect() error = %v", err)
		}
		if !s.Authenticated() || s.User.ID != "user-fresh" {
			t.Errorf("unexpected session %+v", s)
		}
		if f.store.Value() != "fresh" {
			t.Errorf("stored credential = %q", f.store.Value())
		}
		kinds := f.log.kinds()
		if kinds[len(kinds)-1] != EventLoggedIn {
			t.Errorf("events = %v", kinds)
		}
	})

	t.Run("HandleRedirect unknown state", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		f.mgr.Restore(ctx)

		_, err := f.mgr.HandleRedirect(ctx, url.Values{"code": {"abc"}, "state": {"forged"}})
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Stage != StageState || !errors.Is(err, shared.ErrInvalidState) {
			t.Fatalf("expected state AuthError, got %v", err)
		}
		if !f.mgr.Session().Authenticated() || f.store.Value() != "good" {
			t.Error("forged redirect must not disturb an existing session")
		}
	})

	t.Run("HandleRedirect with error parameter", func(t *testing.T) {
		f := newFixture(t, "")
		p, _ := f.mgr.Login(ctx)

		s, err := f.mgr.HandleRedirect(ctx, url.Values{"error": {"access_denied"}, "state": {p.State}})
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if s.Status != models.StatusUnauthenticated {
			t.Errorf("status = %s", s.Status)
		}
	})

	t.Run("HandleRedirect without code", func(t *testing.T) {
		f := newFixture(t, "")
		p, _ := f.mgr.Login(ctx)

		_, err := f.mgr.HandleRedirect(ctx, url.Values{"state": {p.State}})
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Stage != StageRedirect {
			t.Errorf("expected redirect-stage AuthError, got %v", err)
		}
	})
}

func TestCompleteLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("exchange failure clears credential", func(t *testing.T) {
		f := newFixture(t, "leftover")
		f.exch.err = errors.New("invalid_grant")

		s, err := f.mgr.CompleteLogin(ctx, "code", "verifier")
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Stage != StageExchange || !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected exchange AuthError, got %v", err)
		}
		if s.Status != models.StatusUnauthenticated || f.store.Value() != "" {
			t.Errorf("session %+v, store %q", s, f.store.Value())
		}
		if kinds := f.log.kinds(); kinds[len(kinds)-1] != EventFailed {
			t.Errorf("events = %v", kinds)
		}
	})

	t.Run("profile failure deletes the saved credential", func(t *testing.T) {
		f := newFixture(t, "")
		f.exch.codes["abc"] = "unusable"

		_, err := f.mgr.CompleteLogin(ctx, "abc", "verifier")
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Stage != StageProfile || !errors.Is(err, errRejected) {
			t.Fatalf("expected profile AuthError, got %v", err)
		}
		if f.store.Value() != "" {
			t.Errorf("credential should be deleted, got %q", f.store.Value())
		}
	})

	t.Run("persist failure", func(t *testing.T) {
		f := newFixture(t, "", "fresh")
		f.exch.codes["abc"] = "fresh"
		f.store.Err = errors.New("read-only")

		_, err := f.mgr.CompleteLogin(ctx, "abc", "verifier")
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Stage != StagePersist {
			t.Errorf("expected persist AuthError, got %v", err)
		}
		if f.mgr.Session().Status != models.StatusUnauthenticated {
			t.Error("expected unauthenticated")
		}
	})

	t.Run("blank code is rejected before exchange", func(t *testing.T) {
		f := newFixture(t, "")
		f.exch.err = errors.New("should not be called")

		_, err := f.mgr.CompleteLogin(ctx, "", "verifier")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("logout is idempotent", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		var revoked []string
		f.mgr.revoke = func(ctx context.Context, token string) error {
			revoked = append(revoked, token)
			return errors.New("revocation unsupported")
		}
		f.mgr.Restore(ctx)

		f.mgr.Logout(ctx)
		first := f.mgr.Session()
		eventsAfterFirst := len(f.log.kinds())

		f.mgr.Logout(ctx)
		second := f.mgr.Session()

		if first != second {
			t.Errorf("second logout changed session: %+v vs %+v", first, second)
		}
		if second.Status != models.StatusUnauthenticated || second.User != nil || second.AccessToken != "" {
			t.Errorf("unexpected session %+v", second)
		}
		if len(f.log.kinds()) != eventsAfterFirst {
			t.Errorf("second logout notified subscribers: %v", f.log.kinds())
		}
		if f.store.Value() != "" {
			t.Error("credential should be deleted")
		}
		if len(revoked) != 1 || revoked[0] != "good" {
			t.Errorf("revoked = %v", revoked)
		}
	})

	t.Run("logout clears pending logins", func(t *testing.T) {
		f := newFixture(t, "", "fresh")
		f.exch.codes["abc"] = "fresh"
		p, _ := f.mgr.Login(ctx)
		f.mgr.Logout(ctx)

		if _, err := f.mgr.HandleRedirect(ctx, url.Values{"code": {"abc"}, "state": {p.State}}); err == nil {
			t.Error("redirect after logout should be rejected")
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		var count int
		unsubscribe := f.mgr.Subscribe(func(Event) { count++ })
		f.mgr.Restore(ctx)
		unsubscribe()
		unsubscribe()
		f.mgr.Logout(ctx)

		if count != 1 {
			t.Errorf("expected 1 delivery, got %d", count)
		}
	})
}

func TestExpire(t *testing.T) {
	ctx := context.Background()

	t.Run("matching token expires the session", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		f.mgr.Restore(ctx)

		f.mgr.Expire(ctx, "good", errRejected)
		if f.mgr.Session().Status != models.StatusUnauthenticated || f.store.Value() != "" {
			t.Errorf("session %+v, store %q", f.mgr.Session(), f.store.Value())
		}
		kinds := f.log.kinds()
		if kinds[len(kinds)-1] != EventExpired || !(Event{Kind: EventExpired}).SignedOut() {
			t.Errorf("events = %v", kinds)
		}
	})

	t.Run("stale token is ignored", func(t *testing.T) {
		f := newFixture(t, "good", "good")
		f.mgr.Restore(ctx)

		f.mgr.Expire(ctx, "previous", errRejected)
		if !f.mgr.Session().Authenticated() {
			t.Error("stale 401 must not end the current session")
		}
	})

	t.Run("expire while signed out does nothing", func(t *testing.T) {
		f := newFixture(t, "")
		f.mgr.Restore(ctx)
		before := len(f.log.kinds())
		f.mgr.Expire(ctx, "", errRejected)
		if len(f.log.kinds()) != before {
			t.Error("unexpected notification")
		}
	})
}

func TestRestoreRacingLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("late restore success does not overwrite login", func(t *testing.T) {
		f := newFixture(t, "old", "old", "new")
		f.exch.codes["abc"] = "new"
		release := f.profiles.gate("old")

		done := make(chan models.Session)
		go func() { done <- f.mgr.Restore(ctx) }()
		<-f.profiles.entered

		s, err := f.mgr.CompleteLogin(ctx, "abc", "verifier")
		if err != nil {
			t.Fatalf("CompleteLogin() error = %v", err)
		}
		<-f.profiles.entered
		release()
		<-done

		final := f.mgr.Session()
		if final.AccessToken != "new" || final.User.ID != s.User.ID {
			t.Errorf("restore overwrote login: %+v", final)
		}
	})

	t.Run("late restore failure does not delete the new credential", func(t *testing.T) {
		f := newFixture(t, "revoked", "new")
		f.exch.codes["abc"] = "new"
		release := f.profiles.gate("revoked")

		done := make(chan struct{})
		go func() {
			f.mgr.Restore(ctx)
			close(done)
		}()
		<-f.profiles.entered

		if _, err := f.mgr.CompleteLogin(ctx, "abc", "verifier"); err != nil {
			t.Fatalf("CompleteLogin() error = %v", err)
		}
		<-f.profiles.entered
		release()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("restore did not finish")
		}

		if f.store.Value() != "new" || !f.mgr.Session().Authenticated() {
			t.Errorf("store %q, session %+v", f.store.Value(), f.mgr.Session())
		}
	})
}

func TestLoginAgainstSpotify(t *testing.T) {
	ctx := context.Background()
	fake := tu.NewFakeSpotify(t, "")

	gw, err := services.NewGateway(services.GatewayOpts{BaseURL: fake.APIBase()})
	if err != nil {
		t.Fatal(err)
	}
	spotify := services.NewSpotifyService(gw, "")
	auth, err := services.NewAuthorizer("client", "http://127.0.0.1:3000/callback", []string{"user-read-private"}, fake.Endpoint())
	if err != nil {
		t.Fatal(err)
	}
	store := repositories.NewMemoryCredentialStore("")
	agent := &recordingAgent{}

	mgr := NewManager(Opts{Store: store, Profiles: spotify, Authorizer: auth, UserAgent: agent})
	gw.SetTokenSource(mgr.Token)

	if s := mgr.Restore(ctx); s.Status != models.StatusUnauthenticated {
		t.Fatalf("status = %s", s.Status)
	}

	p, err := mgr.Login(ctx)
	if err != nil {
		t.Fatal(err)
	}
	authURL, _ := url.Parse(agent.urls[0])
	if authURL.Query().Get("code_challenge") != oauth2.S256ChallengeFromVerifier(p.Verifier) {
		t.Error("authorize url does not carry the verifier's challenge")
	}

	fake.IssueCode("code-xyz", "access-1")
	s, err := mgr.HandleRedirect(ctx, url.Values{"code": {"code-xyz"}, "state": {p.State}})
	if err != nil {
		t.Fatalf("HandleRedirect() error = %v", err)
	}
	if s.User.ID != "user-1" || store.Value() != "access-1" {
		t.Errorf("session %+v, store %q", s, store.Value())
	}
	if v := fake.Verifiers(); len(v) != 1 || v[0] != p.Verifier {
		t.Errorf("token endpoint saw verifiers %v", v)
	}

	restarted := NewManager(Opts{Store: store, Profiles: spotify, Authorizer: auth})
	if s := restarted.Restore(ctx); !s.Authenticated() || s.AccessToken != "access-1" {
		t.Errorf("restore after restart = %+v", s)
	}
}
