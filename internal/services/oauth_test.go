package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
	"golang.org/x/oauth2"
)

func TestAuthorizer(t *testing.T) {
	t.Run("requires client id and redirect", func(t *testing.T) {
		if _, err := NewAuthorizer("", "http://127.0.0.1/callback", nil, oauth2.Endpoint{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if _, err := NewAuthorizer("id", " ", nil, oauth2.Endpoint{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("AuthURL carries PKCE challenge and state", func(t *testing.T) {
		a, err := NewAuthorizer("client", "http://127.0.0.1:3000/callback", []string{"user-read-private", "user-library-read"}, oauth2.Endpoint{})
		if err != nil {
			t.Fatal(err)
		}

		verifier := oauth2.GenerateVerifier()
		u, err := url.Parse(a.AuthURL("state-1", verifier))
		if err != nil {
			t.Fatal(err)
		}
		q := u.Query()

		if u.Host != "accounts.spotify.com" {
			t.Errorf("host = %s", u.Host)
		}
		if q.Get("state") != "state-1" || q.Get("client_id") != "client" || q.Get("response_type") != "code" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") != oauth2.S256ChallengeFromVerifier(verifier) {
			t.Errorf("missing S256 challenge in %v", q)
		}
		if q.Get("scope") != "user-read-private user-library-read" {
			t.Errorf("scope = %q", q.Get("scope"))
		}
		if a.RedirectURL() != "http://127.0.0.1:3000/callback" {
			t.Errorf("RedirectURL() = %s", a.RedirectURL())
		}
	})

	t.Run("Exchange sends verifier", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t, "")
		fake.IssueCode("code-1", "fresh-token")

		a, err := NewAuthorizer("client", "http://127.0.0.1:3000/callback", nil, fake.Endpoint())
		if err != nil {
			t.Fatal(err)
		}
		a.WithHTTPClient(fake.Server.Client())

		token, err := a.Exchange(context.Background(), "code-1", "verifier-abc")
		if err != nil {
			t.Fatalf("Exchange() error = %v", err)
		}
		if token.AccessToken != "fresh-token" {
			t.Errorf("AccessToken = %q", token.AccessToken)
		}
		if v := fake.Verifiers(); len(v) != 1 || v[0] != "verifier-abc" {
			t.Errorf("verifiers = %v", v)
		}

		if _, err := a.Exchange(context.Background(), "code-1", "verifier-abc"); err == nil {
			t.Error("reusing a code should fail")
		}
	})
}
