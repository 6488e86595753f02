package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyEndpoint is the accounts service, with the client id sent in the form body as public clients require.
var SpotifyEndpoint = oauth2.Endpoint{
	AuthURL:   spotifyAuthURL,
	TokenURL:  spotifyTokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// Authorizer performs the authorization-code-with-PKCE flow for a public client.
type Authorizer struct {
	config *oauth2.Config
	client *http.Client
}

// NewAuthorizer builds an [Authorizer]. A zero endpoint selects [SpotifyEndpoint].
func NewAuthorizer(clientID, redirectURI string, scopes []string, endpoint oauth2.Endpoint) (*Authorizer, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if strings.TrimSpace(redirectURI) == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri", shared.ErrMissingCredentials)
	}
	if endpoint.AuthURL == "" {
		endpoint = SpotifyEndpoint
	}

	return &Authorizer{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURI,
			Scopes:      scopes,
			Endpoint:    endpoint,
		},
	}, nil
}

// WithHTTPClient sets the client used for token exchange.
func (a *Authorizer) WithHTTPClient(c *http.Client) *Authorizer {
	a.client = c
	return a
}

// AuthURL returns the authorize URL carrying state and the S256 challenge for verifier.
func (a *Authorizer) AuthURL(state, verifier string) string {
	return a.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token, proving possession of verifier.
func (a *Authorizer) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if a.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	}
	token, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}
	return token, nil
}

// RedirectURL returns the configured redirect URI.
func (a *Authorizer) RedirectURL() string {
	return a.config.RedirectURL
}
