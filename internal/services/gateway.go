package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL    = "https://api.spotify.com/v1"
	defaultRetryAfter = 30 * time.Second
	maxErrorBody      = 64 << 10
)

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

// UnauthorizedFunc is called after a 401 for a request sent with token.
type UnauthorizedFunc func(token string, err error)

// RemoteError is a non-2xx response from the API.
type RemoteError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.Status == http.StatusUnauthorized
	case shared.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a [RemoteError].
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// GatewayOpts configures a [Gateway]. Zero values select defaults.
type GatewayOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	Token             TokenSource
	OnUnauthorized    UnauthorizedFunc
	RequestsPerSecond float64
	Logger            *log.Logger
}

// Gateway sends authenticated JSON requests to the API.
type Gateway struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger

	mu             sync.RWMutex
	token          TokenSource
	onUnauthorized UnauthorizedFunc
	blockedUntil   time.Time
	now            func() time.Time
}

// NewGateway creates a [Gateway]. An invalid BaseURL is reported here rather than on first use.
func NewGateway(opts GatewayOpts) (*Gateway, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = spotifyBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: api base url %q", shared.ErrInvalidConfig, raw)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &Gateway{
		base:           base,
		client:         client,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         logger,
		token:          opts.Token,
		onUnauthorized: opts.OnUnauthorized,
		now:            time.Now,
	}, nil
}

// SetTokenSource replaces the token source. Used when the session is built after the gateway.
func (g *Gateway) SetTokenSource(ts TokenSource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = ts
}

// SetUnauthorizedHandler replaces the 401 hook.
func (g *Gateway) SetUnauthorizedHandler(fn UnauthorizedFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onUnauthorized = fn
}

// Do sends a request with the current session token and decodes a JSON response into out.
//
// path is relative to the API base ("/me") or an absolute URL on the API host, as found in "next" links.
// body, when non-nil, is JSON encoded. out may be nil.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	g.mu.RLock()
	ts := g.token
	g.mu.RUnlock()

	token := ""
	if ts != nil {
		token = ts()
	}
	return g.send(ctx, token, true, method, path, body, out)
}

// DoWithToken is [Gateway.Do] with an explicit token. A 401 does not invoke the unauthorized hook,
// so callers validating a candidate token handle the failure themselves.
func (g *Gateway) DoWithToken(ctx context.Context, token, method, path string, body, out any) error {
	return g.send(ctx, token, false, method, path, body, out)
}

func (g *Gateway) send(ctx context.Context, token string, notify bool, method, path string, body, out any) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}

	target, err := g.resolve(path)
	if err != nil {
		return err
	}

	if err := g.checkBlocked(); err != nil {
		return err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := g.remoteError(resp)
		g.logger.Debug("request failed", "method", method, "path", req.URL.Path, "status", rerr.Status, "message", rerr.Message)

		if rerr.Status == http.StatusUnauthorized && notify {
			g.mu.RLock()
			hook := g.onUnauthorized
			g.mu.RUnlock()
			if hook != nil {
				hook(token, rerr)
			}
		}
		return rerr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// resolve joins a relative path to the base URL, or checks that an absolute one stays on the API host.
func (g *Gateway) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		if u.Host != g.base.Host {
			return "", fmt.Errorf("%w: refusing to send token to %s", shared.ErrInvalidArgument, u.Host)
		}
		return u.String(), nil
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.base.String() + path, nil
}

func (g *Gateway) checkBlocked() error {
	g.mu.RLock()
	until := g.blockedUntil
	g.mu.RUnlock()

	if wait := until.Sub(g.now()); wait > 0 {
		return &RemoteError{
			Status:     http.StatusTooManyRequests,
			Message:    fmt.Sprintf("rate limited, retry in %s", wait.Round(time.Second)),
			RetryAfter: wait,
		}
	}
	return nil
}

// remoteError decodes {"error":{"status":..,"message":..}} and records Retry-After for 429s.
func (g *Gateway) remoteError(resp *http.Response) *RemoteError {
	rerr := &RemoteError{Status: resp.StatusCode}

	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		rerr.Message = payload.Error.Message
	}
	if rerr.Message == "" {
		rerr.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := defaultRetryAfter
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		rerr.RetryAfter = wait

		g.mu.Lock()
		g.blockedUntil = g.now().Add(wait)
		g.mu.Unlock()
		g.logger.Warn("rate limited by API", "retry_after", wait)
	}
	return rerr
}
