package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

func newTestGateway(t *testing.T, base string, token string) *Gateway {
	t.Helper()
	gw, err := NewGateway(GatewayOpts{BaseURL: base, Token: func() string { return token }})
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	return gw
}

func TestGateway(t *testing.T) {
	t.Run("NewGateway rejects invalid base url", func(t *testing.T) {
		if _, err := NewGateway(GatewayOpts{BaseURL: "not a url"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("missing token fails without a request", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		gw := newTestGateway(t, srv.URL, "")
		err := gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no requests, got %d", calls.Load())
		}
	})

	t.Run("sends bearer token and JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"name":"Mix"}` {
				t.Errorf("body = %s", body)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"pl-1"}`))
		}))
		defer srv.Close()

		gw := newTestGateway(t, srv.URL, "tok")
		var out struct {
			ID string `json:"id"`
		}
		if err := gw.Do(context.Background(), http.MethodPost, "/users/u/playlists", map[string]string{"name": "Mix"}, &out); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if out.ID != "pl-1" {
			t.Errorf("decoded id = %q", out.ID)
		}
	})

	t.Run("empty success body is not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		var out map[string]any
		if err := newTestGateway(t, srv.URL, "tok").Do(context.Background(), http.MethodPut, "/playlists/x", nil, &out); err != nil {
			t.Errorf("Do() error = %v", err)
		}
	})

	t.Run("remote error carries message and sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"status":404,"message":"Non existing id"}}`))
		}))
		defer srv.Close()

		err := newTestGateway(t, srv.URL, "tok").Do(context.Background(), http.MethodGet, "/albums/x", nil, nil)

		var re *RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("expected RemoteError, got %T %v", err, err)
		}
		if re.Status != 404 || re.Message != "Non existing id" {
			t.Errorf("unexpected error %+v", re)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("RemoteError should match ErrAPIRequest")
		}
		if errors.Is(err, shared.ErrTokenExpired) {
			t.Error("404 should not match ErrTokenExpired")
		}
		if StatusCode(err) != 404 {
			t.Errorf("StatusCode() = %d", StatusCode(err))
		}
	})

	t.Run("non-JSON error falls back to status text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>upstream</html>"))
		}))
		defer srv.Close()

		err := newTestGateway(t, srv.URL, "tok").Do(context.Background(), http.MethodGet, "/me", nil, nil)
		if !strings.Contains(err.Error(), http.StatusText(http.StatusBadGateway)) {
			t.Errorf("expected status text in %v", err)
		}
	})

	t.Run("401 invokes unauthorized hook with the token used", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		}))
		defer srv.Close()

		gw := newTestGateway(t, srv.URL, "stale")
		var hooked string
		gw.SetUnauthorizedHandler(func(token string, err error) { hooked = token })

		err := gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
		if hooked != "stale" {
			t.Errorf("hook token = %q", hooked)
		}

		hooked = ""
		if err := gw.DoWithToken(context.Background(), "candidate", http.MethodGet, "/me", nil, nil); err == nil {
			t.Fatal("expected error")
		}
		if hooked != "" {
			t.Error("DoWithToken must not invoke the unauthorized hook")
		}
	})

	t.Run("429 blocks until retry-after elapses", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		gw := newTestGateway(t, srv.URL, "tok")
		now := time.Now()
		gw.now = func() time.Time { return now }

		err := gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		var re *RemoteError
		if !errors.As(err, &re) || re.RetryAfter != 5*time.Second {
			t.Fatalf("expected 5s RetryAfter, got %v", err)
		}

		err = gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited while blocked, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected blocked call to skip the network, got %d calls", calls.Load())
		}

		now = now.Add(6 * time.Second)
		gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		if calls.Load() != 2 {
			t.Errorf("expected request after window, got %d calls", calls.Load())
		}
	})

	t.Run("absolute next link must stay on the API host", func(t *testing.T) {
		gw := newTestGateway(t, "https://api.spotify.com/v1", "tok")
		err := gw.Do(context.Background(), http.MethodGet, "https://evil.example.com/v1/me/tracks", nil, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		got, err := gw.resolve("https://api.spotify.com/v1/me/tracks?offset=50")
		if err != nil || got != "https://api.spotify.com/v1/me/tracks?offset=50" {
			t.Errorf("resolve() = %q, %v", got, err)
		}
		if got, _ := gw.resolve("me"); got != "https://api.spotify.com/v1/me" {
			t.Errorf("resolve(relative) = %q", got)
		}
	})

	t.Run("transport failure wraps ErrAPIRequest", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
		gw, err := NewGateway(GatewayOpts{
			BaseURL:    "https://api.spotify.com/v1",
			HTTPClient: &http.Client{Transport: rt},
			Token:      func() string { return "tok" },
		})
		if err != nil {
			t.Fatal(err)
		}

		err = gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if len(rt.Requests) != 1 {
			t.Errorf("expected exactly one attempt, got %d", len(rt.Requests))
		}
	})

	t.Run("unreadable body", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(&http.Response{StatusCode: 200, Body: &tu.FCloser{}, Header: http.Header{}}, nil)
		gw, _ := NewGateway(GatewayOpts{HTTPClient: &http.Client{Transport: rt}, Token: func() string { return "tok" }})

		var out map[string]any
		if err := gw.Do(context.Background(), http.MethodGet, "/me", nil, &out); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := newTestGateway(t, srv.URL, "tok").Do(ctx, http.MethodGet, "/me", nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCollectPages(t *testing.T) {
	pages := map[string]*Page[int]{
		"p1": {Items: []int{1, 2}, Next: "p2"},
		"p2": {Items: []int{3}, Next: "p3"},
		"p3": {Items: []int{4}},
	}
	fetch := func(ctx context.Context, url string) (*Page[int], error) {
		return pages[url], nil
	}

	t.Run("follows next links", func(t *testing.T) {
		got, err := CollectPages(context.Background(), "p1", PageLimits{}, fetch)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 4 || got[3] != 4 {
			t.Errorf("CollectPages() = %v", got)
		}
	})

	limits := []struct {
		name   string
		limits PageLimits
		want   []int
	}{
		{name: "page limit truncates", limits: PageLimits{MaxPages: 2}, want: []int{1, 2, 3}},
		{name: "item limit at a page boundary", limits: PageLimits{MaxItems: 3}, want: []int{1, 2, 3}},
		{name: "item limit inside a page", limits: PageLimits{MaxItems: 1}, want: []int{1}},
		{name: "limit equal to the total", limits: PageLimits{MaxItems: 4, MaxPages: 3}, want: []int{1, 2, 3, 4}},
	}
	for _, tt := range limits {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.limits.Logger = shared.NewLogger(&buf)
			got, err := CollectPages(context.Background(), "p1", tt.limits, fetch)
			if err != nil {
				t.Fatalf("CollectPages() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("CollectPages() = %v, want %v", got, tt.want)
			}
			truncated := len(tt.want) < 4
			if strings.Contains(buf.String(), "pagination truncated") != truncated {
				t.Errorf("truncation warning = %q, want logged: %v", buf.String(), truncated)
			}
		})
	}

	t.Run("repeated link", func(t *testing.T) {
		loop := func(ctx context.Context, url string) (*Page[int], error) {
			return &Page[int]{Items: []int{1}, Next: "same"}, nil
		}
		_, err := CollectPages(context.Background(), "same", PageLimits{}, loop)
		if !errors.Is(err, shared.ErrPaginationLimit) {
			t.Errorf("expected ErrPaginationLimit, got %v", err)
		}
	})

	t.Run("fetch error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		failing := func(ctx context.Context, url string) (*Page[int], error) {
			if url == "p2" {
				return nil, boom
			}
			return pages[url], nil
		}
		got, err := CollectPages(context.Background(), "p1", PageLimits{}, failing)
		if !errors.Is(err, boom) || got != nil {
			t.Errorf("CollectPages() = %v, %v", got, err)
		}
	})

	t.Run("empty first link", func(t *testing.T) {
		got, err := CollectPages(context.Background(), "", PageLimits{}, fetch)
		if err != nil || len(got) != 0 {
			t.Errorf("CollectPages(\"\") = %v, %v", got, err)
		}
	})
}
