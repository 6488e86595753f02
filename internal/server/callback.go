package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/go-chi/chi/v5"
)

// RedirectTarget completes a login from redirect query parameters.
type RedirectTarget interface {
	HandleRedirect(ctx context.Context, query url.Values) (models.Session, error)
}

// CallbackResult is the outcome of the redirect.
type CallbackResult struct {
	Session models.Session
	Err     error
}

// CallbackHandler serves the OAuth redirect URI.
type CallbackHandler struct {
	target  RedirectTarget
	path    string
	logger  *log.Logger
	results chan CallbackResult

	mu   sync.Mutex
	done bool
}

// NewCallbackHandler serves path (usually "/callback") and forwards redirects to target.
func NewCallbackHandler(target RedirectTarget, path string, logger *log.Logger) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &CallbackHandler{target: target, path: path, logger: logger, results: make(chan CallbackResult, 1)}
}

// CallbackPath extracts the path component of a redirect URI.
func CallbackPath(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidConfig, redirectURI)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

func (h *CallbackHandler) Mount(r chi.Router) {
	r.Get(h.path, h.ServeHTTP)
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.mu.Unlock()

	s, err := h.target.HandleRedirect(r.Context(), r.URL.Query())
	if errors.Is(err, shared.ErrInvalidState) {
		h.logger.Warn("rejected redirect with unknown state")
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	first := !h.done
	h.done = true
	h.mu.Unlock()
	if first {
		h.results <- CallbackResult{Session: s, Err: err}
		close(h.results)
	}

	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		resultPage.Execute(w, page{Title: "Authorization Failed", Message: "Return to the terminal for details.", OK: false})
		return
	}

	name := ""
	if s.User != nil {
		name = s.User.Name()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	resultPage.Execute(w, page{
		Title:   "Authorization Successful",
		Message: "Signed in as " + name + ". You can close this window and return to the terminal.",
		OK:      true,
	})
}

// Result delivers exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

// Wait blocks until the redirect arrives or ctx is done.
func (h *CallbackHandler) Wait(ctx context.Context) (models.Session, error) {
	select {
	case res := <-h.results:
		return res.Session, res.Err
	case <-ctx.Done():
		return models.Session{}, fmt.Errorf("%w: waiting for authorization: %w", shared.ErrTimeout, ctx.Err())
	}
}

type page struct {
	Title   string
	Message string
	OK      bool
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; color: {{if .OK}}#1DB954{{else}}#E22134{{end}}; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))
