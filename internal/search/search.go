// Package search debounces typed queries into single-flight catalog searches.
package search

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultLimit    = 10
	MaxRecent       = 10
)

// Searcher runs one combined track and artist query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResults, error)
}

type Opts struct {
	Debounce time.Duration
	Limit    int
	Logger   *log.Logger
}

// State is a snapshot published to subscribers.
type State struct {
	Query   string
	Results []models.SearchResult
	Recent  []string
	Loading bool
	Err     error
}

// Coordinator turns keystrokes into searches. Only the newest issued search may publish results.
type Coordinator struct {
	searcher Searcher
	debounce time.Duration
	limit    int
	logger   *log.Logger

	mu      sync.Mutex
	query   string
	results []models.SearchResult
	recent  []string
	err     error
	loading bool
	timer   *time.Timer
	pending uint64 // bumped by every SetQuery; a timer fires only if it still matches
	seq     uint64 // bumped by every issued search
	cancel  context.CancelFunc
	closed  bool

	observers shared.Observers[State]
}

func New(searcher Searcher, opts Opts) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	return &Coordinator{searcher: searcher, debounce: opts.Debounce, limit: opts.Limit, logger: opts.Logger}
}

func (c *Coordinator) Subscribe(fn func(State)) func() {
	return c.observers.Subscribe(fn)
}

func (c *Coordinator) publish() {
	c.observers.Notify(c.State())
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Query:   c.query,
		Results: append([]models.SearchResult(nil), c.results...),
		Recent:  append([]string(nil), c.recent...),
		Loading: c.loading,
		Err:     c.err,
	}
}

// stopLocked cancels the pending timer and any in-flight search. Caller holds mu.
func (c *Coordinator) stopLocked() {
	c.pending++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// SetQuery records text and schedules a search after the debounce interval, replacing any
// pending one. Blank text clears the results immediately.
func (c *Coordinator) SetQuery(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.query = text
	q := strings.TrimSpace(text)

	if q == "" {
		c.stopLocked()
		c.seq++
		c.results = nil
		c.err = nil
		c.loading = false
		c.mu.Unlock()
		c.publish()
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.pending++
	token := c.pending
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(token, q) })
	c.mu.Unlock()
}

func (c *Coordinator) fire(token uint64, q string) {
	c.mu.Lock()
	if c.closed || token != c.pending {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ctx, seq := c.issueLocked(context.Background(), q)
	c.mu.Unlock()

	c.publish()
	c.run(ctx, seq, q)
}

// issueLocked supersedes the in-flight search and starts a new one. Caller holds mu.
func (c *Coordinator) issueLocked(parent context.Context, q string) (context.Context, uint64) {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.seq++
	c.loading = true
	c.rememberLocked(q)
	return ctx, c.seq
}

func (c *Coordinator) run(ctx context.Context, seq uint64, q string) ([]models.SearchResult, error) {
	res, err := c.searcher.Search(ctx, q, c.limit)

	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search", "query", q, "seq", seq)
		return nil, shared.ErrSuperseded
	}
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.err = err
		c.mu.Unlock()
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("search failed", "query", q, "error", err)
		}
		c.publish()
		return nil, err
	}
	c.results = res.Ranked()
	c.err = nil
	out := append([]models.SearchResult(nil), c.results...)
	c.mu.Unlock()

	c.publish()
	return out, nil
}

// SearchNow runs text immediately, superseding any pending or in-flight search.
func (c *Coordinator) SearchNow(ctx context.Context, text string) ([]models.SearchResult, error) {
	q := strings.TrimSpace(text)
	if q == "" {
		return nil, shared.ErrMissingArgument
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, shared.ErrClosed
	}
	c.stopLocked()
	c.query = text
	sctx, seq := c.issueLocked(ctx, q)
	c.mu.Unlock()

	c.publish()
	return c.run(sctx, seq, q)
}

// rememberLocked inserts q at the front of the recent list, moving it if already present.
func (c *Coordinator) rememberLocked(q string) {
	recent := make([]string, 0, MaxRecent)
	recent = append(recent, q)
	for _, r := range c.recent {
		if r != q && len(recent) < MaxRecent {
			recent = append(recent, r)
		}
	}
	c.recent = recent
}

func (c *Coordinator) Results() []models.SearchResult {
	return c.State().Results
}

func (c *Coordinator) Recent() []string {
	return c.State().Recent
}

func (c *Coordinator) Query() string {
	return c.State().Query
}

func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Loading reports whether a search has been issued and not answered.
func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Coordinator) ClearRecent() {
	c.mu.Lock()
	c.recent = nil
	c.mu.Unlock()
	c.publish()
}

// RemoveRecent deletes term from the recent list.
func (c *Coordinator) RemoveRecent(term string) {
	c.mu.Lock()
	kept := c.recent[:0:0]
	for _, r := range c.recent {
		if r != term {
			kept = append(kept, r)
		}
	}
	c.recent = kept
	c.mu.Unlock()
	c.publish()
}

// Reset cancels pending work and clears the query, results and recent history.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.stopLocked()
	c.seq++
	c.query = ""
	c.results = nil
	c.recent = nil
	c.err = nil
	c.loading = false
	c.mu.Unlock()
	c.publish()
}

// Close cancels pending work. Later calls to SetQuery are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.closed = true
	c.loading = false
	c.mu.Unlock()
}
