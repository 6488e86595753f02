package services

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
)

// Default pagination guards.
const (
	DefaultMaxPages = 200
	DefaultMaxItems = 10000
)

// Page is one page of a paginated listing. Next is the absolute URL of the following page, or "".
type Page[T any] struct {
	Items []T
	Next  string
	Total int
}

// PageLimits bounds a paginated walk. Logger receives a warning when a walk is truncated.
type PageLimits struct {
	MaxPages int
	MaxItems int
	Logger   *log.Logger
}

func (l PageLimits) withDefaults() PageLimits {
	if l.MaxPages <= 0 {
		l.MaxPages = DefaultMaxPages
	}
	if l.MaxItems <= 0 {
		l.MaxItems = DefaultMaxItems
	}
	if l.Logger == nil {
		l.Logger = shared.NewLogger(io.Discard)
	}
	return l
}

// PageFunc fetches the page at url.
type PageFunc[T any] func(ctx context.Context, url string) (*Page[T], error)

// CollectPages follows Next links from first until exhausted.
//
// Reaching the page or item limit truncates the walk: the items gathered so far (at most MaxItems)
// are returned and a warning is logged. A repeated link fails with [shared.ErrPaginationLimit]
// and returns no partial result.
func CollectPages[T any](ctx context.Context, first string, limits PageLimits, fetch PageFunc[T]) ([]T, error) {
	limits = limits.withDefaults()

	var (
		items []T
		seen  = map[string]struct{}{}
		next  = first
	)
	for pages := 0; next != ""; pages++ {
		if pages >= limits.MaxPages {
			limits.Logger.Warn("pagination truncated", "reason", "page limit", "pages", pages, "items", len(items))
			return items, nil
		}
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("%w: repeated page link %s", shared.ErrPaginationLimit, next)
		}
		seen[next] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, next)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if len(items) > limits.MaxItems || (len(items) == limits.MaxItems && page.Next != "") {
			limits.Logger.Warn("pagination truncated", "reason", "item limit", "pages", pages+1, "items", limits.MaxItems)
			return items[:min(len(items), limits.MaxItems)], nil
		}
		next = page.Next
	}
	return items, nil
}
