package library

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Source is the subset of the catalog API the aggregator reads.
type Source interface {
	UserPlaylists(ctx context.Context, userID string, limit int) ([]models.Playlist, error)
	SavedTracksPage(ctx context.Context, pageURL string) (*services.Page[models.Track], error)
	SavedShows(ctx context.Context, limit int) ([]models.Show, error)
	SavedAlbums(ctx context.Context, limit int) ([]models.Album, error)
	FollowedArtists(ctx context.Context, limit int) ([]models.Artist, error)
}

// listLimit is the page size for the single-page categories.
const listLimit = 50

// Aggregator owns the library snapshot.
type Aggregator struct {
	src    Source
	limits services.PageLimits
	logger *log.Logger

	mu      sync.RWMutex
	items   []models.LibraryItem
	liked   []models.Track
	err     error
	loading bool
	seq     uint64
	closed  bool

	observers shared.Observers[[]models.LibraryItem]
}

// New creates an empty aggregator. Zero limits use the [services] defaults.
func New(src Source, limits services.PageLimits, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	if limits.Logger == nil {
		limits.Logger = logger
	}
	return &Aggregator{src: src, limits: limits, logger: logger}
}

// Subscribe registers fn to receive the item list after every change.
func (a *Aggregator) Subscribe(fn func([]models.LibraryItem)) func() {
	return a.observers.Subscribe(fn)
}

func (a *Aggregator) publish() {
	a.observers.Notify(a.Items())
}

// Fetch reloads the whole library.
//
// Sub-fetches run concurrently; the first failure cancels the rest and the previous snapshot is kept.
// A fetch overtaken by a newer one, a [Aggregator.Reset] or [Aggregator.Close] returns
// [shared.ErrSuperseded] and changes nothing. progress may be nil.
func (a *Aggregator) Fetch(ctx context.Context, progress chan<- Progress) ([]models.LibraryItem, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, shared.ErrClosed
	}
	a.seq++
	seq := a.seq
	a.loading = true
	a.mu.Unlock()

	var (
		playlists []models.Playlist
		liked     []models.Track
		shows     []models.Show
		albums    []models.Album
		artists   []models.Artist
		done      atomic.Int32
	)
	finished := func(p Phase, n int) {
		sendProgress(progress, categoryUpdate(p, int(done.Add(1)), n))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if playlists, err = a.src.UserPlaylists(gctx, "", listLimit); err != nil {
			return fmt.Errorf("failed to fetch playlists: %w", err)
		}
		finished(FetchPlaylists, len(playlists))
		return nil
	})
	g.Go(func() error {
		var err error
		if liked, err = services.CollectPages(gctx, services.SavedTracksPath, a.limits, a.src.SavedTracksPage); err != nil {
			return fmt.Errorf("failed to fetch liked tracks: %w", err)
		}
		finished(FetchLiked, len(liked))
		return nil
	})
	g.Go(func() error {
		var err error
		if shows, err = a.src.SavedShows(gctx, listLimit); err != nil {
			return fmt.Errorf("failed to fetch podcasts: %w", err)
		}
		finished(FetchShows, len(shows))
		return nil
	})
	g.Go(func() error {
		var err error
		if albums, err = a.src.SavedAlbums(gctx, listLimit); err != nil {
			return fmt.Errorf("failed to fetch albums: %w", err)
		}
		finished(FetchAlbums, len(albums))
		return nil
	})
	g.Go(func() error {
		var err error
		if artists, err = a.src.FollowedArtists(gctx, listLimit); err != nil {
			return fmt.Errorf("failed to fetch artists: %w", err)
		}
		finished(FetchArtists, len(artists))
		return nil
	})
	err := g.Wait()

	a.mu.Lock()
	if a.closed || seq != a.seq {
		a.mu.Unlock()
		a.logger.Debug("dropping stale library fetch", "seq", seq)
		return nil, shared.ErrSuperseded
	}
	a.loading = false
	if err != nil {
		a.err = err
		a.mu.Unlock()
		a.logger.Error("library fetch failed", "error", err)
		a.publish()
		return nil, err
	}
	items := Build(playlists, liked, shows, albums, artists)
	a.items = items
	a.liked = liked
	a.err = nil
	a.mu.Unlock()

	a.logger.Info("library loaded", "items", len(items), "liked", len(liked))
	sendProgress(progress, doneUpdate(len(items)))
	a.publish()
	return clone(items), nil
}

// Build merges the categories into display order: Liked Songs, playlists, podcasts, albums, artists.
func Build(playlists []models.Playlist, liked []models.Track, shows []models.Show, albums []models.Album, artists []models.Artist) []models.LibraryItem {
	items := make([]models.LibraryItem, 0, 1+len(playlists)+len(shows)+len(albums)+len(artists))

	likedItem := models.LibraryItem{
		ID:         models.LikedSongsID,
		Name:       models.LikedSongsName,
		OwnerLabel: models.LikedSongsOwner,
		Kind:       models.KindLikedSongs,
	}
	if len(liked) > 0 {
		likedItem.ImageURL = liked[0].ImageURL()
	}
	items = append(items, likedItem)

	for _, p := range playlists {
		if p.ID == models.LikedSongsID {
			continue
		}
		items = append(items, models.LibraryItem{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL, OwnerLabel: p.Owner, Kind: models.KindPlaylist})
	}
	for _, s := range shows {
		items = append(items, models.LibraryItem{ID: s.ID, Name: s.Name, ImageURL: s.ImageURL, OwnerLabel: s.Publisher, Kind: models.KindPodcast})
	}
	for _, al := range albums {
		items = append(items, models.LibraryItem{ID: al.ID, Name: al.Name, ImageURL: al.ImageURL, OwnerLabel: models.JoinArtists(al.Artists), Kind: models.KindAlbum})
	}
	for _, ar := range artists {
		items = append(items, models.LibraryItem{ID: ar.ID, Name: ar.Name, ImageURL: ar.ImageURL, OwnerLabel: "Artist", Kind: models.KindArtist})
	}
	return items
}

// Items returns a copy of the current snapshot.
func (a *Aggregator) Items() []models.LibraryItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return clone(a.items)
}

// LikedTracks returns the liked tracks from the last successful fetch.
func (a *Aggregator) LikedTracks() []models.Track {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Track(nil), a.liked...)
}

// Filter returns the items of kind. Playlists include the Liked Songs entry.
func (a *Aggregator) Filter(kind models.ItemKind) []models.LibraryItem {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []models.LibraryItem
	for _, it := range a.items {
		if it.Kind == kind || (kind == models.KindPlaylist && it.Kind == models.KindLikedSongs) {
			out = append(out, it)
		}
	}
	return out
}

// Err returns the last fetch error, cleared by the next successful fetch.
func (a *Aggregator) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Loading reports whether a fetch is in flight.
func (a *Aggregator) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Reset drops all state and invalidates in-flight fetches.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.seq++
	a.items = nil
	a.liked = nil
	a.err = nil
	a.loading = false
	a.mu.Unlock()
	a.publish()
}

// Close disposes the aggregator. Later fetches fail with [shared.ErrClosed].
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.loading = false
	a.mu.Unlock()
}

func clone(items []models.LibraryItem) []models.LibraryItem {
	if items == nil {
		return nil
	}
	return append([]models.LibraryItem(nil), items...)
}
