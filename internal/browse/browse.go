// Package browse loads catalog detail pages: artists, albums, shows and personalized lists.
package browse

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	artistAlbums = 20
	showEpisodes = 20
)

// Catalog is the read-only catalog surface browse pages use.
type Catalog interface {
	Artist(ctx context.Context, artistID string) (*models.Artist, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error)
	ArtistAlbums(ctx context.Context, artistID string, limit int) ([]models.Album, error)
	RelatedArtists(ctx context.Context, artistID string) ([]models.Artist, error)
	Album(ctx context.Context, albumID string) (*models.Album, error)
	Show(ctx context.Context, showID string) (*models.Show, error)
	ShowEpisodes(ctx context.Context, showID string, limit int) ([]models.Episode, error)
	NewReleases(ctx context.Context, limit int) ([]models.Album, error)
	TopTracks(ctx context.Context, limit int) ([]models.Track, error)
	TopArtists(ctx context.Context, limit int) ([]models.Artist, error)
}

// ArtistDetail is everything the artist page shows.
type ArtistDetail struct {
	Artist    models.Artist   `json:"artist"`
	TopTracks []models.Track  `json:"top_tracks"`
	Albums    []models.Album  `json:"albums"`
	Related   []models.Artist `json:"related"`
}

type MediaKind string

const (
	MediaShow  MediaKind = "show"
	MediaAlbum MediaKind = "album"
)

// Media is a show or an album; exactly one pointer is set.
type Media struct {
	Kind  MediaKind     `json:"kind"`
	Show  *models.Show  `json:"show,omitempty"`
	Album *models.Album `json:"album,omitempty"`
}

// Title returns the show or album name.
func (m Media) Title() string {
	switch {
	case m.Show != nil:
		return m.Show.Name
	case m.Album != nil:
		return m.Album.Name
	default:
		return ""
	}
}

// Tracks returns the playable entries: album tracks, or show episodes as tracks.
func (m Media) Tracks() []models.Track {
	switch {
	case m.Show != nil:
		out := make([]models.Track, 0, len(m.Show.Episodes))
		for _, e := range m.Show.Episodes {
			out = append(out, models.Track{
				ID:         e.ID,
				Name:       e.Name,
				PreviewURL: e.AudioURL,
				DurationMS: e.DurationMS,
				Album:      models.AlbumRef{ID: m.Show.ID, Name: m.Show.Name, ImageURLs: nonEmpty(e.ImageURL)},
				Artists:    []models.ArtistRef{{Name: m.Show.Publisher}},
			})
		}
		return out
	case m.Album != nil:
		return append([]models.Track(nil), m.Album.Tracks...)
	default:
		return nil
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

type Service struct {
	catalog Catalog
	logger  *log.Logger
}

func New(catalog Catalog, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Service{catalog: catalog, logger: logger}
}

// Artist loads the artist with top tracks, albums and related artists.
//
// Related artists are optional: the endpoint is unavailable to some applications, so a failure
// there yields an empty list.
func (s *Service) Artist(ctx context.Context, id string) (*ArtistDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	var detail ArtistDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.catalog.Artist(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch artist: %w", err)
		}
		detail.Artist = *a
		return nil
	})
	g.Go(func() error {
		tracks, err := s.catalog.ArtistTopTracks(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch top tracks: %w", err)
		}
		detail.TopTracks = tracks
		return nil
	})
	g.Go(func() error {
		albums, err := s.catalog.ArtistAlbums(gctx, id, artistAlbums)
		if err != nil {
			return fmt.Errorf("failed to fetch albums: %w", err)
		}
		detail.Albums = albums
		return nil
	})
	g.Go(func() error {
		related, err := s.catalog.RelatedArtists(gctx, id)
		if err != nil {
			s.logger.Warn("related artists unavailable", "artist", id, "error", err)
			detail.Related = []models.Artist{}
			return nil
		}
		detail.Related = related
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Media loads id as a show with its first episodes, falling back to an album when no such show exists.
func (s *Service) Media(ctx context.Context, id string) (*Media, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: media id", shared.ErrMissingArgument)
	}

	show, err := s.catalog.Show(ctx, id)
	if err == nil {
		episodes, err := s.catalog.ShowEpisodes(ctx, id, showEpisodes)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch episodes: %w", err)
		}
		show.Episodes = episodes
		return &Media{Kind: MediaShow, Show: show}, nil
	}
	if code := services.StatusCode(err); code != http.StatusNotFound && code != http.StatusBadRequest {
		return nil, fmt.Errorf("failed to fetch show: %w", err)
	}

	s.logger.Debug("not a show, trying album", "id", id)
	album, err := s.catalog.Album(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch album: %w", err)
	}
	return &Media{Kind: MediaAlbum, Album: album}, nil
}

func (s *Service) NewReleases(ctx context.Context, limit int) ([]models.Album, error) {
	return s.catalog.NewReleases(ctx, limit)
}

// TopTracks returns the user's most played tracks.
func (s *Service) TopTracks(ctx context.Context, limit int) ([]models.Track, error) {
	return s.catalog.TopTracks(ctx, limit)
}

// TopArtists returns the user's most played artists.
func (s *Service) TopArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	return s.catalog.TopArtists(ctx, limit)
}
