package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search runs one immediate combined search and prints tracks then artists.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	results, err := a.Search.SearchNow(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}
	if len(results) == 0 {
		return r.writePlain("No results for %q\n", query)
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q", query))
	for i, res := range results {
		switch res.Kind {
		case models.ResultTrack:
			r.writePlain("%2d. [track]  %s - %s (%s)\n", i+1, res.Track.ArtistNames(), res.Track.Name, res.Track.ID)
		case models.ResultArtist:
			r.writePlain("%2d. [artist] %s (%s)\n", i+1, res.Artist.Name, res.Artist.ID)
		}
	}
	return nil
}

// Artist prints an artist page.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	detail, err := a.Browse.Artist(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	r.writePlainHeader(detail.Artist.Name)
	if len(detail.Artist.Genres) > 0 {
		r.writePlain("Genres:    %s\n", strings.Join(detail.Artist.Genres, ", "))
	}
	r.writePlain("Followers: %d\n", detail.Artist.Followers)

	r.writePlainln("Top tracks")
	for i, t := range detail.TopTracks {
		r.writePlain("%2d. %s [%s]\n", i+1, t.Name, formatter.FormatDuration(t.DurationMS))
	}
	if len(detail.Albums) > 0 {
		r.writePlainln("Albums")
		for _, al := range detail.Albums {
			r.writePlain("  %s (%s)\n", al.Name, al.ReleaseDate)
		}
	}
	if len(detail.Related) > 0 {
		names := make([]string, 0, len(detail.Related))
		for _, ra := range detail.Related {
			names = append(names, ra.Name)
		}
		r.writePlainln("Fans also like: %s", strings.Join(names, ", "))
	}
	return nil
}

// Media prints a show with its episodes, or an album with its tracks.
func (r *Runner) Media(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	m, err := a.Browse.Media(ctx, id)
	if err != nil {
		return err
	}
	if format == formatter.JSON {
		return r.writeJSON(m, true)
	}
	return formatter.WriteTracks(r.output, format, m.Title(), m.Tracks())
}

// BrowseNewReleases lists new album releases.
func (r *Runner) BrowseNewReleases(ctx context.Context, cmd *cli.Command) error {
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	albums, err := a.Browse.NewReleases(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(albums, true)
	}

	r.writePlainHeader("New Releases")
	for i, al := range albums {
		r.writePlain("%2d. %s - %s (%s)\n", i+1, models.JoinArtists(al.Artists), al.Name, al.ID)
	}
	return nil
}

// BrowseTop lists the user's top tracks or artists.
func (r *Runner) BrowseTop(ctx context.Context, cmd *cli.Command) error {
	kind := strings.ToLower(cmd.String("type"))
	if kind != "tracks" && kind != "artists" {
		return fmt.Errorf("%w: --type must be tracks or artists", shared.ErrInvalidArgument)
	}
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}
	limit := int(cmd.Int("limit"))

	if kind == "artists" {
		artists, err := a.Browse.TopArtists(ctx, limit)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(artists, true)
		}
		r.writePlainHeader("Top Artists")
		for i, ar := range artists {
			r.writePlain("%2d. %s (%s)\n", i+1, ar.Name, ar.ID)
		}
		return nil
	}

	tracks, err := a.Browse.TopTracks(ctx, limit)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	return formatter.WriteTracks(r.output, formatter.Text, "Top Tracks", tracks)
}
