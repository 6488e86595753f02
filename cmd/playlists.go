package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/encore/internal/app"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// loadPlaylists restores the session and fetches the playlist list so remote keys resolve.
func (r *Runner) loadPlaylists(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if _, err := a.Playlists.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	return a, nil
}

func remoteKey(id string) models.PlaylistKey {
	return models.PlaylistKey{ID: id, Origin: models.OriginRemote}
}

// PlaylistsList prints the user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}
	return formatter.WritePlaylists(r.output, format, a.Playlists.Playlists())
}

// PlaylistsCreate creates a remote playlist owned by the signed-in user.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	p, err := a.Playlists.Create(ctx, name, false)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", p.Name, p.ID)
}

// PlaylistsAdd appends a catalog track to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	trackID, err := requireArg(cmd, "track")
	if err != nil {
		return err
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}

	track, err := a.Spotify.Track(ctx, trackID)
	if err != nil {
		return fmt.Errorf("failed to look up track: %w", err)
	}
	if err := a.Playlists.Add(ctx, remoteKey(id), *track); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s - %s\n", track.ArtistNames(), track.Name)
}

// PlaylistsRemove removes every occurrence of a track from a playlist.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	trackID, err := requireArg(cmd, "track")
	if err != nil {
		return err
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}

	track := models.Track{ID: trackID}
	if err := a.Playlists.RemoveTrack(ctx, remoteKey(id), track); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", trackID)
}

// PlaylistsRename sets a playlist's name and, when given, its description.
func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}

	key := remoteKey(id)
	description := cmd.String("description")
	if description == "" {
		if p, ok := a.Playlists.Get(key); ok {
			description = p.Description
		}
	}
	if err := a.Playlists.Edit(ctx, key, name, description); err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %s to %q\n", id, name)
}

// PlaylistsDelete unfollows a playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}
	if err := a.Playlists.Delete(ctx, remoteKey(id)); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// PlaylistsTracks prints or exports a playlist's tracks.
func (r *Runner) PlaylistsTracks(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	id, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}

	key := remoteKey(id)
	p, ok := a.Playlists.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	tracks, err := a.Playlists.Tracks(ctx, key)
	if err != nil {
		return err
	}

	out := r.output
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
		r.logger.Info("exporting playlist", "playlist", p.Name, "path", path, "format", format)
	}
	return formatter.WriteTracks(out, format, p.Name, tracks)
}

// PlaylistsExport writes the given playlists, or all of them with --all, to a directory.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ids := cmd.Args().Slice()
	if len(ids) == 0 && !cmd.Bool("all") {
		return fmt.Errorf("%w: pass playlist ids or --all", shared.ErrMissingArgument)
	}
	a, err := r.loadPlaylists(ctx, cmd)
	if err != nil {
		return err
	}

	var keys []models.PlaylistKey
	if cmd.Bool("all") {
		for _, p := range a.Playlists.Playlists() {
			keys = append(keys, p.Key())
		}
	} else {
		for _, id := range ids {
			keys = append(keys, remoteKey(id))
		}
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	exporter := tasks.NewExporter(a.Playlists, shared.WithLogger(r.logger, "component", "export"))
	result, err := exporter.Export(ctx, progressCh, keys, tasks.ExportOpts{
		Format:    format,
		OutputDir: cmd.String("dir"),
		Workers:   int(cmd.Int("workers")),
		RateLimit: a.Config.API.RequestsPerSecond,
	})
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported:  %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Manifest:  %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d playlists failed to export", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}
