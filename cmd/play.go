package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/playback"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play starts a track preview and blocks until playback ends or the command is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "track")
	if err != nil {
		return err
	}
	a, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	track, err := a.Spotify.Track(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up track: %w", err)
	}
	if err := a.StartPlayback(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	var started atomic.Bool
	var finish sync.Once
	unsubscribe := a.Playback.Subscribe(func(s models.PlaybackState) {
		if s.CurrentTrack != nil {
			started.Store(true)
			return
		}
		if started.Load() {
			finish.Do(func() { close(done) })
		}
	})
	defer unsubscribe()

	if err := a.Playback.Play(ctx, *track); err != nil {
		if errors.Is(err, playback.ErrPlaybackUnavailable) {
			return fmt.Errorf("no preview available for %s", track.Name)
		}
		return err
	}
	r.writePlain("▶ %s - %s\n", track.ArtistNames(), track.Name)

	if !playback.NativeAudio {
		r.logger.Warn("built without mpv; no audio is produced", "hint", "rebuild with -tags mpv")
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		a.Playback.Stop(context.Background())
	}
	return nil
}

// TUI launches the interactive interface. Logs go to the configured file since the UI owns the terminal.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, f, err := shared.NewFileLogger(shared.ExpandPath(config.Log.File))
	if err != nil {
		return err
	}
	defer f.Close()
	if r.appOpts.Logger == nil {
		r.appOpts.Logger = logger
	}
	r.SetLogger(logger)

	a, err := r.ensureApp(cmd)
	if err != nil {
		return err
	}
	if err := a.StartPlayback(ctx); err != nil {
		logger.Warn("playback unavailable", "error", err)
	}

	m := ui.NewModel(ctx, a)
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
