package playback

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Bridge owns the playback state and issues commands to the [Engine].
type Bridge struct {
	engine Engine
	logger *log.Logger

	mu    sync.Mutex // serializes engine commands with the state they produce
	ready bool
	state models.PlaybackState

	observers shared.Observers[models.PlaybackState]
}

func NewBridge(engine Engine, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Bridge{engine: engine, logger: logger}
}

// Init sets up the engine. Until it succeeds every command fails with [ErrEngineNotReady].
func (b *Bridge) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return nil
	}
	if err := b.engine.Setup(ctx); err != nil {
		b.logger.Error("audio engine setup failed", "error", err)
		return fmt.Errorf("%w: %w", ErrEngineNotReady, err)
	}
	b.ready = true
	return nil
}

// Ready reports whether [Bridge.Init] succeeded.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *Bridge) Subscribe(fn func(models.PlaybackState)) func() {
	return b.observers.Subscribe(fn)
}

// State returns a copy of the mirrored state.
func (b *Bridge) State() models.PlaybackState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Bridge) snapshotLocked() models.PlaybackState {
	s := b.state
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		s.CurrentTrack = &t
	}
	return s
}

// setLocked replaces the state and returns the snapshot to publish. Caller holds mu.
func (b *Bridge) setLocked(s models.PlaybackState) models.PlaybackState {
	b.state = s
	return b.snapshotLocked()
}

// Play replaces the queue with track and starts it.
//
// A track without a preview URL fails with [ErrPlaybackUnavailable] and leaves everything untouched.
func (b *Bridge) Play(ctx context.Context, track models.Track) error {
	if track.PreviewURL == "" {
		return fmt.Errorf("%w: %s", ErrPlaybackUnavailable, track.Name)
	}

	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		return ErrEngineNotReady
	}

	item := QueueItem{
		ID:       track.ID,
		URL:      track.PreviewURL,
		Title:    track.Name,
		Artist:   track.ArtistNames(),
		Duration: track.DurationMS,
	}
	err := b.engine.Reset(ctx)
	if err == nil {
		err = b.engine.Load(ctx, item)
	}
	if err == nil {
		err = b.engine.Play(ctx)
	}
	if err != nil {
		snap := b.setLocked(models.PlaybackState{})
		b.mu.Unlock()
		b.logger.Error("failed to start playback", "track", track.ID, "error", err)
		b.observers.Notify(snap)
		return fmt.Errorf("failed to start playback: %w", err)
	}

	snap := b.setLocked(models.PlaybackState{CurrentTrack: &track, IsPlaying: true})
	b.mu.Unlock()

	b.logger.Debug("playing", "track", track.ID)
	b.observers.Notify(snap)
	return nil
}

// Toggle pauses when playing and resumes when paused or ready. With nothing loaded it does nothing.
func (b *Bridge) Toggle(ctx context.Context) error {
	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		return ErrEngineNotReady
	}

	st, err := b.engine.State(ctx)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("failed to read engine state: %w", err)
	}

	var playing bool
	switch st {
	case StatePlaying, StateBuffering:
		err = b.engine.Pause(ctx)
	case StatePaused, StateReady:
		if b.state.CurrentTrack == nil {
			b.mu.Unlock()
			return nil
		}
		err = b.engine.Play(ctx)
		playing = true
	default:
		b.mu.Unlock()
		return nil
	}
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("failed to toggle playback: %w", err)
	}

	next := b.state
	next.IsPlaying = playing
	snap := b.setLocked(next)
	b.mu.Unlock()
	b.observers.Notify(snap)
	return nil
}

// Stop halts the engine and clears the current track. A failing engine is logged and the state kept.
func (b *Bridge) Stop(ctx context.Context) {
	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		return
	}
	if err := b.engine.Stop(ctx); err != nil {
		b.mu.Unlock()
		b.logger.Warn("failed to stop playback", "error", err)
		return
	}
	snap := b.setLocked(models.PlaybackState{})
	b.mu.Unlock()
	b.observers.Notify(snap)
}

// Next skips forward in the engine queue.
func (b *Bridge) Next(ctx context.Context) error {
	return b.forward(ctx, "next", b.engine.SkipNext)
}

// Previous skips back in the engine queue.
func (b *Bridge) Previous(ctx context.Context) error {
	return b.forward(ctx, "previous", b.engine.SkipPrevious)
}

func (b *Bridge) forward(ctx context.Context, name string, fn func(context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return ErrEngineNotReady
	}
	if err := fn(ctx); err != nil {
		return fmt.Errorf("failed to skip %s: %w", name, err)
	}
	return nil
}

// Listen mirrors remote engine events into the state until ctx is done or the engine closes its event channel.
func (b *Bridge) Listen(ctx context.Context) {
	events := b.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.apply(ev)
		}
	}
}

func (b *Bridge) apply(ev RemoteEvent) {
	b.mu.Lock()
	next := b.state
	switch ev {
	case RemotePlay:
		if next.CurrentTrack == nil {
			b.mu.Unlock()
			return
		}
		next.IsPlaying = true
	case RemotePause:
		next.IsPlaying = false
	case RemoteStop:
		next = models.PlaybackState{}
	}
	snap := b.setLocked(next)
	b.mu.Unlock()

	b.logger.Debug("remote playback event", "event", ev)
	b.observers.Notify(snap)
}

// Reset clears the engine queue and the mirrored state, as on sign-out.
func (b *Bridge) Reset(ctx context.Context) {
	b.mu.Lock()
	if b.ready {
		if err := b.engine.Reset(ctx); err != nil {
			b.logger.Warn("failed to reset audio engine", "error", err)
		}
	}
	snap := b.setLocked(models.PlaybackState{})
	b.mu.Unlock()
	b.observers.Notify(snap)
}

// Close releases the engine.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = false
	return b.engine.Close()
}
