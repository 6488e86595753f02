package playback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	tu "github.com/desertthunder/encore/internal/testing"
)

var playable = models.Track{
	ID:         "t1",
	Name:       "Creep",
	PreviewURL: "https://p.scdn.co/mp3-preview/t1",
	DurationMS: 30000,
	Artists:    []models.ArtistRef{{ID: "a1", Name: "Radiohead"}},
}

func newReadyBridge(t *testing.T) (*Bridge, *MemoryEngine) {
	t.Helper()
	engine := NewMemoryEngine()
	b := NewBridge(engine, nil)
	if err := b.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return b, engine
}

func TestPlay(t *testing.T) {
	ctx := context.Background()

	t.Run("loads one item and plays", func(t *testing.T) {
		b, engine := newReadyBridge(t)

		if err := b.Play(ctx, playable); err != nil {
			t.Fatalf("Play() error = %v", err)
		}
		s := b.State()
		if s.CurrentTrack == nil || s.CurrentTrack.ID != "t1" || !s.IsPlaying {
			t.Errorf("unexpected state %+v", s)
		}
		queue := engine.Queue()
		if len(queue) != 1 || queue[0].URL != playable.PreviewURL || queue[0].Artist != "Radiohead" {
			t.Errorf("queue = %+v", queue)
		}
		if got := fmt.Sprint(engine.Calls()); got != "[setup reset load play]" {
			t.Errorf("calls = %s", got)
		}
	})

	t.Run("missing preview has no side effects", func(t *testing.T) {
		b, engine := newReadyBridge(t)
		b.Play(ctx, playable)
		before := len(engine.Calls())

		silent := playable
		silent.ID, silent.PreviewURL = "t2", ""
		if err := b.Play(ctx, silent); !errors.Is(err, ErrPlaybackUnavailable) {
			t.Fatalf("expected ErrPlaybackUnavailable, got %v", err)
		}
		if len(engine.Calls()) != before {
			t.Error("engine was called")
		}
		if s := b.State(); s.CurrentTrack.ID != "t1" || !s.IsPlaying {
			t.Errorf("state changed: %+v", s)
		}
	})

	t.Run("engine not ready", func(t *testing.T) {
		b := NewBridge(NewMemoryEngine(), nil)
		if err := b.Play(ctx, playable); !errors.Is(err, ErrEngineNotReady) {
			t.Errorf("expected ErrEngineNotReady, got %v", err)
		}
		if err := b.Toggle(ctx); !errors.Is(err, ErrEngineNotReady) {
			t.Errorf("expected ErrEngineNotReady, got %v", err)
		}
	})

	t.Run("setup failure", func(t *testing.T) {
		engine := NewMemoryEngine()
		engine.FailOn("setup", errors.New("no audio device"))
		b := NewBridge(engine, nil)

		if err := b.Init(ctx); !errors.Is(err, ErrEngineNotReady) || b.Ready() {
			t.Errorf("Init() error = %v, ready = %v", err, b.Ready())
		}
	})

	t.Run("engine failure clears state", func(t *testing.T) {
		b, engine := newReadyBridge(t)
		engine.FailOn("load", errors.New("bad url"))

		if err := b.Play(ctx, playable); err == nil {
			t.Fatal("expected error")
		}
		if s := b.State(); s.CurrentTrack != nil || s.IsPlaying {
			t.Errorf("unexpected state %+v", s)
		}
	})

	t.Run("state snapshot is a copy", func(t *testing.T) {
		b, _ := newReadyBridge(t)
		b.Play(ctx, playable)
		s := b.State()
		s.CurrentTrack.Name = "mutated"
		if b.State().CurrentTrack.Name != "Creep" {
			t.Error("State() exposed internal track")
		}
	})
}

func TestToggleAndStop(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle pauses and resumes", func(t *testing.T) {
		b, _ := newReadyBridge(t)
		b.Play(ctx, playable)

		if err := b.Toggle(ctx); err != nil {
			t.Fatal(err)
		}
		if b.State().IsPlaying {
			t.Error("expected paused")
		}
		if err := b.Toggle(ctx); err != nil {
			t.Fatal(err)
		}
		if !b.State().IsPlaying {
			t.Error("expected playing")
		}
	})

	t.Run("toggle with nothing loaded", func(t *testing.T) {
		b, engine := newReadyBridge(t)
		if err := b.Toggle(ctx); err != nil {
			t.Fatal(err)
		}
		if b.State().IsPlaying {
			t.Error("nothing should play")
		}
		for _, c := range engine.Calls() {
			if c == "play" {
				t.Error("engine play called with empty queue")
			}
		}
	})

	t.Run("stop clears current track", func(t *testing.T) {
		b, _ := newReadyBridge(t)
		b.Play(ctx, playable)
		b.Stop(ctx)
		if s := b.State(); s.CurrentTrack != nil || s.IsPlaying {
			t.Errorf("unexpected state %+v", s)
		}
	})

	t.Run("stop failure is logged and state kept", func(t *testing.T) {
		b, engine := newReadyBridge(t)
		b.Play(ctx, playable)
		engine.FailOn("stop", errors.New("device busy"))

		b.Stop(ctx)
		if b.State().CurrentTrack == nil {
			t.Error("state cleared despite failure")
		}
	})

	t.Run("next and previous forward to engine", func(t *testing.T) {
		b, engine := newReadyBridge(t)
		if err := b.Next(ctx); err != nil {
			t.Fatal(err)
		}
		if err := b.Previous(ctx); err != nil {
			t.Fatal(err)
		}
		engine.FailOn("next", errors.New("end of queue"))
		if err := b.Next(ctx); err == nil {
			t.Error("expected error")
		}
		calls := engine.Calls()
		if calls[len(calls)-1] != "next" || calls[len(calls)-2] != "previous" {
			t.Errorf("calls = %v", calls)
		}
	})
}

func TestListen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, engine := newReadyBridge(t)
	states := make(chan models.PlaybackState, 8)
	b.Subscribe(func(s models.PlaybackState) { states <- s })

	b.Play(ctx, playable)
	<-states

	done := make(chan struct{})
	go func() {
		b.Listen(ctx)
		close(done)
	}()

	engine.Emit(RemotePause)
	tu.Eventually(t, time.Second, func() bool { return !b.State().IsPlaying }, "remote pause not mirrored")

	engine.Emit(RemotePlay)
	tu.Eventually(t, time.Second, func() bool { return b.State().IsPlaying }, "remote play not mirrored")

	engine.Emit(RemoteStop)
	tu.Eventually(t, time.Second, func() bool { return b.State().CurrentTrack == nil }, "remote stop not mirrored")

	engine.Emit(RemotePlay)
	engine.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after the engine closed")
	}
	if b.State().IsPlaying {
		t.Error("remote play with no track should be ignored")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	b, engine := newReadyBridge(t)
	b.Play(ctx, playable)

	b.Reset(ctx)
	if s := b.State(); s.CurrentTrack != nil || s.IsPlaying {
		t.Errorf("unexpected state %+v", s)
	}
	if len(engine.Queue()) != 0 {
		t.Error("engine queue not cleared")
	}
}

func TestEngineStateString(t *testing.T) {
	tests := []struct {
		s    EngineState
		want string
	}{
		{StateNone, "none"},
		{StateReady, "ready"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateStopped, "stopped"},
		{StateBuffering, "buffering"},
		{EngineState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
