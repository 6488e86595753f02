//go:build mpv

package playback

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/wildeyedskies/go-mpv/mpv"
)

// NativeAudio reports whether [DefaultEngine] produces sound.
const NativeAudio = true

// DefaultEngine returns the engine this binary was built with.
func DefaultEngine(logger *log.Logger) Engine {
	return NewMPVEngine(logger)
}

// MPVEngine plays through libmpv with video disabled.
type MPVEngine struct {
	logger *log.Logger

	mu        sync.Mutex
	m         *mpv.Mpv
	queue     []QueueItem
	index     int
	paused    bool
	replacing bool // set while a stop/loadfile is in flight so its end-file is not reported
	events    chan RemoteEvent
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewMPVEngine(logger *log.Logger) *MPVEngine {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &MPVEngine{logger: logger, events: make(chan RemoteEvent, 16)}
}

func (e *MPVEngine) Setup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.m != nil {
		return nil
	}

	m := mpv.Create()
	m.SetOptionString("audio-display", "no")
	m.SetOptionString("video", "no")
	m.ObserveProperty(0, "pause", mpv.FORMAT_FLAG)
	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return fmt.Errorf("failed to initialize mpv: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	e.m = m
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.listen(loopCtx, m)
	return nil
}

func (e *MPVEngine) command(args ...string) error {
	if e.m == nil {
		return ErrEngineNotReady
	}
	if err := e.m.Command(args); err != nil {
		return fmt.Errorf("mpv %s: %w", args[0], err)
	}
	return nil
}

func (e *MPVEngine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = nil
	e.index = 0
	e.replacing = true
	return e.command("stop")
}

func (e *MPVEngine) Load(ctx context.Context, item QueueItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.m == nil {
		return ErrEngineNotReady
	}
	e.queue = append(e.queue, item)
	return nil
}

func (e *MPVEngine) idle() (bool, error) {
	v, err := e.m.GetProperty("idle-active", mpv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// loadCurrent starts the queue entry at index. Caller holds mu.
func (e *MPVEngine) loadCurrent() error {
	if e.index < 0 || e.index >= len(e.queue) {
		return nil
	}
	e.replacing = true
	if err := e.command("loadfile", e.queue[e.index].URL); err != nil {
		return err
	}
	return e.command("set", "pause", "no")
}

func (e *MPVEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.m == nil {
		return ErrEngineNotReady
	}
	idle, err := e.idle()
	if err != nil {
		return err
	}
	e.paused = false
	if idle {
		return e.loadCurrent()
	}
	return e.command("set", "pause", "no")
}

func (e *MPVEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	return e.command("set", "pause", "yes")
}

func (e *MPVEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replacing = true
	return e.command("stop")
}

func (e *MPVEngine) SkipNext(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index >= len(e.queue)-1 {
		return nil
	}
	e.index++
	return e.loadCurrent()
}

func (e *MPVEngine) SkipPrevious(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == 0 {
		return nil
	}
	e.index--
	return e.loadCurrent()
}

func (e *MPVEngine) State(ctx context.Context) (EngineState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.m == nil {
		return StateNone, nil
	}

	idle, err := e.idle()
	if err != nil {
		return StateNone, err
	}
	if idle {
		if len(e.queue) == 0 {
			return StateReady, nil
		}
		return StateStopped, nil
	}
	v, err := e.m.GetProperty("pause", mpv.FORMAT_FLAG)
	if err != nil {
		return StateNone, err
	}
	if paused, _ := v.(bool); paused {
		return StatePaused, nil
	}
	return StatePlaying, nil
}

func (e *MPVEngine) Events() <-chan RemoteEvent {
	return e.events
}

// listen turns libmpv events into remote events until ctx is cancelled.
func (e *MPVEngine) listen(ctx context.Context, m *mpv.Mpv) {
	defer close(e.done)
	defer close(e.events)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := m.WaitEvent(1)
		if ev == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		switch ev.Event_Id {
		case mpv.EVENT_FILE_LOADED:
			e.mu.Lock()
			e.replacing = false
			e.mu.Unlock()
		case mpv.EVENT_END_FILE:
			e.mu.Lock()
			replacing := e.replacing
			e.mu.Unlock()
			if !replacing {
				e.emit(ctx, RemoteStop)
			}
		default:
			e.checkPause(ctx, m)
		}
	}
}

// checkPause reports pause changes made outside the engine, such as media keys.
func (e *MPVEngine) checkPause(ctx context.Context, m *mpv.Mpv) {
	v, err := m.GetProperty("pause", mpv.FORMAT_FLAG)
	if err != nil {
		return
	}
	paused, _ := v.(bool)

	e.mu.Lock()
	changed := paused != e.paused
	e.paused = paused
	e.mu.Unlock()

	if !changed {
		return
	}
	if paused {
		e.emit(ctx, RemotePause)
	} else {
		e.emit(ctx, RemotePlay)
	}
}

func (e *MPVEngine) emit(ctx context.Context, ev RemoteEvent) {
	select {
	case e.events <- ev:
	case <-ctx.Done():
	}
}

func (e *MPVEngine) Close() error {
	e.mu.Lock()
	m := e.m
	cancel := e.cancel
	done := e.done
	e.m = nil
	e.mu.Unlock()

	if m == nil {
		return nil
	}
	cancel()
	<-done
	m.Command([]string{"quit"})
	m.TerminateDestroy()
	return nil
}
