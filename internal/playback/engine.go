package playback

import (
	"context"
	"fmt"
)

var (
	ErrPlaybackUnavailable = fmt.Errorf("track has no playable media")
	ErrEngineNotReady      = fmt.Errorf("audio engine not ready")
)

// QueueItem is one entry handed to the engine.
type QueueItem struct {
	ID       string
	URL      string
	Title    string
	Artist   string
	Duration int // milliseconds
}

// EngineState is what the engine reports it is doing.
type EngineState int

const (
	StateNone EngineState = iota
	StateReady
	StatePlaying
	StatePaused
	StateStopped
	StateBuffering
)

func (s EngineState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateBuffering:
		return "buffering"
	default:
		return "unknown"
	}
}

// RemoteEvent is a state change the engine made without a command from the bridge.
type RemoteEvent int

const (
	RemotePlay RemoteEvent = iota
	RemotePause
	RemoteStop
)

func (e RemoteEvent) String() string {
	switch e {
	case RemotePlay:
		return "play"
	case RemotePause:
		return "pause"
	case RemoteStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Engine is a native audio player with a queue.
type Engine interface {
	Setup(ctx context.Context) error
	Reset(ctx context.Context) error
	Load(ctx context.Context, item QueueItem) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	State(ctx context.Context) (EngineState, error)

	// Events delivers remote events until the engine is closed.
	Events() <-chan RemoteEvent
	Close() error
}
