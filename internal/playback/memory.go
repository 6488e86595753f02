package playback

import (
	"context"
	"sync"
)

// MemoryEngine is an [Engine] that keeps its queue in memory and produces no sound.
type MemoryEngine struct {
	mu     sync.Mutex
	setup  bool
	state  EngineState
	queue  []QueueItem
	index  int
	calls  []string
	fail   map[string]error
	events chan RemoteEvent
	closed bool
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{fail: map[string]error{}, events: make(chan RemoteEvent, 16)}
}

// FailOn makes method return err until cleared with a nil err.
func (e *MemoryEngine) FailOn(method string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.fail, method)
		return
	}
	e.fail[method] = err
}

// Calls lists the methods invoked so far, in order.
func (e *MemoryEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Queue returns the loaded items.
func (e *MemoryEngine) Queue() []QueueItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]QueueItem(nil), e.queue...)
}

// Emit simulates the engine changing state on its own. Events beyond the buffer are dropped.
func (e *MemoryEngine) Emit(ev RemoteEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	switch ev {
	case RemotePlay:
		e.state = StatePlaying
	case RemotePause:
		e.state = StatePaused
	case RemoteStop:
		e.state = StateStopped
	}
	select {
	case e.events <- ev:
	default:
	}
}

// call records method and returns its injected failure, if any. Caller holds mu.
func (e *MemoryEngine) call(method string) error {
	e.calls = append(e.calls, method)
	return e.fail[method]
}

func (e *MemoryEngine) Setup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("setup"); err != nil {
		return err
	}
	e.setup = true
	e.state = StateReady
	return nil
}

func (e *MemoryEngine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("reset"); err != nil {
		return err
	}
	e.queue = nil
	e.index = 0
	e.state = StateReady
	return nil
}

func (e *MemoryEngine) Load(ctx context.Context, item QueueItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("load"); err != nil {
		return err
	}
	e.queue = append(e.queue, item)
	return nil
}

func (e *MemoryEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("play"); err != nil {
		return err
	}
	if len(e.queue) > 0 {
		e.state = StatePlaying
	}
	return nil
}

func (e *MemoryEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("pause"); err != nil {
		return err
	}
	if e.state == StatePlaying {
		e.state = StatePaused
	}
	return nil
}

func (e *MemoryEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("stop"); err != nil {
		return err
	}
	e.state = StateStopped
	return nil
}

func (e *MemoryEngine) SkipNext(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("next"); err != nil {
		return err
	}
	if e.index < len(e.queue)-1 {
		e.index++
	}
	return nil
}

func (e *MemoryEngine) SkipPrevious(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("previous"); err != nil {
		return err
	}
	if e.index > 0 {
		e.index--
	}
	return nil
}

func (e *MemoryEngine) State(ctx context.Context) (EngineState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail["state"]; err != nil {
		return StateNone, err
	}
	return e.state, nil
}

func (e *MemoryEngine) Events() <-chan RemoteEvent {
	return e.events
}

func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}
