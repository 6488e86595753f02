//go:build !mpv

package playback

import "github.com/charmbracelet/log"

// NativeAudio reports whether [DefaultEngine] produces sound.
const NativeAudio = false

// DefaultEngine returns the engine this binary was built with.
func DefaultEngine(logger *log.Logger) Engine {
	if logger != nil {
		logger.Debug("built without libmpv; audio output disabled")
	}
	return NewMemoryEngine()
}
