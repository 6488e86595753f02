// Package playback mirrors the audio engine's state for the rest of the client.
//
// The [Engine] interface is the native player; [Bridge] owns the [models.PlaybackState] the UI
// reads and keeps it in step with both local commands and events the engine raises on its own
// (media keys, end of file).
//
// The default build uses [MemoryEngine]. Building with -tags mpv links libmpv through
// github.com/wildeyedskies/go-mpv and uses [MPVEngine] instead.
package playback
