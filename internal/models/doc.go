// Package models defines the domain entities shared by the encore session and data providers.
//
// The types fall into three groups:
//
// 1. Session state owned by the session manager
//   - [Session] : access token, signed-in [UserProfile] and [SessionStatus]
//
// 2. Catalog entities normalized from Spotify Web API payloads
//   - [Track], [Artist], [Album], [Show], [Episode]
//   - [Playlist] : remote or local playlist addressed by a [PlaylistKey]
//   - [LibraryItem] : one row of the unified library view
//   - [SearchResult] : one ranked track or artist hit
//
// 3. Playback state mirrored from the audio engine
//   - [PlaybackState]
//
// Values are plain structs. Providers hand out copies, so callers may keep or modify them freely.
package models
