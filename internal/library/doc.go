// Package library aggregates the user's saved content into one list.
//
// A fetch collects owned playlists, liked tracks (every page), followed shows, saved albums
// and followed artists concurrently, then replaces the snapshot in one step. The synthesized
// Liked Songs entry always leads the list.
package library
