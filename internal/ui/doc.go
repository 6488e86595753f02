// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// Three views share a now-playing footer:
//  1. [LibraryView] : the unified library, filterable by item kind
//  2. [SearchView] : a text input driving the debounced search coordinator
//  3. [TracksView] : the tracks of an opened playlist, album, show or artist
//
// Providers in [app.App] notify subscribers from their own goroutines. The [Model] turns those
// notifications into a coalesced [changedMsg] and re-reads every provider snapshot on receipt,
// so no notification can be lost or applied out of order.
//
// Keyboard navigation uses vim-style bindings with contextual help via charmbracelet/bubbles/help.
package ui
