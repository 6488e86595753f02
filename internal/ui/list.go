package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/encore/internal/models"
)

var (
	_ list.Item = libraryItem{}
	_ list.Item = trackItem{}
	_ list.Item = resultItem{}
)

// libraryItem wraps [models.LibraryItem] to implement [list.Item].
type libraryItem struct {
	item models.LibraryItem
}

func (i libraryItem) FilterValue() string { return i.item.Name }
func (i libraryItem) Title() string       { return i.item.Name }
func (i libraryItem) Description() string {
	return fmt.Sprintf("%s • %s", kindLabel(i.item.Kind), i.item.OwnerLabel)
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	if i.track.PreviewURL == "" {
		desc += " • no preview"
	}
	return desc
}

// resultItem wraps [models.SearchResult] to implement [list.Item].
type resultItem struct {
	result models.SearchResult
}

func (i resultItem) FilterValue() string { return i.result.Title() }
func (i resultItem) Title() string       { return i.result.Title() }
func (i resultItem) Description() string {
	if i.result.Track != nil {
		return "Track • " + trackItem{track: *i.result.Track}.Description()
	}
	return "Artist"
}

func kindLabel(k models.ItemKind) string {
	switch k {
	case models.KindLikedSongs:
		return "Liked Songs"
	case models.KindPlaylist:
		return "Playlist"
	case models.KindPodcast:
		return "Podcast"
	case models.KindAlbum:
		return "Album"
	case models.KindArtist:
		return "Artist"
	default:
		return "All"
	}
}

func libraryItems(in []models.LibraryItem) []list.Item {
	out := make([]list.Item, len(in))
	for i, it := range in {
		out[i] = libraryItem{item: it}
	}
	return out
}

func trackItems(in []models.Track) []list.Item {
	out := make([]list.Item, len(in))
	for i, t := range in {
		out[i] = trackItem{track: t}
	}
	return out
}

func resultItems(in []models.SearchResult) []list.Item {
	out := make([]list.Item, len(in))
	for i, r := range in {
		out[i] = resultItem{result: r}
	}
	return out
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}
