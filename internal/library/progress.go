package library

import "fmt"

// Phase names the category a [Progress] update refers to.
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchLiked
	FetchShows
	FetchAlbums
	FetchArtists
	FetchDone
)

// categories is the number of sub-fetches in one library fetch.
const categories = 5

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchLiked:
		return "fetch_liked"
	case FetchShows:
		return "fetch_shows"
	case FetchAlbums:
		return "fetch_albums"
	case FetchArtists:
		return "fetch_artists"
	case FetchDone:
		return "done"
	default:
		return ""
	}
}

// Progress reports one finished category of a library fetch.
type Progress struct {
	Phase   Phase  // Category that finished
	Step    int    // Categories finished so far
	Total   int    // Categories in the fetch
	Count   int    // Items the category produced
	Message string // Human-readable message for display
}

func categoryUpdate(phase Phase, step, count int) Progress {
	return Progress{
		Phase:   phase,
		Step:    step,
		Total:   categories,
		Count:   count,
		Message: fmt.Sprintf("Loaded %d %s", count, label(phase)),
	}
}

func doneUpdate(total int) Progress {
	return Progress{
		Phase:   FetchDone,
		Step:    categories,
		Total:   categories,
		Count:   total,
		Message: fmt.Sprintf("Library ready (%d items)", total),
	}
}

func label(p Phase) string {
	switch p {
	case FetchPlaylists:
		return "playlists"
	case FetchLiked:
		return "liked tracks"
	case FetchShows:
		return "podcasts"
	case FetchAlbums:
		return "albums"
	case FetchArtists:
		return "artists"
	default:
		return "items"
	}
}

// sendProgress delivers u without blocking; a slow or absent reader misses updates.
func sendProgress(ch chan<- Progress, u Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
	}
}
