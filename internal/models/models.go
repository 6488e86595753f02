package models

import (
	"slices"
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a [Session].
type SessionStatus int

const (
	StatusUninitialized SessionStatus = iota
	StatusRestoring
	StatusAuthenticated
	StatusUnauthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRestoring:
		return "restoring"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is the authentication state. User is non-nil exactly when Status is [StatusAuthenticated].
type Session struct {
	AccessToken string
	User        *UserProfile
	Status      SessionStatus
}

// Authenticated reports whether the session holds a validated token and profile.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Clone returns a copy that does not share the profile pointer.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// UserProfile is the signed-in account as reported by GET /me.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Name returns the display name, falling back to the account id.
func (u UserProfile) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// ArtistRef is the id/name pair embedded in tracks and albums.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef is the album summary embedded in a track.
type AlbumRef struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// Track is a playable catalog entry. PreviewURL is the media locator handed to the audio engine.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	URI        string      `json:"uri"`
	PreviewURL string      `json:"preview_url,omitempty"`
	DurationMS int         `json:"duration_ms"`
	Album      AlbumRef    `json:"album"`
	Artists    []ArtistRef `json:"artists"`
}

// ArtistNames joins artist names with ", ".
func (t Track) ArtistNames() string {
	return JoinArtists(t.Artists)
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// ImageURL returns the first album image, if any.
func (t Track) ImageURL() string {
	if len(t.Album.ImageURLs) > 0 {
		return t.Album.ImageURLs[0]
	}
	return ""
}

// JoinArtists renders a list of artist references for display.
func JoinArtists(artists []ArtistRef) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	ImageURL   string   `json:"image_url,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
}

type Album struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	URI         string      `json:"uri"`
	AlbumType   string      `json:"album_type,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	ReleaseDate string      `json:"release_date,omitempty"`
	Artists     []ArtistRef `json:"artists"`
	Tracks      []Track     `json:"tracks,omitempty"`
}

type Show struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Publisher   string    `json:"publisher"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Episodes    []Episode `json:"episodes,omitempty"`
}

type Episode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	DurationMS  int    `json:"duration_ms"`
	AudioURL    string `json:"audio_preview_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Origin says whether a playlist lives on the service or only in this process.
type Origin int

const (
	OriginRemote Origin = iota
	OriginLocal
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "remote"
}

// PlaylistKey addresses a playlist by id within its origin. Remote and local ids never collide under it.
type PlaylistKey struct {
	ID     string `json:"id"`
	Origin Origin `json:"origin"`
}

func (k PlaylistKey) String() string {
	return k.Origin.String() + ":" + k.ID
}

// Playlist is a remote playlist summary (Tracks filled lazily) or a local in-memory playlist.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Owner       string  `json:"owner,omitempty"`
	OwnerID     string  `json:"owner_id,omitempty"`
	TrackCount  int     `json:"track_count"`
	Origin      Origin  `json:"origin"`
	Tracks      []Track `json:"tracks,omitempty"`
}

func (p Playlist) Key() PlaylistKey {
	return PlaylistKey{ID: p.ID, Origin: p.Origin}
}

// Clone copies the playlist including its track slice. A nil slice (not loaded) stays nil, an empty one stays empty.
func (p Playlist) Clone() Playlist {
	p.Tracks = slices.Clone(p.Tracks)
	return p
}

// ItemKind classifies a [LibraryItem].
type ItemKind string

const (
	KindLikedSongs ItemKind = "liked"
	KindPlaylist   ItemKind = "playlist"
	KindPodcast    ItemKind = "podcast"
	KindAlbum      ItemKind = "album"
	KindArtist     ItemKind = "artist"
)

// Kinds lists every item kind in library display order.
var Kinds = []ItemKind{KindLikedSongs, KindPlaylist, KindPodcast, KindAlbum, KindArtist}

// ParseKind maps user input such as "podcasts" to an [ItemKind].
func ParseKind(s string) (ItemKind, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	if s == "show" {
		s = string(KindPodcast)
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

const (
	// LikedSongsID is the reserved id of the synthesized Liked Songs library entry.
	LikedSongsID    = "liked-songs"
	LikedSongsName  = "Liked Songs"
	LikedSongsOwner = "You"
)

// LibraryItem is one entry of the unified library view.
type LibraryItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	OwnerLabel string   `json:"owner"`
	Kind       ItemKind `json:"kind"`
}

type ResultKind int

const (
	ResultTrack ResultKind = iota
	ResultArtist
)

func (k ResultKind) String() string {
	if k == ResultArtist {
		return "artist"
	}
	return "track"
}

// SearchResult is one ranked hit; exactly one of Track or Artist is set.
type SearchResult struct {
	Kind   ResultKind `json:"kind"`
	Track  *Track     `json:"track,omitempty"`
	Artist *Artist    `json:"artist,omitempty"`
}

// Title returns the display name of the hit.
func (r SearchResult) Title() string {
	switch {
	case r.Track != nil:
		return r.Track.Name
	case r.Artist != nil:
		return r.Artist.Name
	default:
		return ""
	}
}

// SearchResults is the raw two-category response of a combined search.
type SearchResults struct {
	Tracks  []Track
	Artists []Artist
}

// Ranked lists tracks then artists, each in the order the service ranked them.
func (r SearchResults) Ranked() []SearchResult {
	out := make([]SearchResult, 0, len(r.Tracks)+len(r.Artists))
	for i := range r.Tracks {
		t := r.Tracks[i]
		out = append(out, SearchResult{Kind: ResultTrack, Track: &t})
	}
	for i := range r.Artists {
		a := r.Artists[i]
		out = append(out, SearchResult{Kind: ResultArtist, Artist: &a})
	}
	return out
}

// PlaybackState mirrors what the audio engine is doing.
type PlaybackState struct {
	CurrentTrack *Track `json:"current_track,omitempty"`
	IsPlaying    bool   `json:"is_playing"`
}
