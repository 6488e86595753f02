package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

// FakeTrack is the minimal track state held by [FakeSpotify].
type FakeTrack struct {
	ID         string
	Name       string
	Artist     string
	PreviewURL string
}

// URI returns the spotify:track URI the fake expects in mutation bodies.
func (t FakeTrack) URI() string {
	return "spotify:track:" + t.ID
}

type FakePlaylist struct {
	ID     string
	Name   string
	Owner  string
	Tracks []FakeTrack
}

type FakeNamed struct {
	ID   string
	Name string
	By   string
}

// FakeSpotify is an in-memory Spotify Web API and accounts service served over httptest.
//
// The API is mounted under /v1; the token endpoint is /api/token. Fields may be edited
// between requests while holding no requests in flight, or through the locked helpers.
type FakeSpotify struct {
	Server *httptest.Server

	mu          sync.Mutex
	token       string
	userID      string
	displayName string
	playlists   []*FakePlaylist
	liked       []FakeTrack
	shows       []FakeNamed
	albums      []FakeNamed
	artists     []FakeNamed
	searchHits  []FakeTrack
	searchArts  []FakeNamed
	pageSize    int
	failures    map[string]int
	hits        map[string]int
	codes       map[string]string
	verifiers   []string
	nextID      int
	onSearch    func(q string)
	loopNext    bool
}

// NewFakeSpotify starts a fake accepting token for user "user-1".
func NewFakeSpotify(t *testing.T, token string) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{
		token:       token,
		userID:      "user-1",
		displayName: "Test User",
		pageSize:    50,
		failures:    map[string]int{},
		hits:        map[string]int{},
		codes:       map[string]string{},
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// APIBase is the base URL to configure in the gateway.
func (f *FakeSpotify) APIBase() string {
	return f.Server.URL + "/v1"
}

// Endpoint returns OAuth endpoints served by the fake.
func (f *FakeSpotify) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   f.Server.URL + "/authorize",
		TokenURL:  f.Server.URL + "/api/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// IssueCode registers an authorization code that exchanges for token.
func (f *FakeSpotify) IssueCode(code, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = token
}

// SetToken changes the bearer token the API accepts.
func (f *FakeSpotify) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// Verifiers returns the PKCE verifiers seen by the token endpoint.
func (f *FakeSpotify) Verifiers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.verifiers...)
}

// Fail makes "METHOD /v1/path" respond with status until cleared with status 0.
func (f *FakeSpotify) Fail(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, route)
		return
	}
	f.failures[route] = status
}

// Hits returns how many times "METHOD /v1/path" was requested.
func (f *FakeSpotify) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// OnSearch registers a hook invoked (without the lock) for each search request.
func (f *FakeSpotify) OnSearch(fn func(q string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSearch = fn
}

// SetPageSize controls how many liked or playlist tracks each page returns.
func (f *FakeSpotify) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// LoopPagination makes liked-track pages always link back to the first page.
func (f *FakeSpotify) LoopPagination(loop bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loopNext = loop
}

func (f *FakeSpotify) AddPlaylist(p FakePlaylist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Owner == "" {
		p.Owner = f.displayName
	}
	pl := p
	f.playlists = append(f.playlists, &pl)
}

// Playlist returns a copy of the stored playlist with id.
func (f *FakeSpotify) Playlist(id string) (FakePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findPlaylist(id); p != nil {
		cp := *p
		cp.Tracks = append([]FakeTrack(nil), p.Tracks...)
		return cp, true
	}
	return FakePlaylist{}, false
}

func (f *FakeSpotify) PlaylistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playlists)
}

func (f *FakeSpotify) SetLiked(tracks ...FakeTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liked = tracks
}

func (f *FakeSpotify) SetShows(items ...FakeNamed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shows = items
}

func (f *FakeSpotify) SetAlbums(items ...FakeNamed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albums = items
}

func (f *FakeSpotify) SetArtists(items ...FakeNamed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artists = items
}

// SetSearch fixes the results every search returns.
func (f *FakeSpotify) SetSearch(tracks []FakeTrack, artists []FakeNamed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchHits = tracks
	f.searchArts = artists
}

func (f *FakeSpotify) findPlaylist(id string) *FakePlaylist {
	for _, p := range f.playlists {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *FakeSpotify) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/me", f.handleMe)
	mux.HandleFunc("GET /v1/me/playlists", f.handleListPlaylists)
	mux.HandleFunc("GET /v1/users/{user}/playlists", f.handleListPlaylists)
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.handleCreatePlaylist)
	mux.HandleFunc("PUT /v1/playlists/{id}", f.handleEditPlaylist)
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", f.handlePlaylistTracks)
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", f.handleAddTracks)
	mux.HandleFunc("DELETE /v1/playlists/{id}/tracks", f.handleRemoveTracks)
	mux.HandleFunc("DELETE /v1/playlists/{id}/followers", f.handleUnfollow)
	mux.HandleFunc("GET /v1/me/tracks", f.handleLiked)
	mux.HandleFunc("GET /v1/me/shows", f.handleShows)
	mux.HandleFunc("GET /v1/me/albums", f.handleSavedAlbums)
	mux.HandleFunc("GET /v1/me/following", f.handleFollowing)
	mux.HandleFunc("GET /v1/search", f.handleSearch)
	mux.HandleFunc("GET /v1/tracks/{id}", f.handleTrack)
	mux.HandleFunc("GET /v1/artists/{id}", f.handleArtist)
	mux.HandleFunc("GET /v1/artists/{id}/top-tracks", f.handleTopTracks)
	mux.HandleFunc("GET /v1/artists/{id}/albums", f.handleArtistAlbums)
	mux.HandleFunc("GET /v1/artists/{id}/related-artists", f.handleRelated)
	mux.HandleFunc("GET /v1/albums/{id}", f.handleAlbum)
	mux.HandleFunc("GET /v1/shows/{id}", f.handleShow)
	mux.HandleFunc("GET /v1/shows/{id}/episodes", f.handleEpisodes)
	mux.HandleFunc("GET /v1/browse/new-releases", f.handleNewReleases)
	mux.HandleFunc("GET /v1/me/top/{kind}", f.handleTop)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.hits[route]++
		status, failing := f.failures[route]
		token := f.token
		f.mu.Unlock()

		if strings.HasPrefix(r.URL.Path, "/v1/") {
			if r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "The access token expired")
				return
			}
		}
		if failing {
			writeError(w, status, http.StatusText(status))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}

func images(id string) []map[string]any {
	return []map[string]any{{"url": "https://i.scdn.co/image/" + id, "width": 640, "height": 640}}
}

func trackJSON(t FakeTrack) map[string]any {
	var preview any
	if t.PreviewURL != "" {
		preview = t.PreviewURL
	}
	artist := t.Artist
	if artist == "" {
		artist = "Artist"
	}
	return map[string]any{
		"id":          t.ID,
		"name":        t.Name,
		"uri":         t.URI(),
		"preview_url": preview,
		"duration_ms": 180000,
		"album": map[string]any{
			"id":     "album-" + t.ID,
			"name":   "Album " + t.Name,
			"images": images("album-" + t.ID),
		},
		"artists": []map[string]any{{"id": "artist-" + strings.ToLower(artist), "name": artist}},
	}
}

func namedJSON(kind string, n FakeNamed) map[string]any {
	m := map[string]any{
		"id":     n.ID,
		"name":   n.Name,
		"uri":    "spotify:" + kind + ":" + n.ID,
		"images": images(n.ID),
	}
	switch kind {
	case "show":
		m["publisher"] = n.By
		m["description"] = "About " + n.Name
	case "album":
		m["album_type"] = "album"
		m["release_date"] = "2024-01-01"
		m["artists"] = []map[string]any{{"id": "artist-" + strings.ToLower(n.By), "name": n.By}}
	case "artist":
		m["genres"] = []string{"indie"}
		m["followers"] = map[string]any{"total": 100}
		m["popularity"] = 50
	}
	return m
}

func (f *FakeSpotify) playlistJSON(p *FakePlaylist) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": "",
		"owner":       map[string]any{"id": f.userID, "display_name": p.Owner},
		"images":      images(p.ID),
		"tracks":      map[string]any{"total": len(p.Tracks)},
	}
}

// page slices items by offset/limit and links the next page absolutely.
func page(r *http.Request, base string, total int, size int, loop bool) (start, end int, next any) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > size {
		limit = size
	}
	start = min(offset, total)
	end = min(start+limit, total)
	if loop {
		return start, end, base + r.URL.Path + "?limit=" + strconv.Itoa(limit) + "&offset=0"
	}
	if end < total {
		next = base + r.URL.Path + "?" + url.Values{"offset": {strconv.Itoa(end)}, "limit": {strconv.Itoa(limit)}}.Encode()
	}
	return start, end, next
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.verifiers = append(f.verifiers, r.PostForm.Get("code_verifier"))
	token, ok := f.codes[r.PostForm.Get("code")]
	if !ok || r.PostForm.Get("code_verifier") == "" || r.PostForm.Get("client_id") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid authorization code"})
		return
	}
	delete(f.codes, r.PostForm.Get("code"))
	f.token = token

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "user-read-private",
	})
}

func (f *FakeSpotify) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           f.userID,
		"display_name": f.displayName,
		"email":        "user@example.com",
		"country":      "US",
		"product":      "premium",
		"images":       images(f.userID),
	})
}

func (f *FakeSpotify) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]map[string]any, 0, len(f.playlists))
	for _, p := range f.playlists {
		items = append(items, f.playlistJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next": nil, "total": len(items)})
}

func (f *FakeSpotify) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: name")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := &FakePlaylist{ID: fmt.Sprintf("pl-new-%d", f.nextID), Name: body.Name, Owner: f.displayName}
	f.playlists = append([]*FakePlaylist{p}, f.playlists...)
	writeJSON(w, http.StatusCreated, f.playlistJSON(p))
}

func (f *FakeSpotify) handleEditPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findPlaylist(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if body.Name != "" {
		p.Name = body.Name
	}
	w.WriteHeader(http.StatusOK)
}

func (f *FakeSpotify) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findPlaylist(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	start, end, next := page(r, f.Server.URL, len(p.Tracks), f.pageSize, false)
	items := make([]map[string]any, 0, end-start)
	for _, t := range p.Tracks[start:end] {
		items = append(items, map[string]any{"added_at": "2024-01-01T00:00:00Z", "track": trackJSON(t)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next": next, "total": len(p.Tracks)})
}

func decodeURIs(r io.Reader) []string {
	var body struct {
		URIs   []string `json:"uris"`
		Tracks []struct {
			URI string `json:"uri"`
		} `json:"tracks"`
	}
	json.NewDecoder(r).Decode(&body)
	uris := body.URIs
	for _, t := range body.Tracks {
		uris = append(uris, t.URI)
	}
	return uris
}

func (f *FakeSpotify) handleAddTracks(w http.ResponseWriter, r *http.Request) {
	uris := decodeURIs(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findPlaylist(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	for _, u := range uris {
		id := strings.TrimPrefix(u, "spotify:track:")
		p.Tracks = append(p.Tracks, FakeTrack{ID: id, Name: "Track " + id})
	}
	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap"})
}

func (f *FakeSpotify) handleRemoveTracks(w http.ResponseWriter, r *http.Request) {
	uris := decodeURIs(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findPlaylist(r.PathValue("id"))
	if p == nil {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	drop := map[string]bool{}
	for _, u := range uris {
		drop[u] = true
	}
	kept := p.Tracks[:0]
	for _, t := range p.Tracks {
		if !drop[t.URI()] {
			kept = append(kept, t)
		}
	}
	p.Tracks = kept
	writeJSON(w, http.StatusOK, map[string]string{"snapshot_id": "snap"})
}

func (f *FakeSpotify) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	for i, p := range f.playlists {
		if p.ID == id {
			f.playlists = append(f.playlists[:i], f.playlists[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Not found.")
}

func (f *FakeSpotify) handleLiked(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start, end, next := page(r, f.Server.URL, len(f.liked), f.pageSize, f.loopNext)
	items := make([]map[string]any, 0, end-start)
	for _, t := range f.liked[start:end] {
		items = append(items, map[string]any{"added_at": "2024-01-01T00:00:00Z", "track": trackJSON(t)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next": next, "total": len(f.liked)})
}

func (f *FakeSpotify) handleShows(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]map[string]any, 0, len(f.shows))
	for _, s := range f.shows {
		items = append(items, map[string]any{"show": namedJSON("show", s)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next": nil, "total": len(items)})
}

func (f *FakeSpotify) handleSavedAlbums(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]map[string]any, 0, len(f.albums))
	for _, a := range f.albums {
		items = append(items, map[string]any{"album": namedJSON("album", a)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next": nil, "total": len(items)})
}

func (f *FakeSpotify) handleFollowing(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]map[string]any, 0, len(f.artists))
	for _, a := range f.artists {
		items = append(items, namedJSON("artist", a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": map[string]any{"items": items, "next": nil, "total": len(items)}})
}

func (f *FakeSpotify) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	hook := f.onSearch
	f.mu.Unlock()
	if hook != nil {
		hook(r.URL.Query().Get("q"))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tracks := make([]map[string]any, 0, len(f.searchHits))
	for _, t := range f.searchHits {
		tracks = append(tracks, trackJSON(t))
	}
	artists := make([]map[string]any, 0, len(f.searchArts))
	for _, a := range f.searchArts {
		artists = append(artists, namedJSON("artist", a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":  map[string]any{"items": tracks, "next": nil, "total": len(tracks)},
		"artists": map[string]any{"items": artists, "next": nil, "total": len(artists)},
	})
}

func (f *FakeSpotify) handleTrack(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	for _, t := range append(append([]FakeTrack(nil), f.liked...), f.searchHits...) {
		if t.ID == id {
			writeJSON(w, http.StatusOK, trackJSON(t))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Not found.")
}

func (f *FakeSpotify) handleArtist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, namedJSON("artist", FakeNamed{ID: id, Name: "Artist " + id}))
}

func (f *FakeSpotify) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{"tracks": []map[string]any{
		trackJSON(FakeTrack{ID: id + "-top-1", Name: "Top One", PreviewURL: "https://p.scdn.co/" + id}),
		trackJSON(FakeTrack{ID: id + "-top-2", Name: "Top Two"}),
	}})
}

func (f *FakeSpotify) handleArtistAlbums(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
		namedJSON("album", FakeNamed{ID: id + "-album", Name: "Debut", By: "Artist " + id}),
	}, "next": nil, "total": 1})
}

func (f *FakeSpotify) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{"artists": []map[string]any{
		namedJSON("artist", FakeNamed{ID: id + "-related", Name: "Related"}),
	}})
}

func (f *FakeSpotify) handleAlbum(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.HasPrefix(id, "missing") {
		writeError(w, http.StatusNotFound, "Non existing id")
		return
	}
	album := namedJSON("album", FakeNamed{ID: id, Name: "Album " + id, By: "Band"})
	track := trackJSON(FakeTrack{ID: id + "-1", Name: "Opener"})
	delete(track, "album")
	album["tracks"] = map[string]any{"items": []map[string]any{track}}
	writeJSON(w, http.StatusOK, album)
}

func (f *FakeSpotify) handleShow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !strings.HasPrefix(id, "show") {
		writeError(w, http.StatusNotFound, "Non existing id")
		return
	}
	writeJSON(w, http.StatusOK, namedJSON("show", FakeNamed{ID: id, Name: "Show " + id, By: "Network"}))
}

func (f *FakeSpotify) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{
		"id":                id + "-ep-1",
		"name":              "Pilot",
		"description":       "First episode",
		"release_date":      "2024-02-02",
		"duration_ms":       60000,
		"audio_preview_url": "https://p.scdn.co/ep/" + id,
		"images":            images(id),
	}}, "next": nil, "total": 1})
}

func (f *FakeSpotify) handleNewReleases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"albums": map[string]any{"items": []map[string]any{
		namedJSON("album", FakeNamed{ID: "new-1", Name: "Fresh", By: "Newcomer"}),
	}, "next": nil, "total": 1}})
}

func (f *FakeSpotify) handleTop(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("kind") {
	case "tracks":
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
			trackJSON(FakeTrack{ID: "fav-1", Name: "Favourite"}),
		}, "next": nil, "total": 1})
	case "artists":
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
			namedJSON("artist", FakeNamed{ID: "fav-artist", Name: "Favourite Artist"}),
		}, "next": nil, "total": 1})
	default:
		writeError(w, http.StatusBadRequest, "Unsupported type")
	}
}
