// Spotify Web API endpoints and payload normalization
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/encore/internal/models"
)

// First-page paths for listings walked with [CollectPages].
const (
	SavedTracksPath = "/me/tracks?limit=50"
	playlistTracks  = 100
)

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type followers struct {
	Total int `json:"total"`
}

type spotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"`
	Images      []spotifyImage `json:"images"`
}

type spotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Images     []spotifyImage `json:"images"`
	URI        string         `json:"uri"`
	Followers  followers      `json:"followers"`
	Popularity int            `json:"popularity"`
}

type spotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	AlbumType   string          `json:"album_type"`
	Artists     []spotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	Images      []spotifyImage  `json:"images"`
	URI         string          `json:"uri"`
	Tracks      *struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks,omitempty"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
	URI        string          `json:"uri"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       owner          `json:"owner"`
	Images      []spotifyImage `json:"images"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type spotifyShow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Publisher   string         `json:"publisher"`
	Description string         `json:"description"`
	Images      []spotifyImage `json:"images"`
}

type spotifyEpisode struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	ReleaseDate     string         `json:"release_date"`
	DurationMS      int            `json:"duration_ms"`
	AudioPreviewURL string         `json:"audio_preview_url"`
	Images          []spotifyImage `json:"images"`
}

// paging is Spotify's offset-paging envelope.
type paging[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
	Total int     `json:"total"`
}

func (p paging[T]) next() string {
	if p.Next == nil {
		return ""
	}
	return *p.Next
}

// trackItem wraps saved and playlist tracks; Track is null for unavailable entries.
type trackItem struct {
	AddedAt string        `json:"added_at"`
	Track   *spotifyTrack `json:"track"`
}

func firstImage(images []spotifyImage) string {
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}

func toProfile(u spotifyUser) *models.UserProfile {
	return &models.UserProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
		ImageURL:    firstImage(u.Images),
	}
}

func toArtistRefs(artists []spotifyArtist) []models.ArtistRef {
	refs := make([]models.ArtistRef, 0, len(artists))
	for _, a := range artists {
		refs = append(refs, models.ArtistRef{ID: a.ID, Name: a.Name})
	}
	return refs
}

func toTrack(t spotifyTrack) models.Track {
	images := make([]string, 0, len(t.Album.Images))
	for _, img := range t.Album.Images {
		images = append(images, img.URL)
	}
	return models.Track{
		ID:         t.ID,
		Name:       t.Name,
		URI:        t.URI,
		PreviewURL: t.PreviewURL,
		DurationMS: t.DurationMS,
		Album:      models.AlbumRef{ID: t.Album.ID, Name: t.Album.Name, ImageURLs: images},
		Artists:    toArtistRefs(t.Artists),
	}
}

func toTracks(in []spotifyTrack) []models.Track {
	out := make([]models.Track, 0, len(in))
	for _, t := range in {
		out = append(out, toTrack(t))
	}
	return out
}

// toItemTracks drops entries whose track is null.
func toItemTracks(in []trackItem) []models.Track {
	out := make([]models.Track, 0, len(in))
	for _, it := range in {
		if it.Track != nil && it.Track.ID != "" {
			out = append(out, toTrack(*it.Track))
		}
	}
	return out
}

func toArtist(a spotifyArtist) models.Artist {
	return models.Artist{
		ID:         a.ID,
		Name:       a.Name,
		URI:        a.URI,
		ImageURL:   firstImage(a.Images),
		Genres:     a.Genres,
		Followers:  a.Followers.Total,
		Popularity: a.Popularity,
	}
}

func toArtists(in []spotifyArtist) []models.Artist {
	out := make([]models.Artist, 0, len(in))
	for _, a := range in {
		out = append(out, toArtist(a))
	}
	return out
}

// toAlbum copies embedded tracks, filling in the album reference they omit.
func toAlbum(a spotifyAlbum) models.Album {
	album := models.Album{
		ID:          a.ID,
		Name:        a.Name,
		URI:         a.URI,
		AlbumType:   a.AlbumType,
		ImageURL:    firstImage(a.Images),
		ReleaseDate: a.ReleaseDate,
		Artists:     toArtistRefs(a.Artists),
	}
	if a.Tracks != nil {
		for _, t := range a.Tracks.Items {
			if t.Album.ID == "" {
				t.Album = spotifyAlbum{ID: a.ID, Name: a.Name, Images: a.Images}
			}
			album.Tracks = append(album.Tracks, toTrack(t))
		}
	}
	return album
}

func toAlbums(in []spotifyAlbum) []models.Album {
	out := make([]models.Album, 0, len(in))
	for _, a := range in {
		out = append(out, toAlbum(a))
	}
	return out
}

func toPlaylist(p spotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    firstImage(p.Images),
		Owner:       p.Owner.DisplayName,
		OwnerID:     p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Origin:      models.OriginRemote,
	}
}

func toShow(s spotifyShow) models.Show {
	return models.Show{
		ID:          s.ID,
		Name:        s.Name,
		Publisher:   s.Publisher,
		Description: s.Description,
		ImageURL:    firstImage(s.Images),
	}
}

func toEpisode(e spotifyEpisode) models.Episode {
	return models.Episode{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		ReleaseDate: e.ReleaseDate,
		DurationMS:  e.DurationMS,
		AudioURL:    e.AudioPreviewURL,
		ImageURL:    firstImage(e.Images),
	}
}

// SpotifyService exposes the Web API endpoints encore uses, returning [models] values.
type SpotifyService struct {
	gw     *Gateway
	market string
}

// NewSpotifyService creates a service on top of gw. market defaults to "US".
func NewSpotifyService(gw *Gateway, market string) *SpotifyService {
	if market == "" {
		market = "US"
	}
	return &SpotifyService{gw: gw, market: market}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

func (s *SpotifyService) get(ctx context.Context, path string, out any) error {
	return s.gw.Do(ctx, http.MethodGet, path, nil, out)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Me returns the profile of the signed-in user.
func (s *SpotifyService) Me(ctx context.Context) (*models.UserProfile, error) {
	var u spotifyUser
	if err := s.get(ctx, "/me", &u); err != nil {
		return nil, err
	}
	return toProfile(u), nil
}

// MeWithToken validates token by fetching its profile, without touching the session hook.
func (s *SpotifyService) MeWithToken(ctx context.Context, token string) (*models.UserProfile, error) {
	var u spotifyUser
	if err := s.gw.DoWithToken(ctx, token, http.MethodGet, "/me", nil, &u); err != nil {
		return nil, err
	}
	return toProfile(u), nil
}

// UserPlaylists returns one page of playlists for userID, or for the current user when userID is "".
func (s *SpotifyService) UserPlaylists(ctx context.Context, userID string, limit int) ([]models.Playlist, error) {
	path := "/me/playlists"
	if userID != "" {
		path = "/users/" + url.PathEscape(userID) + "/playlists"
	}
	path += "?limit=" + strconv.Itoa(clampLimit(limit, 50, 50))

	var resp paging[*spotifyPlaylist]
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Playlist, 0, len(resp.Items))
	for _, p := range resp.Items {
		if p != nil {
			out = append(out, toPlaylist(*p))
		}
	}
	return out, nil
}

// PlaylistTracksPath is the first page of a playlist's tracks.
func PlaylistTracksPath(playlistID string) string {
	return fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), playlistTracks)
}

// PlaylistTracksPage fetches the page of playlist tracks at pageURL.
func (s *SpotifyService) PlaylistTracksPage(ctx context.Context, pageURL string) (*Page[models.Track], error) {
	return s.trackPage(ctx, pageURL)
}

// SavedTracksPage fetches the page of liked tracks at pageURL.
func (s *SpotifyService) SavedTracksPage(ctx context.Context, pageURL string) (*Page[models.Track], error) {
	return s.trackPage(ctx, pageURL)
}

func (s *SpotifyService) trackPage(ctx context.Context, pageURL string) (*Page[models.Track], error) {
	var resp paging[trackItem]
	if err := s.get(ctx, pageURL, &resp); err != nil {
		return nil, err
	}
	return &Page[models.Track]{Items: toItemTracks(resp.Items), Next: resp.next(), Total: resp.Total}, nil
}

// CreatePlaylist creates a private playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	body := map[string]any{"name": name, "description": description, "public": false}

	var created spotifyPlaylist
	path := "/users/" + url.PathEscape(userID) + "/playlists"
	if err := s.gw.Do(ctx, http.MethodPost, path, body, &created); err != nil {
		return nil, err
	}
	p := toPlaylist(created)
	return &p, nil
}

// EditPlaylist changes a playlist's name and description.
func (s *SpotifyService) EditPlaylist(ctx context.Context, playlistID, name, description string) error {
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	return s.gw.Do(ctx, http.MethodPut, "/playlists/"+url.PathEscape(playlistID), body, nil)
}

// AddTracks appends track URIs to a playlist.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	body := map[string]any{"uris": uris}
	return s.gw.Do(ctx, http.MethodPost, "/playlists/"+url.PathEscape(playlistID)+"/tracks", body, nil)
}

// RemoveTracks removes every occurrence of the given track URIs from a playlist.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	tracks := make([]map[string]string, 0, len(uris))
	for _, u := range uris {
		tracks = append(tracks, map[string]string{"uri": u})
	}
	body := map[string]any{"tracks": tracks}
	return s.gw.Do(ctx, http.MethodDelete, "/playlists/"+url.PathEscape(playlistID)+"/tracks", body, nil)
}

// UnfollowPlaylist removes the playlist from the user's library; for owners this is deletion.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	return s.gw.Do(ctx, http.MethodDelete, "/playlists/"+url.PathEscape(playlistID)+"/followers", nil, nil)
}

// SavedShows returns the shows the user follows.
func (s *SpotifyService) SavedShows(ctx context.Context, limit int) ([]models.Show, error) {
	var resp paging[struct {
		Show spotifyShow `json:"show"`
	}]
	if err := s.get(ctx, "/me/shows?limit="+strconv.Itoa(clampLimit(limit, 50, 50)), &resp); err != nil {
		return nil, err
	}
	out := make([]models.Show, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, toShow(it.Show))
	}
	return out, nil
}

// SavedAlbums returns albums saved to the user's library.
func (s *SpotifyService) SavedAlbums(ctx context.Context, limit int) ([]models.Album, error) {
	var resp paging[struct {
		Album spotifyAlbum `json:"album"`
	}]
	if err := s.get(ctx, "/me/albums?limit="+strconv.Itoa(clampLimit(limit, 50, 50)), &resp); err != nil {
		return nil, err
	}
	out := make([]models.Album, 0, len(resp.Items))
	for _, it := range resp.Items {
		it.Album.Tracks = nil
		out = append(out, toAlbum(it.Album))
	}
	return out, nil
}

// FollowedArtists returns the first page of artists the user follows.
func (s *SpotifyService) FollowedArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	var resp struct {
		Artists paging[spotifyArtist] `json:"artists"`
	}
	path := "/me/following?type=artist&limit=" + strconv.Itoa(clampLimit(limit, 50, 50))
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return toArtists(resp.Artists.Items), nil
}

// Search runs one combined track and artist query.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) (*models.SearchResults, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track,artist")
	q.Set("limit", strconv.Itoa(clampLimit(limit, 10, 50)))

	var resp struct {
		Tracks  paging[spotifyTrack]  `json:"tracks"`
		Artists paging[spotifyArtist] `json:"artists"`
	}
	if err := s.get(ctx, "/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &models.SearchResults{Tracks: toTracks(resp.Tracks.Items), Artists: toArtists(resp.Artists.Items)}, nil
}

// Track fetches a single track.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	var t spotifyTrack
	if err := s.get(ctx, "/tracks/"+url.PathEscape(trackID)+"?market="+s.market, &t); err != nil {
		return nil, err
	}
	track := toTrack(t)
	return &track, nil
}

func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	var a spotifyArtist
	if err := s.get(ctx, "/artists/"+url.PathEscape(artistID), &a); err != nil {
		return nil, err
	}
	artist := toArtist(a)
	return &artist, nil
}

func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	var resp struct {
		Tracks []spotifyTrack `json:"tracks"`
	}
	if err := s.get(ctx, "/artists/"+url.PathEscape(artistID)+"/top-tracks?market="+s.market, &resp); err != nil {
		return nil, err
	}
	return toTracks(resp.Tracks), nil
}

func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID string, limit int) ([]models.Album, error) {
	path := fmt.Sprintf("/artists/%s/albums?include_groups=album,single&market=%s&limit=%d",
		url.PathEscape(artistID), s.market, clampLimit(limit, 6, 50))

	var resp paging[spotifyAlbum]
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return toAlbums(resp.Items), nil
}

func (s *SpotifyService) RelatedArtists(ctx context.Context, artistID string) ([]models.Artist, error) {
	var resp struct {
		Artists []spotifyArtist `json:"artists"`
	}
	if err := s.get(ctx, "/artists/"+url.PathEscape(artistID)+"/related-artists", &resp); err != nil {
		return nil, err
	}
	return toArtists(resp.Artists), nil
}

// Album fetches an album with its first page of tracks.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*models.Album, error) {
	var a spotifyAlbum
	if err := s.get(ctx, "/albums/"+url.PathEscape(albumID)+"?market="+s.market, &a); err != nil {
		return nil, err
	}
	album := toAlbum(a)
	return &album, nil
}

func (s *SpotifyService) Show(ctx context.Context, showID string) (*models.Show, error) {
	var sh spotifyShow
	if err := s.get(ctx, "/shows/"+url.PathEscape(showID)+"?market="+s.market, &sh); err != nil {
		return nil, err
	}
	show := toShow(sh)
	return &show, nil
}

func (s *SpotifyService) ShowEpisodes(ctx context.Context, showID string, limit int) ([]models.Episode, error) {
	path := fmt.Sprintf("/shows/%s/episodes?market=%s&limit=%d", url.PathEscape(showID), s.market, clampLimit(limit, 20, 50))

	var resp paging[*spotifyEpisode]
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Episode, 0, len(resp.Items))
	for _, e := range resp.Items {
		if e != nil {
			out = append(out, toEpisode(*e))
		}
	}
	return out, nil
}

func (s *SpotifyService) NewReleases(ctx context.Context, limit int) ([]models.Album, error) {
	var resp struct {
		Albums paging[spotifyAlbum] `json:"albums"`
	}
	if err := s.get(ctx, "/browse/new-releases?limit="+strconv.Itoa(clampLimit(limit, 20, 50)), &resp); err != nil {
		return nil, err
	}
	return toAlbums(resp.Albums.Items), nil
}

func (s *SpotifyService) TopTracks(ctx context.Context, limit int) ([]models.Track, error) {
	var resp paging[spotifyTrack]
	if err := s.get(ctx, "/me/top/tracks?limit="+strconv.Itoa(clampLimit(limit, 20, 50)), &resp); err != nil {
		return nil, err
	}
	return toTracks(resp.Items), nil
}

func (s *SpotifyService) TopArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	var resp paging[spotifyArtist]
	if err := s.get(ctx, "/me/top/artists?limit="+strconv.Itoa(clampLimit(limit, 20, 50)), &resp); err != nil {
		return nil, err
	}
	return toArtists(resp.Items), nil
}
