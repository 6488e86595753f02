package playlists

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// Remote is the playlist surface of the catalog API.
type Remote interface {
	UserPlaylists(ctx context.Context, userID string, limit int) ([]models.Playlist, error)
	PlaylistTracksPage(ctx context.Context, pageURL string) (*services.Page[models.Track], error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error)
	EditPlaylist(ctx context.Context, playlistID, name, description string) error
	AddTracks(ctx context.Context, playlistID string, uris []string) error
	RemoveTracks(ctx context.Context, playlistID string, uris []string) error
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// Identity supplies the signed-in user.
type Identity interface {
	Session() models.Session
}

type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpAdd    Op = "add"
	OpEdit   Op = "edit"
	OpRemove Op = "remove"
	OpDelete Op = "delete"
)

// MutationError reports a failed playlist operation. The collection is unchanged when it is returned.
type MutationError struct {
	Op  Op
	Key models.PlaylistKey
	Err error
}

func (e *MutationError) Error() string {
	if e.Key.ID == "" {
		return fmt.Sprintf("playlist %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("playlist %s %s failed: %v", e.Op, e.Key, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

const listLimit = 50

// Manager owns the merged playlist collection.
type Manager struct {
	api      Remote
	identity Identity
	limits   services.PageLimits
	logger   *log.Logger

	mu      sync.RWMutex
	local   []models.Playlist // newest first
	remote  []models.Playlist
	tracks  map[string][]models.Track // cached remote tracks by playlist id
	err     error
	loading int
	seq     uint64            // bumped by Reset
	issued  uint64            // last load ticket handed out
	applied uint64            // ticket of the installed snapshot
	fetched map[string]uint64 // ticket each cached track list was read under
	closed  bool

	observers shared.Observers[[]models.Playlist]
}

func New(api Remote, identity Identity, limits services.PageLimits, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	if limits.Logger == nil {
		limits.Logger = logger
	}
	return &Manager{
		api:      api,
		identity: identity,
		limits:   limits,
		logger:   logger,
		tracks:   map[string][]models.Track{},
		fetched:  map[string]uint64{},
	}
}

// Subscribe registers fn to receive the merged collection after every change.
func (m *Manager) Subscribe(fn func([]models.Playlist)) func() {
	return m.observers.Subscribe(fn)
}

func (m *Manager) publish() {
	m.observers.Notify(m.Playlists())
}

// start marks an operation in flight and returns the sequence it must still match to apply.
func (m *Manager) start() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, shared.ErrClosed
	}
	m.loading++
	return m.seq, nil
}

func (m *Manager) finish() {
	m.mu.Lock()
	if m.loading > 0 {
		m.loading--
	}
	m.mu.Unlock()
}

// fail records err and wraps it for the caller.
func (m *Manager) fail(op Op, key models.PlaylistKey, err error) error {
	merr := &MutationError{Op: op, Key: key, Err: err}
	m.mu.Lock()
	m.err = merr
	m.mu.Unlock()
	m.logger.Error("playlist operation failed", "op", op, "playlist", key.String(), "error", err)
	m.publish()
	return merr
}

func (m *Manager) userID() (string, error) {
	s := m.identity.Session()
	if !s.Authenticated() {
		return "", shared.ErrNotAuthenticated
	}
	return s.User.ID, nil
}

// snapshot is a fetched remote state waiting to be applied. ticket orders snapshots by issue.
type snapshot struct {
	ticket uint64
	remote []models.Playlist
	tracks map[string][]models.Track
}

// load fetches the remote collection and re-fetches the cached track lists of refresh.
func (m *Manager) load(ctx context.Context, refresh ...string) (*snapshot, error) {
	user, err := m.userID()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.issued++
	ticket := m.issued
	m.mu.Unlock()

	remote, err := m.api.UserPlaylists(ctx, user, listLimit)
	if err != nil {
		return nil, err
	}
	for i := range remote {
		remote[i].Origin = models.OriginRemote
	}

	snap := &snapshot{ticket: ticket, remote: remote, tracks: map[string][]models.Track{}}
	for _, id := range refresh {
		if !containsID(remote, id) {
			continue
		}
		tracks, err := m.collectTracks(ctx, id)
		if err != nil {
			return nil, err
		}
		snap.tracks[id] = tracks
	}
	return snap, nil
}

// apply installs snap if seq is still current. Cached tracks of playlists that disappeared are dropped.
//
// A snapshot issued before the installed one is not installed; the newer read already reflects
// everything that preceded it. Its refreshed track lists still replace older cached ones.
func (m *Manager) apply(seq uint64, snap *snapshot, drop ...string) bool {
	m.mu.Lock()
	if m.closed || seq != m.seq {
		m.mu.Unlock()
		m.logger.Debug("dropping stale playlist result", "seq", seq)
		return false
	}
	for _, id := range drop {
		delete(m.tracks, id)
		delete(m.fetched, id)
	}
	if snap.ticket > m.applied {
		m.applied = snap.ticket
		m.remote = snap.remote
		for id := range m.tracks {
			if !containsID(snap.remote, id) {
				delete(m.tracks, id)
				delete(m.fetched, id)
			}
		}
	} else {
		m.logger.Debug("playlist snapshot overtaken", "ticket", snap.ticket, "applied", m.applied)
	}
	for id, tracks := range snap.tracks {
		if containsID(m.remote, id) && snap.ticket > m.fetched[id] {
			m.tracks[id] = tracks
			m.fetched[id] = snap.ticket
		}
	}
	m.err = nil
	m.mu.Unlock()
	m.publish()
	return true
}

func (m *Manager) cached(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tracks[id]
	return ok
}

func (m *Manager) collectTracks(ctx context.Context, id string) ([]models.Track, error) {
	tracks, err := services.CollectPages(ctx, services.PlaylistTracksPath(id), m.limits, m.api.PlaylistTracksPage)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return tracks, nil
}

// Fetch re-reads the remote collection. Local playlists are kept.
func (m *Manager) Fetch(ctx context.Context) ([]models.Playlist, error) {
	seq, err := m.start()
	if err != nil {
		return nil, err
	}
	defer m.finish()

	snap, err := m.load(ctx)
	if err != nil {
		return nil, m.fail(OpFetch, models.PlaylistKey{}, err)
	}
	if !m.apply(seq, snap) {
		return nil, shared.ErrSuperseded
	}
	m.logger.Debug("playlists fetched", "remote", len(snap.remote))
	return m.Playlists(), nil
}

// Create adds a playlist named name. Local playlists are created in memory and placed first;
// remote ones are created on the service and the collection re-fetched.
func (m *Manager) Create(ctx context.Context, name string, local bool) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &MutationError{Op: OpCreate, Err: fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)}
	}

	if local {
		p := models.Playlist{
			ID:     shared.GenerateID(),
			Name:   name,
			Owner:  models.LikedSongsOwner,
			Origin: models.OriginLocal,
			Tracks: []models.Track{},
		}
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, shared.ErrClosed
		}
		m.local = append([]models.Playlist{p}, m.local...)
		m.mu.Unlock()
		m.publish()
		m.logger.Info("created local playlist", "id", p.ID, "name", name)
		out := p.Clone()
		return &out, nil
	}

	seq, err := m.start()
	if err != nil {
		return nil, err
	}
	defer m.finish()

	user, err := m.userID()
	if err != nil {
		return nil, m.fail(OpCreate, models.PlaylistKey{}, err)
	}
	created, err := m.api.CreatePlaylist(ctx, user, name, "")
	if err != nil {
		return nil, m.fail(OpCreate, models.PlaylistKey{}, err)
	}
	key := models.PlaylistKey{ID: created.ID, Origin: models.OriginRemote}

	snap, err := m.load(ctx)
	if err != nil {
		return nil, m.fail(OpCreate, key, err)
	}
	if !m.apply(seq, snap) {
		return nil, shared.ErrSuperseded
	}
	m.logger.Info("created playlist", "id", created.ID, "name", name)

	if p, ok := m.Get(key); ok {
		return &p, nil
	}
	created.Origin = models.OriginRemote
	return created, nil
}

// Add appends track to the playlist at key. Duplicates are allowed.
func (m *Manager) Add(ctx context.Context, key models.PlaylistKey, track models.Track) error {
	if key.Origin == models.OriginLocal {
		return m.mutateLocal(OpAdd, key, func(p *models.Playlist) {
			p.Tracks = append(p.Tracks, track)
			p.TrackCount = len(p.Tracks)
		})
	}
	return m.mutateRemote(ctx, OpAdd, key, func(ctx context.Context) error {
		return m.api.AddTracks(ctx, key.ID, []string{trackURI(track)})
	})
}

// Edit renames the playlist at key and, for remote playlists, sets its description.
func (m *Manager) Edit(ctx context.Context, key models.PlaylistKey, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &MutationError{Op: OpEdit, Key: key, Err: fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)}
	}
	if key.Origin == models.OriginLocal {
		return m.mutateLocal(OpEdit, key, func(p *models.Playlist) {
			p.Name = name
			p.Description = description
		})
	}
	return m.mutateRemote(ctx, OpEdit, key, func(ctx context.Context) error {
		return m.api.EditPlaylist(ctx, key.ID, name, description)
	})
}

// RemoveTrack removes every occurrence of track from the playlist at key.
func (m *Manager) RemoveTrack(ctx context.Context, key models.PlaylistKey, track models.Track) error {
	if key.Origin == models.OriginLocal {
		return m.mutateLocal(OpRemove, key, func(p *models.Playlist) {
			kept := p.Tracks[:0:0]
			for _, t := range p.Tracks {
				if t.ID != track.ID {
					kept = append(kept, t)
				}
			}
			p.Tracks = kept
			p.TrackCount = len(kept)
		})
	}
	return m.mutateRemote(ctx, OpRemove, key, func(ctx context.Context) error {
		return m.api.RemoveTracks(ctx, key.ID, []string{trackURI(track)})
	})
}

// Delete removes the playlist at key. Remote playlists are unfollowed.
func (m *Manager) Delete(ctx context.Context, key models.PlaylistKey) error {
	if key.Origin == models.OriginLocal {
		m.mu.Lock()
		i := indexOf(m.local, key.ID)
		if i < 0 {
			m.mu.Unlock()
			return m.fail(OpDelete, key, shared.ErrPlaylistNotFound)
		}
		m.local = append(m.local[:i:i], m.local[i+1:]...)
		m.mu.Unlock()
		m.publish()
		return nil
	}

	seq, err := m.start()
	if err != nil {
		return err
	}
	defer m.finish()

	if err := m.api.UnfollowPlaylist(ctx, key.ID); err != nil {
		return m.fail(OpDelete, key, err)
	}
	snap, err := m.load(ctx)
	if err != nil {
		return m.fail(OpDelete, key, err)
	}
	if !m.apply(seq, snap, key.ID) {
		return shared.ErrSuperseded
	}
	m.logger.Info("deleted playlist", "id", key.ID)
	return nil
}

func (m *Manager) mutateLocal(op Op, key models.PlaylistKey, fn func(*models.Playlist)) error {
	m.mu.Lock()
	i := indexOf(m.local, key.ID)
	if i < 0 {
		m.mu.Unlock()
		return m.fail(op, key, shared.ErrPlaylistNotFound)
	}
	p := m.local[i].Clone()
	fn(&p)
	m.local[i] = p
	m.mu.Unlock()
	m.publish()
	return nil
}

// mutateRemote runs call, then re-fetches the collection and, if cached, the playlist's tracks.
func (m *Manager) mutateRemote(ctx context.Context, op Op, key models.PlaylistKey, call func(context.Context) error) error {
	seq, err := m.start()
	if err != nil {
		return err
	}
	defer m.finish()

	if err := call(ctx); err != nil {
		return m.fail(op, key, err)
	}

	var refresh []string
	if m.cached(key.ID) {
		refresh = append(refresh, key.ID)
	}
	snap, err := m.load(ctx, refresh...)
	if err != nil {
		return m.fail(op, key, err)
	}
	if !m.apply(seq, snap) {
		return shared.ErrSuperseded
	}
	return nil
}

// Get returns the playlist at key, with its tracks if they are known.
func (m *Manager) Get(key models.PlaylistKey) (models.Playlist, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.remote
	if key.Origin == models.OriginLocal {
		list = m.local
	}
	i := indexOf(list, key.ID)
	if i < 0 {
		return models.Playlist{}, false
	}
	p := list[i].Clone()
	if key.Origin == models.OriginRemote {
		if tracks, ok := m.tracks[key.ID]; ok {
			p.Tracks = slices.Clone(tracks)
		}
	}
	return p, true
}

// Tracks returns the playlist's tracks, fetching every page of a remote playlist on first use.
func (m *Manager) Tracks(ctx context.Context, key models.PlaylistKey) ([]models.Track, error) {
	p, ok := m.Get(key)
	if !ok {
		return nil, &MutationError{Op: OpFetch, Key: key, Err: shared.ErrPlaylistNotFound}
	}
	if key.Origin == models.OriginLocal || p.Tracks != nil {
		return p.Tracks, nil
	}

	seq, err := m.start()
	if err != nil {
		return nil, err
	}
	defer m.finish()

	tracks, err := m.collectTracks(ctx, key.ID)
	if err != nil {
		return nil, m.fail(OpFetch, key, err)
	}

	m.mu.Lock()
	if seq == m.seq && !m.closed && indexOf(m.remote, key.ID) >= 0 {
		m.tracks[key.ID] = tracks
	}
	m.mu.Unlock()
	m.publish()
	return slices.Clone(tracks), nil
}

// Playlists returns local playlists, newest first, followed by remote ones.
func (m *Manager) Playlists() []models.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Playlist, 0, len(m.local)+len(m.remote))
	for _, p := range m.local {
		out = append(out, p.Clone())
	}
	for _, p := range m.remote {
		p = p.Clone()
		if tracks, ok := m.tracks[p.ID]; ok {
			p.Tracks = slices.Clone(tracks)
		}
		out = append(out, p)
	}
	return out
}

// Err returns the last recorded failure.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *Manager) ClearError() {
	m.mu.Lock()
	m.err = nil
	m.mu.Unlock()
}

// Loading reports whether any remote operation is in flight.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading > 0
}

// Reset clears local and remote state and invalidates in-flight operations.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.seq++
	m.local = nil
	m.remote = nil
	m.tracks = map[string][]models.Track{}
	m.fetched = map[string]uint64{}
	m.applied = m.issued
	m.err = nil
	m.mu.Unlock()
	m.publish()
}

// Close disposes the manager. Later operations fail with [shared.ErrClosed].
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func indexOf(list []models.Playlist, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func containsID(list []models.Playlist, id string) bool {
	return indexOf(list, id) >= 0
}

func trackURI(t models.Track) string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.ID
}
